package workflow

import (
	"regexp"
	"sync"
	"testing"
	"time"
)

func TestNewRecordIDFormat(t *testing.T) {
	id := NewRecordID(time.Unix(1755801600, 0))

	pattern := regexp.MustCompile(`^cr-1755801600-[0-9a-f]{8}$`)
	if !pattern.MatchString(id) {
		t.Errorf("Expected id matching %s, got %s", pattern, id)
	}
}

func TestNewRecordIDUniqueUnderConcurrency(t *testing.T) {
	// Same-second submissions from many goroutines must still be
	// unique thanks to the random component.
	const n = 1000
	now := time.Unix(1755801600, 0)

	var mu sync.Mutex
	seen := make(map[string]bool, n)
	var wg sync.WaitGroup

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id := NewRecordID(now)
			mu.Lock()
			defer mu.Unlock()
			if seen[id] {
				t.Errorf("Duplicate id generated: %s", id)
			}
			seen[id] = true
		}()
	}
	wg.Wait()

	if len(seen) != n {
		t.Errorf("Expected %d unique ids, got %d", n, len(seen))
	}
}
