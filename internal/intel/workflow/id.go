package workflow

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// idPrefix marks registry-generated record ids.
const idPrefix = "cr"

// NewRecordID generates a globally unique record id with no coordination
// between submitters: a second-resolution time component for rough
// ordering plus a random component for collision resistance.
//
// Format: cr-{unix-seconds}-{8 hex chars}, e.g. cr-1755801600-9f3a2b1c.
func NewRecordID(now time.Time) string {
	random := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("%s-%d-%s", idPrefix, now.Unix(), random)
}
