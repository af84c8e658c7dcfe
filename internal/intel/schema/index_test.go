package schema

import (
	"errors"
	"testing"
)

func TestEncodeDecodeIndex(t *testing.T) {
	ids := []string{"cr-a", "cr-b", "cr-c"}

	data, err := EncodeIndex(ids)
	if err != nil {
		t.Fatalf("EncodeIndex() failed: %v", err)
	}

	got, err := DecodeIndex(data)
	if err != nil {
		t.Fatalf("DecodeIndex() failed: %v", err)
	}

	if len(got) != len(ids) {
		t.Fatalf("Expected %d ids, got %d", len(ids), len(got))
	}
	for i := range ids {
		if got[i] != ids[i] {
			t.Errorf("Expected ids[%d] = %s, got %s", i, ids[i], got[i])
		}
	}
}

func TestEncodeIndexNil(t *testing.T) {
	data, err := EncodeIndex(nil)
	if err != nil {
		t.Fatalf("EncodeIndex(nil) failed: %v", err)
	}

	got, err := DecodeIndex(data)
	if err != nil {
		t.Fatalf("DecodeIndex() failed: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("Expected empty id list, got %v", got)
	}
}

func TestDecodeIndexMalformed(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"not json", []byte("####")},
		{"wrong version", []byte(`{"format_version":7,"ids":[]}`)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeIndex(tt.data)
			if err == nil {
				t.Fatal("Expected decode error")
			}
			if !errors.Is(err, ErrDecode) {
				t.Errorf("Expected ErrDecode, got: %v", err)
			}
		})
	}
}

func TestKeyLayout(t *testing.T) {
	if got := RecordKey("", "cr-1"); got != "cintel/record/cr-1" {
		t.Errorf("RecordKey default namespace: got %s", got)
	}
	if got := RecordKey("euro-desk", "cr-1"); got != "euro-desk/record/cr-1" {
		t.Errorf("RecordKey custom namespace: got %s", got)
	}
	if got := IndexKey("euro-desk"); got != "euro-desk/index" {
		t.Errorf("IndexKey: got %s", got)
	}
	if got := MetaKey(""); got != "cintel/meta" {
		t.Errorf("MetaKey: got %s", got)
	}
}
