package dataset

import (
	"strings"
	"testing"
)

func TestNew_Valid(t *testing.T) {
	ds, err := New("vector_search", "us-central1", "tutorial data")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ds.Name() != "vector_search" {
		t.Errorf("Name() = %q", ds.Name())
	}
	if ds.Location() != "us-central1" {
		t.Errorf("Location() = %q", ds.Location())
	}
	if ds.Description() != "tutorial data" {
		t.Errorf("Description() = %q", ds.Description())
	}
}

func TestNew_DefaultLocation(t *testing.T) {
	ds, err := New("ds", "  ", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ds.Location() != DefaultLocation {
		t.Errorf("Location() = %q, want %q", ds.Location(), DefaultLocation)
	}
}

func TestNew_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		wantErr string
	}{
		{"empty", "", "required"},
		{"hyphen", "my-dataset", "letters, digits"},
		{"dot", "a.b", "letters, digits"},
		{"too long", strings.Repeat("a", MaxNameLength+1), "too long"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.in, "", "")
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %q, want substring %q", err, tt.wantErr)
			}
		})
	}
}
