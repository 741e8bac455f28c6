package roster

import (
	"regexp"
	"testing"
)

func TestPatientIDFormat(t *testing.T) {
	pattern := regexp.MustCompile(`^P-\d{4}$`)
	src := NewRandomIDSource()
	for i := 0; i < 200; i++ {
		id := src.PatientID()
		if !pattern.MatchString(id) {
			t.Fatalf("patient id %q does not match P-####", id)
		}
	}
}

func TestDocumentIDFormat(t *testing.T) {
	pattern := regexp.MustCompile(`^DOC-[0-9A-Z]{9}$`)
	src := NewRandomIDSource()
	for i := 0; i < 200; i++ {
		id := src.DocumentID()
		if !pattern.MatchString(id) {
			t.Fatalf("document id %q does not match DOC-<9 alnum>", id)
		}
	}
}

func TestDeterministicSource(t *testing.T) {
	src := NewIDSourceWithRand(func(n int) int { return 0 })
	if id := src.PatientID(); id != "P-1000" {
		t.Fatalf("expected P-1000, got %q", id)
	}
	if id := src.DocumentID(); id != "DOC-000000000" {
		t.Fatalf("expected DOC-000000000, got %q", id)
	}
}
