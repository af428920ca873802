package testfixtures

import "testing"

func TestIDGeneratorProducesSequentialIDs(t *testing.T) {
	gen := NewIDGenerator("job")

	first := gen.Next()
	second := gen.Next()

	if first != "job-00001" || second != "job-00002" {
		t.Fatalf("unexpected identifiers: %q, %q", first, second)
	}
}

func TestIDGeneratorCanReset(t *testing.T) {
	gen := NewIDGenerator("")
	_ = gen.Next()
	gen.Reset()

	if next := gen.NextFunc()(); next != "id-00001" {
		t.Fatalf("expected id-00001 after reset, got %q", next)
	}
}
