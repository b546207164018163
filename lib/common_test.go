package cibox_lib

import (
	"testing"
)

func TestAny(t *testing.T) {
	args := []string{"cibox", "use", "--verbose"}
	if !Any(args, "--verbose", "-v") {
		t.Fatal("Present occurrence was not detected")
	}
	if Any(args, "-h", "--help") {
		t.Fatal("Absent occurrences were detected")
	}
}
