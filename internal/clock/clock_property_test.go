package clock

import (
	"math/rand"
	"testing"
)

// TestNeedsSync_Property_Definition checks NeedsSync is true iff the secondary
// is unreported or strictly behind.
func TestNeedsSync_Property_Definition(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 1000; i++ {
		p := rng.Int63n(1000)
		s := rng.Int63n(1000)
		reported := rng.Intn(4) != 0

		got := NeedsSync(p, s, reported)
		want := !reported || p > s
		if got != want {
			t.Fatalf("NeedsSync(%d, %d, %v) = %v, want %v", p, s, reported, got, want)
		}
		if reported && s >= p && got {
			t.Fatalf("caught-up secondary (%d >= %d) must not need sync", s, p)
		}
	}
}
