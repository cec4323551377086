package ml

import (
	"testing"

	"github.com/spaolacci/murmur3"
)

func TestVWHasherNumericNames(t *testing.T) {
	h := VWHasher{}
	if got := h.HashFeature("123", 10); got != 133 {
		t.Fatalf("expected 133, got %d", got)
	}
	if got := h.HashFeature(" 7 ", 0); got != 7 {
		t.Fatalf("expected surrounding spaces to be ignored, got %d", got)
	}
}

func TestVWHasherMurmur(t *testing.T) {
	h := VWHasher{Seed: 3}
	if got, want := h.HashSpace("ns0"), murmur3.Sum32WithSeed([]byte("ns0"), 3); got != want {
		t.Fatalf("HashSpace = %d, want %d", got, want)
	}
	if got, want := h.HashFeature("DOLOR", 99), murmur3.Sum32WithSeed([]byte("DOLOR"), 99); got != want {
		t.Fatalf("HashFeature = %d, want %d", got, want)
	}
	if h.HashFeature("DOLOR", 1) == h.HashFeature("DOLOR", 2) {
		t.Fatal("expected the namespace hash to change the index")
	}
}
