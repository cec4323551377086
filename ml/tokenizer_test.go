package ml

import (
	"strings"
	"testing"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []Token
	}{
		{name: "empty", text: "", want: []Token{}},
		{name: "only spaces", text: "   ", want: []Token{}},
		{name: "sentence", text: "the cat sat on the mat", want: []Token{"THE", "CAT", "SAT", "ON", "THE", "MAT"}},
		{name: "double space", text: "a  a", want: []Token{"A", "A"}},
		{name: "leading and trailing spaces", text: " Lorem ipsum ", want: []Token{"LOREM", "IPSUM"}},
		{name: "punctuation kept", text: "amet, elit.", want: []Token{"AMET,", "ELIT."}},
		{name: "tab does not split", text: "a\tb c", want: []Token{"A\tB", "C"}},
		{name: "whitespace only fragment dropped", text: "a \t b", want: []Token{"A", "B"}},
		{name: "unicode uppercase", text: "straße café", want: []Token{"STRASSE", "CAFÉ"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Tokenize(tt.text)
			if got == nil {
				t.Fatal("Tokenize returned nil")
			}
			if len(got) != len(tt.want) {
				t.Fatalf("Tokenize(%q) = %q, want %q", tt.text, got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("Tokenize(%q)[%d] = %q, want %q", tt.text, i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestTokenizeCaseInsensitive(t *testing.T) {
	lower := Tokenize("Lorem ipsum")
	upper := Tokenize("LOREM IPSUM")
	if len(lower) != len(upper) {
		t.Fatalf("length mismatch: %d vs %d", len(lower), len(upper))
	}
	for i := range lower {
		if lower[i] != upper[i] {
			t.Errorf("token %d: %q != %q", i, lower[i], upper[i])
		}
	}
}

func TestTokenizeLengthMatchesFragments(t *testing.T) {
	texts := []string{
		"",
		"one",
		"  two  words ",
		"Senectus et netus et malesuada fames ac turpis.",
		"x \n y",
	}
	for _, text := range texts {
		want := 0
		for _, fragment := range strings.Split(text, " ") {
			if strings.TrimSpace(fragment) != "" {
				want++
			}
		}
		if got := len(Tokenize(text)); got != want {
			t.Errorf("len(Tokenize(%q)) = %d, want %d", text, got, want)
		}
	}
}

func TestTokenizerWithStemming(t *testing.T) {
	tokenizer := NewTokenizer(WithStemming())
	if !tokenizer.Stemming() {
		t.Fatal("expected stemming to be enabled")
	}
	got := tokenizer.Tokenize("running runs")
	want := []Token{"RUN", "RUN"}
	if len(got) != len(want) {
		t.Fatalf("got %q, want %q", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("token %d = %q, want %q", i, got[i], want[i])
		}
	}
}
