package textutil

import (
	"math"
	"reflect"
	"testing"
)

func TestSanitizeFileName(t *testing.T) {
	if got := SanitizeFileName("Lecture: Intro/Part 1?"); got != "Lecture- Intro-Part 1" {
		t.Fatalf("SanitizeFileName = %q", got)
	}
	decomposed := "Pr\u030cedna\u0301s\u030cka"
	if got := SanitizeFileName(decomposed); got != "Přednáška" {
		t.Fatalf("expected NFC output, got %q", got)
	}
	if got := SanitizeFileName("   "); got != "" {
		t.Fatalf("expected empty, got %q", got)
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("Přednáška", 3); got != "Pře..." {
		t.Fatalf("Truncate = %q", got)
	}
	if got := Truncate("short", 50); got != "short" {
		t.Fatalf("Truncate = %q", got)
	}
}

func TestNormalizeText(t *testing.T) {
	if got := NormalizeText("  line one\r\nline two \n"); got != "line one\nline two" {
		t.Fatalf("NormalizeText = %q", got)
	}
}

func TestTokenizeKeepsDiacritics(t *testing.T) {
	got := Tokenize("Ahoj, já jsem Petr! 42 čeština")
	want := []string{"ahoj", "jsem", "petr", "čeština"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Tokenize = %#v, want %#v", got, want)
	}
}

func TestSimilarity(t *testing.T) {
	text := "kvantová mechanika popisuje chování částic"
	if sim := Similarity(text, text); math.Abs(sim-1) > 1e-9 {
		t.Fatalf("expected identical texts to score 1, got %f", sim)
	}
	if sim := Similarity(text, "recept na svíčkovou omáčku"); sim != 0 {
		t.Fatalf("expected disjoint texts to score 0, got %f", sim)
	}
	if sim := Similarity("", text); sim != 0 {
		t.Fatalf("expected empty text to score 0, got %f", sim)
	}
	if fp := NewFingerprint("a b"); fp.TokenCount() != 0 {
		t.Fatal("expected nil fingerprint for short tokens")
	}
}
