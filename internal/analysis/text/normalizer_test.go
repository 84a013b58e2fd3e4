package text

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestNormalizeExpandsAndStrips(t *testing.T) {
	cases := map[string]string{
		"I'm fine!":                      "i am fine",
		"  Who is   LUMI?? ":             "who is lumi",
		"I can't sleep, won't eat.":      "i cannot sleep will not eat",
		"What’s up":                      "what is up",
		"They're scared and I've tried": "they are scared and i have tried",
		"":                               "",
		"   \t\n":                        "",
		"...":                            "",
	}

	for input, want := range cases {
		if got := Normalize(input); got != want {
			t.Fatalf("Normalize(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestNormalizeIsIdempotent(t *testing.T) {
	inputs := []string{
		"Hello there!!",
		"I'm SO anxious about tomorrow...",
		"don't you'd we'll y'all",
		"émotions & feelings: ça va?",
		"tabs\tand\nnewlines",
		"it's Lumi's turn",
	}

	for _, input := range inputs {
		once := Normalize(input)
		twice := Normalize(once)
		if once != twice {
			t.Fatalf("Normalize not idempotent for %q: %q then %q", input, once, twice)
		}
	}
}

func TestSplitSentences(t *testing.T) {
	got := SplitSentences("Hi! I feel low today... Any ideas?  ")
	want := []string{"Hi", "I feel low today", "Any ideas"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("SplitSentences mismatch (-want +got):\n%s", diff)
	}

	if got := SplitSentences("?!."); len(got) != 0 {
		t.Fatalf("expected no sentences, got %v", got)
	}
	if got := SplitSentences(""); len(got) != 0 {
		t.Fatalf("expected no sentences for empty input, got %v", got)
	}
}

func TestWordCount(t *testing.T) {
	if got := WordCount("i am good"); got != 3 {
		t.Fatalf("expected 3 words, got %d", got)
	}
	if got := WordCount(""); got != 0 {
		t.Fatalf("expected 0 words, got %d", got)
	}
}
