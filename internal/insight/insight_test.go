package insight

import (
	"strings"
	"testing"
)

func TestExtractShortMessageYieldsNothing(t *testing.T) {
	got := Extract("I am afraid", DefaultOptions())
	if len(got) != 0 {
		t.Errorf("expected no signals for short message, got %v", got)
	}
}

func TestExtractCategories(t *testing.T) {
	msg := "I am torn between my marriage and my dream of starting a company someday"
	got := Extract(msg, DefaultOptions())
	if len(got) != 3 {
		t.Fatalf("expected 3 signals, got %d: %v", len(got), got)
	}
	if !strings.HasPrefix(got[0], "Relationship concern: ") {
		t.Errorf("first signal = %q", got[0])
	}
	if !strings.HasPrefix(got[1], "Aspirational goal: ") {
		t.Errorf("second signal = %q", got[1])
	}
	if !strings.HasPrefix(got[2], "Trade-off tension: ") {
		t.Errorf("third signal = %q", got[2])
	}
}

func TestExtractCapsPerTurn(t *testing.T) {
	msg := "My wife fears the worst, but what matters is the dream we are anxious to balance with family priority"
	got := Extract(msg, DefaultOptions())
	if len(got) > 3 {
		t.Errorf("expected at most 3 signals, got %d: %v", len(got), got)
	}
}

func TestExtractDeterministic(t *testing.T) {
	msg := "I worry that choosing stability means giving up on what I actually hope for"
	a := Extract(msg, DefaultOptions())
	b := Extract(msg, DefaultOptions())
	if len(a) != len(b) {
		t.Fatalf("non-deterministic: %v vs %v", a, b)
	}
	for i := range a {
		if a[i] != b[i] {
			t.Errorf("signal %d differs: %q vs %q", i, a[i], b[i])
		}
	}
}

func TestExtractUsesFirstSentence(t *testing.T) {
	msg := "I fear losing everything I built so far. The second sentence should not appear in the signal text."
	got := Extract(msg, DefaultOptions())
	if len(got) == 0 {
		t.Fatal("expected at least one signal")
	}
	for _, s := range got {
		if strings.Contains(s, "second sentence") {
			t.Errorf("signal leaked past the first sentence: %q", s)
		}
	}
}

func TestExtractTruncatesLongSentence(t *testing.T) {
	long := "I am afraid that " + strings.Repeat("this keeps going ", 30) + "forever"
	got := Extract(long, DefaultOptions())
	if len(got) == 0 {
		t.Fatal("expected a signal")
	}
	for _, s := range got {
		if !strings.HasSuffix(s, "...") {
			t.Errorf("long signal not truncated: %q", s)
		}
	}
}
