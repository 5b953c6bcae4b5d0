package classify_test

import (
	"testing"

	"lectern/internal/classify"
	"lectern/internal/parse"
)

func TestClassifyDecisionTable(t *testing.T) {
	cases := []struct {
		name     string
		filename string
		want     string
	}{
		{"question with explicit term", "S1-T2-P0046-Ahmed Youssef-AR-Q21.mp4", "T2-2026-QV"},
		{"question without term defaults to T1", "S1-P0046-Ahmed-AR-Q3.mp4", "T1-2026-QV"},
		{"revision only", "RE-S1-T1—نماذج شاملة.mp4", "RE-2026"},
		{"revision question", "RE-S1-T1-Q5.mp4", "RE-T1-2026-QV"},
		{"full lesson", "S1-T2-P0046-AR-U1-L3.mp4", "T2-2026"},
		{"full lesson default term", "S1-P0046-AR-U1-L3.mp4", "T1-2026"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			parsed := parse.Parse(tc.filename)
			got := classify.Classify(parsed, "2026")
			if got.Name != tc.want {
				t.Fatalf("collection = %q, want %q", got.Name, tc.want)
			}
			if got.Reason == "" {
				t.Fatal("expected a reason string")
			}
		})
	}
}

func TestClassifyIsDeterministic(t *testing.T) {
	parsed := parse.Parse("S1-T2-P0046-AR-Q21.mp4")
	first := classify.Classify(parsed, "2026")
	for i := 0; i < 10; i++ {
		if got := classify.Classify(parsed, "2026"); got != first {
			t.Fatalf("classification changed between calls: %+v vs %+v", got, first)
		}
	}
}

func TestClassifyTermPhrases(t *testing.T) {
	parsed := parse.Parse("S1-P0046-AR-second term review-L1.mp4")
	got := classify.Classify(parsed, "2025")
	if got.Name != "T2-2025" {
		t.Fatalf("collection = %q", got.Name)
	}
}

func TestClassifySurvivesErrorSentinel(t *testing.T) {
	parsed := parse.Parse("")
	got := classify.Classify(parsed, "2026")
	if got.Name != "T1-2026" {
		t.Fatalf("collection = %q", got.Name)
	}
}
