package triage

import (
	"fmt"
	"strings"
	"testing"
)

var scenarioVitals = VitalSigns{BPSystolic: 180, BPDiastolic: 115, HeartRate: 105, Temperature: 37.2, SpO2: 95, PainScore: 9}

func TestRender_Templates(t *testing.T) {
	t.Parallel()

	tests := []struct {
		class Class
		want  []string
	}{
		{ClassEmergent, []string{"Critical vital signs detected", "BP 180/115", "HR 105", "Immediate medical attention"}},
		{ClassUrgent, []string{"Concerning presentation", "BP 180/115", "HR 105", "Pain 9/10"}},
		{ClassNonUrgent, []string{"Stable vital signs", "BP 180/115", "HR 105", "routine care setting"}},
	}

	for _, tt := range tests {
		t.Run(string(tt.class), func(t *testing.T) {
			t.Parallel()
			got := Render(scenarioVitals, tt.class, 0.9)
			for _, s := range tt.want {
				if !strings.Contains(got, s) {
					t.Errorf("Render(%s) = %q, missing %q", tt.class, got, s)
				}
			}
		})
	}
}

func TestRender_UncertaintyNoticeIffFlagged(t *testing.T) {
	t.Parallel()

	for _, class := range Classes {
		for _, c := range []float64{0.34, 0.5, 0.65, 0.699, 0.70, 0.71, 0.9, 1} {
			got := Render(scenarioVitals, class, c)
			has := strings.Contains(got, "UNCERTAINTY FLAG")
			if has != Flag(c) {
				t.Errorf("Render(%s, %v): notice present = %v, flagged = %v", class, c, has, Flag(c))
			}
			if has && !strings.HasSuffix(got, UncertaintyNotice(c)) {
				t.Errorf("Render(%s, %v): notice must be appended at the end: %q", class, c, got)
			}
		}
	}
}

func TestRender_NoticePercent(t *testing.T) {
	t.Parallel()

	got := Render(scenarioVitals, ClassUrgent, 0.65)
	if !strings.Contains(got, "Confidence only 65%.") {
		t.Errorf("Render = %q, want 65%% in notice", got)
	}
	if !strings.HasSuffix(got, "senior clinician review due to atypical presentation or conflicting indicators.") {
		t.Errorf("Render = %q, want review sentence at the end", got)
	}
}

func TestUncertaintyNotice_HalfPercentRoundsToEven(t *testing.T) {
	t.Parallel()

	tests := []struct {
		confidence float64
		want       string
	}{
		{0.645, "64%"},
		{0.665, "66%"},
		{0.125, "12%"},
		{0.65, "65%"},
		{0.3, "30%"},
	}

	for _, tt := range tests {
		got := UncertaintyNotice(tt.confidence)
		if !strings.Contains(got, "Confidence only "+tt.want+".") {
			t.Errorf("UncertaintyNotice(%v) = %q, want %s", tt.confidence, got, tt.want)
		}
		// the review notification formats the same value with %.0f
		if slack := fmt.Sprintf("%.0f%%", tt.confidence*100); slack != tt.want {
			t.Errorf("%%.0f of %v = %s, want %s", tt.confidence, slack, tt.want)
		}
	}
}

func TestRender_UnknownClassFallback(t *testing.T) {
	t.Parallel()

	text, known := render(scenarioVitals, Class("critical"), 0.9)
	if known {
		t.Error("known = true for undefined class")
	}
	if text != fallbackExplanation {
		t.Errorf("text = %q, want fallback", text)
	}

	flagged := Render(scenarioVitals, Class("critical"), 0.4)
	if !strings.HasPrefix(flagged, fallbackExplanation) || !strings.Contains(flagged, "40%") {
		t.Errorf("flagged fallback = %q", flagged)
	}
}

func TestRender_Deterministic(t *testing.T) {
	t.Parallel()

	a := Render(scenarioVitals, ClassEmergent, 0.61)
	b := Render(scenarioVitals, ClassEmergent, 0.61)
	if a != b {
		t.Errorf("Render not deterministic: %q vs %q", a, b)
	}
}
