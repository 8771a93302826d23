package assessment

import (
	"testing"

	"github.com/example/dermascan/internal/classifier"
)

func TestRecommendationsMalignantHighConfidence(t *testing.T) {
	recs := Recommendations(true, 0.9)

	if len(recs) != 3 {
		t.Fatalf("expected 3 recommendations, got %d", len(recs))
	}
	if recs[0].Severity != SeverityUrgent {
		t.Fatalf("expected first entry to be urgent, got %s", recs[0].Severity)
	}
	if recs[1].Severity != SeverityImportant || recs[1].Title != "Biopsy May Be Needed" {
		t.Fatalf("expected biopsy entry second, got %+v", recs[1])
	}
	if recs[2].Title != "Follow the ABCDE Rule" {
		t.Fatalf("expected constant ABCDE entry last, got %+v", recs[2])
	}
}

func TestRecommendationsBenignLowConfidence(t *testing.T) {
	recs := Recommendations(false, 0.2)

	if len(recs) != 2 {
		t.Fatalf("expected 2 recommendations, got %d", len(recs))
	}
	if recs[0].Severity != SeverityImportant || recs[0].Title != "Monitor Regularly" {
		t.Fatalf("expected monitor entry first, got %+v", recs[0])
	}
	if recs[1].Title != "Follow the ABCDE Rule" {
		t.Fatalf("expected constant ABCDE entry last, got %+v", recs[1])
	}
}

func TestRecommendationsBenignHighConfidence(t *testing.T) {
	recs := Recommendations(false, 0.8)

	if len(recs) != 2 {
		t.Fatalf("expected 2 recommendations, got %d", len(recs))
	}
	if recs[0].Severity != SeverityUrgent {
		t.Fatalf("expected urgent consult for confidence above threshold, got %+v", recs[0])
	}
}

func TestRecommendationsThresholdIsExclusive(t *testing.T) {
	recs := Recommendations(false, 0.7)
	if recs[0].Severity != SeverityImportant {
		t.Fatalf("confidence of exactly 0.7 must not trigger urgent, got %+v", recs[0])
	}
}

func TestNormalizeRisk(t *testing.T) {
	cases := []struct {
		raw  string
		want RiskLevel
	}{
		{"Malignant", RiskHigh},
		{"malignant", RiskHigh},
		{"Benign", RiskLow},
		{"low", RiskLow},
		{"medium", RiskMedium},
		{"HIGH", RiskHigh},
		{"  benign ", RiskLow},
		{"something-new", RiskMedium},
		{"", RiskMedium},
	}
	for _, tc := range cases {
		if got := NormalizeRisk(tc.raw); got != tc.want {
			t.Errorf("NormalizeRisk(%q) = %s, want %s", tc.raw, got, tc.want)
		}
	}
}

func TestRiskRendering(t *testing.T) {
	if RiskLow.Color() != "success" || RiskLow.Icon() != "check-circle" {
		t.Fatalf("unexpected low rendering: %s/%s", RiskLow.Color(), RiskLow.Icon())
	}
	if RiskHigh.Color() != "danger" || RiskHigh.Icon() != "alert-octagon" {
		t.Fatalf("unexpected high rendering: %s/%s", RiskHigh.Color(), RiskHigh.Icon())
	}
	if RiskMedium.Color() != "warning" {
		t.Fatalf("unexpected medium color: %s", RiskMedium.Color())
	}
}

func TestAlternativesSkipsTopAndTruncates(t *testing.T) {
	preds := []classifier.ClassPrediction{
		{ClassName: "Melanoma", Confidence: 0.6},
		{ClassName: "Melanocytic nevi", Confidence: 0.2},
		{ClassName: "Basal cell carcinoma", Confidence: 0.1},
		{ClassName: "Dermatofibroma", Confidence: 0.05},
		{ClassName: "Vascular lesions", Confidence: 0.03},
		{ClassName: "Actinic keratoses", Confidence: 0.02},
	}

	alts := Alternatives(preds)
	if len(alts) != 4 {
		t.Fatalf("expected 4 alternatives, got %d", len(alts))
	}
	if alts[0].ClassName != "Melanocytic nevi" {
		t.Fatalf("expected service order preserved, got %s first", alts[0].ClassName)
	}
	for _, alt := range alts {
		if alt.ClassName == "Melanoma" {
			t.Fatal("top class must not appear among alternatives")
		}
	}
}

func TestAlternativesEmptyInput(t *testing.T) {
	if alts := Alternatives(nil); alts != nil {
		t.Fatalf("expected nil for empty input, got %v", alts)
	}
	if alts := Alternatives([]classifier.ClassPrediction{{ClassName: "only"}}); alts != nil {
		t.Fatalf("expected nil for single class, got %v", alts)
	}
}

func TestParseTimestampFormats(t *testing.T) {
	cases := []string{
		"2024-03-01T10:30:00Z",
		"2024-03-01T10:30:00.123456",
		"2024-03-01 10:30:00",
	}
	for _, value := range cases {
		if _, ok := ParseTimestamp(value); !ok {
			t.Errorf("ParseTimestamp(%q) failed", value)
		}
	}
	if _, ok := ParseTimestamp("not a timestamp"); ok {
		t.Error("expected parse failure for garbage input")
	}
}

func TestFormatTimestampPassesThroughUnparseable(t *testing.T) {
	if got := FormatTimestamp("garbage"); got != "garbage" {
		t.Fatalf("expected passthrough, got %q", got)
	}
	if got := FormatTimestamp("2024-03-01T10:30:00Z"); got != "Mar 1, 2024 10:30" {
		t.Fatalf("unexpected formatting: %q", got)
	}
}
