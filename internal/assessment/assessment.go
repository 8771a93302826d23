// Package assessment holds the pure presentation rules for prediction
// results: risk normalization, recommendation derivation, and display
// formatting. Nothing here touches the network or mutates state.
package assessment

import (
	"strings"
	"time"

	"github.com/example/dermascan/internal/classifier"
)

// RiskLevel is the canonical coarse severity bucket used everywhere inside
// the dashboard. The classifier service has returned both benign/malignant
// and low/medium/high vocabularies over time; NormalizeRisk converts at the
// boundary.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// NormalizeRisk maps a raw service risk label onto the canonical set.
// Unrecognized labels land on medium rather than a default branch per page.
func NormalizeRisk(raw string) RiskLevel {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "low", "benign":
		return RiskLow
	case "high", "malignant":
		return RiskHigh
	case "medium":
		return RiskMedium
	default:
		return RiskMedium
	}
}

// Color returns the CSS color class for a risk level.
func (r RiskLevel) Color() string {
	switch r {
	case RiskLow:
		return "success"
	case RiskHigh:
		return "danger"
	default:
		return "warning"
	}
}

// Icon returns the icon name for a risk level.
func (r RiskLevel) Icon() string {
	switch r {
	case RiskLow:
		return "check-circle"
	case RiskHigh:
		return "alert-octagon"
	default:
		return "alert-triangle"
	}
}

// Recommendation is one next-step entry shown under a result.
type Recommendation struct {
	Severity string `json:"severity"`
	Title    string `json:"title"`
	Detail   string `json:"detail"`
}

const (
	SeverityUrgent    = "urgent"
	SeverityImportant = "important"
	SeverityMonitor   = "monitor"
)

// Recommendations derives the fixed set of next-step entries from the
// malignancy flag and confidence. The rules are not configurable.
func Recommendations(isMalignant bool, confidence float64) []Recommendation {
	var recs []Recommendation

	if isMalignant || confidence > 0.7 {
		recs = append(recs, Recommendation{
			Severity: SeverityUrgent,
			Title:    "Consult a Dermatologist",
			Detail:   "Schedule an appointment with a skin specialist as soon as possible for a professional evaluation.",
		})
		if isMalignant {
			recs = append(recs, Recommendation{
				Severity: SeverityImportant,
				Title:    "Biopsy May Be Needed",
				Detail:   "A tissue biopsy may be required to confirm the diagnosis. Your doctor will advise.",
			})
		}
	} else {
		recs = append(recs, Recommendation{
			Severity: SeverityImportant,
			Title:    "Monitor Regularly",
			Detail:   "Keep an eye on the lesion and consult a doctor if you notice any changes in size, shape, or color.",
		})
	}

	recs = append(recs, Recommendation{
		Severity: SeverityMonitor,
		Title:    "Follow the ABCDE Rule",
		Detail:   "Watch for Asymmetry, Border irregularity, Color variation, Diameter over 6mm, and Evolution over time.",
	})

	return recs
}

const maxAlternatives = 4

// Alternatives returns the non-top classes in service order, truncated.
func Alternatives(preds []classifier.ClassPrediction) []classifier.ClassPrediction {
	if len(preds) <= 1 {
		return nil
	}
	rest := preds[1:]
	if len(rest) > maxAlternatives {
		rest = rest[:maxAlternatives]
	}
	out := make([]classifier.ClassPrediction, len(rest))
	copy(out, rest)
	return out
}

// timestampLayouts covers the formats the service has emitted: RFC3339,
// Python isoformat with microseconds, and SQLite's default column format.
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// ParseTimestamp attempts to parse a service timestamp.
func ParseTimestamp(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// FormatTimestamp renders a service timestamp for display. Unparseable
// values are passed through unchanged.
func FormatTimestamp(value string) string {
	t, ok := ParseTimestamp(value)
	if !ok {
		return value
	}
	return t.Format("Jan 2, 2006 15:04")
}
