// Package history implements the filtering and ordering applied to the
// prediction list on the history page. The full list is refetched on every
// visit; everything here operates on the in-memory copy.
package history

import (
	"sort"
	"strings"

	"github.com/example/dermascan/internal/assessment"
	"github.com/example/dermascan/internal/classifier"
)

// RiskAll disables risk filtering.
const RiskAll = "all"

// Query combines a free-text search with an exact risk-level filter.
type Query struct {
	Text string
	Risk string // "all", "low", "medium" or "high"
}

// SortKey selects the comparator applied to the visible set.
type SortKey string

const (
	SortNewest     SortKey = "newest"     // timestamp descending (default)
	SortName       SortKey = "name"       // class name ascending
	SortConfidence SortKey = "confidence" // confidence descending
)

// ParseSortKey maps a request parameter onto a known sort key.
func ParseSortKey(value string) SortKey {
	switch SortKey(value) {
	case SortName:
		return SortName
	case SortConfidence:
		return SortConfidence
	default:
		return SortNewest
	}
}

// Matches reports whether a single entry satisfies the query. The text
// query is a case-insensitive substring over class name, description and
// prediction id; the risk filter is an exact match on the normalized level.
func Matches(p classifier.Prediction, q Query) bool {
	if q.Risk != "" && q.Risk != RiskAll {
		if string(assessment.NormalizeRisk(p.Result.RiskLevel)) != q.Risk {
			return false
		}
	}
	text := strings.ToLower(strings.TrimSpace(q.Text))
	if text == "" {
		return true
	}
	return strings.Contains(strings.ToLower(p.Result.ClassName), text) ||
		strings.Contains(strings.ToLower(p.Result.Description), text) ||
		strings.Contains(strings.ToLower(p.PredictionID), text)
}

// Filter returns the entries matching the query, preserving input order.
func Filter(entries []classifier.Prediction, q Query) []classifier.Prediction {
	out := make([]classifier.Prediction, 0, len(entries))
	for _, p := range entries {
		if Matches(p, q) {
			out = append(out, p)
		}
	}
	return out
}

// Sort orders entries in place according to the key.
func Sort(entries []classifier.Prediction, key SortKey) {
	switch key {
	case SortName:
		sort.SliceStable(entries, func(i, j int) bool {
			return strings.ToLower(entries[i].Result.ClassName) < strings.ToLower(entries[j].Result.ClassName)
		})
	case SortConfidence:
		sort.SliceStable(entries, func(i, j int) bool {
			return entries[i].Result.Confidence > entries[j].Result.Confidence
		})
	default:
		sort.SliceStable(entries, func(i, j int) bool {
			return newerThan(entries[i].Timestamp, entries[j].Timestamp)
		})
	}
}

// Apply filters then sorts, returning a new slice.
func Apply(entries []classifier.Prediction, q Query, key SortKey) []classifier.Prediction {
	out := Filter(entries, q)
	Sort(out, key)
	return out
}

func newerThan(a, b string) bool {
	ta, okA := assessment.ParseTimestamp(a)
	tb, okB := assessment.ParseTimestamp(b)
	if okA && okB {
		return ta.After(tb)
	}
	if okA != okB {
		return okA
	}
	return a > b
}
