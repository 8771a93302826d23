package history

import (
	"reflect"
	"testing"

	"github.com/example/dermascan/internal/classifier"
)

func entry(id, class, desc, risk, ts string, conf float64) classifier.Prediction {
	return classifier.Prediction{
		PredictionID: id,
		Timestamp:    ts,
		Result: classifier.Result{
			ClassName:   class,
			Description: desc,
			RiskLevel:   risk,
			Confidence:  conf,
		},
	}
}

func fixture() []classifier.Prediction {
	return []classifier.Prediction{
		entry("aaa-1", "Melanoma", "Serious form of skin cancer", "Malignant", "2024-03-03T09:00:00Z", 0.91),
		entry("bbb-2", "Melanocytic nevi", "Common moles, usually harmless", "Benign", "2024-03-01T09:00:00Z", 0.66),
		entry("ccc-3", "Dermatofibroma", "Common benign skin tumor", "Benign", "2024-03-02T09:00:00Z", 0.74),
		entry("ddd-4", "Basal cell carcinoma", "Skin cancer in basal cells", "Malignant", "2024-03-04T09:00:00Z", 0.58),
	}
}

func ids(entries []classifier.Prediction) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.PredictionID
	}
	return out
}

func TestFilterByTextMatchesNameDescriptionAndID(t *testing.T) {
	entries := fixture()

	byName := Filter(entries, Query{Text: "melan"})
	if got := ids(byName); !reflect.DeepEqual(got, []string{"aaa-1", "bbb-2"}) {
		t.Fatalf("name match returned %v", got)
	}

	byDesc := Filter(entries, Query{Text: "harmless"})
	if got := ids(byDesc); !reflect.DeepEqual(got, []string{"bbb-2"}) {
		t.Fatalf("description match returned %v", got)
	}

	byID := Filter(entries, Query{Text: "CCC"})
	if got := ids(byID); !reflect.DeepEqual(got, []string{"ccc-3"}) {
		t.Fatalf("id match should be case-insensitive, returned %v", got)
	}
}

func TestFilterByRiskUsesNormalizedLevels(t *testing.T) {
	entries := fixture()

	high := Filter(entries, Query{Risk: "high"})
	if got := ids(high); !reflect.DeepEqual(got, []string{"aaa-1", "ddd-4"}) {
		t.Fatalf("high filter returned %v", got)
	}

	low := Filter(entries, Query{Risk: "low"})
	if got := ids(low); !reflect.DeepEqual(got, []string{"bbb-2", "ccc-3"}) {
		t.Fatalf("low filter returned %v", got)
	}

	all := Filter(entries, Query{Risk: RiskAll})
	if len(all) != len(entries) {
		t.Fatalf("all filter dropped entries: %v", ids(all))
	}
}

func TestSortComparators(t *testing.T) {
	entries := fixture()
	Sort(entries, SortNewest)
	if got := ids(entries); !reflect.DeepEqual(got, []string{"ddd-4", "aaa-1", "ccc-3", "bbb-2"}) {
		t.Fatalf("newest sort returned %v", got)
	}

	entries = fixture()
	Sort(entries, SortName)
	if got := ids(entries); !reflect.DeepEqual(got, []string{"ddd-4", "ccc-3", "bbb-2", "aaa-1"}) {
		t.Fatalf("name sort returned %v", got)
	}

	entries = fixture()
	Sort(entries, SortConfidence)
	if got := ids(entries); !reflect.DeepEqual(got, []string{"aaa-1", "ccc-3", "bbb-2", "ddd-4"}) {
		t.Fatalf("confidence sort returned %v", got)
	}
}

// Filtering then sorting must select the same entries as sorting then
// filtering, for every query/risk combination over the fixture.
func TestFilterCommutesWithSort(t *testing.T) {
	queries := []string{"", "melan", "cancer", "zzz"}
	risks := []string{RiskAll, "low", "medium", "high"}
	keys := []SortKey{SortNewest, SortName, SortConfidence}

	for _, text := range queries {
		for _, risk := range risks {
			for _, key := range keys {
				q := Query{Text: text, Risk: risk}

				filteredFirst := Filter(fixture(), q)
				Sort(filteredFirst, key)

				sortedFirst := fixture()
				Sort(sortedFirst, key)
				sortedThenFiltered := Filter(sortedFirst, q)

				if !sameSet(ids(filteredFirst), ids(sortedThenFiltered)) {
					t.Fatalf("visible set differs for q=%q risk=%q key=%s: %v vs %v",
						text, risk, key, ids(filteredFirst), ids(sortedThenFiltered))
				}
			}
		}
	}
}

func TestApplyEmptyInput(t *testing.T) {
	out := Apply(nil, Query{Text: "melanoma"}, SortNewest)
	if len(out) != 0 {
		t.Fatalf("expected empty result, got %v", out)
	}
}

func TestParseSortKeyDefaultsToNewest(t *testing.T) {
	if key := ParseSortKey("unknown"); key != SortNewest {
		t.Fatalf("expected default newest, got %s", key)
	}
	if key := ParseSortKey("confidence"); key != SortConfidence {
		t.Fatalf("expected confidence, got %s", key)
	}
}

func sameSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	seen := make(map[string]int, len(a))
	for _, v := range a {
		seen[v]++
	}
	for _, v := range b {
		seen[v]--
		if seen[v] < 0 {
			return false
		}
	}
	return true
}
