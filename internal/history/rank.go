package history

import (
	"math"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/sahilm/fuzzy"

	"pkt.systems/glass/schema"
)

const (
	// BatchSize is the number of candidates matched between cancellation checks.
	BatchSize = 256
	// OverFetch multiplies max results before re-ranking.
	OverFetch = 3

	recencyWeight   = 0.3
	frequencyWeight = 0.2
	prefixBonus     = 0.5
)

type scored struct {
	index   int
	quality float64
}

// Rank searches entries for query and returns at most maxResults matches ordered by
// final score. An empty query or maxResults <= 0 yields nil. When cancel is set
// between batches the search stops and returns nil.
func Rank(entries []schema.HistoryEntry, query string, maxResults int, now time.Time, cancel *atomic.Bool) []schema.HistoryMatch {
	if strings.TrimSpace(query) == "" || maxResults <= 0 || len(entries) == 0 {
		return nil
	}
	candidates := make([]string, len(entries))
	for i, entry := range entries {
		candidates[i] = entry.Title + " " + entry.URL
	}

	ideal := idealScore(query)
	var hits []scored
	for start := 0; start < len(candidates); start += BatchSize {
		if cancel != nil && cancel.Load() {
			return nil
		}
		end := min(start+BatchSize, len(candidates))
		for _, m := range fuzzy.FindNoSort(query, candidates[start:end]) {
			hits = append(hits, scored{index: start + m.Index, quality: matchQuality(m, ideal)})
		}
	}
	if len(hits) == 0 {
		return nil
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].quality > hits[j].quality })
	if limit := maxResults * OverFetch; len(hits) > limit {
		hits = hits[:limit]
	}

	nowMs := now.UnixMilli()
	lowerQuery := strings.ToLower(query)
	results := make([]schema.HistoryMatch, 0, len(hits))
	for _, hit := range hits {
		entry := entries[hit.index]
		score := hit.quality +
			RecencyBonus(nowMs, entry.LastVisitedMs) +
			FrequencyBonus(entry.VisitCount) +
			PrefixBonus(entry.URL, lowerQuery)
		results = append(results, schema.HistoryMatch{URL: entry.URL, Title: entry.Title, Score: score})
	}
	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if len(results) > maxResults {
		results = results[:maxResults]
	}
	return results
}

// idealScore is the matcher score of query against itself, the score of a
// candidate that spells the query out in one run.
func idealScore(query string) int {
	matches := fuzzy.FindNoSort(query, []string{query})
	if len(matches) == 0 || matches[0].Score <= 0 {
		return 1
	}
	return matches[0].Score
}

// matchQuality scores m in [0,1] against ideal. The matcher's per-character
// penalty for unmatched text is taken back out so long titles and URLs are
// not punished for their length. The result does not depend on the other
// candidates.
func matchQuality(m fuzzy.Match, ideal int) float64 {
	adjusted := m.Score + len(m.Str) - len(m.MatchedIndexes)
	return min(max(float64(adjusted)/float64(ideal), 0), 1)
}

// RecencyBonus is 0.3/(1+age_hours/24). Visits in the future count as now.
func RecencyBonus(nowMs, lastVisitedMs int64) float64 {
	age := nowMs - lastVisitedMs
	if age < 0 {
		age = 0
	}
	ageHours := float64(age) / float64(time.Hour/time.Millisecond)
	return recencyWeight / (1 + ageHours/24)
}

// FrequencyBonus is 0.2*ln(1+n)/ln(11).
func FrequencyBonus(visitCount uint32) float64 {
	return frequencyWeight * math.Log1p(float64(visitCount)) / math.Log1p(10)
}

// PrefixBonus is 0.5 when the URL, with an optional http:// or https://
// stripped, starts with the lower-cased query.
func PrefixBonus(url, lowerQuery string) float64 {
	lower := strings.ToLower(url)
	if strings.HasPrefix(lower, lowerQuery) {
		return prefixBonus
	}
	for _, scheme := range []string{"https://", "http://"} {
		if rest, ok := strings.CutPrefix(lower, scheme); ok && strings.HasPrefix(rest, lowerQuery) {
			return prefixBonus
		}
	}
	return 0
}
