package discovery

import (
	"slices"
	"strings"

	"github.com/aluiziolira/go-scrape-leads/models"
	"github.com/samber/lo"
)

// Merge deduplicates leads by lower-cased address keeping the first-seen
// record, moves high_value leads ahead of the rest without otherwise
// reordering, and truncates to limit when limit is positive.
func Merge(leads []models.Lead, limit int) []models.Lead {
	unique := lo.UniqBy(leads, func(l models.Lead) string {
		if l.Normalized != "" {
			return l.Normalized
		}
		return strings.ToLower(l.Email)
	})

	slices.SortStableFunc(unique, func(a, b models.Lead) int {
		return tierRank(a.Confidence) - tierRank(b.Confidence)
	})

	if limit > 0 && len(unique) > limit {
		unique = unique[:limit]
	}
	return unique
}

func tierRank(t models.Tier) int {
	if t == models.TierHighValue {
		return 0
	}
	return 1
}
