// Package ranking builds the account leaderboards. The views are pure
// projections of account state and are recomputed on every request.
package ranking

import (
	"sort"

	"ifcoins/internal/models"
)

// DefaultLimit is the number of rows returned when the caller gives no usable limit.
const DefaultLimit = 50

// ByCoins ranks accounts by balance, richest first.
func ByCoins(accounts []models.Account, limit int) []models.RankingEntry {
	return rank(accounts, func(a models.Account) int64 { return a.Coins }, limit)
}

// ByCards ranks accounts by the total quantity of cards they own.
// totals maps account id to owned quantity; missing ids count as zero.
func ByCards(accounts []models.Account, totals map[string]int64, limit int) []models.RankingEntry {
	return rank(accounts, func(a models.Account) int64 { return totals[a.ID] }, limit)
}

func rank(accounts []models.Account, value func(models.Account) int64, limit int) []models.RankingEntry {
	if limit <= 0 {
		limit = DefaultLimit
	}

	ranked := make([]models.Account, len(accounts))
	copy(ranked, accounts)

	// Equal values keep account creation order, then id.
	sort.SliceStable(ranked, func(i, j int) bool {
		vi, vj := value(ranked[i]), value(ranked[j])
		if vi != vj {
			return vi > vj
		}
		if !ranked[i].CreatedAt.Equal(ranked[j].CreatedAt) {
			return ranked[i].CreatedAt.Before(ranked[j].CreatedAt)
		}
		return ranked[i].ID < ranked[j].ID
	})

	if len(ranked) > limit {
		ranked = ranked[:limit]
	}

	out := make([]models.RankingEntry, len(ranked))
	for i, a := range ranked {
		out[i] = models.RankingEntry{
			Position:  i + 1,
			AccountID: a.ID,
			Name:      a.Name,
			Class:     a.Class,
			Value:     value(a),
		}
	}
	return out
}
