// Package packs draws the card a pack yields, weighted by the pack's rarity percentages.
package packs

import (
	"fmt"
	"math/rand/v2"

	"ifcoins/internal/models"
)

// Drawer picks cards for pack openings.
type Drawer struct {
	intn func(n int) int
}

// NewDrawer returns a Drawer backed by the global pseudo-random source.
func NewDrawer() *Drawer {
	return &Drawer{intn: rand.IntN}
}

// NewDrawerWith returns a Drawer using intn, which must return a value in [0, n).
func NewDrawerWith(intn func(n int) int) *Drawer {
	return &Drawer{intn: intn}
}

// ValidateProbabilities checks that every weight is a known rarity, non-negative,
// and that the weights sum to 100.
func ValidateProbabilities(p map[models.Rarity]int) error {
	total := 0
	for r, w := range p {
		if !r.Valid() {
			return fmt.Errorf("unknown rarity %q", r)
		}
		if w < 0 {
			return fmt.Errorf("probability of %s must be >= 0", r)
		}
		total += w
	}
	if total != 100 {
		return fmt.Errorf("probabilities must sum to 100, got %d", total)
	}
	return nil
}

// Rarity rolls a rarity according to the weights, walking from common to mythic.
func (d *Drawer) Rarity(p map[models.Rarity]int) models.Rarity {
	roll := d.intn(100)
	acc := 0
	for _, r := range models.Rarities {
		acc += p[r]
		if roll < acc {
			return r
		}
	}
	return models.RarityCommon
}

// Draw implements models.DrawFunc. It rolls a rarity and picks uniformly among
// candidates of that rarity. When none match, more common rarities are tried
// first, nearest first, then rarer ones. Only acquirable candidates are considered.
func (d *Drawer) Draw(pack models.Pack, candidates []models.Card) (models.Card, error) {
	byRarity := make(map[models.Rarity][]models.Card, len(models.Rarities))
	for _, c := range candidates {
		if c.Acquirable() {
			byRarity[c.Rarity] = append(byRarity[c.Rarity], c)
		}
	}

	for _, r := range fallbackOrder(d.Rarity(pack.Probabilities)) {
		if pool := byRarity[r]; len(pool) > 0 {
			return pool[d.intn(len(pool))], nil
		}
	}
	return models.Card{}, models.ErrOutOfStock
}

func fallbackOrder(r models.Rarity) []models.Rarity {
	idx := 0
	for i, v := range models.Rarities {
		if v == r {
			idx = i
		}
	}
	order := make([]models.Rarity, 0, len(models.Rarities))
	for i := idx; i >= 0; i-- {
		order = append(order, models.Rarities[i])
	}
	for i := idx + 1; i < len(models.Rarities); i++ {
		order = append(order, models.Rarities[i])
	}
	return order
}
