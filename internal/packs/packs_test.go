package packs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ifcoins/internal/models"
)

var basic = map[models.Rarity]int{
	models.RarityCommon:    70,
	models.RarityRare:      25,
	models.RarityLegendary: 4,
	models.RarityMythic:    1,
}

// fixed returns the given values in order, each reduced modulo n.
func fixed(values ...int) func(int) int {
	i := 0
	return func(n int) int {
		v := values[i%len(values)]
		i++
		return v % n
	}
}

func card(id string, r models.Rarity) models.Card {
	return models.Card{ID: id, Rarity: r, Available: true}
}

func TestValidateProbabilities(t *testing.T) {
	assert.NoError(t, ValidateProbabilities(basic))
	assert.NoError(t, ValidateProbabilities(map[models.Rarity]int{models.RarityMythic: 100}))
	assert.Error(t, ValidateProbabilities(map[models.Rarity]int{models.RarityCommon: 99}))
	assert.Error(t, ValidateProbabilities(map[models.Rarity]int{models.RarityCommon: 110, models.RarityRare: -10}))
	assert.Error(t, ValidateProbabilities(map[models.Rarity]int{"shiny": 100}))
}

func TestRarityBoundaries(t *testing.T) {
	tests := []struct {
		roll int
		want models.Rarity
	}{
		{roll: 0, want: models.RarityCommon},
		{roll: 69, want: models.RarityCommon},
		{roll: 70, want: models.RarityRare},
		{roll: 94, want: models.RarityRare},
		{roll: 95, want: models.RarityLegendary},
		{roll: 98, want: models.RarityLegendary},
		{roll: 99, want: models.RarityMythic},
	}
	for _, tt := range tests {
		d := NewDrawerWith(fixed(tt.roll))
		assert.Equal(t, tt.want, d.Rarity(basic), "roll %d", tt.roll)
	}
}

func TestDraw(t *testing.T) {
	zero := int64(0)
	soldOut := card("sold-out", models.RarityRare)
	soldOut.CopiesAvailable = &zero
	hidden := card("hidden", models.RarityRare)
	hidden.Available = false

	candidates := []models.Card{
		card("c1", models.RarityCommon),
		card("c2", models.RarityCommon),
		soldOut,
		hidden,
		card("m1", models.RarityMythic),
	}
	pack := models.Pack{Probabilities: basic}

	t.Run("picks within rolled rarity", func(t *testing.T) {
		got, err := NewDrawerWith(fixed(10, 1)).Draw(pack, candidates)
		require.NoError(t, err)
		assert.Equal(t, "c2", got.ID)
	})

	t.Run("falls back to more common first", func(t *testing.T) {
		got, err := NewDrawerWith(fixed(80, 0)).Draw(pack, candidates)
		require.NoError(t, err)
		assert.Equal(t, "c1", got.ID)
	})

	t.Run("falls back to rarer when nothing more common", func(t *testing.T) {
		got, err := NewDrawerWith(fixed(10, 0)).Draw(pack, []models.Card{card("m1", models.RarityMythic)})
		require.NoError(t, err)
		assert.Equal(t, "m1", got.ID)
	})

	t.Run("nothing acquirable", func(t *testing.T) {
		_, err := NewDrawerWith(fixed(10)).Draw(pack, []models.Card{soldOut, hidden})
		assert.ErrorIs(t, err, models.ErrOutOfStock)
	})
}

func TestFallbackOrder(t *testing.T) {
	assert.Equal(t,
		[]models.Rarity{models.RarityLegendary, models.RarityRare, models.RarityCommon, models.RarityMythic},
		fallbackOrder(models.RarityLegendary))
	assert.Equal(t,
		[]models.Rarity{models.RarityCommon, models.RarityRare, models.RarityLegendary, models.RarityMythic},
		fallbackOrder(models.RarityCommon))
}
