package bonus

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ifcoins/internal/models"
)

func day(s string) time.Time {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		panic(err)
	}
	return t
}

func event(id, start, end string, mult string) models.Event {
	s, e, err := ParseWindow(start, end, time.UTC)
	if err != nil {
		panic(err)
	}
	return models.Event{ID: id, StartDate: s, EndDate: e, BonusMultiplier: decimal.RequireFromString(mult)}
}

func TestStatus(t *testing.T) {
	e := event("e1", "2024-06-01", "2024-06-07", "1.5")

	tests := []struct {
		now  time.Time
		want models.EventStatus
	}{
		{now: day("2024-05-31"), want: models.EventUpcoming},
		{now: day("2024-06-01"), want: models.EventActive},
		{now: day("2024-06-03"), want: models.EventActive},
		{now: day("2024-06-07").Add(23 * time.Hour), want: models.EventActive},
		{now: day("2024-06-08"), want: models.EventFinished},
	}
	for _, tt := range tests {
		t.Run(tt.now.Format(time.RFC3339), func(t *testing.T) {
			assert.Equal(t, tt.want, Status(e, tt.now))
		})
	}
}

func TestActiveMultiplier(t *testing.T) {
	now := day("2024-06-03")
	events := []models.Event{
		event("past", "2024-05-01", "2024-05-02", "5"),
		event("early", "2024-06-01", "2024-06-10", "1.5"),
		event("big", "2024-06-02", "2024-06-04", "2"),
		event("future", "2024-07-01", "2024-07-02", "3"),
	}

	m, ev := ActiveMultiplier(events, now, OverlapMax)
	require.NotNil(t, ev)
	assert.Equal(t, "big", ev.ID)
	assert.True(t, m.Equal(decimal.NewFromInt(2)))

	m, ev = ActiveMultiplier(events, now, OverlapFirst)
	require.NotNil(t, ev)
	assert.Equal(t, "early", ev.ID)
	assert.True(t, m.Equal(decimal.RequireFromString("1.5")))

	m, ev = ActiveMultiplier(events, day("2024-08-01"), OverlapMax)
	assert.Nil(t, ev)
	assert.True(t, m.Equal(One))

	assert.Len(t, Active(events, now), 2)
}

func TestApply(t *testing.T) {
	tests := []struct {
		amount int64
		mult   string
		want   int64
	}{
		{amount: 10, mult: "1", want: 10},
		{amount: 10, mult: "1.5", want: 15},
		{amount: 5, mult: "1.5", want: 8},
		{amount: 3, mult: "1.25", want: 4},
		{amount: 7, mult: "2", want: 14},
		{amount: 1, mult: "1.49", want: 1},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Apply(tt.amount, decimal.RequireFromString(tt.mult)), "%d x %s", tt.amount, tt.mult)
	}
}

func TestScope(t *testing.T) {
	assert.True(t, ScopeAll.Applies(false))
	assert.True(t, ScopeEvents.Applies(true))
	assert.False(t, ScopeEvents.Applies(false))
	assert.False(t, ScopeNone.Applies(true))

	s, err := ParseScope(" ALL ")
	require.NoError(t, err)
	assert.Equal(t, ScopeAll, s)
	_, err = ParseScope("weekends")
	assert.Error(t, err)

	o, err := ParseOverlap("first")
	require.NoError(t, err)
	assert.Equal(t, OverlapFirst, o)
	_, err = ParseOverlap("sum")
	assert.Error(t, err)
}

func TestParseWindow(t *testing.T) {
	s, e, err := ParseWindow("2024-06-01", "2024-06-07", time.UTC)
	require.NoError(t, err)
	assert.Equal(t, day("2024-06-01"), s)
	assert.Equal(t, day("2024-06-08").Add(-time.Nanosecond), e)

	s, e, err = ParseWindow("2024-06-01T10:00:00Z", "2024-06-01T12:00:00Z", time.UTC)
	require.NoError(t, err)
	assert.Equal(t, 2*time.Hour, e.Sub(s))

	_, _, err = ParseWindow("June 1st", "2024-06-07", time.UTC)
	assert.Error(t, err)
}
