package registry

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.Default()
}

func TestInterestRegistry_MarkThenUnmarkLeavesNoResidue(t *testing.T) {
	r := NewInterestRegistry(time.Minute, testLogger())

	r.MarkViewed("u1", "AAPL")
	require.True(t, r.PrioritySymbols("u1")["AAPL"])

	r.UnmarkViewed("u1", "AAPL")
	require.Empty(t, r.PrioritySymbols("u1"))
}

func TestInterestRegistry_RejectsInvalidSymbols(t *testing.T) {
	r := NewInterestRegistry(time.Minute, testLogger())

	r.MarkViewed("u1", "AAPL;DROP")
	r.MarkViewed("u1", "WAYTOOLONGSYMBOL")
	r.MarkViewed("u1", "")

	require.Empty(t, r.PrioritySymbols("u1"))
}

func TestInterestRegistry_ExpiredEntriesExcludedBeforeSweep(t *testing.T) {
	now := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)
	r := NewInterestRegistry(60*time.Second, testLogger())
	r.now = func() time.Time { return now }

	r.MarkViewed("u1", "AAPL")

	now = now.Add(61 * time.Second)
	r.MarkViewed("u1", "MSFT")

	// AAPL is logically stale even though no sweep has run yet.
	priority := r.PrioritySymbols("u1")
	require.False(t, priority["AAPL"])
	require.True(t, priority["MSFT"])
}

func TestInterestRegistry_SweepExpired(t *testing.T) {
	now := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)
	r := NewInterestRegistry(60*time.Second, testLogger())
	r.now = func() time.Time { return now }

	r.MarkViewed("u1", "AAPL")
	r.MarkViewed("u2", "TSLA")

	removed := r.SweepExpired(now.Add(2 * time.Minute))
	require.Equal(t, 2, removed)
	require.Empty(t, r.PrioritySymbols("u1"))
	require.Empty(t, r.PrioritySymbols("u2"))
}

func TestInterestRegistry_DropUser(t *testing.T) {
	r := NewInterestRegistry(time.Minute, testLogger())

	r.MarkViewedAll("u1", []string{"AAPL", "MSFT"})
	r.DropUser("u1")

	require.Empty(t, r.PrioritySymbols("u1"))
}

func TestValidSymbol(t *testing.T) {
	require.True(t, ValidSymbol("AAPL"))
	require.True(t, ValidSymbol("BRK.B"))
	require.False(t, ValidSymbol("TOOLONGTICKER"))
	require.False(t, ValidSymbol("BAD SYM"))
	require.False(t, ValidSymbol(""))
}
