package registry

import (
	"log/slog"
	"regexp"
	"sync"
	"time"
)

var symbolPattern = regexp.MustCompile(`^[A-Za-z0-9.]{1,10}$`)

// ValidSymbol reports whether s looks like a ticker symbol.
func ValidSymbol(s string) bool {
	return symbolPattern.MatchString(s)
}

// InterestRegistry tracks which symbols each user is actively viewing right
// now, as opposed to merely holding in a watchlist. Entries expire so an
// abandoned tab stops promoting its symbols to priority.
type InterestRegistry struct {
	mu     sync.Mutex
	views  map[string]map[string]time.Time // user id -> symbol -> last marked
	ttl    time.Duration
	logger *slog.Logger
	now    func() time.Time
}

func NewInterestRegistry(ttl time.Duration, logger *slog.Logger) *InterestRegistry {
	if ttl <= 0 {
		ttl = 60 * time.Second
	}
	return &InterestRegistry{
		views:  make(map[string]map[string]time.Time),
		ttl:    ttl,
		logger: logger,
		now:    time.Now,
	}
}

// MarkViewed records that the user is looking at the symbol. Malformed
// symbols are dropped, not errored: they come straight off the wire.
func (r *InterestRegistry) MarkViewed(userID, symbol string) {
	if userID == "" {
		return
	}
	if !ValidSymbol(symbol) {
		r.logger.Warn("rejecting invalid symbol for view tracking", "user_id", userID, "symbol", symbol)
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.views[userID] == nil {
		r.views[userID] = make(map[string]time.Time)
	}
	r.views[userID][symbol] = r.now()
}

// MarkViewedAll records a batch of symbols, e.g. from a search-results view.
func (r *InterestRegistry) MarkViewedAll(userID string, symbols []string) {
	for _, s := range symbols {
		r.MarkViewed(userID, s)
	}
}

func (r *InterestRegistry) UnmarkViewed(userID, symbol string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if set, ok := r.views[userID]; ok {
		delete(set, symbol)
		if len(set) == 0 {
			delete(r.views, userID)
		}
	}
}

// PrioritySymbols returns the user's non-expired viewed symbols. Expired
// entries are excluded even if a sweep has not removed them yet.
func (r *InterestRegistry) PrioritySymbols(userID string) map[string]bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := r.now().Add(-r.ttl)
	out := make(map[string]bool)
	for sym, at := range r.views[userID] {
		if at.After(cutoff) {
			out[sym] = true
		}
	}
	return out
}

// SweepExpired removes entries older than the ttl across all users.
func (r *InterestRegistry) SweepExpired(now time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := now.Add(-r.ttl)
	removed := 0
	for userID, set := range r.views {
		for sym, at := range set {
			if !at.After(cutoff) {
				delete(set, sym)
				removed++
			}
		}
		if len(set) == 0 {
			delete(r.views, userID)
		}
	}
	return removed
}

// DropUser tears down the whole interest set, called when the user's last
// connection goes away.
func (r *InterestRegistry) DropUser(userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.views, userID)
}
