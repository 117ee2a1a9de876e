package registry

import (
	"log/slog"
	"sort"
	"sync"
	"time"
)

type connection struct {
	userID       string
	lastActivity time.Time
}

// ConnectionRegistry tracks active subscriber connections. A connection id
// appears at most once; a user may hold several connections (multi-tab).
// When the registry grows past its cap the oldest connections are evicted,
// cascading teardown of the owning user's interest set when it was the last
// one.
type ConnectionRegistry struct {
	mu     sync.Mutex
	conns  map[string]*connection
	cap    int
	logger *slog.Logger
	now    func() time.Time

	// onUserGone fires outside the common path but inside the lock; it must
	// not block or call back into the registry.
	onUserGone func(userID string)
}

func NewConnectionRegistry(maxConns int, logger *slog.Logger, onUserGone func(userID string)) *ConnectionRegistry {
	if maxConns <= 0 {
		maxConns = 500
	}
	return &ConnectionRegistry{
		conns:      make(map[string]*connection),
		cap:        maxConns,
		logger:     logger,
		now:        time.Now,
		onUserGone: onUserGone,
	}
}

// OnConnect registers a new connection and enforces the capacity cap by
// evicting the oldest connections.
func (r *ConnectionRegistry) OnConnect(connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.conns[connID] = &connection{lastActivity: r.now()}

	if len(r.conns) <= r.cap {
		return
	}

	type aged struct {
		id string
		at time.Time
	}
	all := make([]aged, 0, len(r.conns))
	for id, c := range r.conns {
		if id == connID {
			continue
		}
		all = append(all, aged{id: id, at: c.lastActivity})
	}
	sort.Slice(all, func(i, j int) bool { return all[i].at.Before(all[j].at) })

	for i := 0; len(r.conns) > r.cap && i < len(all); i++ {
		r.logger.Warn("evicting oldest connection, registry at capacity", "conn_id", all[i].id)
		r.removeLocked(all[i].id)
	}
}

// OnIdentify attaches a user id to an existing connection.
func (r *ConnectionRegistry) OnIdentify(connID, userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.conns[connID]
	if !ok {
		return
	}
	c.userID = userID
	c.lastActivity = r.now()
}

func (r *ConnectionRegistry) OnDisconnect(connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.removeLocked(connID)
}

// Touch refreshes the activity timestamp for the idle sweep.
func (r *ConnectionRegistry) Touch(connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.conns[connID]; ok {
		c.lastActivity = r.now()
	}
}

// SweepIdle removes connections idle longer than the timeout, with the same
// cascade as eviction.
func (r *ConnectionRegistry) SweepIdle(now time.Time, timeout time.Duration) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := now.Add(-timeout)
	var stale []string
	for id, c := range r.conns {
		if !c.lastActivity.After(cutoff) {
			stale = append(stale, id)
		}
	}
	for _, id := range stale {
		r.logger.Info("removing idle connection", "conn_id", id)
		r.removeLocked(id)
	}
	return len(stale)
}

// UserIDs returns a snapshot of the distinct identified users.
func (r *ConnectionRegistry) UserIDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	seen := make(map[string]bool)
	var out []string
	for _, c := range r.conns {
		if c.userID != "" && !seen[c.userID] {
			seen[c.userID] = true
			out = append(out, c.userID)
		}
	}
	return out
}

func (r *ConnectionRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.conns)
}

func (r *ConnectionRegistry) removeLocked(connID string) {
	c, ok := r.conns[connID]
	if !ok {
		return
	}
	delete(r.conns, connID)

	if c.userID == "" {
		return
	}
	for _, other := range r.conns {
		if other.userID == c.userID {
			return
		}
	}
	// Last connection for this user.
	if r.onUserGone != nil {
		r.onUserGone(c.userID)
	}
}
