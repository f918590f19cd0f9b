package chat

import (
	"sync"
)

// Registry indexes live connections by listing and user. A (listing, user)
// key exists only while it has at least one connection, and a listing key
// only while it has at least one user.
type Registry struct {
	mu    sync.RWMutex
	conns map[int64]map[int64][]*Connection
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		conns: make(map[int64]map[int64][]*Connection),
	}
}

// Register adds conn to the (listing, user) bucket, creating it if needed.
func (r *Registry) Register(listingID, userID int64, conn *Connection) {
	if conn == nil {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	users, ok := r.conns[listingID]
	if !ok {
		users = make(map[int64][]*Connection)
		r.conns[listingID] = users
	}
	users[userID] = append(users[userID], conn)
}

// Remove deletes conn from its bucket and drops buckets left empty.
// Removing an absent connection is a no-op.
func (r *Registry) Remove(listingID, userID int64, conn *Connection) {
	if conn == nil {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	users, ok := r.conns[listingID]
	if !ok {
		return
	}
	bucket, ok := users[userID]
	if !ok {
		return
	}

	for i, c := range bucket {
		if c != conn {
			continue
		}
		// Build a new slice so snapshots handed out earlier stay intact.
		next := make([]*Connection, 0, len(bucket)-1)
		next = append(next, bucket[:i]...)
		next = append(next, bucket[i+1:]...)
		if len(next) == 0 {
			delete(users, userID)
		} else {
			users[userID] = next
		}
		break
	}

	if len(users) == 0 {
		delete(r.conns, listingID)
	}
}

// ConnectionsFor returns a copy of the (listing, user) bucket, or nil.
func (r *Registry) ConnectionsFor(listingID, userID int64) []*Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()

	bucket := r.conns[listingID][userID]
	if len(bucket) == 0 {
		return nil
	}
	out := make([]*Connection, len(bucket))
	copy(out, bucket)
	return out
}

// Has reports whether the (listing, user) key is present.
func (r *Registry) Has(listingID, userID int64) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.conns[listingID][userID]
	return ok
}

// Stats returns the number of listings with live connections and the total
// number of connections.
func (r *Registry) Stats() (listings, connections int) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, users := range r.conns {
		for _, bucket := range users {
			connections += len(bucket)
		}
	}
	return len(r.conns), connections
}

// CloseAll empties the registry and closes every connection with the given
// status. Used on shutdown.
func (r *Registry) CloseAll(code int, reason string) int {
	r.mu.Lock()
	var all []*Connection
	for _, users := range r.conns {
		for _, bucket := range users {
			all = append(all, bucket...)
		}
	}
	r.conns = make(map[int64]map[int64][]*Connection)
	r.mu.Unlock()

	for _, c := range all {
		c.CloseWithStatus(code, reason)
	}
	return len(all)
}
