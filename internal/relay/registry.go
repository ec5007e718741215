package relay

// Entry pairs a user with the connection that announced it.
type Entry struct {
	UserID       string `json:"userId"`
	ConnectionID string `json:"connectionId"`
}

// Registry holds presence entries in announce order.
// A user is present at most once; a connection is bound to the first user it announced.
// Registry is not safe for concurrent use; Relay serializes access to it.
type Registry struct {
	entries []Entry
}

func NewRegistry() *Registry {
	return &Registry{}
}

// Announce records userID on connID. It reports whether an entry was added.
func (r *Registry) Announce(userID, connID string) bool {
	for _, e := range r.entries {
		if e.UserID == userID || e.ConnectionID == connID {
			return false
		}
	}
	r.entries = append(r.entries, Entry{UserID: userID, ConnectionID: connID})
	return true
}

// Remove deletes the entry owned by connID, if any.
func (r *Registry) Remove(connID string) (Entry, bool) {
	for i, e := range r.entries {
		if e.ConnectionID == connID {
			r.entries = append(r.entries[:i], r.entries[i+1:]...)
			return e, true
		}
	}
	return Entry{}, false
}

// List returns a copy of the entries in insertion order.
func (r *Registry) List() []Entry {
	out := make([]Entry, len(r.entries))
	copy(out, r.entries)
	return out
}

// UserOf returns the user announced on connID.
func (r *Registry) UserOf(connID string) (string, bool) {
	for _, e := range r.entries {
		if e.ConnectionID == connID {
			return e.UserID, true
		}
	}
	return "", false
}

func (r *Registry) Len() int { return len(r.entries) }
