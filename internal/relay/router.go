package relay

import "sort"

// Router indexes room subscriptions in both directions so a closing
// connection can be dropped from every room without a full scan.
// Router is not safe for concurrent use; Relay serializes access to it.
type Router struct {
	rooms  map[string]map[string]struct{} // roomID -> connIDs
	byConn map[string]map[string]struct{} // connID -> roomIDs
}

func NewRouter() *Router {
	return &Router{
		rooms:  make(map[string]map[string]struct{}),
		byConn: make(map[string]map[string]struct{}),
	}
}

func (r *Router) Join(connID, roomID string) {
	if r.rooms[roomID] == nil {
		r.rooms[roomID] = make(map[string]struct{})
	}
	r.rooms[roomID][connID] = struct{}{}

	if r.byConn[connID] == nil {
		r.byConn[connID] = make(map[string]struct{})
	}
	r.byConn[connID][roomID] = struct{}{}
}

func (r *Router) Leave(connID, roomID string) {
	if m, ok := r.rooms[roomID]; ok {
		delete(m, connID)
		if len(m) == 0 {
			delete(r.rooms, roomID)
		}
	}
	if m, ok := r.byConn[connID]; ok {
		delete(m, roomID)
		if len(m) == 0 {
			delete(r.byConn, connID)
		}
	}
}

// SubscribersOf returns the sorted connection IDs subscribed to roomID.
// Unknown rooms yield an empty slice.
func (r *Router) SubscribersOf(roomID string) []string {
	m := r.rooms[roomID]
	out := make([]string, 0, len(m))
	for id := range m {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// RoomsOf returns the sorted room IDs connID is subscribed to.
func (r *Router) RoomsOf(connID string) []string {
	m := r.byConn[connID]
	out := make([]string, 0, len(m))
	for id := range m {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Drop removes connID from every room it joined.
func (r *Router) Drop(connID string) {
	for roomID := range r.byConn[connID] {
		if m, ok := r.rooms[roomID]; ok {
			delete(m, connID)
			if len(m) == 0 {
				delete(r.rooms, roomID)
			}
		}
	}
	delete(r.byConn, connID)
}

// Rooms returns the number of rooms with at least one subscriber.
func (r *Router) Rooms() int { return len(r.rooms) }
