// Package station provides the fixed room graph the game is played on:
// rooms, corridor links, saboteur-only vents and the chores each room offers.
package station

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// ErrUnknownRoom is returned when a link or lookup names a room that does not exist.
var ErrUnknownRoom = errors.New("unknown room")

// RoomID identifies a room (e.g. "lower_engine").
type RoomID string

// Room is a single node of the station graph. Rooms are immutable once the
// map is built.
type Room struct {
	ID     RoomID   `json:"id"`
	Name   string   `json:"name"`
	Links  []RoomID `json:"links"`
	Vents  []RoomID `json:"vents,omitempty"`
	Chores []string `json:"chores"`
}

func (r *Room) clone() *Room {
	c := *r
	c.Links = slices.Clone(r.Links)
	c.Vents = slices.Clone(r.Vents)
	c.Chores = slices.Clone(r.Chores)
	return &c
}

// Map holds the complete station graph. It is shared read-only by every
// game, so accessors hand out copies.
type Map struct {
	rooms map[RoomID]*Room
	order []RoomID // definition order; drives deterministic iteration
}

// NewMap builds a map from room definitions, checking that every link and
// vent points at a defined room.
func NewMap(defs []Room) (*Map, error) {
	m := &Map{rooms: make(map[RoomID]*Room, len(defs))}
	for i := range defs {
		r := defs[i].clone()
		if _, dup := m.rooms[r.ID]; dup {
			return nil, fmt.Errorf("duplicate room %q", r.ID)
		}
		m.rooms[r.ID] = r
		m.order = append(m.order, r.ID)
	}

	for _, id := range m.order {
		r := m.rooms[id]
		for _, to := range r.Links {
			if _, ok := m.rooms[to]; !ok {
				return nil, fmt.Errorf("room %s links to %q: %w", id, to, ErrUnknownRoom)
			}
		}
		for _, to := range r.Vents {
			if _, ok := m.rooms[to]; !ok {
				return nil, fmt.Errorf("room %s vents to %q: %w", id, to, ErrUnknownRoom)
			}
		}
	}
	return m, nil
}

// Get returns a copy of the room with the given ID, or nil if it does not exist.
func (m *Map) Get(id RoomID) *Room {
	if r := m.rooms[id]; r != nil {
		return r.clone()
	}
	return nil
}

// Has reports whether the room exists.
func (m *Map) Has(id RoomID) bool {
	_, ok := m.rooms[id]
	return ok
}

// Name returns the display name of a room, falling back to its ID.
func (m *Map) Name(id RoomID) string {
	if r := m.rooms[id]; r != nil {
		return r.Name
	}
	return string(id)
}

// IDs returns every room ID in definition order.
func (m *Map) IDs() []RoomID {
	out := make([]RoomID, len(m.order))
	copy(out, m.order)
	return out
}

// Rooms returns every room in definition order.
func (m *Map) Rooms() []*Room {
	out := make([]*Room, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.rooms[id].clone())
	}
	return out
}

// Links returns the rooms reachable from id by walking one corridor.
func (m *Map) Links(id RoomID) []RoomID {
	if r := m.rooms[id]; r != nil {
		return slices.Clone(r.Links)
	}
	return nil
}

// Vents returns the vent shortcuts leaving id. Only saboteurs may use them.
func (m *Map) Vents(id RoomID) []RoomID {
	if r := m.rooms[id]; r != nil {
		return slices.Clone(r.Vents)
	}
	return nil
}

// Chores returns the chore names that can be assigned in a room.
func (m *Map) Chores(id RoomID) []string {
	if r := m.rooms[id]; r != nil && len(r.Chores) > 0 {
		return slices.Clone(r.Chores)
	}
	return []string{"General Chore"}
}

// MentionedIn returns the first room (in definition order) whose display
// name appears in text, case-insensitively.
func (m *Map) MentionedIn(text string) (RoomID, bool) {
	lower := strings.ToLower(text)
	for _, id := range m.order {
		if strings.Contains(lower, strings.ToLower(m.rooms[id].Name)) {
			return id, true
		}
	}
	return "", false
}

// Len returns the number of rooms.
func (m *Map) Len() int {
	return len(m.order)
}

// String returns a summary of the map.
func (m *Map) String() string {
	return fmt.Sprintf("Map(rooms=%d)", len(m.order))
}
