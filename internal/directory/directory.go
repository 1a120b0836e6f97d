// Package directory holds the contact seed the chat store is initialized from.
package directory

import "time"

// Contact is a chat counterparty shown in the storefront chat.
type Contact struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Avatar      string     `json:"avatar"`
	Online      bool       `json:"online"`
	LastSeen    *time.Time `json:"last_seen,omitempty"`
	UnreadCount int        `json:"unread_count"`
}

// Directory is the source of contacts for seeding rooms.
type Directory interface {
	Contacts() []Contact
}

// Static is a fixed in-memory directory.
type Static []Contact

// Contacts returns a copy of the seed list.
func (s Static) Contacts() []Contact {
	out := make([]Contact, len(s))
	for i, c := range s {
		out[i] = c.Clone()
	}
	return out
}

// Clone returns a copy that shares no pointers with c.
func (c Contact) Clone() Contact {
	if c.LastSeen != nil {
		ts := *c.LastSeen
		c.LastSeen = &ts
	}
	return c
}

// Default returns the storefront's built-in support contacts. Offline
// contacts get a last-seen time relative to now.
func Default(now time.Time) Static {
	seen := func(d time.Duration) *time.Time {
		ts := now.Add(-d)
		return &ts
	}
	return Static{
		{ID: "1", Name: "Store Support", Avatar: "/avatars/support.png", Online: true, UnreadCount: 2},
		{ID: "2", Name: "Order Tracking", Avatar: "/avatars/orders.png", Online: true, UnreadCount: 0},
		{ID: "3", Name: "Returns Desk", Avatar: "/avatars/returns.png", Online: false, LastSeen: seen(30 * time.Minute), UnreadCount: 1},
		{ID: "4", Name: "Warranty Team", Avatar: "/avatars/warranty.png", Online: false, LastSeen: seen(2 * time.Hour), UnreadCount: 0},
		{ID: "5", Name: "Sales Assistant", Avatar: "/avatars/sales.png", Online: true, UnreadCount: 3},
	}
}
