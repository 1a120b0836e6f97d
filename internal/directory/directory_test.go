package directory

import (
	"testing"
	"time"
)

func TestDefaultIDsUnique(t *testing.T) {
	d := Default(time.Now())
	if len(d) == 0 {
		t.Fatal("default directory is empty")
	}
	seen := make(map[string]bool)
	for _, c := range d.Contacts() {
		if c.ID == "" {
			t.Errorf("contact %q has empty ID", c.Name)
		}
		if seen[c.ID] {
			t.Errorf("duplicate contact ID %q", c.ID)
		}
		seen[c.ID] = true
	}
}

func TestOfflineContactsHaveLastSeen(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	for _, c := range Default(now).Contacts() {
		if !c.Online && c.LastSeen == nil {
			t.Errorf("offline contact %q has no last-seen time", c.ID)
		}
		if c.LastSeen != nil && !c.LastSeen.Before(now) {
			t.Errorf("contact %q last seen %v, want before %v", c.ID, c.LastSeen, now)
		}
	}
}

func TestContactsReturnsCopies(t *testing.T) {
	d := Default(time.Now())
	first := d.Contacts()
	first[0].UnreadCount = 99
	if first[2].LastSeen != nil {
		*first[2].LastSeen = time.Time{}
	}

	second := d.Contacts()
	if second[0].UnreadCount == 99 {
		t.Error("mutating a returned contact changed the directory")
	}
	if second[2].LastSeen != nil && second[2].LastSeen.IsZero() {
		t.Error("mutating a returned last-seen pointer changed the directory")
	}
}
