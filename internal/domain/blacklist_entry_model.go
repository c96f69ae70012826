package domain

import "time"

// BlacklistEntry is one row of the synchronized deny-list.
type BlacklistEntry struct {
	ID uint64 `gorm:"primaryKey;autoIncrement" json:"-"`

	// Domain holds the normalized hostname (lowercase, ASCII, no leading "www.").
	Domain      string `gorm:"size:255;uniqueIndex;not null" json:"domain"`
	Category    string `gorm:"size:255;not null;default:''" json:"category"`
	Description string `gorm:"type:text;not null;default:''" json:"description"`

	// Source records the feed that delivered the entry.
	Source   string    `gorm:"size:512;not null;default:''" json:"source,omitempty"`
	SyncedAt time.Time `gorm:"not null" json:"syncedAt"`
}
