package database

import (
	"time"
)

type Channel struct {
	ID            string
	Title         string
	Description   string
	Link          string // Homepage URL from the feed's <link> element
	Origin        string // Fetchable source address, unique across channels
	ImageID       *string
	LastFetchedAt *time.Time
	NextFetchAt   *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type Image struct {
	ID        string
	Link      string
	Title     string
	URL       string
	CreatedAt time.Time
}

// Item is a stored channel item. Items are immutable after creation:
// synchronization only ever appends new rows.
type Item struct {
	ID          string
	ChannelID   string
	GUID        string
	Link        string
	Title       string
	Description string // Raw feed description, sanitized by consumers before display
	PublishedAt *time.Time
	CreatedAt   time.Time
}

type User struct {
	ID        string
	Email     string
	CreatedAt time.Time
}

// UserItem is an item joined with the requesting user's annotations.
// A missing annotation row reads as unread, not saved.
type UserItem struct {
	Item
	HasRead     bool
	IsReadLater bool
}

// ChannelSummary is a channel with aggregate counts for listing endpoints.
type ChannelSummary struct {
	Channel
	ItemCount       int
	SubscriberCount int
}
