package database

import (
	"time"

	"github.com/ademidov/feedscope/app/feed"
)

type ChannelRepository interface {
	GetChannel(channelID string) (*Channel, error)
	GetChannelByOrigin(origin string) (*Channel, error)
	GetChannels() ([]Channel, error)
	GetChannelsDueForRefresh(limit int) ([]Channel, error)
	GetChannelCount() (int, error)

	CreateChannel(origin string) (*Channel, error)
	DeleteChannel(channelID string) error

	// ApplySync updates the channel's descriptive fields and appends the
	// insert set in a single transaction: either everything commits or
	// nothing does.
	ApplySync(channelID string, meta feed.Metadata, imageID *string, items []feed.NewItem, fetchedAt, nextFetchAt time.Time) error

	// RecordFetchAttempt advances the fetch bookkeeping after a failed
	// sync so a broken source is not hammered on every scheduler tick.
	RecordFetchAttempt(channelID string, fetchedAt, nextFetchAt time.Time) error
}

type ItemRepository interface {
	GetItemIdentities(channelID string) ([]feed.ItemIdentity, error)
	GetItems(channelID string, limit int) ([]Item, error)
	GetItemsForUser(userID, channelID string, limit int) ([]UserItem, error)
	GetItem(itemID string) (*Item, error)
	GetItemCount(channelID string) (int, error)
	GetTotalItemCount() (int, error)
}

type ImageRepository interface {
	// EnsureImage returns the id of an image with the given triple,
	// creating the row only when no matching one exists.
	EnsureImage(link, title, url string) (string, bool, error)
	GetImage(imageID string) (*Image, error)
}

type UserRepository interface {
	GetUser(userID string) (*User, error)
	EnsureUser(email string) (*User, error)
	GetUserCount() (int, error)
}

type SubscriptionRepository interface {
	Subscribe(userID, channelID string) error
	Unsubscribe(userID, channelID string) error
	ListSubscribedChannels(userID string) ([]ChannelSummary, error)
	ListUnsubscribedChannels(userID string, limit int) ([]ChannelSummary, error)

	MarkRead(userID, itemID string) error
	MarkReadLater(userID, itemID string, flag bool) error
}
