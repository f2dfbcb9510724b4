package database

import (
	"fmt"
	"time"
)

var _ SubscriptionRepository = (*SubscriptionRepositoryImpl)(nil)

// SubscriptionRepositoryImpl handles the user/channel subscription edges
// and per-user item annotations. Nothing here is touched by channel
// synchronization; it is driven entirely by user-facing actions.
type SubscriptionRepositoryImpl struct {
	db *DB
}

func NewSubscriptionRepository(db *DB) *SubscriptionRepositoryImpl {
	return &SubscriptionRepositoryImpl{db: db}
}

// Subscribe creates the user/channel edge. Subscribing twice is a no-op:
// the edge either exists or is created, never duplicated.
func (r *SubscriptionRepositoryImpl) Subscribe(userID, channelID string) error {
	_, err := r.db.Exec(`
		INSERT INTO subscriptions (user_id, channel_id, created_at)
		VALUES (?, ?, ?)
		ON CONFLICT (user_id, channel_id) DO NOTHING
	`, userID, channelID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to subscribe: %w", err)
	}
	return nil
}

func (r *SubscriptionRepositoryImpl) Unsubscribe(userID, channelID string) error {
	_, err := r.db.Exec(`
		DELETE FROM subscriptions
		WHERE user_id = ? AND channel_id = ?
	`, userID, channelID)
	if err != nil {
		return fmt.Errorf("failed to unsubscribe: %w", err)
	}
	return nil
}

func (r *SubscriptionRepositoryImpl) ListSubscribedChannels(userID string) ([]ChannelSummary, error) {
	rows, err := r.db.Query(`
		SELECT c.id, c.title, c.description, c.link, c.origin, c.image_id,
		       c.last_fetched_at, c.next_fetch_at, c.created_at, c.updated_at,
		       (SELECT COUNT(*) FROM channel_items i WHERE i.channel_id = c.id),
		       (SELECT COUNT(*) FROM subscriptions s2 WHERE s2.channel_id = c.id)
		FROM channels c
		JOIN subscriptions s ON s.channel_id = c.id
		WHERE s.user_id = ?
		ORDER BY c.title, c.origin
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list subscribed channels: %w", err)
	}
	defer rows.Close()

	return r.collectSummaries(rows)
}

// ListUnsubscribedChannels returns channels the user does not receive,
// for discovery. Limit bounds the result.
func (r *SubscriptionRepositoryImpl) ListUnsubscribedChannels(userID string, limit int) ([]ChannelSummary, error) {
	rows, err := r.db.Query(`
		SELECT c.id, c.title, c.description, c.link, c.origin, c.image_id,
		       c.last_fetched_at, c.next_fetch_at, c.created_at, c.updated_at,
		       (SELECT COUNT(*) FROM channel_items i WHERE i.channel_id = c.id),
		       (SELECT COUNT(*) FROM subscriptions s2 WHERE s2.channel_id = c.id)
		FROM channels c
		WHERE NOT EXISTS (
			SELECT 1 FROM subscriptions s
			WHERE s.channel_id = c.id AND s.user_id = ?
		)
		ORDER BY c.title, c.origin
		LIMIT ?
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list unsubscribed channels: %w", err)
	}
	defer rows.Close()

	return r.collectSummaries(rows)
}

func (r *SubscriptionRepositoryImpl) collectSummaries(rows interface {
	Next() bool
	Scan(...any) error
	Err() error
}) ([]ChannelSummary, error) {
	var channels []ChannelSummary
	for rows.Next() {
		var ch ChannelSummary
		err := rows.Scan(
			&ch.ID, &ch.Title, &ch.Description, &ch.Link, &ch.Origin, &ch.ImageID,
			&ch.LastFetchedAt, &ch.NextFetchAt, &ch.CreatedAt, &ch.UpdatedAt,
			&ch.ItemCount, &ch.SubscriberCount,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan channel summary row: %w", err)
		}
		channels = append(channels, ch)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating channel summary rows: %w", err)
	}

	return channels, nil
}

// MarkRead records that the user has read the item. The annotation row is
// created lazily on first interaction and updated in place afterwards.
func (r *SubscriptionRepositoryImpl) MarkRead(userID, itemID string) error {
	_, err := r.db.Exec(`
		INSERT INTO user_channel_items (user_id, item_id, has_read, is_read_later, updated_at)
		VALUES (?, ?, 1, 0, ?)
		ON CONFLICT (user_id, item_id) DO UPDATE SET
			has_read = 1,
			updated_at = excluded.updated_at
	`, userID, itemID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to mark item read: %w", err)
	}
	return nil
}

// MarkReadLater sets or clears the read-later flag, independent of read
// status.
func (r *SubscriptionRepositoryImpl) MarkReadLater(userID, itemID string, flag bool) error {
	_, err := r.db.Exec(`
		INSERT INTO user_channel_items (user_id, item_id, has_read, is_read_later, updated_at)
		VALUES (?, ?, 0, ?, ?)
		ON CONFLICT (user_id, item_id) DO UPDATE SET
			is_read_later = excluded.is_read_later,
			updated_at = excluded.updated_at
	`, userID, itemID, flag, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to mark item read later: %w", err)
	}
	return nil
}
