package database

import (
	"database/sql"
	"fmt"

	"github.com/ademidov/feedscope/app/feed"
)

var _ ItemRepository = (*ItemRepositoryImpl)(nil)

// ItemRepositoryImpl handles database operations for channel items
type ItemRepositoryImpl struct {
	db *DB
}

func NewItemRepository(db *DB) *ItemRepositoryImpl {
	return &ItemRepositoryImpl{db: db}
}

// GetItemIdentities returns the identity projection of all items stored
// under a channel, the input the merge planner diffs candidates against.
func (r *ItemRepositoryImpl) GetItemIdentities(channelID string) ([]feed.ItemIdentity, error) {
	rows, err := r.db.Query(`
		SELECT guid, link, title, published_at
		FROM channel_items
		WHERE channel_id = ?
	`, channelID)
	if err != nil {
		return nil, fmt.Errorf("failed to get item identities: %w", err)
	}
	defer rows.Close()

	var identities []feed.ItemIdentity
	for rows.Next() {
		var identity feed.ItemIdentity
		if err := rows.Scan(&identity.GUID, &identity.Link, &identity.Title, &identity.PublishedAt); err != nil {
			return nil, fmt.Errorf("failed to scan identity row: %w", err)
		}
		identities = append(identities, identity)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating identity rows: %w", err)
	}

	return identities, nil
}

func (r *ItemRepositoryImpl) GetItems(channelID string, limit int) ([]Item, error) {
	rows, err := r.db.Query(`
		SELECT id, channel_id, guid, link, title, description, published_at, created_at
		FROM channel_items
		WHERE channel_id = ?
		ORDER BY COALESCE(published_at, created_at) DESC, created_at DESC
		LIMIT ?
	`, channelID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get items: %w", err)
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		var item Item
		err := rows.Scan(
			&item.ID, &item.ChannelID, &item.GUID, &item.Link, &item.Title,
			&item.Description, &item.PublishedAt, &item.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan item row: %w", err)
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating item rows: %w", err)
	}

	return items, nil
}

// GetItemsForUser returns a channel's items with the given user's read
// and read-later flags joined in. Items without an annotation row come
// back unread and not saved.
func (r *ItemRepositoryImpl) GetItemsForUser(userID, channelID string, limit int) ([]UserItem, error) {
	rows, err := r.db.Query(`
		SELECT i.id, i.channel_id, i.guid, i.link, i.title, i.description, i.published_at, i.created_at,
		       COALESCE(a.has_read, 0), COALESCE(a.is_read_later, 0)
		FROM channel_items i
		LEFT JOIN user_channel_items a ON a.item_id = i.id AND a.user_id = ?
		WHERE i.channel_id = ?
		ORDER BY COALESCE(i.published_at, i.created_at) DESC, i.created_at DESC
		LIMIT ?
	`, userID, channelID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get items for user: %w", err)
	}
	defer rows.Close()

	var items []UserItem
	for rows.Next() {
		var item UserItem
		err := rows.Scan(
			&item.ID, &item.ChannelID, &item.GUID, &item.Link, &item.Title,
			&item.Description, &item.PublishedAt, &item.CreatedAt,
			&item.HasRead, &item.IsReadLater,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user item row: %w", err)
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating user item rows: %w", err)
	}

	return items, nil
}

func (r *ItemRepositoryImpl) GetItem(itemID string) (*Item, error) {
	var item Item
	err := r.db.QueryRow(`
		SELECT id, channel_id, guid, link, title, description, published_at, created_at
		FROM channel_items
		WHERE id = ?
	`, itemID).Scan(
		&item.ID, &item.ChannelID, &item.GUID, &item.Link, &item.Title,
		&item.Description, &item.PublishedAt, &item.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get item: %w", err)
	}

	return &item, nil
}

func (r *ItemRepositoryImpl) GetItemCount(channelID string) (int, error) {
	var count int
	err := r.db.QueryRow("SELECT COUNT(*) FROM channel_items WHERE channel_id = ?", channelID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get item count: %w", err)
	}
	return count, nil
}

func (r *ItemRepositoryImpl) GetTotalItemCount() (int, error) {
	var count int
	err := r.db.QueryRow("SELECT COUNT(*) FROM channel_items").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get total item count: %w", err)
	}
	return count, nil
}
