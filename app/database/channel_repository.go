package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ademidov/feedscope/app/feed"
)

var _ ChannelRepository = (*ChannelRepositoryImpl)(nil)

// ChannelRepositoryImpl handles database operations for channels
type ChannelRepositoryImpl struct {
	db *DB
}

func NewChannelRepository(db *DB) *ChannelRepositoryImpl {
	return &ChannelRepositoryImpl{db: db}
}

const channelColumns = `id, title, description, link, origin, image_id,
       last_fetched_at, next_fetch_at, created_at, updated_at`

func (r *ChannelRepositoryImpl) scanChannel(row interface{ Scan(...any) error }) (*Channel, error) {
	var ch Channel
	err := row.Scan(
		&ch.ID, &ch.Title, &ch.Description, &ch.Link, &ch.Origin, &ch.ImageID,
		&ch.LastFetchedAt, &ch.NextFetchAt, &ch.CreatedAt, &ch.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &ch, nil
}

func (r *ChannelRepositoryImpl) GetChannel(channelID string) (*Channel, error) {
	ch, err := r.scanChannel(r.db.QueryRow(`
		SELECT `+channelColumns+`
		FROM channels
		WHERE id = ?
	`, channelID))

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get channel: %w", err)
	}

	return ch, nil
}

// GetChannelByOrigin retrieves a channel by its source address. Origins
// are unique, so two subscriptions to the same source share one channel.
func (r *ChannelRepositoryImpl) GetChannelByOrigin(origin string) (*Channel, error) {
	ch, err := r.scanChannel(r.db.QueryRow(`
		SELECT `+channelColumns+`
		FROM channels
		WHERE origin = ?
	`, origin))

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get channel by origin: %w", err)
	}

	return ch, nil
}

func (r *ChannelRepositoryImpl) GetChannels() ([]Channel, error) {
	rows, err := r.db.Query(`
		SELECT ` + channelColumns + `
		FROM channels
		ORDER BY title, origin
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to get channels: %w", err)
	}
	defer rows.Close()

	return r.collectChannels(rows)
}

// GetChannelsDueForRefresh returns channels whose next fetch time has
// passed (or was never set), oldest first.
func (r *ChannelRepositoryImpl) GetChannelsDueForRefresh(limit int) ([]Channel, error) {
	rows, err := r.db.Query(`
		SELECT `+channelColumns+`
		FROM channels
		WHERE next_fetch_at IS NULL OR next_fetch_at <= ?
		ORDER BY COALESCE(next_fetch_at, '1970-01-01')
		LIMIT ?
	`, time.Now().UTC(), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get channels due for refresh: %w", err)
	}
	defer rows.Close()

	return r.collectChannels(rows)
}

func (r *ChannelRepositoryImpl) collectChannels(rows *sql.Rows) ([]Channel, error) {
	var channels []Channel
	for rows.Next() {
		ch, err := r.scanChannel(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan channel row: %w", err)
		}
		channels = append(channels, *ch)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating channel rows: %w", err)
	}

	return channels, nil
}

func (r *ChannelRepositoryImpl) GetChannelCount() (int, error) {
	var count int
	err := r.db.QueryRow("SELECT COUNT(*) FROM channels").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get channel count: %w", err)
	}
	return count, nil
}

// CreateChannel registers a bare channel for an origin. Title, description
// and items arrive with the first synchronization run.
func (r *ChannelRepositoryImpl) CreateChannel(origin string) (*Channel, error) {
	now := time.Now().UTC()
	ch := &Channel{
		ID:        uuid.NewString(),
		Origin:    origin,
		CreatedAt: now,
		UpdatedAt: now,
	}

	_, err := r.db.Exec(`
		INSERT INTO channels (id, title, description, link, origin, created_at, updated_at)
		VALUES (?, '', '', '', ?, ?, ?)
	`, ch.ID, ch.Origin, ch.CreatedAt, ch.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create channel: %w", err)
	}

	return ch, nil
}

func (r *ChannelRepositoryImpl) DeleteChannel(channelID string) error {
	_, err := r.db.Exec(`DELETE FROM channels WHERE id = ?`, channelID)
	if err != nil {
		return fmt.Errorf("failed to delete channel: %w", err)
	}
	return nil
}

// ApplySync commits the outcome of a synchronization run: updated channel
// metadata plus the insert set, all-or-nothing. The image reference is
// only filled in when none is set yet; an existing image always wins.
func (r *ChannelRepositoryImpl) ApplySync(channelID string, meta feed.Metadata, imageID *string, items []feed.NewItem, fetchedAt, nextFetchAt time.Time) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		UPDATE channels
		SET title = ?, description = ?, link = ?,
		    image_id = COALESCE(image_id, ?),
		    last_fetched_at = ?, next_fetch_at = ?, updated_at = ?
		WHERE id = ?
	`, meta.Title, meta.Description, meta.Link, imageID,
		fetchedAt, nextFetchAt, time.Now().UTC(), channelID)
	if err != nil {
		return fmt.Errorf("failed to update channel metadata: %w", err)
	}

	for _, item := range items {
		_, err = tx.Exec(`
			INSERT INTO channel_items (id, channel_id, guid, link, title, description, published_at, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, uuid.NewString(), item.ChannelID, item.GUID, item.Link, item.Title,
			item.Description, item.PublishedAt, time.Now().UTC())
		if err != nil {
			return fmt.Errorf("failed to insert item: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit sync: %w", err)
	}

	return nil
}

func (r *ChannelRepositoryImpl) RecordFetchAttempt(channelID string, fetchedAt, nextFetchAt time.Time) error {
	_, err := r.db.Exec(`
		UPDATE channels
		SET last_fetched_at = ?, next_fetch_at = ?, updated_at = ?
		WHERE id = ?
	`, fetchedAt, nextFetchAt, time.Now().UTC(), channelID)
	if err != nil {
		return fmt.Errorf("failed to record fetch attempt: %w", err)
	}
	return nil
}
