package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var _ ImageRepository = (*ImageRepositoryImpl)(nil)

// ImageRepositoryImpl handles database operations for channel images
type ImageRepositoryImpl struct {
	db *DB
}

func NewImageRepository(db *DB) *ImageRepositoryImpl {
	return &ImageRepositoryImpl{db: db}
}

// EnsureImage returns the id of an image matching the (link, title, url)
// triple, creating one only when no match exists. The second return value
// reports whether a row was created.
func (r *ImageRepositoryImpl) EnsureImage(link, title, url string) (string, bool, error) {
	var id string
	err := r.db.QueryRow(`
		SELECT id FROM images
		WHERE link = ? AND title = ? AND url = ?
		LIMIT 1
	`, link, title, url).Scan(&id)

	if err == nil {
		return id, false, nil
	}
	if err != sql.ErrNoRows {
		return "", false, fmt.Errorf("failed to look up image: %w", err)
	}

	id = uuid.NewString()
	_, err = r.db.Exec(`
		INSERT INTO images (id, link, title, url, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, id, link, title, url, time.Now().UTC())
	if err != nil {
		return "", false, fmt.Errorf("failed to create image: %w", err)
	}

	return id, true, nil
}

func (r *ImageRepositoryImpl) GetImage(imageID string) (*Image, error) {
	var img Image
	err := r.db.QueryRow(`
		SELECT id, link, title, url, created_at
		FROM images
		WHERE id = ?
	`, imageID).Scan(&img.ID, &img.Link, &img.Title, &img.URL, &img.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get image: %w", err)
	}

	return &img, nil
}
