package syncer

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/ademidov/feedscope/app/database"
	"github.com/ademidov/feedscope/app/feed"
)

// Status is the terminal state of a channel sync attempt. A run either
// merges cleanly or fails at the fetch or the persist step; no partial
// state is ever observable.
type Status string

const (
	StatusMerged        Status = "merged"
	StatusFetchFailed   Status = "fetch_failed"
	StatusStorageFailed Status = "storage_failed"
)

// Result reports one channel's sync outcome.
type Result struct {
	ChannelID    string
	Origin       string
	Status       Status
	Inserted     int
	ImageCreated bool
	Err          error
	Duration     time.Duration
}

type ParserInterface interface {
	Run(data []byte) (*feed.Metadata, []feed.Entry, error)
}

var _ ParserInterface = (*feed.Parser)(nil)

// Synchronizer turns a freshly fetched feed into an insert-only update of
// channel state. Runs for distinct channels may execute concurrently; a
// per-channel lock serializes runs for the same channel so the existing-
// items snapshot used for dedup cannot race.
type Synchronizer struct {
	channelRepo     database.ChannelRepository
	itemRepo        database.ItemRepository
	imageRepo       database.ImageRepository
	httpClient      *http.Client
	parser          ParserInterface
	locks           *channelLocks
	userAgent       string
	fetchTimeout    time.Duration
	refreshInterval time.Duration
}

func NewSynchronizer(channelRepo database.ChannelRepository, itemRepo database.ItemRepository,
	imageRepo database.ImageRepository, httpClient *http.Client, parser ParserInterface,
	userAgent string, fetchTimeout, refreshInterval time.Duration) *Synchronizer {
	return &Synchronizer{
		channelRepo:     channelRepo,
		itemRepo:        itemRepo,
		imageRepo:       imageRepo,
		httpClient:      httpClient,
		parser:          parser,
		locks:           newChannelLocks(),
		userAgent:       userAgent,
		fetchTimeout:    fetchTimeout,
		refreshInterval: refreshInterval,
	}
}

// SyncChannel runs one synchronization attempt for a channel:
// fetch and parse, ensure the image, load the identity projection, plan
// the merge, persist atomically. Errors are captured in the result, never
// propagated as partial state.
func (s *Synchronizer) SyncChannel(ctx context.Context, ch database.Channel) Result {
	started := time.Now()
	release := s.locks.acquire(ch.ID)
	defer release()

	result := Result{ChannelID: ch.ID, Origin: ch.Origin}

	now := time.Now().UTC()
	nextFetchAt := now.Add(s.refreshInterval)

	var metadata *feed.Metadata
	var entries []feed.Entry

	data, err := s.fetch(ctx, ch.Origin)
	if err == nil {
		metadata, entries, err = s.parser.Run(data)
	}
	if err != nil {
		// Fetch or parse failed: the channel keeps its current state,
		// only the fetch bookkeeping moves forward.
		result.Status = StatusFetchFailed
		result.Err = fmt.Errorf("%w: %v", ErrFetch, err)
		if recErr := s.channelRepo.RecordFetchAttempt(ch.ID, now, nextFetchAt); recErr != nil {
			slog.Warn("Failed to record fetch attempt", "channel_id", ch.ID, "error", recErr)
		}
		result.Duration = time.Since(started)
		return result
	}

	result = s.merge(ch, *metadata, entries, now, nextFetchAt)
	result.Duration = time.Since(started)
	return result
}

// SyncAll synchronizes every channel and aggregates per-channel results.
// One channel's failure never aborts the batch.
func (s *Synchronizer) SyncAll(ctx context.Context) ([]Result, error) {
	channels, err := s.channelRepo.GetChannels()
	if err != nil {
		return nil, fmt.Errorf("failed to load channels: %w", err)
	}

	results := make([]Result, 0, len(channels))
	for _, ch := range channels {
		results = append(results, s.SyncChannel(ctx, ch))
	}

	return results, nil
}

func (s *Synchronizer) merge(ch database.Channel, metadata feed.Metadata, entries []feed.Entry, fetchedAt, nextFetchAt time.Time) Result {
	result := Result{ChannelID: ch.ID, Origin: ch.Origin}

	imageID, imageCreated, err := s.ensureImage(ch, metadata.Image)
	if err != nil {
		result.Status = StatusStorageFailed
		result.Err = fmt.Errorf("%w: %v", ErrStorage, err)
		return result
	}
	result.ImageCreated = imageCreated

	existing, err := s.itemRepo.GetItemIdentities(ch.ID)
	if err != nil {
		result.Status = StatusStorageFailed
		result.Err = fmt.Errorf("%w: %v", ErrStorage, err)
		return result
	}

	inserts := feed.Plan(ch.ID, existing, entries)

	if err := s.channelRepo.ApplySync(ch.ID, metadata, imageID, inserts, fetchedAt, nextFetchAt); err != nil {
		result.Status = StatusStorageFailed
		result.Err = fmt.Errorf("%w: %v", ErrStorage, err)
		return result
	}

	result.Status = StatusMerged
	result.Inserted = len(inserts)
	return result
}

// ensureImage leaves an already-set channel image untouched and registers
// a new one only when the feed supplies the complete (link, title, url)
// triple.
func (s *Synchronizer) ensureImage(ch database.Channel, candidate *feed.ImageMeta) (*string, bool, error) {
	if ch.ImageID != nil {
		return ch.ImageID, false, nil
	}
	if candidate == nil || candidate.Link == "" || candidate.Title == "" || candidate.URL == "" {
		return nil, false, nil
	}

	id, created, err := s.imageRepo.EnsureImage(candidate.Link, candidate.Title, candidate.URL)
	if err != nil {
		return nil, false, err
	}
	return &id, created, nil
}

func (s *Synchronizer) fetch(ctx context.Context, origin string) ([]byte, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, s.fetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(timeoutCtx, "GET", origin, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", s.userAgent)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return data, nil
}
