package feed

import (
	"time"
)

// Fetched feed types

type Metadata struct {
	Title       string
	Link        string
	Description string
	Image       *ImageMeta
}

// ImageMeta is channel artwork as supplied by the feed. An image record is
// only ever created when all three fields are present.
type ImageMeta struct {
	Link  string
	Title string
	URL   string
}

// Entry is a candidate item as it came out of the feed, before
// deduplication. GUID and Link may be empty, PublishedAt may be nil;
// Title is always set for entries that survive parsing.
type Entry struct {
	GUID        string
	Title       string
	Link        string
	Description string
	PublishedAt *time.Time
}

// ItemIdentity is the minimal projection of a stored item needed to
// compute its identity key.
type ItemIdentity struct {
	GUID        string
	Link        string
	Title       string
	PublishedAt *time.Time
}

// NewItem is one element of a merge plan's insert set, carrying the
// fields needed to persist a channel item.
type NewItem struct {
	ChannelID   string
	GUID        string
	Title       string
	Link        string
	Description string
	PublishedAt *time.Time
}
