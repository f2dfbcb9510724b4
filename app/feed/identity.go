package feed

import (
	"time"
)

// IdentityKey is the deduplication key for an entry within a channel.
// Exactly one of the three identity forms is populated, so keys computed
// from different forms never collide. The zero fields of the unused forms
// make the struct directly comparable and usable as a map key.
type IdentityKey struct {
	ChannelID string

	// guid form
	GUID string

	// link form
	Link string

	// fallback form: title plus publish timestamp (empty when absent)
	Title       string
	PublishedAt string
}

// ResolveIdentity computes the identity key for an entry. Resolution is
// total: it never fails for an entry with a title.
//
// Priority: a non-empty guid wins, then a non-empty link, then the
// title/timestamp fallback. Two entries that lack both guid and link and
// share a title and an equal (or equally absent) publish timestamp
// resolve to the same key. That can conflate genuinely distinct entries,
// which is the accepted trade-off for bounding duplicate growth.
func ResolveIdentity(channelID string, entry Entry) IdentityKey {
	switch {
	case entry.GUID != "":
		return IdentityKey{ChannelID: channelID, GUID: entry.GUID}
	case entry.Link != "":
		return IdentityKey{ChannelID: channelID, Link: entry.Link}
	default:
		key := IdentityKey{ChannelID: channelID, Title: entry.Title}
		if entry.PublishedAt != nil {
			key.PublishedAt = entry.PublishedAt.UTC().Format(time.RFC3339Nano)
		}
		return key
	}
}
