package feed

// Plan diffs candidate entries against the identity projection of a
// channel's stored items and returns the insert set: candidates whose
// identity key is not present yet, in feed order. Stored items are never
// updated or deleted, so the plan is insert-only.
//
// Candidates that duplicate each other within the same fetch are also
// collapsed, keeping the first occurrence.
func Plan(channelID string, existing []ItemIdentity, candidates []Entry) []NewItem {
	seen := make(map[IdentityKey]struct{}, len(existing)+len(candidates))
	for _, item := range existing {
		key := ResolveIdentity(channelID, Entry{
			GUID:        item.GUID,
			Link:        item.Link,
			Title:       item.Title,
			PublishedAt: item.PublishedAt,
		})
		seen[key] = struct{}{}
	}

	inserts := make([]NewItem, 0, len(candidates))
	for _, entry := range candidates {
		key := ResolveIdentity(channelID, entry)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}

		inserts = append(inserts, NewItem{
			ChannelID:   channelID,
			GUID:        entry.GUID,
			Title:       entry.Title,
			Link:        entry.Link,
			Description: entry.Description,
			PublishedAt: entry.PublishedAt,
		})
	}

	return inserts
}
