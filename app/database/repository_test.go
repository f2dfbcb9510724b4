package database

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/ademidov/feedscope/app/feed"
)

func setupTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := NewConnection(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if _, _, err := RunMigrations(db); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}

	return db
}

func TestChannelRepository_CreateAndGet(t *testing.T) {
	db := setupTestDB(t)
	repo := NewChannelRepository(db)

	created, err := repo.CreateChannel("https://a.example/feed.xml")
	if err != nil {
		t.Fatalf("Failed to create channel: %v", err)
	}
	if created.ID == "" {
		t.Fatal("Created channel should have an id")
	}

	byID, err := repo.GetChannel(created.ID)
	if err != nil {
		t.Fatalf("Failed to get channel: %v", err)
	}
	if byID == nil || byID.Origin != "https://a.example/feed.xml" {
		t.Errorf("Expected channel by id, got %+v", byID)
	}
	if byID.Title != "" {
		t.Errorf("A bare channel has no title until first sync, got %q", byID.Title)
	}

	byOrigin, err := repo.GetChannelByOrigin("https://a.example/feed.xml")
	if err != nil {
		t.Fatalf("Failed to get channel by origin: %v", err)
	}
	if byOrigin == nil || byOrigin.ID != created.ID {
		t.Errorf("Expected channel by origin, got %+v", byOrigin)
	}

	missing, err := repo.GetChannel("no-such-id")
	if err != nil {
		t.Fatalf("Missing channel should not be an error: %v", err)
	}
	if missing != nil {
		t.Errorf("Expected nil for missing channel, got %+v", missing)
	}
}

func TestChannelRepository_OriginUnique(t *testing.T) {
	db := setupTestDB(t)
	repo := NewChannelRepository(db)

	if _, err := repo.CreateChannel("https://a.example/feed.xml"); err != nil {
		t.Fatalf("Failed to create channel: %v", err)
	}
	if _, err := repo.CreateChannel("https://a.example/feed.xml"); err == nil {
		t.Error("Creating a second channel for the same origin should fail")
	}
}

func TestChannelRepository_ApplySync(t *testing.T) {
	db := setupTestDB(t)
	channelRepo := NewChannelRepository(db)
	itemRepo := NewItemRepository(db)
	imageRepo := NewImageRepository(db)

	ch, err := channelRepo.CreateChannel("https://a.example/feed.xml")
	if err != nil {
		t.Fatalf("Failed to create channel: %v", err)
	}

	imageID, _, err := imageRepo.EnsureImage("https://a.example", "A", "https://a.example/logo.png")
	if err != nil {
		t.Fatalf("Failed to create image: %v", err)
	}

	ts := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	now := time.Now().UTC()
	meta := feed.Metadata{Title: "Channel A", Description: "About A", Link: "https://a.example"}
	items := []feed.NewItem{
		{ChannelID: ch.ID, GUID: "g1", Title: "One", Link: "https://a.example/1", PublishedAt: &ts},
		{ChannelID: ch.ID, GUID: "g2", Title: "Two", Link: "https://a.example/2"},
	}

	if err := channelRepo.ApplySync(ch.ID, meta, &imageID, items, now, now.Add(time.Hour)); err != nil {
		t.Fatalf("Failed to apply sync: %v", err)
	}

	updated, _ := channelRepo.GetChannel(ch.ID)
	if updated.Title != "Channel A" || updated.Description != "About A" {
		t.Errorf("Channel metadata should be updated, got %+v", updated)
	}
	if updated.ImageID == nil || *updated.ImageID != imageID {
		t.Errorf("Channel image reference should be set, got %v", updated.ImageID)
	}
	if updated.LastFetchedAt == nil || updated.NextFetchAt == nil {
		t.Error("Fetch bookkeeping should be recorded")
	}

	identities, err := itemRepo.GetItemIdentities(ch.ID)
	if err != nil {
		t.Fatalf("Failed to load identities: %v", err)
	}
	if len(identities) != 2 {
		t.Fatalf("Expected 2 stored identities, got %d", len(identities))
	}

	var withTS *feed.ItemIdentity
	for i := range identities {
		if identities[i].GUID == "g1" {
			withTS = &identities[i]
		}
	}
	if withTS == nil || withTS.PublishedAt == nil || !withTS.PublishedAt.Equal(ts) {
		t.Errorf("Publish timestamp should round-trip through storage, got %+v", withTS)
	}
}

func TestChannelRepository_ApplySyncKeepsExistingImage(t *testing.T) {
	db := setupTestDB(t)
	channelRepo := NewChannelRepository(db)
	imageRepo := NewImageRepository(db)

	ch, _ := channelRepo.CreateChannel("https://a.example/feed.xml")
	first, _, _ := imageRepo.EnsureImage("https://a.example", "A", "https://a.example/v1.png")
	second, _, _ := imageRepo.EnsureImage("https://a.example", "A", "https://a.example/v2.png")

	now := time.Now().UTC()
	meta := feed.Metadata{Title: "Channel A"}

	if err := channelRepo.ApplySync(ch.ID, meta, &first, nil, now, now.Add(time.Hour)); err != nil {
		t.Fatalf("Failed to apply first sync: %v", err)
	}
	if err := channelRepo.ApplySync(ch.ID, meta, &second, nil, now, now.Add(time.Hour)); err != nil {
		t.Fatalf("Failed to apply second sync: %v", err)
	}

	updated, _ := channelRepo.GetChannel(ch.ID)
	if updated.ImageID == nil || *updated.ImageID != first {
		t.Errorf("An existing image reference must never be replaced, got %v", updated.ImageID)
	}
}

func TestChannelRepository_ApplySyncIsAtomic(t *testing.T) {
	db := setupTestDB(t)
	channelRepo := NewChannelRepository(db)
	itemRepo := NewItemRepository(db)

	ch, _ := channelRepo.CreateChannel("https://a.example/feed.xml")

	now := time.Now().UTC()
	meta := feed.Metadata{Title: "Channel A"}
	// The second item violates the non-empty title constraint, so the
	// whole batch, metadata update included, must roll back.
	items := []feed.NewItem{
		{ChannelID: ch.ID, GUID: "g1", Title: "One"},
		{ChannelID: ch.ID, GUID: "g2", Title: ""},
	}

	if err := channelRepo.ApplySync(ch.ID, meta, nil, items, now, now.Add(time.Hour)); err == nil {
		t.Fatal("Expected apply to fail on constraint violation")
	}

	count, _ := itemRepo.GetItemCount(ch.ID)
	if count != 0 {
		t.Errorf("A failed apply must not leave partial items, got %d", count)
	}

	updated, _ := channelRepo.GetChannel(ch.ID)
	if updated.Title != "" {
		t.Errorf("A failed apply must not update channel metadata, got %q", updated.Title)
	}
}

func TestChannelRepository_DeleteCascades(t *testing.T) {
	db := setupTestDB(t)
	channelRepo := NewChannelRepository(db)
	itemRepo := NewItemRepository(db)

	ch, _ := channelRepo.CreateChannel("https://a.example/feed.xml")
	now := time.Now().UTC()
	items := []feed.NewItem{{ChannelID: ch.ID, GUID: "g1", Title: "One"}}
	if err := channelRepo.ApplySync(ch.ID, feed.Metadata{Title: "A"}, nil, items, now, now.Add(time.Hour)); err != nil {
		t.Fatalf("Failed to apply sync: %v", err)
	}

	if err := channelRepo.DeleteChannel(ch.ID); err != nil {
		t.Fatalf("Failed to delete channel: %v", err)
	}

	total, _ := itemRepo.GetTotalItemCount()
	if total != 0 {
		t.Errorf("Deleting a channel should cascade to its items, got %d left", total)
	}
}

func TestChannelRepository_DueForRefresh(t *testing.T) {
	db := setupTestDB(t)
	repo := NewChannelRepository(db)

	ch, _ := repo.CreateChannel("https://a.example/feed.xml")

	due, err := repo.GetChannelsDueForRefresh(10)
	if err != nil {
		t.Fatalf("Failed to get due channels: %v", err)
	}
	if len(due) != 1 {
		t.Fatalf("A never-fetched channel is due immediately, got %d", len(due))
	}

	now := time.Now().UTC()
	if err := repo.RecordFetchAttempt(ch.ID, now, now.Add(time.Hour)); err != nil {
		t.Fatalf("Failed to record fetch attempt: %v", err)
	}

	due, _ = repo.GetChannelsDueForRefresh(10)
	if len(due) != 0 {
		t.Errorf("A freshly fetched channel is not due, got %d", len(due))
	}
}

func TestImageRepository_EnsureImage(t *testing.T) {
	db := setupTestDB(t)
	repo := NewImageRepository(db)

	id, created, err := repo.EnsureImage("https://a.example", "A", "https://a.example/logo.png")
	if err != nil {
		t.Fatalf("Failed to ensure image: %v", err)
	}
	if !created {
		t.Error("First ensure should create the image")
	}

	again, created, err := repo.EnsureImage("https://a.example", "A", "https://a.example/logo.png")
	if err != nil {
		t.Fatalf("Failed to ensure image again: %v", err)
	}
	if created {
		t.Error("Second ensure with the same triple must not create a row")
	}
	if again != id {
		t.Errorf("Expected the same image id, got %s and %s", id, again)
	}

	img, err := repo.GetImage(id)
	if err != nil {
		t.Fatalf("Failed to get image: %v", err)
	}
	if img == nil || img.URL != "https://a.example/logo.png" {
		t.Errorf("Expected stored image, got %+v", img)
	}
}

func TestUserRepository_EnsureUser(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepository(db)

	user, err := repo.EnsureUser("reader@example.com")
	if err != nil {
		t.Fatalf("Failed to ensure user: %v", err)
	}

	again, err := repo.EnsureUser("reader@example.com")
	if err != nil {
		t.Fatalf("Failed to ensure user again: %v", err)
	}
	if again.ID != user.ID {
		t.Errorf("Ensuring the same email twice must return one user, got %s and %s", user.ID, again.ID)
	}

	count, _ := repo.GetUserCount()
	if count != 1 {
		t.Errorf("Expected 1 user, got %d", count)
	}
}

func TestSubscriptionRepository_SubscribeIdempotent(t *testing.T) {
	db := setupTestDB(t)
	channelRepo := NewChannelRepository(db)
	userRepo := NewUserRepository(db)
	subRepo := NewSubscriptionRepository(db)

	user, _ := userRepo.EnsureUser("reader@example.com")
	ch, _ := channelRepo.CreateChannel("https://a.example/feed.xml")

	for i := 0; i < 3; i++ {
		if err := subRepo.Subscribe(user.ID, ch.ID); err != nil {
			t.Fatalf("Subscribe attempt %d failed: %v", i+1, err)
		}
	}

	subscribed, err := subRepo.ListSubscribedChannels(user.ID)
	if err != nil {
		t.Fatalf("Failed to list subscriptions: %v", err)
	}
	if len(subscribed) != 1 {
		t.Fatalf("Repeated subscribes must yield one edge, got %d", len(subscribed))
	}
	if subscribed[0].SubscriberCount != 1 {
		t.Errorf("Expected 1 subscriber, got %d", subscribed[0].SubscriberCount)
	}
}

func TestSubscriptionRepository_ListUnsubscribed(t *testing.T) {
	db := setupTestDB(t)
	channelRepo := NewChannelRepository(db)
	userRepo := NewUserRepository(db)
	subRepo := NewSubscriptionRepository(db)

	user, _ := userRepo.EnsureUser("reader@example.com")
	mine, _ := channelRepo.CreateChannel("https://a.example/feed.xml")
	other, _ := channelRepo.CreateChannel("https://b.example/feed.xml")

	if err := subRepo.Subscribe(user.ID, mine.ID); err != nil {
		t.Fatalf("Failed to subscribe: %v", err)
	}

	discoverable, err := subRepo.ListUnsubscribedChannels(user.ID, 10)
	if err != nil {
		t.Fatalf("Failed to list unsubscribed channels: %v", err)
	}
	if len(discoverable) != 1 || discoverable[0].ID != other.ID {
		t.Errorf("Expected only the unsubscribed channel, got %+v", discoverable)
	}

	if err := subRepo.Unsubscribe(user.ID, mine.ID); err != nil {
		t.Fatalf("Failed to unsubscribe: %v", err)
	}
	discoverable, _ = subRepo.ListUnsubscribedChannels(user.ID, 10)
	if len(discoverable) != 2 {
		t.Errorf("Both channels should be discoverable after unsubscribe, got %d", len(discoverable))
	}
}

func TestSubscriptionRepository_ReadAnnotations(t *testing.T) {
	db := setupTestDB(t)
	channelRepo := NewChannelRepository(db)
	itemRepo := NewItemRepository(db)
	userRepo := NewUserRepository(db)
	subRepo := NewSubscriptionRepository(db)

	user, _ := userRepo.EnsureUser("reader@example.com")
	ch, _ := channelRepo.CreateChannel("https://a.example/feed.xml")
	now := time.Now().UTC()
	items := []feed.NewItem{
		{ChannelID: ch.ID, GUID: "g1", Title: "One"},
		{ChannelID: ch.ID, GUID: "g2", Title: "Two"},
	}
	if err := channelRepo.ApplySync(ch.ID, feed.Metadata{Title: "A"}, nil, items, now, now.Add(time.Hour)); err != nil {
		t.Fatalf("Failed to apply sync: %v", err)
	}

	stored, _ := itemRepo.GetItems(ch.ID, 10)
	if len(stored) != 2 {
		t.Fatalf("Expected 2 items, got %d", len(stored))
	}
	first := stored[0]

	// Items without an annotation row come back unread.
	userItems, err := itemRepo.GetItemsForUser(user.ID, ch.ID, 10)
	if err != nil {
		t.Fatalf("Failed to get user items: %v", err)
	}
	for _, it := range userItems {
		if it.HasRead || it.IsReadLater {
			t.Errorf("Untouched item should be unread and unsaved, got %+v", it)
		}
	}

	if err := subRepo.MarkRead(user.ID, first.ID); err != nil {
		t.Fatalf("Failed to mark read: %v", err)
	}
	if err := subRepo.MarkReadLater(user.ID, first.ID, true); err != nil {
		t.Fatalf("Failed to mark read later: %v", err)
	}

	userItems, _ = itemRepo.GetItemsForUser(user.ID, ch.ID, 10)
	for _, it := range userItems {
		if it.ID == first.ID {
			if !it.HasRead || !it.IsReadLater {
				t.Errorf("Annotated item should be read and saved, got %+v", it)
			}
		} else {
			if it.HasRead || it.IsReadLater {
				t.Errorf("Other items must stay untouched, got %+v", it)
			}
		}
	}

	// Clearing read-later leaves the read flag alone.
	if err := subRepo.MarkReadLater(user.ID, first.ID, false); err != nil {
		t.Fatalf("Failed to clear read later: %v", err)
	}
	userItems, _ = itemRepo.GetItemsForUser(user.ID, ch.ID, 10)
	for _, it := range userItems {
		if it.ID == first.ID && (!it.HasRead || it.IsReadLater) {
			t.Errorf("Read flag must survive clearing read-later, got %+v", it)
		}
	}

	// Marking read on an item without an annotation row creates it lazily.
	if err := subRepo.MarkRead(user.ID, first.ID); err != nil {
		t.Fatalf("Re-marking read must be a no-op: %v", err)
	}
}
