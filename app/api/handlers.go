package api

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ademidov/feedscope/app/cfg"
	"github.com/ademidov/feedscope/app/database"
	"github.com/ademidov/feedscope/app/syncer"
	"github.com/ademidov/feedscope/app/tasks"
)

const defaultItemLimit = 100

func NewHandler(channelRepo database.ChannelRepository, itemRepo database.ItemRepository,
	imageRepo database.ImageRepository, userRepo database.UserRepository,
	subscriptionRepo database.SubscriptionRepository,
	scheduler tasks.TaskSchedulerInterface, synchronizer *syncer.Synchronizer) *Handler {
	return &Handler{
		channelRepo:      channelRepo,
		itemRepo:         itemRepo,
		imageRepo:        imageRepo,
		userRepo:         userRepo,
		subscriptionRepo: subscriptionRepo,
		scheduler:        scheduler,
		synchronizer:     synchronizer,
	}
}

func (h *Handler) GetHealth(c *gin.Context) {
	health := map[string]interface{}{
		"timestamp": time.Now().In(time.Local).Format(time.RFC3339),
		"version":   cfg.Get().Version,
	}

	if channelCount, err := h.channelRepo.GetChannelCount(); err == nil {
		health["channels"] = channelCount
	}

	c.JSON(http.StatusOK, health)
}

func (h *Handler) GetStats(c *gin.Context) {
	stats := map[string]interface{}{}

	if channelCount, err := h.channelRepo.GetChannelCount(); err == nil {
		stats["channels"] = channelCount
	}
	if itemCount, err := h.itemRepo.GetTotalItemCount(); err == nil {
		stats["items"] = itemCount
	}
	if userCount, err := h.userRepo.GetUserCount(); err == nil {
		stats["users"] = userCount
	}

	channels, err := h.channelRepo.GetChannels()
	if err == nil {
		channelStats := make([]map[string]interface{}, 0, len(channels))
		for _, ch := range channels {
			info := map[string]interface{}{
				"id":              ch.ID,
				"title":           ch.Title,
				"origin":          ch.Origin,
				"last_fetched_at": ch.LastFetchedAt,
				"next_fetch_at":   ch.NextFetchAt,
			}
			if count, err := h.itemRepo.GetItemCount(ch.ID); err == nil {
				info["item_count"] = count
			}
			channelStats = append(channelStats, info)
		}
		stats["channel_details"] = channelStats
	}

	c.JSON(http.StatusOK, stats)
}

func (h *Handler) APICreateUser(c *gin.Context) {
	var req struct {
		Email string `json:"email" binding:"required,email"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Valid email is required"})
		return
	}

	user, err := h.userRepo.EnsureUser(req.Email)
	if err != nil {
		slog.Error("Database error", "operation", "ensure_user", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create user"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"id":    user.ID,
		"email": user.Email,
	})
}

// APISubscribe subscribes a user to a channel by origin URL. The first
// subscription to a new origin creates the channel and enqueues its
// initial synchronization; subscribing again is a no-op.
func (h *Handler) APISubscribe(c *gin.Context) {
	user := h.lookupUser(c)
	if user == nil {
		return
	}

	var req subscribeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Origin URL is required"})
		return
	}

	channel, err := h.channelRepo.GetChannelByOrigin(req.Origin)
	if err != nil {
		slog.Error("Database error", "operation", "get_channel_by_origin", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to look up channel"})
		return
	}

	created := false
	if channel == nil {
		channel, err = h.channelRepo.CreateChannel(req.Origin)
		if err != nil {
			slog.Error("Database error", "operation", "create_channel", "origin", req.Origin, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create channel"})
			return
		}
		created = true

		task := tasks.NewSyncChannelTask(*channel, h.synchronizer)
		if err := h.scheduler.EnqueueTask(task); err != nil {
			slog.Warn("Failed to enqueue initial sync", "channel_id", channel.ID, "error", err)
		}
	}

	if err := h.subscriptionRepo.Subscribe(user.ID, channel.ID); err != nil {
		slog.Error("Database error", "operation", "subscribe", "user_id", user.ID, "channel_id", channel.ID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to subscribe"})
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}

	c.JSON(status, gin.H{
		"channel_id": channel.ID,
		"origin":     channel.Origin,
		"created":    created,
	})
}

func (h *Handler) APIUnsubscribe(c *gin.Context) {
	user := h.lookupUser(c)
	if user == nil {
		return
	}

	channelID := c.Param("channelID")
	if err := h.subscriptionRepo.Unsubscribe(user.ID, channelID); err != nil {
		slog.Error("Database error", "operation", "unsubscribe", "user_id", user.ID, "channel_id", channelID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to unsubscribe"})
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *Handler) APIListChannels(c *gin.Context) {
	user := h.lookupUser(c)
	if user == nil {
		return
	}

	channels, err := h.subscriptionRepo.ListSubscribedChannels(user.ID)
	if err != nil {
		slog.Error("Database error", "operation", "list_subscribed_channels", "user_id", user.ID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list channels"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"channels": h.renderChannels(channels),
		"total":    len(channels),
	})
}

func (h *Handler) APIDiscoverChannels(c *gin.Context) {
	user := h.lookupUser(c)
	if user == nil {
		return
	}

	limit := 10
	if raw := c.Query("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	channels, err := h.subscriptionRepo.ListUnsubscribedChannels(user.ID, limit)
	if err != nil {
		slog.Error("Database error", "operation", "list_unsubscribed_channels", "user_id", user.ID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list channels"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"channels": h.renderChannels(channels),
		"total":    len(channels),
	})
}

// APIGetChannelItems returns a channel's items with the caller's read and
// read-later flags. Descriptions are returned raw; sanitization is the
// consumer's responsibility.
func (h *Handler) APIGetChannelItems(c *gin.Context) {
	user := h.lookupUser(c)
	if user == nil {
		return
	}

	channelID := c.Param("channelID")
	channel, err := h.channelRepo.GetChannel(channelID)
	if err != nil {
		slog.Error("Database error", "operation", "get_channel", "channel_id", channelID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to look up channel"})
		return
	}
	if channel == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Channel not found"})
		return
	}

	limit := defaultItemLimit
	if raw := c.Query("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	items, err := h.itemRepo.GetItemsForUser(user.ID, channelID, limit)
	if err != nil {
		slog.Error("Database error", "operation", "get_items_for_user", "channel_id", channelID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get items"})
		return
	}

	rendered := make([]map[string]interface{}, 0, len(items))
	for _, item := range items {
		rendered = append(rendered, map[string]interface{}{
			"id":            item.ID,
			"guid":          item.GUID,
			"title":         item.Title,
			"link":          item.Link,
			"description":   item.Description,
			"published_at":  item.PublishedAt,
			"has_read":      item.HasRead,
			"is_read_later": item.IsReadLater,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"channel_id": channelID,
		"items":      rendered,
		"total":      len(rendered),
	})
}

func (h *Handler) APIMarkRead(c *gin.Context) {
	user, item := h.lookupUserAndItem(c)
	if user == nil || item == nil {
		return
	}

	if err := h.subscriptionRepo.MarkRead(user.ID, item.ID); err != nil {
		slog.Error("Database error", "operation", "mark_read", "user_id", user.ID, "item_id", item.ID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to mark item read"})
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *Handler) APIMarkReadLater(c *gin.Context) {
	user, item := h.lookupUserAndItem(c)
	if user == nil || item == nil {
		return
	}

	var req readLaterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	if err := h.subscriptionRepo.MarkReadLater(user.ID, item.ID, req.ReadLater); err != nil {
		slog.Error("Database error", "operation", "mark_read_later", "user_id", user.ID, "item_id", item.ID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update read-later flag"})
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *Handler) APIRefreshChannel(c *gin.Context) {
	channelID := c.Param("id")
	channel, err := h.channelRepo.GetChannel(channelID)
	if err != nil {
		slog.Error("Database error", "operation", "get_channel", "channel_id", channelID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to look up channel"})
		return
	}
	if channel == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Channel not found"})
		return
	}

	task := tasks.NewSyncChannelTask(*channel, h.synchronizer)
	if err := h.scheduler.EnqueueTask(task); err != nil {
		slog.Error("Failed to enqueue channel sync", "channel_id", channelID, "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Task queue is full"})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"channel_id": channelID,
		"message":    "Synchronization scheduled",
	})
}

func (h *Handler) APIDeleteChannel(c *gin.Context) {
	channelID := c.Param("id")
	if err := h.channelRepo.DeleteChannel(channelID); err != nil {
		slog.Error("Database error", "operation", "delete_channel", "channel_id", channelID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete channel"})
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *Handler) lookupUser(c *gin.Context) *database.User {
	userID := c.Param("id")
	user, err := h.userRepo.GetUser(userID)
	if err != nil {
		slog.Error("Database error", "operation", "get_user", "user_id", userID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to look up user"})
		return nil
	}
	if user == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return nil
	}
	return user
}

func (h *Handler) lookupUserAndItem(c *gin.Context) (*database.User, *database.Item) {
	user := h.lookupUser(c)
	if user == nil {
		return nil, nil
	}

	itemID := c.Param("itemID")
	item, err := h.itemRepo.GetItem(itemID)
	if err != nil {
		slog.Error("Database error", "operation", "get_item", "item_id", itemID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to look up item"})
		return user, nil
	}
	if item == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Item not found"})
		return user, nil
	}

	return user, item
}

func (h *Handler) renderChannels(channels []database.ChannelSummary) []map[string]interface{} {
	rendered := make([]map[string]interface{}, 0, len(channels))
	for _, ch := range channels {
		info := map[string]interface{}{
			"id":               ch.ID,
			"title":            ch.Title,
			"description":      ch.Description,
			"link":             ch.Link,
			"origin":           ch.Origin,
			"item_count":       ch.ItemCount,
			"subscriber_count": ch.SubscriberCount,
			"last_fetched_at":  ch.LastFetchedAt,
		}
		if ch.ImageID != nil {
			if img, err := h.imageRepo.GetImage(*ch.ImageID); err == nil && img != nil {
				info["image"] = map[string]string{
					"link":  img.Link,
					"title": img.Title,
					"url":   img.URL,
				}
			}
		}
		rendered = append(rendered, info)
	}
	return rendered
}
