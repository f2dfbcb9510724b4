package tasks

import (
	"context"
	"log/slog"

	"github.com/ademidov/feedscope/app/database"
	"github.com/ademidov/feedscope/app/syncer"
)

type SyncChannelTask struct {
	Task
	Channel      database.Channel
	synchronizer *syncer.Synchronizer
}

func NewSyncChannelTask(channel database.Channel, synchronizer *syncer.Synchronizer) *SyncChannelTask {
	return &SyncChannelTask{
		Task:         NewTask(TaskTypeSyncChannel, channel.ID),
		Channel:      channel,
		synchronizer: synchronizer,
	}
}

// Execute runs one sync attempt for the task's channel. A failed attempt
// is not retried here: the channel is picked up again when it next comes
// due, and the sync itself is idempotent.
func (t *SyncChannelTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	result := t.synchronizer.SyncChannel(ctx, t.Channel)

	if result.Err != nil {
		slog.Warn("Channel sync failed",
			"channel_id", result.ChannelID,
			"origin", result.Origin,
			"status", string(result.Status),
			"duration", t.GetDuration(),
			"error", result.Err)
		return result.Err
	}

	slog.Info("Task completed",
		"type", "SyncChannel",
		"channel_id", result.ChannelID,
		"origin", result.Origin,
		"duration", t.GetDuration(),
		"new", result.Inserted,
		"image_created", result.ImageCreated)

	return nil
}
