package api

import (
	"github.com/ademidov/feedscope/app/database"
	"github.com/ademidov/feedscope/app/syncer"
	"github.com/ademidov/feedscope/app/tasks"
)

type Handler struct {
	channelRepo      database.ChannelRepository
	itemRepo         database.ItemRepository
	imageRepo        database.ImageRepository
	userRepo         database.UserRepository
	subscriptionRepo database.SubscriptionRepository
	scheduler        tasks.TaskSchedulerInterface
	synchronizer     *syncer.Synchronizer
}

type subscribeRequest struct {
	Origin string `json:"origin" binding:"required"`
}

type readLaterRequest struct {
	ReadLater bool `json:"read_later"`
}
