package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ademidov/feedscope/app/cfg"
	"github.com/ademidov/feedscope/app/database"
	"github.com/ademidov/feedscope/app/syncer"
)

var _ TaskSchedulerInterface = (*Scheduler)(nil)

// Scheduler drives periodic channel synchronization: a ticker enqueues a
// sync task for every channel due for refresh and a worker pool executes
// them. Channels are independent units of work; the synchronizer's
// per-channel lock keeps a queued duplicate from overlapping a running
// sync of the same channel.
type Scheduler struct {
	channelRepo  database.ChannelRepository
	synchronizer *syncer.Synchronizer
	interval     time.Duration
	workerCount  int
	ctx          context.Context
	cancel       context.CancelFunc
	wg           sync.WaitGroup
	taskQueue    chan TaskInterface
}

const dueChannelBatchSize = 50

func NewScheduler(channelRepo database.ChannelRepository, synchronizer *syncer.Synchronizer) TaskSchedulerInterface {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := cfg.Get()

	return &Scheduler{
		channelRepo:  channelRepo,
		synchronizer: synchronizer,
		interval:     time.Duration(cfg.SchedulerInterval) * time.Second,
		workerCount:  cfg.WorkerCount,
		ctx:          ctx,
		cancel:       cancel,
		taskQueue:    make(chan TaskInterface, 300),
	}
}

func (s *Scheduler) Start() {
	for i := 0; i < s.workerCount; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.enqueueDueChannels()

		for {
			select {
			case <-s.ctx.Done():
				return
			case <-ticker.C:
				s.enqueueDueChannels()
			}
		}
	}()
}

func (s *Scheduler) Stop() {
	s.cancel()
	s.wg.Wait()
	close(s.taskQueue)
}

func (s *Scheduler) EnqueueTask(task TaskInterface) error {
	select {
	case s.taskQueue <- task:
		return nil
	case <-s.ctx.Done():
		return s.ctx.Err()
	default:
		return fmt.Errorf("task queue is full")
	}
}

func (s *Scheduler) enqueueDueChannels() {
	channels, err := s.channelRepo.GetChannelsDueForRefresh(dueChannelBatchSize)
	if err != nil {
		slog.Warn("Failed to load channels due for refresh", "error", err)
		return
	}
	if len(channels) == 0 {
		slog.Debug("No channels due for refresh")
		return
	}

	slog.Debug("Enqueueing channel sync tasks", "count", len(channels))

	for _, ch := range channels {
		task := NewSyncChannelTask(ch, s.synchronizer)
		if err := s.EnqueueTask(task); err != nil {
			slog.Warn("Failed to enqueue SyncChannelTask", "channel_id", ch.ID, "error", err)
		}
	}
}

func (s *Scheduler) worker(id int) {
	defer s.wg.Done()

	for {
		select {
		case task, ok := <-s.taskQueue:
			if !ok {
				return
			}
			s.executeTask(id, task)

		case <-s.ctx.Done():
			return
		}
	}
}

func (s *Scheduler) executeTask(workerID int, task TaskInterface) {
	task.Start()

	taskCtx, cancel := context.WithTimeout(s.ctx, 5*time.Minute)
	defer cancel()

	if err := task.Execute(taskCtx); err != nil {
		slog.Error("Worker task execution failed",
			"worker_id", workerID,
			"type", string(task.GetType()),
			"id", task.GetID(),
			"channel_id", task.GetChannelID(),
			"error", err)
	}
}
