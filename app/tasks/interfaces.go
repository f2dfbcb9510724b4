package tasks

// TaskSchedulerInterface is the surface the rest of the application uses
// to run background work: start/stop the worker pool and enqueue tasks
// out of band (e.g. a manual channel refresh from the API).
type TaskSchedulerInterface interface {
	Start()
	Stop()
	EnqueueTask(task TaskInterface) error
}
