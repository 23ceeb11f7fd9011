package jobs

import (
	"encoding/json"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskListingWarmup preloads the first listing pages into the cache.
	TaskListingWarmup = "listing:warmup"
)

// DefaultWarmupPages is used when a payload asks for no pages.
const DefaultWarmupPages = 3

// ListingWarmupPayload describes which listing pages to preload.
type ListingWarmupPayload struct {
	Pages int `json:"pages"`
	Take  int `json:"take"`
	// Refresh drops cached catalog responses before warming.
	Refresh bool `json:"refresh,omitempty"`
}

// NewListingWarmupTask constructs an Asynq task.
func NewListingWarmupTask(payload ListingWarmupPayload, opts ...asynq.Option) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskListingWarmup, data, opts...), nil
}

func newTaskID() asynq.Option {
	return asynq.TaskID(TaskListingWarmup + ":" + uuid.NewString())
}
