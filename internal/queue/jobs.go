// Package queue publishes parcel events as asynq tasks for the worker binary.
package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"

	"github.com/dharsanguruparan/TrackFast/internal/config"
	"github.com/dharsanguruparan/TrackFast/internal/model"
)

const (
	// ArchiveParcelTask refreshes or removes a parcel's snapshot after any
	// parcel mutation.
	ArchiveParcelTask = "parcel:archive"
	// NotifySupportTask forwards a new support message to the operators.
	NotifySupportTask = "support:notify"
)

// RedisOpt builds the asynq connection settings from the Config.
func RedisOpt(cfg *config.Config) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}
}

// TaskType picks the task an event is delivered as.
func TaskType(ev model.ParcelEvent) string {
	if ev.Action == model.ActionMessage {
		return NotifySupportTask
	}
	return ArchiveParcelTask
}

// NewTask serializes ev into its task.
func NewTask(ev model.ParcelEvent) (*asynq.Task, error) {
	data, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	return asynq.NewTask(TaskType(ev), data), nil
}

// DecodeEvent reads the event back out of a task payload.
func DecodeEvent(task *asynq.Task) (model.ParcelEvent, error) {
	var ev model.ParcelEvent
	if err := json.Unmarshal(task.Payload(), &ev); err != nil {
		return ev, fmt.Errorf("decode %s payload: %w", task.Type(), err)
	}
	if ev.ParcelID == "" {
		return ev, fmt.Errorf("decode %s payload: missing parcel_id", task.Type())
	}
	return ev, nil
}

// Publisher enqueues parcel events on Redis.
type Publisher struct {
	client *asynq.Client
}

// NewPublisher wraps an asynq client.
func NewPublisher(client *asynq.Client) *Publisher {
	return &Publisher{client: client}
}

// Publish enqueues ev with up to five retries.
func (p *Publisher) Publish(ctx context.Context, ev model.ParcelEvent) error {
	task, err := NewTask(ev)
	if err != nil {
		return err
	}
	if _, err := p.client.EnqueueContext(ctx, task, asynq.MaxRetry(5)); err != nil {
		return fmt.Errorf("enqueue %s task: %w", task.Type(), err)
	}
	return nil
}
