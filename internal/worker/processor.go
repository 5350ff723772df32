// Package worker holds the background handlers for parcel events. The asynq
// worker binary serves them through Handler; the API server runs them on the
// in-process pool when Redis is absent.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/hibiken/asynq"

	"github.com/dharsanguruparan/TrackFast/internal/model"
	"github.com/dharsanguruparan/TrackFast/internal/notify"
	"github.com/dharsanguruparan/TrackFast/internal/queue"
)

// ParcelReader loads parcels.
type ParcelReader interface {
	Get(ctx context.Context, id string) (*model.Parcel, error)
}

// MessageReader loads support messages.
type MessageReader interface {
	Get(ctx context.Context, id string) (*model.Message, error)
}

// Archive stores parcel snapshots.
type Archive interface {
	PutSnapshot(ctx context.Context, parcelID string, data []byte) error
	RemoveSnapshot(ctx context.Context, parcelID string) error
}

// Notifier delivers operator notices.
type Notifier interface {
	Notify(ctx context.Context, text string) error
}

// Snapshot is the archived JSON document for a parcel.
type Snapshot struct {
	*model.TrackedParcel
	ArchivedAt time.Time         `json:"archivedAt"`
	Reason     model.EventAction `json:"reason"`
}

// Processor is plugged into the asynq worker loop and the in-process pool.
// archive and notifier may be nil to switch that half off.
type Processor struct {
	parcels  ParcelReader
	messages MessageReader
	archive  Archive
	notifier Notifier
	now      func() time.Time
}

// NewProcessor constructs a worker processor.
func NewProcessor(parcels ParcelReader, messages MessageReader, archive Archive, notifier Notifier) *Processor {
	return &Processor{
		parcels:  parcels,
		messages: messages,
		archive:  archive,
		notifier: notifier,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Handler registers the task handlers.
func (p *Processor) Handler() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(queue.ArchiveParcelTask, p.handleTask)
	mux.HandleFunc(queue.NotifySupportTask, p.handleTask)
	return mux
}

// Handle processes one event; it is the in-process equivalent of a task.
func (p *Processor) Handle(ctx context.Context, ev model.ParcelEvent) error {
	if queue.TaskType(ev) == queue.NotifySupportTask {
		return p.notifySupport(ctx, ev)
	}
	return p.archiveParcel(ctx, ev)
}

func (p *Processor) handleTask(ctx context.Context, task *asynq.Task) error {
	ev, err := queue.DecodeEvent(task)
	if err != nil {
		// A malformed payload will never succeed.
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}
	if err := p.Handle(ctx, ev); err != nil {
		log.Printf("task %s failed: parcel=%s action=%s err=%v", task.Type(), ev.ParcelID, ev.Action, err)
		return err
	}
	return nil
}

func (p *Processor) archiveParcel(ctx context.Context, ev model.ParcelEvent) error {
	if p.archive == nil {
		return nil
	}
	if ev.Action == model.ActionDeleted {
		if err := p.archive.RemoveSnapshot(ctx, ev.ParcelID); err != nil {
			return err
		}
		log.Printf("snapshot removed: parcel=%s", ev.ParcelID)
		return nil
	}
	parcel, err := p.parcels.Get(ctx, ev.ParcelID)
	if errors.Is(err, model.ErrNotFound) {
		// Deleted after the event was queued; the delete event cleans up.
		log.Printf("snapshot skipped, parcel gone: parcel=%s action=%s", ev.ParcelID, ev.Action)
		return nil
	}
	if err != nil {
		return fmt.Errorf("load parcel %s: %w", ev.ParcelID, err)
	}
	data, err := json.Marshal(Snapshot{TrackedParcel: model.Track(parcel), ArchivedAt: p.now(), Reason: ev.Action})
	if err != nil {
		return fmt.Errorf("marshal snapshot %s: %w", ev.ParcelID, err)
	}
	if err := p.archive.PutSnapshot(ctx, ev.ParcelID, data); err != nil {
		return err
	}
	log.Printf("snapshot stored: parcel=%s action=%s bytes=%d", ev.ParcelID, ev.Action, len(data))
	return nil
}

func (p *Processor) notifySupport(ctx context.Context, ev model.ParcelEvent) error {
	if p.notifier == nil || ev.MessageID == "" {
		return nil
	}
	msg, err := p.messages.Get(ctx, ev.MessageID)
	if errors.Is(err, model.ErrNotFound) {
		log.Printf("notice skipped, message gone: parcel=%s message=%s", ev.ParcelID, ev.MessageID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("load message %s: %w", ev.MessageID, err)
	}
	// Operators only need to hear about customers.
	if msg.Sender != model.SenderUser {
		return nil
	}
	parcel, err := p.parcels.Get(ctx, msg.ParcelID)
	if err != nil && !errors.Is(err, model.ErrNotFound) {
		return fmt.Errorf("load parcel %s: %w", msg.ParcelID, err)
	}
	if err := p.notifier.Notify(ctx, notify.SupportNotice(parcel, msg)); err != nil {
		return err
	}
	log.Printf("support notice sent: parcel=%s message=%s", msg.ParcelID, msg.ID)
	return nil
}
