// Package processing runs parcel event handlers on an in-process worker pool.
// The API server uses it instead of the Redis queue when Redis is not
// configured.
package processing

import (
	"context"
	"errors"
	"log"
	"sync"

	"github.com/dharsanguruparan/TrackFast/internal/model"
)

// ErrQueueFull is returned by Publish when every buffered slot is taken.
var ErrQueueFull = errors.New("processing queue full")

// HandlerFunc processes one event.
type HandlerFunc func(ctx context.Context, ev model.ParcelEvent) error

// Processor consumes events and hands them to the handler.
type Processor struct {
	handle  HandlerFunc
	queue   chan model.ParcelEvent
	workers int
	wg      sync.WaitGroup
}

// New builds a Processor with queue capacity tied to worker count.
func New(handle HandlerFunc, workers int) *Processor {
	if workers <= 0 {
		workers = 1
	}
	return &Processor{
		handle:  handle,
		queue:   make(chan model.ParcelEvent, workers*4),
		workers: workers,
	}
}

// Start launches worker goroutines. They exit when ctx is cancelled.
func (p *Processor) Start(ctx context.Context) {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker(ctx)
	}
}

// Wait blocks until every worker has exited.
func (p *Processor) Wait() {
	p.wg.Wait()
}

// Publish queues ev without blocking the request that produced it.
func (p *Processor) Publish(_ context.Context, ev model.ParcelEvent) error {
	select {
	case p.queue <- ev:
		return nil
	default:
		return ErrQueueFull
	}
}

func (p *Processor) worker(ctx context.Context) {
	defer p.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-p.queue:
			p.process(ctx, ev)
		}
	}
}

func (p *Processor) process(ctx context.Context, ev model.ParcelEvent) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("event handler panicked: parcel=%s action=%s panic=%v", ev.ParcelID, ev.Action, r)
		}
	}()
	if err := p.handle(ctx, ev); err != nil {
		log.Printf("event handling failed: parcel=%s action=%s err=%v", ev.ParcelID, ev.Action, err)
	}
}
