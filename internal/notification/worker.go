package notification

import (
	"context"
	"log"
)

// Sender delivers one rendered notification over a single channel.
type Sender interface {
	Send(ctx context.Context, n Notification, msg Message) error
}

// WorkerPool manages a pool of workers for delivering notifications.
type WorkerPool struct {
	size    int
	jobs    chan Notification
	senders []Sender
}

// NewWorkerPool creates a new worker pool that delivers every job through
// all of the given senders.
func NewWorkerPool(size int, senders ...Sender) *WorkerPool {
	return &WorkerPool{
		size:    size,
		jobs:    make(chan Notification, size*16),
		senders: senders,
	}
}

// Start launches the worker goroutines.
func (wp *WorkerPool) Start(ctx context.Context) {
	for i := 0; i < wp.size; i++ {
		go wp.worker(ctx, i)
	}
}

func (wp *WorkerPool) worker(ctx context.Context, id int) {
	log.Printf("Notification worker %d started", id)
	for {
		select {
		case n := <-wp.jobs:
			wp.deliver(ctx, n)
		case <-ctx.Done():
			log.Printf("Notification worker %d shutting down", id)
			return
		}
	}
}

// Notify queues n unless ctx is done first.
func (wp *WorkerPool) Notify(ctx context.Context, n Notification) error {
	select {
	case wp.jobs <- n:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Jobs returns the jobs channel for testing.
func (wp *WorkerPool) Jobs() chan Notification {
	return wp.jobs
}

func (wp *WorkerPool) deliver(ctx context.Context, n Notification) {
	msg, err := Render(n)
	if err != nil {
		log.Printf("Dropping notification for user %d: %v", n.To.UserID, err)
		return
	}
	for _, s := range wp.senders {
		if err := s.Send(ctx, n, msg); err != nil {
			log.Printf("Error sending %s to user %d: %v", n.Template, n.To.UserID, err)
		}
	}
}
