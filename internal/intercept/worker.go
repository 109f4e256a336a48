package intercept

import (
	"context"
	"fmt"
	"log"
)

// ErrWorkerStopped is returned by Post and Send once Run has returned.
var ErrWorkerStopped = fmt.Errorf("worker stopped")

// DefaultQueueDepth is the number of messages that can wait for the worker.
const DefaultQueueDepth = 16

type envelope struct {
	ctx     context.Context
	msg     Message
	deliver func(Reply, bool)
}

// Worker processes messages one at a time on a single goroutine, in the
// order they were posted. Each reply goes only to the requester that
// posted the message.
type Worker struct {
	handler MessageHandler
	queue   chan envelope
	stopped chan struct{}
}

// NewWorker creates a Worker. depth <= 0 uses DefaultQueueDepth.
func NewWorker(handler MessageHandler, depth int) *Worker {
	if depth <= 0 {
		depth = DefaultQueueDepth
	}
	return &Worker{
		handler: handler,
		queue:   make(chan envelope, depth),
		stopped: make(chan struct{}),
	}
}

// Run processes queued messages until ctx is done. Messages still queued
// at that point are dropped without a reply.
func (w *Worker) Run(ctx context.Context) error {
	defer close(w.stopped)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case env := <-w.queue:
			w.handle(env)
		}
	}
}

func (w *Worker) handle(env envelope) {
	// Once picked up, a message runs to completion even if its poster gives up.
	reply, ok := w.handler.HandleMessage(context.WithoutCancel(env.ctx), env.msg)
	if !ok {
		log.Printf("intercept: ignoring message type %q", env.msg.Type)
	}
	env.deliver(reply, ok)
}

// Post queues msg. If the message is handled, its reply is sent on replyTo
// unless ctx is done first. Unrecognized message types get no reply.
func (w *Worker) Post(ctx context.Context, msg Message, replyTo chan<- Reply) error {
	return w.enqueue(ctx, envelope{
		ctx: ctx,
		msg: msg,
		deliver: func(r Reply, ok bool) {
			if !ok || replyTo == nil {
				return
			}
			select {
			case replyTo <- r:
			case <-ctx.Done():
			}
		},
	})
}

// Send queues msg and waits for its outcome. The bool is false when the
// message type was not recognized.
func (w *Worker) Send(ctx context.Context, msg Message) (Reply, bool, error) {
	type outcome struct {
		reply Reply
		ok    bool
	}
	done := make(chan outcome, 1)

	err := w.enqueue(ctx, envelope{
		ctx: ctx,
		msg: msg,
		deliver: func(r Reply, ok bool) {
			done <- outcome{reply: r, ok: ok}
		},
	})
	if err != nil {
		return Reply{}, false, err
	}

	select {
	case out := <-done:
		return out.reply, out.ok, nil
	case <-ctx.Done():
		return Reply{}, false, ctx.Err()
	case <-w.stopped:
		// The message may have been handled just before Run returned.
		select {
		case out := <-done:
			return out.reply, out.ok, nil
		default:
			return Reply{}, false, ErrWorkerStopped
		}
	}
}

func (w *Worker) enqueue(ctx context.Context, env envelope) error {
	select {
	case <-w.stopped:
		return ErrWorkerStopped
	default:
	}
	select {
	case w.queue <- env:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-w.stopped:
		return ErrWorkerStopped
	}
}
