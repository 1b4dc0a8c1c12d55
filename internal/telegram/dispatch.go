package telegram

import (
	"context"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Dispatcher runs updates concurrently across users while keeping each
// user's updates in arrival order. A worker goroutine exists only while its
// user has queued updates.
type Dispatcher struct {
	handle func(context.Context, tgbotapi.Update)

	mu     sync.Mutex
	queues map[int64][]tgbotapi.Update
	wg     sync.WaitGroup
}

func NewDispatcher(handle func(context.Context, tgbotapi.Update)) *Dispatcher {
	return &Dispatcher{handle: handle, queues: make(map[int64][]tgbotapi.Update)}
}

// Dispatch queues upd behind any pending update from the same user.
func (d *Dispatcher) Dispatch(ctx context.Context, upd tgbotapi.Update) {
	key := updateKey(upd)

	d.mu.Lock()
	defer d.mu.Unlock()
	q, busy := d.queues[key]
	d.queues[key] = append(q, upd)
	if !busy {
		d.wg.Add(1)
		go d.drain(ctx, key)
	}
}

// Wait blocks until every queued update has been handled.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func (d *Dispatcher) drain(ctx context.Context, key int64) {
	defer d.wg.Done()
	for {
		d.mu.Lock()
		q := d.queues[key]
		if len(q) == 0 {
			delete(d.queues, key)
			d.mu.Unlock()
			return
		}
		upd := q[0]
		d.queues[key] = q[1:]
		d.mu.Unlock()

		d.handle(ctx, upd)
	}
}

// updateKey is the sender's user id, falling back to the chat id.
func updateKey(upd tgbotapi.Update) int64 {
	msg := upd.Message
	switch {
	case msg == nil:
		return 0
	case msg.From != nil:
		return msg.From.ID
	case msg.Chat != nil:
		return msg.Chat.ID
	default:
		return 0
	}
}
