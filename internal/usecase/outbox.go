package usecase

import (
	"context"
	"sync"

	"chatterbox/internal/domain/entity"
	"chatterbox/pkg/errors"
)

type OutboxState string

const (
	OutboxPending   OutboxState = "pending"
	OutboxConfirmed OutboxState = "confirmed"
	OutboxFailed    OutboxState = "failed"
)

// OutboxEntry is one optimistic send as seen by the client that issued it.
type OutboxEntry struct {
	TempID  string
	Message *entity.Message
	State   OutboxState
	Err     error
}

type OutboxListener func(entry OutboxEntry)

// Outbox tracks sends of one client by temp id. A send is pending until the store
// confirms it; a failed send keeps its message for Retry and is never dropped.
type Outbox struct {
	ctx      context.Context
	messages *MessageUseCase
	notify   OutboxListener

	mu      sync.Mutex
	entries map[string]*OutboxEntry
	wg      sync.WaitGroup
}

func NewOutbox(ctx context.Context, messages *MessageUseCase, notify OutboxListener) *Outbox {
	if notify == nil {
		notify = func(OutboxEntry) {}
	}
	return &Outbox{
		ctx:      ctx,
		messages: messages,
		notify:   notify,
		entries:  make(map[string]*OutboxEntry),
	}
}

// Submit validates synchronously, reports the pending state and delivers in the
// background. Validation errors are returned and leave no entry behind.
func (o *Outbox) Submit(tempID string, input SendMessageInput) (*entity.Message, error) {
	if tempID == "" {
		return nil, errors.Validation("temp id is required")
	}

	message, err := o.messages.Prepare(input)
	if err != nil {
		return nil, err
	}
	entry := &OutboxEntry{TempID: tempID, Message: message}

	o.mu.Lock()
	if _, ok := o.entries[tempID]; ok {
		o.mu.Unlock()
		return nil, errors.Conflict("A message with this temp id is already in flight")
	}
	snapshot := o.beginLocked(entry)
	o.mu.Unlock()

	o.notify(snapshot)
	go o.deliver(entry)
	return message, nil
}

// Retry re-sends a failed entry with its original message.
func (o *Outbox) Retry(tempID string) (*entity.Message, error) {
	o.mu.Lock()
	entry, ok := o.entries[tempID]
	if !ok {
		o.mu.Unlock()
		return nil, errors.NotFound("Pending message", nil)
	}
	if entry.State != OutboxFailed {
		o.mu.Unlock()
		return nil, errors.Conflict("Message is not in a failed state")
	}
	snapshot := o.beginLocked(entry)
	o.mu.Unlock()

	o.notify(snapshot)
	go o.deliver(entry)
	return entry.Message, nil
}

// beginLocked marks entry pending and accounts for its delivery. o.mu must be held.
func (o *Outbox) beginLocked(entry *OutboxEntry) OutboxEntry {
	entry.State = OutboxPending
	entry.Err = nil
	o.entries[entry.TempID] = entry
	o.wg.Add(1)
	return *entry
}

func (o *Outbox) deliver(entry *OutboxEntry) {
	defer o.wg.Done()

	err := o.messages.Deliver(o.ctx, entry.Message)

	o.mu.Lock()
	if err != nil {
		entry.State = OutboxFailed
		entry.Err = err
	} else {
		entry.State = OutboxConfirmed
		delete(o.entries, entry.TempID)
	}
	snapshot := *entry
	o.mu.Unlock()

	o.notify(snapshot)
}

// Get returns the tracked entry for tempID. Confirmed sends are no longer tracked.
func (o *Outbox) Get(tempID string) (OutboxEntry, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	entry, ok := o.entries[tempID]
	if !ok {
		return OutboxEntry{}, false
	}
	return *entry, true
}

// Failed lists entries waiting for a retry.
func (o *Outbox) Failed() []OutboxEntry {
	o.mu.Lock()
	defer o.mu.Unlock()
	var out []OutboxEntry
	for _, entry := range o.entries {
		if entry.State == OutboxFailed {
			out = append(out, *entry)
		}
	}
	return out
}

// Wait blocks until every in-flight delivery has settled.
func (o *Outbox) Wait() {
	o.wg.Wait()
}
