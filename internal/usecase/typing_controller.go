package usecase

import (
	"context"
	"strings"
	"sync"
	"time"

	"chatterbox/pkg/logger"
)

const typingWriteTimeout = 5 * time.Second

type TypingSetter interface {
	SetTyping(ctx context.Context, chatID, userID string, typing bool) error
}

// TypingController turns compose-field activity of one user in one chat into
// start/stop typing writes: one start per continuous typing session, a stop after
// the inactivity timeout or as soon as the text is emptied. Writes run in the
// background in the order they were decided, so callers never wait on the store.
type TypingController struct {
	setter  TypingSetter
	chatID  string
	userID  string
	timeout time.Duration

	mu       sync.Mutex
	typing   bool
	timer    *time.Timer
	gen      uint64
	closed   bool
	queue    []bool
	draining bool
	drained  *sync.Cond
}

func NewTypingController(setter TypingSetter, chatID, userID string, timeout time.Duration) *TypingController {
	c := &TypingController{
		setter:  setter,
		chatID:  chatID,
		userID:  userID,
		timeout: timeout,
	}
	c.drained = sync.NewCond(&c.mu)
	return c
}

// Input reports the current compose text.
func (c *TypingController) Input(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	if strings.TrimSpace(text) == "" {
		c.stopLocked()
		return
	}

	if !c.typing {
		c.typing = true
		c.publishLocked(true)
	}

	if c.timer != nil {
		c.timer.Stop()
	}
	c.gen++
	gen := c.gen
	c.timer = time.AfterFunc(c.timeout, func() { c.expire(gen) })
}

// Stop ends the typing session now, e.g. after the message was sent.
func (c *TypingController) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopLocked()
}

// Close stops the session and clears the timer. Later input is ignored.
func (c *TypingController) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopLocked()
	c.closed = true
}

func (c *TypingController) IsTyping() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.typing
}

func (c *TypingController) expire(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// A newer keystroke re-armed the timer.
	if c.closed || gen != c.gen || !c.typing {
		return
	}
	c.timer = nil
	c.typing = false
	c.publishLocked(false)
}

func (c *TypingController) stopLocked() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.gen++
	if c.typing {
		c.typing = false
		c.publishLocked(false)
	}
}

// publishLocked queues a write. A single drain goroutine at a time applies the
// queue in order, so a start never lands after the stop that followed it.
func (c *TypingController) publishLocked(typing bool) {
	c.queue = append(c.queue, typing)
	if !c.draining {
		c.draining = true
		go c.drain()
	}
}

func (c *TypingController) drain() {
	for {
		c.mu.Lock()
		if len(c.queue) == 0 {
			c.draining = false
			c.drained.Broadcast()
			c.mu.Unlock()
			return
		}
		typing := c.queue[0]
		c.queue = c.queue[1:]
		c.mu.Unlock()

		c.write(typing)
	}
}

func (c *TypingController) write(typing bool) {
	ctx, cancel := context.WithTimeout(context.Background(), typingWriteTimeout)
	defer cancel()

	if err := c.setter.SetTyping(ctx, c.chatID, c.userID, typing); err != nil {
		logger.Warn("Failed to set typing=%t for user %s in chat %s: %v", typing, c.userID, c.chatID, err)
	}
}

// Flush blocks until every queued typing write has been applied.
func (c *TypingController) Flush() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for c.draining {
		c.drained.Wait()
	}
}
