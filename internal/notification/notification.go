// Package notification keeps short-lived flash messages per login session.
// Messages are pushed by background work and drained on the next render.
package notification

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/RealZimboGuy/reviewflow/pkg/reviewflow/core"
)

type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

type Notification struct {
	Level   Level     `json:"level"`
	Message string    `json:"message"`
	Created time.Time `json:"created"`
}

// Notifier accepts a message for whoever owns ctx.
type Notifier interface {
	Notify(ctx context.Context, level Level, message string)
}

// maxPending bounds the queue of a session nobody is reading.
const maxPending = 20

// Center routes notifications to the session found in the context under
// core.CtxKeySessionID. Messages without a session are only logged.
type Center struct {
	mu     sync.Mutex
	clock  core.Clock
	queues map[string][]Notification
}

func NewCenter(clock core.Clock) *Center {
	return &Center{clock: clock, queues: make(map[string][]Notification)}
}

func (c *Center) Notify(ctx context.Context, level Level, message string) {
	sessionID, _ := ctx.Value(core.CtxKeySessionID).(string)
	slog.InfoContext(ctx, "Notification", "level", level, "message", message, "session", sessionID != "")
	if sessionID == "" {
		return
	}
	c.Push(sessionID, Notification{Level: level, Message: message, Created: c.clock.Now()})
}

// Push appends n to the session queue, dropping the oldest entry when full.
func (c *Center) Push(sessionID string, n Notification) {
	c.mu.Lock()
	defer c.mu.Unlock()
	q := append(c.queues[sessionID], n)
	if len(q) > maxPending {
		q = q[len(q)-maxPending:]
	}
	c.queues[sessionID] = q
}

// Drain returns and forgets every pending notification of the session.
func (c *Center) Drain(sessionID string) []Notification {
	c.mu.Lock()
	defer c.mu.Unlock()
	q := c.queues[sessionID]
	delete(c.queues, sessionID)
	return q
}

// Forget drops the queue, e.g. on logout.
func (c *Center) Forget(sessionID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.queues, sessionID)
}

// Discard is a Notifier that drops everything.
type Discard struct{}

func (Discard) Notify(context.Context, Level, string) {}
