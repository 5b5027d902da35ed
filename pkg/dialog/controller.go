package dialog

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"
)

// Controller hosts at most one open session. Opening a new one discards the
// previous session and everything it still had in flight.
type Controller struct {
	deps Deps
	cb   Callbacks
	log  logrus.FieldLogger

	mu      sync.Mutex
	current *Session
}

func NewController(deps Deps, cb Callbacks, log logrus.FieldLogger) *Controller {
	return &Controller{
		deps: deps,
		cb:   cb,
		log:  log.WithField("component", "dialog"),
	}
}

// Open starts a fresh session and begins loading balances
func (c *Controller) Open(ctx context.Context) *Session {
	s := newSession(ctx, c.deps, c.cb, c.log)

	c.mu.Lock()
	prev := c.current
	c.current = s
	c.mu.Unlock()

	if prev != nil {
		prev.close()
	}

	s.log.Info("dialog opened")
	if c.cb.OnOpen != nil {
		c.cb.OnOpen()
	}

	s.refreshBalances()
	return s
}

// Close discards the open session, if any
func (c *Controller) Close() {
	c.mu.Lock()
	s := c.current
	c.current = nil
	c.mu.Unlock()

	if s == nil {
		return
	}

	view := s.State().View
	s.close()
	c.deps.Metrics.RecordSessionEnd(string(view))

	s.log.WithField("view", view).Info("dialog closed")
	if c.cb.OnClose != nil {
		c.cb.OnClose()
	}
}

// Session returns the open session or nil
func (c *Controller) Session() *Session {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.current
}
