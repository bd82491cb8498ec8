package proc

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/disgoorg/snowflake/v2"
)

type ConfirmState int32

const (
	ConfirmPending ConfirmState = iota
	ConfirmAccepted
	ConfirmRejected
	ConfirmTimedOut
)

func (s ConfirmState) String() string {
	switch s {
	case ConfirmPending:
		return "pending"
	case ConfirmAccepted:
		return "accepted"
	case ConfirmRejected:
		return "rejected"
	default:
		return "timed out"
	}
}

// Confirmation is a Load/Cancel prompt on a status message. The timer and the
// reaction subscription race to leave Pending; only the first one counts.
type Confirmation struct {
	OnAccept  func()
	OnDecline func()

	msg       StatusMessage
	requester snowflake.ID
	aff       Affordances
	timeout   time.Duration

	state atomic.Int32
	done  chan struct{}

	mu     sync.Mutex
	timer  *time.Timer
	cancel func()
}

func NewConfirmation(msg StatusMessage, requester snowflake.ID, aff Affordances, timeout time.Duration) *Confirmation {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Confirmation{
		msg:       msg,
		requester: requester,
		aff:       aff,
		timeout:   timeout,
		done:      make(chan struct{}),
	}
}

// Start presents the choices and arms the timeout. It fails only when the
// prompt was abandoned without running either callback; a choice that landed
// before presenting failed stands.
func (c *Confirmation) Start() error {
	cancel, err := c.aff.Present(c.msg, c.requester, []string{ChoiceLoad, ChoiceCancel}, c.choose)
	if err != nil {
		if !c.state.CompareAndSwap(int32(ConfirmPending), int32(ConfirmRejected)) {
			return nil
		}
		c.aff.Clear(c.msg)
		close(c.done)
		return err
	}

	c.mu.Lock()
	c.cancel = cancel
	c.timer = time.AfterFunc(c.timeout, func() { c.finish(ConfirmTimedOut) })
	c.mu.Unlock()

	// A choice may have landed before the timer existed.
	if c.State() != ConfirmPending {
		c.timer.Stop()
		cancel()
	}
	return nil
}

func (c *Confirmation) choose(choice string) {
	switch choice {
	case ChoiceLoad:
		c.finish(ConfirmAccepted)
	case ChoiceCancel:
		c.finish(ConfirmRejected)
	}
}

func (c *Confirmation) finish(to ConfirmState) {
	if !c.state.CompareAndSwap(int32(ConfirmPending), int32(to)) {
		return
	}

	c.mu.Lock()
	timer, cancel := c.timer, c.cancel
	c.mu.Unlock()
	if timer != nil {
		timer.Stop()
	}
	if cancel != nil {
		cancel()
	}

	switch to {
	case ConfirmAccepted:
		if c.OnAccept != nil {
			c.OnAccept()
		}
	default:
		if c.OnDecline != nil {
			c.OnDecline()
		}
	}

	c.aff.Clear(c.msg)
	close(c.done)
}

func (c *Confirmation) State() ConfirmState {
	return ConfirmState(c.state.Load())
}

// Done is closed once the prompt has resolved and its affordances were cleared.
func (c *Confirmation) Done() <-chan struct{} {
	return c.done
}
