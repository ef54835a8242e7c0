// Package progress is the callback protocol of long-running operations:
// Init once with the total, then OnProgress per item.
package progress

import (
	"context"
	"errors"
	"sync/atomic"
)

// ErrCanceled is returned when a Canceler asks for the operation to stop.
var ErrCanceled = errors.New("progress: canceled")

type Listener interface {
	Init(total int, label string)
	OnProgress(current int, label string)
}

// Canceler is an optional Listener extension polled between items.
type Canceler interface {
	Canceled() bool
}

type nop struct{}

func (nop) Init(int, string)       {}
func (nop) OnProgress(int, string) {}

// Nop discards all progress.
func Nop() Listener { return nop{} }

// OrNop returns l, or Nop when l is nil.
func OrNop(l Listener) Listener {
	if l == nil {
		return nop{}
	}
	return l
}

// Check reports why an operation should stop, or nil. Operations call it
// at item boundaries.
func Check(ctx context.Context, l Listener) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if c, ok := l.(Canceler); ok && c.Canceled() {
		return ErrCanceled
	}
	return nil
}

// Flag is a Canceler that can be wrapped around any Listener.
type Flag struct {
	Listener
	canceled atomic.Bool
}

func WithCancel(l Listener) *Flag {
	return &Flag{Listener: OrNop(l)}
}

func (f *Flag) Cancel()        { f.canceled.Store(true) }
func (f *Flag) Canceled() bool { return f.canceled.Load() }

// Counter hands out increasing item numbers to concurrent workers.
type Counter struct {
	l Listener
	n atomic.Int64
}

func NewCounter(l Listener, total int, label string) *Counter {
	l = OrNop(l)
	l.Init(total, label)
	return &Counter{l: l}
}

// Step reports one more finished item.
func (c *Counter) Step(label string) {
	c.l.OnProgress(int(c.n.Add(1)), label)
}
