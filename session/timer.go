/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package session

// DefaultRoundTicks is the length of a round in one-second ticks.
const DefaultRoundTicks = 180

// TurnTimer counts a round down. It is driven by external ticks and never
// starts a goroutine of its own.
type TurnTimer struct {
	span    int
	left    int
	running bool
}

func NewTurnTimer(span int) *TurnTimer {
	if span < 1 {
		span = DefaultRoundTicks
	}
	return &TurnTimer{span: span, left: span}
}

// Start rewinds the timer to its full span and runs it.
func (t *TurnTimer) Start() {
	t.left = t.span
	t.running = true
}

// Stop halts the countdown. Stopping a stopped timer is a no-op.
func (t *TurnTimer) Stop() {
	t.running = false
}

func (t *TurnTimer) Running() bool {
	return t.running
}

func (t *TurnTimer) Left() int {
	return t.left
}

func (t *TurnTimer) Span() int {
	return t.span
}

// Tick advances a running timer by one tick and reports whether that tick
// expired it.
func (t *TurnTimer) Tick() bool {
	if !t.running {
		return false
	}

	t.left--
	if t.left > 0 {
		return false
	}

	t.left = 0
	t.running = false

	return true
}
