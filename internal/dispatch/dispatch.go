// Package dispatch simulates the counterparty side of a chat by delivering a
// canned reply after a random delay.
package dispatch

import (
	"math/rand/v2"
	"sync"
	"time"

	"github.com/matheus3301/storechat/internal/clock"
	"go.uber.org/zap"
)

// DefaultReplies are the canned counterparty answers.
var DefaultReplies = []string{
	"Thanks for reaching out! Let me check that for you.",
	"Great question. One of our specialists will follow up shortly.",
	"I've noted that down. Is there anything else I can help with?",
	"That item is popular right now, I'd recommend ordering soon.",
	"Sure thing! You can also find more details on the product page.",
}

// Rand is the random source used for delays and reply selection.
type Rand interface {
	IntN(n int) int
}

// SystemRand draws from the process-wide math/rand/v2 source.
type SystemRand struct{}

func (SystemRand) IntN(n int) int { return rand.IntN(n) }

// Config controls reply timing and content.
type Config struct {
	MinDelay time.Duration
	MaxDelay time.Duration
	Replies  []string
}

// DefaultConfig replies within [1s, 3s) using DefaultReplies.
func DefaultConfig() Config {
	return Config{
		MinDelay: time.Second,
		MaxDelay: 3 * time.Second,
		Replies:  DefaultReplies,
	}
}

type pendingReply struct {
	roomID string
	timer  clock.Timer
}

// Dispatcher schedules one independent timer per reply.
type Dispatcher struct {
	mu      sync.Mutex
	cfg     Config
	clock   clock.Clock
	rng     Rand
	pending map[uint64]pendingReply
	next    uint64
	stopped bool
	logger  *zap.Logger
}

// New creates a dispatcher. An empty reply list falls back to DefaultReplies.
func New(cfg Config, clk clock.Clock, rng Rand, logger *zap.Logger) *Dispatcher {
	if len(cfg.Replies) == 0 {
		cfg.Replies = DefaultReplies
	}
	if cfg.MaxDelay < cfg.MinDelay {
		cfg.MaxDelay = cfg.MinDelay
	}
	return &Dispatcher{
		cfg:     cfg,
		clock:   clk,
		rng:     rng,
		pending: make(map[uint64]pendingReply),
		logger:  logger,
	}
}

// ScheduleReply arranges for deliver to be called once with a canned reply
// after a delay drawn uniformly from [MinDelay, MaxDelay) at millisecond
// granularity. The reply text is chosen when the timer fires. It returns
// false once the dispatcher is stopped.
func (d *Dispatcher) ScheduleReply(roomID string, deliver func(roomID, text string)) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return false
	}

	delay := d.cfg.MinDelay
	if span := (d.cfg.MaxDelay - d.cfg.MinDelay) / time.Millisecond; span > 0 {
		delay += time.Duration(d.rng.IntN(int(span))) * time.Millisecond
	}

	id := d.next
	d.next++
	timer := d.clock.AfterFunc(delay, func() { d.fire(id, deliver) })
	d.pending[id] = pendingReply{roomID: roomID, timer: timer}
	d.logger.Debug("reply scheduled", zap.String("room_id", roomID), zap.Duration("delay", delay))
	return true
}

func (d *Dispatcher) fire(id uint64, deliver func(roomID, text string)) {
	d.mu.Lock()
	p, ok := d.pending[id]
	if !ok {
		d.mu.Unlock()
		return
	}
	delete(d.pending, id)
	text := d.cfg.Replies[d.rng.IntN(len(d.cfg.Replies))]
	d.mu.Unlock()

	deliver(p.roomID, text)
}

// CancelRoom stops every pending reply for a room and returns how many were cancelled.
func (d *Dispatcher) CancelRoom(roomID string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	for id, p := range d.pending {
		if p.roomID != roomID {
			continue
		}
		p.timer.Stop()
		delete(d.pending, id)
		n++
	}
	return n
}

// Pending returns the number of scheduled replies that have not fired.
func (d *Dispatcher) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending)
}

// Stop cancels all pending replies and rejects new ones.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
	for id, p := range d.pending {
		p.timer.Stop()
		delete(d.pending, id)
	}
}
