// Package countdown mirrors a server-side reservation expiry on the client.
//
// A Timer is seeded once from an absolute expiry and then counts down one
// second per tick. It does not re-read the wall clock after construction, so
// a host that is suspended or starved of ticks will drift behind the server;
// the server remains authoritative and rejects work on an expired slot.
package countdown

import (
	"context"
	"fmt"
	"sync"
	"time"
)

const (
	WarningThreshold  int64 = 120
	CriticalThreshold int64 = 60

	DefaultTickInterval = time.Second
)

type Status int

const (
	StatusActive Status = iota
	StatusWarning
	StatusCritical
	StatusExpired
)

func (s Status) String() string {
	switch s {
	case StatusActive:
		return "active"
	case StatusWarning:
		return "warning"
	case StatusCritical:
		return "critical"
	case StatusExpired:
		return "expired"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// statusFor maps remaining seconds to the state the timer must be in.
func statusFor(remaining int64) Status {
	switch {
	case remaining <= 0:
		return StatusExpired
	case remaining <= CriticalThreshold:
		return StatusCritical
	case remaining <= WarningThreshold:
		return StatusWarning
	default:
		return StatusActive
	}
}

type Option func(*Timer)

// OnWarning is called once when two minutes or less remain.
func OnWarning(fn func()) Option {
	return func(t *Timer) { t.callbacks[StatusWarning] = fn }
}

// OnCritical is called once when one minute or less remains.
func OnCritical(fn func()) Option {
	return func(t *Timer) { t.callbacks[StatusCritical] = fn }
}

// OnExpire is called once when no time remains.
func OnExpire(fn func()) Option {
	return func(t *Timer) { t.callbacks[StatusExpired] = fn }
}

// WithNow sets the clock used to compute the initial remaining time.
func WithNow(now func() time.Time) Option {
	return func(t *Timer) { t.now = now }
}

// WithTickInterval sets how often Run advances the timer by one second.
func WithTickInterval(d time.Duration) Option {
	return func(t *Timer) {
		if d > 0 {
			t.tickInterval = d
		}
	}
}

// Timer is a forward-only state machine: Active, Warning, Critical, Expired.
// Each transition fires its callback exactly once. A timer seeded below a
// threshold enters that state during New and fires every crossed callback
// in order.
type Timer struct {
	mu           sync.Mutex
	total        int64
	remaining    int64
	status       Status
	callbacks    map[Status]func()
	now          func() time.Time
	tickInterval time.Duration
}

func New(expiresAt time.Time, opts ...Option) *Timer {
	t := &Timer{
		callbacks:    map[Status]func(){},
		now:          time.Now,
		tickInterval: DefaultTickInterval,
		status:       StatusActive,
	}
	for _, opt := range opts {
		opt(t)
	}

	remaining := int64(expiresAt.Sub(t.now()) / time.Second)
	if remaining < 0 {
		remaining = 0
	}
	t.total = remaining
	t.remaining = remaining

	t.mu.Lock()
	fire := t.advance()
	t.mu.Unlock()
	runAll(fire)
	return t
}

// NewFromUnix seeds a timer from an expiry in unix seconds.
func NewFromUnix(expiresAt int64, opts ...Option) *Timer {
	return New(time.Unix(expiresAt, 0), opts...)
}

// Tick advances the timer by one second.
func (t *Timer) Tick() {
	t.mu.Lock()
	if t.status == StatusExpired {
		t.mu.Unlock()
		return
	}
	if t.remaining > 0 {
		t.remaining--
	}
	fire := t.advance()
	t.mu.Unlock()
	runAll(fire)
}

// Run ticks until the timer expires or ctx is done. It returns ctx.Err()
// when cancelled and nil on expiry.
func (t *Timer) Run(ctx context.Context) error {
	if t.IsExpired() {
		return nil
	}

	ticker := time.NewTicker(t.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			t.Tick()
			if t.IsExpired() {
				return nil
			}
		}
	}
}

// advance moves the state forward to match remaining and returns the
// callbacks for every state entered. Callers hold t.mu.
func (t *Timer) advance() []func() {
	var fire []func()
	target := statusFor(t.remaining)
	for t.status < target {
		t.status++
		if fn := t.callbacks[t.status]; fn != nil {
			fire = append(fire, fn)
		}
	}
	return fire
}

func runAll(fns []func()) {
	for _, fn := range fns {
		fn()
	}
}

// TimeRemaining returns the remaining seconds, never negative.
func (t *Timer) TimeRemaining() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.remaining
}

// FormattedTime renders the remaining time as MM:SS.
func (t *Timer) FormattedTime() string {
	remaining := t.TimeRemaining()
	return fmt.Sprintf("%02d:%02d", remaining/60, remaining%60)
}

func (t *Timer) Status() Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status
}

func (t *Timer) IsExpired() bool {
	return t.Status() == StatusExpired
}

// Progress returns the share of the initial time still remaining, 0 to 100.
func (t *Timer) Progress() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.total <= 0 {
		return 0
	}
	return float64(t.remaining) * 100 / float64(t.total)
}
