package shell

import (
	"time"

	tea "charm.land/bubbletea/v2"
)

// FrameFunc is one scheduled frame callback.
type FrameFunc func(now time.Time)

// Token identifies one scheduled frame so it can be cancelled.
type Token uint64

// Scheduler schedules single next-frame callbacks.
type Scheduler interface {
	Schedule(fn FrameFunc) Token
	Cancel(tok Token)
}

// FrameMsg is delivered by the Bubble Tea runtime when a scheduled frame is due.
type FrameMsg struct {
	Token Token
	Time  time.Time
}

// DefaultFPS is the frame rate used when none is configured.
const DefaultFPS = 30

// TickScheduler schedules frames as tea.Tick commands. Schedule only records the
// callback; the host returns Cmd() from Update so the tick is started, and passes
// every FrameMsg to Fire.
type TickScheduler struct {
	interval time.Duration
	next     Token
	pending  map[Token]FrameFunc
	queued   []Token
}

// NewTickScheduler constructs a scheduler running at fps frames per second.
func NewTickScheduler(fps int) *TickScheduler {
	if fps <= 0 {
		fps = DefaultFPS
	}
	return &TickScheduler{
		interval: time.Second / time.Duration(fps),
		pending:  map[Token]FrameFunc{},
	}
}

// Interval returns the frame interval.
func (s *TickScheduler) Interval() time.Duration {
	return s.interval
}

// Schedule implements Scheduler.
func (s *TickScheduler) Schedule(fn FrameFunc) Token {
	s.next++
	tok := s.next
	s.pending[tok] = fn
	s.queued = append(s.queued, tok)
	return tok
}

// Cancel implements Scheduler.
func (s *TickScheduler) Cancel(tok Token) {
	delete(s.pending, tok)
}

// Pending returns the number of live scheduled frames.
func (s *TickScheduler) Pending() int {
	return len(s.pending)
}

// Cmd returns tick commands for frames scheduled since the last call.
func (s *TickScheduler) Cmd() tea.Cmd {
	if len(s.queued) == 0 {
		return nil
	}
	cmds := make([]tea.Cmd, 0, len(s.queued))
	for _, tok := range s.queued {
		if _, ok := s.pending[tok]; !ok {
			continue
		}
		cmds = append(cmds, tea.Tick(s.interval, func(t time.Time) tea.Msg {
			return FrameMsg{Token: tok, Time: t}
		}))
	}
	s.queued = s.queued[:0]
	return tea.Batch(cmds...)
}

// Fire runs the callback for msg if its token is still pending.
func (s *TickScheduler) Fire(msg FrameMsg) bool {
	fn, ok := s.pending[msg.Token]
	if !ok {
		return false
	}
	delete(s.pending, msg.Token)
	fn(msg.Time)
	return true
}

// ManualScheduler runs frames only when Step is called.
type ManualScheduler struct {
	next    Token
	pending map[Token]FrameFunc
	order   []Token
}

// NewManualScheduler constructs an empty manual scheduler.
func NewManualScheduler() *ManualScheduler {
	return &ManualScheduler{pending: map[Token]FrameFunc{}}
}

// Schedule implements Scheduler.
func (s *ManualScheduler) Schedule(fn FrameFunc) Token {
	s.next++
	s.pending[s.next] = fn
	s.order = append(s.order, s.next)
	return s.next
}

// Cancel implements Scheduler.
func (s *ManualScheduler) Cancel(tok Token) {
	delete(s.pending, tok)
}

// Pending returns the number of live scheduled frames.
func (s *ManualScheduler) Pending() int {
	return len(s.pending)
}

// Step runs every frame pending at call time and returns how many ran.
func (s *ManualScheduler) Step(now time.Time) int {
	order := s.order
	s.order = nil
	ran := 0
	for _, tok := range order {
		fn, ok := s.pending[tok]
		if !ok {
			continue
		}
		delete(s.pending, tok)
		fn(now)
		ran++
	}
	return ran
}
