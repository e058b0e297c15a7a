// Package session owns per-customer ordering state and drives conversational
// turns against the language model.
package session

import (
	"sync"
	"time"

	"tableside/internal/ledger"
	"tableside/internal/llm"
	"tableside/internal/models"
)

// Phase is where a session is in its current turn
type Phase string

const (
	PhaseIdle      Phase = "idle"
	PhaseSent      Phase = "sent"
	PhaseStreaming Phase = "streaming"
	PhaseSettled   Phase = "settled"
)

// Session is one customer's ordering interaction. Cart, ledger, history and
// turn state are never shared with another session.
type Session struct {
	ID        string
	CreatedAt time.Time

	mu           sync.Mutex
	phase        Phase
	cart         models.CartState
	ledger       *ledger.Ledger
	history      []llm.Message
	confirmation *models.OrderConfirmation
	lastActive   time.Time
}

func newSession(id string, empty models.CartState, now time.Time) *Session {
	return &Session{
		ID:         id,
		CreatedAt:  now,
		phase:      PhaseIdle,
		cart:       empty,
		ledger:     ledger.New(),
		lastActive: now,
	}
}

// Phase returns the current turn phase
func (s *Session) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// Cart returns a copy of the current cart
func (s *Session) Cart() models.CartState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cart.Clone()
}

// Confirmation returns the latest order confirmation, if any
func (s *Session) Confirmation() (*models.OrderConfirmation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.confirmation, s.confirmation != nil
}

// History returns a copy of the conversation so far
func (s *Session) History() []llm.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]llm.Message, len(s.history))
	copy(out, s.history)
	return out
}

// LastActive returns when the session last saw a turn or edit
func (s *Session) LastActive() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}

// UpdateCart replaces the cart with the result of fn, which receives a copy of
// the current state. Used for edits that do not come from the model.
func (s *Session) UpdateCart(fn func(models.CartState) (models.CartState, error)) (models.CartState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, err := fn(s.cart.Clone())
	if err != nil {
		return s.cart.Clone(), err
	}
	s.cart = next
	s.lastActive = time.Now()
	return next.Clone(), nil
}

// begin moves an idle or settled session to Sent and returns the history the
// model should see
func (s *Session) begin(now time.Time) ([]llm.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase == PhaseSent || s.phase == PhaseStreaming {
		return nil, models.ErrTurnInProgress
	}
	s.phase = PhaseSent
	s.lastActive = now
	history := make([]llm.Message, len(s.history))
	copy(history, s.history)
	return history, nil
}

func (s *Session) streaming() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase == PhaseSent {
		s.phase = PhaseStreaming
	}
}

// settle appends the turn's messages and marks the turn done
func (s *Session) settle(messages []llm.Message, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append(s.history, messages...)
	s.phase = PhaseSettled
	s.lastActive = now
}
