package chat

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/valpere/bhasha/internal/detector"
	"github.com/valpere/bhasha/internal/orchestrator"
)

// Resolver picks the language of a message.
type Resolver interface {
	Resolve(ctx context.Context, req detector.DetectRequest) *orchestrator.Resolution
}

// Replier forwards a message to the assistant backend and returns its answer.
type Replier interface {
	Send(ctx context.Context, message, language, detected string) (string, error)
}

// Turn is the outcome of one user message.
type Turn struct {
	Reply      string                   `json:"reply"`
	Language   string                   `json:"language"`
	Detected   string                   `json:"detected,omitempty"`
	ShowBadge  bool                     `json:"show_badge"`
	Failed     bool                     `json:"failed"`
	Resolution *orchestrator.Resolution `json:"resolution,omitempty"`
}

// Conversation drives a Session through detection and reply for each
// message. It is safe for concurrent use; messages are handled one at a time.
type Conversation struct {
	mu       sync.Mutex
	session  Session
	resolver Resolver
	replier  Replier
	logger   *slog.Logger
}

func NewConversation(selected string, resolver Resolver, replier Replier, logger *slog.Logger) *Conversation {
	if logger == nil {
		logger = slog.Default()
	}
	s := NewSession(selected)
	return &Conversation{
		session:  s,
		resolver: resolver,
		replier:  replier,
		logger:   logger.With("session", s.ID),
	}
}

// Session returns a snapshot of the current state.
func (c *Conversation) Session() Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

// SelectLanguage records a manual language choice.
func (c *Conversation) SelectLanguage(code string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.session, _ = Reduce(c.session, Event{Type: SelectLanguage, Language: code})
}

// Send submits text as a typed message.
func (c *Conversation) Send(ctx context.Context, text string) (*Turn, error) {
	return c.handle(ctx, Event{Type: Submit, Text: text})
}

// SendTranscript submits a speech transcript. The session moves through
// Listening so the message is recorded as voice input.
func (c *Conversation) SendTranscript(ctx context.Context, text string) (*Turn, error) {
	c.mu.Lock()
	s, ok := Reduce(c.session, Event{Type: StartListening})
	if !ok {
		c.mu.Unlock()
		return nil, fmt.Errorf("cannot listen in state %s", c.session.State)
	}
	c.session = s
	c.mu.Unlock()

	turn, err := c.handle(ctx, Event{Type: Transcript, Text: text})
	if err != nil {
		c.mu.Lock()
		c.session, _ = Reduce(c.session, Event{Type: StopListening})
		c.mu.Unlock()
	}
	return turn, err
}

func (c *Conversation) handle(ctx context.Context, submit Event) (*Turn, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	s, ok := Reduce(c.session, submit)
	if !ok {
		return nil, fmt.Errorf("cannot accept message in state %s", c.session.State)
	}
	c.session = s

	turn := &Turn{}
	if c.session.State == Detecting {
		res := c.resolver.Resolve(ctx, detector.DetectRequest{Text: c.session.Pending, Selected: c.session.Selected})
		turn.Resolution = res
		c.session, _ = Reduce(c.session, Event{Type: Detected, Language: res.Language})
		c.logger.Debug("message language resolved",
			"detected", res.Language,
			"service", res.Service,
			"fallback", res.Fallback,
			"selected", c.session.Selected)
	}

	turn.Language = c.session.Selected
	turn.Detected = c.session.Detected
	turn.ShowBadge = c.session.ShowBadge

	detected := c.session.Detected
	if turn.Resolution == nil {
		detected = ""
	}

	reply, err := c.replier.Send(ctx, c.session.Pending, c.session.Selected, detected)
	if err != nil {
		c.logger.Warn("assistant reply failed", "error", err)
		c.session, _ = Reduce(c.session, Event{Type: Failure, Err: err})
		turn.Reply = FailureText
		turn.Failed = true
		return turn, nil
	}

	c.session, _ = Reduce(c.session, Event{Type: Reply, Text: reply})
	turn.Reply = reply
	return turn, nil
}
