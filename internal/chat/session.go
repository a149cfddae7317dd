// Package chat models the widget conversation as an explicit state object
// driven by a reducer.
package chat

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/valpere/bhasha/internal/langid"
)

// MinDetectRunes is the shortest trimmed input worth running detection on.
const MinDetectRunes = 3

type State string

const (
	Idle          State = "idle"
	Listening     State = "listening"
	Detecting     State = "detecting"
	AwaitingReply State = "awaiting-reply"
)

type EventType string

const (
	StartListening EventType = "start-listening"
	StopListening  EventType = "stop-listening"
	Transcript     EventType = "transcript"
	Detected       EventType = "detected"
	Submit         EventType = "submit"
	Reply          EventType = "reply"
	Failure        EventType = "failure"
	SelectLanguage EventType = "select-language"
)

// Event is an input to Reduce. Text carries the message, transcript or reply;
// Language carries the detected or selected code.
type Event struct {
	Type     EventType
	Text     string
	Language string
	Err      error
}

type Sender string

const (
	User Sender = "user"
	Bot  Sender = "bot"
)

type Message struct {
	ID        string    `json:"id"`
	Sender    Sender    `json:"sender"`
	Text      string    `json:"text"`
	Language  string    `json:"language"`
	Voice     bool      `json:"voice,omitempty"`
	Error     bool      `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Session is the whole conversation state. Copy it freely: Reduce never
// mutates its input.
type Session struct {
	ID    string `json:"id"`
	State State  `json:"state"`

	// Selected is the language replies are requested in.
	Selected string `json:"selected"`
	// Original is the selection in force when the latest detection started.
	Original string `json:"original"`
	Detected string `json:"detected,omitempty"`
	// ShowBadge marks a detection that differs from the user's choice.
	ShowBadge bool `json:"show_badge"`

	// Pending is the user text awaiting detection or a reply.
	Pending  string    `json:"pending,omitempty"`
	Messages []Message `json:"messages"`
	LastErr  string    `json:"last_error,omitempty"`
}

func NewSession(selected string) Session {
	if selected == "" {
		selected = langid.DefaultLanguage
	}
	return Session{
		ID:       uuid.NewString(),
		State:    Idle,
		Selected: selected,
		Original: selected,
	}
}

// Reduce applies e to s and reports whether the event was accepted. Events
// that are not valid in the current state leave s unchanged.
func Reduce(s Session, e Event) (Session, bool) {
	switch e.Type {
	case SelectLanguage:
		if e.Language == "" {
			return s, false
		}
		s.Selected = e.Language
		s.Original = e.Language
		s.ShowBadge = false
		return s, true

	case StartListening:
		if s.State != Idle {
			return s, false
		}
		s.State = Listening
		s.Pending = ""
		return s, true

	case StopListening:
		if s.State != Listening {
			return s, false
		}
		s.State = Idle
		return s, true

	case Transcript:
		if s.State != Listening {
			return s, false
		}
		return submit(s, e.Text, true)

	case Submit:
		if s.State != Idle {
			return s, false
		}
		return submit(s, e.Text, false)

	case Detected:
		if s.State != Detecting {
			return s, false
		}
		s = applyDetection(s, e.Language)
		s.State = AwaitingReply
		return s, true

	case Reply:
		if s.State != AwaitingReply {
			return s, false
		}
		s = appendMessage(s, Message{Sender: Bot, Text: e.Text, Language: s.Selected})
		s.State = Idle
		s.Pending = ""
		s.LastErr = ""
		return s, true

	case Failure:
		if s.State != Detecting && s.State != AwaitingReply {
			return s, false
		}
		text := FailureText
		if e.Text != "" {
			text = e.Text
		}
		s = appendMessage(s, Message{Sender: Bot, Text: text, Language: s.Selected, Error: true})
		s.State = Idle
		s.Pending = ""
		if e.Err != nil {
			s.LastErr = e.Err.Error()
		}
		return s, true
	}

	return s, false
}

// FailureText is the bot message recorded for a Failure event without text.
const FailureText = "⚠ Sorry, I'm having trouble connecting right now. Please try again in a moment."

func submit(s Session, text string, voice bool) (Session, bool) {
	if isBlank(text) {
		return s, false
	}
	s = appendMessage(s, Message{Sender: User, Text: text, Language: s.Selected, Voice: voice})
	s.Pending = text
	if NeedsDetection(text) {
		s.State = Detecting
	} else {
		s.State = AwaitingReply
	}
	return s, true
}

// applyDetection updates the badge and auto-switches the selection away from
// English. The switch also fires when the selection before the previous
// detection was English.
func applyDetection(s Session, lang string) Session {
	if lang == "" {
		lang = langid.DefaultLanguage
	}
	before, earlier := s.Selected, s.Original

	s.Original = before
	s.Detected = lang
	s.ShowBadge = lang != before && lang != langid.DefaultLanguage

	if (before == langid.DefaultLanguage || earlier == langid.DefaultLanguage) && lang != langid.DefaultLanguage {
		s.Selected = lang
		s.ShowBadge = true
	}
	return s
}

func appendMessage(s Session, m Message) Session {
	m.ID = uuid.NewString()
	m.Timestamp = time.Now()
	msgs := make([]Message, len(s.Messages), len(s.Messages)+1)
	copy(msgs, s.Messages)
	s.Messages = append(msgs, m)
	return s
}

// NeedsDetection reports whether text is long enough to be worth detecting.
func NeedsDetection(text string) bool {
	return utf8.RuneCountInString(strings.TrimSpace(text)) >= MinDetectRunes
}

func isBlank(text string) bool {
	return strings.TrimSpace(text) == ""
}
