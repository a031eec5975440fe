package domain

import (
	"slices"
	"time"
)

// Sender identifies who authored a message.
type Sender string

const (
	// SenderAI marks tutor-authored messages.
	SenderAI Sender = "ai"
	// SenderUser marks learner-authored messages.
	SenderUser Sender = "user"
)

// DefaultTopic is used when a request names no topic.
const DefaultTopic = "justice"

// MaxFallacies bounds the identified fallacy list.
const MaxFallacies = 4

// MaxProgress is the ceiling for every progress counter.
const MaxProgress = 100

// TimestampLayout is the naive UTC ISO-8601 form clients already parse.
const TimestampLayout = "2006-01-02T15:04:05.000000"

// Message is a single entry in a session's history.
type Message struct {
	Sender    Sender `json:"sender"`
	Content   string `json:"content"`
	Timestamp string `json:"ts"`
}

// NewMessage stamps a message with the given time in UTC.
func NewMessage(sender Sender, content string, at time.Time) Message {
	return Message{
		Sender:    sender,
		Content:   content,
		Timestamp: at.UTC().Format(TimestampLayout),
	}
}

// Progress holds the three mock skill counters.
type Progress struct {
	IdentifyingAssumptions int `json:"identifying_assumptions"`
	RecognizingFallacies   int `json:"recognizing_fallacies"`
	ConstructingArguments  int `json:"constructing_arguments"`
}

// DefaultProgress returns the counters every new session starts with.
func DefaultProgress() Progress {
	return Progress{
		IdentifyingAssumptions: 30,
		RecognizingFallacies:   20,
		ConstructingArguments:  40,
	}
}

// Advance adds the per-counter deltas, clamping each counter to MaxProgress.
// Negative deltas are ignored so counters never decrease.
func (p *Progress) Advance(assumptions, fallacies, arguments int) {
	p.IdentifyingAssumptions = bump(p.IdentifyingAssumptions, assumptions)
	p.RecognizingFallacies = bump(p.RecognizingFallacies, fallacies)
	p.ConstructingArguments = bump(p.ConstructingArguments, arguments)
}

func bump(v, delta int) int {
	if delta < 0 {
		delta = 0
	}
	return min(v+delta, MaxProgress)
}

// Session holds the conversation state for one session id.
type Session struct {
	Topic     string    `json:"topic"`
	History   []Message `json:"history"`
	Progress  Progress  `json:"progress"`
	Fallacies []string  `json:"fallacies"`
}

// NewSession returns a fresh session seeded with the opening prompt.
func NewSession(topic, prompt string, now time.Time) *Session {
	if topic == "" {
		topic = DefaultTopic
	}
	return &Session{
		Topic:     topic,
		History:   []Message{NewMessage(SenderAI, prompt, now)},
		Progress:  DefaultProgress(),
		Fallacies: []string{},
	}
}

// Append adds a message to the end of the history.
func (s *Session) Append(msg Message) {
	s.History = append(s.History, msg)
}

// RecentHistory returns the last n messages of the history.
func (s *Session) RecentHistory(n int) []Message {
	if n >= len(s.History) {
		return s.History
	}
	if n <= 0 {
		return []Message{}
	}
	return s.History[len(s.History)-n:]
}

// NoteFallacy records a fallacy label most-recent-first. A label already in
// the list keeps its position. The list is truncated to MaxFallacies.
func (s *Session) NoteFallacy(label string) {
	if !slices.Contains(s.Fallacies, label) {
		s.Fallacies = slices.Insert(s.Fallacies, 0, label)
	}
	if len(s.Fallacies) > MaxFallacies {
		s.Fallacies = s.Fallacies[:MaxFallacies]
	}
}

// Clone returns a deep copy of the session.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	c.History = slices.Clone(s.History)
	c.Fallacies = slices.Clone(s.Fallacies)
	if c.History == nil {
		c.History = []Message{}
	}
	if c.Fallacies == nil {
		c.Fallacies = []string{}
	}
	return &c
}
