// Package dialogue implements the Socratic dialogue session logic: lazy
// session creation, restarts, message handling and summaries.
//
// Replies, reasoning patterns and progress increments are drawn at random
// from static tables; nothing here inspects what the learner wrote.
package dialogue

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/socratic-labs/dialogue/internal/domain"
	"github.com/socratic-labs/dialogue/internal/metrics"
	"github.com/socratic-labs/dialogue/internal/store"
)

// DefaultSessionID is used when a request carries no session id.
const DefaultSessionID = "default"

const (
	historyWindow = 20
	summaryWindow = 10

	minProgressStep = 3
	maxProgressStep = 6
)

// ErrInvalidInput is returned when a message is empty after trimming.
var ErrInvalidInput = errors.New("no message provided")

// ReasoningTrace echoes the learner's statement with the pattern picked for it.
type ReasoningTrace struct {
	UserStatement     string `json:"user_statement"`
	IdentifiedPattern string `json:"identified_pattern"`
	SocraticStrategy  string `json:"socratic_strategy"`
}

// MessageResult is the outcome of HandleMessage.
type MessageResult struct {
	AIResponse     string           `json:"ai_response"`
	ReasoningTrace ReasoningTrace   `json:"reasoning_trace"`
	Progress       domain.Progress  `json:"progress"`
	Fallacies      []string         `json:"fallacies"`
	History        []domain.Message `json:"history"`
}

// Summary is the outcome of Summary.
type Summary struct {
	SummaryText         string           `json:"summary_text"`
	LastMessages        []domain.Message `json:"last_messages"`
	Progress            domain.Progress  `json:"progress"`
	IdentifiedFallacies []string         `json:"identified_fallacies"`
}

// Service handles dialogue operations on top of a session repository.
type Service struct {
	repo    store.Repository
	rnd     *lockedRand
	now     func() time.Time
	metrics *metrics.Metrics
}

// Option configures a Service.
type Option func(*Service)

// WithRand replaces the random source. Calls are serialized by the service.
func WithRand(r Rand) Option {
	return func(s *Service) {
		if r != nil {
			s.rnd = &lockedRand{src: r}
		}
	}
}

// WithClock replaces time.Now for message timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithMetrics records activity on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// NewService creates a dialogue service backed by repo.
func NewService(repo store.Repository, opts ...Option) *Service {
	s := &Service{
		repo: repo,
		rnd:  &lockedRand{src: globalRand{}},
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// newSessionFunc returns the lazy initializer for the store, counting
// creations when they happen.
func (s *Service) newSessionFunc() store.InitFunc {
	return func() *domain.Session {
		s.metrics.SessionCreated(metrics.CauseLazy)
		return domain.NewSession(domain.DefaultTopic, OpeningPrompt, s.now())
	}
}

// GetOrCreate returns the session for id, creating it if it does not exist.
func (s *Service) GetOrCreate(ctx context.Context, id string) (*domain.Session, error) {
	id = sessionIDOrDefault(id)
	session, err := s.repo.GetOrCreate(ctx, id, s.newSessionFunc())
	if err != nil {
		return nil, fmt.Errorf("load session %q: %w", id, err)
	}
	return session, nil
}

// Reset replaces the session for id with a fresh one on topic.
func (s *Service) Reset(ctx context.Context, id, topic string) (*domain.Session, error) {
	id = sessionIDOrDefault(id)
	session := domain.NewSession(topic, OpeningPrompt, s.now())
	if err := s.repo.Put(ctx, id, session); err != nil {
		return nil, fmt.Errorf("reset session %q: %w", id, err)
	}
	s.metrics.SessionCreated(metrics.CauseRestart)
	return session, nil
}

// HandleMessage records a learner message, appends a tutor reply drawn from
// the topic's pool, advances progress and notes a fallacy label. An empty
// message fails with ErrInvalidInput and leaves the session untouched.
func (s *Service) HandleMessage(ctx context.Context, id, message, topic string) (*MessageResult, error) {
	text := strings.TrimSpace(message)
	if text == "" {
		s.metrics.MessageRejected()
		return nil, ErrInvalidInput
	}
	id = sessionIDOrDefault(id)
	if topic == "" {
		topic = domain.DefaultTopic
	}

	var (
		reply      string
		trace      ReasoningTrace
		topicKnown bool
	)
	session, err := s.repo.Update(ctx, id, s.newSessionFunc(), func(session *domain.Session) error {
		session.Topic = topic
		session.Append(domain.NewMessage(domain.SenderUser, text, s.now()))

		var pool []string
		pool, topicKnown = ResponsesFor(topic)
		reply = s.rnd.pick(pool)
		session.Append(domain.NewMessage(domain.SenderAI, reply, s.now()))

		trace = s.analyze(text)

		session.Progress.Advance(
			s.rnd.between(minProgressStep, maxProgressStep),
			s.rnd.between(minProgressStep, maxProgressStep),
			s.rnd.between(minProgressStep, maxProgressStep),
		)
		session.NoteFallacy(trace.IdentifiedPattern)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("update session %q: %w", id, err)
	}
	s.metrics.MessageHandled(topicKnown)

	return &MessageResult{
		AIResponse:     reply,
		ReasoningTrace: trace,
		Progress:       session.Progress,
		Fallacies:      session.Fallacies,
		History:        session.RecentHistory(historyWindow),
	}, nil
}

// Summary reports the recent history and progress of a session, creating
// the session if needed.
func (s *Service) Summary(ctx context.Context, id string) (*Summary, error) {
	session, err := s.GetOrCreate(ctx, id)
	if err != nil {
		return nil, err
	}
	s.metrics.SummaryServed()

	return &Summary{
		SummaryText:         SummaryText,
		LastMessages:        session.RecentHistory(summaryWindow),
		Progress:            session.Progress,
		IdentifiedFallacies: session.Fallacies,
	}, nil
}

// analyze picks a fallacy label for the statement. The pick is random.
func (s *Service) analyze(statement string) ReasoningTrace {
	return ReasoningTrace{
		UserStatement:     statement,
		IdentifiedPattern: s.rnd.pick(fallacyLabels),
		SocraticStrategy:  SocraticStrategy,
	}
}

func sessionIDOrDefault(id string) string {
	if id == "" {
		return DefaultSessionID
	}
	return id
}
