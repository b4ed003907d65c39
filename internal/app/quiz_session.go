package app

import (
	"sort"
	"strings"
	"sync"
	"time"

	"coursehub-service/internal/domain"
)

// SessionState is the lifecycle position of a single quiz attempt.
type SessionState string

const (
	StateNotStarted        SessionState = "not_started"
	StateInProgress        SessionState = "in_progress"
	StateSubmitting        SessionState = "submitting"
	StateAutoGraded        SessionState = "auto_graded"
	StatePendingCorrection SessionState = "pending_correction"
	StateAbandoned         SessionState = "abandoned"
)

// Terminal reports whether no further transition is possible.
func (s SessionState) Terminal() bool {
	return s == StateAutoGraded || s == StatePendingCorrection || s == StateAbandoned
}

// ChoiceView is a choice as shown to the learner, without its correctness flag.
type ChoiceView struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// QuestionView is a question as shown to the learner.
type QuestionView struct {
	ID      string              `json:"id"`
	Prompt  string              `json:"prompt"`
	Type    domain.QuestionType `json:"type"`
	Choices []ChoiceView        `json:"choices,omitempty"`
}

// SessionSnapshot is a point-in-time view of a session for clients.
type SessionSnapshot struct {
	SessionID        string            `json:"sessionId"`
	QuizID           string            `json:"quizId"`
	Title            string            `json:"title"`
	State            SessionState      `json:"state"`
	Index            int               `json:"index"`
	Total            int               `json:"total"`
	Question         *QuestionView     `json:"question,omitempty"`
	Answers          map[string]string `json:"answers"`
	AllAnswered      bool              `json:"allAnswered"`
	ProgressPercent  int               `json:"progressPercent"`
	RemainingSeconds *int              `json:"remainingSeconds,omitempty"`
}

// SubmitResult is the outcome of a submission, manual or forced by the countdown.
type SubmitResult struct {
	SessionID string         `json:"sessionId"`
	State     SessionState   `json:"state"`
	Attempt   domain.Attempt `json:"attempt"`
	Passed    bool           `json:"passed"`
	TimedOut  bool           `json:"timedOut"`
}

// Session is the in-process state of one learner taking one quiz. Nothing is persisted
// until submission.
type Session struct {
	id            string
	userID        string
	moduleID      string
	submissionKey string
	quiz          domain.Quiz
	now           func() time.Time

	mu        sync.Mutex
	state     SessionState
	inFlight  bool
	current   int
	answers   map[string]string
	startedAt time.Time
	deadline  time.Time
	stopTimer func() bool
	result    *SubmitResult
	done      chan struct{}
}

// NewSession is exported for infrastructure layers and tests that need to seed sessions.
func NewSession(id, userID, moduleID string, quiz domain.Quiz) *Session {
	return newSessionWithClock(id, userID, moduleID, quiz, time.Now)
}

func newSessionWithClock(id, userID, moduleID string, quiz domain.Quiz, now func() time.Time) *Session {
	return &Session{
		id:            id,
		userID:        userID,
		moduleID:      moduleID,
		submissionKey: id,
		quiz:          orderedQuiz(quiz),
		now:           now,
		state:         StateNotStarted,
		answers:       make(map[string]string),
		done:          make(chan struct{}),
	}
}

// orderedQuiz copies quiz with questions and choices sorted by OrderIndex.
func orderedQuiz(quiz domain.Quiz) domain.Quiz {
	questions := make([]domain.Question, len(quiz.Questions))
	copy(questions, quiz.Questions)
	sort.SliceStable(questions, func(i, j int) bool { return questions[i].OrderIndex < questions[j].OrderIndex })
	for i := range questions {
		choices := make([]domain.Choice, len(questions[i].Choices))
		copy(choices, questions[i].Choices)
		sort.SliceStable(choices, func(a, b int) bool { return choices[a].OrderIndex < choices[b].OrderIndex })
		questions[i].Choices = choices
	}
	quiz.Questions = questions
	return quiz
}

func (s *Session) ID() string     { return s.id }
func (s *Session) UserID() string { return s.userID }

// Done is closed once the session reaches a terminal state.
func (s *Session) Done() <-chan struct{} { return s.done }

func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Result returns the submission outcome once the session has been graded.
func (s *Session) Result() (SubmitResult, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.result == nil {
		return SubmitResult{}, false
	}
	return *s.result, true
}

// Snapshot renders the current question, captured answers and remaining time.
func (s *Session) Snapshot() SessionSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) start() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = StateInProgress
	s.startedAt = s.now()
	if s.quiz.TimerMinutes <= 0 {
		return 0
	}
	limit := time.Duration(s.quiz.TimerMinutes) * time.Minute
	s.deadline = s.startedAt.Add(limit)
	return limit
}

func (s *Session) setTimer(stop func() bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopTimer = stop
}

func (s *Session) answer(questionID, value string) (SessionSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireInProgressLocked(); err != nil {
		return SessionSnapshot{}, err
	}
	question, ok := s.quiz.Question(questionID)
	if !ok {
		return SessionSnapshot{}, domain.ErrQuestionNotFound
	}
	switch question.Type {
	case domain.QuestionChoice:
		if _, ok := question.Choice(value); !ok {
			return SessionSnapshot{}, domain.ErrChoiceNotFound
		}
	default:
		if strings.TrimSpace(value) == "" {
			return SessionSnapshot{}, domain.ErrInvalidAnswer
		}
	}
	s.answers[questionID] = value
	return s.snapshotLocked(), nil
}

func (s *Session) next() (SessionSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireInProgressLocked(); err != nil {
		return SessionSnapshot{}, err
	}
	if len(s.quiz.Questions) == 0 {
		return s.snapshotLocked(), nil
	}
	if _, ok := s.answers[s.quiz.Questions[s.current].ID]; !ok {
		return SessionSnapshot{}, domain.ErrAnswerRequired
	}
	if s.current < len(s.quiz.Questions)-1 {
		s.current++
	}
	return s.snapshotLocked(), nil
}

func (s *Session) previous() (SessionSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireInProgressLocked(); err != nil {
		return SessionSnapshot{}, err
	}
	if s.current > 0 {
		s.current--
	}
	return s.snapshotLocked(), nil
}

func (s *Session) goTo(index int) (SessionSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireInProgressLocked(); err != nil {
		return SessionSnapshot{}, err
	}
	if index < 0 || index >= len(s.quiz.Questions) {
		return SessionSnapshot{}, domain.ErrQuestionNotFound
	}
	s.current = index
	return s.snapshotLocked(), nil
}

// beginSubmit moves InProgress to Submitting and hands back the captured answers. Only one
// caller wins; a session left in Submitting by a failed write may be retried.
func (s *Session) beginSubmit() (map[string]string, time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case s.state == StateInProgress:
	case s.state == StateSubmitting && !s.inFlight:
	case s.state == StateAbandoned || s.state == StateNotStarted:
		return nil, time.Time{}, domain.ErrSessionNotFound
	default:
		return nil, time.Time{}, domain.ErrAlreadySubmitted
	}
	s.state = StateSubmitting
	s.inFlight = true
	if s.stopTimer != nil {
		s.stopTimer()
	}
	answers := make(map[string]string, len(s.answers))
	for k, v := range s.answers {
		answers[k] = v
	}
	return answers, s.startedAt, nil
}

func (s *Session) failSubmit() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inFlight = false
}

func (s *Session) finish(result SubmitResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = result.State
	s.inFlight = false
	s.result = &result
	close(s.done)
}

// abandon is allowed while in progress and after a failed write, since neither left an
// attempt behind.
func (s *Session) abandon() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case s.state == StateInProgress:
	case s.state == StateSubmitting && !s.inFlight:
	case s.state == StateAbandoned || s.state == StateNotStarted:
		return domain.ErrSessionNotFound
	default:
		return domain.ErrAlreadySubmitted
	}
	s.state = StateAbandoned
	if s.stopTimer != nil {
		s.stopTimer()
	}
	close(s.done)
	return nil
}

func (s *Session) requireInProgressLocked() error {
	switch s.state {
	case StateInProgress:
		return nil
	case StateAbandoned, StateNotStarted:
		return domain.ErrSessionNotFound
	default:
		return domain.ErrAlreadySubmitted
	}
}

func (s *Session) snapshotLocked() SessionSnapshot {
	total := len(s.quiz.Questions)
	snap := SessionSnapshot{
		SessionID: s.id,
		QuizID:    s.quiz.ID,
		Title:     s.quiz.Title,
		State:     s.state,
		Index:     s.current,
		Total:     total,
		Answers:   make(map[string]string, len(s.answers)),
	}
	for k, v := range s.answers {
		snap.Answers[k] = v
	}
	if total > 0 {
		q := s.quiz.Questions[s.current]
		view := QuestionView{ID: q.ID, Prompt: q.Prompt, Type: q.Type}
		for _, c := range q.Choices {
			view.Choices = append(view.Choices, ChoiceView{ID: c.ID, Text: c.Text})
		}
		snap.Question = &view
		snap.ProgressPercent = Percent(s.current+1, total)
	}
	snap.AllAnswered = len(s.answers) == total
	if !s.deadline.IsZero() {
		remaining := remainingSeconds(s.deadline, s.now())
		snap.RemainingSeconds = &remaining
	}
	return snap
}

func remainingSeconds(deadline, now time.Time) int {
	left := deadline.Sub(now)
	if left <= 0 {
		return 0
	}
	secs := int(left / time.Second)
	if left%time.Second != 0 {
		secs++
	}
	return secs
}
