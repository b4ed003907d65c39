package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"coursehub-service/internal/config"
	"coursehub-service/internal/domain"
	"coursehub-service/internal/logger"
	"github.com/google/uuid"
)

// finishedRetention is how long a graded session stays in memory for result reads. Later
// duplicate submits are answered from the stored submission key.
const finishedRetention = time.Minute

// TimerFunc arms a one-shot callback and returns its stop function (time.AfterFunc shape).
type TimerFunc func(d time.Duration, f func()) (stop func() bool)

func realTimer(d time.Duration, f func()) func() bool {
	return time.AfterFunc(d, f).Stop
}

// QuizOption customizes a QuizService.
type QuizOption func(*QuizService)

// WithPassThreshold sets the score at which an auto-graded attempt completes its module.
func WithPassThreshold(threshold int) QuizOption {
	return func(s *QuizService) { s.passThreshold = threshold }
}

// WithClock is test-only for deterministic timestamps.
func WithClock(now func() time.Time) QuizOption {
	return func(s *QuizService) { s.now = now }
}

// WithTimer replaces time.AfterFunc for the countdown.
func WithTimer(timer TimerFunc) QuizOption {
	return func(s *QuizService) { s.afterFunc = timer }
}

// QuizService contains the quiz-taking use cases.
type QuizService struct {
	sessions SessionRepository
	quizzes  QuizRepository
	courses  CourseRepository
	attempts AttemptRepository
	gate     *EnrollmentService
	progress *ProgressService

	passThreshold int
	now           func() time.Time
	afterFunc     TimerFunc
	newID         func() string
	log           *logger.Logger
}

func NewQuizService(
	sessions SessionRepository,
	quizzes QuizRepository,
	courses CourseRepository,
	attempts AttemptRepository,
	gate *EnrollmentService,
	progress *ProgressService,
	log *logger.Logger,
	opts ...QuizOption,
) *QuizService {
	s := &QuizService{
		sessions:      sessions,
		quizzes:       quizzes,
		courses:       courses,
		attempts:      attempts,
		gate:          gate,
		progress:      progress,
		passThreshold: config.DefaultPassThreshold,
		now:           time.Now,
		afterFunc:     realTimer,
		newID:         uuid.NewString,
		log:           log,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// PassThreshold is the minimum score that completes a quiz-gated module.
func (s *QuizService) PassThreshold() int {
	return s.passThreshold
}

// Start opens a session on the module's quiz for an enrolled user and arms the countdown.
func (s *QuizService) Start(ctx context.Context, userID, moduleID string) (*Session, error) {
	module, err := s.courses.GetModule(ctx, moduleID)
	if err != nil {
		return nil, err
	}
	content, ok := module.QuizContent()
	if !ok {
		return nil, fmt.Errorf("module %s has no quiz: %w", moduleID, domain.ErrQuizNotFound)
	}
	if err := s.gate.RequireEnrollment(ctx, userID, module.CourseID); err != nil {
		return nil, err
	}
	quiz, err := s.quizzes.GetQuiz(ctx, content.Quiz.QuizID)
	if err != nil {
		return nil, err
	}

	session := newSessionWithClock(s.newID(), userID, moduleID, quiz, s.now)
	limit := session.start()
	s.sessions.Put(session)
	if limit > 0 {
		id := session.ID()
		session.setTimer(s.afterFunc(limit, func() { s.expire(id) }))
	}
	s.log.Info("quiz session started", "session_id", session.ID(), "user_id", userID, "quiz_id", quiz.ID, "limit", limit)
	return session, nil
}

// Session returns the user's live session.
func (s *QuizService) Session(sessionID, userID string) (*Session, error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok || session.UserID() != userID {
		return nil, domain.ErrSessionNotFound
	}
	return session, nil
}

// Answer captures an answer for a question in the session.
func (s *QuizService) Answer(_ context.Context, sessionID, userID, questionID, value string) (SessionSnapshot, error) {
	session, err := s.Session(sessionID, userID)
	if err != nil {
		return SessionSnapshot{}, err
	}
	return session.answer(questionID, value)
}

// Next moves to the following question; the current one must be answered.
func (s *QuizService) Next(_ context.Context, sessionID, userID string) (SessionSnapshot, error) {
	session, err := s.Session(sessionID, userID)
	if err != nil {
		return SessionSnapshot{}, err
	}
	return session.next()
}

func (s *QuizService) Previous(_ context.Context, sessionID, userID string) (SessionSnapshot, error) {
	session, err := s.Session(sessionID, userID)
	if err != nil {
		return SessionSnapshot{}, err
	}
	return session.previous()
}

func (s *QuizService) GoTo(_ context.Context, sessionID, userID string, index int) (SessionSnapshot, error) {
	session, err := s.Session(sessionID, userID)
	if err != nil {
		return SessionSnapshot{}, err
	}
	return session.goTo(index)
}

// Submit grades and persists the attempt. A second submission of the same session fails
// with ErrAlreadySubmitted, also once the finished session has been dropped from memory.
func (s *QuizService) Submit(ctx context.Context, sessionID, userID string) (SubmitResult, error) {
	session, err := s.Session(sessionID, userID)
	if errors.Is(err, domain.ErrSessionNotFound) {
		return SubmitResult{}, s.replayed(ctx, sessionID, userID)
	}
	if err != nil {
		return SubmitResult{}, err
	}
	return s.submit(ctx, session, false)
}

// replayed tells a submit for an unknown session apart from one whose attempt is stored.
func (s *QuizService) replayed(ctx context.Context, sessionID, userID string) error {
	attempt, err := s.attempts.GetAttemptBySubmissionKey(ctx, sessionID)
	switch {
	case errors.Is(err, domain.ErrAttemptNotFound):
		return domain.ErrSessionNotFound
	case err != nil:
		return fmt.Errorf("lookup submission: %w", err)
	case attempt.UserID != userID:
		return domain.ErrSessionNotFound
	default:
		return domain.ErrAlreadySubmitted
	}
}

// Abandon drops an in-progress session without persisting anything.
func (s *QuizService) Abandon(_ context.Context, sessionID, userID string) error {
	session, err := s.Session(sessionID, userID)
	if err != nil {
		return err
	}
	if err := session.abandon(); err != nil {
		return err
	}
	s.sessions.Delete(sessionID)
	s.log.Info("quiz session abandoned", "session_id", sessionID, "user_id", userID)
	return nil
}

// AttemptCount reports how many attempts the user has submitted for the quiz.
func (s *QuizService) AttemptCount(ctx context.Context, userID, quizID string) (int, error) {
	return s.attempts.CountAttempts(ctx, userID, quizID)
}

// expire is the countdown callback: a forced submit that still runs the full grading pass.
func (s *QuizService) expire(sessionID string) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return
	}
	if _, err := s.submit(context.Background(), session, true); err != nil && !errors.Is(err, domain.ErrAlreadySubmitted) {
		s.log.Error("timed quiz submit failed", "session_id", sessionID, "error", err)
	}
}

func (s *QuizService) submit(ctx context.Context, session *Session, timedOut bool) (SubmitResult, error) {
	answers, startedAt, err := session.beginSubmit()
	if err != nil {
		return SubmitResult{}, err
	}

	graded := GradeSubmission(session.quiz, answers)
	attempt := domain.Attempt{
		ID:              s.newID(),
		SubmissionKey:   session.submissionKey,
		UserID:          session.userID,
		QuizID:          session.quiz.ID,
		ModuleID:        session.moduleID,
		StartedAt:       startedAt,
		CompletedAt:     s.now(),
		Score:           graded.Score,
		NeedsCorrection: graded.NeedsCorrection,
		IsCorrected:     !graded.NeedsCorrection,
		Answers:         graded.Answers,
	}
	for i := range attempt.Answers {
		attempt.Answers[i].ID = s.newID()
		attempt.Answers[i].AttemptID = attempt.ID
	}

	if err := s.attempts.CreateSubmitted(ctx, attempt); err != nil {
		session.failSubmit()
		return SubmitResult{}, fmt.Errorf("store attempt: %w", err)
	}

	result := SubmitResult{
		SessionID: session.ID(),
		State:     StateAutoGraded,
		Attempt:   attempt,
		TimedOut:  timedOut,
	}
	if attempt.NeedsCorrection {
		result.State = StatePendingCorrection
	} else if attempt.Score != nil && *attempt.Score >= s.passThreshold {
		result.Passed = true
		if _, err := s.progress.MarkModuleComplete(ctx, attempt.UserID, attempt.ModuleID); err != nil {
			s.log.Warn("passed quiz did not complete module", "attempt_id", attempt.ID, "module_id", attempt.ModuleID, "error", err)
		}
	}
	session.finish(result)
	id := session.ID()
	s.afterFunc(finishedRetention, func() { s.sessions.Delete(id) })

	s.log.Info("quiz submitted",
		"session_id", session.ID(),
		"attempt_id", attempt.ID,
		"user_id", attempt.UserID,
		"state", result.State,
		"answered", graded.Answered,
		"correct", graded.Correct,
		"timed_out", timedOut,
	)
	return result, nil
}
