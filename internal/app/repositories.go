package app

import (
	"context"
	"time"

	"coursehub-service/internal/domain"
)

// UserRepository stores user accounts.
type UserRepository interface {
	GetUser(ctx context.Context, userID string) (domain.User, error)
	ListUsers(ctx context.Context) ([]domain.User, error)
	SaveUser(ctx context.Context, user domain.User) error
}

// CourseRepository reads the course catalog. Courses and modules come back with their
// modules and contents sorted by OrderIndex.
type CourseRepository interface {
	ListCourses(ctx context.Context, publishedOnly bool) ([]domain.Course, error)
	GetCourse(ctx context.Context, courseID string) (domain.Course, error)
	GetModule(ctx context.Context, moduleID string) (domain.Module, error)
	GetContent(ctx context.Context, contentID string) (domain.ModuleContent, error)
}

// CatalogWriter is the authoring side of the catalog store.
type CatalogWriter interface {
	// SaveCourse replaces the course with its modules and contents. Two modules at the same
	// OrderIndex return domain.ErrDuplicateOrder.
	SaveCourse(ctx context.Context, course domain.Course) error
	DeleteCourse(ctx context.Context, courseID string) error
	SaveQuiz(ctx context.Context, quiz domain.Quiz) error
	DeleteQuiz(ctx context.Context, quizID string) error
	ListQuizzes(ctx context.Context) ([]domain.Quiz, error)
}

// QuizCache drops cached quiz content after an edit.
type QuizCache interface {
	Invalidate(ctx context.Context, quizID string) error
}

// QuizRepository loads quiz content (from cache/backing store).
type QuizRepository interface {
	GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
}

// EnrollmentRepository stores course registrations.
type EnrollmentRepository interface {
	GetEnrollment(ctx context.Context, userID, courseID string) (domain.Enrollment, bool, error)
	// CreateEnrollment returns domain.ErrAlreadyEnrolled if the pair already exists.
	CreateEnrollment(ctx context.Context, enrollment domain.Enrollment) error
	// DeleteEnrollment returns domain.ErrNotEnrolled if nothing was removed.
	DeleteEnrollment(ctx context.Context, userID, courseID string) error
	ListEnrollmentsByUser(ctx context.Context, userID string) ([]domain.Enrollment, error)
	CountEnrollmentsByCourse(ctx context.Context, courseID string) (int, error)
}

// ProgressRepository stores module completion keyed on (user, module).
type ProgressRepository interface {
	// MarkCompleted upserts a completed row and returns the stored row. An already completed
	// row is returned untouched.
	MarkCompleted(ctx context.Context, progress domain.ModuleProgress) (domain.ModuleProgress, error)
	ListProgress(ctx context.Context, userID string, moduleIDs []string) ([]domain.ModuleProgress, error)
	CountCompletedByModule(ctx context.Context, moduleID string) (int, error)
}

// AttemptRepository stores submitted quiz attempts and their answers.
type AttemptRepository interface {
	// CreateSubmitted writes the attempt and all answers in one batch. A second call with the
	// same SubmissionKey returns domain.ErrAlreadySubmitted and writes nothing.
	CreateSubmitted(ctx context.Context, attempt domain.Attempt) error
	GetAttempt(ctx context.Context, attemptID string) (domain.Attempt, error)
	// GetAttemptBySubmissionKey returns domain.ErrAttemptNotFound when nothing was stored
	// under key.
	GetAttemptBySubmissionKey(ctx context.Context, key string) (domain.Attempt, error)
	// ListPendingCorrection returns attempts awaiting correction, oldest completed first.
	ListPendingCorrection(ctx context.Context) ([]domain.Attempt, error)
	UpdateAnswerCorrection(ctx context.Context, answerID string, correct bool, feedback string) error
	// FinalizeAttempt returns domain.ErrAttemptFinalized if the attempt is already corrected.
	FinalizeAttempt(ctx context.Context, attemptID string, score int, correctedBy string, correctedAt time.Time) error
	ListAttemptsByQuiz(ctx context.Context, quizID string) ([]domain.Attempt, error)
	CountAttempts(ctx context.Context, userID, quizID string) (int, error)
}

// NotificationRepository stores in-app notifications.
type NotificationRepository interface {
	CreateNotification(ctx context.Context, notification domain.Notification) error
	ListNotifications(ctx context.Context, userID string) ([]domain.Notification, error)
}

// ReviewRepository stores course reviews, one per (course, user).
type ReviewRepository interface {
	// SaveReview upserts on (course, user) and returns the stored review; an edit keeps the
	// original ID and CreatedAt.
	SaveReview(ctx context.Context, review domain.CourseReview) (domain.CourseReview, error)
	// ListReviews returns newest first.
	ListReviews(ctx context.Context, courseID string) ([]domain.CourseReview, error)
}

// SessionRepository abstracts where live quiz sessions are kept (in-memory, Redis-marked, etc).
type SessionRepository interface {
	Put(session *Session)
	Get(sessionID string) (*Session, bool)
	Delete(sessionID string)
}
