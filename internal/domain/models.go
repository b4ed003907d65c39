package domain

import (
	"fmt"
	"time"
)

// Role is the access level of a user account.
type Role string

const (
	RoleUser      Role = "user"
	RoleModerator Role = "moderator"
	RoleAdmin     Role = "admin"
)

// IsStaff reports whether the role may work the correction queue.
func (r Role) IsStaff() bool {
	return r == RoleModerator || r == RoleAdmin
}

// SubscriptionTier controls catalog access.
type SubscriptionTier string

const (
	TierFree SubscriptionTier = "free"
	TierA    SubscriptionTier = "tier_a"
	TierB    SubscriptionTier = "tier_b"
)

// Unrestricted reports whether the tier grants access to every published course.
func (t SubscriptionTier) Unrestricted() bool {
	return t == TierA || t == TierB
}

// User is a learner or backoffice account.
type User struct {
	ID            string           `json:"id"`
	Email         string           `json:"email"`
	FirstName     string           `json:"firstName"`
	LastName      string           `json:"lastName"`
	Role          Role             `json:"role"`
	Subscription  SubscriptionTier `json:"subscription"`
	DayStreak     int              `json:"dayStreak"`
	LastLoginDate time.Time        `json:"lastLoginDate"`
	CreatedAt     time.Time        `json:"createdAt"`
}

// Course is a catalog entry owning an ordered list of modules.
type Course struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Category    string   `json:"category"`
	Difficulty  string   `json:"difficulty"`
	OrderIndex  int      `json:"orderIndex"`
	Published   bool     `json:"published"`
	Modules     []Module `json:"modules,omitempty"`
}

// CheckModuleOrder returns ErrDuplicateOrder when two modules share an OrderIndex.
func (c Course) CheckModuleOrder() error {
	seen := make(map[int]string, len(c.Modules))
	for _, m := range c.Modules {
		if other, ok := seen[m.OrderIndex]; ok {
			return fmt.Errorf("modules %q and %q at position %d: %w", other, m.ID, m.OrderIndex, ErrDuplicateOrder)
		}
		seen[m.OrderIndex] = m.ID
	}
	return nil
}

// Module belongs to exactly one course.
type Module struct {
	ID               string          `json:"id"`
	CourseID         string          `json:"courseId"`
	Title            string          `json:"title"`
	OrderIndex       int             `json:"orderIndex"`
	EstimatedMinutes int             `json:"estimatedMinutes"`
	Contents         []ModuleContent `json:"contents,omitempty"`
}

// QuizContent returns the quiz-typed content gating module completion, if any.
func (m Module) QuizContent() (ModuleContent, bool) {
	for _, c := range m.Contents {
		if c.Type == ContentQuiz && c.Quiz != nil {
			return c, true
		}
	}
	return ModuleContent{}, false
}

// ContentType tags the ModuleContent variant.
type ContentType string

const (
	ContentVideo ContentType = "video"
	ContentFile  ContentType = "file"
	ContentQuiz  ContentType = "quiz"
)

// ModuleContent is a tagged union: only the variant matching Type is set.
type ModuleContent struct {
	ID         string        `json:"id"`
	ModuleID   string        `json:"moduleId"`
	Title      string        `json:"title"`
	Type       ContentType   `json:"type"`
	OrderIndex int           `json:"orderIndex"`
	Video      *VideoContent `json:"video,omitempty"`
	File       *FileContent  `json:"file,omitempty"`
	Quiz       *QuizContent  `json:"quiz,omitempty"`
}

type VideoContent struct {
	URL             string `json:"url"`
	DurationSeconds int    `json:"durationSeconds"`
}

type FileContent struct {
	URL string `json:"url"`
}

type QuizContent struct {
	QuizID string `json:"quizId"`
}

// Enrollment grants a user access to a course's module content.
type Enrollment struct {
	UserID    string    `json:"userId"`
	CourseID  string    `json:"courseId"`
	CreatedAt time.Time `json:"createdAt"`
}

// ModuleProgress records completion of a module. Completion never reverts.
type ModuleProgress struct {
	UserID      string    `json:"userId"`
	ModuleID    string    `json:"moduleId"`
	Completed   bool      `json:"completed"`
	CompletedAt time.Time `json:"completedAt"`
}

// QuestionType distinguishes auto-graded from manually corrected questions.
type QuestionType string

const (
	QuestionChoice QuestionType = "choice"
	QuestionText   QuestionType = "text"
)

// Choice is a possible answer for a choice question.
type Choice struct {
	ID         string `json:"id"`
	Text       string `json:"text"`
	Correct    bool   `json:"correct"`
	OrderIndex int    `json:"orderIndex"`
}

// Question is either a choice question or a free-text question.
type Question struct {
	ID         string       `json:"id"`
	QuizID     string       `json:"quizId"`
	Prompt     string       `json:"prompt"`
	Type       QuestionType `json:"type"`
	OrderIndex int          `json:"orderIndex"`
	Choices    []Choice     `json:"choices,omitempty"`
}

// Choice looks up a choice by ID.
func (q Question) Choice(id string) (Choice, bool) {
	for _, c := range q.Choices {
		if c.ID == id {
			return c, true
		}
	}
	return Choice{}, false
}

// Quiz is an ordered list of questions with an optional time limit.
type Quiz struct {
	ID              string     `json:"id"`
	Title           string     `json:"title"`
	Description     string     `json:"description"`
	TimerMinutes    int        `json:"timerMinutes"` // zero means no limit
	NeedsCorrection bool       `json:"needsCorrection"`
	Questions       []Question `json:"questions"`
}

// HasTextQuestion reports whether any attempt at this quiz needs manual correction.
func (q Quiz) HasTextQuestion() bool {
	for _, question := range q.Questions {
		if question.Type == QuestionText {
			return true
		}
	}
	return false
}

// Question looks up a question by ID.
func (q Quiz) Question(id string) (Question, bool) {
	for _, question := range q.Questions {
		if question.ID == id {
			return question, true
		}
	}
	return Question{}, false
}

// Attempt is a submitted quiz. Score is set iff IsCorrected.
type Attempt struct {
	ID              string     `json:"id"`
	SubmissionKey   string     `json:"-"`
	UserID          string     `json:"userId"`
	QuizID          string     `json:"quizId"`
	ModuleID        string     `json:"moduleId,omitempty"`
	StartedAt       time.Time  `json:"startedAt"`
	CompletedAt     time.Time  `json:"completedAt"`
	Score           *int       `json:"score"`
	NeedsCorrection bool       `json:"needsCorrection"`
	IsCorrected     bool       `json:"isCorrected"`
	CorrectedBy     string     `json:"correctedBy,omitempty"`
	CorrectedAt     *time.Time `json:"correctedAt,omitempty"`
	Answers         []Answer   `json:"answers,omitempty"`
}

// Answer is a single response within an attempt. Correct stays nil until graded.
type Answer struct {
	ID           string       `json:"id"`
	AttemptID    string       `json:"attemptId"`
	QuestionID   string       `json:"questionId"`
	QuestionType QuestionType `json:"questionType"`
	ChoiceID     string       `json:"choiceId,omitempty"`
	Text         string       `json:"text,omitempty"`
	Correct      *bool        `json:"correct"`
	Feedback     string       `json:"feedback,omitempty"`
}

// Notification is a message shown to a user in the app.
type Notification struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Type      string    `json:"type"`
	CreatedAt time.Time `json:"createdAt"`
}

const NotificationQuizCorrected = "quiz_corrected"

// CourseReview is a learner's rating of a course, one per (course, user).
type CourseReview struct {
	ID        string    `json:"id"`
	CourseID  string    `json:"courseId"`
	UserID    string    `json:"userId"`
	Rating    int       `json:"rating"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
