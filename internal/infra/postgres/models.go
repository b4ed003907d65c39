package postgres

import (
	"time"

	"coursehub-service/internal/domain"
	"github.com/uptrace/bun"
)

type userRow struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID            string    `bun:"id,pk"`
	Email         string    `bun:"email"`
	FirstName     string    `bun:"first_name"`
	LastName      string    `bun:"last_name"`
	Role          string    `bun:"role"`
	Subscription  string    `bun:"subscription_type"`
	DayStreak     int       `bun:"day_streak"`
	LastLoginDate time.Time `bun:"last_login_date,nullzero"`
	CreatedAt     time.Time `bun:"created_at,nullzero,default:current_timestamp"`
}

func newUserRow(u domain.User) *userRow {
	return &userRow{
		ID:            u.ID,
		Email:         u.Email,
		FirstName:     u.FirstName,
		LastName:      u.LastName,
		Role:          string(u.Role),
		Subscription:  string(u.Subscription),
		DayStreak:     u.DayStreak,
		LastLoginDate: u.LastLoginDate,
		CreatedAt:     u.CreatedAt,
	}
}

func (r *userRow) toDomain() domain.User {
	return domain.User{
		ID:            r.ID,
		Email:         r.Email,
		FirstName:     r.FirstName,
		LastName:      r.LastName,
		Role:          domain.Role(r.Role),
		Subscription:  domain.SubscriptionTier(r.Subscription),
		DayStreak:     r.DayStreak,
		LastLoginDate: r.LastLoginDate,
		CreatedAt:     r.CreatedAt,
	}
}

type courseRow struct {
	bun.BaseModel `bun:"table:courses,alias:c"`

	ID          string       `bun:"id,pk"`
	Title       string       `bun:"title"`
	Description string       `bun:"description"`
	Category    string       `bun:"category"`
	Difficulty  string       `bun:"difficulty"`
	OrderIndex  int          `bun:"order_index"`
	Published   bool         `bun:"is_published"`
	Modules     []*moduleRow `bun:"rel:has-many,join:id=course_id"`
}

func (r *courseRow) toDomain() domain.Course {
	course := domain.Course{
		ID:          r.ID,
		Title:       r.Title,
		Description: r.Description,
		Category:    r.Category,
		Difficulty:  r.Difficulty,
		OrderIndex:  r.OrderIndex,
		Published:   r.Published,
	}
	for _, m := range r.Modules {
		course.Modules = append(course.Modules, m.toDomain())
	}
	return course
}

type moduleRow struct {
	bun.BaseModel `bun:"table:course_modules,alias:m"`

	ID               string        `bun:"id,pk"`
	CourseID         string        `bun:"course_id"`
	Title            string        `bun:"title"`
	OrderIndex       int           `bun:"order_index"`
	EstimatedMinutes int           `bun:"estimated_time_minutes"`
	Contents         []*contentRow `bun:"rel:has-many,join:id=module_id"`
}

func (r *moduleRow) toDomain() domain.Module {
	module := domain.Module{
		ID:               r.ID,
		CourseID:         r.CourseID,
		Title:            r.Title,
		OrderIndex:       r.OrderIndex,
		EstimatedMinutes: r.EstimatedMinutes,
	}
	for _, c := range r.Contents {
		module.Contents = append(module.Contents, c.toDomain())
	}
	return module
}

// contentRow flattens the ModuleContent union; only the columns of its type are set.
type contentRow struct {
	bun.BaseModel `bun:"table:module_content,alias:mc"`

	ID              string `bun:"id,pk"`
	ModuleID        string `bun:"module_id"`
	Title           string `bun:"title"`
	Type            string `bun:"content_type"`
	OrderIndex      int    `bun:"order_index"`
	URL             string `bun:"url,nullzero"`
	DurationSeconds int    `bun:"duration_seconds,nullzero"`
	QuizID          string `bun:"quiz_id,nullzero"`
}

func newContentRow(c domain.ModuleContent) *contentRow {
	row := &contentRow{
		ID:         c.ID,
		ModuleID:   c.ModuleID,
		Title:      c.Title,
		Type:       string(c.Type),
		OrderIndex: c.OrderIndex,
	}
	switch {
	case c.Video != nil:
		row.URL = c.Video.URL
		row.DurationSeconds = c.Video.DurationSeconds
	case c.File != nil:
		row.URL = c.File.URL
	case c.Quiz != nil:
		row.QuizID = c.Quiz.QuizID
	}
	return row
}

func (r *contentRow) toDomain() domain.ModuleContent {
	switch domain.ContentType(r.Type) {
	case domain.ContentVideo:
		return domain.NewVideoContent(r.ID, r.ModuleID, r.Title, r.OrderIndex, r.URL, r.DurationSeconds)
	case domain.ContentFile:
		return domain.NewFileContent(r.ID, r.ModuleID, r.Title, r.OrderIndex, r.URL)
	default:
		return domain.NewQuizContent(r.ID, r.ModuleID, r.Title, r.OrderIndex, r.QuizID)
	}
}

type quizRow struct {
	bun.BaseModel `bun:"table:quizzes,alias:q"`

	ID              string         `bun:"id,pk"`
	Title           string         `bun:"title"`
	Description     string         `bun:"description"`
	TimerMinutes    int            `bun:"timer_minutes"`
	NeedsCorrection bool           `bun:"needs_correction"`
	Questions       []*questionRow `bun:"rel:has-many,join:id=quiz_id"`
}

func (r *quizRow) toDomain() domain.Quiz {
	quiz := domain.Quiz{
		ID:              r.ID,
		Title:           r.Title,
		Description:     r.Description,
		TimerMinutes:    r.TimerMinutes,
		NeedsCorrection: r.NeedsCorrection,
		Questions:       make([]domain.Question, 0, len(r.Questions)),
	}
	for _, q := range r.Questions {
		question := domain.Question{
			ID:         q.ID,
			QuizID:     q.QuizID,
			Prompt:     q.Prompt,
			Type:       domain.QuestionType(q.Type),
			OrderIndex: q.OrderIndex,
		}
		for _, c := range q.Choices {
			question.Choices = append(question.Choices, domain.Choice{
				ID:         c.ID,
				Text:       c.Text,
				Correct:    c.Correct,
				OrderIndex: c.OrderIndex,
			})
		}
		quiz.Questions = append(quiz.Questions, question)
	}
	return quiz
}

type questionRow struct {
	bun.BaseModel `bun:"table:quiz_questions,alias:qq"`

	ID         string       `bun:"id,pk"`
	QuizID     string       `bun:"quiz_id"`
	Prompt     string       `bun:"question_text"`
	Type       string       `bun:"question_type"`
	OrderIndex int          `bun:"order_index"`
	Choices    []*choiceRow `bun:"rel:has-many,join:id=question_id"`
}

type choiceRow struct {
	bun.BaseModel `bun:"table:question_choices,alias:qc"`

	ID         string `bun:"id,pk"`
	QuestionID string `bun:"question_id"`
	Text       string `bun:"choice_text"`
	Correct    bool   `bun:"is_correct"`
	OrderIndex int    `bun:"order_index"`
}

type enrollmentRow struct {
	bun.BaseModel `bun:"table:course_registrations,alias:cr"`

	UserID    string    `bun:"user_id,pk"`
	CourseID  string    `bun:"course_id,pk"`
	CreatedAt time.Time `bun:"created_at,nullzero,default:current_timestamp"`
}

func (r *enrollmentRow) toDomain() domain.Enrollment {
	return domain.Enrollment{UserID: r.UserID, CourseID: r.CourseID, CreatedAt: r.CreatedAt}
}

type progressRow struct {
	bun.BaseModel `bun:"table:module_progress,alias:mp"`

	UserID      string    `bun:"user_id,pk"`
	ModuleID    string    `bun:"module_id,pk"`
	Completed   bool      `bun:"completed"`
	CompletedAt time.Time `bun:"completed_at,nullzero"`
}

func (r *progressRow) toDomain() domain.ModuleProgress {
	return domain.ModuleProgress{
		UserID:      r.UserID,
		ModuleID:    r.ModuleID,
		Completed:   r.Completed,
		CompletedAt: r.CompletedAt,
	}
}

type attemptRow struct {
	bun.BaseModel `bun:"table:quiz_attempts,alias:qa"`

	ID              string       `bun:"id,pk"`
	SubmissionKey   string       `bun:"submission_key,nullzero"`
	UserID          string       `bun:"user_id"`
	QuizID          string       `bun:"quiz_id"`
	ModuleID        string       `bun:"module_id,nullzero"`
	StartedAt       time.Time    `bun:"started_at"`
	CompletedAt     time.Time    `bun:"completed_at"`
	Score           *int         `bun:"score"`
	NeedsCorrection bool         `bun:"needs_correction"`
	IsCorrected     bool         `bun:"is_corrected"`
	CorrectedBy     string       `bun:"corrected_by,nullzero"`
	CorrectedAt     *time.Time   `bun:"corrected_at"`
	Answers         []*answerRow `bun:"rel:has-many,join:id=attempt_id"`
}

func newAttemptRow(a domain.Attempt) *attemptRow {
	return &attemptRow{
		ID:              a.ID,
		SubmissionKey:   a.SubmissionKey,
		UserID:          a.UserID,
		QuizID:          a.QuizID,
		ModuleID:        a.ModuleID,
		StartedAt:       a.StartedAt,
		CompletedAt:     a.CompletedAt,
		Score:           a.Score,
		NeedsCorrection: a.NeedsCorrection,
		IsCorrected:     a.IsCorrected,
		CorrectedBy:     a.CorrectedBy,
		CorrectedAt:     a.CorrectedAt,
	}
}

func (r *attemptRow) toDomain() domain.Attempt {
	attempt := domain.Attempt{
		ID:              r.ID,
		SubmissionKey:   r.SubmissionKey,
		UserID:          r.UserID,
		QuizID:          r.QuizID,
		ModuleID:        r.ModuleID,
		StartedAt:       r.StartedAt,
		CompletedAt:     r.CompletedAt,
		Score:           r.Score,
		NeedsCorrection: r.NeedsCorrection,
		IsCorrected:     r.IsCorrected,
		CorrectedBy:     r.CorrectedBy,
		CorrectedAt:     r.CorrectedAt,
	}
	for _, a := range r.Answers {
		attempt.Answers = append(attempt.Answers, a.toDomain())
	}
	return attempt
}

type answerRow struct {
	bun.BaseModel `bun:"table:quiz_answers,alias:ans"`

	ID           string `bun:"id,pk"`
	AttemptID    string `bun:"attempt_id"`
	QuestionID   string `bun:"question_id"`
	QuestionType string `bun:"question_type"`
	ChoiceID     string `bun:"choice_id,nullzero"`
	Text         string `bun:"answer_text,nullzero"`
	Correct      *bool  `bun:"is_correct"`
	Feedback     string `bun:"moderator_feedback,nullzero"`
	Position     int    `bun:"position"`
}

func (r *answerRow) toDomain() domain.Answer {
	return domain.Answer{
		ID:           r.ID,
		AttemptID:    r.AttemptID,
		QuestionID:   r.QuestionID,
		QuestionType: domain.QuestionType(r.QuestionType),
		ChoiceID:     r.ChoiceID,
		Text:         r.Text,
		Correct:      r.Correct,
		Feedback:     r.Feedback,
	}
}

type notificationRow struct {
	bun.BaseModel `bun:"table:notifications,alias:n"`

	ID        string    `bun:"id,pk"`
	UserID    string    `bun:"user_id"`
	Title     string    `bun:"title"`
	Message   string    `bun:"message"`
	Type      string    `bun:"type"`
	CreatedAt time.Time `bun:"created_at"`
}

func (r *notificationRow) toDomain() domain.Notification {
	return domain.Notification{
		ID:        r.ID,
		UserID:    r.UserID,
		Title:     r.Title,
		Message:   r.Message,
		Type:      r.Type,
		CreatedAt: r.CreatedAt,
	}
}

type reviewRow struct {
	bun.BaseModel `bun:"table:course_reviews,alias:rv"`

	ID        string    `bun:"id,pk"`
	CourseID  string    `bun:"course_id"`
	UserID    string    `bun:"user_id"`
	Rating    int       `bun:"rating"`
	Text      string    `bun:"review_text"`
	CreatedAt time.Time `bun:"created_at,nullzero,default:current_timestamp"`
	UpdatedAt time.Time `bun:"updated_at,nullzero,default:current_timestamp"`
}

func (r *reviewRow) toDomain() domain.CourseReview {
	return domain.CourseReview{
		ID:        r.ID,
		CourseID:  r.CourseID,
		UserID:    r.UserID,
		Rating:    r.Rating,
		Text:      r.Text,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}
