// Package catalog loads the YAML catalog seed (users, courses, quizzes) and writes it into a
// store.
package catalog

import (
	"context"
	"fmt"
	"os"

	"coursehub-service/internal/domain"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

type Seed struct {
	Users   []UserSeed   `yaml:"users" validate:"dive"`
	Courses []CourseSeed `yaml:"courses" validate:"dive"`
	Quizzes []QuizSeed   `yaml:"quizzes" validate:"dive"`
}

type UserSeed struct {
	ID           string `yaml:"id" validate:"required"`
	Email        string `yaml:"email" validate:"required,email"`
	FirstName    string `yaml:"first_name"`
	LastName     string `yaml:"last_name"`
	Role         string `yaml:"role" validate:"omitempty,oneof=user moderator admin"`
	Subscription string `yaml:"subscription" validate:"omitempty,oneof=free tier_a tier_b"`
}

type CourseSeed struct {
	ID          string       `yaml:"id" validate:"required"`
	Title       string       `yaml:"title" validate:"required"`
	Description string       `yaml:"description"`
	Category    string       `yaml:"category"`
	Difficulty  string       `yaml:"difficulty"`
	OrderIndex  int          `yaml:"order_index"`
	Published   bool         `yaml:"published"`
	Modules     []ModuleSeed `yaml:"modules" validate:"dive"`
}

type ModuleSeed struct {
	ID               string        `yaml:"id" validate:"required"`
	Title            string        `yaml:"title"`
	OrderIndex       int           `yaml:"order_index"`
	EstimatedMinutes int           `yaml:"estimated_minutes" validate:"gte=0"`
	Contents         []ContentSeed `yaml:"contents" validate:"dive"`
}

type ContentSeed struct {
	ID              string `yaml:"id" validate:"required"`
	Title           string `yaml:"title"`
	Type            string `yaml:"type" validate:"required,oneof=video file quiz"`
	OrderIndex      int    `yaml:"order_index"`
	URL             string `yaml:"url" validate:"required_unless=Type quiz"`
	DurationSeconds int    `yaml:"duration_seconds" validate:"gte=0"`
	QuizID          string `yaml:"quiz_id" validate:"required_if=Type quiz"`
}

type QuizSeed struct {
	ID           string         `yaml:"id" validate:"required"`
	Title        string         `yaml:"title"`
	Description  string         `yaml:"description"`
	TimerMinutes int            `yaml:"timer_minutes" validate:"gte=0"`
	Questions    []QuestionSeed `yaml:"questions" validate:"dive"`
}

type QuestionSeed struct {
	ID         string       `yaml:"id" validate:"required"`
	Prompt     string       `yaml:"prompt" validate:"required"`
	Type       string       `yaml:"type" validate:"required,oneof=choice text"`
	OrderIndex int          `yaml:"order_index"`
	Choices    []ChoiceSeed `yaml:"choices" validate:"required_if=Type choice,dive"`
}

type ChoiceSeed struct {
	ID         string `yaml:"id" validate:"required"`
	Text       string `yaml:"text" validate:"required"`
	Correct    bool   `yaml:"correct"`
	OrderIndex int    `yaml:"order_index"`
}

// Load reads and validates a seed file.
func Load(path string) (Seed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Seed{}, err
	}
	return Parse(data)
}

// Parse decodes a YAML seed and checks field rules and cross references.
func Parse(data []byte) (Seed, error) {
	var seed Seed
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return Seed{}, fmt.Errorf("decode seed: %w", err)
	}
	if err := validator.New().Struct(seed); err != nil {
		return Seed{}, fmt.Errorf("invalid seed: %w", err)
	}
	if err := seed.checkReferences(); err != nil {
		return Seed{}, err
	}
	return seed, nil
}

func (s Seed) checkReferences() error {
	quizzes := make(map[string]bool, len(s.Quizzes))
	for _, q := range s.Quizzes {
		quizzes[q.ID] = true
	}
	modules := make(map[string]bool)
	for _, c := range s.Courses {
		positions := make(map[int]string, len(c.Modules))
		for _, m := range c.Modules {
			if modules[m.ID] {
				return fmt.Errorf("invalid seed: module %q declared twice", m.ID)
			}
			modules[m.ID] = true
			if other, ok := positions[m.OrderIndex]; ok {
				return fmt.Errorf("invalid seed: course %q: modules %q and %q at position %d: %w",
					c.ID, other, m.ID, m.OrderIndex, domain.ErrDuplicateOrder)
			}
			positions[m.OrderIndex] = m.ID
			quizCount := 0
			for _, content := range m.Contents {
				if content.Type != string(domain.ContentQuiz) {
					continue
				}
				quizCount++
				if !quizzes[content.QuizID] {
					return fmt.Errorf("invalid seed: content %q: %w", content.ID, domain.ErrQuizNotFound)
				}
			}
			if quizCount > 1 {
				return fmt.Errorf("invalid seed: module %q has more than one quiz", m.ID)
			}
		}
	}
	return nil
}

func (s Seed) DomainUsers() []domain.User {
	out := make([]domain.User, 0, len(s.Users))
	for _, u := range s.Users {
		user := domain.User{
			ID:           u.ID,
			Email:        u.Email,
			FirstName:    u.FirstName,
			LastName:     u.LastName,
			Role:         domain.Role(u.Role),
			Subscription: domain.SubscriptionTier(u.Subscription),
		}
		if user.Role == "" {
			user.Role = domain.RoleUser
		}
		if user.Subscription == "" {
			user.Subscription = domain.TierFree
		}
		out = append(out, user)
	}
	return out
}

func (s Seed) DomainCourses() []domain.Course {
	out := make([]domain.Course, 0, len(s.Courses))
	for _, c := range s.Courses {
		course := domain.Course{
			ID:          c.ID,
			Title:       c.Title,
			Description: c.Description,
			Category:    c.Category,
			Difficulty:  c.Difficulty,
			OrderIndex:  c.OrderIndex,
			Published:   c.Published,
		}
		for _, m := range c.Modules {
			module := domain.Module{
				ID:               m.ID,
				CourseID:         c.ID,
				Title:            m.Title,
				OrderIndex:       m.OrderIndex,
				EstimatedMinutes: m.EstimatedMinutes,
			}
			for _, content := range m.Contents {
				module.Contents = append(module.Contents, content.toDomain(m.ID))
			}
			course.Modules = append(course.Modules, module)
		}
		out = append(out, course)
	}
	return out
}

func (c ContentSeed) toDomain(moduleID string) domain.ModuleContent {
	switch domain.ContentType(c.Type) {
	case domain.ContentVideo:
		return domain.NewVideoContent(c.ID, moduleID, c.Title, c.OrderIndex, c.URL, c.DurationSeconds)
	case domain.ContentFile:
		return domain.NewFileContent(c.ID, moduleID, c.Title, c.OrderIndex, c.URL)
	default:
		return domain.NewQuizContent(c.ID, moduleID, c.Title, c.OrderIndex, c.QuizID)
	}
}

func (s Seed) DomainQuizzes() []domain.Quiz {
	out := make([]domain.Quiz, 0, len(s.Quizzes))
	for _, q := range s.Quizzes {
		quiz := domain.Quiz{
			ID:           q.ID,
			Title:        q.Title,
			Description:  q.Description,
			TimerMinutes: q.TimerMinutes,
		}
		for _, question := range q.Questions {
			dq := domain.Question{
				ID:         question.ID,
				QuizID:     q.ID,
				Prompt:     question.Prompt,
				Type:       domain.QuestionType(question.Type),
				OrderIndex: question.OrderIndex,
			}
			for _, c := range question.Choices {
				dq.Choices = append(dq.Choices, domain.Choice{ID: c.ID, Text: c.Text, Correct: c.Correct, OrderIndex: c.OrderIndex})
			}
			quiz.Questions = append(quiz.Questions, dq)
		}
		quiz.NeedsCorrection = quiz.HasTextQuestion()
		out = append(out, quiz)
	}
	return out
}

// Writer is the store surface a seed is applied to.
type Writer interface {
	SaveUser(ctx context.Context, user domain.User) error
	SaveQuiz(ctx context.Context, quiz domain.Quiz) error
	SaveCourse(ctx context.Context, course domain.Course) error
}

// Apply writes quizzes before courses so quiz contents always reference a stored quiz.
func Apply(ctx context.Context, seed Seed, w Writer) error {
	for _, q := range seed.DomainQuizzes() {
		if err := w.SaveQuiz(ctx, q); err != nil {
			return fmt.Errorf("save quiz %s: %w", q.ID, err)
		}
	}
	for _, c := range seed.DomainCourses() {
		if err := w.SaveCourse(ctx, c); err != nil {
			return fmt.Errorf("save course %s: %w", c.ID, err)
		}
	}
	for _, u := range seed.DomainUsers() {
		if err := w.SaveUser(ctx, u); err != nil {
			return fmt.Errorf("save user %s: %w", u.ID, err)
		}
	}
	return nil
}
