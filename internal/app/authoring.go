package app

import (
	"context"
	"fmt"
	"strings"

	"coursehub-service/internal/domain"
	"coursehub-service/internal/logger"
	"github.com/google/uuid"
)

// CourseDraft carries the editable course fields. A zero OrderIndex means "after the last
// course" on create and "unchanged" on update.
type CourseDraft struct {
	Title       string
	Description string
	Category    string
	Difficulty  string
	OrderIndex  int
}

// ContentDraft describes one content item of a new module.
type ContentDraft struct {
	Title           string
	Type            domain.ContentType
	URL             string
	DurationSeconds int
	QuizID          string
}

// ModuleDraft describes a new module. A zero OrderIndex appends it after the last module.
type ModuleDraft struct {
	Title            string
	OrderIndex       int
	EstimatedMinutes int
	Contents         []ContentDraft
}

// AuthoringService is the admin backoffice for courses, modules and quizzes.
type AuthoringService struct {
	users    UserRepository
	courses  CourseRepository
	writer   CatalogWriter
	quizzes  QuizRepository
	cache    QuizCache
	attempts AttemptRepository
	newID    func() string
	log      *logger.Logger
}

func NewAuthoringService(users UserRepository, courses CourseRepository, writer CatalogWriter, quizzes QuizRepository, cache QuizCache, attempts AttemptRepository, log *logger.Logger) *AuthoringService {
	return &AuthoringService{
		users:    users,
		courses:  courses,
		writer:   writer,
		quizzes:  quizzes,
		cache:    cache,
		attempts: attempts,
		newID:    uuid.NewString,
		log:      log,
	}
}

// ListCourses returns every course, drafts included, in display order.
func (s *AuthoringService) ListCourses(ctx context.Context, actorID string) ([]domain.Course, error) {
	if err := s.requireAdmin(ctx, actorID); err != nil {
		return nil, err
	}
	return s.courses.ListCourses(ctx, false)
}

// CreateCourse stores a new course as a draft.
func (s *AuthoringService) CreateCourse(ctx context.Context, actorID string, draft CourseDraft) (domain.Course, error) {
	if err := s.requireAdmin(ctx, actorID); err != nil {
		return domain.Course{}, err
	}
	title := strings.TrimSpace(draft.Title)
	if title == "" {
		return domain.Course{}, fmt.Errorf("course title is empty: %w", domain.ErrInvalidValue)
	}
	order := draft.OrderIndex
	if order <= 0 {
		order = 0
		existing, err := s.courses.ListCourses(ctx, false)
		if err != nil {
			return domain.Course{}, err
		}
		for _, c := range existing {
			if c.OrderIndex >= order {
				order = c.OrderIndex
			}
		}
		order++
	}
	course := domain.Course{
		ID:          s.newID(),
		Title:       title,
		Description: draft.Description,
		Category:    draft.Category,
		Difficulty:  draft.Difficulty,
		OrderIndex:  order,
	}
	if err := s.writer.SaveCourse(ctx, course); err != nil {
		return domain.Course{}, fmt.Errorf("save course: %w", err)
	}
	s.log.Info("course created", "course_id", course.ID, "actor_id", actorID)
	return course, nil
}

// UpdateCourse edits course metadata; modules and the published flag are kept.
func (s *AuthoringService) UpdateCourse(ctx context.Context, actorID, courseID string, draft CourseDraft) (domain.Course, error) {
	if err := s.requireAdmin(ctx, actorID); err != nil {
		return domain.Course{}, err
	}
	title := strings.TrimSpace(draft.Title)
	if title == "" {
		return domain.Course{}, fmt.Errorf("course title is empty: %w", domain.ErrInvalidValue)
	}
	return s.updateCourse(ctx, courseID, func(c *domain.Course) error {
		c.Title = title
		c.Description = draft.Description
		c.Category = draft.Category
		c.Difficulty = draft.Difficulty
		if draft.OrderIndex > 0 {
			c.OrderIndex = draft.OrderIndex
		}
		return nil
	})
}

// SetPublished moves a course between draft and published.
func (s *AuthoringService) SetPublished(ctx context.Context, actorID, courseID string, published bool) (domain.Course, error) {
	if err := s.requireAdmin(ctx, actorID); err != nil {
		return domain.Course{}, err
	}
	course, err := s.updateCourse(ctx, courseID, func(c *domain.Course) error {
		c.Published = published
		return nil
	})
	if err != nil {
		return domain.Course{}, err
	}
	s.log.Info("course visibility changed", "course_id", courseID, "published", published, "actor_id", actorID)
	return course, nil
}

// DeleteCourse removes a course with its modules and contents.
func (s *AuthoringService) DeleteCourse(ctx context.Context, actorID, courseID string) error {
	if err := s.requireAdmin(ctx, actorID); err != nil {
		return err
	}
	if err := s.writer.DeleteCourse(ctx, courseID); err != nil {
		return err
	}
	s.log.Info("course deleted", "course_id", courseID, "actor_id", actorID)
	return nil
}

// AddModule appends a module with its contents to a course. Positions are unique within
// the course and at most one content item may be a quiz.
func (s *AuthoringService) AddModule(ctx context.Context, actorID, courseID string, draft ModuleDraft) (domain.Module, error) {
	if err := s.requireAdmin(ctx, actorID); err != nil {
		return domain.Module{}, err
	}
	course, err := s.courses.GetCourse(ctx, courseID)
	if err != nil {
		return domain.Module{}, err
	}
	order := draft.OrderIndex
	if order <= 0 {
		order = 0
		for _, m := range course.Modules {
			if m.OrderIndex >= order {
				order = m.OrderIndex
			}
		}
		order++
	}
	module := domain.Module{
		ID:               s.newID(),
		CourseID:         courseID,
		Title:            strings.TrimSpace(draft.Title),
		OrderIndex:       order,
		EstimatedMinutes: draft.EstimatedMinutes,
	}
	if module.Title == "" {
		return domain.Module{}, fmt.Errorf("module title is empty: %w", domain.ErrInvalidValue)
	}
	if module.EstimatedMinutes < 0 {
		return domain.Module{}, fmt.Errorf("estimated minutes below zero: %w", domain.ErrInvalidValue)
	}
	module.Contents, err = s.buildContents(ctx, module.ID, draft.Contents)
	if err != nil {
		return domain.Module{}, err
	}

	course.Modules = append(course.Modules, module)
	if err := course.CheckModuleOrder(); err != nil {
		return domain.Module{}, err
	}
	if err := s.writer.SaveCourse(ctx, course); err != nil {
		return domain.Module{}, fmt.Errorf("save course: %w", err)
	}
	s.log.Info("module added", "course_id", courseID, "module_id", module.ID, "order", order, "actor_id", actorID)
	return module, nil
}

func (s *AuthoringService) buildContents(ctx context.Context, moduleID string, drafts []ContentDraft) ([]domain.ModuleContent, error) {
	contents := make([]domain.ModuleContent, 0, len(drafts))
	quizzes := 0
	for i, d := range drafts {
		id, order, title := s.newID(), i+1, strings.TrimSpace(d.Title)
		if title == "" {
			return nil, fmt.Errorf("content %d has no title: %w", order, domain.ErrInvalidValue)
		}
		switch d.Type {
		case domain.ContentVideo:
			if d.URL == "" || d.DurationSeconds < 0 {
				return nil, fmt.Errorf("video %d needs a url and a duration: %w", order, domain.ErrInvalidValue)
			}
			contents = append(contents, domain.NewVideoContent(id, moduleID, title, order, d.URL, d.DurationSeconds))
		case domain.ContentFile:
			if d.URL == "" {
				return nil, fmt.Errorf("file %d needs a url: %w", order, domain.ErrInvalidValue)
			}
			contents = append(contents, domain.NewFileContent(id, moduleID, title, order, d.URL))
		case domain.ContentQuiz:
			quizzes++
			if quizzes > 1 {
				return nil, fmt.Errorf("a module holds at most one quiz: %w", domain.ErrInvalidValue)
			}
			if _, err := s.quizzes.GetQuiz(ctx, d.QuizID); err != nil {
				return nil, err
			}
			contents = append(contents, domain.NewQuizContent(id, moduleID, title, order, d.QuizID))
		default:
			return nil, fmt.Errorf("content type %q: %w", d.Type, domain.ErrInvalidValue)
		}
	}
	return contents, nil
}

// DeleteModule removes one module from its course. Other modules keep their positions.
func (s *AuthoringService) DeleteModule(ctx context.Context, actorID, moduleID string) error {
	if err := s.requireAdmin(ctx, actorID); err != nil {
		return err
	}
	module, err := s.courses.GetModule(ctx, moduleID)
	if err != nil {
		return err
	}
	_, err = s.updateCourse(ctx, module.CourseID, func(c *domain.Course) error {
		kept := c.Modules[:0:0]
		for _, m := range c.Modules {
			if m.ID != moduleID {
				kept = append(kept, m)
			}
		}
		c.Modules = kept
		return nil
	})
	if err != nil {
		return err
	}
	s.log.Info("module deleted", "course_id", module.CourseID, "module_id", moduleID, "actor_id", actorID)
	return nil
}

// ReorderModules renumbers the course's modules 1..n in the given order. moduleIDs must
// name every module of the course exactly once.
func (s *AuthoringService) ReorderModules(ctx context.Context, actorID, courseID string, moduleIDs []string) (domain.Course, error) {
	if err := s.requireAdmin(ctx, actorID); err != nil {
		return domain.Course{}, err
	}
	return s.updateCourse(ctx, courseID, func(c *domain.Course) error {
		if len(moduleIDs) != len(c.Modules) {
			return fmt.Errorf("expected %d module ids, got %d: %w", len(c.Modules), len(moduleIDs), domain.ErrInvalidValue)
		}
		position := make(map[string]int, len(moduleIDs))
		for i, id := range moduleIDs {
			if _, dup := position[id]; dup {
				return fmt.Errorf("module %q listed twice: %w", id, domain.ErrInvalidValue)
			}
			position[id] = i + 1
		}
		for i := range c.Modules {
			order, ok := position[c.Modules[i].ID]
			if !ok {
				return fmt.Errorf("module %q missing from order: %w", c.Modules[i].ID, domain.ErrInvalidValue)
			}
			c.Modules[i].OrderIndex = order
		}
		return nil
	})
}

func (s *AuthoringService) updateCourse(ctx context.Context, courseID string, mutate func(*domain.Course) error) (domain.Course, error) {
	course, err := s.courses.GetCourse(ctx, courseID)
	if err != nil {
		return domain.Course{}, err
	}
	// GetCourse may hand back the stored slice.
	course.Modules = append([]domain.Module(nil), course.Modules...)
	if err := mutate(&course); err != nil {
		return domain.Course{}, err
	}
	if err := course.CheckModuleOrder(); err != nil {
		return domain.Course{}, err
	}
	if err := s.writer.SaveCourse(ctx, course); err != nil {
		return domain.Course{}, fmt.Errorf("save course: %w", err)
	}
	return s.courses.GetCourse(ctx, courseID)
}

// ListQuizzes returns every quiz with its answer key.
func (s *AuthoringService) ListQuizzes(ctx context.Context, actorID string) ([]domain.Quiz, error) {
	if err := s.requireAdmin(ctx, actorID); err != nil {
		return nil, err
	}
	return s.writer.ListQuizzes(ctx)
}

// CreateQuiz stores a new quiz under a generated ID.
func (s *AuthoringService) CreateQuiz(ctx context.Context, actorID string, quiz domain.Quiz) (domain.Quiz, error) {
	if err := s.requireAdmin(ctx, actorID); err != nil {
		return domain.Quiz{}, err
	}
	quiz.ID = s.newID()
	return s.saveQuiz(ctx, actorID, quiz)
}

// UpdateQuiz replaces an existing quiz and drops it from the cache. Sessions already running
// keep the version they started with.
func (s *AuthoringService) UpdateQuiz(ctx context.Context, actorID, quizID string, quiz domain.Quiz) (domain.Quiz, error) {
	if err := s.requireAdmin(ctx, actorID); err != nil {
		return domain.Quiz{}, err
	}
	if _, err := s.quizzes.GetQuiz(ctx, quizID); err != nil {
		return domain.Quiz{}, err
	}
	quiz.ID = quizID
	return s.saveQuiz(ctx, actorID, quiz)
}

func (s *AuthoringService) saveQuiz(ctx context.Context, actorID string, quiz domain.Quiz) (domain.Quiz, error) {
	quiz, err := s.normalizeQuiz(quiz)
	if err != nil {
		return domain.Quiz{}, err
	}
	if err := s.writer.SaveQuiz(ctx, quiz); err != nil {
		return domain.Quiz{}, fmt.Errorf("save quiz: %w", err)
	}
	s.invalidate(ctx, quiz.ID)
	s.log.Info("quiz saved", "quiz_id", quiz.ID, "questions", len(quiz.Questions), "actor_id", actorID)
	return quiz, nil
}

// normalizeQuiz checks the answer key and fills in missing IDs and positions.
func (s *AuthoringService) normalizeQuiz(quiz domain.Quiz) (domain.Quiz, error) {
	quiz.Title = strings.TrimSpace(quiz.Title)
	switch {
	case quiz.Title == "":
		return domain.Quiz{}, fmt.Errorf("quiz title is empty: %w", domain.ErrInvalidValue)
	case quiz.TimerMinutes < 0:
		return domain.Quiz{}, fmt.Errorf("timer below zero: %w", domain.ErrInvalidValue)
	case len(quiz.Questions) == 0:
		return domain.Quiz{}, fmt.Errorf("quiz has no questions: %w", domain.ErrInvalidValue)
	}

	questions := make([]domain.Question, len(quiz.Questions))
	seen := make(map[string]bool, len(quiz.Questions))
	for i, q := range quiz.Questions {
		n := i + 1
		if strings.TrimSpace(q.Prompt) == "" {
			return domain.Quiz{}, fmt.Errorf("question %d has no prompt: %w", n, domain.ErrInvalidValue)
		}
		if q.ID == "" {
			q.ID = s.newID()
		}
		if seen[q.ID] {
			return domain.Quiz{}, fmt.Errorf("question %q listed twice: %w", q.ID, domain.ErrInvalidValue)
		}
		seen[q.ID] = true
		if q.OrderIndex <= 0 {
			q.OrderIndex = n
		}
		q.QuizID = quiz.ID

		switch q.Type {
		case domain.QuestionText:
			if len(q.Choices) > 0 {
				return domain.Quiz{}, fmt.Errorf("text question %d has choices: %w", n, domain.ErrInvalidValue)
			}
		case domain.QuestionChoice:
			if len(q.Choices) < 2 {
				return domain.Quiz{}, fmt.Errorf("question %d needs at least two choices: %w", n, domain.ErrInvalidValue)
			}
			choices := make([]domain.Choice, len(q.Choices))
			correct := 0
			for j, c := range q.Choices {
				if strings.TrimSpace(c.Text) == "" {
					return domain.Quiz{}, fmt.Errorf("question %d choice %d has no text: %w", n, j+1, domain.ErrInvalidValue)
				}
				if c.ID == "" {
					c.ID = s.newID()
				}
				if c.OrderIndex <= 0 {
					c.OrderIndex = j + 1
				}
				if c.Correct {
					correct++
				}
				choices[j] = c
			}
			if correct == 0 {
				return domain.Quiz{}, fmt.Errorf("question %d has no correct choice: %w", n, domain.ErrInvalidValue)
			}
			q.Choices = choices
		default:
			return domain.Quiz{}, fmt.Errorf("question type %q: %w", q.Type, domain.ErrInvalidValue)
		}
		questions[i] = q
	}
	quiz.Questions = questions
	quiz.NeedsCorrection = quiz.HasTextQuestion()
	return quiz, nil
}

// DeleteQuiz removes a quiz no module content points at and nobody has attempted.
func (s *AuthoringService) DeleteQuiz(ctx context.Context, actorID, quizID string) error {
	if err := s.requireAdmin(ctx, actorID); err != nil {
		return err
	}
	courses, err := s.courses.ListCourses(ctx, false)
	if err != nil {
		return err
	}
	for _, c := range courses {
		for _, m := range c.Modules {
			if content, ok := m.QuizContent(); ok && content.Quiz.QuizID == quizID {
				return fmt.Errorf("quiz %s is used by module %s: %w", quizID, m.ID, domain.ErrQuizInUse)
			}
		}
	}
	attempts, err := s.attempts.ListAttemptsByQuiz(ctx, quizID)
	if err != nil {
		return err
	}
	if len(attempts) > 0 {
		return fmt.Errorf("quiz %s has %d attempts: %w", quizID, len(attempts), domain.ErrQuizInUse)
	}
	if err := s.writer.DeleteQuiz(ctx, quizID); err != nil {
		return err
	}
	s.invalidate(ctx, quizID)
	s.log.Info("quiz deleted", "quiz_id", quizID, "actor_id", actorID)
	return nil
}

// invalidate is best effort: a stale entry still expires with the cache TTL.
func (s *AuthoringService) invalidate(ctx context.Context, quizID string) {
	if err := s.cache.Invalidate(ctx, quizID); err != nil {
		s.log.Warn("quiz cache invalidation failed", "quiz_id", quizID, "error", err)
	}
}

func (s *AuthoringService) requireAdmin(ctx context.Context, userID string) error {
	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return err
	}
	if user.Role != domain.RoleAdmin {
		return domain.ErrForbidden
	}
	return nil
}
