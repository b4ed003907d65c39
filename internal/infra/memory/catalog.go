package memory

import (
	"context"
	"sort"
	"sync"

	"coursehub-service/internal/domain"
)

// Catalog is an in-memory course and quiz store. It implements app.CourseRepository and
// QuizLoader.
type Catalog struct {
	mu       sync.RWMutex
	courses  map[string]domain.Course
	modules  map[string]domain.Module
	contents map[string]domain.ModuleContent
	quizzes  map[string]domain.Quiz
}

func NewCatalog() *Catalog {
	return &Catalog{
		courses:  make(map[string]domain.Course),
		modules:  make(map[string]domain.Module),
		contents: make(map[string]domain.ModuleContent),
		quizzes:  make(map[string]domain.Quiz),
	}
}

// PutCourse stores a course with its modules and contents, replacing any previous version.
func (c *Catalog) PutCourse(course domain.Course) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if old, ok := c.courses[course.ID]; ok {
		for _, m := range old.Modules {
			for _, content := range m.Contents {
				delete(c.contents, content.ID)
			}
			delete(c.modules, m.ID)
		}
	}
	course.Modules = sortedModules(course.ID, course.Modules)
	for _, m := range course.Modules {
		c.modules[m.ID] = m
		for _, content := range m.Contents {
			c.contents[content.ID] = content
		}
	}
	c.courses[course.ID] = course
}

func (c *Catalog) PutQuiz(quiz domain.Quiz) {
	c.mu.Lock()
	defer c.mu.Unlock()
	quiz.NeedsCorrection = quiz.HasTextQuestion()
	for i := range quiz.Questions {
		quiz.Questions[i].QuizID = quiz.ID
	}
	c.quizzes[quiz.ID] = quiz
}

func (c *Catalog) ListCourses(_ context.Context, publishedOnly bool) ([]domain.Course, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]domain.Course, 0, len(c.courses))
	for _, course := range c.courses {
		if publishedOnly && !course.Published {
			continue
		}
		out = append(out, course)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].OrderIndex != out[j].OrderIndex {
			return out[i].OrderIndex < out[j].OrderIndex
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (c *Catalog) GetCourse(_ context.Context, courseID string) (domain.Course, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	course, ok := c.courses[courseID]
	if !ok {
		return domain.Course{}, domain.ErrCourseNotFound
	}
	return course, nil
}

func (c *Catalog) GetModule(_ context.Context, moduleID string) (domain.Module, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	module, ok := c.modules[moduleID]
	if !ok {
		return domain.Module{}, domain.ErrModuleNotFound
	}
	return module, nil
}

func (c *Catalog) GetContent(_ context.Context, contentID string) (domain.ModuleContent, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	content, ok := c.contents[contentID]
	if !ok {
		return domain.ModuleContent{}, domain.ErrContentNotFound
	}
	return content, nil
}

func (c *Catalog) LoadQuiz(_ context.Context, quizID string) (domain.Quiz, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	quiz, ok := c.quizzes[quizID]
	if !ok {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	return quiz, nil
}

func sortedModules(courseID string, modules []domain.Module) []domain.Module {
	out := make([]domain.Module, len(modules))
	copy(out, modules)
	sort.SliceStable(out, func(i, j int) bool { return out[i].OrderIndex < out[j].OrderIndex })
	for i := range out {
		out[i].CourseID = courseID
		contents := make([]domain.ModuleContent, len(out[i].Contents))
		copy(contents, out[i].Contents)
		sort.SliceStable(contents, func(a, b int) bool { return contents[a].OrderIndex < contents[b].OrderIndex })
		for j := range contents {
			contents[j].ModuleID = out[i].ID
		}
		out[i].Contents = contents
	}
	return out
}

// SaveCourse is PutCourse with the unique (course, order index) rule the SQL schema enforces.
func (c *Catalog) SaveCourse(_ context.Context, course domain.Course) error {
	if err := course.CheckModuleOrder(); err != nil {
		return err
	}
	c.PutCourse(course)
	return nil
}

// DeleteCourse removes the course with its modules and contents.
func (c *Catalog) DeleteCourse(_ context.Context, courseID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	course, ok := c.courses[courseID]
	if !ok {
		return domain.ErrCourseNotFound
	}
	for _, m := range course.Modules {
		for _, content := range m.Contents {
			delete(c.contents, content.ID)
		}
		delete(c.modules, m.ID)
	}
	delete(c.courses, courseID)
	return nil
}

func (c *Catalog) SaveQuiz(_ context.Context, quiz domain.Quiz) error {
	c.PutQuiz(quiz)
	return nil
}

func (c *Catalog) DeleteQuiz(_ context.Context, quizID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.quizzes[quizID]; !ok {
		return domain.ErrQuizNotFound
	}
	delete(c.quizzes, quizID)
	return nil
}

// ListQuizzes returns every quiz ordered by title.
func (c *Catalog) ListQuizzes(_ context.Context) ([]domain.Quiz, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]domain.Quiz, 0, len(c.quizzes))
	for _, q := range c.quizzes {
		out = append(out, q)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Title != out[j].Title {
			return out[i].Title < out[j].Title
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}
