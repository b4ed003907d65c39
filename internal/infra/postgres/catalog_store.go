package postgres

import (
	"context"
	"errors"

	"coursehub-service/internal/domain"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/driver/pgdriver"
)

// moduleOrderKey is the unique (course_id, order_index) constraint on course_modules.
const moduleOrderKey = "course_modules_order_key"

func orderModules(q *bun.SelectQuery) *bun.SelectQuery {
	return q.Order("m.order_index", "m.id")
}

func orderContents(q *bun.SelectQuery) *bun.SelectQuery {
	return q.Order("mc.order_index", "mc.id")
}

func (s *Store) ListCourses(ctx context.Context, publishedOnly bool) ([]domain.Course, error) {
	var rows []courseRow
	q := s.db.NewSelect().Model(&rows).
		Relation("Modules", orderModules).
		Relation("Modules.Contents", orderContents).
		Order("c.order_index", "c.id")
	if publishedOnly {
		q = q.Where("c.is_published")
	}
	if err := q.Scan(ctx); err != nil {
		return nil, err
	}
	courses := make([]domain.Course, 0, len(rows))
	for i := range rows {
		courses = append(courses, rows[i].toDomain())
	}
	return courses, nil
}

func (s *Store) GetCourse(ctx context.Context, courseID string) (domain.Course, error) {
	row := new(courseRow)
	err := s.db.NewSelect().Model(row).
		Relation("Modules", orderModules).
		Relation("Modules.Contents", orderContents).
		Where("c.id = ?", courseID).
		Scan(ctx)
	if err != nil {
		return domain.Course{}, notFound(err, domain.ErrCourseNotFound)
	}
	return row.toDomain(), nil
}

func (s *Store) GetModule(ctx context.Context, moduleID string) (domain.Module, error) {
	row := new(moduleRow)
	err := s.db.NewSelect().Model(row).
		Relation("Contents", orderContents).
		Where("m.id = ?", moduleID).
		Scan(ctx)
	if err != nil {
		return domain.Module{}, notFound(err, domain.ErrModuleNotFound)
	}
	return row.toDomain(), nil
}

func (s *Store) GetContent(ctx context.Context, contentID string) (domain.ModuleContent, error) {
	row := new(contentRow)
	if err := s.db.NewSelect().Model(row).Where("mc.id = ?", contentID).Scan(ctx); err != nil {
		return domain.ModuleContent{}, notFound(err, domain.ErrContentNotFound)
	}
	return row.toDomain(), nil
}

// SaveCourse replaces a course with its modules and contents in one transaction. Two modules
// at the same position come back as ErrDuplicateOrder.
func (s *Store) SaveCourse(ctx context.Context, course domain.Course) error {
	err := s.saveCourse(ctx, course)
	var pgErr pgdriver.Error
	if errors.As(err, &pgErr) && pgErr.Field('n') == moduleOrderKey {
		return domain.ErrDuplicateOrder
	}
	return err
}

func (s *Store) saveCourse(ctx context.Context, course domain.Course) error {
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.NewInsert().Model(&courseRow{
			ID:          course.ID,
			Title:       course.Title,
			Description: course.Description,
			Category:    course.Category,
			Difficulty:  course.Difficulty,
			OrderIndex:  course.OrderIndex,
			Published:   course.Published,
		}).
			On("CONFLICT (id) DO UPDATE").
			Set("title = EXCLUDED.title").
			Set("description = EXCLUDED.description").
			Set("category = EXCLUDED.category").
			Set("difficulty = EXCLUDED.difficulty").
			Set("order_index = EXCLUDED.order_index").
			Set("is_published = EXCLUDED.is_published").
			Exec(ctx)
		if err != nil {
			return err
		}
		if len(course.Modules) == 0 {
			_, err := tx.NewDelete().Model((*moduleRow)(nil)).Where("course_id = ?", course.ID).Exec(ctx)
			return err
		}

		modules := make([]*moduleRow, 0, len(course.Modules))
		moduleIDs := make([]string, 0, len(course.Modules))
		var contents []*contentRow
		for _, m := range course.Modules {
			modules = append(modules, &moduleRow{
				ID:               m.ID,
				CourseID:         course.ID,
				Title:            m.Title,
				OrderIndex:       m.OrderIndex,
				EstimatedMinutes: m.EstimatedMinutes,
			})
			moduleIDs = append(moduleIDs, m.ID)
			for _, c := range m.Contents {
				c.ModuleID = m.ID
				contents = append(contents, newContentRow(c))
			}
		}
		// Upsert keeps progress rows of surviving modules.
		_, err = tx.NewDelete().Model((*moduleRow)(nil)).
			Where("course_id = ?", course.ID).
			Where("id NOT IN (?)", bun.In(moduleIDs)).
			Exec(ctx)
		if err != nil {
			return err
		}
		_, err = tx.NewInsert().Model(&modules).
			On("CONFLICT (id) DO UPDATE").
			Set("course_id = EXCLUDED.course_id").
			Set("title = EXCLUDED.title").
			Set("order_index = EXCLUDED.order_index").
			Set("estimated_time_minutes = EXCLUDED.estimated_time_minutes").
			Exec(ctx)
		if err != nil {
			return err
		}
		if _, err := tx.NewDelete().Model((*contentRow)(nil)).Where("module_id IN (?)", bun.In(moduleIDs)).Exec(ctx); err != nil {
			return err
		}
		if len(contents) > 0 {
			if _, err := tx.NewInsert().Model(&contents).Exec(ctx); err != nil {
				return err
			}
		}
		return nil
	})
}

// SaveQuiz replaces a quiz with its questions and choices in one transaction.
func (s *Store) SaveQuiz(ctx context.Context, quiz domain.Quiz) error {
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.NewInsert().Model(&quizRow{
			ID:              quiz.ID,
			Title:           quiz.Title,
			Description:     quiz.Description,
			TimerMinutes:    quiz.TimerMinutes,
			NeedsCorrection: quiz.HasTextQuestion(),
		}).
			On("CONFLICT (id) DO UPDATE").
			Set("title = EXCLUDED.title").
			Set("description = EXCLUDED.description").
			Set("timer_minutes = EXCLUDED.timer_minutes").
			Set("needs_correction = EXCLUDED.needs_correction").
			Exec(ctx)
		if err != nil {
			return err
		}
		if _, err := tx.NewDelete().Model((*questionRow)(nil)).Where("quiz_id = ?", quiz.ID).Exec(ctx); err != nil {
			return err
		}
		if len(quiz.Questions) == 0 {
			return nil
		}

		questions := make([]*questionRow, 0, len(quiz.Questions))
		var choices []*choiceRow
		for _, q := range quiz.Questions {
			questions = append(questions, &questionRow{
				ID:         q.ID,
				QuizID:     quiz.ID,
				Prompt:     q.Prompt,
				Type:       string(q.Type),
				OrderIndex: q.OrderIndex,
			})
			for _, c := range q.Choices {
				choices = append(choices, &choiceRow{
					ID:         c.ID,
					QuestionID: q.ID,
					Text:       c.Text,
					Correct:    c.Correct,
					OrderIndex: c.OrderIndex,
				})
			}
		}
		if _, err := tx.NewInsert().Model(&questions).Exec(ctx); err != nil {
			return err
		}
		if len(choices) > 0 {
			if _, err := tx.NewInsert().Model(&choices).Exec(ctx); err != nil {
				return err
			}
		}
		return nil
	})
}

// DeleteCourse removes a course; modules, contents, registrations and progress cascade.
func (s *Store) DeleteCourse(ctx context.Context, courseID string) error {
	res, err := s.db.NewDelete().Model((*courseRow)(nil)).Where("id = ?", courseID).Exec(ctx)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrCourseNotFound
	}
	return nil
}

func (s *Store) DeleteQuiz(ctx context.Context, quizID string) error {
	res, err := s.db.NewDelete().Model((*quizRow)(nil)).Where("id = ?", quizID).Exec(ctx)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrQuizNotFound
	}
	return nil
}

func orderQuestions(q *bun.SelectQuery) *bun.SelectQuery {
	return q.Order("qq.order_index", "qq.id")
}

func orderChoices(q *bun.SelectQuery) *bun.SelectQuery {
	return q.Order("qc.order_index", "qc.id")
}

// ListQuizzes returns every quiz with its questions and choices, ordered by title.
func (s *Store) ListQuizzes(ctx context.Context) ([]domain.Quiz, error) {
	var rows []quizRow
	err := s.db.NewSelect().Model(&rows).
		Relation("Questions", orderQuestions).
		Relation("Questions.Choices", orderChoices).
		Order("q.title", "q.id").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	quizzes := make([]domain.Quiz, 0, len(rows))
	for i := range rows {
		quizzes = append(quizzes, rows[i].toDomain())
	}
	return quizzes, nil
}
