package postgres

import (
	"context"
	"fmt"
	"time"

	"coursehub-service/internal/domain"
	"github.com/uptrace/bun"
)

func orderAnswers(q *bun.SelectQuery) *bun.SelectQuery {
	return q.Order("ans.position")
}

// CreateSubmitted writes the attempt and every answer in one transaction. The unique
// submission_key turns a replay into ErrAlreadySubmitted with nothing written.
func (s *Store) CreateSubmitted(ctx context.Context, attempt domain.Attempt) error {
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		res, err := tx.NewInsert().
			Model(newAttemptRow(attempt)).
			On("CONFLICT (submission_key) DO NOTHING").
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("insert attempt: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return domain.ErrAlreadySubmitted
		}
		if len(attempt.Answers) == 0 {
			return nil
		}

		answers := make([]*answerRow, 0, len(attempt.Answers))
		for i, a := range attempt.Answers {
			answers = append(answers, &answerRow{
				ID:           a.ID,
				AttemptID:    attempt.ID,
				QuestionID:   a.QuestionID,
				QuestionType: string(a.QuestionType),
				ChoiceID:     a.ChoiceID,
				Text:         a.Text,
				Correct:      a.Correct,
				Feedback:     a.Feedback,
				Position:     i,
			})
		}
		if _, err := tx.NewInsert().Model(&answers).Exec(ctx); err != nil {
			return fmt.Errorf("insert answers: %w", err)
		}
		return nil
	})
}

func (s *Store) GetAttempt(ctx context.Context, attemptID string) (domain.Attempt, error) {
	row := new(attemptRow)
	err := s.db.NewSelect().Model(row).
		Relation("Answers", orderAnswers).
		Where("qa.id = ?", attemptID).
		Scan(ctx)
	if err != nil {
		return domain.Attempt{}, notFound(err, domain.ErrAttemptNotFound)
	}
	return row.toDomain(), nil
}

func (s *Store) GetAttemptBySubmissionKey(ctx context.Context, key string) (domain.Attempt, error) {
	row := new(attemptRow)
	err := s.db.NewSelect().Model(row).
		Relation("Answers", orderAnswers).
		Where("qa.submission_key = ?", key).
		Scan(ctx)
	if err != nil {
		return domain.Attempt{}, notFound(err, domain.ErrAttemptNotFound)
	}
	return row.toDomain(), nil
}

func (s *Store) ListPendingCorrection(ctx context.Context) ([]domain.Attempt, error) {
	return s.listAttempts(ctx, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("qa.needs_correction AND NOT qa.is_corrected")
	})
}

func (s *Store) ListAttemptsByQuiz(ctx context.Context, quizID string) ([]domain.Attempt, error) {
	return s.listAttempts(ctx, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("qa.quiz_id = ?", quizID)
	})
}

func (s *Store) listAttempts(ctx context.Context, filter func(*bun.SelectQuery) *bun.SelectQuery) ([]domain.Attempt, error) {
	var rows []attemptRow
	q := s.db.NewSelect().Model(&rows).
		Relation("Answers", orderAnswers).
		Order("qa.completed_at")
	if err := filter(q).Scan(ctx); err != nil {
		return nil, err
	}
	out := make([]domain.Attempt, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].toDomain())
	}
	return out, nil
}

func (s *Store) UpdateAnswerCorrection(ctx context.Context, answerID string, correct bool, feedback string) error {
	res, err := s.db.NewUpdate().Model((*answerRow)(nil)).
		Set("is_correct = ?", correct).
		Set("moderator_feedback = NULLIF(?, '')", feedback).
		Where("id = ?", answerID).
		Exec(ctx)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrAnswerNotFound
	}
	return nil
}

// FinalizeAttempt stamps the score only on an attempt that is not corrected yet.
func (s *Store) FinalizeAttempt(ctx context.Context, attemptID string, score int, correctedBy string, correctedAt time.Time) error {
	res, err := s.db.NewUpdate().Model((*attemptRow)(nil)).
		Set("score = ?", score).
		Set("is_corrected = TRUE").
		Set("corrected_by = ?", correctedBy).
		Set("corrected_at = ?", correctedAt).
		Where("id = ? AND NOT is_corrected", attemptID).
		Exec(ctx)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}
	exists, err := s.db.NewSelect().Model((*attemptRow)(nil)).Where("qa.id = ?", attemptID).Exists(ctx)
	if err != nil {
		return err
	}
	if exists {
		return domain.ErrAttemptFinalized
	}
	return domain.ErrAttemptNotFound
}

func (s *Store) CountAttempts(ctx context.Context, userID, quizID string) (int, error) {
	return s.db.NewSelect().Model((*attemptRow)(nil)).
		Where("qa.user_id = ? AND qa.quiz_id = ?", userID, quizID).
		Count(ctx)
}
