package postgres

import (
	"context"
	"errors"
	"fmt"

	"coursehub-service/internal/domain"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// QuizLoader reads a quiz with its questions and choices from Postgres.
type QuizLoader struct {
	pool *pgxpool.Pool
}

func NewQuizLoader(pool *pgxpool.Pool) *QuizLoader {
	return &QuizLoader{pool: pool}
}

func (l *QuizLoader) LoadQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	quiz := domain.Quiz{ID: quizID}
	err := l.pool.QueryRow(ctx,
		`SELECT title, description, timer_minutes, needs_correction FROM quizzes WHERE id=$1`, quizID,
	).Scan(&quiz.Title, &quiz.Description, &quiz.TimerMinutes, &quiz.NeedsCorrection)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("load quiz: %w", err)
	}

	rows, err := l.pool.Query(ctx, `
		SELECT q.id, q.question_text, q.question_type, q.order_index,
		       c.id, c.choice_text, c.is_correct, c.order_index
		FROM quiz_questions q
		LEFT JOIN question_choices c ON c.question_id = q.id
		WHERE q.quiz_id = $1
		ORDER BY q.order_index, q.id, c.order_index, c.id`, quizID)
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("load questions: %w", err)
	}
	defer rows.Close()

	index := make(map[string]int)
	for rows.Next() {
		var (
			question    domain.Question
			qType       string
			choiceID    *string
			choiceText  *string
			choiceOK    *bool
			choiceOrder *int
		)
		if err := rows.Scan(&question.ID, &question.Prompt, &qType, &question.OrderIndex,
			&choiceID, &choiceText, &choiceOK, &choiceOrder); err != nil {
			return domain.Quiz{}, fmt.Errorf("scan question: %w", err)
		}
		i, seen := index[question.ID]
		if !seen {
			question.QuizID = quizID
			question.Type = domain.QuestionType(qType)
			quiz.Questions = append(quiz.Questions, question)
			i = len(quiz.Questions) - 1
			index[question.ID] = i
		}
		if choiceID == nil {
			continue
		}
		choice := domain.Choice{ID: *choiceID}
		if choiceText != nil {
			choice.Text = *choiceText
		}
		if choiceOK != nil {
			choice.Correct = *choiceOK
		}
		if choiceOrder != nil {
			choice.OrderIndex = *choiceOrder
		}
		quiz.Questions[i].Choices = append(quiz.Questions[i].Choices, choice)
	}
	if err := rows.Err(); err != nil {
		return domain.Quiz{}, fmt.Errorf("read questions: %w", err)
	}
	return quiz, nil
}
