package app

import (
	"strings"

	"coursehub-service/internal/domain"
)

// GradeResult is the outcome of one grading pass over a submission.
type GradeResult struct {
	Answers         []domain.Answer
	Answered        int
	Correct         int
	NeedsCorrection bool
	// Score is nil while text answers await correction.
	Score *int
}

// GradeSubmission grades captured answers (questionID -> choice ID or text) in question order.
// Unanswered questions are skipped and count toward neither numerator nor denominator.
// Choice answers are graded here; text answers keep a nil Correct for the correction queue.
func GradeSubmission(quiz domain.Quiz, answers map[string]string) GradeResult {
	result := GradeResult{NeedsCorrection: quiz.HasTextQuestion()}
	for _, question := range quiz.Questions {
		value, ok := answers[question.ID]
		if !ok || strings.TrimSpace(value) == "" {
			continue
		}
		result.Answered++

		answer := domain.Answer{
			QuestionID:   question.ID,
			QuestionType: question.Type,
		}
		switch question.Type {
		case domain.QuestionChoice:
			choice, found := question.Choice(value)
			correct := found && choice.Correct
			answer.ChoiceID = value
			answer.Correct = &correct
			if correct {
				result.Correct++
			}
		default:
			answer.Text = value
		}
		result.Answers = append(result.Answers, answer)
	}

	if !result.NeedsCorrection {
		score := Percent(result.Correct, result.Answered)
		result.Score = &score
	}
	return result
}

// FinalScore scores a fully corrected attempt over all of its answers. It fails with
// ErrIncompleteCorrection while any answer is still ungraded.
func FinalScore(answers []domain.Answer) (int, error) {
	correct := 0
	for _, a := range answers {
		if a.Correct == nil {
			return 0, domain.ErrIncompleteCorrection
		}
		if *a.Correct {
			correct++
		}
	}
	return Percent(correct, len(answers)), nil
}
