package domain

import "errors"

var (
	// ErrNotEnrolled is returned when module content is requested without a registration.
	ErrNotEnrolled = errors.New("not enrolled in course")
	// ErrAlreadyEnrolled is returned when registering twice for the same course.
	ErrAlreadyEnrolled = errors.New("already enrolled in course")
	// ErrSubscriptionRequired is returned when the user's tier does not cover the course.
	ErrSubscriptionRequired = errors.New("subscription required")
	// ErrAlreadySubmitted is returned for a second submission of the same quiz session.
	ErrAlreadySubmitted = errors.New("quiz attempt already submitted")
	// ErrIncompleteCorrection blocks finalization while a text answer is ungraded.
	ErrIncompleteCorrection = errors.New("attempt has uncorrected answers")
	// ErrAttemptFinalized is returned when correcting an attempt that already has a score.
	ErrAttemptFinalized = errors.New("attempt already corrected")
	// ErrNotTextAnswer is returned when a moderator tries to regrade a choice answer.
	ErrNotTextAnswer = errors.New("answer is not a text answer")
	ErrForbidden     = errors.New("forbidden")
	// ErrDuplicateOrder is returned when two modules of a course share an order index.
	ErrDuplicateOrder = errors.New("order index already used in course")
	// ErrQuizInUse blocks deleting a quiz that module content or attempts still reference.
	ErrQuizInUse = errors.New("quiz is still in use")

	// ErrSessionNotFound is returned when a quiz session has not been started or was dropped.
	ErrSessionNotFound = errors.New("quiz session not found")
	// ErrInvalidAnswer indicates an empty or malformed answer value.
	ErrInvalidAnswer = errors.New("invalid answer")
	// ErrAnswerRequired blocks moving past an unanswered question.
	ErrAnswerRequired = errors.New("answer required before continuing")
	// ErrInvalidValue rejects an unknown role or subscription tier.
	ErrInvalidValue = errors.New("invalid value")

	ErrUserNotFound     = errors.New("user not found")
	ErrCourseNotFound   = errors.New("course not found")
	ErrModuleNotFound   = errors.New("module not found")
	ErrContentNotFound  = errors.New("module content not found")
	ErrQuizNotFound     = errors.New("quiz not found")
	ErrQuestionNotFound = errors.New("question not found")
	ErrChoiceNotFound   = errors.New("choice not found")
	ErrAttemptNotFound  = errors.New("attempt not found")
	ErrAnswerNotFound   = errors.New("answer not found")
)
