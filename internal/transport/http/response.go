package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"coursehub-service/internal/domain"
	"github.com/go-playground/validator/v10"
)

var (
	errBadPayload  = errors.New("invalid message payload")
	errUnsupported = errors.New("unsupported message type")
)

type errorResponse struct {
	Error   string            `json:"error"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

type errorMapping struct {
	err    error
	status int
	reason string
}

// errorReasons maps domain sentinels to a status and a stable machine reason.
var errorReasons = []errorMapping{
	{domain.ErrNotEnrolled, http.StatusForbidden, "not_enrolled"},
	{domain.ErrSubscriptionRequired, http.StatusForbidden, "subscription_required"},
	{domain.ErrForbidden, http.StatusForbidden, "forbidden"},
	{domain.ErrAlreadyEnrolled, http.StatusConflict, "already_enrolled"},
	{domain.ErrAlreadySubmitted, http.StatusConflict, "already_submitted"},
	{domain.ErrIncompleteCorrection, http.StatusConflict, "incomplete_correction"},
	{domain.ErrAttemptFinalized, http.StatusConflict, "attempt_finalized"},
	{domain.ErrNotTextAnswer, http.StatusConflict, "not_text_answer"},
	{domain.ErrDuplicateOrder, http.StatusConflict, "duplicate_order"},
	{domain.ErrQuizInUse, http.StatusConflict, "quiz_in_use"},
	{domain.ErrInvalidAnswer, http.StatusBadRequest, "invalid_answer"},
	{domain.ErrAnswerRequired, http.StatusBadRequest, "answer_required"},
	{domain.ErrInvalidValue, http.StatusBadRequest, "invalid_value"},
	{domain.ErrSessionNotFound, http.StatusNotFound, "session_not_found"},
	{domain.ErrUserNotFound, http.StatusNotFound, "user_not_found"},
	{domain.ErrCourseNotFound, http.StatusNotFound, "course_not_found"},
	{domain.ErrModuleNotFound, http.StatusNotFound, "module_not_found"},
	{domain.ErrContentNotFound, http.StatusNotFound, "content_not_found"},
	{domain.ErrQuizNotFound, http.StatusNotFound, "quiz_not_found"},
	{domain.ErrQuestionNotFound, http.StatusNotFound, "question_not_found"},
	{domain.ErrChoiceNotFound, http.StatusNotFound, "choice_not_found"},
	{domain.ErrAttemptNotFound, http.StatusNotFound, "attempt_not_found"},
	{domain.ErrAnswerNotFound, http.StatusNotFound, "answer_not_found"},
	{errBadPayload, http.StatusBadRequest, "invalid_payload"},
	{errUnsupported, http.StatusBadRequest, "unsupported_message"},
}

// classify returns the status and reason for err; unknown errors are internal.
func classify(err error) (int, string) {
	for _, m := range errorReasons {
		if errors.Is(err, m.err) {
			return m.status, m.reason
		}
	}
	return http.StatusInternalServerError, "internal"
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func (a *API) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, reason := classify(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		a.log.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		message = "internal error"
	}
	writeJSON(w, status, errorResponse{Error: reason, Message: message})
}

func writeBadRequest(w http.ResponseWriter, reason, message string) {
	writeJSON(w, http.StatusBadRequest, errorResponse{Error: reason, Message: message})
}

// decodeAndValidate reads a JSON body into dst and runs its validate tags. It writes the
// 400 response itself and reports false on failure.
func (a *API) decodeAndValidate(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeBadRequest(w, "invalid_body", "invalid JSON body")
		return false
	}
	if err := a.validate.Struct(dst); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			writeBadRequest(w, "invalid_body", "invalid input")
			return false
		}
		fields := make(map[string]string, len(fieldErrs))
		for _, fe := range fieldErrs {
			fields[fe.Field()] = fe.Tag()
		}
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "validation_failed", Message: "validation failed", Fields: fields})
		return false
	}
	return true
}
