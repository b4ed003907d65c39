package http

import (
	"net/http"

	"coursehub-service/internal/app"
	"coursehub-service/internal/domain"
)

type courseRequest struct {
	Title       string `json:"title" validate:"required,max=200"`
	Description string `json:"description" validate:"max=5000"`
	Category    string `json:"category" validate:"max=100"`
	Difficulty  string `json:"difficulty" validate:"omitempty,oneof=beginner intermediate advanced"`
	OrderIndex  int    `json:"orderIndex" validate:"gte=0"`
}

func (req courseRequest) draft() app.CourseDraft {
	return app.CourseDraft{
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Difficulty:  req.Difficulty,
		OrderIndex:  req.OrderIndex,
	}
}

func (a *API) authoringCourses(w http.ResponseWriter, r *http.Request, userID string) {
	courses, err := a.svc.Authoring.ListCourses(r.Context(), userID)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"courses": courses})
}

func (a *API) createCourse(w http.ResponseWriter, r *http.Request, userID string) {
	var req courseRequest
	if !a.decodeAndValidate(w, r, &req) {
		return
	}
	course, err := a.svc.Authoring.CreateCourse(r.Context(), userID, req.draft())
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, course)
}

func (a *API) updateCourse(w http.ResponseWriter, r *http.Request, userID string) {
	var req courseRequest
	if !a.decodeAndValidate(w, r, &req) {
		return
	}
	course, err := a.svc.Authoring.UpdateCourse(r.Context(), userID, r.PathValue("courseID"), req.draft())
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, course)
}

type publishRequest struct {
	Published *bool `json:"published" validate:"required"`
}

func (a *API) publishCourse(w http.ResponseWriter, r *http.Request, userID string) {
	var req publishRequest
	if !a.decodeAndValidate(w, r, &req) {
		return
	}
	course, err := a.svc.Authoring.SetPublished(r.Context(), userID, r.PathValue("courseID"), *req.Published)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, course)
}

func (a *API) deleteCourse(w http.ResponseWriter, r *http.Request, userID string) {
	if err := a.svc.Authoring.DeleteCourse(r.Context(), userID, r.PathValue("courseID")); err != nil {
		a.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type contentRequest struct {
	Title           string `json:"title" validate:"required"`
	Type            string `json:"type" validate:"required,oneof=video file quiz"`
	URL             string `json:"url" validate:"required_unless=Type quiz"`
	DurationSeconds int    `json:"durationSeconds" validate:"gte=0"`
	QuizID          string `json:"quizId" validate:"required_if=Type quiz"`
}

type moduleRequest struct {
	Title            string           `json:"title" validate:"required,max=200"`
	OrderIndex       int              `json:"orderIndex" validate:"gte=0"`
	EstimatedMinutes int              `json:"estimatedMinutes" validate:"gte=0"`
	Contents         []contentRequest `json:"contents" validate:"dive"`
}

func (a *API) addModule(w http.ResponseWriter, r *http.Request, userID string) {
	var req moduleRequest
	if !a.decodeAndValidate(w, r, &req) {
		return
	}
	draft := app.ModuleDraft{
		Title:            req.Title,
		OrderIndex:       req.OrderIndex,
		EstimatedMinutes: req.EstimatedMinutes,
	}
	for _, c := range req.Contents {
		draft.Contents = append(draft.Contents, app.ContentDraft{
			Title:           c.Title,
			Type:            domain.ContentType(c.Type),
			URL:             c.URL,
			DurationSeconds: c.DurationSeconds,
			QuizID:          c.QuizID,
		})
	}
	module, err := a.svc.Authoring.AddModule(r.Context(), userID, r.PathValue("courseID"), draft)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, module)
}

type moduleOrderRequest struct {
	ModuleIDs []string `json:"moduleIds" validate:"required,min=1,dive,required"`
}

func (a *API) reorderModules(w http.ResponseWriter, r *http.Request, userID string) {
	var req moduleOrderRequest
	if !a.decodeAndValidate(w, r, &req) {
		return
	}
	course, err := a.svc.Authoring.ReorderModules(r.Context(), userID, r.PathValue("courseID"), req.ModuleIDs)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, course)
}

func (a *API) deleteModule(w http.ResponseWriter, r *http.Request, userID string) {
	if err := a.svc.Authoring.DeleteModule(r.Context(), userID, r.PathValue("moduleID")); err != nil {
		a.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type choiceRequest struct {
	ID      string `json:"id"`
	Text    string `json:"text" validate:"required"`
	Correct bool   `json:"correct"`
}

type questionRequest struct {
	ID      string          `json:"id"`
	Prompt  string          `json:"prompt" validate:"required"`
	Type    string          `json:"type" validate:"required,oneof=choice text"`
	Choices []choiceRequest `json:"choices" validate:"required_if=Type choice,dive"`
}

type quizRequest struct {
	Title        string            `json:"title" validate:"required,max=200"`
	Description  string            `json:"description" validate:"max=5000"`
	TimerMinutes int               `json:"timerMinutes" validate:"gte=0,lte=600"`
	Questions    []questionRequest `json:"questions" validate:"required,min=1,dive"`
}

func (req quizRequest) quiz() domain.Quiz {
	quiz := domain.Quiz{Title: req.Title, Description: req.Description, TimerMinutes: req.TimerMinutes}
	for i, q := range req.Questions {
		question := domain.Question{ID: q.ID, Prompt: q.Prompt, Type: domain.QuestionType(q.Type), OrderIndex: i + 1}
		for j, c := range q.Choices {
			question.Choices = append(question.Choices, domain.Choice{ID: c.ID, Text: c.Text, Correct: c.Correct, OrderIndex: j + 1})
		}
		quiz.Questions = append(quiz.Questions, question)
	}
	return quiz
}

func (a *API) authoringQuizzes(w http.ResponseWriter, r *http.Request, userID string) {
	quizzes, err := a.svc.Authoring.ListQuizzes(r.Context(), userID)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"quizzes": quizzes})
}

func (a *API) createQuiz(w http.ResponseWriter, r *http.Request, userID string) {
	var req quizRequest
	if !a.decodeAndValidate(w, r, &req) {
		return
	}
	quiz, err := a.svc.Authoring.CreateQuiz(r.Context(), userID, req.quiz())
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, quiz)
}

func (a *API) updateQuiz(w http.ResponseWriter, r *http.Request, userID string) {
	var req quizRequest
	if !a.decodeAndValidate(w, r, &req) {
		return
	}
	quiz, err := a.svc.Authoring.UpdateQuiz(r.Context(), userID, r.PathValue("quizID"), req.quiz())
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, quiz)
}

func (a *API) deleteQuiz(w http.ResponseWriter, r *http.Request, userID string) {
	if err := a.svc.Authoring.DeleteQuiz(r.Context(), userID, r.PathValue("quizID")); err != nil {
		a.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
