package http

import (
	"net/http"

	"coursehub-service/internal/app"
)

func (a *API) listCourses(w http.ResponseWriter, r *http.Request, userID string) {
	courses, err := a.svc.Enrollment.Catalog(r.Context())
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"courses": courses})
}

func (a *API) courseAccess(w http.ResponseWriter, r *http.Request, userID string) {
	decision, err := a.svc.Enrollment.Access(r.Context(), userID, r.PathValue("courseID"))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, decision)
}

func (a *API) register(w http.ResponseWriter, r *http.Request, userID string) {
	courseID := r.PathValue("courseID")
	if err := a.svc.Enrollment.Register(r.Context(), userID, courseID); err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"courseId": courseID, "enrolled": true})
}

func (a *API) unregister(w http.ResponseWriter, r *http.Request, userID string) {
	if err := a.svc.Enrollment.Unregister(r.Context(), userID, r.PathValue("courseID")); err != nil {
		a.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) courseProgress(w http.ResponseWriter, r *http.Request, userID string) {
	progress, err := a.svc.Progress.CourseProgress(r.Context(), userID, r.PathValue("courseID"))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, progress)
}

func (a *API) completeModule(w http.ResponseWriter, r *http.Request, userID string) {
	row, err := a.svc.Progress.MarkModuleComplete(r.Context(), userID, r.PathValue("moduleID"))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, row)
}

type contentEventRequest struct {
	Event string `json:"event" validate:"required,oneof=ended downloaded"`
}

func (a *API) contentEvent(w http.ResponseWriter, r *http.Request, userID string) {
	var req contentEventRequest
	if !a.decodeAndValidate(w, r, &req) {
		return
	}
	completed, err := a.svc.Progress.ContentConsumed(r.Context(), userID, r.PathValue("contentID"), app.ContentEvent(req.Event))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"moduleCompleted": completed})
}

func (a *API) dashboard(w http.ResponseWriter, r *http.Request, userID string) {
	stats, err := a.svc.Progress.Dashboard(r.Context(), userID)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (a *API) recordLogin(w http.ResponseWriter, r *http.Request, userID string) {
	user, err := a.svc.Streaks.RecordLogin(r.Context(), userID)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (a *API) notifications(w http.ResponseWriter, r *http.Request, userID string) {
	notifications, err := a.svc.Corrections.Notifications(r.Context(), userID)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"notifications": notifications})
}

func (a *API) attemptCount(w http.ResponseWriter, r *http.Request, userID string) {
	quizID := r.PathValue("quizID")
	count, err := a.svc.Quizzes.AttemptCount(r.Context(), userID, quizID)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"quizId": quizID, "attempts": count})
}

type reviewRequest struct {
	Rating int    `json:"rating" validate:"required,min=1,max=5"`
	Text   string `json:"text" validate:"required,max=2000"`
}

func (a *API) courseReviews(w http.ResponseWriter, r *http.Request, userID string) {
	reviews, err := a.svc.Reviews.List(r.Context(), userID, r.PathValue("courseID"))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, reviews)
}

func (a *API) submitReview(w http.ResponseWriter, r *http.Request, userID string) {
	var req reviewRequest
	if !a.decodeAndValidate(w, r, &req) {
		return
	}
	review, err := a.svc.Reviews.Submit(r.Context(), userID, r.PathValue("courseID"), req.Rating, req.Text)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, review)
}
