package http

import (
	"net/http"

	"coursehub-service/internal/app"
	"coursehub-service/internal/domain"
)

type pendingAttempt struct {
	domain.Attempt
	TextAnswers []domain.Answer `json:"textAnswers"`
}

func (a *API) pendingCorrections(w http.ResponseWriter, r *http.Request, userID string) {
	attempts, err := a.svc.Corrections.Pending(r.Context(), userID)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	out := make([]pendingAttempt, 0, len(attempts))
	for _, attempt := range attempts {
		out = append(out, pendingAttempt{Attempt: attempt, TextAnswers: app.TextAnswers(attempt)})
	}
	writeJSON(w, http.StatusOK, map[string]any{"attempts": out})
}

type answerCorrectionRequest struct {
	Correct  *bool  `json:"correct" validate:"required"`
	Feedback string `json:"feedback" validate:"max=2000"`
}

func (a *API) correctAnswer(w http.ResponseWriter, r *http.Request, userID string) {
	var req answerCorrectionRequest
	if !a.decodeAndValidate(w, r, &req) {
		return
	}
	err := a.svc.Corrections.RecordAnswerCorrection(r.Context(), userID,
		r.PathValue("attemptID"), r.PathValue("answerID"), *req.Correct, req.Feedback)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) finalizeAttempt(w http.ResponseWriter, r *http.Request, userID string) {
	attempt, err := a.svc.Corrections.FinalizeAttempt(r.Context(), userID, r.PathValue("attemptID"))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, attempt)
}

func (a *API) listUsers(w http.ResponseWriter, r *http.Request, userID string) {
	q := r.URL.Query()
	users, summary, err := a.svc.Admin.ListUsers(r.Context(), userID, app.UserFilter{
		Role:         domain.Role(q.Get("role")),
		Subscription: domain.SubscriptionTier(q.Get("subscription")),
		Search:       q.Get("search"),
	})
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"users": users, "summary": summary})
}

type roleRequest struct {
	Role string `json:"role" validate:"required,oneof=user moderator admin"`
}

func (a *API) setRole(w http.ResponseWriter, r *http.Request, userID string) {
	var req roleRequest
	if !a.decodeAndValidate(w, r, &req) {
		return
	}
	user, err := a.svc.Admin.SetRole(r.Context(), userID, r.PathValue("userID"), domain.Role(req.Role))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

type subscriptionRequest struct {
	Subscription string `json:"subscription" validate:"required,oneof=free tier_a tier_b"`
}

func (a *API) setSubscription(w http.ResponseWriter, r *http.Request, userID string) {
	var req subscriptionRequest
	if !a.decodeAndValidate(w, r, &req) {
		return
	}
	user, err := a.svc.Admin.SetSubscription(r.Context(), userID, r.PathValue("userID"), domain.SubscriptionTier(req.Subscription))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (a *API) statistics(w http.ResponseWriter, r *http.Request, userID string) {
	stats, err := a.svc.Stats.Compute(r.Context(), userID)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
