package http

import (
	"net/http"
	"reflect"
	"strings"

	"coursehub-service/internal/app"
	"coursehub-service/internal/logger"
	"github.com/go-playground/validator/v10"
)

// UserHeader carries the caller identity set by the upstream auth proxy.
const UserHeader = "X-User-ID"

// Services bundles the use cases the API exposes.
type Services struct {
	Enrollment  *app.EnrollmentService
	Progress    *app.ProgressService
	Quizzes     *app.QuizService
	Corrections *app.CorrectionService
	Admin       *app.AdminService
	Stats       *app.StatsService
	Streaks     *app.StreakService
	Authoring   *app.AuthoringService
	Reviews     *app.ReviewService
}

// API serves the REST endpoints and the quiz websocket.
type API struct {
	svc      Services
	ws       *WSHandler
	validate *validator.Validate
	log      *logger.Logger
}

func NewAPI(svc Services, log *logger.Logger) *API {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &API{
		svc:      svc,
		ws:       NewWSHandler(svc.Quizzes, log),
		validate: v,
		log:      log,
	}
}

// Routes registers every endpoint on a fresh mux.
func (a *API) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})

	mux.HandleFunc("GET /courses", a.withUser(a.listCourses))
	mux.HandleFunc("GET /courses/{courseID}/access", a.withUser(a.courseAccess))
	mux.HandleFunc("POST /courses/{courseID}/enrollment", a.withUser(a.register))
	mux.HandleFunc("DELETE /courses/{courseID}/enrollment", a.withUser(a.unregister))
	mux.HandleFunc("GET /courses/{courseID}/progress", a.withUser(a.courseProgress))
	mux.HandleFunc("GET /courses/{courseID}/reviews", a.withUser(a.courseReviews))
	mux.HandleFunc("PUT /courses/{courseID}/review", a.withUser(a.submitReview))
	mux.HandleFunc("POST /modules/{moduleID}/complete", a.withUser(a.completeModule))
	mux.HandleFunc("POST /contents/{contentID}/events", a.withUser(a.contentEvent))
	mux.HandleFunc("GET /dashboard", a.withUser(a.dashboard))
	mux.HandleFunc("POST /me/login", a.withUser(a.recordLogin))
	mux.HandleFunc("GET /notifications", a.withUser(a.notifications))
	mux.HandleFunc("GET /quizzes/{quizID}/attempts/count", a.withUser(a.attemptCount))
	mux.HandleFunc("GET /ws/quiz", a.ws.ServeWS)

	mux.HandleFunc("GET /backoffice/corrections", a.withUser(a.pendingCorrections))
	mux.HandleFunc("PUT /backoffice/corrections/{attemptID}/answers/{answerID}", a.withUser(a.correctAnswer))
	mux.HandleFunc("POST /backoffice/corrections/{attemptID}/finalize", a.withUser(a.finalizeAttempt))
	mux.HandleFunc("GET /backoffice/users", a.withUser(a.listUsers))
	mux.HandleFunc("PUT /backoffice/users/{userID}/role", a.withUser(a.setRole))
	mux.HandleFunc("PUT /backoffice/users/{userID}/subscription", a.withUser(a.setSubscription))
	mux.HandleFunc("GET /backoffice/stats", a.withUser(a.statistics))

	mux.HandleFunc("GET /backoffice/courses", a.withUser(a.authoringCourses))
	mux.HandleFunc("POST /backoffice/courses", a.withUser(a.createCourse))
	mux.HandleFunc("PUT /backoffice/courses/{courseID}", a.withUser(a.updateCourse))
	mux.HandleFunc("DELETE /backoffice/courses/{courseID}", a.withUser(a.deleteCourse))
	mux.HandleFunc("PUT /backoffice/courses/{courseID}/published", a.withUser(a.publishCourse))
	mux.HandleFunc("POST /backoffice/courses/{courseID}/modules", a.withUser(a.addModule))
	mux.HandleFunc("PUT /backoffice/courses/{courseID}/modules/order", a.withUser(a.reorderModules))
	mux.HandleFunc("DELETE /backoffice/modules/{moduleID}", a.withUser(a.deleteModule))
	mux.HandleFunc("GET /backoffice/quizzes", a.withUser(a.authoringQuizzes))
	mux.HandleFunc("POST /backoffice/quizzes", a.withUser(a.createQuiz))
	mux.HandleFunc("PUT /backoffice/quizzes/{quizID}", a.withUser(a.updateQuiz))
	mux.HandleFunc("DELETE /backoffice/quizzes/{quizID}", a.withUser(a.deleteQuiz))
	return mux
}

type userHandler func(w http.ResponseWriter, r *http.Request, userID string)

// withUser rejects requests without an identity header.
func (a *API) withUser(next userHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := strings.TrimSpace(r.Header.Get(UserHeader))
		if userID == "" {
			writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "unauthenticated", Message: "missing " + UserHeader + " header"})
			return
		}
		next(w, r, userID)
	}
}
