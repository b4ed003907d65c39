package app

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"coursehub-service/internal/domain"
	"coursehub-service/internal/logger"
	"github.com/google/uuid"
)

const (
	MinRating = 1
	MaxRating = 5
)

// ReviewView is a review with the author's display name.
type ReviewView struct {
	domain.CourseReview
	Author string `json:"author"`
}

// CourseReviews is the review section of a course page. Mine is the caller's own review,
// kept out of Reviews.
type CourseReviews struct {
	CourseID      string       `json:"courseId"`
	AverageRating float64      `json:"averageRating"`
	Count         int          `json:"count"`
	Mine          *ReviewView  `json:"mine,omitempty"`
	Reviews       []ReviewView `json:"reviews"`
}

// ReviewService records course ratings from registered learners.
type ReviewService struct {
	users   UserRepository
	courses CourseRepository
	reviews ReviewRepository
	gate    *EnrollmentService
	now     func() time.Time
	log     *logger.Logger
}

func NewReviewService(users UserRepository, courses CourseRepository, reviews ReviewRepository, gate *EnrollmentService, log *logger.Logger) *ReviewService {
	return &ReviewService{
		users:   users,
		courses: courses,
		reviews: reviews,
		gate:    gate,
		now:     time.Now,
		log:     log,
	}
}

// Submit creates or edits the user's review of a course they are registered for.
func (s *ReviewService) Submit(ctx context.Context, userID, courseID string, rating int, text string) (domain.CourseReview, error) {
	text = strings.TrimSpace(text)
	if rating < MinRating || rating > MaxRating {
		return domain.CourseReview{}, fmt.Errorf("rating %d outside %d..%d: %w", rating, MinRating, MaxRating, domain.ErrInvalidValue)
	}
	if text == "" {
		return domain.CourseReview{}, fmt.Errorf("review text is empty: %w", domain.ErrInvalidValue)
	}
	if _, err := s.courses.GetCourse(ctx, courseID); err != nil {
		return domain.CourseReview{}, err
	}
	if err := s.gate.RequireEnrollment(ctx, userID, courseID); err != nil {
		return domain.CourseReview{}, err
	}
	now := s.now()
	review, err := s.reviews.SaveReview(ctx, domain.CourseReview{
		ID:        uuid.NewString(),
		CourseID:  courseID,
		UserID:    userID,
		Rating:    rating,
		Text:      text,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return domain.CourseReview{}, fmt.Errorf("save review: %w", err)
	}
	s.log.Info("course review saved", "course_id", courseID, "user_id", userID, "rating", rating)
	return review, nil
}

// List returns the course's reviews newest first with the average rating.
func (s *ReviewService) List(ctx context.Context, userID, courseID string) (CourseReviews, error) {
	if _, err := s.courses.GetCourse(ctx, courseID); err != nil {
		return CourseReviews{}, err
	}
	reviews, err := s.reviews.ListReviews(ctx, courseID)
	if err != nil {
		return CourseReviews{}, err
	}
	out := CourseReviews{
		CourseID:      courseID,
		AverageRating: AverageRating(reviews),
		Count:         len(reviews),
		Reviews:       make([]ReviewView, 0, len(reviews)),
	}
	for _, r := range reviews {
		view := ReviewView{CourseReview: r, Author: s.authorName(ctx, r.UserID)}
		if r.UserID == userID {
			mine := view
			out.Mine = &mine
			continue
		}
		out.Reviews = append(out.Reviews, view)
	}
	return out, nil
}

func (s *ReviewService) authorName(ctx context.Context, userID string) string {
	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		if !errors.Is(err, domain.ErrUserNotFound) {
			s.log.Warn("review author lookup failed", "user_id", userID, "error", err)
		}
		return ""
	}
	return strings.TrimSpace(user.FirstName + " " + user.LastName)
}

// AverageRating is the mean rating rounded to one decimal, zero without reviews.
func AverageRating(reviews []domain.CourseReview) float64 {
	if len(reviews) == 0 {
		return 0
	}
	sum := 0
	for _, r := range reviews {
		sum += r.Rating
	}
	return math.Round(float64(sum)*10/float64(len(reviews))) / 10
}
