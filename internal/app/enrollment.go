package app

import (
	"context"
	"fmt"
	"sort"
	"time"

	"coursehub-service/internal/domain"
	"coursehub-service/internal/logger"
)

// CanAccess reports whether user may open course. Paid tiers see the whole catalog; every
// tier gets the first published course by order index.
func CanAccess(user domain.User, course domain.Course, orderedCourses []domain.Course) bool {
	if user.Subscription.Unrestricted() {
		return true
	}
	first, ok := firstPublished(orderedCourses)
	return ok && first.ID == course.ID
}

func firstPublished(courses []domain.Course) (domain.Course, bool) {
	var (
		first domain.Course
		found bool
	)
	for _, c := range courses {
		if !c.Published {
			continue
		}
		if !found || c.OrderIndex < first.OrderIndex {
			first = c
			found = true
		}
	}
	return first, found
}

// AccessDecision is the read model behind the course page.
type AccessDecision struct {
	CourseID  string `json:"courseId"`
	CanAccess bool   `json:"canAccess"`
	Enrolled  bool   `json:"enrolled"`
}

// EnrollmentService gates course access and records registrations.
type EnrollmentService struct {
	users       UserRepository
	courses     CourseRepository
	enrollments EnrollmentRepository
	now         func() time.Time
	log         *logger.Logger
}

func NewEnrollmentService(users UserRepository, courses CourseRepository, enrollments EnrollmentRepository, log *logger.Logger) *EnrollmentService {
	return &EnrollmentService{
		users:       users,
		courses:     courses,
		enrollments: enrollments,
		now:         time.Now,
		log:         log,
	}
}

// Catalog returns the published courses in display order.
func (s *EnrollmentService) Catalog(ctx context.Context) ([]domain.Course, error) {
	courses, err := s.courses.ListCourses(ctx, true)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(courses, func(i, j int) bool { return courses[i].OrderIndex < courses[j].OrderIndex })
	return courses, nil
}

// Access reports whether the user may open the course and whether they are registered.
func (s *EnrollmentService) Access(ctx context.Context, userID, courseID string) (AccessDecision, error) {
	allowed, err := s.canAccess(ctx, userID, courseID)
	if err != nil {
		return AccessDecision{}, err
	}
	_, enrolled, err := s.enrollments.GetEnrollment(ctx, userID, courseID)
	if err != nil {
		return AccessDecision{}, err
	}
	return AccessDecision{CourseID: courseID, CanAccess: allowed, Enrolled: enrolled}, nil
}

// Register enrolls the user, failing with ErrSubscriptionRequired when their tier does not
// cover the course and ErrAlreadyEnrolled when already registered.
func (s *EnrollmentService) Register(ctx context.Context, userID, courseID string) error {
	allowed, err := s.canAccess(ctx, userID, courseID)
	if err != nil {
		return err
	}
	if !allowed {
		return domain.ErrSubscriptionRequired
	}
	if err := s.enrollments.CreateEnrollment(ctx, domain.Enrollment{
		UserID:    userID,
		CourseID:  courseID,
		CreatedAt: s.now(),
	}); err != nil {
		return err
	}
	s.log.Info("course registration created", "user_id", userID, "course_id", courseID)
	return nil
}

// Unregister removes the registration or fails with ErrNotEnrolled.
func (s *EnrollmentService) Unregister(ctx context.Context, userID, courseID string) error {
	if err := s.enrollments.DeleteEnrollment(ctx, userID, courseID); err != nil {
		return err
	}
	s.log.Info("course registration removed", "user_id", userID, "course_id", courseID)
	return nil
}

// RequireEnrollment returns ErrNotEnrolled unless the user is registered for the course.
func (s *EnrollmentService) RequireEnrollment(ctx context.Context, userID, courseID string) error {
	_, ok, err := s.enrollments.GetEnrollment(ctx, userID, courseID)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrNotEnrolled
	}
	return nil
}

func (s *EnrollmentService) canAccess(ctx context.Context, userID, courseID string) (bool, error) {
	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return false, err
	}
	course, err := s.courses.GetCourse(ctx, courseID)
	if err != nil {
		return false, err
	}
	if !course.Published {
		return false, fmt.Errorf("course %s is not published: %w", courseID, domain.ErrCourseNotFound)
	}
	if user.Subscription.Unrestricted() {
		return true, nil
	}
	catalog, err := s.courses.ListCourses(ctx, true)
	if err != nil {
		return false, err
	}
	return CanAccess(user, course, catalog), nil
}
