package app

import (
	"context"
	"fmt"
	"math"
	"time"

	"coursehub-service/internal/domain"
	"coursehub-service/internal/logger"
)

// Percent returns part/total as a whole-number percentage rounded half away from zero.
// A zero total yields 0.
func Percent(part, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(part) * 100 / float64(total)))
}

// ComputeCourseProgress is the rounded share of completed modules; 0 for an empty course.
func ComputeCourseProgress(completed, total int) int {
	return Percent(completed, total)
}

// ComputeCourseCompletion reports whether every module of a non-empty course is complete.
func ComputeCourseCompletion(completed, total int) bool {
	return total > 0 && ComputeCourseProgress(completed, total) == 100
}

// CourseProgress summarizes one user's progress through one course.
type CourseProgress struct {
	CourseID    string          `json:"courseId"`
	Completed   int             `json:"completed"`
	Total       int             `json:"total"`
	Percent     int             `json:"percent"`
	IsCompleted bool            `json:"isCompleted"`
	Modules     map[string]bool `json:"modules"`
}

// DashboardStats aggregates progress across every enrolled course.
type DashboardStats struct {
	CoursesCompleted int `json:"coursesCompleted"`
	TotalCourses     int `json:"totalCourses"`
	HoursLearned     int `json:"hoursLearned"`
	DayStreak        int `json:"dayStreak"`
}

// ContentEvent is a consumption signal sent by the player/viewer.
type ContentEvent string

const (
	EventVideoEnded     ContentEvent = "ended"
	EventFileDownloaded ContentEvent = "downloaded"
)

// ProgressService records module completion and derives aggregates.
type ProgressService struct {
	users       UserRepository
	courses     CourseRepository
	enrollments EnrollmentRepository
	progress    ProgressRepository
	gate        *EnrollmentService
	now         func() time.Time
	log         *logger.Logger
}

func NewProgressService(users UserRepository, courses CourseRepository, enrollments EnrollmentRepository, progress ProgressRepository, gate *EnrollmentService, log *logger.Logger) *ProgressService {
	return &ProgressService{
		users:       users,
		courses:     courses,
		enrollments: enrollments,
		progress:    progress,
		gate:        gate,
		now:         time.Now,
		log:         log,
	}
}

// MarkModuleComplete upserts a completed progress row for (user, module). Marking an already
// completed module again is a no-op.
func (s *ProgressService) MarkModuleComplete(ctx context.Context, userID, moduleID string) (domain.ModuleProgress, error) {
	module, err := s.courses.GetModule(ctx, moduleID)
	if err != nil {
		return domain.ModuleProgress{}, err
	}
	if err := s.gate.RequireEnrollment(ctx, userID, module.CourseID); err != nil {
		return domain.ModuleProgress{}, err
	}
	row, err := s.progress.MarkCompleted(ctx, domain.ModuleProgress{
		UserID:      userID,
		ModuleID:    moduleID,
		Completed:   true,
		CompletedAt: s.now(),
	})
	if err != nil {
		return domain.ModuleProgress{}, fmt.Errorf("mark module complete: %w", err)
	}
	s.log.Debug("module completed", "user_id", userID, "module_id", moduleID)
	return row, nil
}

// ContentConsumed completes the owning module when a video ends or a file is downloaded.
// Quiz content only completes through a passing attempt. The bool reports whether the event
// completed the module.
func (s *ProgressService) ContentConsumed(ctx context.Context, userID, contentID string, event ContentEvent) (bool, error) {
	content, err := s.courses.GetContent(ctx, contentID)
	if err != nil {
		return false, err
	}
	switch {
	case content.Type == domain.ContentVideo && event == EventVideoEnded,
		content.Type == domain.ContentFile && event == EventFileDownloaded:
		if _, err := s.MarkModuleComplete(ctx, userID, content.ModuleID); err != nil {
			return false, err
		}
		return true, nil
	default:
		return false, nil
	}
}

// CourseProgress computes the user's completion percentage for a course.
func (s *ProgressService) CourseProgress(ctx context.Context, userID, courseID string) (CourseProgress, error) {
	course, err := s.courses.GetCourse(ctx, courseID)
	if err != nil {
		return CourseProgress{}, err
	}
	completed, err := s.completedModules(ctx, userID, course.Modules)
	if err != nil {
		return CourseProgress{}, err
	}
	result := CourseProgress{
		CourseID: courseID,
		Total:    len(course.Modules),
		Modules:  make(map[string]bool, len(course.Modules)),
	}
	for _, m := range course.Modules {
		done := completed[m.ID]
		result.Modules[m.ID] = done
		if done {
			result.Completed++
		}
	}
	result.Percent = ComputeCourseProgress(result.Completed, result.Total)
	result.IsCompleted = ComputeCourseCompletion(result.Completed, result.Total)
	return result, nil
}

// Dashboard aggregates completion and learning time over every enrolled course.
func (s *ProgressService) Dashboard(ctx context.Context, userID string) (DashboardStats, error) {
	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return DashboardStats{}, err
	}
	registrations, err := s.enrollments.ListEnrollmentsByUser(ctx, userID)
	if err != nil {
		return DashboardStats{}, err
	}

	stats := DashboardStats{TotalCourses: len(registrations), DayStreak: user.DayStreak}
	minutes := 0
	for _, reg := range registrations {
		course, err := s.courses.GetCourse(ctx, reg.CourseID)
		if err != nil {
			return DashboardStats{}, err
		}
		completed, err := s.completedModules(ctx, userID, course.Modules)
		if err != nil {
			return DashboardStats{}, err
		}
		done := 0
		for _, m := range course.Modules {
			if completed[m.ID] {
				done++
				minutes += m.EstimatedMinutes
			}
		}
		if ComputeCourseCompletion(done, len(course.Modules)) {
			stats.CoursesCompleted++
		}
	}
	stats.HoursLearned = int(math.Round(float64(minutes) / 60))
	return stats, nil
}

func (s *ProgressService) completedModules(ctx context.Context, userID string, modules []domain.Module) (map[string]bool, error) {
	completed := make(map[string]bool, len(modules))
	if len(modules) == 0 {
		return completed, nil
	}
	ids := make([]string, 0, len(modules))
	for _, m := range modules {
		ids = append(ids, m.ID)
	}
	rows, err := s.progress.ListProgress(ctx, userID, ids)
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		if row.Completed {
			completed[row.ModuleID] = true
		}
	}
	return completed, nil
}
