package app

import (
	"context"
	"sort"

	"coursehub-service/internal/config"
	"coursehub-service/internal/domain"
)

// CourseStats is the backoffice view of one course.
type CourseStats struct {
	CourseID        string  `json:"courseId"`
	Title           string  `json:"title"`
	Registrations   int     `json:"registrations"`
	Modules         int     `json:"modules"`
	AverageProgress int     `json:"averageProgress"`
	Reviews         int     `json:"reviews"`
	AverageRating   float64 `json:"averageRating"`
}

// QuizStats is the backoffice view of one quiz.
type QuizStats struct {
	QuizID       string `json:"quizId"`
	Attempts     int    `json:"attempts"`
	Scored       int    `json:"scored"`
	AverageScore int    `json:"averageScore"`
	PassRate     int    `json:"passRate"`
}

// Statistics bundles the backoffice analytics.
type Statistics struct {
	Courses []CourseStats `json:"courses"`
	Quizzes []QuizStats   `json:"quizzes"`
}

// StatsService computes backoffice analytics from stored rows.
type StatsService struct {
	users         UserRepository
	courses       CourseRepository
	enrollments   EnrollmentRepository
	progress      ProgressRepository
	attempts      AttemptRepository
	reviews       ReviewRepository
	passThreshold int
}

func NewStatsService(users UserRepository, courses CourseRepository, enrollments EnrollmentRepository, progress ProgressRepository, attempts AttemptRepository, reviews ReviewRepository) *StatsService {
	return &StatsService{
		users:         users,
		courses:       courses,
		enrollments:   enrollments,
		progress:      progress,
		attempts:      attempts,
		reviews:       reviews,
		passThreshold: config.DefaultPassThreshold,
	}
}

func (s *StatsService) SetPassThreshold(threshold int) {
	s.passThreshold = threshold
}

// Compute walks every course (drafts included) and every quiz referenced by module content.
func (s *StatsService) Compute(ctx context.Context, actorID string) (Statistics, error) {
	actor, err := s.users.GetUser(ctx, actorID)
	if err != nil {
		return Statistics{}, err
	}
	if !actor.Role.IsStaff() {
		return Statistics{}, domain.ErrForbidden
	}

	courses, err := s.courses.ListCourses(ctx, false)
	if err != nil {
		return Statistics{}, err
	}
	sort.SliceStable(courses, func(i, j int) bool { return courses[i].OrderIndex < courses[j].OrderIndex })

	var (
		out      Statistics
		quizSeen = make(map[string]bool)
		quizIDs  []string
	)
	for _, course := range courses {
		cs, err := s.courseStats(ctx, course)
		if err != nil {
			return Statistics{}, err
		}
		out.Courses = append(out.Courses, cs)
		for _, m := range course.Modules {
			for _, c := range m.Contents {
				if c.Type == domain.ContentQuiz && c.Quiz != nil && !quizSeen[c.Quiz.QuizID] {
					quizSeen[c.Quiz.QuizID] = true
					quizIDs = append(quizIDs, c.Quiz.QuizID)
				}
			}
		}
	}
	for _, id := range quizIDs {
		attempts, err := s.attempts.ListAttemptsByQuiz(ctx, id)
		if err != nil {
			return Statistics{}, err
		}
		out.Quizzes = append(out.Quizzes, ComputeQuizStats(id, attempts, s.passThreshold))
	}
	return out, nil
}

func (s *StatsService) courseStats(ctx context.Context, course domain.Course) (CourseStats, error) {
	registrations, err := s.enrollments.CountEnrollmentsByCourse(ctx, course.ID)
	if err != nil {
		return CourseStats{}, err
	}
	completed := 0
	for _, m := range course.Modules {
		n, err := s.progress.CountCompletedByModule(ctx, m.ID)
		if err != nil {
			return CourseStats{}, err
		}
		completed += n
	}
	reviews, err := s.reviews.ListReviews(ctx, course.ID)
	if err != nil {
		return CourseStats{}, err
	}
	return CourseStats{
		CourseID:        course.ID,
		Title:           course.Title,
		Registrations:   registrations,
		Modules:         len(course.Modules),
		AverageProgress: Percent(completed, len(course.Modules)*registrations),
		Reviews:         len(reviews),
		AverageRating:   AverageRating(reviews),
	}, nil
}

// ComputeQuizStats averages scored attempts only; pending attempts count toward Attempts.
func ComputeQuizStats(quizID string, attempts []domain.Attempt, passThreshold int) QuizStats {
	stats := QuizStats{QuizID: quizID, Attempts: len(attempts)}
	sum, passed := 0, 0
	for _, a := range attempts {
		if a.Score == nil {
			continue
		}
		stats.Scored++
		sum += *a.Score
		if *a.Score >= passThreshold {
			passed++
		}
	}
	if stats.Scored > 0 {
		stats.AverageScore = Percent(sum, stats.Scored*100)
	}
	stats.PassRate = Percent(passed, stats.Scored)
	return stats
}
