package http

import (
	"context"
	"net/http"
	"testing"
)

func TestCourseAuthoringEndpoints(t *testing.T) {
	srv := newTestServer(t)

	var failure errorResponse
	if code := srv.do(t, "POST", "/backoffice/courses", "mod", map[string]any{"title": "Ops"}, &failure); code != http.StatusForbidden {
		t.Fatalf("expected 403 for moderator, got %d %+v", code, failure)
	}
	code := srv.do(t, "POST", "/backoffice/courses", "admin", map[string]any{"difficulty": "expert"}, &failure)
	if code != http.StatusBadRequest || failure.Fields["title"] != "required" || failure.Fields["difficulty"] != "oneof" {
		t.Fatalf("expected validation failure, got %d %+v", code, failure)
	}

	var course struct {
		ID         string `json:"id"`
		Published  bool   `json:"published"`
		OrderIndex int    `json:"orderIndex"`
		Modules    []struct {
			ID         string `json:"id"`
			OrderIndex int    `json:"orderIndex"`
		} `json:"modules"`
	}
	if code := srv.do(t, "POST", "/backoffice/courses", "admin", map[string]any{"title": "Ops", "difficulty": "beginner"}, &course); code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", code)
	}
	if course.Published || course.OrderIndex != 3 {
		t.Fatalf("expected draft after existing courses, got %+v", course)
	}

	var catalog struct {
		Courses []struct {
			ID string `json:"id"`
		} `json:"courses"`
	}
	srv.do(t, "GET", "/courses", "learner", nil, &catalog)
	if len(catalog.Courses) != 2 {
		t.Fatalf("draft leaked into catalog: %+v", catalog)
	}
	srv.do(t, "GET", "/backoffice/courses", "admin", nil, &catalog)
	if len(catalog.Courses) != 3 {
		t.Fatalf("expected drafts in backoffice list, got %+v", catalog)
	}

	module := map[string]any{
		"title": "Basics",
		"contents": []map[string]any{
			{"title": "Intro", "type": "video", "url": "https://cdn.example.com/ops.mp4", "durationSeconds": 30},
			{"title": "Check", "type": "quiz", "quizId": "quiz-check"},
		},
	}
	base := "/backoffice/courses/" + course.ID
	if code := srv.do(t, "POST", base+"/modules", "admin", module, nil); code != http.StatusCreated {
		t.Fatalf("expected 201 for module, got %d", code)
	}
	module["orderIndex"] = 1
	if code := srv.do(t, "POST", base+"/modules", "admin", module, &failure); code != http.StatusConflict || failure.Error != "duplicate_order" {
		t.Fatalf("expected 409 duplicate_order, got %d %+v", code, failure)
	}
	badContent := map[string]any{"title": "Broken", "contents": []map[string]any{{"title": "v", "type": "video"}}}
	if code := srv.do(t, "POST", base+"/modules", "admin", badContent, &failure); code != http.StatusBadRequest || failure.Fields["url"] != "required_unless" {
		t.Fatalf("expected url validation failure, got %d %+v", code, failure)
	}
	delete(module, "orderIndex")
	if code := srv.do(t, "POST", base+"/modules", "admin", module, nil); code != http.StatusCreated {
		t.Fatalf("expected second module appended, got %d", code)
	}

	if code := srv.do(t, "PUT", base+"/published", "admin", map[string]any{"published": true}, &course); code != http.StatusOK || !course.Published {
		t.Fatalf("expected published course, got %d %+v", code, course)
	}
	if len(course.Modules) != 2 {
		t.Fatalf("expected two modules, got %+v", course.Modules)
	}
	first, second := course.Modules[0].ID, course.Modules[1].ID
	if code := srv.do(t, "PUT", base+"/modules/order", "admin", map[string]any{"moduleIds": []string{second, first}}, &course); code != http.StatusOK {
		t.Fatalf("expected reorder, got %d", code)
	}
	if course.Modules[0].ID != second || course.Modules[0].OrderIndex != 1 {
		t.Fatalf("unexpected order %+v", course.Modules)
	}
	if code := srv.do(t, "PUT", base+"/modules/order", "admin", map[string]any{"moduleIds": []string{first}}, &failure); code != http.StatusBadRequest || failure.Error != "invalid_value" {
		t.Fatalf("expected 400 invalid_value, got %d %+v", code, failure)
	}

	if code := srv.do(t, "DELETE", "/backoffice/modules/"+first, "admin", nil, nil); code != http.StatusNoContent {
		t.Fatalf("expected 204 deleting module, got %d", code)
	}
	if code := srv.do(t, "DELETE", base, "admin", nil, nil); code != http.StatusNoContent {
		t.Fatalf("expected 204 deleting course, got %d", code)
	}
	if code := srv.do(t, "PUT", base, "admin", map[string]any{"title": "Gone"}, &failure); code != http.StatusNotFound || failure.Error != "course_not_found" {
		t.Fatalf("expected 404 after delete, got %d %+v", code, failure)
	}
}

func TestQuizAuthoringEndpoints(t *testing.T) {
	srv := newTestServer(t)

	var failure errorResponse
	code := srv.do(t, "POST", "/backoffice/quizzes", "admin", map[string]any{"title": "Empty"}, &failure)
	if code != http.StatusBadRequest || failure.Fields["questions"] != "required" {
		t.Fatalf("expected questions validation failure, got %d %+v", code, failure)
	}
	noCorrect := map[string]any{"title": "Bad", "questions": []map[string]any{
		{"prompt": "p", "type": "choice", "choices": []map[string]any{{"text": "a"}, {"text": "b"}}},
	}}
	if code := srv.do(t, "POST", "/backoffice/quizzes", "admin", noCorrect, &failure); code != http.StatusBadRequest || failure.Error != "invalid_value" {
		t.Fatalf("expected 400 invalid_value, got %d %+v", code, failure)
	}

	var quiz struct {
		ID              string `json:"id"`
		Title           string `json:"title"`
		NeedsCorrection bool   `json:"needsCorrection"`
	}
	body := map[string]any{"title": "Retro", "timerMinutes": 5, "questions": []map[string]any{
		{"prompt": "Pick", "type": "choice", "choices": []map[string]any{{"text": "a", "correct": true}, {"text": "b"}}},
		{"prompt": "Why?", "type": "text"},
	}}
	if code := srv.do(t, "POST", "/backoffice/quizzes", "admin", body, &quiz); code != http.StatusCreated || quiz.ID == "" || !quiz.NeedsCorrection {
		t.Fatalf("expected created quiz, got %d %+v", code, quiz)
	}

	body["title"] = "Check v2"
	if code := srv.do(t, "PUT", "/backoffice/quizzes/quiz-check", "admin", body, &quiz); code != http.StatusOK || quiz.Title != "Check v2" {
		t.Fatalf("expected updated quiz, got %d %+v", code, quiz)
	}
	if code := srv.do(t, "POST", "/courses/intro/enrollment", "learner", nil, nil); code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", code)
	}
	session, err := srv.svc.Quizzes.Start(context.Background(), "learner", "m-quiz")
	if err != nil {
		t.Fatalf("start quiz: %v", err)
	}
	if snap := session.Snapshot(); snap.Title != "Check v2" || snap.Total != 2 {
		t.Fatalf("expected new sessions on the edited quiz, got %+v", snap)
	}

	var list struct {
		Quizzes []struct {
			ID string `json:"id"`
		} `json:"quizzes"`
	}
	if code := srv.do(t, "GET", "/backoffice/quizzes", "learner", nil, &failure); code != http.StatusForbidden {
		t.Fatalf("expected 403 for learner, got %d", code)
	}
	srv.do(t, "GET", "/backoffice/quizzes", "admin", nil, &list)
	if len(list.Quizzes) != 4 {
		t.Fatalf("expected 4 quizzes, got %+v", list)
	}

	if code := srv.do(t, "DELETE", "/backoffice/quizzes/quiz-check", "admin", nil, &failure); code != http.StatusConflict || failure.Error != "quiz_in_use" {
		t.Fatalf("expected 409 quiz_in_use, got %d %+v", code, failure)
	}
	var created struct {
		ID string `json:"id"`
	}
	body["title"] = "Throwaway"
	srv.do(t, "POST", "/backoffice/quizzes", "admin", body, &created)
	if code := srv.do(t, "DELETE", "/backoffice/quizzes/"+created.ID, "admin", nil, nil); code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", code)
	}
	if code := srv.do(t, "DELETE", "/backoffice/quizzes/"+created.ID, "admin", nil, &failure); code != http.StatusNotFound || failure.Error != "quiz_not_found" {
		t.Fatalf("expected 404 quiz_not_found, got %d %+v", code, failure)
	}
}

func TestReviewEndpoints(t *testing.T) {
	srv := newTestServer(t)

	var failure errorResponse
	review := map[string]any{"rating": 4, "text": "solid"}
	if code := srv.do(t, "PUT", "/courses/intro/review", "learner", review, &failure); code != http.StatusForbidden || failure.Error != "not_enrolled" {
		t.Fatalf("expected 403 not_enrolled, got %d %+v", code, failure)
	}
	if code := srv.do(t, "POST", "/courses/intro/enrollment", "learner", nil, nil); code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", code)
	}
	if code := srv.do(t, "PUT", "/courses/intro/review", "learner", map[string]any{"rating": 7, "text": "x"}, &failure); code != http.StatusBadRequest || failure.Fields["rating"] != "max" {
		t.Fatalf("expected rating validation failure, got %d %+v", code, failure)
	}
	if code := srv.do(t, "PUT", "/courses/intro/review", "learner", review, nil); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	review["rating"] = 5
	if code := srv.do(t, "PUT", "/courses/intro/review", "learner", review, nil); code != http.StatusOK {
		t.Fatalf("expected 200 on edit, got %d", code)
	}

	var list struct {
		AverageRating float64 `json:"averageRating"`
		Count         int     `json:"count"`
		Mine          *struct {
			Rating int `json:"rating"`
		} `json:"mine"`
		Reviews []struct{} `json:"reviews"`
	}
	srv.do(t, "GET", "/courses/intro/reviews", "learner", nil, &list)
	if list.Count != 1 || list.AverageRating != 5 || list.Mine == nil || list.Mine.Rating != 5 || len(list.Reviews) != 0 {
		t.Fatalf("unexpected reviews %+v", list)
	}

	var stats struct {
		Courses []struct {
			Reviews       int     `json:"reviews"`
			AverageRating float64 `json:"averageRating"`
		} `json:"courses"`
	}
	srv.do(t, "GET", "/backoffice/stats", "admin", nil, &stats)
	if stats.Courses[0].Reviews != 1 || stats.Courses[0].AverageRating != 5 {
		t.Fatalf("expected rating in stats, got %+v", stats.Courses)
	}
}
