package redis

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"coursehub-service/internal/domain"
	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestQuizRepositoryCachesInRedis(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := newClient(mr)
	loader := &countingLoader{quizzes: map[string]domain.Quiz{"quiz-1": sampleQuiz()}}
	repo := NewQuizRepository(client, loader, time.Minute)

	quiz, err := repo.GetQuiz(context.Background(), "quiz-1")
	if err != nil {
		t.Fatalf("get quiz: %v", err)
	}
	if loader.count() != 1 {
		t.Fatalf("expected loader called once, got %d", loader.count())
	}
	if !mr.Exists("quiz:quiz-1:content") {
		t.Fatalf("expected quiz content cached")
	}
	if ttl := mr.TTL("quiz:quiz-1:content"); ttl < time.Minute || ttl > time.Minute+6*time.Second {
		t.Fatalf("expected ttl with up to 10%% jitter, got %s", ttl)
	}

	// Second call should hit cache, loader not incremented.
	cached, err := repo.GetQuiz(context.Background(), "quiz-1")
	if err != nil {
		t.Fatalf("get cached quiz: %v", err)
	}
	if loader.count() != 1 {
		t.Fatalf("expected cache hit, loader calls=%d", loader.count())
	}
	if len(cached.Questions) != 1 || len(cached.Questions[0].Choices) != 2 || !cached.Questions[0].Choices[1].Correct {
		t.Fatalf("expected full quiz from cache, got %+v", cached)
	}
	if cached.Questions[0].Prompt != quiz.Questions[0].Prompt {
		t.Fatalf("expected prompt preserved, got %q", cached.Questions[0].Prompt)
	}

	if err := repo.Invalidate(context.Background(), "quiz-1"); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	_, _ = repo.GetQuiz(context.Background(), "quiz-1")
	if loader.count() != 2 {
		t.Fatalf("expected reload after invalidate, loader calls=%d", loader.count())
	}
}

func TestQuizRepositoryCollapsesConcurrentMisses(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	release := make(chan struct{})
	loader := &countingLoader{quizzes: map[string]domain.Quiz{"quiz-1": sampleQuiz()}, gate: release}
	repo := NewQuizRepository(newClient(mr), loader, time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := repo.GetQuiz(context.Background(), "quiz-1"); err != nil {
				t.Errorf("get quiz: %v", err)
			}
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	if loader.count() != 1 {
		t.Fatalf("expected one load for concurrent misses, got %d", loader.count())
	}
}

func TestQuizRepositoryPropagatesLoaderError(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	repo := NewQuizRepository(newClient(mr), &countingLoader{}, time.Minute)
	if _, err := repo.GetQuiz(context.Background(), "missing"); !errors.Is(err, domain.ErrQuizNotFound) {
		t.Fatalf("expected ErrQuizNotFound, got %v", err)
	}
	if mr.Exists("quiz:missing:content") {
		t.Fatalf("expected nothing cached on error")
	}
}

type countingLoader struct {
	mu      sync.Mutex
	quizzes map[string]domain.Quiz
	gate    chan struct{}
	calls   int
}

func (l *countingLoader) LoadQuiz(_ context.Context, quizID string) (domain.Quiz, error) {
	l.mu.Lock()
	l.calls++
	l.mu.Unlock()
	if l.gate != nil {
		<-l.gate
	}
	quiz, ok := l.quizzes[quizID]
	if !ok {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	return quiz, nil
}

func (l *countingLoader) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.calls
}

func sampleQuiz() domain.Quiz {
	return domain.Quiz{
		ID: "quiz-1",
		Questions: []domain.Question{
			{
				ID:     "q1",
				Prompt: "What is 2 + 2?",
				Type:   domain.QuestionChoice,
				Choices: []domain.Choice{
					{ID: "c1", Text: "3", OrderIndex: 1},
					{ID: "c2", Text: "4", Correct: true, OrderIndex: 2},
				},
			},
		},
	}
}

func newClient(mr *miniredis.Miniredis) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
}
