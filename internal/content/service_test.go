package content

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"testing"

	"github.com/hoclieu/hoclieu-lms/internal/grading"
)

/* ---------------- In-memory fake satisfying the store interfaces ---------------- */

type fakeBackend struct {
	questions map[string][]Question
	lessonFor map[string]string   // quizID -> lessonID ("" = standalone)
	quizzesOf map[string][]string // lessonID -> quiz ids
	passed    map[string][]string // lessonID|userID -> passed quiz ids
	attempts  []Attempt
	progress  map[string]Progress // lessonID|userID

	insertErr   error
	progressErr error
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		questions: map[string][]Question{},
		lessonFor: map[string]string{},
		quizzesOf: map[string][]string{},
		passed:    map[string][]string{},
		progress:  map[string]Progress{},
	}
}

func pkey(lessonID, userID string) string { return lessonID + "|" + userID }

func (f *fakeBackend) QuestionsForQuiz(_ context.Context, quizID string) ([]Question, error) {
	qs, ok := f.questions[quizID]
	if !ok {
		return nil, ErrNotFound
	}
	return qs, nil
}

func (f *fakeBackend) InsertAttempt(_ context.Context, a Attempt) (Attempt, error) {
	if f.insertErr != nil {
		return Attempt{}, f.insertErr
	}
	a.ID = fmt.Sprintf("attempt-%d", len(f.attempts)+1)
	a.CreatedAt = int64(1700000000 + len(f.attempts))
	f.attempts = append(f.attempts, a)
	return a, nil
}

func (f *fakeBackend) ListAttempts(_ context.Context, opts AttemptListOpts) ([]Attempt, error) {
	var out []Attempt
	for _, a := range f.attempts {
		if opts.QuizID != "" && a.QuizID != opts.QuizID {
			continue
		}
		if opts.UserID != "" && a.UserID != opts.UserID {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

func (f *fakeBackend) UpsertProgress(_ context.Context, lessonID, userID string, progress int) (Progress, error) {
	if f.progressErr != nil {
		return Progress{}, f.progressErr
	}
	k := pkey(lessonID, userID)
	p, ok := f.progress[k]
	if !ok {
		p = Progress{LessonID: lessonID, UserID: userID}
	}
	if progress > p.Progress {
		p.Progress = progress
	}
	f.progress[k] = p
	return p, nil
}

func (f *fakeBackend) MarkCompleted(_ context.Context, lessonID, userID string, score int) (Progress, error) {
	if f.progressErr != nil {
		return Progress{}, f.progressErr
	}
	k := pkey(lessonID, userID)
	p, ok := f.progress[k]
	if !ok {
		p = Progress{LessonID: lessonID, UserID: userID}
	}
	p.Progress = 100
	if !p.IsCompleted {
		p.IsCompleted = true
		ts := int64(1700000000)
		p.CompletedAt = &ts
	}
	if score > p.BestScore {
		p.BestScore = score
	}
	f.progress[k] = p
	return p, nil
}

func (f *fakeBackend) GetProgress(_ context.Context, lessonID, userID string) (Progress, bool, error) {
	p, ok := f.progress[pkey(lessonID, userID)]
	return p, ok, nil
}

func (f *fakeBackend) LessonIDForQuiz(_ context.Context, quizID string) (string, error) {
	id, ok := f.lessonFor[quizID]
	if !ok {
		return "", ErrNotFound
	}
	return id, nil
}

func (f *fakeBackend) QuizIDsForLesson(_ context.Context, lessonID string) ([]string, error) {
	return f.quizzesOf[lessonID], nil
}

func (f *fakeBackend) PassedQuizIDs(_ context.Context, lessonID, userID string, _ int) ([]string, error) {
	return f.passed[pkey(lessonID, userID)], nil
}

func newTestService(f *fakeBackend, passing int) *Service {
	return &Service{
		Bank:         f,
		Attempts:     f,
		Progress:     f,
		Lessons:      f,
		Grader:       grading.NewEngine(),
		PassingScore: passing,
	}
}

// seedQuiz installs n single-choice questions (correct index 0, 1 point
// each) and returns a submission answering the first k correctly.
func seedQuiz(f *fakeBackend, quizID string, n, correct int) map[string]interface{} {
	qs := make([]Question, n)
	answers := map[string]interface{}{}
	for i := 0; i < n; i++ {
		id := fmt.Sprintf("%s-q%d", quizID, i)
		qs[i] = Question{ID: id, Type: grading.TypeSingleChoice, Options: []string{"a", "b"}, CorrectIndex: 0, Points: 1}
		if i < correct {
			answers[id] = float64(0)
		} else {
			answers[id] = float64(1)
		}
	}
	f.questions[quizID] = qs
	return answers
}

/* ------------------------------------------ Tests ------------------------------------------ */

func TestSubmitStandaloneQuiz(t *testing.T) {
	f := newFakeBackend()
	f.lessonFor["q1"] = "" // standalone
	answers := seedQuiz(f, "q1", 4, 3)
	svc := newTestService(f, 70)

	res, err := svc.SubmitQuiz(context.Background(), "q1", "u1", answers, 42)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Grade.ScorePercent != 75 {
		t.Fatalf("score = %d, want 75", res.Grade.ScorePercent)
	}
	if res.Attempt.ID == "" || res.Attempt.Score != 75 || res.Attempt.DurationSec != 42 {
		t.Fatalf("attempt not recorded properly: %+v", res.Attempt)
	}
	if len(f.progress) != 0 {
		t.Fatalf("standalone quiz must not touch progress, got %v", f.progress)
	}
}

func TestSubmitPersistFailureFailsSubmission(t *testing.T) {
	f := newFakeBackend()
	f.lessonFor["q1"] = ""
	answers := seedQuiz(f, "q1", 1, 1)
	f.insertErr = errors.New("disk full")
	svc := newTestService(f, 70)

	if _, err := svc.SubmitQuiz(context.Background(), "q1", "u1", answers, 0); err == nil {
		t.Fatalf("expected error when the attempt write fails")
	}
	if len(f.attempts) != 0 {
		t.Fatalf("no attempt should exist after a failed write")
	}
}

func TestAggregatorFailureDoesNotFailSubmission(t *testing.T) {
	f := newFakeBackend()
	f.lessonFor["q1"] = "l1"
	f.quizzesOf["l1"] = []string{"q1"}
	answers := seedQuiz(f, "q1", 1, 1)
	f.progressErr = errors.New("progress table locked")
	svc := newTestService(f, 70)

	res, err := svc.SubmitQuiz(context.Background(), "q1", "u1", answers, 0)
	if err != nil {
		t.Fatalf("aggregation failure must be swallowed, got %v", err)
	}
	if res.Attempt.Score != 100 {
		t.Fatalf("attempt score = %d, want 100", res.Attempt.Score)
	}
	if len(f.attempts) != 1 {
		t.Fatalf("attempt must be recorded regardless")
	}
}

func TestBelowPassingSkipsProgress(t *testing.T) {
	f := newFakeBackend()
	f.lessonFor["q1"] = "l1"
	f.quizzesOf["l1"] = []string{"q1"}
	answers := seedQuiz(f, "q1", 2, 1) // 50%
	svc := newTestService(f, 70)

	if _, err := svc.SubmitQuiz(context.Background(), "q1", "u1", answers, 0); err != nil {
		t.Fatal(err)
	}
	if len(f.progress) != 0 {
		t.Fatalf("failing attempt must not touch progress")
	}
	if len(f.attempts) != 1 {
		t.Fatalf("failing attempt is still recorded")
	}
}

func TestPassingScoreIsConfigurable(t *testing.T) {
	f := newFakeBackend()
	f.lessonFor["q1"] = "l1"
	f.quizzesOf["l1"] = []string{"q1"}
	answers := seedQuiz(f, "q1", 2, 1) // 50%
	svc := newTestService(f, 50)

	if _, err := svc.SubmitQuiz(context.Background(), "q1", "u1", answers, 0); err != nil {
		t.Fatal(err)
	}
	p := f.progress[pkey("l1", "u1")]
	if !p.IsCompleted {
		t.Fatalf("50%% passes at threshold 50, lesson should complete: %+v", p)
	}
}

// Lesson with quizzes A and B: passing A alone gives 50, passing B then
// completes. The passed-quiz query never sees the in-flight attempt;
// the aggregator must count the current quiz anyway.
func TestTwoQuizLessonCompletion(t *testing.T) {
	f := newFakeBackend()
	f.lessonFor["qa"] = "l1"
	f.lessonFor["qb"] = "l1"
	f.quizzesOf["l1"] = []string{"qa", "qb"}
	answersA := seedQuiz(f, "qa", 1, 1)
	answersB := seedQuiz(f, "qb", 1, 1)
	svc := newTestService(f, 70)
	ctx := context.Background()

	if _, err := svc.SubmitQuiz(ctx, "qa", "u1", answersA, 0); err != nil {
		t.Fatal(err)
	}
	p := f.progress[pkey("l1", "u1")]
	if p.Progress != 50 || p.IsCompleted {
		t.Fatalf("after passing A: %+v, want progress=50 not completed", p)
	}

	f.passed[pkey("l1", "u1")] = []string{"qa"} // A's attempt now visible
	if _, err := svc.SubmitQuiz(ctx, "qb", "u1", answersB, 0); err != nil {
		t.Fatal(err)
	}
	p = f.progress[pkey("l1", "u1")]
	if p.Progress != 100 || !p.IsCompleted || p.CompletedAt == nil {
		t.Fatalf("after passing B: %+v, want completed", p)
	}
	if p.BestScore != 100 {
		t.Fatalf("best score = %d, want 100", p.BestScore)
	}
}

func TestQuizlessLessonCompletesOnAnyPass(t *testing.T) {
	f := newFakeBackend()
	f.lessonFor["q1"] = "l1"
	// no quizzes registered under l1
	answers := seedQuiz(f, "q1", 5, 4) // 80%
	svc := newTestService(f, 70)

	if _, err := svc.SubmitQuiz(context.Background(), "q1", "u1", answers, 0); err != nil {
		t.Fatal(err)
	}
	p := f.progress[pkey("l1", "u1")]
	if p.Progress != 100 || !p.IsCompleted {
		t.Fatalf("quiz-less lesson should complete immediately: %+v", p)
	}
	if p.BestScore != 80 {
		t.Fatalf("best score = %d, want 80", p.BestScore)
	}
}

func TestLessonProgressReconciliation(t *testing.T) {
	f := newFakeBackend()
	f.quizzesOf["l1"] = []string{"qa", "qb"}
	f.passed[pkey("l1", "u1")] = []string{"qa"}
	svc := newTestService(f, 70)
	ctx := context.Background()

	// No stored row: the read derives 50 from attempt history.
	p, err := svc.LessonProgress(ctx, "l1", "u1")
	if err != nil {
		t.Fatal(err)
	}
	if p.Progress != 50 || p.IsCompleted {
		t.Fatalf("derived snapshot = %+v, want progress=50", p)
	}

	// Idempotent: a second read with no new attempts is identical.
	p2, err := svc.LessonProgress(ctx, "l1", "u1")
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(p, p2) {
		t.Fatalf("reconciliation not idempotent: %+v vs %+v", p, p2)
	}

	// Stored base higher than the derived ratio wins (monotonic view).
	f.progress[pkey("l1", "u1")] = Progress{LessonID: "l1", UserID: "u1", Progress: 80}
	p, err = svc.LessonProgress(ctx, "l1", "u1")
	if err != nil {
		t.Fatal(err)
	}
	if p.Progress != 80 {
		t.Fatalf("progress = %d, want stored max 80", p.Progress)
	}
}

func TestLessonProgressFullCoverage(t *testing.T) {
	f := newFakeBackend()
	f.quizzesOf["l1"] = []string{"qa", "qb"}
	f.passed[pkey("l1", "u1")] = []string{"qa", "qb"}
	svc := newTestService(f, 70)

	p, err := svc.LessonProgress(context.Background(), "l1", "u1")
	if err != nil {
		t.Fatal(err)
	}
	if p.Progress != 100 || !p.IsCompleted {
		t.Fatalf("all quizzes passed, want completed view: %+v", p)
	}
}

func TestLessonProgressCompletedRowIsTerminal(t *testing.T) {
	f := newFakeBackend()
	ts := int64(1700000000)
	f.progress[pkey("l1", "u1")] = Progress{
		LessonID: "l1", UserID: "u1", Progress: 100, IsCompleted: true, CompletedAt: &ts, BestScore: 90,
	}
	svc := newTestService(f, 70)

	p, err := svc.LessonProgress(context.Background(), "l1", "u1")
	if err != nil {
		t.Fatal(err)
	}
	if !p.IsCompleted || p.Progress != 100 || p.BestScore != 90 {
		t.Fatalf("completed row must come back untouched: %+v", p)
	}
}

func TestQuizRatioPercentCaps(t *testing.T) {
	tests := []struct {
		passed, total, want int
	}{
		{0, 2, 0},
		{1, 2, 50},
		{2, 3, 67},
		{1, 3, 33},
		{99, 100, 99},
		{995, 1000, 99}, // rounds to 100, capped: 100 is reserved for completion
		{0, 0, 0},
	}
	for _, tt := range tests {
		if got := quizRatioPercent(tt.passed, tt.total); got != tt.want {
			t.Errorf("quizRatioPercent(%d,%d) = %d, want %d", tt.passed, tt.total, got, tt.want)
		}
	}
}
