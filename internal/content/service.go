package content

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math"

	"github.com/google/uuid"

	"github.com/hoclieu/hoclieu-lms/internal/events"
	"github.com/hoclieu/hoclieu-lms/internal/grading"
)

// Service ties grading, attempt recording and lesson completion
// together. Fields are exported so tests can assemble it from fakes.
type Service struct {
	Catalog  Catalog
	Bank     QuestionBank
	Attempts AttemptStore
	Progress ProgressStore
	Lessons  LessonLinkReader
	Grader   *grading.Engine
	Events   *events.Feed // optional

	// PassingScore is the percentage threshold for lesson completion
	// bookkeeping (PASSING_SCORE env, default 70).
	PassingScore int
}

// NewService wires the one-store deployment.
func NewService(store *SQLStore, feed *events.Feed, passingScore int) *Service {
	return &Service{
		Catalog:      store,
		Bank:         store,
		Attempts:     store,
		Progress:     store,
		Lessons:      store,
		Grader:       grading.NewEngine(),
		Events:       feed,
		PassingScore: passingScore,
	}
}

func (s *Service) CreateLesson(ctx context.Context, title, summary string) (Lesson, error) {
	l := Lesson{ID: uuid.NewString(), Title: title, Summary: summary}
	if err := s.Catalog.PutLesson(ctx, l); err != nil {
		return Lesson{}, err
	}
	return l, nil
}

// CreateQuiz normalizes raw authoring input and persists the canonical
// quiz. ErrInvalidQuestionSet is a hard error on create.
func (s *Service) CreateQuiz(ctx context.Context, lessonID, title string, raw []RawQuestion) (Quiz, error) {
	questions, err := NormalizeQuestions(raw)
	if err != nil {
		return Quiz{}, err
	}
	for i := range questions {
		questions[i].ID = uuid.NewString()
	}
	q := Quiz{ID: uuid.NewString(), LessonID: lessonID, Title: title, Questions: questions}
	if err := s.Catalog.PutQuiz(ctx, q); err != nil {
		return Quiz{}, err
	}
	return q, nil
}

func (s *Service) QuizForStudent(ctx context.Context, quizID string) (Quiz, error) {
	return s.Catalog.QuizForStudent(ctx, quizID)
}

func (s *Service) ListAttempts(ctx context.Context, opts AttemptListOpts) ([]Attempt, error) {
	return s.Attempts.ListAttempts(ctx, opts)
}

// SubmitResult is what the submitting client gets back: the attempt
// row plus per-question correctness. No answer keys beyond what the
// client already submitted.
type SubmitResult struct {
	Attempt Attempt         `json:"attempt"`
	Grade   grading.Summary `json:"grade"`
}

// SubmitQuiz grades the submission, records the attempt, and — when the
// score passes — updates lesson progress. The attempt write is the
// transaction that matters; progress bookkeeping is a derived cache
// whose failure is logged and repaired by read-time reconciliation.
func (s *Service) SubmitQuiz(ctx context.Context, quizID, userID string, answers map[string]interface{}, durationSec int) (SubmitResult, error) {
	questions, err := s.Bank.QuestionsForQuiz(ctx, quizID)
	if err != nil {
		return SubmitResult{}, err
	}

	qs := make([]grading.Q, len(questions))
	for i, q := range questions {
		qs[i] = gradingView(q)
	}
	sum := s.Grader.GradeQuiz(qs, answers)

	raw, err := json.Marshal(answers)
	if err != nil {
		raw = []byte("{}")
	}
	score := clampScore(sum.ScorePercent)
	a, err := s.Attempts.InsertAttempt(ctx, Attempt{
		QuizID:      quizID,
		UserID:      userID,
		Score:       score,
		DurationSec: durationSec,
		Answers:     raw,
	})
	if err != nil {
		return SubmitResult{}, fmt.Errorf("record attempt: %w", err)
	}

	s.Events.Emit(ctx, "attempt.recorded", a.ID, map[string]interface{}{
		"attempt_id": a.ID,
		"quiz_id":    quizID,
		"user_id":    userID,
		"score":      score,
	})

	if score >= s.PassingScore {
		if err := s.updateLessonProgress(ctx, quizID, userID, score); err != nil {
			log.Printf("progress update for quiz %s user %s: %v", quizID, userID, err)
		}
	}
	return SubmitResult{Attempt: a, Grade: sum}, nil
}

// updateLessonProgress is the completion aggregator: it derives the
// lesson's progress row from which of its quizzes the user has passed.
func (s *Service) updateLessonProgress(ctx context.Context, quizID, userID string, score int) error {
	lessonID, err := s.Lessons.LessonIDForQuiz(ctx, quizID)
	if err != nil {
		return err
	}
	if lessonID == "" {
		// standalone quiz, nothing to aggregate
		return nil
	}

	quizIDs, err := s.Lessons.QuizIDsForLesson(ctx, lessonID)
	if err != nil {
		return err
	}
	if len(quizIDs) == 0 {
		// A lesson without quizzes completes on any passing attempt
		// that points at it.
		return s.complete(ctx, lessonID, userID, score)
	}

	passed, err := s.Lessons.PassedQuizIDs(ctx, lessonID, userID, s.PassingScore)
	if err != nil {
		return err
	}
	passedSet := make(map[string]struct{}, len(passed)+1)
	for _, id := range passed {
		passedSet[id] = struct{}{}
	}
	// The attempt just written may not be visible to the query above;
	// count its quiz regardless.
	passedSet[quizID] = struct{}{}

	passedCount := 0
	for _, id := range quizIDs {
		if _, ok := passedSet[id]; ok {
			passedCount++
		}
	}
	if passedCount >= len(quizIDs) {
		return s.complete(ctx, lessonID, userID, score)
	}
	_, err = s.Progress.UpsertProgress(ctx, lessonID, userID, quizRatioPercent(passedCount, len(quizIDs)))
	return err
}

func (s *Service) complete(ctx context.Context, lessonID, userID string, score int) error {
	p, err := s.Progress.MarkCompleted(ctx, lessonID, userID, score)
	if err != nil {
		return err
	}
	s.Events.Emit(ctx, "lesson.completed", lessonID+"|"+userID, map[string]interface{}{
		"lesson_id":  lessonID,
		"user_id":    userID,
		"best_score": p.BestScore,
	})
	return nil
}

// LessonProgress returns the snapshot reconciled against attempt
// history. The write path is best-effort, so the read path recomputes
// the passed/total ratio and returns the max of stored and computed.
// It never writes, so repeated calls return identical snapshots.
func (s *Service) LessonProgress(ctx context.Context, lessonID, userID string) (Progress, error) {
	row, ok, err := s.Progress.GetProgress(ctx, lessonID, userID)
	if err != nil {
		return Progress{}, err
	}
	if !ok {
		row = Progress{LessonID: lessonID, UserID: userID}
	}
	if row.IsCompleted {
		return row, nil
	}

	quizIDs, err := s.Lessons.QuizIDsForLesson(ctx, lessonID)
	if err != nil {
		return Progress{}, err
	}
	if len(quizIDs) == 0 {
		return row, nil
	}

	passed, err := s.Lessons.PassedQuizIDs(ctx, lessonID, userID, s.PassingScore)
	if err != nil {
		return Progress{}, err
	}
	if len(passed) >= len(quizIDs) {
		row.Progress = 100
		row.IsCompleted = true
		return row, nil
	}
	if pct := quizRatioPercent(len(passed), len(quizIDs)); pct > row.Progress {
		row.Progress = pct
	}
	return row, nil
}

func gradingView(q Question) grading.Q {
	return grading.Q{
		ID:              q.ID,
		Type:            q.Type,
		Points:          q.Points,
		CorrectIndex:    q.CorrectIndex,
		CorrectIndexes:  q.CorrectIndexes,
		AcceptedAnswers: q.AcceptedAnswers,
	}
}

// quizRatioPercent rounds passed/total to a percentage, holding 100
// back for true completion (99/100 passed still shows 99).
func quizRatioPercent(passed, total int) int {
	if total <= 0 {
		return 0
	}
	pct := int(math.Round(float64(passed) / float64(total) * 100))
	if pct > 99 {
		pct = 99
	}
	return pct
}

func clampScore(n int) int {
	if n < 0 {
		return 0
	}
	if n > 100 {
		return 100
	}
	return n
}
