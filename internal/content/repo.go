package content

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("content: not found")

type AttemptListOpts struct {
	QuizID string
	UserID string
	Limit  int
	Offset int
}

// Catalog is the authoring/delivery surface for lessons and quizzes.
type Catalog interface {
	PutLesson(ctx context.Context, l Lesson) error
	GetLesson(ctx context.Context, id string) (Lesson, error)
	PutQuiz(ctx context.Context, q Quiz) error
	// QuizForStudent returns the quiz with answer keys stripped.
	QuizForStudent(ctx context.Context, id string) (Quiz, error)
}

// QuestionBank serves canonical questions WITH answer keys. Never
// forward its output to a client before grading.
type QuestionBank interface {
	QuestionsForQuiz(ctx context.Context, quizID string) ([]Question, error)
}

type AttemptStore interface {
	// InsertAttempt persists one immutable attempt row, assigning id
	// and timestamp.
	InsertAttempt(ctx context.Context, a Attempt) (Attempt, error)
	ListAttempts(ctx context.Context, opts AttemptListOpts) ([]Attempt, error)
}

type ProgressStore interface {
	// UpsertProgress writes progress with max-merge semantics: the
	// stored value only ever increases.
	UpsertProgress(ctx context.Context, lessonID, userID string, progress int) (Progress, error)
	// MarkCompleted sets progress=100 and is_completed, stamps
	// completed_at once, and folds score into best_score.
	MarkCompleted(ctx context.Context, lessonID, userID string, score int) (Progress, error)
	GetProgress(ctx context.Context, lessonID, userID string) (Progress, bool, error)
}

// LessonLinkReader resolves the lesson<->quiz linkage the aggregator
// walks.
type LessonLinkReader interface {
	// LessonIDForQuiz returns "" for standalone quizzes.
	LessonIDForQuiz(ctx context.Context, quizID string) (string, error)
	QuizIDsForLesson(ctx context.Context, lessonID string) ([]string, error)
	// PassedQuizIDs lists quiz ids under the lesson the user has passed
	// (any attempt with score >= passingScore).
	PassedQuizIDs(ctx context.Context, lessonID, userID string, passingScore int) ([]string, error)
}
