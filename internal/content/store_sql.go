package content

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// SQLStore implements Catalog, QuestionBank, AttemptStore,
// ProgressStore and LessonLinkReader on one relational DB. All writes
// are single statements; concurrency safety comes from the storage
// engine's row locking and upsert semantics.
type SQLStore struct {
	db     *sql.DB
	driver string // "sqlite" or "postgres"
}

func NewSQLStore(db *sql.DB, driver string) *SQLStore {
	return &SQLStore{db: db, driver: driver}
}

// maxFn returns the two-argument scalar max for the active driver.
func (s *SQLStore) maxFn() string {
	if s.driver == "postgres" {
		return "GREATEST"
	}
	return "MAX"
}

func (s *SQLStore) PutLesson(ctx context.Context, l Lesson) error {
	if l.ID == "" {
		return errors.New("lesson id required")
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO lessons (id,title,summary,created_at) VALUES ($1,$2,$3,$4)
		 ON CONFLICT (id) DO UPDATE SET title=EXCLUDED.title, summary=EXCLUDED.summary`,
		l.ID, l.Title, l.Summary, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("put lesson: %w", err)
	}
	return nil
}

func (s *SQLStore) GetLesson(ctx context.Context, id string) (Lesson, error) {
	var l Lesson
	err := s.db.QueryRowContext(ctx,
		`SELECT id,title,summary,created_at FROM lessons WHERE id=$1`, id).
		Scan(&l.ID, &l.Title, &l.Summary, &l.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Lesson{}, ErrNotFound
	}
	if err != nil {
		return Lesson{}, fmt.Errorf("get lesson: %w", err)
	}
	return l, nil
}

func (s *SQLStore) PutQuiz(ctx context.Context, q Quiz) error {
	if q.ID == "" {
		return errors.New("quiz id required")
	}
	qj, err := json.Marshal(q.Questions)
	if err != nil {
		return err
	}
	var lessonID sql.NullString
	if q.LessonID != "" {
		lessonID = sql.NullString{String: q.LessonID, Valid: true}
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO quizzes (id,lesson_id,title,questions_json,created_at) VALUES ($1,$2,$3,$4,$5)
		 ON CONFLICT (id) DO UPDATE SET lesson_id=EXCLUDED.lesson_id, title=EXCLUDED.title, questions_json=EXCLUDED.questions_json`,
		q.ID, lessonID, q.Title, string(qj), time.Now().Unix())
	if err != nil {
		return fmt.Errorf("put quiz: %w", err)
	}
	return nil
}

func (s *SQLStore) getQuiz(ctx context.Context, id string) (Quiz, error) {
	var (
		q        Quiz
		lessonID sql.NullString
		qjson    string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id,lesson_id,title,questions_json,created_at FROM quizzes WHERE id=$1`, id).
		Scan(&q.ID, &lessonID, &q.Title, &qjson, &q.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Quiz{}, ErrNotFound
	}
	if err != nil {
		return Quiz{}, fmt.Errorf("get quiz: %w", err)
	}
	q.LessonID = lessonID.String
	if err := json.Unmarshal([]byte(qjson), &q.Questions); err != nil {
		return Quiz{}, fmt.Errorf("decode questions for quiz %s: %w", id, err)
	}
	return q, nil
}

// QuizForStudent strips answer keys, parity with the pre-submission
// presentation boundary.
func (s *SQLStore) QuizForStudent(ctx context.Context, id string) (Quiz, error) {
	q, err := s.getQuiz(ctx, id)
	if err != nil {
		return Quiz{}, err
	}
	for i := range q.Questions {
		q.Questions[i] = q.Questions[i].StudentView()
	}
	return q, nil
}

func (s *SQLStore) QuestionsForQuiz(ctx context.Context, quizID string) ([]Question, error) {
	q, err := s.getQuiz(ctx, quizID)
	if err != nil {
		return nil, err
	}
	return q.Questions, nil
}

func (s *SQLStore) InsertAttempt(ctx context.Context, a Attempt) (Attempt, error) {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	a.CreatedAt = time.Now().Unix()
	answers := a.Answers
	if len(answers) == 0 {
		answers = json.RawMessage("{}")
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO attempts (id,quiz_id,user_id,score,duration_sec,answers_json,created_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		a.ID, a.QuizID, a.UserID, a.Score, a.DurationSec, string(answers), a.CreatedAt)
	if err != nil {
		return Attempt{}, fmt.Errorf("insert attempt: %w", err)
	}
	a.Answers = answers
	return a, nil
}

func (s *SQLStore) ListAttempts(ctx context.Context, opts AttemptListOpts) ([]Attempt, error) {
	q := `SELECT id,quiz_id,user_id,score,duration_sec,answers_json,created_at FROM attempts WHERE 1=1`
	args := []interface{}{}
	n := 0
	add := func(clause string, v interface{}) {
		n++
		q += fmt.Sprintf(" AND %s=$%d", clause, n)
		args = append(args, v)
	}
	if opts.QuizID != "" {
		add("quiz_id", opts.QuizID)
	}
	if opts.UserID != "" {
		add("user_id", opts.UserID)
	}
	q += " ORDER BY created_at DESC"
	limit := opts.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	q += fmt.Sprintf(" LIMIT $%d OFFSET $%d", n+1, n+2)
	args = append(args, limit, opts.Offset)

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}
	defer rows.Close()

	var out []Attempt
	for rows.Next() {
		var (
			a     Attempt
			ajson string
		)
		if err := rows.Scan(&a.ID, &a.QuizID, &a.UserID, &a.Score, &a.DurationSec, &ajson, &a.CreatedAt); err != nil {
			return nil, err
		}
		a.Answers = json.RawMessage(ajson)
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *SQLStore) UpsertProgress(ctx context.Context, lessonID, userID string, progress int) (Progress, error) {
	now := time.Now().Unix()
	// Atomic max-merge: two racing writers both land on the larger
	// value, never a stale overwrite.
	q := fmt.Sprintf(`INSERT INTO progress (lesson_id,user_id,progress,updated_at)
		 VALUES ($1,$2,$3,$4)
		 ON CONFLICT (lesson_id,user_id) DO UPDATE SET
		   progress=%s(progress.progress, EXCLUDED.progress),
		   updated_at=EXCLUDED.updated_at`, s.maxFn())
	if _, err := s.db.ExecContext(ctx, q, lessonID, userID, progress, now); err != nil {
		return Progress{}, fmt.Errorf("upsert progress: %w", err)
	}
	p, _, err := s.GetProgress(ctx, lessonID, userID)
	return p, err
}

func (s *SQLStore) MarkCompleted(ctx context.Context, lessonID, userID string, score int) (Progress, error) {
	now := time.Now().Unix()
	q := fmt.Sprintf(`INSERT INTO progress (lesson_id,user_id,progress,is_completed,completed_at,best_score,updated_at)
		 VALUES ($1,$2,100,TRUE,$3,$4,$3)
		 ON CONFLICT (lesson_id,user_id) DO UPDATE SET
		   progress=100,
		   is_completed=TRUE,
		   completed_at=COALESCE(progress.completed_at, EXCLUDED.completed_at),
		   best_score=%s(progress.best_score, EXCLUDED.best_score),
		   updated_at=EXCLUDED.updated_at`, s.maxFn())
	if _, err := s.db.ExecContext(ctx, q, lessonID, userID, now, score); err != nil {
		return Progress{}, fmt.Errorf("mark completed: %w", err)
	}
	p, _, err := s.GetProgress(ctx, lessonID, userID)
	return p, err
}

func (s *SQLStore) GetProgress(ctx context.Context, lessonID, userID string) (Progress, bool, error) {
	var (
		p           Progress
		completedAt sql.NullInt64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT lesson_id,user_id,progress,is_completed,completed_at,best_score FROM progress
		 WHERE lesson_id=$1 AND user_id=$2`, lessonID, userID).
		Scan(&p.LessonID, &p.UserID, &p.Progress, &p.IsCompleted, &completedAt, &p.BestScore)
	if errors.Is(err, sql.ErrNoRows) {
		return Progress{}, false, nil
	}
	if err != nil {
		return Progress{}, false, fmt.Errorf("get progress: %w", err)
	}
	if completedAt.Valid {
		p.CompletedAt = &completedAt.Int64
	}
	return p, true, nil
}

func (s *SQLStore) LessonIDForQuiz(ctx context.Context, quizID string) (string, error) {
	var lessonID sql.NullString
	err := s.db.QueryRowContext(ctx, `SELECT lesson_id FROM quizzes WHERE id=$1`, quizID).Scan(&lessonID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("lesson for quiz: %w", err)
	}
	return lessonID.String, nil
}

func (s *SQLStore) QuizIDsForLesson(ctx context.Context, lessonID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id FROM quizzes WHERE lesson_id=$1 ORDER BY created_at`, lessonID)
	if err != nil {
		return nil, fmt.Errorf("quizzes for lesson: %w", err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func (s *SQLStore) PassedQuizIDs(ctx context.Context, lessonID, userID string, passingScore int) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT a.quiz_id FROM attempts a
		 JOIN quizzes q ON q.id = a.quiz_id
		 WHERE q.lesson_id=$1 AND a.user_id=$2 AND a.score >= $3`,
		lessonID, userID, passingScore)
	if err != nil {
		return nil, fmt.Errorf("passed quizzes: %w", err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}
