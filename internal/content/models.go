package content

import "encoding/json"

type Lesson struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Summary   string `json:"summary,omitempty"`
	CreatedAt int64  `json:"created_at,omitempty"`
}

// Question is the canonical form produced by the normalizer at
// authoring time. Downstream code (grading, delivery) only ever sees
// this shape.
type Question struct {
	ID   string `json:"id"`
	Text string `json:"text"`
	Type string `json:"type"` // single_choice|multi_select|fill_blank

	Options         []string `json:"options,omitempty"`
	CorrectIndex    int      `json:"correct_index,omitempty"`
	CorrectIndexes  []int    `json:"correct_indexes,omitempty"`  // multi_select, sorted ascending, unique
	AcceptedAnswers []string `json:"accepted_answers,omitempty"` // fill_blank
	Explanation     string   `json:"explanation,omitempty"`
	Points          int      `json:"points"`
}

type Quiz struct {
	ID        string     `json:"id"`
	LessonID  string     `json:"lesson_id,omitempty"` // empty: standalone quiz
	Title     string     `json:"title"`
	Questions []Question `json:"questions"`
	CreatedAt int64      `json:"created_at,omitempty"`
}

// Attempt is one immutable scoring event. Answers keeps the submission
// verbatim as an audit trail.
type Attempt struct {
	ID          string          `json:"id"`
	QuizID      string          `json:"quiz_id"`
	UserID      string          `json:"user_id"`
	Score       int             `json:"score"` // 0-100
	DurationSec int             `json:"duration_sec,omitempty"`
	Answers     json.RawMessage `json:"answers,omitempty"`
	CreatedAt   int64           `json:"created_at"`
}

// Progress is the derived per-(lesson,user) completion snapshot.
// progress never decreases; is_completed flips false->true exactly once.
type Progress struct {
	LessonID    string `json:"lesson_id"`
	UserID      string `json:"user_id"`
	Progress    int    `json:"progress"` // 0-100
	IsCompleted bool   `json:"is_completed"`
	CompletedAt *int64 `json:"completed_at,omitempty"`
	BestScore   int    `json:"best_score"`
}

// StudentView strips everything that would reveal the key before
// submission. This is the only question shape that may cross the HTTP
// boundary pre-grading.
func (q Question) StudentView() Question {
	q.CorrectIndex = 0
	q.CorrectIndexes = nil
	q.AcceptedAnswers = nil
	q.Explanation = ""
	return q
}
