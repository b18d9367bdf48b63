package grading

import (
	"math"
	"sort"
)

// Question types the engine knows. Anything else is graded with the
// single-choice strategy.
const (
	TypeSingleChoice = "single_choice"
	TypeMultiSelect  = "multi_select"
	TypeFillBlank    = "fill_blank"
)

// Q is a minimal view of a canonical question needed for grading.
// Keep this in sync with whatever fields your store uses.
type Q struct {
	ID              string
	Type            string
	Points          int
	CorrectIndex    int
	CorrectIndexes  []int    // multi_select; may be empty for legacy rows
	AcceptedAnswers []string // fill_blank
}

// Result is the outcome of grading a single question response. It
// echoes back only what the client already submitted, never the key.
type Result struct {
	QuestionID      string `json:"question_id"`
	QuestionType    string `json:"question_type"`
	IsCorrect       bool   `json:"is_correct"`
	SelectedIndexes []int  `json:"selected_indexes,omitempty"`
	SubmittedText   string `json:"submitted_text,omitempty"`
}

// Summary aggregates a full submission. Safe to return to the
// submitting client.
type Summary struct {
	TotalPoints  int      `json:"total_points"`
	EarnedPoints int      `json:"earned_points"`
	ScorePercent int      `json:"score_percent"`
	Results      []Result `json:"results"`
}

// Strategy grades a single question. Strategies are total: a response
// of the wrong shape grades as an empty submission, never an error.
type Strategy interface {
	Grade(q Q, response interface{}) Result
}

// Engine routes by question type to the correct Strategy.
type Engine struct {
	strategies map[string]Strategy
	fallback   Strategy
}

// NewEngine installs built-in strategies.
func NewEngine() *Engine {
	single := singleChoiceStrategy{}
	return &Engine{
		strategies: map[string]Strategy{
			TypeSingleChoice: single,
			TypeMultiSelect:  multiSelectStrategy{},
			TypeFillBlank:    fillBlankStrategy{},
		},
		fallback: single,
	}
}

func (e *Engine) GradeQuestion(q Q, response interface{}) Result {
	s, ok := e.strategies[q.Type]
	if !ok {
		s = e.fallback
	}
	return s.Grade(q, response)
}

// GradeQuiz scores a full submission against canonical question
// metadata. Questions absent from the submission grade as incorrect.
// Pure function: no side effects, no errors.
func (e *Engine) GradeQuiz(questions []Q, responses map[string]interface{}) Summary {
	sum := Summary{Results: make([]Result, 0, len(questions))}
	for _, q := range questions {
		pts := q.Points
		if pts <= 0 {
			pts = 1
		}
		sum.TotalPoints += pts
		res := e.GradeQuestion(q, responses[q.ID])
		if res.IsCorrect {
			sum.EarnedPoints += pts
		}
		sum.Results = append(sum.Results, res)
	}
	if sum.TotalPoints > 0 {
		sum.ScorePercent = int(math.Round(float64(sum.EarnedPoints) / float64(sum.TotalPoints) * 100))
	}
	return sum
}

// --- Strategies ---

type singleChoiceStrategy struct{}

func (singleChoiceStrategy) Grade(q Q, response interface{}) Result {
	res := Result{QuestionID: q.ID, QuestionType: q.Type}
	sel := toIndexSlice(response)
	if len(sel) > 1 {
		// extra selections are truncated, not rejected
		sel = sel[:1]
	}
	res.SelectedIndexes = sel
	res.IsCorrect = len(sel) == 1 && sel[0] == q.CorrectIndex
	return res
}

type multiSelectStrategy struct{}

func (multiSelectStrategy) Grade(q Q, response interface{}) Result {
	res := Result{QuestionID: q.ID, QuestionType: q.Type}
	sel := sortedUnique(toIndexSlice(response))
	res.SelectedIndexes = sel

	key := sortedUnique(q.CorrectIndexes)
	if len(key) == 0 {
		// legacy rows carry only correct_index
		key = []int{q.CorrectIndex}
	}
	res.IsCorrect = equalInts(sel, key)
	return res
}

type fillBlankStrategy struct{}

func (fillBlankStrategy) Grade(q Q, response interface{}) Result {
	res := Result{QuestionID: q.ID, QuestionType: q.Type}
	text := toText(response)
	res.SubmittedText = text

	folded := Fold(text)
	if folded == "" {
		return res
	}
	for _, accepted := range q.AcceptedAnswers {
		if Fold(accepted) == folded {
			res.IsCorrect = true
			break
		}
	}
	return res
}

// --- response coercion helpers ---

// toIndexSlice pulls option indexes out of whatever shape the client
// sent: a bare number, an array of numbers, or an object with a
// selected_indexes field. Anything else is an empty selection.
func toIndexSlice(v interface{}) []int {
	switch t := v.(type) {
	case nil:
		return nil
	case int:
		return []int{t}
	case float64:
		return []int{int(t)}
	case []int:
		return append([]int(nil), t...)
	case []interface{}:
		out := make([]int, 0, len(t))
		for _, e := range t {
			switch n := e.(type) {
			case int:
				out = append(out, n)
			case float64:
				out = append(out, int(n))
			}
		}
		return out
	case map[string]interface{}:
		if inner, ok := t["selected_indexes"]; ok {
			return toIndexSlice(inner)
		}
		return nil
	default:
		return nil
	}
}

// toText pulls a free-text answer out of a bare string or an object
// with a text field.
func toText(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case map[string]interface{}:
		if s, ok := t["text"].(string); ok {
			return s
		}
		return ""
	default:
		return ""
	}
}

func sortedUnique(in []int) []int {
	if len(in) == 0 {
		return nil
	}
	out := append([]int(nil), in...)
	sort.Ints(out)
	n := 0
	for i, v := range out {
		if i == 0 || v != out[n-1] {
			out[n] = v
			n++
		}
	}
	return out[:n]
}

func equalInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
