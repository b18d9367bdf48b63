package content

import (
	"errors"
	"sort"
	"strings"

	"github.com/hoclieu/hoclieu-lms/internal/grading"
)

// ErrInvalidQuestionSet means authoring produced zero usable questions
// after normalization. Callers treat this as a validation failure.
var ErrInvalidQuestionSet = errors.New("content: no valid questions after normalization")

// RawAnswer is the {text,is_correct} legacy authoring pair.
type RawAnswer struct {
	Text      string `json:"text"`
	IsCorrect bool   `json:"is_correct"`
}

// RawQuestion covers the authoring shapes seen in the wild: either an
// answers[] list of flagged pairs, or options[] plus correct_index
// (correct_indexes for multi-select). fill_blank questions carry
// accepted_answers instead.
type RawQuestion struct {
	Text            string      `json:"text"`
	Type            string      `json:"type"`
	Answers         []RawAnswer `json:"answers,omitempty"`
	Options         []string    `json:"options,omitempty"`
	CorrectIndex    *int        `json:"correct_index,omitempty"`
	CorrectIndexes  []int       `json:"correct_indexes,omitempty"`
	AcceptedAnswers []string    `json:"accepted_answers,omitempty"`
	Explanation     string      `json:"explanation,omitempty"`
	Points          int         `json:"points,omitempty"`
}

// NormalizeQuestions resolves raw authoring input into canonical
// questions. Unusable questions are silently skipped (lenient
// authoring); an entirely unusable set is ErrInvalidQuestionSet.
func NormalizeQuestions(raw []RawQuestion) ([]Question, error) {
	out := make([]Question, 0, len(raw))
	for _, rq := range raw {
		if q, ok := normalizeQuestion(rq); ok {
			out = append(out, q)
		}
	}
	if len(out) == 0 {
		return nil, ErrInvalidQuestionSet
	}
	return out, nil
}

func normalizeQuestion(rq RawQuestion) (Question, bool) {
	text := strings.TrimSpace(rq.Text)
	if text == "" {
		return Question{}, false
	}
	points := rq.Points
	if points <= 0 {
		points = 1
	}
	q := Question{
		Text:        text,
		Points:      points,
		Explanation: strings.TrimSpace(rq.Explanation),
	}

	if rq.Type == grading.TypeFillBlank {
		accepted := make([]string, 0, len(rq.AcceptedAnswers))
		for _, a := range rq.AcceptedAnswers {
			if s := strings.TrimSpace(a); s != "" {
				accepted = append(accepted, s)
			}
		}
		if len(accepted) == 0 {
			return Question{}, false
		}
		q.Type = grading.TypeFillBlank
		q.AcceptedAnswers = accepted
		return q, true
	}

	// Choice types: fold both legacy shapes into flagged pairs first,
	// then filter, so index bookkeeping survives dropped options.
	pairs := rq.Answers
	if len(pairs) == 0 {
		pairs = make([]RawAnswer, len(rq.Options))
		for i, opt := range rq.Options {
			pairs[i] = RawAnswer{Text: opt, IsCorrect: flaggedByIndex(rq, i)}
		}
	}

	options := make([]string, 0, len(pairs))
	correct := make([]int, 0, 1)
	for _, p := range pairs {
		t := strings.TrimSpace(p.Text)
		if t == "" {
			continue
		}
		if p.IsCorrect {
			correct = append(correct, len(options))
		}
		options = append(options, t)
	}
	if len(options) < 2 {
		return Question{}, false
	}
	if len(correct) == 0 {
		// never allow a question with no correct answer
		correct = []int{0}
	}

	q.Options = options
	q.CorrectIndex = correct[0]
	if rq.Type == grading.TypeMultiSelect {
		sort.Ints(correct)
		q.Type = grading.TypeMultiSelect
		q.CorrectIndexes = correct
		q.CorrectIndex = correct[0]
	} else {
		// unrecognized types canonicalize to single choice
		q.Type = grading.TypeSingleChoice
	}
	return q, true
}

func flaggedByIndex(rq RawQuestion, i int) bool {
	if rq.CorrectIndex != nil && *rq.CorrectIndex == i {
		return true
	}
	for _, ci := range rq.CorrectIndexes {
		if ci == i {
			return true
		}
	}
	return false
}
