package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hoclieu/hoclieu-lms/internal/content"
	"github.com/hoclieu/hoclieu-lms/internal/rbac"
)

func CreateQuizHandler(svc *content.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			LessonID  string                `json:"lesson_id"`
			Title     string                `json:"title"`
			Questions []content.RawQuestion `json:"questions"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		if req.Title == "" {
			http.Error(w, "title required", http.StatusBadRequest)
			return
		}
		q, err := svc.CreateQuiz(r.Context(), req.LessonID, req.Title, req.Questions)
		if err != nil {
			if errors.Is(err, content.ErrInvalidQuestionSet) {
				http.Error(w, "no valid questions", http.StatusBadRequest)
				return
			}
			http.Error(w, err.Error(), 500)
			return
		}
		writeJSON(w, q)
	}
}

// GetQuizHandler serves the student-safe quiz: no answer keys before
// submission.
func GetQuizHandler(svc *content.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "quizID")
		q, err := svc.QuizForStudent(r.Context(), id)
		if err != nil {
			if errors.Is(err, content.ErrNotFound) {
				http.Error(w, "quiz not found", http.StatusNotFound)
				return
			}
			http.Error(w, err.Error(), 500)
			return
		}
		writeJSON(w, q)
	}
}

// POST /quizzes/{quizID}/submit
// Body: {"answers": {questionID: <number|[numbers]|string|object>}, "duration_sec": n}
func SubmitQuizHandler(svc *content.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		quizID := chi.URLParam(r, "quizID")
		userID := rbac.SubjectFromContext(r.Context())
		if userID == "" {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		var req struct {
			Answers     map[string]interface{} `json:"answers"`
			DurationSec int                    `json:"duration_sec"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		res, err := svc.SubmitQuiz(r.Context(), quizID, userID, req.Answers, req.DurationSec)
		if err != nil {
			if errors.Is(err, content.ErrNotFound) {
				http.Error(w, "quiz not found", http.StatusNotFound)
				return
			}
			// attempt write failed: the submission failed, client retries
			http.Error(w, err.Error(), 500)
			return
		}
		writeJSON(w, res)
	}
}
