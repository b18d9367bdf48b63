package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/hoclieu/hoclieu-lms/internal/content"
	"github.com/hoclieu/hoclieu-lms/internal/rbac"
)

func CreateLessonHandler(svc *content.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Title   string `json:"title"`
			Summary string `json:"summary"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		if req.Title == "" {
			http.Error(w, "title required", http.StatusBadRequest)
			return
		}
		l, err := svc.CreateLesson(r.Context(), req.Title, req.Summary)
		if err != nil {
			http.Error(w, err.Error(), 500)
			return
		}
		writeJSON(w, l)
	}
}

// GET /lessons/{lessonID}/progress?user_id=...
// Students always get their own snapshot; progress:view-all roles may
// pass user_id.
func LessonProgressHandler(svc *content.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		lessonID := chi.URLParam(r, "lessonID")
		role := rbac.RoleFromContext(r.Context())
		userID := rbac.SubjectFromContext(r.Context())
		if role == "teacher" || role == "admin" {
			if u := r.URL.Query().Get("user_id"); u != "" {
				userID = u
			}
		}
		if userID == "" {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		p, err := svc.LessonProgress(r.Context(), lessonID, userID)
		if err != nil {
			if errors.Is(err, content.ErrNotFound) {
				http.Error(w, "lesson not found", http.StatusNotFound)
				return
			}
			http.Error(w, err.Error(), 500)
			return
		}
		writeJSON(w, p)
	}
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
