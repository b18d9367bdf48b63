package http

import (
	"net/http"
	"strings"

	"github.com/hoclieu/hoclieu-lms/internal/content"
	"github.com/hoclieu/hoclieu-lms/internal/rbac"
)

// GET /attempts?quiz_id=...&user_id=...&limit=50&offset=0
// Roles without attempt:view-all are forced onto their own attempts.
func ListAttemptsHandler(svc *content.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		role := rbac.RoleFromContext(r.Context())
		sub := rbac.SubjectFromContext(r.Context())

		quizID := strings.TrimSpace(r.URL.Query().Get("quiz_id"))
		userID := strings.TrimSpace(r.URL.Query().Get("user_id"))
		limit := parseIntDefault(r.URL.Query().Get("limit"), 50)
		offset := parseIntDefault(r.URL.Query().Get("offset"), 0)

		if role == "" {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		if role != "admin" && role != "teacher" {
			userID = sub
		}

		list, err := svc.ListAttempts(r.Context(), content.AttemptListOpts{
			QuizID: quizID,
			UserID: userID,
			Limit:  limit,
			Offset: offset,
		})
		if err != nil {
			http.Error(w, err.Error(), 500)
			return
		}
		writeJSON(w, list)
	}
}
