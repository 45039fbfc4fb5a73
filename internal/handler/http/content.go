package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/utafrali/ForumGo/internal/domain"
	"github.com/utafrali/ForumGo/pkg/httputil"
)

// VoteCountsResponse reports whether the caller was recognised on an
// optionally authenticated route.
type VoteCountsResponse struct {
	TargetType    string `json:"target_type"`
	TargetID      string `json:"target_id"`
	Authenticated bool   `json:"authenticated"`
	ViewerID      string `json:"viewer_id,omitempty"`
}

// Admitted answers 204 once the gates mounted in front of it have let the
// request through. Content mutation itself is served elsewhere.
func Admitted(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

// VoteCounts handles GET /api/v1/votes/counts/{targetType}/{targetId}
func VoteCounts(w http.ResponseWriter, r *http.Request) {
	targetType := chi.URLParam(r, "targetType")
	if targetType != domain.ResourcePost && targetType != domain.ResourceComment {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{
				Code:    "INVALID_PARAMETER",
				Message: "target type must be post or comment",
			},
		})
		return
	}

	resp := VoteCountsResponse{
		TargetType: targetType,
		TargetID:   chi.URLParam(r, "targetId"),
	}
	if identity := IdentityFromContext(r.Context()); identity != nil {
		resp.Authenticated = true
		resp.ViewerID = identity.ID
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: resp})
}
