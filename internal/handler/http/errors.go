package http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/utafrali/ForumGo/internal/domain"
	apperrors "github.com/utafrali/ForumGo/pkg/errors"
	"github.com/utafrali/ForumGo/pkg/httputil"
)

// authAppError maps a failure kind onto the client-visible error. Revocation
// and expiry share CREDENTIAL_EXPIRED.
func authAppError(authErr *domain.AuthError) *apperrors.AppError {
	switch authErr.Kind {
	case domain.NoCredential:
		return apperrors.UnauthorizedWithCode("NO_CREDENTIAL", "authentication required")
	case domain.InvalidCredential:
		return apperrors.UnauthorizedWithCode("INVALID_CREDENTIAL", "invalid credential")
	case domain.CredentialExpired:
		return apperrors.UnauthorizedWithCode("CREDENTIAL_EXPIRED", "credential expired")
	case domain.EmailNotVerified:
		return apperrors.ForbiddenWithCode("EMAIL_NOT_VERIFIED", "email address is not verified")
	case domain.ResourceNotFound:
		return &apperrors.AppError{
			Code:    "NOT_FOUND",
			Message: "resource not found",
			Status:  http.StatusNotFound,
			Err:     apperrors.ErrNotFound,
		}
	case domain.PermissionDenied:
		return apperrors.Forbidden("permission denied")
	case domain.StoreUnavailable:
		return apperrors.ServiceUnavailable("session store unavailable", authErr.Err)
	default:
		return apperrors.Internal(authErr)
	}
}

// writeError renders err through the shared envelope, translating auth
// failures first.
func writeError(w http.ResponseWriter, r *http.Request, err error, logger *slog.Logger) {
	var authErr *domain.AuthError
	if errors.As(err, &authErr) {
		appErr := authAppError(authErr)
		if appErr.Status == http.StatusUnauthorized {
			w.Header().Set("WWW-Authenticate", `Bearer realm="forum"`)
		}
		err = appErr
	}
	httputil.WriteError(w, r, err, logger)
}
