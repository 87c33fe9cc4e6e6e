package middleware

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/kmdeleon/tahanan-backend/api/responses"
	pkgerrors "github.com/kmdeleon/tahanan-backend/pkg/errors"
	"github.com/kmdeleon/tahanan-backend/pkg/logger"
)

const (
	userIDHeader = "X-User-Id"
	roleHeader   = "X-User-Role"
)

// Identity trusts the identity headers injected by the edge gateway, which
// terminates authentication before requests reach this service. Requests
// without a valid user id are rejected.
func Identity(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rawUserID := strings.TrimSpace(r.Header.Get(userIDHeader))
			if rawUserID == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "user identity required"))
				return
			}
			if _, err := uuid.Parse(rawUserID); err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeForbidden, err, "invalid user identity"))
				return
			}

			ctx := WithUserID(r.Context(), rawUserID)
			if role := strings.TrimSpace(r.Header.Get(roleHeader)); role != "" {
				ctx = WithRole(ctx, role)
			}
			if logg != nil {
				ctx = logg.WithFields(ctx, map[string]any{"user_id": rawUserID})
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
