package webhooks

import (
	"context"
	"io"
	"net/http"

	"github.com/kmdeleon/tahanan-backend/api/responses"
	"github.com/kmdeleon/tahanan-backend/internal/reconcile"
	pkgerrors "github.com/kmdeleon/tahanan-backend/pkg/errors"
	"github.com/kmdeleon/tahanan-backend/pkg/logger"
	"github.com/kmdeleon/tahanan-backend/pkg/paymongo"
)

type reconcileService interface {
	ProcessPayMongoEvent(ctx context.Context, payload []byte) (*reconcile.Outcome, error)
}

type signingSecretSource interface {
	SigningSecret() string
}

// PayMongoWebhook receives payment events and hands them to the reconciler.
// Signature verification is skipped when no webhook secret is configured,
// which only happens in local development.
func PayMongoWebhook(svc reconcileService, client signingSecretSource, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "reconcile service unavailable"))
			return
		}

		payload, err := io.ReadAll(r.Body)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read request body"))
			return
		}

		if client != nil && client.SigningSecret() != "" {
			sigHeader := r.Header.Get(paymongo.SignatureHeader)
			if err := paymongo.VerifySignature(payload, sigHeader, client.SigningSecret()); err != nil {
				responses.WriteError(ctx, logg, w, err)
				return
			}
		}

		outcome, err := svc.ProcessPayMongoEvent(ctx, payload)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, outcome)
	}
}
