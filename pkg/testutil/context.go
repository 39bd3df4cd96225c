package testutil

import (
	"net/http"

	"github.com/google/uuid"

	"proofpass/pkg/domain"
	"proofpass/pkg/requestcontext"
)

// WithPrincipal attaches an authenticated principal to the request context,
// as the auth middleware would after validating a token.
func WithPrincipal(req *http.Request, id uuid.UUID, role domain.Role) *http.Request {
	ctx := requestcontext.WithPrincipal(req.Context(), requestcontext.AuthPrincipal{ID: id, Role: role})
	return req.WithContext(ctx)
}
