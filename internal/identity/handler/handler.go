package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"proofpass/internal/identity/models"
	"proofpass/pkg/domain"
	dErrors "proofpass/pkg/domain-errors"
	"proofpass/pkg/platform/httputil"
	authmw "proofpass/pkg/platform/middleware/auth"
	"proofpass/pkg/requestcontext"
)

// Service defines the identity operations the handler exposes.
type Service interface {
	RegisterOrganizer(ctx context.Context, req models.RegisterOrganizerRequest) (*models.Session, error)
	RegisterStudent(ctx context.Context, req models.RegisterStudentRequest) (*models.Session, error)
	LoginOrganizer(ctx context.Context, req models.LoginRequest) (*models.Session, error)
	LoginStudent(ctx context.Context, req models.LoginRequest) (*models.Session, error)
	Me(ctx context.Context, principal requestcontext.AuthPrincipal) (*models.Account, error)
	LinkWallet(ctx context.Context, studentID domain.StudentID, req models.LinkWalletRequest) (*models.Account, error)
	UpdateProfile(ctx context.Context, studentID domain.StudentID, req models.ProfileRequest) (*models.Account, error)
}

// Handler serves sign-up, login and student self-service endpoints.
type Handler struct {
	service       Service
	validator     authmw.JWTValidator
	logger        *slog.Logger
	secureCookies bool
}

// New creates a new identity Handler. secureCookies marks the session cookie
// Secure and should be set outside development.
func New(service Service, validator authmw.JWTValidator, logger *slog.Logger, secureCookies bool) *Handler {
	return &Handler{
		service:       service,
		validator:     validator,
		logger:        logger,
		secureCookies: secureCookies,
	}
}

// Register registers the identity routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	authed := r.With(authmw.RequireAuth(h.validator, h.logger))
	student := authed.With(authmw.RequireRole(h.logger, domain.RoleStudent))

	r.Post("/api/auth/organizer/register", h.handleRegisterOrganizer)
	r.Post("/api/auth/student/register", h.handleRegisterStudent)
	r.Post("/api/auth/organizer/login", h.handleLoginOrganizer)
	r.Post("/api/auth/student/login", h.handleLoginStudent)
	r.Post("/api/auth/logout", h.handleLogout)
	authed.Get("/api/auth/me", h.handleMe)

	student.Patch("/api/student/wallet", h.handleLinkWallet)
	student.Patch("/api/student/profile", h.handleUpdateProfile)
}

func (h *Handler) handleRegisterOrganizer(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterOrganizerRequest
	if !h.decode(w, r, &req) {
		return
	}
	session, err := h.service.RegisterOrganizer(r.Context(), req)
	h.writeSession(w, r, http.StatusCreated, session, err, "register organizer")
}

func (h *Handler) handleRegisterStudent(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterStudentRequest
	if !h.decode(w, r, &req) {
		return
	}
	session, err := h.service.RegisterStudent(r.Context(), req)
	h.writeSession(w, r, http.StatusCreated, session, err, "register student")
}

func (h *Handler) handleLoginOrganizer(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if !h.decode(w, r, &req) {
		return
	}
	session, err := h.service.LoginOrganizer(r.Context(), req)
	h.writeSession(w, r, http.StatusOK, session, err, "organizer login")
}

func (h *Handler) handleLoginStudent(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if !h.decode(w, r, &req) {
		return
	}
	session, err := h.service.LoginStudent(r.Context(), req)
	h.writeSession(w, r, http.StatusOK, session, err, "student login")
}

func (h *Handler) handleLogout(w http.ResponseWriter, _ *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     authmw.TokenCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"message": "Logged out"})
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	principal, ok := h.principal(w, r)
	if !ok {
		return
	}
	account, err := h.service.Me(r.Context(), principal)
	if err != nil {
		h.writeError(w, r, err, "load account")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"user": account})
}

func (h *Handler) handleLinkWallet(w http.ResponseWriter, r *http.Request) {
	principal, ok := h.principal(w, r)
	if !ok {
		return
	}
	var req models.LinkWalletRequest
	if !h.decode(w, r, &req) {
		return
	}
	account, err := h.service.LinkWallet(r.Context(), principal.StudentID(), req)
	if err != nil {
		h.writeError(w, r, err, "link wallet")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"user": account})
}

func (h *Handler) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	principal, ok := h.principal(w, r)
	if !ok {
		return
	}
	var req models.ProfileRequest
	if !h.decode(w, r, &req) {
		return
	}
	account, err := h.service.UpdateProfile(r.Context(), principal.StudentID(), req)
	if err != nil {
		h.writeError(w, r, err, "update profile")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"user": account})
}

func (h *Handler) writeSession(w http.ResponseWriter, r *http.Request, status int, session *models.Session, err error, op string) {
	if err != nil {
		h.writeError(w, r, err, op)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     authmw.TokenCookie,
		Value:    session.Token,
		Path:     "/",
		Expires:  session.ExpiresAt,
		MaxAge:   int(time.Until(session.ExpiresAt).Seconds()),
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	httputil.WriteJSON(w, status, session)
}

func (h *Handler) principal(w http.ResponseWriter, r *http.Request) (requestcontext.AuthPrincipal, bool) {
	principal, ok := requestcontext.Principal(r.Context())
	if !ok {
		// RequireAuth guards every route that reaches here
		h.logger.ErrorContext(r.Context(), "principal missing from context despite auth middleware",
			"request_id", requestcontext.RequestID(r.Context()),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "authentication context error"))
		return requestcontext.AuthPrincipal{}, false
	}
	return principal, true
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := httputil.DecodeJSON(r, dst, false); err != nil {
		h.logger.WarnContext(r.Context(), "invalid request body",
			"request_id", requestcontext.RequestID(r.Context()),
			"path", r.URL.Path,
		)
		httputil.WriteError(w, err)
		return false
	}
	return true
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error, op string) {
	ctx := r.Context()
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		h.logger.ErrorContext(ctx, "failed to "+op,
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
	} else {
		h.logger.WarnContext(ctx, op+" rejected",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
	}
	httputil.WriteError(w, err)
}
