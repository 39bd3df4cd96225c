// Package handler exposes the attendance context over HTTP: organizer event
// management, student registration and claims, and public badge verification.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"proofpass/internal/attendance/claim"
	"proofpass/internal/attendance/lifecycle"
	"proofpass/internal/attendance/models"
	"proofpass/internal/geofence"
	"proofpass/pkg/domain"
	dErrors "proofpass/pkg/domain-errors"
	"proofpass/pkg/platform/httputil"
	authmw "proofpass/pkg/platform/middleware/auth"
	"proofpass/pkg/platform/validation"
	"proofpass/pkg/requestcontext"
)

// EventService covers event management and the student registration views.
type EventService interface {
	CreateEvent(ctx context.Context, organizerID domain.OrganizerID, req lifecycle.CreateEventRequest) (*models.Event, error)
	GetEvent(ctx context.Context, id domain.EventID) (*models.Event, error)
	ListOrganizerEvents(ctx context.Context, organizerID domain.OrganizerID) ([]*models.Event, error)
	OrganizerStats(ctx context.Context, organizerID domain.OrganizerID) (*models.OrganizerStats, error)
	SetAttendanceStatus(ctx context.Context, organizerID domain.OrganizerID, eventID domain.EventID, status models.AttendanceStatus) (*models.Event, error)
	DeleteEvent(ctx context.Context, organizerID domain.OrganizerID, eventID domain.EventID) error
	ListRegistrations(ctx context.Context, organizerID domain.OrganizerID, eventID domain.EventID) ([]*models.Registration, error)
	Register(ctx context.Context, studentID domain.StudentID, eventID domain.EventID, wallet string) (*models.Registration, error)
	GetRegistration(ctx context.Context, studentID domain.StudentID, eventID domain.EventID) (*models.Registration, error)
	AvailableEvents(ctx context.Context, studentID domain.StudentID) ([]models.EventWithRegistration, error)
	RegisteredEvents(ctx context.Context, studentID domain.StudentID) ([]models.EventWithRegistration, error)
	Badges(ctx context.Context, studentID domain.StudentID) ([]models.Badge, error)
}

type ClaimService interface {
	Claim(ctx context.Context, req claim.Request) (*models.ClaimResult, error)
}

type VerificationService interface {
	Verify(ctx context.Context, collectionID domain.CollectionID, serial domain.Serial) (*models.VerificationResult, error)
}

// Handler handles attendance endpoints.
type Handler struct {
	events    EventService
	claims    ClaimService
	verifier  VerificationService
	validator authmw.JWTValidator
	logger    *slog.Logger
}

// New creates a new attendance Handler.
func New(
	events EventService,
	claims ClaimService,
	verifier VerificationService,
	validator authmw.JWTValidator,
	logger *slog.Logger) *Handler {
	return &Handler{
		events:    events,
		claims:    claims,
		verifier:  verifier,
		validator: validator,
		logger:    logger,
	}
}

// Register registers the attendance routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	authed := r.With(authmw.RequireAuth(h.validator, h.logger))
	organizer := authed.With(authmw.RequireRole(h.logger, domain.RoleOrganizer))
	student := authed.With(authmw.RequireRole(h.logger, domain.RoleStudent))

	r.Get("/api/events/{id}", h.handleGetEvent)
	r.Get("/api/verify", h.handleVerify)

	organizer.Get("/api/organizer/events", h.handleOrganizerEvents)
	organizer.Get("/api/organizer/stats", h.handleOrganizerStats)
	organizer.Post("/api/events", h.handleCreateEvent)
	organizer.Delete("/api/events/{id}", h.handleDeleteEvent)
	organizer.Patch("/api/events/{id}/attendance", h.handleSetAttendance)
	organizer.Get("/api/events/{id}/registrations", h.handleListRegistrations)

	student.Post("/api/events/{id}/register", h.handleRegister)
	student.Get("/api/events/{id}/registration", h.handleGetRegistration)
	student.Post("/api/events/{id}/claim", h.handleClaim)
	student.Get("/api/student/events/available", h.handleAvailableEvents)
	student.Get("/api/student/events/registered", h.handleRegisteredEvents)
	student.Get("/api/student/badges", h.handleBadges)
}

// -----------------------------------------------------------------------------
// Public
// -----------------------------------------------------------------------------

func (h *Handler) handleGetEvent(w http.ResponseWriter, r *http.Request) {
	eventID, ok := h.eventID(w, r)
	if !ok {
		return
	}
	event, err := h.events.GetEvent(r.Context(), eventID)
	if err != nil {
		h.writeError(w, r, err, "load event")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"event": event})
}

// handleVerify accepts tokenId as an alias of collectionId.
func (h *Handler) handleVerify(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	rawCollection := q.Get("collectionId")
	if rawCollection == "" {
		rawCollection = q.Get("tokenId")
	}
	collectionID, err := domain.ParseCollectionID(rawCollection)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	serial, err := domain.ParseSerial(q.Get("serial"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	result, err := h.verifier.Verify(r.Context(), collectionID, serial)
	if err != nil {
		h.writeError(w, r, err, "verify badge")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

// -----------------------------------------------------------------------------
// Organizer
// -----------------------------------------------------------------------------

func (h *Handler) handleOrganizerEvents(w http.ResponseWriter, r *http.Request) {
	principal, ok := h.principal(w, r)
	if !ok {
		return
	}
	events, err := h.events.ListOrganizerEvents(r.Context(), principal.OrganizerID())
	if err != nil {
		h.writeError(w, r, err, "list organizer events")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"events": events})
}

func (h *Handler) handleOrganizerStats(w http.ResponseWriter, r *http.Request) {
	principal, ok := h.principal(w, r)
	if !ok {
		return
	}
	stats, err := h.events.OrganizerStats(r.Context(), principal.OrganizerID())
	if err != nil {
		h.writeError(w, r, err, "load organizer stats")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, stats)
}

func (h *Handler) handleCreateEvent(w http.ResponseWriter, r *http.Request) {
	principal, ok := h.principal(w, r)
	if !ok {
		return
	}
	var req lifecycle.CreateEventRequest
	if !h.decode(w, r, &req, false) {
		return
	}
	event, err := h.events.CreateEvent(r.Context(), principal.OrganizerID(), req)
	if err != nil {
		h.writeError(w, r, err, "create event")
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, map[string]any{"event": event})
}

func (h *Handler) handleDeleteEvent(w http.ResponseWriter, r *http.Request) {
	principal, ok := h.principal(w, r)
	if !ok {
		return
	}
	eventID, ok := h.eventID(w, r)
	if !ok {
		return
	}
	if err := h.events.DeleteEvent(r.Context(), principal.OrganizerID(), eventID); err != nil {
		h.writeError(w, r, err, "delete event")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"message": "Event deleted"})
}

type attendanceRequest struct {
	Status string `json:"status" validate:"required"`
}

func (h *Handler) handleSetAttendance(w http.ResponseWriter, r *http.Request) {
	principal, ok := h.principal(w, r)
	if !ok {
		return
	}
	eventID, ok := h.eventID(w, r)
	if !ok {
		return
	}
	var req attendanceRequest
	if !h.decode(w, r, &req, false) {
		return
	}
	status, err := models.ParseAttendanceStatus(req.Status)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	event, err := h.events.SetAttendanceStatus(r.Context(), principal.OrganizerID(), eventID, status)
	if err != nil {
		h.writeError(w, r, err, "update attendance")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"event": event})
}

func (h *Handler) handleListRegistrations(w http.ResponseWriter, r *http.Request) {
	principal, ok := h.principal(w, r)
	if !ok {
		return
	}
	eventID, ok := h.eventID(w, r)
	if !ok {
		return
	}
	regs, err := h.events.ListRegistrations(r.Context(), principal.OrganizerID(), eventID)
	if err != nil {
		h.writeError(w, r, err, "list registrations")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"registrations": regs})
}

// -----------------------------------------------------------------------------
// Student
// -----------------------------------------------------------------------------

type registerRequest struct {
	WalletAddress string `json:"walletAddress" validate:"max=128"`
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	principal, ok := h.principal(w, r)
	if !ok {
		return
	}
	eventID, ok := h.eventID(w, r)
	if !ok {
		return
	}
	var req registerRequest
	if !h.decode(w, r, &req, true) {
		return
	}
	reg, err := h.events.Register(r.Context(), principal.StudentID(), eventID, req.WalletAddress)
	if err != nil {
		h.writeError(w, r, err, "register for event")
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, map[string]any{"registration": reg})
}

func (h *Handler) handleGetRegistration(w http.ResponseWriter, r *http.Request) {
	principal, ok := h.principal(w, r)
	if !ok {
		return
	}
	eventID, ok := h.eventID(w, r)
	if !ok {
		return
	}
	reg, err := h.events.GetRegistration(r.Context(), principal.StudentID(), eventID)
	if err != nil {
		h.writeError(w, r, err, "load registration")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"registration": reg})
}

type claimRequest struct {
	Location *locationRequest `json:"location"`
}

type locationRequest struct {
	Lat  *float64 `json:"lat" validate:"required,gte=-90,lte=90"`
	Long *float64 `json:"long" validate:"required,gte=-180,lte=180"`
}

func (h *Handler) handleClaim(w http.ResponseWriter, r *http.Request) {
	principal, ok := h.principal(w, r)
	if !ok {
		return
	}
	eventID, ok := h.eventID(w, r)
	if !ok {
		return
	}
	var req claimRequest
	if !h.decode(w, r, &req, true) {
		return
	}

	claimReq := claim.Request{EventID: eventID, StudentID: principal.StudentID()}
	if req.Location != nil {
		claimReq.Location = &geofence.Point{Lat: *req.Location.Lat, Long: *req.Location.Long}
	}
	result, err := h.claims.Claim(r.Context(), claimReq)
	if err != nil {
		h.writeError(w, r, err, "claim badge")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"message":      "Badge claimed",
		"collectionId": result.CollectionID,
		"serial":       result.Serial,
		"metadataCID":  result.MetadataCID,
		"registration": result.Registration,
	})
}

func (h *Handler) handleAvailableEvents(w http.ResponseWriter, r *http.Request) {
	principal, ok := h.principal(w, r)
	if !ok {
		return
	}
	events, err := h.events.AvailableEvents(r.Context(), principal.StudentID())
	if err != nil {
		h.writeError(w, r, err, "list available events")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"events": events})
}

func (h *Handler) handleRegisteredEvents(w http.ResponseWriter, r *http.Request) {
	principal, ok := h.principal(w, r)
	if !ok {
		return
	}
	events, err := h.events.RegisteredEvents(r.Context(), principal.StudentID())
	if err != nil {
		h.writeError(w, r, err, "list registered events")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"events": events})
}

func (h *Handler) handleBadges(w http.ResponseWriter, r *http.Request) {
	principal, ok := h.principal(w, r)
	if !ok {
		return
	}
	badges, err := h.events.Badges(r.Context(), principal.StudentID())
	if err != nil {
		h.writeError(w, r, err, "list badges")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"badges": badges})
}

// -----------------------------------------------------------------------------
// Helpers
// -----------------------------------------------------------------------------

func (h *Handler) eventID(w http.ResponseWriter, r *http.Request) (domain.EventID, bool) {
	id, err := domain.ParseEventID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return domain.EventID{}, false
	}
	return id, true
}

func (h *Handler) principal(w http.ResponseWriter, r *http.Request) (requestcontext.AuthPrincipal, bool) {
	principal, ok := requestcontext.Principal(r.Context())
	if !ok {
		h.logger.ErrorContext(r.Context(), "principal missing from context despite auth middleware",
			"request_id", requestcontext.RequestID(r.Context()),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "authentication context error"))
		return requestcontext.AuthPrincipal{}, false
	}
	return principal, true
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any, allowEmpty bool) bool {
	if err := httputil.DecodeJSON(r, dst, allowEmpty); err != nil {
		h.logger.WarnContext(r.Context(), "invalid request body",
			"request_id", requestcontext.RequestID(r.Context()),
			"path", r.URL.Path,
		)
		httputil.WriteError(w, err)
		return false
	}
	if err := validation.Struct(dst); err != nil {
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
