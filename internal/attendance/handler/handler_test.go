package handler

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"proofpass/internal/attendance/claim"
	"proofpass/internal/attendance/handler/mocks"
	"proofpass/internal/attendance/lifecycle"
	"proofpass/internal/attendance/models"
	"proofpass/internal/geofence"
	"proofpass/pkg/domain"
	dErrors "proofpass/pkg/domain-errors"
	authmw "proofpass/pkg/platform/middleware/auth"
	"proofpass/pkg/testutil"
)

type stubValidator map[string]*authmw.JWTClaims

func (v stubValidator) ValidateToken(token string) (*authmw.JWTClaims, error) {
	if c, ok := v[token]; ok {
		return c, nil
	}
	return nil, errors.New("invalid token")
}

type AttendanceHandlerSuite struct {
	suite.Suite
	events    *mocks.MockEventService
	claims    *mocks.MockClaimService
	verifier  *mocks.MockVerificationService
	router    chi.Router
	orgID     domain.OrganizerID
	studentID domain.StudentID
	eventID   domain.EventID
}

func TestAttendanceHandlerSuite(t *testing.T) {
	suite.Run(t, new(AttendanceHandlerSuite))
}

func (s *AttendanceHandlerSuite) SetupTest() {
	ctrl := gomock.NewController(s.T())
	s.events = mocks.NewMockEventService(ctrl)
	s.claims = mocks.NewMockClaimService(ctrl)
	s.verifier = mocks.NewMockVerificationService(ctrl)
	s.orgID = domain.NewOrganizerID()
	s.studentID = domain.NewStudentID()
	s.eventID = domain.NewEventID()

	validator := stubValidator{
		"organizer-token": {UserID: s.orgID.String(), Role: "organizer"},
		"student-token":   {UserID: s.studentID.String(), Role: "student"},
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.router = chi.NewRouter()
	New(s.events, s.claims, s.verifier, validator, logger).Register(s.router)
}

func (s *AttendanceHandlerSuite) do(method, path, token string, body any) *httptest.ResponseRecorder {
	req := testutil.NewJSONRequest(s.T(), method, path, body)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return testutil.DoRequest(s.router, req)
}

func (s *AttendanceHandlerSuite) decode(w *httptest.ResponseRecorder) map[string]any {
	return *testutil.UnmarshalResponse[map[string]any](s.T(), w)
}

func (s *AttendanceHandlerSuite) eventPath(suffix string) string {
	return "/api/events/" + s.eventID.String() + suffix
}

func (s *AttendanceHandlerSuite) TestRoleGates() {
	s.Run("organizer routes reject students", func() {
		w := s.do(http.MethodPost, "/api/events", "student-token", map[string]any{"name": "x"})
		s.Equal(http.StatusForbidden, w.Code)
	})
	s.Run("student routes reject organizers", func() {
		w := s.do(http.MethodPost, s.eventPath("/claim"), "organizer-token", nil)
		s.Equal(http.StatusForbidden, w.Code)
	})
	s.Run("anonymous callers are unauthorized", func() {
		w := s.do(http.MethodGet, "/api/student/badges", "", nil)
		s.Equal(http.StatusUnauthorized, w.Code)
	})
}

func (s *AttendanceHandlerSuite) TestCreateEvent() {
	lat, long := 11.0234, 76.9876
	s.events.EXPECT().CreateEvent(gomock.Any(), s.orgID, gomock.Any()).
		DoAndReturn(func(_ any, _ domain.OrganizerID, req lifecycle.CreateEventRequest) (*models.Event, error) {
			s.Equal("DevFest", req.Name)
			s.Equal([]byte("png-bytes"), req.BadgeImage)
			return &models.Event{ID: s.eventID, Name: req.Name, OrganizerID: s.orgID, CollectionID: "0.0.1000000"}, nil
		})

	w := s.do(http.MethodPost, "/api/events", "organizer-token", map[string]any{
		"name":       "DevFest",
		"date":       "2025-03-14",
		"venueLat":   lat,
		"venueLong":  long,
		"badgeImage": []byte("png-bytes"),
	})

	s.Equal(http.StatusCreated, w.Code)
	event := s.decode(w)["event"].(map[string]any)
	s.Equal(s.eventID.String(), event["id"])
	s.Equal("0.0.1000000", event["collectionId"])
}

func (s *AttendanceHandlerSuite) TestCreateEventValidation() {
	w := s.do(http.MethodPost, "/api/events", "organizer-token", map[string]any{"name": "DevFest"})
	s.Equal(http.StatusBadRequest, w.Code)
	s.Equal("validation_error", s.decode(w)["error"])
}

func (s *AttendanceHandlerSuite) TestSetAttendance() {
	s.Run("parses the status case-insensitively", func() {
		s.events.EXPECT().SetAttendanceStatus(gomock.Any(), s.orgID, s.eventID, models.AttendanceOpen).
			Return(&models.Event{ID: s.eventID, AttendanceStatus: models.AttendanceOpen}, nil)

		w := s.do(http.MethodPatch, s.eventPath("/attendance"), "organizer-token", map[string]string{"status": "open"})
		s.Equal(http.StatusOK, w.Code)
		s.Equal("OPEN", s.decode(w)["event"].(map[string]any)["attendanceStatus"])
	})

	s.Run("rejects unknown statuses", func() {
		w := s.do(http.MethodPatch, s.eventPath("/attendance"), "organizer-token", map[string]string{"status": "PAUSED"})
		s.Equal(http.StatusBadRequest, w.Code)
	})

	s.Run("non-owner is forbidden", func() {
		s.events.EXPECT().SetAttendanceStatus(gomock.Any(), s.orgID, s.eventID, models.AttendanceClosed).
			Return(nil, dErrors.New(dErrors.CodeForbidden, "Only the event organizer can change attendance"))

		w := s.do(http.MethodPatch, s.eventPath("/attendance"), "organizer-token", map[string]string{"status": "CLOSED"})
		s.Equal(http.StatusForbidden, w.Code)
	})
}

func (s *AttendanceHandlerSuite) TestInvalidEventID() {
	w := s.do(http.MethodGet, "/api/events/not-a-uuid", "", nil)
	s.Equal(http.StatusBadRequest, w.Code)
}

func (s *AttendanceHandlerSuite) TestGetEventIsPublic() {
	s.events.EXPECT().GetEvent(gomock.Any(), s.eventID).Return(&models.Event{ID: s.eventID, Name: "DevFest"}, nil)
	w := s.do(http.MethodGet, s.eventPath(""), "", nil)
	s.Equal(http.StatusOK, w.Code)
}

func (s *AttendanceHandlerSuite) TestRegister() {
	s.Run("body is optional", func() {
		s.events.EXPECT().Register(gomock.Any(), s.studentID, s.eventID, "").
			Return(&models.Registration{EventID: s.eventID, StudentID: s.studentID}, nil)

		w := s.do(http.MethodPost, s.eventPath("/register"), "student-token", nil)
		s.Equal(http.StatusCreated, w.Code)
	})

	s.Run("duplicate registration", func() {
		s.events.EXPECT().Register(gomock.Any(), s.studentID, s.eventID, "0.0.42").
			Return(nil, dErrors.New(dErrors.CodeFailedPrecondition, "Already registered"))

		w := s.do(http.MethodPost, s.eventPath("/register"), "student-token", map[string]string{"walletAddress": "0.0.42"})
		s.Equal(http.StatusBadRequest, w.Code)
		s.Equal("Already registered", s.decode(w)["error_description"])
	})
}

func (s *AttendanceHandlerSuite) TestClaim() {
	s.Run("forwards the observed location", func() {
		s.claims.EXPECT().Claim(gomock.Any(), claim.Request{
			EventID:   s.eventID,
			StudentID: s.studentID,
			Location:  &geofence.Point{Lat: 11.0238, Long: 76.9876},
		}).Return(&models.ClaimResult{CollectionID: "0.0.1000000", Serial: "1", MetadataCID: "b3meta"}, nil)

		w := s.do(http.MethodPost, s.eventPath("/claim"), "student-token", map[string]any{
			"location": map[string]float64{"lat": 11.0238, "long": 76.9876},
		})
		s.Equal(http.StatusOK, w.Code)
		body := s.decode(w)
		s.Equal("1", body["serial"])
		s.Equal("0.0.1000000", body["collectionId"])
	})

	s.Run("claims without location", func() {
		s.claims.EXPECT().Claim(gomock.Any(), claim.Request{EventID: s.eventID, StudentID: s.studentID}).
			Return(&models.ClaimResult{CollectionID: "0.0.1000000", Serial: "2"}, nil)

		w := s.do(http.MethodPost, s.eventPath("/claim"), "student-token", nil)
		s.Equal(http.StatusOK, w.Code)
	})

	s.Run("rejects out of range coordinates", func() {
		w := s.do(http.MethodPost, s.eventPath("/claim"), "student-token", map[string]any{
			"location": map[string]float64{"lat": 123, "long": 76.9876},
		})
		s.Equal(http.StatusBadRequest, w.Code)
	})

	s.Run("geofence rejection carries the distance", func() {
		s.claims.EXPECT().Claim(gomock.Any(), gomock.Any()).Return(nil,
			dErrors.New(dErrors.CodeFailedPrecondition, "Outside venue radius. Distance: 150m (allowed 100m)").
				WithDetail("distance_meters", 150).
				WithDetail("radius_meters", 100))

		w := s.do(http.MethodPost, s.eventPath("/claim"), "student-token", map[string]any{
			"location": map[string]float64{"lat": 11.0247, "long": 76.9876},
		})
		s.Equal(http.StatusBadRequest, w.Code)
		body := s.decode(w)
		s.Contains(body["error_description"], "150m")
		s.Equal(float64(150), body["details"].(map[string]any)["distance_meters"])
	})

	s.Run("issuer failure is opaque", func() {
		s.claims.EXPECT().Claim(gomock.Any(), gomock.Any()).Return(nil,
			dErrors.Wrap(errors.New("recipient 0.0.5005 not associated"), dErrors.CodeInternal, "failed to transfer badge to wallet"))

		w := s.do(http.MethodPost, s.eventPath("/claim"), "student-token", nil)
		s.Equal(http.StatusInternalServerError, w.Code)
		s.NotContains(w.Body.String(), "0.0.5005")
	})
}

func (s *AttendanceHandlerSuite) TestVerify() {
	s.Run("public and accepts tokenId alias", func() {
		s.verifier.EXPECT().Verify(gomock.Any(), domain.CollectionID("0.0.1000000"), domain.Serial("1")).
			Return(&models.VerificationResult{Verified: true, CollectionID: "0.0.1000000", Serial: "1", OwnerWallet: "0.0.5005"}, nil)

		w := s.do(http.MethodGet, "/api/verify?tokenId=0.0.1000000&serial=1", "", nil)
		s.Equal(http.StatusOK, w.Code)
		body := s.decode(w)
		s.Equal(true, body["verified"])
		s.Equal("0.0.5005", body["ownerWallet"])
	})

	s.Run("unknown collection", func() {
		s.verifier.EXPECT().Verify(gomock.Any(), domain.CollectionID("0.0.999999"), domain.Serial("1")).
			Return(nil, dErrors.New(dErrors.CodeNotFound, "Token not found"))

		w := s.do(http.MethodGet, "/api/verify?collectionId=0.0.999999&serial=1", "", nil)
		s.Equal(http.StatusNotFound, w.Code)
	})

	s.Run("missing serial", func() {
		w := s.do(http.MethodGet, "/api/verify?collectionId=0.0.1", "", nil)
		s.Equal(http.StatusBadRequest, w.Code)
	})
}

func (s *AttendanceHandlerSuite) TestStudentViews() {
	event := &models.Event{ID: s.eventID, Name: "DevFest"}
	s.events.EXPECT().Badges(gomock.Any(), s.studentID).
		Return([]models.Badge{{Event: event, Registration: &models.Registration{Claimed: true}}}, nil)
	s.events.EXPECT().AvailableEvents(gomock.Any(), s.studentID).
		Return([]models.EventWithRegistration{{Event: event}}, nil)

	w := s.do(http.MethodGet, "/api/student/badges", "student-token", nil)
	s.Equal(http.StatusOK, w.Code)
	s.Len(s.decode(w)["badges"], 1)

	w = s.do(http.MethodGet, "/api/student/events/available", "student-token", nil)
	s.Equal(http.StatusOK, w.Code)
	s.Len(s.decode(w)["events"], 1)
}

func (s *AttendanceHandlerSuite) TestOrganizerStats() {
	s.events.EXPECT().OrganizerStats(gomock.Any(), s.orgID).
		Return(&models.OrganizerStats{TotalEvents: 2, TotalRegistrations: 5, TotalClaimed: 3, ActiveEvents: 1}, nil)

	w := s.do(http.MethodGet, "/api/organizer/stats", "organizer-token", nil)
	s.Equal(http.StatusOK, w.Code)
	s.Equal(float64(3), s.decode(w)["totalClaimed"])
}
