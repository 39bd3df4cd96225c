package lifecycle

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"proofpass/internal/attendance/models"
	"proofpass/internal/attendance/store"
	"proofpass/internal/issuer"
	"proofpass/internal/issuer/content"
	"proofpass/internal/issuer/ledger"
	"proofpass/internal/issuer/mocks"
	"proofpass/pkg/domain"
	dErrors "proofpass/pkg/domain-errors"
	"proofpass/pkg/platform/audit"
	"proofpass/pkg/platform/audit/publisher"
	auditmemory "proofpass/pkg/platform/audit/store/memory"
	"proofpass/pkg/requestcontext"
)

type LifecycleSuite struct {
	suite.Suite
	ctx       context.Context
	now       time.Time
	store     *store.InMemory
	content   *content.Memory
	issuer    *issuer.Service
	audits    *auditmemory.InMemoryStore
	service   *Service
	organizer *models.Organizer
	student   *models.Student
}

func TestLifecycleSuite(t *testing.T) {
	suite.Run(t, new(LifecycleSuite))
}

func f64(v float64) *float64 { return &v }

func (s *LifecycleSuite) SetupTest() {
	s.now = time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)
	s.ctx = requestcontext.WithTime(context.Background(), s.now)
	s.store = store.NewInMemory()
	s.content = content.NewMemory()
	s.audits = auditmemory.NewInMemoryStore()
	s.issuer = issuer.New(s.content, ledger.NewMock())
	s.service = s.newService(s.issuer)

	s.organizer = &models.Organizer{ID: domain.NewOrganizerID(), Name: "PSG Tech", Email: "org@psg.example", CreatedAt: s.now}
	s.Require().NoError(s.store.CreateOrganizer(s.ctx, s.organizer))
	s.student = &models.Student{ID: domain.NewStudentID(), Email: "asha@psg.example", WalletAddress: "0.0.5005", CreatedAt: s.now}
	s.Require().NoError(s.store.CreateStudent(s.ctx, s.student))
}

func (s *LifecycleSuite) newService(iss issuer.Issuer, opts ...Option) *Service {
	opts = append([]Option{WithAuditPublisher(publisher.NewPublisher(s.audits))}, opts...)
	return New(s.store, iss, opts...)
}

func (s *LifecycleSuite) validRequest() CreateEventRequest {
	return CreateEventRequest{
		Name:      "DevFest",
		Date:      "2025-03-14",
		VenueName: "Main Hall",
		VenueLat:  f64(11.0234),
		VenueLong: f64(76.9876),
	}
}

func (s *LifecycleSuite) createEvent() *models.Event {
	event, err := s.service.CreateEvent(s.ctx, s.organizer.ID, s.validRequest())
	s.Require().NoError(err)
	return event
}

func (s *LifecycleSuite) TestCreateEvent() {
	s.Run("defaults radius, closed window, provisioned collection", func() {
		event, err := s.service.CreateEvent(s.ctx, s.organizer.ID, s.validRequest())
		s.Require().NoError(err)

		s.Equal(models.DefaultRadiusMeters, event.RadiusMeters)
		s.Equal(models.AttendanceClosed, event.AttendanceStatus)
		s.Nil(event.AttendanceStartedAt)
		s.Equal(domain.CollectionID("0.0.1000000"), event.CollectionID)
		s.Equal(s.organizer.ID, event.OrganizerID)

		stored, err := s.store.FindEventByID(s.ctx, event.ID)
		s.Require().NoError(err)
		s.Equal(event.CollectionID, stored.CollectionID)
	})

	s.Run("uploads the badge image", func() {
		req := s.validRequest()
		req.BadgeImage = []byte("\x89PNG")
		event, err := s.service.CreateEvent(s.ctx, s.organizer.ID, req)
		s.Require().NoError(err)
		s.Equal(content.ID(req.BadgeImage), event.BadgeImageCID)
	})

	s.Run("opens immediately when configured", func() {
		svc := s.newService(s.issuer, WithDefaultStatus(models.AttendanceOpen))
		event, err := svc.CreateEvent(s.ctx, s.organizer.ID, s.validRequest())
		s.Require().NoError(err)
		s.True(event.IsOpen())
		s.Require().NotNil(event.AttendanceStartedAt)
		s.True(s.now.Equal(*event.AttendanceStartedAt))
	})

	s.Run("rejects invalid fields", func() {
		for name, mutate := range map[string]func(*CreateEventRequest){
			"radius too small": func(r *CreateEventRequest) { r.Radius = 9 },
			"radius too large": func(r *CreateEventRequest) { r.Radius = 10001 },
			"latitude":         func(r *CreateEventRequest) { r.VenueLat = f64(90.5) },
			"longitude":        func(r *CreateEventRequest) { r.VenueLong = f64(-181) },
			"missing latitude": func(r *CreateEventRequest) { r.VenueLat = nil },
			"blank name":       func(r *CreateEventRequest) { r.Name = "   " },
		} {
			req := s.validRequest()
			mutate(&req)
			_, err := s.service.CreateEvent(s.ctx, s.organizer.ID, req)
			s.True(dErrors.HasCode(err, dErrors.CodeValidation), "%s: %v", name, err)
		}
	})

	s.Run("radius bounds are inclusive", func() {
		for _, radius := range []int{10, 10000} {
			req := s.validRequest()
			req.Radius = radius
			event, err := s.service.CreateEvent(s.ctx, s.organizer.ID, req)
			s.Require().NoError(err)
			s.Equal(radius, event.RadiusMeters)
		}
	})

	s.Run("unknown organizer", func() {
		_, err := s.service.CreateEvent(s.ctx, domain.NewOrganizerID(), s.validRequest())
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *LifecycleSuite) TestCreateEventCollectionFallback() {
	ctrl := gomock.NewController(s.T())
	iss := mocks.NewMockIssuer(ctrl)
	iss.EXPECT().CreateCollection(gomock.Any(), "DevFest", CollectionSymbol).
		Return(domain.CollectionID(""), errors.New("ledger unreachable"))

	svc := s.newService(iss, WithPlaceholderIDs(func() domain.CollectionID { return "0.0.4242424" }))
	event, err := svc.CreateEvent(s.ctx, s.organizer.ID, s.validRequest())
	s.Require().NoError(err)
	s.Equal(domain.CollectionID("0.0.4242424"), event.CollectionID)

	fallbacks, err := s.audits.ListByAction(s.ctx, audit.EventCollectionFallback)
	s.Require().NoError(err)
	s.Require().Len(fallbacks, 1)
	s.Equal(event.ID.String(), fallbacks[0].Subject)
	s.Contains(fallbacks[0].Reason, "ledger unreachable")
}

func (s *LifecycleSuite) TestCreateEventPlaceholderCollision() {
	ctrl := gomock.NewController(s.T())
	iss := mocks.NewMockIssuer(ctrl)
	iss.EXPECT().CreateCollection(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(domain.CollectionID(""), errors.New("ledger unreachable")).Times(2)

	ids := []domain.CollectionID{"0.0.1111111", "0.0.1111111", "0.0.2222222"}
	svc := s.newService(iss, WithPlaceholderIDs(func() domain.CollectionID {
		id := ids[0]
		ids = ids[1:]
		return id
	}))

	first, err := svc.CreateEvent(s.ctx, s.organizer.ID, s.validRequest())
	s.Require().NoError(err)
	second, err := svc.CreateEvent(s.ctx, s.organizer.ID, s.validRequest())
	s.Require().NoError(err)

	s.Equal(domain.CollectionID("0.0.1111111"), first.CollectionID)
	s.Equal(domain.CollectionID("0.0.2222222"), second.CollectionID)
}

func (s *LifecycleSuite) TestCreateEventProvisionedCollision() {
	first := s.createEvent()
	s.Equal(domain.CollectionID("0.0.1000000"), first.CollectionID)

	// a fresh mock ledger reissues ids the store already holds
	restarted := s.newService(issuer.New(s.content, ledger.NewMock()),
		WithPlaceholderIDs(func() domain.CollectionID { return "0.0.7777777" }))
	event, err := restarted.CreateEvent(s.ctx, s.organizer.ID, s.validRequest())
	s.Require().NoError(err)
	s.Equal(domain.CollectionID("0.0.7777777"), event.CollectionID)

	stored, err := s.store.FindEventByID(s.ctx, event.ID)
	s.Require().NoError(err)
	s.Equal(event.CollectionID, stored.CollectionID)

	fallbacks, err := s.audits.ListByAction(s.ctx, audit.EventCollectionFallback)
	s.Require().NoError(err)
	s.Require().Len(fallbacks, 1)
	s.Equal(event.ID.String(), fallbacks[0].Subject)
	s.Contains(fallbacks[0].Reason, "already bound")
}

func (s *LifecycleSuite) TestReopenKeepsStartTime() {
	event := s.createEvent()
	_, err := s.service.SetAttendanceStatus(s.ctx, s.organizer.ID, event.ID, models.AttendanceOpen)
	s.Require().NoError(err)

	later := requestcontext.WithTime(context.Background(), s.now.Add(time.Hour))
	updated, err := s.service.SetAttendanceStatus(later, s.organizer.ID, event.ID, models.AttendanceOpen)
	s.Require().NoError(err)
	s.True(updated.IsOpen())
	s.Require().NotNil(updated.AttendanceStartedAt)
	s.True(s.now.Equal(*updated.AttendanceStartedAt))

	stored, err := s.store.FindEventByID(s.ctx, event.ID)
	s.Require().NoError(err)
	s.True(s.now.Equal(*stored.AttendanceStartedAt))
}

func (s *LifecycleSuite) TestSetAttendanceStatus() {
	event := s.createEvent()

	s.Run("owner opens the window", func() {
		updated, err := s.service.SetAttendanceStatus(s.ctx, s.organizer.ID, event.ID, models.AttendanceOpen)
		s.Require().NoError(err)
		s.True(updated.IsOpen())
		s.Require().NotNil(updated.AttendanceStartedAt)
		s.True(s.now.Equal(*updated.AttendanceStartedAt))
	})

	s.Run("owner closes the window and the start time is cleared", func() {
		updated, err := s.service.SetAttendanceStatus(s.ctx, s.organizer.ID, event.ID, models.AttendanceClosed)
		s.Require().NoError(err)
		s.False(updated.IsOpen())
		s.Nil(updated.AttendanceStartedAt)
	})

	s.Run("closing keeps the start time when configured", func() {
		svc := s.newService(s.issuer, WithClearStartedAtOnClose(false))
		_, err := svc.SetAttendanceStatus(s.ctx, s.organizer.ID, event.ID, models.AttendanceOpen)
		s.Require().NoError(err)
		updated, err := svc.SetAttendanceStatus(s.ctx, s.organizer.ID, event.ID, models.AttendanceClosed)
		s.Require().NoError(err)
		s.NotNil(updated.AttendanceStartedAt)
	})

	s.Run("another organizer is forbidden", func() {
		_, err := s.service.SetAttendanceStatus(s.ctx, domain.NewOrganizerID(), event.ID, models.AttendanceOpen)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))

		stored, err := s.store.FindEventByID(s.ctx, event.ID)
		s.Require().NoError(err)
		s.False(stored.IsOpen())
	})

	s.Run("unknown event", func() {
		_, err := s.service.SetAttendanceStatus(s.ctx, s.organizer.ID, domain.NewEventID(), models.AttendanceOpen)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	opened, err := s.audits.ListByAction(s.ctx, audit.EventAttendanceOpened)
	s.Require().NoError(err)
	s.Len(opened, 2)
}

func (s *LifecycleSuite) TestRegister() {
	event := s.createEvent()

	reg, err := s.service.Register(s.ctx, s.student.ID, event.ID, "")
	s.Require().NoError(err)
	s.Equal("0.0.5005", reg.WalletAddress)
	s.False(reg.Claimed)

	s.Run("second registration fails", func() {
		_, err := s.service.Register(s.ctx, s.student.ID, event.ID, "")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeFailedPrecondition))
		s.Contains(err.Error(), "Already registered")
	})

	s.Run("unknown event", func() {
		_, err := s.service.Register(s.ctx, s.student.ID, domain.NewEventID(), "")
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("explicit wallet wins", func() {
		other := s.createEvent()
		reg, err := s.service.Register(s.ctx, s.student.ID, other.ID, "0.0.9999")
		s.Require().NoError(err)
		s.Equal("0.0.9999", reg.WalletAddress)
	})

	s.Run("own registration is readable", func() {
		got, err := s.service.GetRegistration(s.ctx, s.student.ID, event.ID)
		s.Require().NoError(err)
		s.Equal(reg.ID, got.ID)

		_, err = s.service.GetRegistration(s.ctx, domain.NewStudentID(), event.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *LifecycleSuite) TestStudentViewsAndStats() {
	registered := s.createEvent()
	claimed := s.createEvent()
	untouched := s.createEvent()

	_, err := s.service.SetAttendanceStatus(s.ctx, s.organizer.ID, claimed.ID, models.AttendanceOpen)
	s.Require().NoError(err)

	_, err = s.service.Register(s.ctx, s.student.ID, registered.ID, "")
	s.Require().NoError(err)
	reg, err := s.service.Register(s.ctx, s.student.ID, claimed.ID, "")
	s.Require().NoError(err)
	_, err = s.store.MarkClaimed(s.ctx, reg.ID, models.ClaimRecord{Serial: "1", MetadataCID: "b3meta", ClaimedAt: s.now})
	s.Require().NoError(err)

	available, err := s.service.AvailableEvents(s.ctx, s.student.ID)
	s.Require().NoError(err)
	s.Len(available, 3)
	withReg := 0
	for _, ev := range available {
		if ev.Registration != nil {
			withReg++
		}
		if ev.Event.ID == untouched.ID {
			s.Nil(ev.Registration)
		}
	}
	s.Equal(2, withReg)

	pending, err := s.service.RegisteredEvents(s.ctx, s.student.ID)
	s.Require().NoError(err)
	s.Require().Len(pending, 1)
	s.Equal(registered.ID, pending[0].Event.ID)

	badges, err := s.service.Badges(s.ctx, s.student.ID)
	s.Require().NoError(err)
	s.Require().Len(badges, 1)
	s.Equal(claimed.ID, badges[0].Event.ID)
	s.Equal(domain.Serial("1"), badges[0].Registration.Serial)

	stats, err := s.service.OrganizerStats(s.ctx, s.organizer.ID)
	s.Require().NoError(err)
	s.Equal(&models.OrganizerStats{TotalEvents: 3, TotalRegistrations: 2, TotalClaimed: 1, ActiveEvents: 1}, stats)
}

func (s *LifecycleSuite) TestDeleteAndListRegistrations() {
	event := s.createEvent()
	_, err := s.service.Register(s.ctx, s.student.ID, event.ID, "")
	s.Require().NoError(err)

	s.Run("other organizer cannot list or delete", func() {
		stranger := domain.NewOrganizerID()
		_, err := s.service.ListRegistrations(s.ctx, stranger, event.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
		s.True(dErrors.HasCode(s.service.DeleteEvent(s.ctx, stranger, event.ID), dErrors.CodeForbidden))
	})

	regs, err := s.service.ListRegistrations(s.ctx, s.organizer.ID, event.ID)
	s.Require().NoError(err)
	s.Len(regs, 1)

	s.Require().NoError(s.service.DeleteEvent(s.ctx, s.organizer.ID, event.ID))
	_, err = s.service.GetEvent(s.ctx, event.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))

	pending, err := s.service.RegisteredEvents(s.ctx, s.student.ID)
	s.Require().NoError(err)
	s.Empty(pending)
}
