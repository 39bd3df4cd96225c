package store

import (
	"context"
	"slices"
	"strings"
	"sync"

	"proofpass/internal/attendance/models"
	"proofpass/pkg/domain"
	"proofpass/pkg/platform/sentinel"
)

type registrationKey struct {
	eventID   domain.EventID
	studentID domain.StudentID
}

// InMemory is a process-local repository. Every read returns a copy, so the
// only way to change stored state is through the store's own methods.
type InMemory struct {
	mu sync.RWMutex

	organizers       map[domain.OrganizerID]models.Organizer
	organizerByEmail map[string]domain.OrganizerID

	students       map[domain.StudentID]models.Student
	studentByEmail map[string]domain.StudentID

	events       map[domain.EventID]models.Event
	eventOrder   []domain.EventID
	eventByCollx map[domain.CollectionID]domain.EventID

	registrations map[domain.RegistrationID]models.Registration
	regByPair     map[registrationKey]domain.RegistrationID
	regOrder      []domain.RegistrationID

	users      map[domain.UserID]models.User
	userByName map[string]domain.UserID
}

func NewInMemory() *InMemory {
	return &InMemory{
		organizers:       make(map[domain.OrganizerID]models.Organizer),
		organizerByEmail: make(map[string]domain.OrganizerID),
		students:         make(map[domain.StudentID]models.Student),
		studentByEmail:   make(map[string]domain.StudentID),
		events:           make(map[domain.EventID]models.Event),
		eventByCollx:     make(map[domain.CollectionID]domain.EventID),
		registrations:    make(map[domain.RegistrationID]models.Registration),
		regByPair:        make(map[registrationKey]domain.RegistrationID),
		users:            make(map[domain.UserID]models.User),
		userByName:       make(map[string]domain.UserID),
	}
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// -----------------------------------------------------------------------------
// Organizers
// -----------------------------------------------------------------------------

func (s *InMemory) CreateOrganizer(_ context.Context, o *models.Organizer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := normalize(o.Email)
	if _, taken := s.organizerByEmail[key]; taken {
		return sentinel.ErrAlreadyUsed
	}
	s.organizers[o.ID] = *o
	s.organizerByEmail[key] = o.ID
	return nil
}

func (s *InMemory) FindOrganizerByID(_ context.Context, id domain.OrganizerID) (*models.Organizer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.organizers[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &o, nil
}

func (s *InMemory) FindOrganizerByEmail(_ context.Context, email string) (*models.Organizer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.organizerByEmail[normalize(email)]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	o := s.organizers[id]
	return &o, nil
}

// -----------------------------------------------------------------------------
// Students
// -----------------------------------------------------------------------------

func (s *InMemory) CreateStudent(_ context.Context, st *models.Student) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := normalize(st.Email)
	if _, taken := s.studentByEmail[key]; taken {
		return sentinel.ErrAlreadyUsed
	}
	s.students[st.ID] = *st
	s.studentByEmail[key] = st.ID
	return nil
}

func (s *InMemory) FindStudentByID(_ context.Context, id domain.StudentID) (*models.Student, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.students[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &st, nil
}

func (s *InMemory) FindStudentByEmail(_ context.Context, email string) (*models.Student, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.studentByEmail[normalize(email)]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	st := s.students[id]
	return &st, nil
}

// ExecuteStudent applies mutate to the stored student under the write lock.
// Email changes are not supported through this path.
func (s *InMemory) ExecuteStudent(_ context.Context, id domain.StudentID, mutate func(*models.Student) error) (*models.Student, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.students[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	email := st.Email
	if err := mutate(&st); err != nil {
		return nil, err
	}
	st.Email = email
	s.students[id] = st
	return &st, nil
}

// -----------------------------------------------------------------------------
// Events
// -----------------------------------------------------------------------------

func (s *InMemory) CreateEvent(_ context.Context, e *models.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.events[e.ID]; exists {
		return sentinel.ErrConflict
	}
	if e.CollectionID != "" {
		if _, taken := s.eventByCollx[e.CollectionID]; taken {
			return sentinel.ErrAlreadyUsed
		}
		s.eventByCollx[e.CollectionID] = e.ID
	}
	s.events[e.ID] = cloneEvent(*e)
	s.eventOrder = append(s.eventOrder, e.ID)
	return nil
}

func (s *InMemory) FindEventByID(_ context.Context, id domain.EventID) (*models.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.events[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	out := cloneEvent(e)
	return &out, nil
}

func (s *InMemory) FindEventByCollectionID(_ context.Context, collectionID domain.CollectionID) (*models.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.eventByCollx[collectionID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	out := cloneEvent(s.events[id])
	return &out, nil
}

// ListEvents returns every event, newest first.
func (s *InMemory) ListEvents(_ context.Context) ([]*models.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listEventsLocked(func(models.Event) bool { return true }), nil
}

// ListEventsByOrganizer returns the organizer's events, newest first.
func (s *InMemory) ListEventsByOrganizer(_ context.Context, organizerID domain.OrganizerID) ([]*models.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listEventsLocked(func(e models.Event) bool { return e.OrganizerID == organizerID }), nil
}

func (s *InMemory) listEventsLocked(keep func(models.Event) bool) []*models.Event {
	out := make([]*models.Event, 0)
	for _, id := range slices.Backward(s.eventOrder) {
		e := s.events[id]
		if keep(e) {
			c := cloneEvent(e)
			out = append(out, &c)
		}
	}
	return out
}

// ExecuteEvent runs validate then mutate against the stored event while
// holding the write lock, so the check and the write see the same state.
func (s *InMemory) ExecuteEvent(_ context.Context, id domain.EventID, validate func(*models.Event) error, mutate func(*models.Event)) (*models.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.events[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	e := cloneEvent(stored)
	if validate != nil {
		if err := validate(&e); err != nil {
			return nil, err
		}
	}
	mutate(&e)
	if e.CollectionID != stored.CollectionID {
		if stored.CollectionID != "" {
			return nil, sentinel.ErrInvalidState
		}
		if _, taken := s.eventByCollx[e.CollectionID]; taken {
			return nil, sentinel.ErrAlreadyUsed
		}
		s.eventByCollx[e.CollectionID] = id
	}
	s.events[id] = e
	out := cloneEvent(e)
	return &out, nil
}

// DeleteEvent removes the event and its registrations.
func (s *InMemory) DeleteEvent(_ context.Context, id domain.EventID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.events[id]
	if !ok {
		return sentinel.ErrNotFound
	}
	delete(s.events, id)
	delete(s.eventByCollx, e.CollectionID)
	s.eventOrder = slices.DeleteFunc(s.eventOrder, func(x domain.EventID) bool { return x == id })

	s.regOrder = slices.DeleteFunc(s.regOrder, func(rid domain.RegistrationID) bool {
		r := s.registrations[rid]
		if r.EventID != id {
			return false
		}
		delete(s.registrations, rid)
		delete(s.regByPair, registrationKey{r.EventID, r.StudentID})
		return true
	})
	return nil
}

func cloneEvent(e models.Event) models.Event {
	if e.AttendanceStartedAt != nil {
		t := *e.AttendanceStartedAt
		e.AttendanceStartedAt = &t
	}
	return e
}

// -----------------------------------------------------------------------------
// Registrations
// -----------------------------------------------------------------------------

// CreateRegistration stores r unless the student is already registered for
// the event, in which case it returns sentinel.ErrAlreadyUsed.
func (s *InMemory) CreateRegistration(_ context.Context, r *models.Registration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.events[r.EventID]; !ok {
		return sentinel.ErrNotFound
	}
	key := registrationKey{r.EventID, r.StudentID}
	if _, taken := s.regByPair[key]; taken {
		return sentinel.ErrAlreadyUsed
	}
	s.registrations[r.ID] = cloneRegistration(*r)
	s.regByPair[key] = r.ID
	s.regOrder = append(s.regOrder, r.ID)
	return nil
}

func (s *InMemory) FindRegistrationByID(_ context.Context, id domain.RegistrationID) (*models.Registration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.registrations[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	out := cloneRegistration(r)
	return &out, nil
}

func (s *InMemory) FindRegistration(_ context.Context, eventID domain.EventID, studentID domain.StudentID) (*models.Registration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.regByPair[registrationKey{eventID, studentID}]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	out := cloneRegistration(s.registrations[id])
	return &out, nil
}

// FindClaimedBySerial returns the claimed registration of eventID holding serial.
func (s *InMemory) FindClaimedBySerial(_ context.Context, eventID domain.EventID, serial domain.Serial) (*models.Registration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, id := range s.regOrder {
		r := s.registrations[id]
		if r.EventID == eventID && r.Claimed && r.Serial == serial {
			out := cloneRegistration(r)
			return &out, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

// ListRegistrationsByEvent returns registrations in registration order.
func (s *InMemory) ListRegistrationsByEvent(_ context.Context, eventID domain.EventID) ([]*models.Registration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listRegistrationsLocked(func(r models.Registration) bool { return r.EventID == eventID }), nil
}

// ListRegistrationsByStudent returns registrations in registration order.
func (s *InMemory) ListRegistrationsByStudent(_ context.Context, studentID domain.StudentID) ([]*models.Registration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listRegistrationsLocked(func(r models.Registration) bool { return r.StudentID == studentID }), nil
}

func (s *InMemory) listRegistrationsLocked(keep func(models.Registration) bool) []*models.Registration {
	out := make([]*models.Registration, 0)
	for _, id := range s.regOrder {
		r := s.registrations[id]
		if keep(r) {
			c := cloneRegistration(r)
			out = append(out, &c)
		}
	}
	return out
}

// MarkClaimed is the compare-and-swap for the claimed flag: it writes rec
// only if the registration is still unclaimed and returns
// sentinel.ErrAlreadyUsed otherwise.
func (s *InMemory) MarkClaimed(_ context.Context, id domain.RegistrationID, rec models.ClaimRecord) (*models.Registration, error) {
	if err := rec.Validate(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.registrations[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if r.Claimed {
		return nil, sentinel.ErrAlreadyUsed
	}
	r.ApplyClaim(rec)
	s.registrations[id] = r
	out := cloneRegistration(r)
	return &out, nil
}

func cloneRegistration(r models.Registration) models.Registration {
	if r.ClaimedAt != nil {
		t := *r.ClaimedAt
		r.ClaimedAt = &t
	}
	return r
}

// -----------------------------------------------------------------------------
// Legacy users
// -----------------------------------------------------------------------------

func (s *InMemory) CreateUser(_ context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := normalize(u.Username)
	if _, taken := s.userByName[key]; taken {
		return sentinel.ErrAlreadyUsed
	}
	s.users[u.ID] = *u
	s.userByName[key] = u.ID
	return nil
}

func (s *InMemory) FindUserByID(_ context.Context, id domain.UserID) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &u, nil
}

func (s *InMemory) FindUserByUsername(_ context.Context, username string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.userByName[normalize(username)]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	u := s.users[id]
	return &u, nil
}
