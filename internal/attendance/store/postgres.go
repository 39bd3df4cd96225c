package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"proofpass/internal/attendance/models"
	"proofpass/internal/platform/postgres"
	"proofpass/pkg/domain"
	"proofpass/pkg/platform/sentinel"
	txcontext "proofpass/pkg/platform/tx"
)

// Postgres persists the repository in PostgreSQL. Uniqueness rules are
// enforced by indexes; the claimed transition is a conditional UPDATE.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

func (s *Postgres) conn(ctx context.Context) txcontext.Conn {
	return txcontext.ConnFrom(ctx, s.db)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

// -----------------------------------------------------------------------------
// Organizers
// -----------------------------------------------------------------------------

const organizerColumns = `id, name, email, password_hash, wallet_address, created_at`

func (s *Postgres) CreateOrganizer(ctx context.Context, o *models.Organizer) error {
	_, err := s.conn(ctx).ExecContext(ctx, `
		INSERT INTO organizers (`+organizerColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		uuid.UUID(o.ID), o.Name, o.Email, o.PasswordHash, o.WalletAddress, o.CreatedAt,
	)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return sentinel.ErrAlreadyUsed
		}
		return fmt.Errorf("insert organizer: %w", err)
	}
	return nil
}

func (s *Postgres) FindOrganizerByID(ctx context.Context, id domain.OrganizerID) (*models.Organizer, error) {
	row := s.conn(ctx).QueryRowContext(ctx, `SELECT `+organizerColumns+` FROM organizers WHERE id = $1`, uuid.UUID(id))
	return scanOrganizer(row)
}

func (s *Postgres) FindOrganizerByEmail(ctx context.Context, email string) (*models.Organizer, error) {
	row := s.conn(ctx).QueryRowContext(ctx, `SELECT `+organizerColumns+` FROM organizers WHERE lower(email) = lower($1)`, email)
	return scanOrganizer(row)
}

func scanOrganizer(row rowScanner) (*models.Organizer, error) {
	var (
		o  models.Organizer
		id uuid.UUID
	)
	if err := row.Scan(&id, &o.Name, &o.Email, &o.PasswordHash, &o.WalletAddress, &o.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan organizer: %w", err)
	}
	o.ID = domain.OrganizerID(id)
	return &o, nil
}

// -----------------------------------------------------------------------------
// Students
// -----------------------------------------------------------------------------

const studentColumns = `id, email, password_hash, wallet_address, profile_cid, name, college, department, roll_number, created_at`

func (s *Postgres) CreateStudent(ctx context.Context, st *models.Student) error {
	_, err := s.conn(ctx).ExecContext(ctx, `
		INSERT INTO students (`+studentColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		uuid.UUID(st.ID), st.Email, st.PasswordHash, st.WalletAddress, string(st.ProfileCID),
		st.Name, st.College, st.Department, st.RollNumber, st.CreatedAt,
	)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return sentinel.ErrAlreadyUsed
		}
		return fmt.Errorf("insert student: %w", err)
	}
	return nil
}

func (s *Postgres) FindStudentByID(ctx context.Context, id domain.StudentID) (*models.Student, error) {
	row := s.conn(ctx).QueryRowContext(ctx, `SELECT `+studentColumns+` FROM students WHERE id = $1`, uuid.UUID(id))
	return scanStudent(row)
}

func (s *Postgres) FindStudentByEmail(ctx context.Context, email string) (*models.Student, error) {
	row := s.conn(ctx).QueryRowContext(ctx, `SELECT `+studentColumns+` FROM students WHERE lower(email) = lower($1)`, email)
	return scanStudent(row)
}

func (s *Postgres) ExecuteStudent(ctx context.Context, id domain.StudentID, mutate func(*models.Student) error) (*models.Student, error) {
	var out *models.Student
	err := s.runInTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx, `SELECT `+studentColumns+` FROM students WHERE id = $1 FOR UPDATE`, uuid.UUID(id))
		st, err := scanStudent(row)
		if err != nil {
			return err
		}
		if err := mutate(st); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `
			UPDATE students
			SET wallet_address = $2, profile_cid = $3, name = $4, college = $5, department = $6, roll_number = $7
			WHERE id = $1`,
			uuid.UUID(id), st.WalletAddress, string(st.ProfileCID), st.Name, st.College, st.Department, st.RollNumber,
		)
		if err != nil {
			return fmt.Errorf("update student: %w", err)
		}
		out = st
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func scanStudent(row rowScanner) (*models.Student, error) {
	var (
		st      models.Student
		id      uuid.UUID
		profile string
	)
	err := row.Scan(&id, &st.Email, &st.PasswordHash, &st.WalletAddress, &profile,
		&st.Name, &st.College, &st.Department, &st.RollNumber, &st.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan student: %w", err)
	}
	st.ID = domain.StudentID(id)
	st.ProfileCID = domain.ContentID(profile)
	return &st, nil
}

// -----------------------------------------------------------------------------
// Events
// -----------------------------------------------------------------------------

const eventColumns = `id, organizer_id, name, description, date, venue_name, venue_lat, venue_long,
	radius_meters, badge_image_cid, attendance_status, attendance_started_at, collection_id, created_at`

func (s *Postgres) CreateEvent(ctx context.Context, e *models.Event) error {
	_, err := s.conn(ctx).ExecContext(ctx, `
		INSERT INTO events (`+eventColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		uuid.UUID(e.ID), uuid.UUID(e.OrganizerID), e.Name, e.Description, e.Date, e.VenueName,
		e.VenueLat, e.VenueLong, e.RadiusMeters, string(e.BadgeImageCID), string(e.AttendanceStatus),
		nullTime(e.AttendanceStartedAt), nullString(string(e.CollectionID)), e.CreatedAt,
	)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return sentinel.ErrAlreadyUsed
		}
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

func (s *Postgres) FindEventByID(ctx context.Context, id domain.EventID) (*models.Event, error) {
	row := s.conn(ctx).QueryRowContext(ctx, `SELECT `+eventColumns+` FROM events WHERE id = $1`, uuid.UUID(id))
	return scanEvent(row)
}

func (s *Postgres) FindEventByCollectionID(ctx context.Context, collectionID domain.CollectionID) (*models.Event, error) {
	row := s.conn(ctx).QueryRowContext(ctx, `SELECT `+eventColumns+` FROM events WHERE collection_id = $1`, string(collectionID))
	return scanEvent(row)
}

func (s *Postgres) ListEvents(ctx context.Context) ([]*models.Event, error) {
	return s.queryEvents(ctx, `SELECT `+eventColumns+` FROM events ORDER BY created_at DESC`)
}

func (s *Postgres) ListEventsByOrganizer(ctx context.Context, organizerID domain.OrganizerID) ([]*models.Event, error) {
	return s.queryEvents(ctx, `SELECT `+eventColumns+` FROM events WHERE organizer_id = $1 ORDER BY created_at DESC`,
		uuid.UUID(organizerID))
}

func (s *Postgres) queryEvents(ctx context.Context, query string, args ...any) ([]*models.Event, error) {
	rows, err := s.conn(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	out := make([]*models.Event, 0)
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return out, nil
}

// ExecuteEvent locks the row with SELECT ... FOR UPDATE, runs validate and
// mutate, and writes the mutable columns back in the same transaction.
func (s *Postgres) ExecuteEvent(ctx context.Context, id domain.EventID, validate func(*models.Event) error, mutate func(*models.Event)) (*models.Event, error) {
	var out *models.Event
	err := s.runInTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx, `SELECT `+eventColumns+` FROM events WHERE id = $1 FOR UPDATE`, uuid.UUID(id))
		e, err := scanEvent(row)
		if err != nil {
			return err
		}
		original := e.CollectionID
		if validate != nil {
			if err := validate(e); err != nil {
				return err
			}
		}
		mutate(e)
		if original != "" && e.CollectionID != original {
			return sentinel.ErrInvalidState
		}
		_, err = tx.ExecContext(ctx, `
			UPDATE events
			SET attendance_status = $2, attendance_started_at = $3, collection_id = $4, badge_image_cid = $5
			WHERE id = $1`,
			uuid.UUID(id), string(e.AttendanceStatus), nullTime(e.AttendanceStartedAt),
			nullString(string(e.CollectionID)), string(e.BadgeImageCID),
		)
		if err != nil {
			if postgres.IsUniqueViolation(err) {
				return sentinel.ErrAlreadyUsed
			}
			return fmt.Errorf("update event: %w", err)
		}
		out = e
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteEvent removes the event; registrations cascade.
func (s *Postgres) DeleteEvent(ctx context.Context, id domain.EventID) error {
	res, err := s.conn(ctx).ExecContext(ctx, `DELETE FROM events WHERE id = $1`, uuid.UUID(id))
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete event rows affected: %w", err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func scanEvent(row rowScanner) (*models.Event, error) {
	var (
		e          models.Event
		id, orgID  uuid.UUID
		badge      string
		status     string
		startedAt  sql.NullTime
		collection sql.NullString
	)
	err := row.Scan(&id, &orgID, &e.Name, &e.Description, &e.Date, &e.VenueName, &e.VenueLat, &e.VenueLong,
		&e.RadiusMeters, &badge, &status, &startedAt, &collection, &e.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan event: %w", err)
	}
	e.ID = domain.EventID(id)
	e.OrganizerID = domain.OrganizerID(orgID)
	e.BadgeImageCID = domain.ContentID(badge)
	e.AttendanceStatus = models.AttendanceStatus(status)
	e.AttendanceStartedAt = timePtr(startedAt)
	e.CollectionID = domain.CollectionID(collection.String)
	return &e, nil
}

// -----------------------------------------------------------------------------
// Registrations
// -----------------------------------------------------------------------------

const registrationColumns = `id, event_id, student_id, wallet_address, registered_at, claimed, claimed_at, nft_serial, metadata_cid`

func (s *Postgres) CreateRegistration(ctx context.Context, r *models.Registration) error {
	_, err := s.conn(ctx).ExecContext(ctx, `
		INSERT INTO registrations (id, event_id, student_id, wallet_address, registered_at)
		VALUES ($1, $2, $3, $4, $5)`,
		uuid.UUID(r.ID), uuid.UUID(r.EventID), uuid.UUID(r.StudentID), r.WalletAddress, r.RegisteredAt,
	)
	if err != nil {
		switch {
		case postgres.IsUniqueViolation(err):
			return sentinel.ErrAlreadyUsed
		case postgres.IsForeignKeyViolation(err):
			return sentinel.ErrNotFound
		}
		return fmt.Errorf("insert registration: %w", err)
	}
	return nil
}

func (s *Postgres) FindRegistrationByID(ctx context.Context, id domain.RegistrationID) (*models.Registration, error) {
	row := s.conn(ctx).QueryRowContext(ctx, `SELECT `+registrationColumns+` FROM registrations WHERE id = $1`, uuid.UUID(id))
	return scanRegistration(row)
}

func (s *Postgres) FindRegistration(ctx context.Context, eventID domain.EventID, studentID domain.StudentID) (*models.Registration, error) {
	row := s.conn(ctx).QueryRowContext(ctx, `
		SELECT `+registrationColumns+` FROM registrations WHERE event_id = $1 AND student_id = $2`,
		uuid.UUID(eventID), uuid.UUID(studentID))
	return scanRegistration(row)
}

func (s *Postgres) FindClaimedBySerial(ctx context.Context, eventID domain.EventID, serial domain.Serial) (*models.Registration, error) {
	row := s.conn(ctx).QueryRowContext(ctx, `
		SELECT `+registrationColumns+` FROM registrations
		WHERE event_id = $1 AND claimed AND nft_serial = $2
		ORDER BY seq LIMIT 1`,
		uuid.UUID(eventID), string(serial))
	return scanRegistration(row)
}

func (s *Postgres) ListRegistrationsByEvent(ctx context.Context, eventID domain.EventID) ([]*models.Registration, error) {
	return s.queryRegistrations(ctx, `
		SELECT `+registrationColumns+` FROM registrations WHERE event_id = $1 ORDER BY seq`, uuid.UUID(eventID))
}

func (s *Postgres) ListRegistrationsByStudent(ctx context.Context, studentID domain.StudentID) ([]*models.Registration, error) {
	return s.queryRegistrations(ctx, `
		SELECT `+registrationColumns+` FROM registrations WHERE student_id = $1 ORDER BY seq`, uuid.UUID(studentID))
}

func (s *Postgres) queryRegistrations(ctx context.Context, query string, args ...any) ([]*models.Registration, error) {
	rows, err := s.conn(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query registrations: %w", err)
	}
	defer rows.Close()

	out := make([]*models.Registration, 0)
	for rows.Next() {
		r, err := scanRegistration(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate registrations: %w", err)
	}
	return out, nil
}

// MarkClaimed flips claimed with a conditional UPDATE; only one concurrent
// caller can match "claimed = false".
func (s *Postgres) MarkClaimed(ctx context.Context, id domain.RegistrationID, rec models.ClaimRecord) (*models.Registration, error) {
	if err := rec.Validate(); err != nil {
		return nil, err
	}
	row := s.conn(ctx).QueryRowContext(ctx, `
		UPDATE registrations
		SET claimed = TRUE, claimed_at = $2, nft_serial = $3, metadata_cid = $4
		WHERE id = $1 AND claimed = FALSE
		RETURNING `+registrationColumns,
		uuid.UUID(id), rec.ClaimedAt, string(rec.Serial), string(rec.MetadataCID),
	)
	r, err := scanRegistration(row)
	if err == nil {
		return r, nil
	}
	if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, err
	}
	// No row matched: either it does not exist or it was already claimed.
	if _, findErr := s.FindRegistrationByID(ctx, id); findErr != nil {
		return nil, findErr
	}
	return nil, sentinel.ErrAlreadyUsed
}

func scanRegistration(row rowScanner) (*models.Registration, error) {
	var (
		r                      models.Registration
		id, eventID, studentID uuid.UUID
		claimedAt              sql.NullTime
		serial, metadata       sql.NullString
	)
	err := row.Scan(&id, &eventID, &studentID, &r.WalletAddress, &r.RegisteredAt, &r.Claimed, &claimedAt, &serial, &metadata)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan registration: %w", err)
	}
	r.ID = domain.RegistrationID(id)
	r.EventID = domain.EventID(eventID)
	r.StudentID = domain.StudentID(studentID)
	r.ClaimedAt = timePtr(claimedAt)
	r.Serial = domain.Serial(serial.String)
	r.MetadataCID = domain.ContentID(metadata.String)
	return &r, nil
}

// -----------------------------------------------------------------------------
// Legacy users
// -----------------------------------------------------------------------------

func (s *Postgres) CreateUser(ctx context.Context, u *models.User) error {
	_, err := s.conn(ctx).ExecContext(ctx, `
		INSERT INTO users (id, username, password_hash, created_at) VALUES ($1, $2, $3, $4)`,
		uuid.UUID(u.ID), u.Username, u.PasswordHash, u.CreatedAt,
	)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return sentinel.ErrAlreadyUsed
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *Postgres) FindUserByID(ctx context.Context, id domain.UserID) (*models.User, error) {
	row := s.conn(ctx).QueryRowContext(ctx, `SELECT id, username, password_hash, created_at FROM users WHERE id = $1`, uuid.UUID(id))
	return scanUser(row)
}

func (s *Postgres) FindUserByUsername(ctx context.Context, username string) (*models.User, error) {
	row := s.conn(ctx).QueryRowContext(ctx, `
		SELECT id, username, password_hash, created_at FROM users WHERE lower(username) = lower($1)`, username)
	return scanUser(row)
}

func scanUser(row rowScanner) (*models.User, error) {
	var (
		u  models.User
		id uuid.UUID
	)
	if err := row.Scan(&id, &u.Username, &u.PasswordHash, &u.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}
	u.ID = domain.UserID(id)
	return &u, nil
}

// -----------------------------------------------------------------------------
// Transactions
// -----------------------------------------------------------------------------

// runInTx joins a transaction already carried by ctx or starts a new one.
func (s *Postgres) runInTx(ctx context.Context, fn func(ctx context.Context, tx *sql.Tx) error) error {
	return txcontext.Run(ctx, s.db, fn)
}
