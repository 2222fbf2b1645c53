package storage

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/md-rashed-zaman/salonsched/libs/db"
	"github.com/md-rashed-zaman/salonsched/services/scheduling-service/internal/model"
	"github.com/md-rashed-zaman/salonsched/services/scheduling-service/internal/outbox"
	"github.com/md-rashed-zaman/salonsched/services/scheduling-service/internal/schedule"
)

// Postgres implements every store on a pgx pool. Appointment writes and their
// outbox events share one transaction.
type Postgres struct {
	pool   *db.Pool
	outbox *outbox.Repository
}

func NewPostgres(pool *db.Pool, outboxRepo *outbox.Repository) *Postgres {
	return &Postgres{pool: pool, outbox: outboxRepo}
}

const appointmentColumns = `
	id::text, staff_id, service_id, customer_name, customer_email, customer_phone,
	selected_extra_ids, appt_date, start_minute, duration_minutes, status,
	total_price_cents, notes, cancelled_at, created_at, updated_at`

func scanAppointment(row pgx.Row) (model.Appointment, error) {
	var (
		a      model.Appointment
		date   time.Time
		start  int
		status string
		extras []string
	)
	err := row.Scan(
		&a.ID,
		&a.StaffID,
		&a.ServiceID,
		&a.CustomerName,
		&a.CustomerEmail,
		&a.CustomerPhone,
		&extras,
		&date,
		&start,
		&a.DurationMinutes,
		&status,
		&a.TotalPriceCents,
		&a.Notes,
		&a.CancelledAt,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		return model.Appointment{}, err
	}
	a.SelectedExtraIDs = extras
	a.Date = schedule.DateOf(date)
	a.Time = schedule.Clock(start)
	a.Status = model.Status(status)
	return a, nil
}

func (p *Postgres) GetAppointment(ctx context.Context, id string) (model.Appointment, error) {
	a, err := scanAppointment(p.pool.QueryRow(ctx, `SELECT `+appointmentColumns+` FROM appointments WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || isInvalidUUID(err) {
			return model.Appointment{}, ErrNotFound
		}
		return model.Appointment{}, err
	}
	return a, nil
}

func (p *Postgres) ListAppointments(ctx context.Context, f DayFilter) ([]model.Appointment, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE appt_date = $1::date
			AND ($2 = '' OR staff_id = $2)
		ORDER BY start_minute ASC, id ASC
	`, f.Date.String(), f.StaffID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

func (p *Postgres) SaveAppointment(ctx context.Context, a model.Appointment, events ...outbox.Event) error {
	extras := a.SelectedExtraIDs
	if extras == nil {
		extras = []string{}
	}
	return p.pool.WithTx(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO appointments
				(id, staff_id, service_id, customer_name, customer_email, customer_phone,
				 selected_extra_ids, appt_date, start_minute, duration_minutes, status,
				 total_price_cents, notes, cancelled_at, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8::date, $9, $10, $11, $12, $13, $14, $15, $16)
			ON CONFLICT (id) DO UPDATE
			SET staff_id = EXCLUDED.staff_id,
				service_id = EXCLUDED.service_id,
				customer_name = EXCLUDED.customer_name,
				customer_email = EXCLUDED.customer_email,
				customer_phone = EXCLUDED.customer_phone,
				selected_extra_ids = EXCLUDED.selected_extra_ids,
				appt_date = EXCLUDED.appt_date,
				start_minute = EXCLUDED.start_minute,
				duration_minutes = EXCLUDED.duration_minutes,
				status = EXCLUDED.status,
				total_price_cents = EXCLUDED.total_price_cents,
				notes = EXCLUDED.notes,
				cancelled_at = EXCLUDED.cancelled_at,
				updated_at = EXCLUDED.updated_at
		`, a.ID, a.StaffID, a.ServiceID, a.CustomerName, a.CustomerEmail, a.CustomerPhone,
			extras, a.Date.String(), int(a.Time), a.DurationMinutes, string(a.Status),
			a.TotalPriceCents, a.Notes, a.CancelledAt, a.CreatedAt, a.UpdatedAt)
		if err != nil {
			return err
		}
		return p.insertEvents(ctx, tx, events)
	})
}

func (p *Postgres) DeleteAppointment(ctx context.Context, id string, events ...outbox.Event) error {
	return p.pool.WithTx(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `DELETE FROM appointments WHERE id = $1`, id)
		if err != nil {
			if isInvalidUUID(err) {
				return ErrNotFound
			}
			return err
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFound
		}
		return p.insertEvents(ctx, tx, events)
	})
}

func (p *Postgres) insertEvents(ctx context.Context, tx pgx.Tx, events []outbox.Event) error {
	for _, evt := range events {
		if err := p.outbox.Insert(ctx, tx, evt); err != nil {
			return err
		}
	}
	return nil
}

// isInvalidUUID matches invalid_text_representation, which Postgres raises
// for malformed uuid literals.
func isInvalidUUID(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "22P02"
}

var (
	_ AppointmentStore = (*Postgres)(nil)
	_ ScheduleStore    = (*Postgres)(nil)
	_ CatalogStore     = (*Postgres)(nil)
)
