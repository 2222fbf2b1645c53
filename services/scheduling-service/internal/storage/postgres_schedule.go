package storage

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/md-rashed-zaman/salonsched/services/scheduling-service/internal/schedule"
)

func (p *Postgres) GetSchedule(ctx context.Context, staffID string) (schedule.Schedule, bool, error) {
	var s schedule.Schedule
	found := false

	rows, err := p.pool.Query(ctx, `
		SELECT weekday, is_working, start_minute, end_minute
		FROM staff_working_hours
		WHERE staff_id = $1
		ORDER BY weekday ASC
	`, staffID)
	if err != nil {
		return schedule.Schedule{}, false, err
	}
	for rows.Next() {
		var weekday, start, end int
		var working bool
		if err := rows.Scan(&weekday, &working, &start, &end); err != nil {
			rows.Close()
			return schedule.Schedule{}, false, err
		}
		if weekday < 0 || weekday > 6 {
			continue
		}
		s.Weekly[weekday] = schedule.Day{IsWorking: working, Start: schedule.Clock(start), End: schedule.Clock(end)}
		found = true
	}
	rows.Close()
	if rows.Err() != nil {
		return schedule.Schedule{}, false, rows.Err()
	}

	exRows, err := p.pool.Query(ctx, `
		SELECT exception_date, is_closed, start_minute, end_minute
		FROM staff_schedule_exceptions
		WHERE staff_id = $1
	`, staffID)
	if err != nil {
		return schedule.Schedule{}, false, err
	}
	defer exRows.Close()
	for exRows.Next() {
		var (
			date       time.Time
			closed     bool
			start, end int
		)
		if err := exRows.Scan(&date, &closed, &start, &end); err != nil {
			return schedule.Schedule{}, false, err
		}
		if s.Exceptions == nil {
			s.Exceptions = map[schedule.Date]schedule.Exception{}
		}
		if closed {
			s.Exceptions[schedule.DateOf(date)] = schedule.Closed{}
		} else {
			s.Exceptions[schedule.DateOf(date)] = schedule.Open{Start: schedule.Clock(start), End: schedule.Clock(end)}
		}
		found = true
	}
	if exRows.Err() != nil {
		return schedule.Schedule{}, false, exRows.Err()
	}
	return s, found, nil
}

// PutSchedule replaces the weekly hours and every exception of staffID.
func (p *Postgres) PutSchedule(ctx context.Context, staffID string, s schedule.Schedule) error {
	return p.pool.WithTx(ctx, func(tx pgx.Tx) error {
		for wd, day := range s.Weekly {
			if _, err := tx.Exec(ctx, `
				INSERT INTO staff_working_hours (staff_id, weekday, is_working, start_minute, end_minute)
				VALUES ($1, $2, $3, $4, $5)
				ON CONFLICT (staff_id, weekday) DO UPDATE
				SET is_working = EXCLUDED.is_working,
					start_minute = EXCLUDED.start_minute,
					end_minute = EXCLUDED.end_minute
			`, staffID, wd, day.IsWorking, int(day.Start), int(day.End)); err != nil {
				return err
			}
		}

		if _, err := tx.Exec(ctx, `DELETE FROM staff_schedule_exceptions WHERE staff_id = $1`, staffID); err != nil {
			return err
		}
		for _, date := range s.ExceptionDates() {
			var (
				closed     bool
				start, end int
			)
			switch e := s.Exceptions[date].(type) {
			case schedule.Closed:
				closed = true
			case schedule.Open:
				start, end = int(e.Start), int(e.End)
			default:
				continue
			}
			if _, err := tx.Exec(ctx, `
				INSERT INTO staff_schedule_exceptions (staff_id, exception_date, is_closed, start_minute, end_minute)
				VALUES ($1, $2::date, $3, $4, $5)
			`, staffID, date.String(), closed, start, end); err != nil {
				return err
			}
		}
		return nil
	})
}
