package storage

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/md-rashed-zaman/salonsched/services/scheduling-service/internal/model"
)

func (p *Postgres) GetStaff(ctx context.Context, id string) (model.Staff, error) {
	var s model.Staff
	err := p.pool.QueryRow(ctx, `
		SELECT id, name, is_active
		FROM staff
		WHERE id = $1
	`, id).Scan(&s.ID, &s.Name, &s.IsActive)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Staff{}, ErrNotFound
	}
	return s, err
}

func (p *Postgres) ListStaff(ctx context.Context) ([]model.Staff, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT id, name, is_active
		FROM staff
		ORDER BY id ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Staff
	for rows.Next() {
		var s model.Staff
		if err := rows.Scan(&s.ID, &s.Name, &s.IsActive); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

func (p *Postgres) PutStaff(ctx context.Context, s model.Staff) error {
	_, err := p.pool.Exec(ctx, `
		INSERT INTO staff (id, name, is_active)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE
		SET name = EXCLUDED.name,
			is_active = EXCLUDED.is_active,
			updated_at = now()
	`, s.ID, s.Name, s.IsActive)
	return err
}

func (p *Postgres) GetService(ctx context.Context, id string) (model.Service, error) {
	s, err := scanService(p.pool.QueryRow(ctx, `
		SELECT id, name, duration_minutes, price_cents, extras
		FROM services
		WHERE id = $1
	`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Service{}, ErrNotFound
	}
	return s, err
}

func (p *Postgres) ListServices(ctx context.Context) ([]model.Service, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT id, name, duration_minutes, price_cents, extras
		FROM services
		ORDER BY id ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Service
	for rows.Next() {
		s, err := scanService(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

func (p *Postgres) PutService(ctx context.Context, s model.Service) error {
	extras := s.Extras
	if extras == nil {
		extras = []model.Extra{}
	}
	raw, err := json.Marshal(extras)
	if err != nil {
		return err
	}
	_, err = p.pool.Exec(ctx, `
		INSERT INTO services (id, name, duration_minutes, price_cents, extras)
		VALUES ($1, $2, $3, $4, $5::jsonb)
		ON CONFLICT (id) DO UPDATE
		SET name = EXCLUDED.name,
			duration_minutes = EXCLUDED.duration_minutes,
			price_cents = EXCLUDED.price_cents,
			extras = EXCLUDED.extras,
			updated_at = now()
	`, s.ID, s.Name, s.DurationMinutes, s.PriceCents, string(raw))
	return err
}

func scanService(row pgx.Row) (model.Service, error) {
	var (
		s   model.Service
		raw []byte
	)
	if err := row.Scan(&s.ID, &s.Name, &s.DurationMinutes, &s.PriceCents, &raw); err != nil {
		return model.Service{}, err
	}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &s.Extras); err != nil {
			return model.Service{}, err
		}
	}
	return s, nil
}
