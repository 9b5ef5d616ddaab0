package database

import (
	"context"
	"fmt"

	"salonbook/internal/models"
)

func (db *DB) ListServices(ctx context.Context) ([]models.Service, error) {
	rows, err := db.QueryContext(ctx, `SELECT id, category, name, price, duration FROM services ORDER BY category, name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list services: %w", err)
	}
	defer rows.Close()

	var services []models.Service
	for rows.Next() {
		var s models.Service
		if err := rows.Scan(&s.ID, &s.Category, &s.Name, &s.Price, &s.Duration); err != nil {
			return nil, fmt.Errorf("failed to scan service: %w", err)
		}
		services = append(services, s)
	}
	return services, rows.Err()
}

func (db *DB) ListStaff(ctx context.Context) ([]models.Staff, error) {
	rows, err := db.QueryContext(ctx, `SELECT id, name FROM staff ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list staff: %w", err)
	}
	defer rows.Close()

	var staff []models.Staff
	for rows.Next() {
		var s models.Staff
		if err := rows.Scan(&s.ID, &s.Name); err != nil {
			return nil, fmt.Errorf("failed to scan staff: %w", err)
		}
		staff = append(staff, s)
	}
	return staff, rows.Err()
}

func (db *DB) ListStaffServices(ctx context.Context) ([]models.StaffService, error) {
	rows, err := db.QueryContext(ctx, `SELECT staff_id, service_id FROM staff_services ORDER BY staff_id, service_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list staff services: %w", err)
	}
	defer rows.Close()

	var links []models.StaffService
	for rows.Next() {
		var l models.StaffService
		if err := rows.Scan(&l.StaffID, &l.ServiceID); err != nil {
			return nil, fmt.Errorf("failed to scan staff service: %w", err)
		}
		links = append(links, l)
	}
	return links, rows.Err()
}

func (db *DB) CountServices(ctx context.Context) (int, error) {
	var n int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM services`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count services: %w", err)
	}
	return n, nil
}

// SyncCatalog upserts services and staff by id and replaces the eligibility rows.
// Services missing from the catalog are kept because bookings reference them.
func (db *DB) SyncCatalog(ctx context.Context, catalog models.Catalog) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for _, s := range catalog.Services {
		if s.ID == 0 {
			return fmt.Errorf("service %q has invalid ID 0", s.Name)
		}
		_, err := tx.ExecContext(ctx, `
            INSERT INTO services (id, category, name, price, duration) VALUES (?, ?, ?, ?, ?)
            ON CONFLICT(id) DO UPDATE SET category = excluded.category, name = excluded.name,
                price = excluded.price, duration = excluded.duration`,
			s.ID, s.Category, s.Name, s.Price, s.Duration)
		if err != nil {
			return fmt.Errorf("failed to upsert service %d: %w", s.ID, err)
		}
	}

	for _, s := range catalog.Staff {
		if s.ID == 0 {
			return fmt.Errorf("staff %q has invalid ID 0", s.Name)
		}
		_, err := tx.ExecContext(ctx, `
            INSERT INTO staff (id, name) VALUES (?, ?)
            ON CONFLICT(id) DO UPDATE SET name = excluded.name`, s.ID, s.Name)
		if err != nil {
			return fmt.Errorf("failed to upsert staff %d: %w", s.ID, err)
		}
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM staff_services`); err != nil {
		return fmt.Errorf("failed to clear staff services: %w", err)
	}
	for _, l := range catalog.StaffServices {
		_, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO staff_services (staff_id, service_id) VALUES (?, ?)`,
			l.StaffID, l.ServiceID)
		if err != nil {
			return fmt.Errorf("failed to link staff %d to service %d: %w", l.StaffID, l.ServiceID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit catalog: %w", err)
	}

	db.logger.Info().
		Int("services", len(catalog.Services)).
		Int("staff", len(catalog.Staff)).
		Int("links", len(catalog.StaffServices)).
		Msg("Catalog synced")
	return nil
}
