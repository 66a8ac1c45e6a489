package tenant

import (
	"context"
	"fmt"
	"time"
)

// CheckEmployeeLimit checks whether the organization can provision another
// employee principal under its plan
func (s *Service) CheckEmployeeLimit(ctx context.Context, orgID string) error {
	org, err := s.Get(ctx, orgID)
	if err != nil {
		return err
	}

	query := `
		SELECT COUNT(*)
		FROM principals
		WHERE organization_id = $1 AND role IN ('admin', 'employee') AND status = 'active'
	`
	var count int
	if err := s.db.QueryRowContext(ctx, query, orgID).Scan(&count); err != nil {
		return fmt.Errorf("failed to count employees: %w", err)
	}

	if count >= org.Limits.MaxEmployees {
		return &LimitExceededError{Resource: "employees", Current: count, Limit: org.Limits.MaxEmployees}
	}
	return nil
}

// CheckStoreLimit checks whether the organization can open another store
func (s *Service) CheckStoreLimit(ctx context.Context, orgID string) error {
	org, err := s.Get(ctx, orgID)
	if err != nil {
		return err
	}

	query := `SELECT COUNT(*) FROM stores WHERE organization_id = $1`
	var count int
	if err := s.db.QueryRowContext(ctx, query, orgID).Scan(&count); err != nil {
		return fmt.Errorf("failed to count stores: %w", err)
	}

	if count >= org.Limits.MaxStores {
		return &LimitExceededError{Resource: "stores", Current: count, Limit: org.Limits.MaxStores}
	}
	return nil
}

// CheckAppointmentLimit checks whether the organization has monthly
// appointment quota remaining
func (s *Service) CheckAppointmentLimit(ctx context.Context, orgID string, now time.Time) error {
	org, err := s.Get(ctx, orgID)
	if err != nil {
		return err
	}

	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	query := `
		SELECT COUNT(*)
		FROM appointments
		WHERE organization_id = $1 AND created_at >= $2
	`
	var count int
	if err := s.db.QueryRowContext(ctx, query, orgID, monthStart).Scan(&count); err != nil {
		return fmt.Errorf("failed to count appointments: %w", err)
	}

	if count >= org.Limits.MaxMonthlyAppointments {
		return &LimitExceededError{Resource: "appointments", Current: count, Limit: org.Limits.MaxMonthlyAppointments}
	}
	return nil
}
