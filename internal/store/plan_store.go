package store

import (
	"context"

	"invest/internal/models"
)

type PlanStore struct {
	db DB
}

func NewPlanStore(db DB) *PlanStore {
	return &PlanStore{db: db}
}

func (s *PlanStore) Create(ctx context.Context, tx Execer, plan models.InvestmentPlan) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO investment_plans (id, name, type, roi_value, is_active)
		VALUES ($1, $2, $3, $4, $5)
	`, plan.ID, plan.Name, plan.Type, plan.ROIValue, plan.IsActive)
	return err
}

func (s *PlanStore) GetByID(ctx context.Context, q Getter, planID string) (models.InvestmentPlan, error) {
	var row models.InvestmentPlan
	err := q.GetContext(ctx, &row, `
		SELECT id, name, type, roi_value, is_active, created_at
		FROM investment_plans
		WHERE id = $1
	`, planID)
	return row, err
}

func (s *PlanStore) ListActive(ctx context.Context) ([]models.InvestmentPlan, error) {
	var rows []models.InvestmentPlan
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, name, type, roi_value, is_active, created_at
		FROM investment_plans
		WHERE is_active
		ORDER BY created_at
	`)
	return rows, err
}
