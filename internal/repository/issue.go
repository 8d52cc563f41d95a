package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"courier-dispatch/internal/domain"
)

// IssueRepo persists delivery problem reports.
type IssueRepo struct{ db *pgxpool.Pool }

// NewIssueRepo creates a new IssueRepo.
func NewIssueRepo(db *pgxpool.Pool) *IssueRepo { return &IssueRepo{db: db} }

// Insert - stores an issue report and fills in its ID.
func (r *IssueRepo) Insert(ctx context.Context, i *domain.DeliveryIssue) error {
	err := r.db.QueryRow(ctx, `
        INSERT INTO delivery_issues (delivery_id, reporter_id, category, description)
        VALUES ($1,$2,$3,$4)
        RETURNING id, created_at
    `, i.DeliveryID, i.ReporterID, i.Category, i.Description).Scan(&i.ID, &i.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert delivery issue: %w", err)
	}
	return nil
}

// ListByDelivery returns issue reports oldest first.
func (r *IssueRepo) ListByDelivery(ctx context.Context, deliveryID int64) ([]domain.DeliveryIssue, error) {
	rows, err := r.db.Query(ctx, `
        SELECT id, delivery_id, reporter_id, category, description, created_at
        FROM delivery_issues
        WHERE delivery_id = $1
        ORDER BY created_at, id
    `, deliveryID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.DeliveryIssue
	for rows.Next() {
		var i domain.DeliveryIssue
		if err := rows.Scan(&i.ID, &i.DeliveryID, &i.ReporterID, &i.Category, &i.Description, &i.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, i)
	}
	return out, rows.Err()
}
