package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"courier-dispatch/internal/domain"
)

// PackageTypeRepo reads the package type catalog.
type PackageTypeRepo struct{ db *pgxpool.Pool }

// NewPackageTypeRepo creates a new PackageTypeRepo.
func NewPackageTypeRepo(db *pgxpool.Pool) *PackageTypeRepo { return &PackageTypeRepo{db: db} }

// Get - returns a package type by ID.
func (r *PackageTypeRepo) Get(ctx context.Context, id int64) (*domain.PackageType, error) {
	var p domain.PackageType
	err := r.db.QueryRow(ctx,
		`SELECT id, name, base_price, max_weight FROM package_types WHERE id=$1`, id,
	).Scan(&p.ID, &p.Name, &p.BasePrice, &p.MaxWeight)
	if err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get package type %d: %w", id, err)
	}
	return &p, nil
}

// List returns the whole catalog ordered by ID.
func (r *PackageTypeRepo) List(ctx context.Context) ([]domain.PackageType, error) {
	rows, err := r.db.Query(ctx, `SELECT id, name, base_price, max_weight FROM package_types ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.PackageType
	for rows.Next() {
		var p domain.PackageType
		if err := rows.Scan(&p.ID, &p.Name, &p.BasePrice, &p.MaxWeight); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
