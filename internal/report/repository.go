package report

import "context"

// Repository persists reports. Implementations return apperr.ErrNotFound for unknown ids
// and wrap store failures with apperr.ErrPersistence.
type Repository interface {
	Create(ctx context.Context, r *Report) (*Report, error)
	Get(ctx context.Context, id string) (*Report, error)
	// List is ordered by CreatedAt, newest first.
	List(ctx context.Context, f Filter) ([]*Report, error)
	// FindNearby returns reports within radiusMeters, nearest first.
	FindNearby(ctx context.Context, lat, lng, radiusMeters float64) ([]Nearby, error)
	Update(ctx context.Context, id string, p Patch) (*Report, error)
	// Delete of an unknown id succeeds.
	Delete(ctx context.Context, id string) error
}
