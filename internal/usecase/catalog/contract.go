package catalog

import (
	"context"

	"github.com/totsar/lostfound/internal/domain"
)

// Repository is the storage contract for catalogue items.
type Repository interface {
	Create(ctx context.Context, it domain.Item) (domain.Item, error)
	Get(ctx context.Context, id int64) (domain.Item, error)
	ListAll(ctx context.Context) ([]domain.Item, error)
	Update(ctx context.Context, it domain.Item) error
	Delete(ctx context.Context, id int64) error
}
