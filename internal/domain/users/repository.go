package users

import "context"

type Repository interface {
	Create(ctx context.Context, u User) error
	GetByID(ctx context.Context, id string) (User, error)
	GetByEmail(ctx context.Context, email string) (User, error)
	Update(ctx context.Context, u User) error
	Count(ctx context.Context) (int, error)
	ConsentStats(ctx context.Context) (ConsentStats, error)
}
