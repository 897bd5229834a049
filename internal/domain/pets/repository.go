package pets

import "context"

// Límites de paginación por endpoint.
const (
	DefaultLimit      = 12
	MaxLimit          = 50
	MaxOptimizedLimit = 24
)

// SearchFilter son los parámetros normalizados de búsqueda.
type SearchFilter struct {
	Query       string // texto libre sobre name/breed/location/description
	Type        string // tipo o "all"/vacío
	Urgent      bool
	Status      string // estado, "all", o vacío (vacío => excluir adoptados)
	OwnerUserID string
	Page        int
	Limit       int
}

// Normalize clampea paginación: page >= 1, limit en (0, max].
func (f *SearchFilter) Normalize(maxLimit int) {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit <= 0 {
		f.Limit = DefaultLimit
	}
	if f.Limit > maxLimit {
		f.Limit = maxLimit
	}
}

// Repository es el port de almacenamiento de listados.
// Search devuelve la página pedida más el total de matches en una sola
// pasada lógica (el adapter de Postgres usa COUNT(*) OVER()).
type Repository interface {
	Create(ctx context.Context, p Pet) error
	GetByID(ctx context.Context, id string) (Pet, error)
	GetWithOwner(ctx context.Context, id string) (PetWithOwner, error)
	Update(ctx context.Context, p Pet) error
	Delete(ctx context.Context, id string) error
	Search(ctx context.Context, f SearchFilter) ([]PetWithOwner, int, error)
	CountByOwner(ctx context.Context, ownerUserID string) (int, error)
}
