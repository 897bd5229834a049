package memory

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"safehaven/internal/domain/pets"
)

// PetRepo es el adapter en memoria para dev/tests.
// Devuelve los sentinels del dominio para que el service mapee con errors.Is.
type PetRepo struct {
	mu   sync.RWMutex
	byID map[string]pets.Pet

	// users permite enriquecer resultados con nombre/email del dueño.
	// Puede ser nil (tests de pets puros).
	users *UserRepo
}

func NewPetRepo(users *UserRepo) *PetRepo {
	return &PetRepo{
		byID:  make(map[string]pets.Pet),
		users: users,
	}
}

func (r *PetRepo) Create(ctx context.Context, p pets.Pet) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if strings.TrimSpace(p.ID) == "" {
		return errors.New("pet id required")
	}
	if _, exists := r.byID[p.ID]; exists {
		return errors.New("pet already exists")
	}
	r.byID[p.ID] = p
	return nil
}

func (r *PetRepo) Update(ctx context.Context, p pets.Pet) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byID[p.ID]; !exists {
		return pets.ErrNotFound
	}
	r.byID[p.ID] = p
	return nil
}

func (r *PetRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byID[id]; !exists {
		return pets.ErrNotFound
	}
	delete(r.byID, id)
	return nil
}

func (r *PetRepo) GetByID(ctx context.Context, id string) (pets.Pet, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.byID[id]
	if !ok {
		return pets.Pet{}, pets.ErrNotFound
	}
	return p, nil
}

func (r *PetRepo) GetWithOwner(ctx context.Context, id string) (pets.PetWithOwner, error) {
	r.mu.RLock()
	p, ok := r.byID[id]
	r.mu.RUnlock()

	if !ok {
		return pets.PetWithOwner{}, pets.ErrNotFound
	}
	return r.withOwner(ctx, p), nil
}

// Search filtra, ordena por created_at desc y pagina.
// El match de texto es substring case-insensitive sobre name/breed/location/
// description; suficiente para dev, el adapter de Postgres hace full-text.
func (r *PetRepo) Search(ctx context.Context, f pets.SearchFilter) ([]pets.PetWithOwner, int, error) {
	r.mu.RLock()

	matched := make([]pets.Pet, 0)
	for _, p := range r.byID {
		if !matchesFilter(p, f) {
			continue
		}
		matched = append(matched, p)
	}
	r.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := len(matched)

	start := (f.Page - 1) * f.Limit
	if start >= total {
		return []pets.PetWithOwner{}, total, nil
	}
	end := start + f.Limit
	if end > total {
		end = total
	}

	out := make([]pets.PetWithOwner, 0, end-start)
	for _, p := range matched[start:end] {
		out = append(out, r.withOwner(ctx, p))
	}
	return out, total, nil
}

func (r *PetRepo) CountByOwner(ctx context.Context, ownerUserID string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := 0
	for _, p := range r.byID {
		if p.OwnerUserID == ownerUserID {
			n++
		}
	}
	return n, nil
}

func matchesFilter(p pets.Pet, f pets.SearchFilter) bool {
	// Sin status explícito se excluyen los ya adoptados.
	switch f.Status {
	case "":
		if p.Status == pets.StatusAdoptado {
			return false
		}
	case "all":
		// sin filtro
	default:
		if string(p.Status) != f.Status {
			return false
		}
	}

	if f.Type != "" && f.Type != "all" && string(p.Type) != f.Type {
		return false
	}
	if f.Urgent && !p.Urgent {
		return false
	}
	if f.OwnerUserID != "" && p.OwnerUserID != f.OwnerUserID {
		return false
	}

	if q := strings.ToLower(strings.TrimSpace(f.Query)); q != "" {
		haystacks := []string{p.Name, p.Breed, p.Location, p.Description}
		found := false
		for _, h := range haystacks {
			if strings.Contains(strings.ToLower(h), q) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	return true
}

func (r *PetRepo) withOwner(ctx context.Context, p pets.Pet) pets.PetWithOwner {
	pw := pets.PetWithOwner{Pet: p}
	if r.users == nil {
		return pw
	}
	if u, err := r.users.GetByID(ctx, p.OwnerUserID); err == nil {
		pw.OwnerName = u.Name
		pw.OwnerEmail = u.Email
	}
	return pw
}
