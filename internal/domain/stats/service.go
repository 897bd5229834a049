package stats

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// DefaultTTL es la ventana en la que se sirve el snapshot memoizado.
const DefaultTTL = 5 * time.Minute

// CountByKey es un renglón de breakdown (por tipo o por ubicación).
type CountByKey struct {
	Key   string `json:"_id"`
	Count int    `json:"count"`
}

// PetStats es el resultado de la única pasada de agregación sobre listados.
type PetStats struct {
	Total    int
	Urgent   int
	Adoption int
	Rescue   int
	Adopted  int
	Recent   int // creados en los últimos 30 días

	ByType     []CountByKey
	ByLocation []CountByKey // top 10
}

// Snapshot es la respuesta completa del endpoint de estadísticas.
type Snapshot struct {
	TotalPets           int          `json:"totalPets"`
	UrgentPets          int          `json:"urgentPets"`
	AdoptionPets        int          `json:"adoptionPets"`
	RescuePets          int          `json:"rescuePets"`
	TotalUsers          int          `json:"totalUsers"`
	RecentPets          int          `json:"recentPets"`
	PetsByType          []CountByKey `json:"petsByType"`
	PetsByLocation      []CountByKey `json:"petsByLocation"`
	SuccessfulAdoptions int          `json:"successfulAdoptions"`
}

// Repository agrega sobre el almacenamiento: una pasada sobre pets más un
// count de usuarios.
type Repository interface {
	PetStats(ctx context.Context, since time.Time) (PetStats, error)
	CountUsers(ctx context.Context) (int, error)
}

// Service memoiza el snapshot por TTL. Requests concurrentes durante una
// ventana vencida pueden recomputar en paralelo; vale la pena aceptar el
// trabajo duplicado antes que serializarlos.
type Service struct {
	repo Repository
	ttl  time.Duration

	mu       sync.Mutex
	snapshot *Snapshot
	takenAt  time.Time

	now func() time.Time
}

func NewService(repo Repository, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Service{
		repo: repo,
		ttl:  ttl,
		now:  time.Now,
	}
}

// Get devuelve el snapshot cacheado si sigue fresco; si no, recomputa:
// la agregación de pets y el count de usuarios corren en paralelo.
func (s *Service) Get(ctx context.Context) (Snapshot, error) {
	s.mu.Lock()
	if s.snapshot != nil && s.now().Sub(s.takenAt) < s.ttl {
		snap := *s.snapshot
		s.mu.Unlock()
		return snap, nil
	}
	s.mu.Unlock()

	var (
		petStats  PetStats
		userCount int
	)

	since := s.now().Add(-30 * 24 * time.Hour)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		petStats, err = s.repo.PetStats(gctx, since)
		return err
	})
	g.Go(func() error {
		var err error
		userCount, err = s.repo.CountUsers(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return Snapshot{}, err
	}

	snap := Snapshot{
		TotalPets:           petStats.Total,
		UrgentPets:          petStats.Urgent,
		AdoptionPets:        petStats.Adoption,
		RescuePets:          petStats.Rescue,
		TotalUsers:          userCount,
		RecentPets:          petStats.Recent,
		PetsByType:          petStats.ByType,
		PetsByLocation:      petStats.ByLocation,
		SuccessfulAdoptions: petStats.Adopted,
	}

	s.mu.Lock()
	s.snapshot = &snap
	s.takenAt = s.now()
	s.mu.Unlock()

	return snap, nil
}
