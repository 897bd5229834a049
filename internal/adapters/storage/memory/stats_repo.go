package memory

import (
	"context"
	"sort"
	"time"

	"safehaven/internal/domain/pets"
	"safehaven/internal/domain/stats"
)

// StatsRepo agrega sobre los repos en memoria.
type StatsRepo struct {
	pets  *PetRepo
	users *UserRepo
}

func NewStatsRepo(petRepo *PetRepo, userRepo *UserRepo) *StatsRepo {
	return &StatsRepo{pets: petRepo, users: userRepo}
}

func (r *StatsRepo) PetStats(ctx context.Context, since time.Time) (stats.PetStats, error) {
	r.pets.mu.RLock()
	defer r.pets.mu.RUnlock()

	var st stats.PetStats
	byType := make(map[string]int)
	byLocation := make(map[string]int)

	for _, p := range r.pets.byID {
		st.Total++
		if p.Urgent {
			st.Urgent++
		}
		switch p.Status {
		case pets.StatusAdopcion:
			st.Adoption++
		case pets.StatusRescate:
			st.Rescue++
		case pets.StatusAdoptado:
			st.Adopted++
		}
		if p.CreatedAt.After(since) {
			st.Recent++
		}
		byType[string(p.Type)]++
		if p.Location != "" {
			byLocation[p.Location]++
		}
	}

	st.ByType = toSortedCounts(byType, 0)
	st.ByLocation = toSortedCounts(byLocation, 10)
	return st, nil
}

func (r *StatsRepo) CountUsers(ctx context.Context) (int, error) {
	return r.users.Count(ctx)
}

// toSortedCounts ordena por count desc (empate: key asc) y corta en limit.
func toSortedCounts(m map[string]int, limit int) []stats.CountByKey {
	out := make([]stats.CountByKey, 0, len(m))
	for k, n := range m {
		out = append(out, stats.CountByKey{Key: k, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Key < out[j].Key
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
