package postgres

import (
	"context"
	"database/sql"
	"time"

	"safehaven/internal/domain/stats"
)

type StatsRepo struct {
	db *sql.DB
}

func NewStatsRepo(db *sql.DB) *StatsRepo {
	return &StatsRepo{db: db}
}

// PetStats: contadores globales con FILTER en una pasada, más los
// breakdowns por tipo y por ubicación (top 10).
func (r *StatsRepo) PetStats(ctx context.Context, since time.Time) (stats.PetStats, error) {
	var st stats.PetStats

	err := r.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE urgent),
			COUNT(*) FILTER (WHERE status = 'adopcion'),
			COUNT(*) FILTER (WHERE status = 'rescate'),
			COUNT(*) FILTER (WHERE status = 'adoptado'),
			COUNT(*) FILTER (WHERE created_at > $1)
		FROM pets
	`, since).Scan(
		&st.Total,
		&st.Urgent,
		&st.Adoption,
		&st.Rescue,
		&st.Adopted,
		&st.Recent,
	)
	if err != nil {
		return stats.PetStats{}, err
	}

	st.ByType, err = r.countsBy(ctx, `
		SELECT type, COUNT(*)
		FROM pets
		GROUP BY type
		ORDER BY COUNT(*) DESC, type ASC
	`)
	if err != nil {
		return stats.PetStats{}, err
	}

	st.ByLocation, err = r.countsBy(ctx, `
		SELECT location, COUNT(*)
		FROM pets
		WHERE location <> ''
		GROUP BY location
		ORDER BY COUNT(*) DESC, location ASC
		LIMIT 10
	`)
	if err != nil {
		return stats.PetStats{}, err
	}

	return st, nil
}

func (r *StatsRepo) CountUsers(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n)
	return n, err
}

func (r *StatsRepo) countsBy(ctx context.Context, query string) ([]stats.CountByKey, error) {
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]stats.CountByKey, 0)
	for rows.Next() {
		var c stats.CountByKey
		if err := rows.Scan(&c.Key, &c.Count); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
