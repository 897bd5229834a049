package geo

import (
	"context"
	"errors"
	"strings"
)

var (
	// ErrNoMatch: la estrategia no pudo resolver esa ubicación.
	ErrNoMatch = errors.New("no match for location")
)

// Coordinates es un par lat/lng válido para mostrar en mapa.
type Coordinates struct {
	Lat float64
	Lng float64
}

// Valid verifica los rangos lat ∈ [-90,90], lng ∈ [-180,180].
func (c Coordinates) Valid() bool {
	return c.Lat >= -90 && c.Lat <= 90 && c.Lng >= -180 && c.Lng <= 180
}

// Strategy resuelve texto libre de ubicación a coordenadas.
// Devuelve ErrNoMatch (o error de red) cuando no puede.
type Strategy interface {
	Resolve(ctx context.Context, location string) (Coordinates, error)
}

// Resolver compone estrategias en orden: gana la primera que resuelve.
// Lookup puro, sin efectos; los handlers deciden qué hacer si todas fallan.
type Resolver struct {
	strategies []Strategy
}

func NewResolver(strategies ...Strategy) *Resolver {
	return &Resolver{strategies: strategies}
}

// Resolve corta en la primera estrategia que devuelve coordenadas.
// Si ninguna resuelve, devuelve ErrNoMatch.
func (r *Resolver) Resolve(ctx context.Context, location string) (Coordinates, error) {
	location = strings.TrimSpace(location)
	if location == "" {
		return Coordinates{}, ErrNoMatch
	}

	for _, s := range r.strategies {
		coords, err := s.Resolve(ctx, location)
		if err != nil {
			// Falla de red o no-match: probar la siguiente.
			continue
		}
		if coords.Valid() {
			return coords, nil
		}
	}

	return Coordinates{}, ErrNoMatch
}
