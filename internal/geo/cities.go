package geo

import (
	"context"
	"strings"
)

// spanishCities es la tabla estática de ciudades conocidas.
// Se usa como último recurso cuando el cliente no mandó coordenadas
// y el geocoder externo no respondió.
var spanishCities = map[string]Coordinates{
	"madrid":    {Lat: 40.4168, Lng: -3.7038},
	"barcelona": {Lat: 41.3851, Lng: 2.1734},
	"valencia":  {Lat: 39.4699, Lng: -0.3763},
	"sevilla":   {Lat: 37.3886, Lng: -5.9823},
	"zaragoza":  {Lat: 41.6488, Lng: -0.8891},
	"málaga":    {Lat: 36.7213, Lng: -4.4214},
	"murcia":    {Lat: 37.9922, Lng: -1.1307},
	"palma":     {Lat: 39.5696, Lng: 2.6502},
	"bilbao":    {Lat: 43.2627, Lng: -2.9253},
	"alicante":  {Lat: 38.3452, Lng: -0.481},
}

// CityTable es la estrategia de fallback por tabla fija: matchea por
// substring case-insensitive contra nombres de ciudad conocidos.
type CityTable struct{}

func NewCityTable() CityTable {
	return CityTable{}
}

func (CityTable) Resolve(_ context.Context, location string) (Coordinates, error) {
	loc := strings.ToLower(strings.TrimSpace(location))
	if loc == "" {
		return Coordinates{}, ErrNoMatch
	}

	for city, coords := range spanishCities {
		if strings.Contains(loc, city) {
			return coords, nil
		}
	}

	return Coordinates{}, ErrNoMatch
}
