package cache

import (
	"encoding/json"
	"net/url"
	"sort"
	"sync"
	"time"
)

// Parámetros de los caches de búsqueda. El endpoint optimizado usa un TTL
// más corto y menos entradas porque sus payloads son más chicos y baratos
// de recomputar.
const (
	ListingsTTL  = 30 * time.Second
	ListingsCap  = 100
	OptimizedTTL = 15 * time.Second
	OptimizedCap = 50
)

// Cache es un cache en memoria con TTL y capacidad acotada.
// La expulsión al superar la capacidad es por orden de inserción (la entrada
// más antigua insertada sale primero), no por último acceso. Se preserva esa
// semántica a propósito: bajo cargas de mucha lectura se comporta distinto
// que un LRU real.
type Cache struct {
	mu  sync.Mutex
	ttl time.Duration
	cap int

	entries map[string]entry
	order   []string // orden de inserción de keys vigentes

	now func() time.Time
}

type entry struct {
	value    []byte
	storedAt time.Time
}

// New crea un cache con TTL y capacidad fijos.
// Se construye explícitamente y se inyecta donde haga falta; no hay estado
// global, así cada test puede crear el suyo.
func New(ttl time.Duration, capacity int) *Cache {
	if capacity <= 0 {
		capacity = 1
	}
	return &Cache{
		ttl:     ttl,
		cap:     capacity,
		entries: make(map[string]entry),
		order:   make([]string, 0, capacity),
		now:     time.Now,
	}
}

// Get devuelve el valor cacheado solo si no venció el TTL.
// Una entrada vencida cuenta como miss; nunca se sirve data vieja.
func (c *Cache) Get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if c.now().Sub(e.storedAt) >= c.ttl {
		return nil, false
	}
	return e.value, true
}

// Set guarda el valor con timestamp actual. Si al insertar se supera la
// capacidad, se elimina exactamente la entrada insertada más antigua.
func (c *Cache) Set(key string, value []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; exists {
		// Sobrescribir no cambia la posición de inserción original.
		c.entries[key] = entry{value: value, storedAt: c.now()}
		return
	}

	c.entries[key] = entry{value: value, storedAt: c.now()}
	c.order = append(c.order, key)

	if len(c.entries) > c.cap {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.entries, oldest)
	}
}

// Clear vacía el cache completo. Las mutaciones (create/update/delete)
// invalidan así; no hace falta invalidación fina.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]entry)
	c.order = c.order[:0]
}

// Len devuelve la cantidad de entradas almacenadas (vencidas incluidas).
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Key deriva una key determinística del set completo de query params:
// pares ordenados y serializados, así sets iguales en distinto orden
// colisionan a la misma key.
func Key(params url.Values) string {
	pairs := make([][2]string, 0, len(params))
	for k, vs := range params {
		for _, v := range vs {
			pairs = append(pairs, [2]string{k, v})
		}
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i][0] != pairs[j][0] {
			return pairs[i][0] < pairs[j][0]
		}
		return pairs[i][1] < pairs[j][1]
	})

	b, _ := json.Marshal(pairs)
	return string(b)
}
