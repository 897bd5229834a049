package pets

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"safehaven/internal/cache"
	"safehaven/internal/middleware"
	"safehaven/internal/platform/metrics"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

const (
	placeholderImage          = "/placeholder.svg?height=300&width=400"
	placeholderImageOptimized = "/placeholder.jpg"
)

// Caches agrupa los dos caches de respuesta del listado. Son dos instancias
// del mismo tipo parametrizado con TTL/capacidad distintos (30s/100 para el
// listado general, 15s/50 para la carga inicial).
type Caches struct {
	Listings  *cache.Cache
	Optimized *cache.Cache
}

// InvalidateAll limpia ambos caches. Las escrituras invalidan todo;
// no hace falta granularidad.
func (c Caches) InvalidateAll() {
	if c.Listings != nil {
		c.Listings.Clear()
	}
	if c.Optimized != nil {
		c.Optimized.Clear()
	}
}

func RegisterRoutes(r chi.Router, svc *Service, caches Caches, m *metrics.Metrics) {
	r.Route("/api/pets", func(pr chi.Router) {
		pr.Get("/", listPetsHandler(svc, caches, m))
		pr.Get("/optimized", optimizedPetsHandler(svc, caches, m))
		pr.Post("/", createPetHandler(svc, caches, m))

		pr.Get("/{petID}", getPetHandler(svc))
		pr.Put("/{petID}", updatePetHandler(svc, caches))
		pr.Delete("/{petID}", deletePetHandler(svc, caches))
	})
}

type petResponse struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Type          string    `json:"type"`
	Breed         string    `json:"breed"`
	Age           string    `json:"age"`
	Location      string    `json:"location"`
	Description   string    `json:"description"`
	Image         string    `json:"image"`
	ImagePublicID string    `json:"imagePublicId,omitempty"`
	Status        string    `json:"status"`
	Urgent        bool      `json:"urgent"`
	Contact       string    `json:"contact"`
	Lat           float64   `json:"lat"`
	Lng           float64   `json:"lng"`
	UserID        string    `json:"userId"`
	UserName      string    `json:"userName"`
	UserEmail     string    `json:"userEmail"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// optimizedPetResponse omite los campos pesados (description) para que la
// carga inicial viaje liviana.
type optimizedPetResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Type      string    `json:"type"`
	Breed     string    `json:"breed"`
	Age       string    `json:"age"`
	Location  string    `json:"location"`
	Image     string    `json:"image"`
	Status    string    `json:"status"`
	Urgent    bool      `json:"urgent"`
	Contact   string    `json:"contact"`
	Lat       float64   `json:"lat"`
	Lng       float64   `json:"lng"`
	UserID    string    `json:"userId"`
	UserName  string    `json:"userName"`
	UserEmail string    `json:"userEmail"`
	CreatedAt time.Time `json:"createdAt"`
}

type searchResponse struct {
	Pets       []petResponse `json:"pets"`
	Total      int           `json:"total"`
	Page       int           `json:"page"`
	TotalPages int           `json:"totalPages"`
}

type optimizedResponse struct {
	Pets       []optimizedPetResponse `json:"pets"`
	Total      int                    `json:"total"`
	Page       int                    `json:"page"`
	TotalPages int                    `json:"totalPages"`
	HasMore    bool                   `json:"hasMore"`
}

// listPetsHandler godoc
// @Summary  Buscar listados de mascotas
// @Param    q      query string false "texto libre"
// @Param    type   query string false "tipo de animal o all"
// @Param    urgent query string false "true para solo urgentes"
// @Param    status query string false "estado o all (ausente excluye adoptados)"
// @Param    userId query string false "filtrar por dueño"
// @Param    limit  query int    false "máx 50"
// @Param    page   query int    false "página, desde 1"
// @Success  200 {object} searchResponse
// @Router   /api/pets [get]
func listPetsHandler(svc *Service, caches Caches, m *metrics.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := cache.Key(r.URL.Query())

		if body, ok := caches.Listings.Get(key); ok {
			m.ObserveCache("listings", true)
			writeRawJSON(w, http.StatusOK, body)
			return
		}
		m.ObserveCache("listings", false)

		f := filterFromQuery(r)
		f.Normalize(MaxLimit)

		items, total, err := svc.Search(r.Context(), f, MaxLimit)
		if err != nil {
			if errors.Is(err, ErrInvalidInput) {
				writeError(w, http.StatusBadRequest, "parámetros de búsqueda inválidos")
				return
			}
			writeError(w, http.StatusInternalServerError, "error interno del servidor")
			return
		}

		out := make([]petResponse, 0, len(items))
		for _, it := range items {
			out = append(out, toPetResponse(it))
		}

		totalPages := 0
		if total > 0 {
			totalPages = (total + f.Limit - 1) / f.Limit
		}

		resp := searchResponse{
			Pets:       out,
			Total:      total,
			Page:       f.Page,
			TotalPages: totalPages,
		}

		body, err := json.Marshal(resp)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "error interno del servidor")
			return
		}

		caches.Listings.Set(key, body)
		writeRawJSON(w, http.StatusOK, body)
	}
}

// optimizedPetsHandler godoc
// @Summary  Carga inicial optimizada
// @Param    q     query string false "texto libre"
// @Param    type  query string false "tipo de animal o all"
// @Param    limit query int    false "máx 24"
// @Success  200 {object} optimizedResponse
// @Router   /api/pets/optimized [get]
func optimizedPetsHandler(svc *Service, caches Caches, m *metrics.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := cache.Key(r.URL.Query())

		if body, ok := caches.Optimized.Get(key); ok {
			m.ObserveCache("optimized", true)
			writeRawJSON(w, http.StatusOK, body)
			return
		}
		m.ObserveCache("optimized", false)

		q := r.URL.Query()
		f := SearchFilter{
			Query: strings.TrimSpace(q.Get("q")),
			Type:  q.Get("type"),
			Limit: intParam(q.Get("limit"), DefaultLimit),
			Page:  1,
		}
		f.Normalize(MaxOptimizedLimit)

		items, _, err := svc.Search(r.Context(), f, MaxOptimizedLimit)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "error interno del servidor")
			return
		}

		out := make([]optimizedPetResponse, 0, len(items))
		for _, it := range items {
			out = append(out, toOptimizedResponse(it))
		}

		resp := optimizedResponse{
			Pets:       out,
			Total:      len(out),
			Page:       1,
			TotalPages: 1,
			HasMore:    len(out) == f.Limit,
		}

		body, err := json.Marshal(resp)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "error interno del servidor")
			return
		}

		caches.Optimized.Set(key, body)
		writeRawJSON(w, http.StatusOK, body)
	}
}

// getPetHandler godoc
// @Summary  Obtener un listado por ID
// @Param    petID path string true "ID"
// @Success  200 {object} map[string]petResponse
// @Router   /api/pets/{petID} [get]
func getPetHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		petID := chi.URLParam(r, "petID")
		if _, err := uuid.Parse(petID); err != nil {
			writeError(w, http.StatusBadRequest, "ID de mascota inválido")
			return
		}

		p, err := svc.GetWithOwner(r.Context(), petID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				writeError(w, http.StatusNotFound, "mascota no encontrada")
				return
			}
			writeError(w, http.StatusInternalServerError, "error interno del servidor")
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{"pet": toPetResponse(p)})
	}
}

type createPetRequest struct {
	Name          string  `json:"name"`
	Type          string  `json:"type"`
	Breed         string  `json:"breed"`
	Age           string  `json:"age"`
	Location      string  `json:"location"`
	Description   string  `json:"description"`
	Image         string  `json:"image"`
	ImagePublicID string  `json:"imagePublicId"`
	Status        string  `json:"status"`
	Urgent        bool    `json:"urgent"`
	Contact       string  `json:"contact"`
	Lat           float64 `json:"lat"`
	Lng           float64 `json:"lng"`
}

// createPetHandler godoc
// @Summary  Crear listado (requiere auth)
// @Success  201 {object} map[string]any
// @Router   /api/pets [post]
func createPetHandler(svc *Service, caches Caches, m *metrics.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			writeError(w, http.StatusUnauthorized, "token de autenticación requerido")
			return
		}

		var req createPetRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "JSON inválido")
			return
		}

		p, err := svc.Create(r.Context(), claims.UserID, CreateInput(req))
		if err != nil {
			switch {
			case errors.Is(err, ErrNoCoordinates):
				writeError(w, http.StatusBadRequest, "no pudimos ubicar esa dirección, seleccioná la ubicación en el mapa")
			case errors.Is(err, ErrInvalidInput):
				writeError(w, http.StatusBadRequest, "datos de mascota inválidos")
			default:
				writeError(w, http.StatusInternalServerError, "error interno del servidor")
			}
			return
		}

		m.IncListingsCreated()
		caches.InvalidateAll()

		writeJSON(w, http.StatusCreated, map[string]any{
			"message": "Mascota creada exitosamente",
			"pet": toPetResponse(PetWithOwner{
				Pet:        p,
				OwnerName:  claims.Name,
				OwnerEmail: claims.Email,
			}),
		})
	}
}

type updatePetRequest struct {
	Name          *string  `json:"name"`
	Type          *string  `json:"type"`
	Breed         *string  `json:"breed"`
	Age           *string  `json:"age"`
	Location      *string  `json:"location"`
	Description   *string  `json:"description"`
	Image         *string  `json:"image"`
	ImagePublicID *string  `json:"imagePublicId"`
	Status        *string  `json:"status"`
	Urgent        *bool    `json:"urgent"`
	Contact       *string  `json:"contact"`
	Lat           *float64 `json:"lat"`
	Lng           *float64 `json:"lng"`
}

// updatePetHandler godoc
// @Summary  Actualizar listado (solo el dueño)
// @Param    petID path string true "ID"
// @Router   /api/pets/{petID} [put]
func updatePetHandler(svc *Service, caches Caches) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			writeError(w, http.StatusUnauthorized, "token de autenticación requerido")
			return
		}

		petID := chi.URLParam(r, "petID")
		if _, err := uuid.Parse(petID); err != nil {
			writeError(w, http.StatusBadRequest, "ID de mascota inválido")
			return
		}

		var req updatePetRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "JSON inválido")
			return
		}

		p, err := svc.Update(r.Context(), petID, claims.UserID, UpdateInput(req))
		if err != nil {
			writeDomainError(w, err)
			return
		}

		caches.InvalidateAll()

		writeJSON(w, http.StatusOK, map[string]any{
			"message": "Mascota actualizada exitosamente",
			"pet": toPetResponse(PetWithOwner{
				Pet:        p,
				OwnerName:  claims.Name,
				OwnerEmail: claims.Email,
			}),
		})
	}
}

// deletePetHandler godoc
// @Summary  Eliminar listado (solo el dueño)
// @Param    petID path string true "ID"
// @Router   /api/pets/{petID} [delete]
func deletePetHandler(svc *Service, caches Caches) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			writeError(w, http.StatusUnauthorized, "token de autenticación requerido")
			return
		}

		petID := chi.URLParam(r, "petID")
		if _, err := uuid.Parse(petID); err != nil {
			writeError(w, http.StatusBadRequest, "ID de mascota inválido")
			return
		}

		if err := svc.Delete(r.Context(), petID, claims.UserID); err != nil {
			writeDomainError(w, err)
			return
		}

		caches.InvalidateAll()

		writeJSON(w, http.StatusOK, map[string]any{
			"message": "Mascota eliminada exitosamente",
		})
	}
}

func filterFromQuery(r *http.Request) SearchFilter {
	q := r.URL.Query()
	return SearchFilter{
		Query:       strings.TrimSpace(q.Get("q")),
		Type:        q.Get("type"),
		Urgent:      q.Get("urgent") == "true",
		Status:      q.Get("status"),
		OwnerUserID: strings.TrimSpace(q.Get("userId")),
		Limit:       intParam(q.Get("limit"), DefaultLimit),
		Page:        intParam(q.Get("page"), 1),
	}
}

func intParam(v string, def int) int {
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func toPetResponse(p PetWithOwner) petResponse {
	image := p.Image
	if image == "" {
		image = placeholderImage
	}
	return petResponse{
		ID:            p.ID,
		Name:          p.Name,
		Type:          string(p.Type),
		Breed:         p.Breed,
		Age:           p.Age,
		Location:      p.Location,
		Description:   p.Description,
		Image:         image,
		ImagePublicID: p.ImagePublicID,
		Status:        string(p.Status),
		Urgent:        p.Urgent,
		Contact:       p.Contact,
		Lat:           p.Lat,
		Lng:           p.Lng,
		UserID:        p.OwnerUserID,
		UserName:      p.OwnerName,
		UserEmail:     p.OwnerEmail,
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}
}

func toOptimizedResponse(p PetWithOwner) optimizedPetResponse {
	image := p.Image
	if image == "" {
		image = placeholderImageOptimized
	}
	return optimizedPetResponse{
		ID:        p.ID,
		Name:      p.Name,
		Type:      string(p.Type),
		Breed:     p.Breed,
		Age:       p.Age,
		Location:  p.Location,
		Image:     image,
		Status:    string(p.Status),
		Urgent:    p.Urgent,
		Contact:   p.Contact,
		Lat:       p.Lat,
		Lng:       p.Lng,
		UserID:    p.OwnerUserID,
		UserName:  p.OwnerName,
		UserEmail: p.OwnerEmail,
		CreatedAt: p.CreatedAt,
	}
}

func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		writeError(w, http.StatusNotFound, "mascota no encontrada")
	case errors.Is(err, ErrForbidden):
		writeError(w, http.StatusForbidden, "no tenés permisos sobre esta mascota")
	case errors.Is(err, ErrNoCoordinates), errors.Is(err, ErrInvalidInput):
		writeError(w, http.StatusBadRequest, "datos de mascota inválidos")
	default:
		writeError(w, http.StatusInternalServerError, "error interno del servidor")
	}
}

// writeJSON/writeError están duplicados en los handlers de cada módulo a
// propósito; si se repiten en más lugares, recién ahí conviene extraerlos.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeRawJSON(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
