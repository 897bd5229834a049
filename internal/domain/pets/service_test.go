package pets

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"safehaven/internal/geo"
	"safehaven/internal/ports/images"
)

// -------------------------
// Fakes
// -------------------------

type testRepo struct {
	byID map[string]Pet

	searchCalls []SearchFilter
}

func newTestRepo() *testRepo {
	return &testRepo{byID: map[string]Pet{}}
}

func (r *testRepo) Create(ctx context.Context, p Pet) error {
	if _, ok := r.byID[p.ID]; ok {
		return errors.New("repo: already exists")
	}
	r.byID[p.ID] = p
	return nil
}

func (r *testRepo) Update(ctx context.Context, p Pet) error {
	if _, ok := r.byID[p.ID]; !ok {
		return ErrNotFound
	}
	r.byID[p.ID] = p
	return nil
}

func (r *testRepo) Delete(ctx context.Context, id string) error {
	if _, ok := r.byID[id]; !ok {
		return ErrNotFound
	}
	delete(r.byID, id)
	return nil
}

func (r *testRepo) GetByID(ctx context.Context, id string) (Pet, error) {
	p, ok := r.byID[id]
	if !ok {
		return Pet{}, ErrNotFound
	}
	return p, nil
}

func (r *testRepo) GetWithOwner(ctx context.Context, id string) (PetWithOwner, error) {
	p, err := r.GetByID(ctx, id)
	if err != nil {
		return PetWithOwner{}, err
	}
	return PetWithOwner{Pet: p}, nil
}

func (r *testRepo) Search(ctx context.Context, f SearchFilter) ([]PetWithOwner, int, error) {
	r.searchCalls = append(r.searchCalls, f)
	return []PetWithOwner{}, 0, nil
}

func (r *testRepo) CountByOwner(ctx context.Context, ownerUserID string) (int, error) {
	n := 0
	for _, p := range r.byID {
		if p.OwnerUserID == ownerUserID {
			n++
		}
	}
	return n, nil
}

type stubResolver struct {
	coords geo.Coordinates
	err    error
	calls  int
}

func (s *stubResolver) Resolve(ctx context.Context, location string) (geo.Coordinates, error) {
	s.calls++
	return s.coords, s.err
}

type stubImages struct {
	deleted   []string
	deleteErr error
}

func (s *stubImages) Upload(ctx context.Context, data []byte, contentType, publicID string) (images.UploadResult, error) {
	return images.UploadResult{}, errors.New("no usado en estos tests")
}

func (s *stubImages) Delete(ctx context.Context, publicID string) error {
	s.deleted = append(s.deleted, publicID)
	return s.deleteErr
}

// -------------------------
// Helpers
// -------------------------

func validCreateInput() CreateInput {
	return CreateInput{
		Name:        "Luna",
		Type:        "perro",
		Breed:       "mestizo",
		Age:         "2 años",
		Location:    "Madrid",
		Description: "muy cariñosa, busca hogar",
		Status:      "adopcion",
		Contact:     "+34 600 123 456",
	}
}

// -------------------------
// Tests
// -------------------------

func TestCreate_ResuelveCoordenadasDeLaUbicacion(t *testing.T) {
	repo := newTestRepo()
	resolver := &stubResolver{coords: geo.Coordinates{Lat: 40.4168, Lng: -3.7038}}
	svc := NewService(repo, resolver, nil, nil)

	p, err := svc.Create(context.Background(), "owner-1", validCreateInput())
	require.NoError(t, err)

	assert.Equal(t, 1, resolver.calls)
	assert.InDelta(t, 40.4168, p.Lat, 0.0001)
	assert.InDelta(t, -3.7038, p.Lng, 0.0001)
	assert.NotEmpty(t, p.ID)
	_, err = uuid.Parse(p.ID)
	assert.NoError(t, err)

	stored, err := repo.GetByID(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, "owner-1", stored.OwnerUserID)
}

func TestCreate_CoordenadasExplicitasNoGeocodifican(t *testing.T) {
	repo := newTestRepo()
	resolver := &stubResolver{err: geo.ErrNoMatch}
	svc := NewService(repo, resolver, nil, nil)

	in := validCreateInput()
	in.Lat = 41.38
	in.Lng = 2.17

	p, err := svc.Create(context.Background(), "owner-1", in)
	require.NoError(t, err)
	assert.Zero(t, resolver.calls)
	assert.InDelta(t, 41.38, p.Lat, 0.001)
}

func TestCreate_CoordenadaParcialSeResuelve(t *testing.T) {
	repo := newTestRepo()
	resolver := &stubResolver{coords: geo.Coordinates{Lat: 40.4168, Lng: -3.7038}}
	svc := NewService(repo, resolver, nil, nil)

	// Un solo eje en cero no es una coordenada usable: se geocodifica igual
	// que si no hubieran mandado nada.
	in := validCreateInput()
	in.Lat = 40.4
	in.Lng = 0

	p, err := svc.Create(context.Background(), "owner-1", in)
	require.NoError(t, err)
	assert.Equal(t, 1, resolver.calls)
	assert.InDelta(t, 40.4168, p.Lat, 0.0001)
	assert.InDelta(t, -3.7038, p.Lng, 0.0001)
}

func TestCreate_SinCoordenadasNiMatch_Rechaza(t *testing.T) {
	repo := newTestRepo()
	resolver := &stubResolver{err: geo.ErrNoMatch}
	svc := NewService(repo, resolver, nil, nil)

	in := validCreateInput()
	in.Location = "Villaperdida de Arriba"

	_, err := svc.Create(context.Background(), "owner-1", in)
	assert.ErrorIs(t, err, ErrNoCoordinates)
	assert.Empty(t, repo.byID)
}

func TestCreate_Validaciones(t *testing.T) {
	repo := newTestRepo()
	resolver := &stubResolver{coords: geo.Coordinates{Lat: 1, Lng: 1}}
	svc := NewService(repo, resolver, nil, nil)

	cases := []struct {
		name string
		mut  func(*CreateInput)
	}{
		{"sin nombre", func(in *CreateInput) { in.Name = "  " }},
		{"tipo desconocido", func(in *CreateInput) { in.Type = "dinosaurio" }},
		{"status desconocido", func(in *CreateInput) { in.Status = "perdido" }},
		{"sin descripción", func(in *CreateInput) { in.Description = "" }},
		{"sin ubicación", func(in *CreateInput) { in.Location = "" }},
		{"contacto corto", func(in *CreateInput) { in.Contact = "12345" }},
		{"contacto con letras", func(in *CreateInput) { in.Contact = "llamame ya" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := validCreateInput()
			tc.mut(&in)
			_, err := svc.Create(context.Background(), "owner-1", in)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}

func TestCreate_NormalizaTipoYStatus(t *testing.T) {
	repo := newTestRepo()
	resolver := &stubResolver{coords: geo.Coordinates{Lat: 1, Lng: 1}}
	svc := NewService(repo, resolver, nil, nil)

	in := validCreateInput()
	in.Type = "  PERRO "
	in.Status = "Adopcion"

	p, err := svc.Create(context.Background(), "owner-1", in)
	require.NoError(t, err)
	assert.Equal(t, TypePerro, p.Type)
	assert.Equal(t, StatusAdopcion, p.Status)
}

func TestUpdate_SoloElDueno(t *testing.T) {
	repo := newTestRepo()
	svc := NewService(repo, &stubResolver{}, nil, nil)

	p, err := svc.Create(context.Background(), "owner-1", withCoords(validCreateInput()))
	require.NoError(t, err)

	name := "Max"
	_, err = svc.Update(context.Background(), p.ID, "otro-usuario", UpdateInput{Name: &name})
	assert.ErrorIs(t, err, ErrForbidden)

	updated, err := svc.Update(context.Background(), p.ID, "owner-1", UpdateInput{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Max", updated.Name)
}

func TestUpdate_CoordenadasSoloExplicitas(t *testing.T) {
	repo := newTestRepo()
	resolver := &stubResolver{coords: geo.Coordinates{Lat: 9, Lng: 9}}
	svc := NewService(repo, resolver, nil, nil)

	p, err := svc.Create(context.Background(), "owner-1", withCoords(validCreateInput()))
	require.NoError(t, err)
	resolver.calls = 0

	// Cambiar la ubicación textual no re-geocodifica ni pisa lat/lng.
	loc := "Barcelona"
	updated, err := svc.Update(context.Background(), p.ID, "owner-1", UpdateInput{Location: &loc})
	require.NoError(t, err)
	assert.Zero(t, resolver.calls)
	assert.Equal(t, p.Lat, updated.Lat)
	assert.Equal(t, p.Lng, updated.Lng)

	lat, lng := 41.38, 2.17
	updated, err = svc.Update(context.Background(), p.ID, "owner-1", UpdateInput{Lat: &lat, Lng: &lng})
	require.NoError(t, err)
	assert.InDelta(t, 41.38, updated.Lat, 0.001)
}

func TestUpdate_EjeEnCeroSeReResuelve(t *testing.T) {
	repo := newTestRepo()
	resolver := &stubResolver{coords: geo.Coordinates{Lat: 41.3874, Lng: 2.1686}}
	svc := NewService(repo, resolver, nil, nil)

	p, err := svc.Create(context.Background(), "owner-1", withCoords(validCreateInput()))
	require.NoError(t, err)
	resolver.calls = 0

	// Pisar un solo eje con cero deja la coordenada inservible: se
	// re-resuelve desde la ubicación en vez de persistir lng 0.
	zero := 0.0
	updated, err := svc.Update(context.Background(), p.ID, "owner-1", UpdateInput{Lng: &zero})
	require.NoError(t, err)
	assert.Equal(t, 1, resolver.calls)
	assert.InDelta(t, 41.3874, updated.Lat, 0.0001)
	assert.InDelta(t, 2.1686, updated.Lng, 0.0001)

	// Si tampoco se puede resolver, el update se rechaza.
	resolver.err = geo.ErrNoMatch
	_, err = svc.Update(context.Background(), p.ID, "owner-1", UpdateInput{Lng: &zero})
	assert.ErrorIs(t, err, ErrNoCoordinates)
}

func TestUpdate_ReemplazoDeImagenBorraLaAnterior(t *testing.T) {
	repo := newTestRepo()
	imgs := &stubImages{}
	svc := NewService(repo, &stubResolver{}, imgs, nil)

	in := withCoords(validCreateInput())
	in.Image = "https://cdn/img-old.jpg"
	in.ImagePublicID = "pets/old"
	p, err := svc.Create(context.Background(), "owner-1", in)
	require.NoError(t, err)

	newID := "pets/new"
	newURL := "https://cdn/img-new.jpg"
	_, err = svc.Update(context.Background(), p.ID, "owner-1", UpdateInput{Image: &newURL, ImagePublicID: &newID})
	require.NoError(t, err)
	assert.Equal(t, []string{"pets/old"}, imgs.deleted)
}

func TestDelete_BorraYLimpiaImagen(t *testing.T) {
	repo := newTestRepo()
	imgs := &stubImages{deleteErr: errors.New("cloud caído")}
	svc := NewService(repo, &stubResolver{}, imgs, nil)

	in := withCoords(validCreateInput())
	in.ImagePublicID = "pets/foto"
	p, err := svc.Create(context.Background(), "owner-1", in)
	require.NoError(t, err)

	assert.ErrorIs(t, svc.Delete(context.Background(), p.ID, "intruso"), ErrForbidden)

	// La falla del store de imágenes no corta el delete.
	require.NoError(t, svc.Delete(context.Background(), p.ID, "owner-1"))
	assert.Equal(t, []string{"pets/foto"}, imgs.deleted)

	_, err = svc.GetByID(context.Background(), p.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSearch_ValidaOwnerYStatus(t *testing.T) {
	repo := newTestRepo()
	svc := NewService(repo, &stubResolver{}, nil, nil)

	_, _, err := svc.Search(context.Background(), SearchFilter{OwnerUserID: "no-es-uuid"}, MaxLimit)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, _, err = svc.Search(context.Background(), SearchFilter{Status: "perdido"}, MaxLimit)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, _, err = svc.Search(context.Background(), SearchFilter{OwnerUserID: uuid.NewString()}, MaxLimit)
	assert.NoError(t, err)
}

func TestSearch_ClampeaPaginacion(t *testing.T) {
	repo := newTestRepo()
	svc := NewService(repo, &stubResolver{}, nil, nil)

	_, _, err := svc.Search(context.Background(), SearchFilter{Limit: 1000, Page: -3}, MaxLimit)
	require.NoError(t, err)

	require.Len(t, repo.searchCalls, 1)
	assert.Equal(t, MaxLimit, repo.searchCalls[0].Limit)
	assert.Equal(t, 1, repo.searchCalls[0].Page)
}

func withCoords(in CreateInput) CreateInput {
	in.Lat = 40.4
	in.Lng = -3.7
	return in
}
