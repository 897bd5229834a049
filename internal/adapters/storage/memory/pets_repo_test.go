package memory

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"safehaven/internal/domain/pets"
	"safehaven/internal/domain/users"
)

func seedPet(t *testing.T, repo *PetRepo, id string, mut func(*pets.Pet)) pets.Pet {
	t.Helper()
	p := pets.Pet{
		ID:          id,
		OwnerUserID: "owner-1",
		Name:        "Luna",
		Type:        pets.TypePerro,
		Breed:       "mestizo",
		Location:    "Madrid",
		Description: "muy cariñosa",
		Status:      pets.StatusAdopcion,
		Contact:     "+34600111222",
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
	if mut != nil {
		mut(&p)
	}
	require.NoError(t, repo.Create(context.Background(), p))
	return p
}

func TestSearch_ExcluyeAdoptadosPorDefecto(t *testing.T) {
	repo := NewPetRepo(nil)
	seedPet(t, repo, "p1", nil)
	seedPet(t, repo, "p2", func(p *pets.Pet) { p.Name = "Max" })
	seedPet(t, repo, "p3", func(p *pets.Pet) {
		p.Name = "Rocky"
		p.Status = pets.StatusAdoptado
	})

	f := pets.SearchFilter{Page: 1, Limit: 12}
	out, total, err := repo.Search(context.Background(), f)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Len(t, out, 2)
	for _, p := range out {
		assert.NotEqual(t, pets.StatusAdoptado, p.Status)
	}

	// status=all los incluye
	f.Status = "all"
	_, total, err = repo.Search(context.Background(), f)
	require.NoError(t, err)
	assert.Equal(t, 3, total)

	// status=adoptado solo adoptados
	f.Status = "adoptado"
	out, total, err = repo.Search(context.Background(), f)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, "Rocky", out[0].Name)
}

func TestSearch_TextoSubstring(t *testing.T) {
	repo := NewPetRepo(nil)
	seedPet(t, repo, "p1", func(p *pets.Pet) { p.Name = "Luna" })
	seedPet(t, repo, "p2", func(p *pets.Pet) {
		p.Name = "Max"
		p.Breed = "labrador"
	})
	seedPet(t, repo, "p3", func(p *pets.Pet) {
		p.Name = "Nube"
		p.Description = "gatita tranquila"
		p.Type = pets.TypeGato
	})

	cases := []struct {
		query string
		want  int
	}{
		{"luna", 1},  // por nombre, case-insensitive
		{"LABRA", 1}, // por raza
		{"madrid", 3},
		{"tranquila", 1},
		{"inexistente", 0},
	}
	for _, tc := range cases {
		_, total, err := repo.Search(context.Background(), pets.SearchFilter{Query: tc.query, Page: 1, Limit: 12})
		require.NoError(t, err)
		assert.Equal(t, tc.want, total, "query=%s", tc.query)
	}
}

func TestSearch_FiltrosYPaginacion(t *testing.T) {
	repo := NewPetRepo(nil)
	base := time.Now()
	for i := 0; i < 5; i++ {
		i := i
		seedPet(t, repo, fmt.Sprintf("p%d", i), func(p *pets.Pet) {
			p.Name = fmt.Sprintf("Perro%d", i)
			p.CreatedAt = base.Add(time.Duration(i) * time.Minute)
			p.Urgent = i%2 == 0
		})
	}

	// urgent: p0, p2, p4
	_, total, err := repo.Search(context.Background(), pets.SearchFilter{Urgent: true, Page: 1, Limit: 12})
	require.NoError(t, err)
	assert.Equal(t, 3, total)

	// paginación: orden created_at desc, página 2 de 2
	out, total, err := repo.Search(context.Background(), pets.SearchFilter{Page: 2, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, 5, total)
	require.Len(t, out, 2)
	assert.Equal(t, "Perro2", out[0].Name)
	assert.Equal(t, "Perro1", out[1].Name)

	// página fuera de rango: vacía pero con total correcto
	out, total, err = repo.Search(context.Background(), pets.SearchFilter{Page: 9, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, 5, total)
	assert.Empty(t, out)
}

func TestSearch_IncluyeDatosDelDueno(t *testing.T) {
	userRepo := NewUserRepo()
	require.NoError(t, userRepo.Create(context.Background(), users.User{
		ID:    "owner-1",
		Name:  "Ana",
		Email: "ana@example.com",
	}))

	repo := NewPetRepo(userRepo)
	seedPet(t, repo, "p1", nil)

	out, _, err := repo.Search(context.Background(), pets.SearchFilter{Page: 1, Limit: 12})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "Ana", out[0].OwnerName)
	assert.Equal(t, "ana@example.com", out[0].OwnerEmail)
}

func TestCRUD_Sentinels(t *testing.T) {
	repo := NewPetRepo(nil)

	_, err := repo.GetByID(context.Background(), "nope")
	assert.ErrorIs(t, err, pets.ErrNotFound)

	assert.ErrorIs(t, repo.Delete(context.Background(), "nope"), pets.ErrNotFound)
	assert.ErrorIs(t, repo.Update(context.Background(), pets.Pet{ID: "nope"}), pets.ErrNotFound)

	p := seedPet(t, repo, "p1", nil)
	require.NoError(t, repo.Delete(context.Background(), p.ID))
	_, err = repo.GetByID(context.Background(), p.ID)
	assert.ErrorIs(t, err, pets.ErrNotFound)
}
