package pets

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"safehaven/internal/geo"
	"safehaven/internal/platform/logger"
	"safehaven/internal/ports/images"

	"github.com/google/uuid"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("pet not found")
	ErrForbidden    = errors.New("not the owner")

	// ErrNoCoordinates: ni el cliente mandó coordenadas ni el resolver pudo
	// deducirlas de la ubicación. El listado no se persiste sin lat/lng.
	ErrNoCoordinates = errors.New("could not resolve coordinates, select location on the map")
)

// contacto tipo WhatsApp: +34 600 123 456
var contactRe = regexp.MustCompile(`^[+]?[0-9\-()]{9,15}$`)

// CoordinateResolver resuelve texto de ubicación a lat/lng.
// Lo implementa geo.Resolver (geocoder externo + tabla de ciudades).
type CoordinateResolver interface {
	Resolve(ctx context.Context, location string) (geo.Coordinates, error)
}

type Service struct {
	repo     Repository
	resolver CoordinateResolver
	images   images.Store // puede ser nil (sin image store configurado)
	log      logger.Logger
	now      func() time.Time
}

func NewService(repo Repository, resolver CoordinateResolver, imgStore images.Store, log logger.Logger) *Service {
	if log == nil {
		log = logger.Nop{}
	}
	return &Service{
		repo:     repo,
		resolver: resolver,
		images:   imgStore,
		log:      log,
		now:      time.Now,
	}
}

type CreateInput struct {
	Name          string
	Type          string
	Breed         string
	Age           string
	Location      string
	Description   string
	Image         string
	ImagePublicID string
	Status        string
	Urgent        bool
	Contact       string
	Lat           float64
	Lng           float64
}

func (s *Service) Create(ctx context.Context, ownerUserID string, in CreateInput) (Pet, error) {
	if strings.TrimSpace(ownerUserID) == "" {
		return Pet{}, ErrInvalidInput
	}

	name := strings.TrimSpace(in.Name)
	petType := strings.ToLower(strings.TrimSpace(in.Type))
	location := strings.TrimSpace(in.Location)
	description := strings.TrimSpace(in.Description)
	status := strings.ToLower(strings.TrimSpace(in.Status))
	contact := strings.TrimSpace(in.Contact)

	if err := validateFields(name, petType, in.Breed, in.Age, location, description, status, contact); err != nil {
		return Pet{}, err
	}

	// Un eje en cero cuenta como coordenada faltante: un punto con lng 0
	// real caería en el meridiano de Greenwich, no en España.
	coords := geo.Coordinates{Lat: in.Lat, Lng: in.Lng}
	if coords.Lat == 0 || coords.Lng == 0 {
		resolved, err := s.resolver.Resolve(ctx, location)
		if err != nil {
			return Pet{}, ErrNoCoordinates
		}
		coords = resolved
	}
	if !coords.Valid() {
		return Pet{}, ErrInvalidInput
	}

	now := s.now()
	p := Pet{
		ID:            uuid.NewString(),
		OwnerUserID:   ownerUserID,
		Name:          name,
		Type:          Type(petType),
		Breed:         strings.TrimSpace(in.Breed),
		Age:           strings.TrimSpace(in.Age),
		Location:      location,
		Description:   description,
		Image:         strings.TrimSpace(in.Image),
		ImagePublicID: strings.TrimSpace(in.ImagePublicID),
		Status:        Status(status),
		Urgent:        in.Urgent,
		Contact:       contact,
		Lat:           coords.Lat,
		Lng:           coords.Lng,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.repo.Create(ctx, p); err != nil {
		return Pet{}, err
	}
	return p, nil
}

// UpdateInput usa punteros para PATCH real: nil = no tocar.
type UpdateInput struct {
	Name          *string
	Type          *string
	Breed         *string
	Age           *string
	Location      *string
	Description   *string
	Image         *string
	ImagePublicID *string
	Status        *string
	Urgent        *bool
	Contact       *string
	Lat           *float64
	Lng           *float64
}

func (s *Service) Update(ctx context.Context, id, actorUserID string, in UpdateInput) (Pet, error) {
	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return Pet{}, err
	}
	if current.OwnerUserID != actorUserID {
		return Pet{}, ErrForbidden
	}

	oldImagePublicID := current.ImagePublicID

	if in.Name != nil {
		current.Name = strings.TrimSpace(*in.Name)
	}
	if in.Type != nil {
		current.Type = Type(strings.ToLower(strings.TrimSpace(*in.Type)))
	}
	if in.Breed != nil {
		current.Breed = strings.TrimSpace(*in.Breed)
	}
	if in.Age != nil {
		current.Age = strings.TrimSpace(*in.Age)
	}
	if in.Location != nil {
		current.Location = strings.TrimSpace(*in.Location)
	}
	if in.Description != nil {
		current.Description = strings.TrimSpace(*in.Description)
	}
	if in.Image != nil {
		current.Image = strings.TrimSpace(*in.Image)
	}
	if in.ImagePublicID != nil {
		current.ImagePublicID = strings.TrimSpace(*in.ImagePublicID)
	}
	if in.Status != nil {
		current.Status = Status(strings.ToLower(strings.TrimSpace(*in.Status)))
	}
	if in.Urgent != nil {
		current.Urgent = *in.Urgent
	}
	if in.Contact != nil {
		current.Contact = strings.TrimSpace(*in.Contact)
	}

	// Coordenadas ya seteadas son autoritativas: solo cambian si vienen
	// explícitas en el update. Si el resultado deja un eje en cero
	// (mismo criterio que en Create), se re-resuelve desde la ubicación.
	if in.Lat != nil {
		current.Lat = *in.Lat
	}
	if in.Lng != nil {
		current.Lng = *in.Lng
	}
	if current.Lat == 0 || current.Lng == 0 {
		resolved, err := s.resolver.Resolve(ctx, current.Location)
		if err != nil {
			return Pet{}, ErrNoCoordinates
		}
		current.Lat = resolved.Lat
		current.Lng = resolved.Lng
	}

	if err := validateFields(current.Name, string(current.Type), current.Breed, current.Age,
		current.Location, current.Description, string(current.Status), current.Contact); err != nil {
		return Pet{}, err
	}
	if !(geo.Coordinates{Lat: current.Lat, Lng: current.Lng}).Valid() {
		return Pet{}, ErrInvalidInput
	}

	current.UpdatedAt = s.now()

	if err := s.repo.Update(ctx, current); err != nil {
		return Pet{}, err
	}

	// Si se reemplazó la imagen, borrar la anterior del store.
	// Best-effort: una falla se loguea y no corta el update.
	if oldImagePublicID != "" && current.ImagePublicID != oldImagePublicID {
		s.deleteImage(ctx, oldImagePublicID)
	}

	return current, nil
}

func (s *Service) Delete(ctx context.Context, id, actorUserID string) error {
	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if current.OwnerUserID != actorUserID {
		return ErrForbidden
	}

	// La mutación en la base es la autoritativa; la imagen se borra después,
	// best-effort.
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	if current.ImagePublicID != "" {
		s.deleteImage(ctx, current.ImagePublicID)
	}

	return nil
}

func (s *Service) GetByID(ctx context.Context, id string) (Pet, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) GetWithOwner(ctx context.Context, id string) (PetWithOwner, error) {
	return s.repo.GetWithOwner(ctx, id)
}

// Search valida el filtro, clampea paginación y ejecuta la búsqueda.
// Un userId malformado falla acá, antes de tocar la base: no debe
// devolver silenciosamente cero resultados.
func (s *Service) Search(ctx context.Context, f SearchFilter, maxLimit int) ([]PetWithOwner, int, error) {
	if f.OwnerUserID != "" {
		if _, err := uuid.Parse(f.OwnerUserID); err != nil {
			return nil, 0, ErrInvalidInput
		}
	}
	if f.Status != "" && f.Status != "all" && !ValidStatus(strings.ToLower(f.Status)) {
		return nil, 0, ErrInvalidInput
	}

	f.Type = strings.ToLower(strings.TrimSpace(f.Type))
	f.Status = strings.ToLower(strings.TrimSpace(f.Status))
	f.Normalize(maxLimit)

	return s.repo.Search(ctx, f)
}

func (s *Service) CountByOwner(ctx context.Context, ownerUserID string) (int, error) {
	return s.repo.CountByOwner(ctx, ownerUserID)
}

func (s *Service) deleteImage(ctx context.Context, publicID string) {
	if s.images == nil {
		return
	}
	if err := s.images.Delete(ctx, publicID); err != nil {
		s.log.Warn("image delete failed", map[string]any{
			"public_id": publicID,
			"err":       err.Error(),
		})
	}
}

func validateFields(name, petType, breed, age, location, description, status, contact string) error {
	if name == "" || len(name) > MaxNameLen {
		return ErrInvalidInput
	}
	if !ValidType(petType) {
		return ErrInvalidInput
	}
	if len(breed) > MaxBreedLen || len(age) > MaxAgeLen {
		return ErrInvalidInput
	}
	if location == "" || len(location) > MaxLocationLen {
		return ErrInvalidInput
	}
	if description == "" || len(description) > MaxDescriptionLen {
		return ErrInvalidInput
	}
	if !ValidStatus(status) {
		return ErrInvalidInput
	}
	if contact == "" || !contactRe.MatchString(strings.ReplaceAll(contact, " ", "")) {
		return ErrInvalidInput
	}
	return nil
}
