package pets

import "time"

// Type define los tipos de animal soportados.
// @Enum perro, gato, conejo, ave, hamster, cobayo, tortuga, pez, iguana, hurón, chinchilla, otros
type Type string

const (
	TypePerro      Type = "perro"
	TypeGato       Type = "gato"
	TypeConejo     Type = "conejo"
	TypeAve        Type = "ave"
	TypeHamster    Type = "hamster"
	TypeCobayo     Type = "cobayo"
	TypeTortuga    Type = "tortuga"
	TypePez        Type = "pez"
	TypeIguana     Type = "iguana"
	TypeHuron      Type = "hurón"
	TypeChinchilla Type = "chinchilla"
	TypeOtros      Type = "otros"
)

var validTypes = map[Type]bool{
	TypePerro:      true,
	TypeGato:       true,
	TypeConejo:     true,
	TypeAve:        true,
	TypeHamster:    true,
	TypeCobayo:     true,
	TypeTortuga:    true,
	TypePez:        true,
	TypeIguana:     true,
	TypeHuron:      true,
	TypeChinchilla: true,
	TypeOtros:      true,
}

func ValidType(t string) bool {
	return validTypes[Type(t)]
}

// Status define el estado del listado.
// @Enum adopcion, rescate, cuidados, temporal, adoptado
type Status string

const (
	StatusAdopcion Status = "adopcion" // en adopción
	StatusRescate  Status = "rescate"  // necesita rescate
	StatusCuidados Status = "cuidados" // necesita cuidados médicos
	StatusTemporal Status = "temporal" // hogar temporal
	StatusAdoptado Status = "adoptado" // ya adoptado: excluido de búsquedas por defecto
)

var validStatuses = map[Status]bool{
	StatusAdopcion: true,
	StatusRescate:  true,
	StatusCuidados: true,
	StatusTemporal: true,
	StatusAdoptado: true,
}

func ValidStatus(s string) bool {
	return validStatuses[Status(s)]
}

// Límites de longitud de campos de texto.
const (
	MaxNameLen        = 50
	MaxBreedLen       = 50
	MaxAgeLen         = 20
	MaxLocationLen    = 100
	MaxDescriptionLen = 1000
)

// Pet representa un listado de adopción publicado por un usuario.
// Una vez seteadas, lat/lng son autoritativas para el mapa.
type Pet struct {
	ID          string
	OwnerUserID string

	Name        string
	Type        Type
	Breed       string
	Age         string
	Location    string
	Description string

	Image         string
	ImagePublicID string

	Status  Status
	Urgent  bool
	Contact string

	Lat float64
	Lng float64

	CreatedAt time.Time
	UpdatedAt time.Time
}

// PetWithOwner es el resultado de búsqueda: el listado enriquecido con
// nombre/email del dueño (solo esos campos, nada más del usuario).
type PetWithOwner struct {
	Pet
	OwnerName  string
	OwnerEmail string
}
