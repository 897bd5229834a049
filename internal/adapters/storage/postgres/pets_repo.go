package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"safehaven/internal/domain/pets"
)

type PetsRepo struct {
	db *sql.DB
}

func NewPetsRepo(db *sql.DB) *PetsRepo {
	return &PetsRepo{db: db}
}

const petColumns = `
	p.id, p.owner_user_id,
	p.name, p.type, p.breed, p.age, p.location, p.description,
	p.image, p.image_public_id,
	p.status, p.urgent, p.contact,
	p.lat, p.lng,
	p.created_at, p.updated_at`

func (r *PetsRepo) Create(ctx context.Context, p pets.Pet) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO pets (
			id, owner_user_id,
			name, type, breed, age, location, description,
			image, image_public_id,
			status, urgent, contact,
			lat, lng,
			created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)
	`,
		p.ID,
		p.OwnerUserID,
		p.Name,
		p.Type,
		p.Breed,
		p.Age,
		p.Location,
		p.Description,
		p.Image,
		p.ImagePublicID,
		p.Status,
		p.Urgent,
		p.Contact,
		p.Lat,
		p.Lng,
		p.CreatedAt,
		p.UpdatedAt,
	)
	return err
}

func (r *PetsRepo) Update(ctx context.Context, p pets.Pet) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE pets
		SET
			name = $2,
			type = $3,
			breed = $4,
			age = $5,
			location = $6,
			description = $7,
			image = $8,
			image_public_id = $9,
			status = $10,
			urgent = $11,
			contact = $12,
			lat = $13,
			lng = $14,
			updated_at = $15
		WHERE id = $1
	`,
		p.ID,
		p.Name,
		p.Type,
		p.Breed,
		p.Age,
		p.Location,
		p.Description,
		p.Image,
		p.ImagePublicID,
		p.Status,
		p.Urgent,
		p.Contact,
		p.Lat,
		p.Lng,
		p.UpdatedAt,
	)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return pets.ErrNotFound
	}
	return nil
}

func (r *PetsRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM pets WHERE id = $1`, id)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return pets.ErrNotFound
	}
	return nil
}

func (r *PetsRepo) GetByID(ctx context.Context, id string) (pets.Pet, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return pets.Pet{}, pets.ErrNotFound
	}

	row := r.db.QueryRowContext(ctx, `
		SELECT`+petColumns+`
		FROM pets p
		WHERE p.id = $1
	`, id)

	var p pets.Pet
	if err := scanPet(row, &p); err != nil {
		if err == sql.ErrNoRows {
			return pets.Pet{}, pets.ErrNotFound
		}
		return pets.Pet{}, err
	}
	return p, nil
}

func (r *PetsRepo) GetWithOwner(ctx context.Context, id string) (pets.PetWithOwner, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return pets.PetWithOwner{}, pets.ErrNotFound
	}

	row := r.db.QueryRowContext(ctx, `
		SELECT`+petColumns+`,
			COALESCE(u.name, ''), COALESCE(u.email, '')
		FROM pets p
		LEFT JOIN users u ON u.id = p.owner_user_id
		WHERE p.id = $1
	`, id)

	var pw pets.PetWithOwner
	if err := scanPetWithOwner(row, &pw); err != nil {
		if err == sql.ErrNoRows {
			return pets.PetWithOwner{}, pets.ErrNotFound
		}
		return pets.PetWithOwner{}, err
	}
	return pw, nil
}

// Search arma el WHERE dinámicamente y trae página + total en una sola
// query con COUNT(*) OVER(). El texto libre usa full-text en español con
// pesos (name > breed > location > description) más ILIKE como red para
// prefijos parciales que el stemmer no matchea.
func (r *PetsRepo) Search(ctx context.Context, f pets.SearchFilter) ([]pets.PetWithOwner, int, error) {
	conds := make([]string, 0, 5)
	args := make([]any, 0, 6)

	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	switch f.Status {
	case "":
		conds = append(conds, fmt.Sprintf("p.status <> %s", arg(string(pets.StatusAdoptado))))
	case "all":
		// sin filtro de status
	default:
		conds = append(conds, fmt.Sprintf("p.status = %s", arg(f.Status)))
	}

	if f.Type != "" && f.Type != "all" {
		conds = append(conds, fmt.Sprintf("p.type = %s", arg(f.Type)))
	}
	if f.Urgent {
		conds = append(conds, "p.urgent")
	}
	if f.OwnerUserID != "" {
		conds = append(conds, fmt.Sprintf("p.owner_user_id = %s", arg(f.OwnerUserID)))
	}

	orderBy := "p.created_at DESC"
	rankCol := "0"
	if q := strings.TrimSpace(f.Query); q != "" {
		ph := arg(q)
		// El patrón ILIKE va escapado: un % o _ en el texto del usuario es
		// un literal, no un comodín.
		like := arg(escapeLike(q))
		conds = append(conds, fmt.Sprintf(`(
			p.search_tsv @@ websearch_to_tsquery('spanish', %[1]s)
			OR p.name ILIKE '%%' || %[2]s || '%%' ESCAPE '\'
			OR p.breed ILIKE '%%' || %[2]s || '%%' ESCAPE '\'
			OR p.location ILIKE '%%' || %[2]s || '%%' ESCAPE '\'
			OR p.description ILIKE '%%' || %[2]s || '%%' ESCAPE '\'
		)`, ph, like))
		rankCol = fmt.Sprintf("ts_rank(p.search_tsv, websearch_to_tsquery('spanish', %s))", ph)
		orderBy = "rank DESC, p.created_at DESC"
	}

	where := ""
	if len(conds) > 0 {
		where = "WHERE " + strings.Join(conds, " AND ")
	}

	query := fmt.Sprintf(`
		SELECT%s,
			COALESCE(u.name, ''), COALESCE(u.email, ''),
			COUNT(*) OVER() AS total,
			%s AS rank
		FROM pets p
		LEFT JOIN users u ON u.id = p.owner_user_id
		%s
		ORDER BY %s
		LIMIT %s OFFSET %s
	`, petColumns, rankCol, where, orderBy, arg(f.Limit), arg((f.Page-1)*f.Limit))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]pets.PetWithOwner, 0)
	total := 0
	for rows.Next() {
		var pw pets.PetWithOwner
		var rank float64
		if err := rows.Scan(
			&pw.ID,
			&pw.OwnerUserID,
			&pw.Name,
			&pw.Type,
			&pw.Breed,
			&pw.Age,
			&pw.Location,
			&pw.Description,
			&pw.Image,
			&pw.ImagePublicID,
			&pw.Status,
			&pw.Urgent,
			&pw.Contact,
			&pw.Lat,
			&pw.Lng,
			&pw.CreatedAt,
			&pw.UpdatedAt,
			&pw.OwnerName,
			&pw.OwnerEmail,
			&total,
			&rank,
		); err != nil {
			return nil, 0, err
		}
		out = append(out, pw)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	// Página fuera de rango: el window count no devuelve filas, así que el
	// total queda en 0. Lo recuperamos con un count aparte.
	if len(out) == 0 && f.Page > 1 {
		countQuery := fmt.Sprintf(`
			SELECT COUNT(*)
			FROM pets p
			%s
		`, where)
		// los últimos dos args son LIMIT/OFFSET, no van en el count
		if err := r.db.QueryRowContext(ctx, countQuery, args[:len(args)-2]...).Scan(&total); err != nil {
			return nil, 0, err
		}
	}

	return out, total, nil
}

func (r *PetsRepo) CountByOwner(ctx context.Context, ownerUserID string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM pets WHERE owner_user_id = $1
	`, ownerUserID).Scan(&n)
	return n, err
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike neutraliza los metacaracteres de LIKE/ILIKE para que el texto
// del usuario matchee como literal (con ESCAPE '\').
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPet(row rowScanner, p *pets.Pet) error {
	return row.Scan(
		&p.ID,
		&p.OwnerUserID,
		&p.Name,
		&p.Type,
		&p.Breed,
		&p.Age,
		&p.Location,
		&p.Description,
		&p.Image,
		&p.ImagePublicID,
		&p.Status,
		&p.Urgent,
		&p.Contact,
		&p.Lat,
		&p.Lng,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
}

func scanPetWithOwner(row rowScanner, pw *pets.PetWithOwner) error {
	return row.Scan(
		&pw.ID,
		&pw.OwnerUserID,
		&pw.Name,
		&pw.Type,
		&pw.Breed,
		&pw.Age,
		&pw.Location,
		&pw.Description,
		&pw.Image,
		&pw.ImagePublicID,
		&pw.Status,
		&pw.Urgent,
		&pw.Contact,
		&pw.Lat,
		&pw.Lng,
		&pw.CreatedAt,
		&pw.UpdatedAt,
		&pw.OwnerName,
		&pw.OwnerEmail,
	)
}
