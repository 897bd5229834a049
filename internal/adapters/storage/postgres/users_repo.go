package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"safehaven/internal/domain/users"
)

type UsersRepo struct {
	db *sql.DB
}

func NewUsersRepo(db *sql.DB) *UsersRepo {
	return &UsersRepo{db: db}
}

const userColumns = `
	id, name, email, phone, password_hash,
	terms_accepted, terms_version, terms_accepted_at, terms_ip, terms_user_agent,
	privacy_accepted, privacy_version, privacy_accepted_at, privacy_ip, privacy_user_agent,
	marketing_accepted, marketing_updated_at,
	notifications_accepted, notifications_updated_at,
	cookies_functional, cookies_analytics, cookies_marketing, cookies_updated_at,
	created_at, updated_at`

func (r *UsersRepo) Create(ctx context.Context, u users.User) error {
	c := u.Consents
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (
			id, name, email, phone, password_hash,
			terms_accepted, terms_version, terms_accepted_at, terms_ip, terms_user_agent,
			privacy_accepted, privacy_version, privacy_accepted_at, privacy_ip, privacy_user_agent,
			marketing_accepted, marketing_updated_at,
			notifications_accepted, notifications_updated_at,
			cookies_functional, cookies_analytics, cookies_marketing, cookies_updated_at,
			created_at, updated_at
		) VALUES (
			$1,$2,$3,$4,$5,
			$6,$7,$8,$9,$10,
			$11,$12,$13,$14,$15,
			$16,$17,
			$18,$19,
			$20,$21,$22,$23,
			$24,$25
		)
	`,
		u.ID, u.Name, strings.ToLower(u.Email), u.Phone, u.PasswordHash,
		c.Terms.Accepted, c.Terms.Version, toNullTime(c.Terms.AcceptedAt), c.Terms.IPAddress, c.Terms.UserAgent,
		c.Privacy.Accepted, c.Privacy.Version, toNullTime(c.Privacy.AcceptedAt), c.Privacy.IPAddress, c.Privacy.UserAgent,
		c.Marketing.Accepted, toNullTime(c.Marketing.UpdatedAt),
		c.Notifications.Accepted, toNullTime(c.Notifications.UpdatedAt),
		c.Cookies.Functional, c.Cookies.Analytics, c.Cookies.Marketing, toNullTime(c.Cookies.UpdatedAt),
		u.CreatedAt, u.UpdatedAt,
	)
	// Dos registros simultáneos con el mismo email pasan el chequeo previo
	// del servicio; el índice único es el árbitro final.
	if isUniqueViolation(err) {
		return users.ErrEmailTaken
	}
	return err
}

// 23505 = unique_violation
const pgUniqueViolationCode = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolationCode
}

func (r *UsersRepo) Update(ctx context.Context, u users.User) error {
	c := u.Consents
	res, err := r.db.ExecContext(ctx, `
		UPDATE users
		SET
			name = $2,
			phone = $3,
			password_hash = $4,
			terms_accepted = $5, terms_version = $6, terms_accepted_at = $7, terms_ip = $8, terms_user_agent = $9,
			privacy_accepted = $10, privacy_version = $11, privacy_accepted_at = $12, privacy_ip = $13, privacy_user_agent = $14,
			marketing_accepted = $15, marketing_updated_at = $16,
			notifications_accepted = $17, notifications_updated_at = $18,
			cookies_functional = $19, cookies_analytics = $20, cookies_marketing = $21, cookies_updated_at = $22,
			updated_at = $23
		WHERE id = $1
	`,
		u.ID, u.Name, u.Phone, u.PasswordHash,
		c.Terms.Accepted, c.Terms.Version, toNullTime(c.Terms.AcceptedAt), c.Terms.IPAddress, c.Terms.UserAgent,
		c.Privacy.Accepted, c.Privacy.Version, toNullTime(c.Privacy.AcceptedAt), c.Privacy.IPAddress, c.Privacy.UserAgent,
		c.Marketing.Accepted, toNullTime(c.Marketing.UpdatedAt),
		c.Notifications.Accepted, toNullTime(c.Notifications.UpdatedAt),
		c.Cookies.Functional, c.Cookies.Analytics, c.Cookies.Marketing, toNullTime(c.Cookies.UpdatedAt),
		u.UpdatedAt,
	)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return users.ErrNotFound
	}
	return nil
}

func (r *UsersRepo) GetByID(ctx context.Context, id string) (users.User, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return users.User{}, users.ErrNotFound
	}
	row := r.db.QueryRowContext(ctx, `SELECT`+userColumns+` FROM users WHERE id = $1`, id)
	return scanUser(row)
}

func (r *UsersRepo) GetByEmail(ctx context.Context, email string) (users.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return users.User{}, users.ErrNotFound
	}
	row := r.db.QueryRowContext(ctx, `SELECT`+userColumns+` FROM users WHERE email = $1`, email)
	return scanUser(row)
}

func (r *UsersRepo) Count(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n)
	return n, err
}

// ConsentStats agrega el panel legal en dos queries: contadores con FILTER
// y breakdown por versión con GROUP BY.
func (r *UsersRepo) ConsentStats(ctx context.Context) (users.ConsentStats, error) {
	st := users.ConsentStats{
		TermsByVersion:   make(map[string]int),
		PrivacyByVersion: make(map[string]int),
	}

	err := r.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*) FILTER (WHERE marketing_accepted),
			COUNT(*) FILTER (WHERE notifications_accepted),
			COUNT(*) FILTER (WHERE cookies_functional),
			COUNT(*) FILTER (WHERE cookies_analytics),
			COUNT(*) FILTER (WHERE cookies_marketing)
		FROM users
	`).Scan(
		&st.Marketing,
		&st.Notifications,
		&st.CookiesFunctional,
		&st.CookiesAnalytics,
		&st.CookiesMarketing,
	)
	if err != nil {
		return users.ConsentStats{}, err
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT 'terms', terms_version, COUNT(*)
		FROM users WHERE terms_accepted
		GROUP BY terms_version
		UNION ALL
		SELECT 'privacy', privacy_version, COUNT(*)
		FROM users WHERE privacy_accepted
		GROUP BY privacy_version
	`)
	if err != nil {
		return users.ConsentStats{}, err
	}
	defer rows.Close()

	for rows.Next() {
		var kind, version string
		var n int
		if err := rows.Scan(&kind, &version, &n); err != nil {
			return users.ConsentStats{}, err
		}
		switch kind {
		case "terms":
			st.TermsByVersion[version] = n
		case "privacy":
			st.PrivacyByVersion[version] = n
		}
	}
	return st, rows.Err()
}

func scanUser(row *sql.Row) (users.User, error) {
	var u users.User
	var termsAt, privacyAt, marketingAt, notificationsAt, cookiesAt sql.NullTime

	err := row.Scan(
		&u.ID, &u.Name, &u.Email, &u.Phone, &u.PasswordHash,
		&u.Consents.Terms.Accepted, &u.Consents.Terms.Version, &termsAt, &u.Consents.Terms.IPAddress, &u.Consents.Terms.UserAgent,
		&u.Consents.Privacy.Accepted, &u.Consents.Privacy.Version, &privacyAt, &u.Consents.Privacy.IPAddress, &u.Consents.Privacy.UserAgent,
		&u.Consents.Marketing.Accepted, &marketingAt,
		&u.Consents.Notifications.Accepted, &notificationsAt,
		&u.Consents.Cookies.Functional, &u.Consents.Cookies.Analytics, &u.Consents.Cookies.Marketing, &cookiesAt,
		&u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return users.User{}, users.ErrNotFound
		}
		return users.User{}, err
	}

	u.Consents.Terms.AcceptedAt = fromNullTime(termsAt)
	u.Consents.Privacy.AcceptedAt = fromNullTime(privacyAt)
	u.Consents.Marketing.UpdatedAt = fromNullTime(marketingAt)
	u.Consents.Notifications.UpdatedAt = fromNullTime(notificationsAt)
	u.Consents.Cookies.UpdatedAt = fromNullTime(cookiesAt)

	return u, nil
}

func toNullTime(t time.Time) sql.NullTime {
	if t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t, Valid: true}
}

func fromNullTime(nt sql.NullTime) time.Time {
	if !nt.Valid {
		return time.Time{}
	}
	return nt.Time
}
