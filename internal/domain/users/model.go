package users

import "time"

// Versiones vigentes de textos legales. Al aceptar, se congela la versión
// aceptada en el registro de consentimiento.
const (
	TermsVersion   = "1.0"
	PrivacyVersion = "1.0"
	CookiesVersion = "1.0"
)

// ConsentRecord es un consentimiento obligatorio (términos, privacidad)
// con evidencia de aceptación.
type ConsentRecord struct {
	Accepted   bool
	Version    string
	AcceptedAt time.Time
	IPAddress  string
	UserAgent  string
}

// OptionalConsent es un consentimiento opcional (marketing, notificaciones).
type OptionalConsent struct {
	Accepted  bool
	UpdatedAt time.Time
}

// CookiePrefs son las preferencias de cookies del usuario.
type CookiePrefs struct {
	Functional bool
	Analytics  bool
	Marketing  bool
	UpdatedAt  time.Time
}

type Consents struct {
	Terms         ConsentRecord
	Privacy       ConsentRecord
	Marketing     OptionalConsent
	Notifications OptionalConsent
	Cookies       CookiePrefs
}

// User es una cuenta registrada. Email único, en minúsculas.
type User struct {
	ID           string
	Name         string
	Email        string
	Phone        string
	PasswordHash string

	Consents Consents

	CreatedAt time.Time
	UpdatedAt time.Time
}

// ConsentStats son los agregados del panel legal: aceptaciones por versión
// y contadores de consentimientos opcionales.
type ConsentStats struct {
	TermsByVersion   map[string]int
	PrivacyByVersion map[string]int

	Marketing     int
	Notifications int

	CookiesFunctional int
	CookiesAnalytics  int
	CookiesMarketing  int
}
