package users

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"safehaven/internal/middleware"
	"safehaven/internal/platform/metrics"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// TokenIssuer firma el token de sesión que devuelven register/login.
// Lo implementa el adapter jwtauth.
type TokenIssuer interface {
	Issue(userID, email, name string) (string, error)
}

// petCounter evita el ciclo de imports users <-> pets: el router inyecta
// el service de pets, acá solo interesa contar listados por dueño.
type petCounter interface {
	CountByOwner(ctx context.Context, ownerUserID string) (int, error)
}

func RegisterRoutes(r chi.Router, svc *Service, tokens TokenIssuer, pets petCounter, m *metrics.Metrics) {
	r.Route("/api/auth", func(ar chi.Router) {
		ar.Post("/register", registerHandler(svc, tokens, m))
		ar.Post("/login", loginHandler(svc, tokens))
		ar.Post("/logout", logoutHandler())
	})

	r.Route("/api/profile", func(pr chi.Router) {
		pr.Get("/", getProfileHandler(svc))
		pr.Put("/", updateProfileHandler(svc))
		pr.Get("/public/{userID}", publicProfileHandler(svc, pets))
	})

	r.Route("/api/legal", func(lr chi.Router) {
		lr.Post("/consents", updateConsentsHandler(svc))
		lr.Get("/stats", legalStatsHandler(svc))
	})
}

type userResponse struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone,omitempty"`
}

type registerRequest struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	Phone           string `json:"phone"`
	Password        string `json:"password"`
	ConsentAccepted bool   `json:"consentAccepted"`
}

// registerHandler godoc
// @Summary  Registrar usuario
// @Success  201 {object} map[string]any
// @Router   /api/auth/register [post]
func registerHandler(svc *Service, tokens TokenIssuer, m *metrics.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req registerRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "JSON inválido")
			return
		}

		u, err := svc.Register(r.Context(), RegisterInput{
			Name:            req.Name,
			Email:           req.Email,
			Phone:           req.Phone,
			Password:        req.Password,
			ConsentAccepted: req.ConsentAccepted,
			IPAddress:       clientIP(r),
			UserAgent:       r.UserAgent(),
		})
		if err != nil {
			switch {
			case errors.Is(err, ErrEmailTaken):
				writeError(w, http.StatusConflict, "ya existe un usuario con este email")
			case errors.Is(err, ErrConsentRequired):
				writeError(w, http.StatusBadRequest, "debés aceptar los términos y la política de privacidad")
			case errors.Is(err, ErrInvalidInput):
				writeError(w, http.StatusBadRequest, "nombre, email y contraseña válidos son requeridos")
			default:
				writeError(w, http.StatusInternalServerError, "error interno del servidor")
			}
			return
		}

		token, err := tokens.Issue(u.ID, u.Email, u.Name)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "error interno del servidor")
			return
		}

		m.IncUsersRegistered()

		writeJSON(w, http.StatusCreated, map[string]any{
			"message": "Usuario creado exitosamente",
			"user":    toUserResponse(u),
			"token":   token,
		})
	}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// loginHandler godoc
// @Summary  Iniciar sesión
// @Router   /api/auth/login [post]
func loginHandler(svc *Service, tokens TokenIssuer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req loginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "JSON inválido")
			return
		}

		u, err := svc.Login(r.Context(), req.Email, req.Password)
		if err != nil {
			switch {
			case errors.Is(err, ErrInvalidCredentials):
				writeError(w, http.StatusUnauthorized, "email o contraseña incorrectos")
			case errors.Is(err, ErrInvalidInput):
				writeError(w, http.StatusBadRequest, "email y contraseña son requeridos")
			default:
				writeError(w, http.StatusInternalServerError, "error interno del servidor")
			}
			return
		}

		token, err := tokens.Issue(u.ID, u.Email, u.Name)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "error interno del servidor")
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"message": "Sesión iniciada",
			"user":    toUserResponse(u),
			"token":   token,
		})
	}
}

func logoutHandler() http.HandlerFunc {
	// El token vive en el cliente; acá no hay estado de sesión que borrar.
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"message": "Sesión cerrada"})
	}
}

func getProfileHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			writeError(w, http.StatusUnauthorized, "token de autenticación requerido")
			return
		}

		u, err := svc.GetByID(r.Context(), claims.UserID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				writeError(w, http.StatusNotFound, "usuario no encontrado")
				return
			}
			writeError(w, http.StatusInternalServerError, "error interno del servidor")
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"user":     toUserResponse(u),
			"consents": toConsentsResponse(u.Consents),
		})
	}
}

type updateProfileRequest struct {
	Name  *string `json:"name"`
	Phone *string `json:"phone"`
}

func updateProfileHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			writeError(w, http.StatusUnauthorized, "token de autenticación requerido")
			return
		}

		var req updateProfileRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "JSON inválido")
			return
		}

		u, err := svc.UpdateProfile(r.Context(), claims.UserID, UpdateProfileInput{
			Name:  req.Name,
			Phone: req.Phone,
		})
		if err != nil {
			switch {
			case errors.Is(err, ErrInvalidInput):
				writeError(w, http.StatusBadRequest, "datos de perfil inválidos")
			case errors.Is(err, ErrNotFound):
				writeError(w, http.StatusNotFound, "usuario no encontrado")
			default:
				writeError(w, http.StatusInternalServerError, "error interno del servidor")
			}
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"message": "Perfil actualizado",
			"user":    toUserResponse(u),
		})
	}
}

// publicProfileHandler expone solo nombre, antigüedad y cantidad de
// listados. Sin email: el perfil público no filtra datos de contacto.
func publicProfileHandler(svc *Service, pets petCounter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := chi.URLParam(r, "userID")
		if _, err := uuid.Parse(userID); err != nil {
			writeError(w, http.StatusBadRequest, "ID de usuario inválido")
			return
		}

		u, err := svc.GetByID(r.Context(), userID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				writeError(w, http.StatusNotFound, "usuario no encontrado")
				return
			}
			writeError(w, http.StatusInternalServerError, "error interno del servidor")
			return
		}

		count, err := pets.CountByOwner(r.Context(), userID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "error interno del servidor")
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"user": map[string]any{
				"id":          u.ID,
				"name":        u.Name,
				"petsCount":   count,
				"memberSince": u.CreatedAt,
			},
		})
	}
}

type consentsRequest struct {
	UpdateTerms         bool  `json:"updateTerms"`
	UpdatePrivacy       bool  `json:"updatePrivacy"`
	UpdateMarketing     *bool `json:"updateMarketing"`
	UpdateNotifications *bool `json:"updateNotifications"`
	CookiesPreferences  *struct {
		Functional *bool `json:"functional"`
		Analytics  *bool `json:"analytics"`
		Marketing  *bool `json:"marketing"`
	} `json:"cookiesPreferences"`
}

func updateConsentsHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			writeError(w, http.StatusUnauthorized, "token de autenticación requerido")
			return
		}

		var req consentsRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "JSON inválido")
			return
		}

		update := ConsentUpdate{
			AcceptTerms:   req.UpdateTerms,
			AcceptPrivacy: req.UpdatePrivacy,
			Marketing:     req.UpdateMarketing,
			Notifications: req.UpdateNotifications,
			IPAddress:     clientIP(r),
			UserAgent:     r.UserAgent(),
		}
		if req.CookiesPreferences != nil {
			update.CookiesFunctional = req.CookiesPreferences.Functional
			update.CookiesAnalytics = req.CookiesPreferences.Analytics
			update.CookiesMarketing = req.CookiesPreferences.Marketing
		}

		u, err := svc.UpdateConsents(r.Context(), claims.UserID, update)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				writeError(w, http.StatusNotFound, "usuario no encontrado")
				return
			}
			writeError(w, http.StatusInternalServerError, "error interno del servidor")
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"message":  "Consentimientos actualizados",
			"consents": toConsentsResponse(u.Consents),
		})
	}
}

func legalStatsHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := svc.ConsentStats(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, "error interno del servidor")
			return
		}

		total, err := svc.Count(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, "error interno del servidor")
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"totalUsers": total,
			"currentVersions": map[string]string{
				"terms":   TermsVersion,
				"privacy": PrivacyVersion,
				"cookies": CookiesVersion,
			},
			"termsByVersion":       stats.TermsByVersion,
			"privacyByVersion":     stats.PrivacyByVersion,
			"marketingConsents":    stats.Marketing,
			"notificationConsents": stats.Notifications,
			"cookieStats": map[string]int{
				"functional": stats.CookiesFunctional,
				"analytics":  stats.CookiesAnalytics,
				"marketing":  stats.CookiesMarketing,
			},
		})
	}
}

type consentRecordResponse struct {
	Accepted   bool      `json:"accepted"`
	Version    string    `json:"version,omitempty"`
	AcceptedAt time.Time `json:"acceptedAt,omitzero"`
}

func toConsentsResponse(c Consents) map[string]any {
	return map[string]any{
		"terms": consentRecordResponse{
			Accepted:   c.Terms.Accepted,
			Version:    c.Terms.Version,
			AcceptedAt: c.Terms.AcceptedAt,
		},
		"privacy": consentRecordResponse{
			Accepted:   c.Privacy.Accepted,
			Version:    c.Privacy.Version,
			AcceptedAt: c.Privacy.AcceptedAt,
		},
		"marketing":     c.Marketing.Accepted,
		"notifications": c.Notifications.Accepted,
		"cookies": map[string]bool{
			"functional": c.Cookies.Functional,
			"analytics":  c.Cookies.Analytics,
			"marketing":  c.Cookies.Marketing,
		},
	}
}

func toUserResponse(u User) userResponse {
	return userResponse{
		ID:    u.ID,
		Name:  u.Name,
		Email: u.Email,
		Phone: u.Phone,
	}
}

func clientIP(r *http.Request) string {
	// chi middleware.RealIP ya resolvió X-Forwarded-For / X-Real-IP
	// en RemoteAddr.
	host := r.RemoteAddr
	if i := strings.LastIndex(host, ":"); i > 0 {
		host = host[:i]
	}
	return host
}

// writeJSON/writeError duplicados por módulo a propósito (ver pets/handler.go).
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
