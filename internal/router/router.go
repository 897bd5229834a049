package router

import (
	"database/sql"
	"net/http"
	"os"

	"safehaven/internal/adapters/auth/jwtauth"
	mem "safehaven/internal/adapters/storage/memory"
	pg "safehaven/internal/adapters/storage/postgres"
	"safehaven/internal/cache"
	"safehaven/internal/domain/pets"
	"safehaven/internal/domain/stats"
	"safehaven/internal/domain/uploads"
	"safehaven/internal/domain/users"
	"safehaven/internal/geo"
	"safehaven/internal/middleware"
	"safehaven/internal/platform/logger"
	"safehaven/internal/platform/metrics"
	"safehaven/internal/ports/auth"
	"safehaven/internal/ports/images"

	_ "safehaven/docs"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"
)

type Options struct {
	AuthVerifier auth.AuthVerifier // puede ser nil (modo dev: X-Debug-User-ID)
	Tokens       users.TokenIssuer // si es nil se construye con JWT_SECRET

	// Opcional: si viene, usa Postgres. Si no, in-memory.
	DB *sql.DB

	// Geocoder remoto (Nominatim). Puede ser nil: queda solo la tabla
	// de ciudades como estrategia.
	Geocoder geo.Strategy

	// Storage de imágenes (Cloudinary). Puede ser nil: /api/upload
	// responde 503 y los listados quedan con placeholder.
	Images images.Store

	Log logger.Logger
}

func NewRouter(opts Options) http.Handler {
	log := opts.Log
	if log == nil {
		log = logger.NewFromEnv()
	}

	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)

	r.Use(middleware.AuthContext(opts.AuthVerifier))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	// Registry propio: permite levantar varios routers en tests sin
	// chocar con el registro global.
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	r.Get("/swagger/*", httpSwagger.Handler())

	var (
		petRepo   pets.Repository
		userRepo  users.Repository
		statsRepo stats.Repository
	)

	// Si no te pasan DB explícita, intenta por env (para dev/handoff)
	db := opts.DB
	if db == nil {
		if dsn := os.Getenv("DB_DSN"); dsn != "" {
			opened, err := pg.Open(dsn)
			if err == nil {
				db = opened
			} else {
				log.Warn("postgres no disponible, usando memoria", map[string]any{"error": err.Error()})
			}
		}
	}

	if db != nil {
		petRepo = pg.NewPetsRepo(db)
		userRepo = pg.NewUsersRepo(db)
		statsRepo = pg.NewStatsRepo(db)
	} else {
		memUsers := mem.NewUserRepo()
		memPets := mem.NewPetRepo(memUsers)
		petRepo = memPets
		userRepo = memUsers
		statsRepo = mem.NewStatsRepo(memPets, memUsers)
	}

	tokens := opts.Tokens
	if tokens == nil {
		secret := os.Getenv("JWT_SECRET")
		if secret == "" {
			// solo dev: nunca dejar esto en un deploy real
			secret = "dev-secret-change-me"
			log.Warn("JWT_SECRET no seteado, usando secret de dev", nil)
		}
		tokens = jwtauth.New(secret, "safehaven", jwtauth.DefaultExpiry)
	}

	// Estrategias de coordenadas: geocoder remoto primero, tabla de
	// ciudades como fallback.
	strategies := make([]geo.Strategy, 0, 2)
	if opts.Geocoder != nil {
		strategies = append(strategies, opts.Geocoder)
	}
	strategies = append(strategies, geo.NewCityTable())
	resolver := geo.NewResolver(strategies...)

	// Caches de listados: corto TTL, capacidad acotada.
	caches := pets.Caches{
		Listings:  cache.New(cache.ListingsTTL, cache.ListingsCap),
		Optimized: cache.New(cache.OptimizedTTL, cache.OptimizedCap),
	}

	// Services por módulo
	petsSvc := pets.NewService(petRepo, resolver, opts.Images, log)
	usersSvc := users.NewService(userRepo)
	statsSvc := stats.NewService(statsRepo, stats.DefaultTTL)

	// Rutas por módulo
	pets.RegisterRoutes(r, petsSvc, caches, m)
	users.RegisterRoutes(r, usersSvc, tokens, petsSvc, m)
	stats.RegisterRoutes(r, statsSvc)
	uploads.RegisterRoutes(r, opts.Images, log)

	return r
}
