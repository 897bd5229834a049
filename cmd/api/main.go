package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"safehaven/internal/adapters/auth/jwtauth"
	"safehaven/internal/adapters/geocode/nominatim"
	"safehaven/internal/adapters/images/cloudinary"
	"safehaven/internal/adapters/storage/postgres"
	"safehaven/internal/platform/logger"
	"safehaven/internal/router"
)

func main() {
	log := logger.NewFromEnv()

	addr := ":8080"
	if v := os.Getenv("PORT"); v != "" {
		addr = ":" + v
	}

	opts := router.Options{Log: log}

	// Con JWT_SECRET el mismo service firma y verifica tokens.
	// Sin él queda el modo dev del middleware (X-Debug-User-ID).
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		jwtSvc := jwtauth.New(secret, "safehaven", jwtauth.DefaultExpiry)
		opts.AuthVerifier = jwtSvc
		opts.Tokens = jwtSvc
	} else {
		log.Warn("JWT_SECRET no seteado: auth en modo dev", nil)
	}

	if dsn := os.Getenv("DB_DSN"); dsn != "" {
		db, err := postgres.Open(dsn)
		if err != nil {
			log.Error("no se pudo conectar a postgres", map[string]any{"error": err.Error()})
			os.Exit(1)
		}
		defer db.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := postgres.EnsureSchema(ctx, db); err != nil {
			cancel()
			log.Error("no se pudo crear el schema", map[string]any{"error": err.Error()})
			os.Exit(1)
		}
		cancel()

		opts.DB = db
	}

	opts.Geocoder = nominatim.NewClient(nominatim.Config{
		BaseURL:   os.Getenv("NOMINATIM_BASE_URL"),
		UserAgent: os.Getenv("NOMINATIM_USER_AGENT"),
	})

	if cloudName := os.Getenv("CLOUDINARY_CLOUD_NAME"); cloudName != "" {
		store, err := cloudinary.NewClient(cloudinary.Config{
			CloudName: cloudName,
			APIKey:    os.Getenv("CLOUDINARY_API_KEY"),
			APISecret: os.Getenv("CLOUDINARY_API_SECRET"),
			Folder:    os.Getenv("CLOUDINARY_FOLDER"),
		})
		if err != nil {
			log.Warn("cloudinary deshabilitado", map[string]any{"error": err.Error()})
		} else {
			opts.Images = store
		}
	}

	r := router.NewRouter(opts)

	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	log.Info("starting server", map[string]any{"addr": addr})
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server error", map[string]any{"error": err.Error()})
		os.Exit(1)
	}
}
