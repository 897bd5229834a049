package uploads

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"safehaven/internal/middleware"
	"safehaven/internal/platform/logger"
	"safehaven/internal/ports/images"

	"github.com/go-chi/chi/v5"
)

const maxImageBytes = 5 << 20 // 5MB

func RegisterRoutes(r chi.Router, store images.Store, log logger.Logger) {
	r.Post("/api/upload", uploadHandler(store, log))
}

// uploadHandler godoc
// @Summary  Subir imagen de mascota (requiere auth)
// @Accept   multipart/form-data
// @Success  200 {object} map[string]any
// @Router   /api/upload [post]
func uploadHandler(store images.Store, log logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			writeError(w, http.StatusUnauthorized, "token de autenticación requerido")
			return
		}

		if store == nil {
			writeError(w, http.StatusServiceUnavailable, "almacenamiento de imágenes no configurado")
			return
		}

		if err := r.ParseMultipartForm(maxImageBytes); err != nil {
			writeError(w, http.StatusBadRequest, "la imagen no puede superar 5MB")
			return
		}

		file, header, err := r.FormFile("file")
		if err != nil {
			writeError(w, http.StatusBadRequest, "no se proporcionó archivo")
			return
		}
		defer file.Close()

		contentType := header.Header.Get("Content-Type")
		if !strings.HasPrefix(contentType, "image/") {
			writeError(w, http.StatusBadRequest, "solo se permiten imágenes")
			return
		}
		if header.Size > maxImageBytes {
			writeError(w, http.StatusBadRequest, "la imagen no puede superar 5MB")
			return
		}

		data, err := io.ReadAll(io.LimitReader(file, maxImageBytes+1))
		if err != nil {
			writeError(w, http.StatusInternalServerError, "error interno del servidor")
			return
		}
		if len(data) > maxImageBytes {
			writeError(w, http.StatusBadRequest, "la imagen no puede superar 5MB")
			return
		}

		publicID := fmt.Sprintf("pet_%s_%d", claims.UserID, time.Now().UnixMilli())
		result, err := store.Upload(r.Context(), data, contentType, publicID)
		if err != nil {
			log.Error("image upload failed", map[string]any{"err": err.Error()})
			writeError(w, http.StatusInternalServerError, "error interno del servidor")
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"message": "Imagen subida exitosamente",
			"image": map[string]any{
				"url":      result.URL,
				"publicId": result.PublicID,
				"width":    result.Width,
				"height":   result.Height,
			},
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
