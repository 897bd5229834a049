package images

import "context"

// UploadResult es lo que devuelve el image store al subir.
type UploadResult struct {
	URL      string
	PublicID string
	Width    int
	Height   int
	Bytes    int64
}

// Store abstrae el almacenamiento externo de imágenes.
// Upload recibe la imagen cruda; Delete es best-effort desde el punto de
// vista de los callers (una falla se loguea, no corta la operación primaria).
type Store interface {
	Upload(ctx context.Context, data []byte, contentType string, publicID string) (UploadResult, error)
	Delete(ctx context.Context, publicID string) error
}
