package router_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"safehaven/internal/adapters/auth/jwtauth"
	"safehaven/internal/router"

	"github.com/google/uuid"
)

func TestHTTP_EndToEnd_Listings(t *testing.T) {
	ts := httptest.NewServer(router.NewRouter(router.Options{AuthVerifier: nil}))
	defer ts.Close()

	ownerID := uuid.NewString()
	otherID := uuid.NewString()

	// 1) Owner crea listado
	petID := createPet(t, ts.URL, ownerID, map[string]any{
		"name":        "Luna",
		"type":        "perro",
		"breed":       "mestizo",
		"age":         "2 años",
		"location":    "Madrid",
		"description": "muy cariñosa, busca hogar",
		"status":      "adopcion",
		"contact":     "+34 600 123 456",
	})

	// 2) Aparece en la búsqueda
	{
		st, body := doReq(t, ts.URL, "GET", "/api/pets", "", nil)
		if st != http.StatusOK {
			t.Fatalf("expected 200 list, got %d body=%s", st, string(body))
		}
		var resp struct {
			Pets  []map[string]any `json:"pets"`
			Total int              `json:"total"`
		}
		_ = json.Unmarshal(body, &resp)
		if resp.Total != 1 || len(resp.Pets) != 1 {
			t.Fatalf("expected 1 pet, got total=%d body=%s", resp.Total, string(body))
		}
		if resp.Pets[0]["name"] != "Luna" {
			t.Fatalf("unexpected pet body=%s", string(body))
		}
	}

	// 3) Detalle por ID
	{
		st, body := doReq(t, ts.URL, "GET", "/api/pets/"+petID, "", nil)
		if st != http.StatusOK {
			t.Fatalf("expected 200 get, got %d body=%s", st, string(body))
		}
	}

	// 4) Otro usuario no puede editar ni borrar
	{
		st, _ := doReq(t, ts.URL, "PUT", "/api/pets/"+petID, otherID, map[string]any{"name": "Robada"})
		if st != http.StatusForbidden {
			t.Fatalf("expected 403 update by non-owner, got %d", st)
		}
		st, _ = doReq(t, ts.URL, "DELETE", "/api/pets/"+petID, otherID, nil)
		if st != http.StatusForbidden {
			t.Fatalf("expected 403 delete by non-owner, got %d", st)
		}
	}

	// 5) Marcado como adoptado desaparece de la búsqueda por defecto
	{
		st, body := doReq(t, ts.URL, "PUT", "/api/pets/"+petID, ownerID, map[string]any{"status": "adoptado"})
		if st != http.StatusOK {
			t.Fatalf("expected 200 update, got %d body=%s", st, string(body))
		}

		st, body = doReq(t, ts.URL, "GET", "/api/pets", "", nil)
		if st != http.StatusOK {
			t.Fatalf("expected 200 list, got %d", st)
		}
		var resp struct {
			Total int `json:"total"`
		}
		_ = json.Unmarshal(body, &resp)
		if resp.Total != 0 {
			t.Fatalf("expected adopted pet excluded, got total=%d body=%s", resp.Total, string(body))
		}

		// con status=all sigue visible
		st, body = doReq(t, ts.URL, "GET", "/api/pets?status=all", "", nil)
		if st != http.StatusOK {
			t.Fatalf("expected 200 list all, got %d", st)
		}
		_ = json.Unmarshal(body, &resp)
		if resp.Total != 1 {
			t.Fatalf("expected adopted pet with status=all, got total=%d", resp.Total)
		}
	}

	// 6) Owner borra; el detalle pasa a 404
	{
		st, body := doReq(t, ts.URL, "DELETE", "/api/pets/"+petID, ownerID, nil)
		if st != http.StatusOK {
			t.Fatalf("expected 200 delete, got %d body=%s", st, string(body))
		}
		st, _ = doReq(t, ts.URL, "GET", "/api/pets/"+petID, "", nil)
		if st != http.StatusNotFound {
			t.Fatalf("expected 404 after delete, got %d", st)
		}
	}
}

func TestHTTP_Validaciones(t *testing.T) {
	ts := httptest.NewServer(router.NewRouter(router.Options{AuthVerifier: nil}))
	defer ts.Close()

	// crear sin auth => 401
	if st, _ := doReq(t, ts.URL, "POST", "/api/pets", "", map[string]any{"name": "X"}); st != http.StatusUnauthorized {
		t.Fatalf("expected 401 create without auth, got %d", st)
	}

	// ID que no es uuid => 400
	if st, _ := doReq(t, ts.URL, "GET", "/api/pets/not-a-uuid", "", nil); st != http.StatusBadRequest {
		t.Fatalf("expected 400 invalid pet id, got %d", st)
	}

	// uuid desconocido => 404
	if st, _ := doReq(t, ts.URL, "GET", "/api/pets/"+uuid.NewString(), "", nil); st != http.StatusNotFound {
		t.Fatalf("expected 404 unknown pet, got %d", st)
	}

	// userId de búsqueda que no es uuid => 400, no lista vacía
	if st, _ := doReq(t, ts.URL, "GET", "/api/pets?userId=pepe", "", nil); st != http.StatusBadRequest {
		t.Fatalf("expected 400 invalid userId filter, got %d", st)
	}

	// status desconocido => 400
	if st, _ := doReq(t, ts.URL, "GET", "/api/pets?status=perdido", "", nil); st != http.StatusBadRequest {
		t.Fatalf("expected 400 invalid status filter, got %d", st)
	}

	// ubicación desconocida sin coordenadas => 400
	ownerID := uuid.NewString()
	st, body := doReq(t, ts.URL, "POST", "/api/pets", ownerID, map[string]any{
		"name":        "Toby",
		"type":        "perro",
		"location":    "Villaperdida de Arriba",
		"description": "descripción válida",
		"status":      "adopcion",
		"contact":     "+34 600 123 456",
	})
	if st != http.StatusBadRequest {
		t.Fatalf("expected 400 unresolvable location, got %d body=%s", st, string(body))
	}

	// subir imagen sin store configurado => 503
	req, _ := http.NewRequest("POST", ts.URL+"/api/upload", nil)
	req.Header.Set("X-Debug-User-ID", ownerID)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("upload request: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 upload without store, got %d", resp.StatusCode)
	}
}

func TestHTTP_Optimized_ClampeaLimite(t *testing.T) {
	ts := httptest.NewServer(router.NewRouter(router.Options{AuthVerifier: nil}))
	defer ts.Close()

	ownerID := uuid.NewString()
	for i := 0; i < 3; i++ {
		createPet(t, ts.URL, ownerID, map[string]any{
			"name":        "Mascota",
			"type":        "gato",
			"location":    "Barcelona",
			"description": "descripción válida",
			"status":      "adopcion",
			"contact":     "+34600123456",
		})
	}

	st, body := doReq(t, ts.URL, "GET", "/api/pets/optimized?limit=1000", "", nil)
	if st != http.StatusOK {
		t.Fatalf("expected 200 optimized, got %d body=%s", st, string(body))
	}

	var resp struct {
		Pets    []map[string]any `json:"pets"`
		HasMore bool             `json:"hasMore"`
	}
	_ = json.Unmarshal(body, &resp)
	if len(resp.Pets) != 3 {
		t.Fatalf("expected 3 pets, got %d", len(resp.Pets))
	}
	if resp.HasMore {
		t.Fatalf("expected hasMore=false with 3 pets and clamped limit")
	}
	// sin imagen propia viaja el placeholder liviano
	if img, _ := resp.Pets[0]["image"].(string); img != "/placeholder.jpg" {
		t.Fatalf("expected optimized placeholder, got %q", img)
	}
}

func TestHTTP_CacheSeInvalidaAlEscribir(t *testing.T) {
	ts := httptest.NewServer(router.NewRouter(router.Options{AuthVerifier: nil}))
	defer ts.Close()

	ownerID := uuid.NewString()

	// Primer GET llena el cache con la lista vacía.
	st, body := doReq(t, ts.URL, "GET", "/api/pets", "", nil)
	if st != http.StatusOK {
		t.Fatalf("expected 200, got %d", st)
	}

	createPet(t, ts.URL, ownerID, map[string]any{
		"name":        "Nube",
		"type":        "gato",
		"location":    "Valencia",
		"description": "descripción válida",
		"status":      "adopcion",
		"contact":     "+34600123456",
	})

	// La escritura invalidó el cache: el mismo GET ya ve el alta.
	st, body = doReq(t, ts.URL, "GET", "/api/pets", "", nil)
	if st != http.StatusOK {
		t.Fatalf("expected 200, got %d", st)
	}
	var resp struct {
		Total int `json:"total"`
	}
	_ = json.Unmarshal(body, &resp)
	if resp.Total != 1 {
		t.Fatalf("expected cache invalidated after create, got total=%d", resp.Total)
	}
}

func TestHTTP_AuthFlow_JWT(t *testing.T) {
	jwtSvc := jwtauth.New("test-secret", "safehaven", jwtauth.DefaultExpiry)
	ts := httptest.NewServer(router.NewRouter(router.Options{
		AuthVerifier: jwtSvc,
		Tokens:       jwtSvc,
	}))
	defer ts.Close()

	// 1) Registro devuelve token
	st, body := doReq(t, ts.URL, "POST", "/api/auth/register", "", map[string]any{
		"name":            "Ana García",
		"email":           "ana@example.com",
		"password":        "secreta123",
		"consentAccepted": true,
	})
	if st != http.StatusCreated {
		t.Fatalf("expected 201 register, got %d body=%s", st, string(body))
	}
	var reg struct {
		Token string `json:"token"`
		User  struct {
			ID string `json:"id"`
		} `json:"user"`
	}
	_ = json.Unmarshal(body, &reg)
	if reg.Token == "" || reg.User.ID == "" {
		t.Fatalf("register: missing token/user body=%s", string(body))
	}

	// 2) Email duplicado => 409
	st, _ = doReq(t, ts.URL, "POST", "/api/auth/register", "", map[string]any{
		"name":            "Otra Ana",
		"email":           "ANA@example.com",
		"password":        "secreta123",
		"consentAccepted": true,
	})
	if st != http.StatusConflict {
		t.Fatalf("expected 409 duplicate email, got %d", st)
	}

	// 3) Login con credenciales malas => 401
	st, _ = doReq(t, ts.URL, "POST", "/api/auth/login", "", map[string]any{
		"email":    "ana@example.com",
		"password": "incorrecta",
	})
	if st != http.StatusUnauthorized {
		t.Fatalf("expected 401 bad login, got %d", st)
	}

	// 4) Con el token se puede crear un listado
	st, body = doBearer(t, ts.URL, "POST", "/api/pets", reg.Token, map[string]any{
		"name":        "Luna",
		"type":        "perro",
		"location":    "Madrid",
		"description": "descripción válida",
		"status":      "adopcion",
		"contact":     "+34600123456",
	})
	if st != http.StatusCreated {
		t.Fatalf("expected 201 create with jwt, got %d body=%s", st, string(body))
	}

	// 5) Perfil propio con token; sin token => 401
	st, body = doBearer(t, ts.URL, "GET", "/api/profile", reg.Token, nil)
	if st != http.StatusOK {
		t.Fatalf("expected 200 profile, got %d body=%s", st, string(body))
	}
	st, _ = doReq(t, ts.URL, "GET", "/api/profile", "", nil)
	if st != http.StatusUnauthorized {
		t.Fatalf("expected 401 profile without token, got %d", st)
	}

	// X-Debug-User-ID no hace nada con verifier configurado
	st, _ = doReq(t, ts.URL, "GET", "/api/profile", uuid.NewString(), nil)
	if st != http.StatusUnauthorized {
		t.Fatalf("expected 401 with debug header in prod mode, got %d", st)
	}

	// 6) Perfil público del usuario registrado
	st, body = doReq(t, ts.URL, "GET", "/api/profile/public/"+reg.User.ID, "", nil)
	if st != http.StatusOK {
		t.Fatalf("expected 200 public profile, got %d body=%s", st, string(body))
	}
	var pub struct {
		User struct {
			Name      string `json:"name"`
			PetsCount int    `json:"petsCount"`
		} `json:"user"`
	}
	_ = json.Unmarshal(body, &pub)
	if pub.User.Name != "Ana García" || pub.User.PetsCount != 1 {
		t.Fatalf("unexpected public profile body=%s", string(body))
	}
}

func TestHTTP_LegalYStats(t *testing.T) {
	ts := httptest.NewServer(router.NewRouter(router.Options{AuthVerifier: nil}))
	defer ts.Close()

	// registro en modo dev (el issuer usa el secret de dev)
	st, body := doReq(t, ts.URL, "POST", "/api/auth/register", "", map[string]any{
		"name":            "Ana",
		"email":           "ana@example.com",
		"password":        "secreta123",
		"consentAccepted": true,
	})
	if st != http.StatusCreated {
		t.Fatalf("expected 201 register, got %d body=%s", st, string(body))
	}
	var reg struct {
		User struct {
			ID string `json:"id"`
		} `json:"user"`
	}
	_ = json.Unmarshal(body, &reg)

	// actualizar preferencias de cookies
	st, body = doReq(t, ts.URL, "POST", "/api/legal/consents", reg.User.ID, map[string]any{
		"cookiesPreferences": map[string]any{
			"functional": true,
			"analytics":  false,
		},
	})
	if st != http.StatusOK {
		t.Fatalf("expected 200 consents, got %d body=%s", st, string(body))
	}

	// agregados legales
	st, body = doReq(t, ts.URL, "GET", "/api/legal/stats", "", nil)
	if st != http.StatusOK {
		t.Fatalf("expected 200 legal stats, got %d body=%s", st, string(body))
	}
	var legal struct {
		TotalUsers     int            `json:"totalUsers"`
		TermsByVersion map[string]int `json:"termsByVersion"`
		CookieStats    map[string]int `json:"cookieStats"`
	}
	_ = json.Unmarshal(body, &legal)
	if legal.TotalUsers != 1 || legal.TermsByVersion["1.0"] != 1 || legal.CookieStats["functional"] != 1 {
		t.Fatalf("unexpected legal stats body=%s", string(body))
	}

	// stats de la plataforma
	ownerID := uuid.NewString()
	createPet(t, ts.URL, ownerID, map[string]any{
		"name":        "Luna",
		"type":        "perro",
		"location":    "Madrid",
		"description": "descripción válida",
		"status":      "adopcion",
		"urgent":      true,
		"contact":     "+34600123456",
	})

	st, body = doReq(t, ts.URL, "GET", "/api/stats", "", nil)
	if st != http.StatusOK {
		t.Fatalf("expected 200 stats, got %d body=%s", st, string(body))
	}
	var snap struct {
		TotalPets  int `json:"totalPets"`
		UrgentPets int `json:"urgentPets"`
		TotalUsers int `json:"totalUsers"`
	}
	_ = json.Unmarshal(body, &snap)
	if snap.TotalPets != 1 || snap.UrgentPets != 1 || snap.TotalUsers != 1 {
		t.Fatalf("unexpected stats body=%s", string(body))
	}
}

func TestHTTP_HealthYMetrics(t *testing.T) {
	ts := httptest.NewServer(router.NewRouter(router.Options{AuthVerifier: nil}))
	defer ts.Close()

	if st, _ := doReq(t, ts.URL, "GET", "/health", "", nil); st != http.StatusOK {
		t.Fatalf("expected 200 health, got %d", st)
	}
	if st, _ := doReq(t, ts.URL, "GET", "/metrics", "", nil); st != http.StatusOK {
		t.Fatalf("expected 200 metrics, got %d", st)
	}
}

func createPet(t *testing.T, baseURL, userID string, payload map[string]any) string {
	t.Helper()

	st, body := doReq(t, baseURL, "POST", "/api/pets", userID, payload)
	if st != http.StatusCreated {
		t.Fatalf("expected 201 create pet, got %d body=%s", st, string(body))
	}

	var resp struct {
		Pet struct {
			ID string `json:"id"`
		} `json:"pet"`
	}
	_ = json.Unmarshal(body, &resp)
	if resp.Pet.ID == "" {
		t.Fatalf("create pet: missing id body=%s", string(body))
	}
	return resp.Pet.ID
}

func doReq(t *testing.T, baseURL, method, path, debugUserID string, body any) (int, []byte) {
	t.Helper()

	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("json marshal: %v", err)
		}
		rdr = bytes.NewReader(b)
	}

	req, err := http.NewRequest(method, baseURL+path, rdr)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if debugUserID != "" {
		req.Header.Set("X-Debug-User-ID", debugUserID)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()

	b, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, b
}

func doBearer(t *testing.T, baseURL, method, path, token string, body any) (int, []byte) {
	t.Helper()

	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("json marshal: %v", err)
		}
		rdr = bytes.NewReader(b)
	}

	req, err := http.NewRequest(method, baseURL+path, rdr)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()

	b, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, b
}
