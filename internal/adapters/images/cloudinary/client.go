package cloudinary

import (
	"context"
	"crypto/sha1"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"safehaven/internal/platform/httpclient"
	"safehaven/internal/ports/images"
)

const (
	DefaultBaseURL = "https://api.cloudinary.com/v1_1"
	DefaultTimeout = 30 * time.Second
)

// Config de Cloudinary. CloudName/APIKey/APISecret salen del dashboard.
type Config struct {
	CloudName string
	APIKey    string
	APISecret string
	Folder    string
	BaseURL   string // override para tests
	Timeout   time.Duration
}

// Client sube y borra imágenes en Cloudinary.
// Implementa images.Store. Usa la API firmada (no unsigned presets):
// la firma es SHA-1 de los params ordenados + api secret.
type Client struct {
	cfg  Config
	http *httpclient.Client
	now  func() time.Time
}

func NewClient(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.CloudName) == "" {
		return nil, fmt.Errorf("cloudinary: cloud name requerido")
	}
	if strings.TrimSpace(cfg.APIKey) == "" || strings.TrimSpace(cfg.APISecret) == "" {
		return nil, fmt.Errorf("cloudinary: api key/secret requeridos")
	}
	if strings.TrimSpace(cfg.BaseURL) == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	return &Client{
		cfg:  cfg,
		http: httpclient.New(cfg.Timeout),
		now:  time.Now,
	}, nil
}

type uploadResponse struct {
	SecureURL string `json:"secure_url"`
	PublicID  string `json:"public_id"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	Bytes     int64  `json:"bytes"`
}

// Upload sube la imagen como data URI base64.
func (c *Client) Upload(ctx context.Context, data []byte, contentType, publicID string) (images.UploadResult, error) {
	if len(data) == 0 {
		return images.UploadResult{}, fmt.Errorf("cloudinary: imagen vacía")
	}
	if contentType == "" {
		contentType = "image/jpeg"
	}

	dataURI := fmt.Sprintf("data:%s;base64,%s", contentType, base64.StdEncoding.EncodeToString(data))

	params := map[string]string{
		"public_id": publicID,
		"timestamp": fmt.Sprintf("%d", c.now().Unix()),
	}
	if c.cfg.Folder != "" {
		params["folder"] = c.cfg.Folder
	}

	form := url.Values{}
	for k, v := range params {
		form.Set(k, v)
	}
	form.Set("file", dataURI)
	form.Set("api_key", c.cfg.APIKey)
	form.Set("signature", c.sign(params))

	endpoint := fmt.Sprintf("%s/%s/image/upload", c.cfg.BaseURL, c.cfg.CloudName)

	var resp uploadResponse
	if err := c.http.DoForm(ctx, endpoint, form, &resp); err != nil {
		return images.UploadResult{}, fmt.Errorf("cloudinary upload: %w", err)
	}

	return images.UploadResult{
		URL:      resp.SecureURL,
		PublicID: resp.PublicID,
		Width:    resp.Width,
		Height:   resp.Height,
		Bytes:    resp.Bytes,
	}, nil
}

type destroyResponse struct {
	Result string `json:"result"`
}

// Delete borra una imagen por public_id. "not found" no es error:
// el objetivo (que la imagen no exista) ya se cumple.
func (c *Client) Delete(ctx context.Context, publicID string) error {
	if strings.TrimSpace(publicID) == "" {
		return fmt.Errorf("cloudinary: public_id vacío")
	}

	params := map[string]string{
		"public_id": publicID,
		"timestamp": fmt.Sprintf("%d", c.now().Unix()),
	}

	form := url.Values{}
	for k, v := range params {
		form.Set(k, v)
	}
	form.Set("api_key", c.cfg.APIKey)
	form.Set("signature", c.sign(params))

	endpoint := fmt.Sprintf("%s/%s/image/destroy", c.cfg.BaseURL, c.cfg.CloudName)

	var resp destroyResponse
	if err := c.http.DoForm(ctx, endpoint, form, &resp); err != nil {
		return fmt.Errorf("cloudinary destroy: %w", err)
	}

	if resp.Result != "ok" && resp.Result != "not found" {
		return fmt.Errorf("cloudinary destroy: result=%s", resp.Result)
	}
	return nil
}

// sign calcula la firma: sha1("k1=v1&k2=v2..." + secret) con keys ordenadas.
// file/api_key/signature quedan fuera de la firma según la API.
func (c *Client) sign(params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+params[k])
	}

	h := sha1.Sum([]byte(strings.Join(pairs, "&") + c.cfg.APISecret))
	return hex.EncodeToString(h[:])
}
