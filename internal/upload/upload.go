package upload

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
)

var ErrDisabled = errors.New("upload: no image host configured")

// Uploader stores an image and returns its public URL.
type Uploader interface {
	Upload(ctx context.Context, filename string, data []byte) (string, error)
}

// Nop rejects every upload; used when Cloudinary is not configured.
type Nop struct{}

func (Nop) Upload(context.Context, string, []byte) (string, error) { return "", ErrDisabled }

// Cloudinary performs signed uploads to the Cloudinary image API.
type Cloudinary struct {
	cloudName string
	apiKey    string
	apiSecret string
	folder    string
	baseURL   string
	timeout   time.Duration
	now       func() time.Time
}

func NewCloudinary(cloudName, apiKey, apiSecret, folder string) *Cloudinary {
	return &Cloudinary{
		cloudName: cloudName,
		apiKey:    apiKey,
		apiSecret: apiSecret,
		folder:    folder,
		baseURL:   "https://api.cloudinary.com",
		timeout:   30 * time.Second,
		now:       time.Now,
	}
}

func (c *Cloudinary) endpoint() string {
	return fmt.Sprintf("%s/v1_1/%s/image/upload", strings.TrimRight(c.baseURL, "/"), c.cloudName)
}

func (c *Cloudinary) Upload(ctx context.Context, filename string, data []byte) (string, error) {
	params := map[string]string{
		"timestamp":    strconv.FormatInt(c.now().Unix(), 10),
		"use_filename": "true",
	}
	if c.folder != "" {
		params["folder"] = c.folder
	}

	args := fiber.AcquireArgs()
	defer fiber.ReleaseArgs(args)
	for k, v := range params {
		args.Set(k, v)
	}
	args.Set("api_key", c.apiKey)
	args.Set("signature", sign(params, c.apiSecret))

	timeout := c.timeout
	if dl, ok := ctx.Deadline(); ok {
		timeout = time.Until(dl)
	}

	// Files must be attached before the form is encoded.
	a := fiber.Post(c.endpoint()).Timeout(timeout).
		FileData(&fiber.FormFile{Fieldname: "file", Name: filename, Content: data}).
		MultipartForm(args)

	code, body, errs := a.Bytes()
	if len(errs) > 0 {
		return "", fmt.Errorf("cloudinary request: %w", errs[0])
	}

	var res struct {
		SecureURL string `json:"secure_url"`
		Error     struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &res); err != nil {
		return "", fmt.Errorf("cloudinary response (%d): %w", code, err)
	}
	if code != fiber.StatusOK {
		return "", fmt.Errorf("cloudinary upload failed (%d): %s", code, res.Error.Message)
	}
	if res.SecureURL == "" {
		return "", errors.New("cloudinary response without secure_url")
	}
	return res.SecureURL, nil
}

// sign computes Cloudinary's request signature: sha1 of the sorted
// key=value pairs joined by '&', followed by the API secret.
func sign(params map[string]string, secret string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+params[k])
	}
	sum := sha1.Sum([]byte(strings.Join(pairs, "&") + secret))
	return hex.EncodeToString(sum[:])
}
