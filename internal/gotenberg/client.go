package gotenberg

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"

	"github.com/brunocserra/extincor-pdf-function/internal/assets"
	"github.com/brunocserra/extincor-pdf-function/internal/config"
)

// Renderer converts rendered HTML plus photo assets into a PDF document.
type Renderer interface {
	Convert(ctx context.Context, html string, images []assets.Asset) ([]byte, error)
}

var ErrMissingURL = errors.New("GOTENBERG_URL is not configured")

// maxErrorDetail bounds how much of an error response body is carried into
// the error message; the renderer can return large HTML error pages.
const maxErrorDetail = 2048

// Client calls a Gotenberg instance over its multipart HTTP API.
type Client struct {
	url       string
	pdfFormat string
	client    *http.Client
}

func NewClient(cfg config.GotenbergConfig) (*Client, error) {
	if cfg.URL == "" {
		return nil, ErrMissingURL
	}
	return &Client{
		url:       cfg.URL,
		pdfFormat: cfg.PDFFormat,
		client:    &http.Client{Timeout: cfg.Timeout},
	}, nil
}

// Convert submits index.html plus every image as "files" parts and returns
// the raw PDF bytes. Any non-2xx response fails the conversion.
func (c *Client) Convert(ctx context.Context, html string, images []assets.Asset) ([]byte, error) {
	body := &bytes.Buffer{}
	form := multipart.NewWriter(body)

	part, err := form.CreatePart(filePartHeader("index.html", "text/html"))
	if err != nil {
		return nil, fmt.Errorf("failed to build form: %w", err)
	}
	if _, err := part.Write([]byte(html)); err != nil {
		return nil, fmt.Errorf("failed to build form: %w", err)
	}

	for _, img := range images {
		part, err := form.CreatePart(filePartHeader(img.Filename, img.ContentType))
		if err != nil {
			return nil, fmt.Errorf("failed to build form: %w", err)
		}
		if _, err := part.Write(img.Data); err != nil {
			return nil, fmt.Errorf("failed to build form: %w", err)
		}
	}

	if c.pdfFormat != "" {
		if err := form.WriteField("pdfFormat", c.pdfFormat); err != nil {
			return nil, fmt.Errorf("failed to build form: %w", err)
		}
	}
	if err := form.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create renderer request: %w", err)
	}
	req.Header.Set("Content-Type", form.FormDataContentType())

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("renderer call failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorDetail))
		return nil, fmt.Errorf("renderer returned status %d: %s", resp.StatusCode, string(detail))
	}

	pdf, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read renderer response: %w", err)
	}
	if len(pdf) == 0 {
		return nil, errors.New("renderer returned an empty document")
	}
	return pdf, nil
}

func filePartHeader(filename, contentType string) textproto.MIMEHeader {
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="files"; filename="%s"`, filename))
	h.Set("Content-Type", contentType)
	return h
}
