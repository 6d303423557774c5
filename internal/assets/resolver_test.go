package assets

import (
	"bytes"
	"context"
	"image"
	"image/jpeg"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brunocserra/extincor-pdf-function/internal/config"
)

func testImagesConfig() config.ImagesConfig {
	return config.ImagesConfig{
		MaxWidth:         1280,
		JPEGQuality:      65,
		FetchTimeout:     5 * time.Second,
		FetchConcurrency: 2,
	}
}

func jpegBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h)), nil))
	return buf.Bytes()
}

func imageServer(t *testing.T, data []byte) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
		w.Write(data)
	}))
	t.Cleanup(ts.Close)
	return ts
}

func TestResolveSkipsFailedFetch(t *testing.T) {
	good1 := imageServer(t, jpegBytes(t, 10, 10))
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(bad.Close)
	good2 := imageServer(t, jpegBytes(t, 20, 20))

	r := NewResolver(testImagesConfig())
	res := r.Resolve(context.Background(), []string{good1.URL, bad.URL, good2.URL})

	require.Len(t, res.Assets, 2)
	assert.Equal(t, 1, res.Skipped)

	// naming follows the successful fetches' relative order
	assert.Equal(t, "img_01.jpg", res.Assets[0].Filename)
	assert.Equal(t, good1.URL, res.Assets[0].SourceURL)
	assert.Equal(t, "img_02.jpg", res.Assets[1].Filename)
	assert.Equal(t, good2.URL, res.Assets[1].SourceURL)
}

func TestResolveSkipsUndecodableBody(t *testing.T) {
	notAnImage := imageServer(t, []byte("definitely not a jpeg"))

	r := NewResolver(testImagesConfig())
	res := r.Resolve(context.Background(), []string{notAnImage.URL})

	assert.Empty(t, res.Assets)
	assert.Equal(t, 1, res.Skipped)
}

func TestResolveEmptyList(t *testing.T) {
	r := NewResolver(testImagesConfig())
	res := r.Resolve(context.Background(), nil)

	assert.Empty(t, res.Assets)
	assert.Zero(t, res.Skipped)
}

func TestResolveDownscalesWideImages(t *testing.T) {
	ts := imageServer(t, jpegBytes(t, 100, 50))

	cfg := testImagesConfig()
	cfg.MaxWidth = 40
	r := NewResolver(cfg)
	res := r.Resolve(context.Background(), []string{ts.URL})

	require.Len(t, res.Assets, 1)
	img, _, err := image.Decode(bytes.NewReader(res.Assets[0].Data))
	require.NoError(t, err)
	assert.Equal(t, 40, img.Bounds().Dx())
	assert.Equal(t, 20, img.Bounds().Dy())
	assert.Equal(t, "image/jpeg", res.Assets[0].ContentType)
}

func TestResolveNeverUpscales(t *testing.T) {
	ts := imageServer(t, jpegBytes(t, 30, 30))

	r := NewResolver(testImagesConfig())
	res := r.Resolve(context.Background(), []string{ts.URL})

	require.Len(t, res.Assets, 1)
	img, _, err := image.Decode(bytes.NewReader(res.Assets[0].Data))
	require.NoError(t, err)
	assert.Equal(t, 30, img.Bounds().Dx())
}

func TestResolveOrderingIsDeterministic(t *testing.T) {
	servers := make([]*httptest.Server, 5)
	urls := make([]string, 5)
	for i := range servers {
		servers[i] = imageServer(t, jpegBytes(t, 10+i, 10))
		urls[i] = servers[i].URL
	}

	r := NewResolver(testImagesConfig())
	for run := 0; run < 3; run++ {
		res := r.Resolve(context.Background(), urls)
		require.Len(t, res.Assets, 5)
		for i, a := range res.Assets {
			assert.Equal(t, urls[i], a.SourceURL)
		}
	}
}
