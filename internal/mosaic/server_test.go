package mosaic

import (
	"bytes"
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geoframe/tilepyramid/internal/catalog"
	"github.com/geoframe/tilepyramid/internal/rastercache"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	cat := catalog.New()
	cache := rastercache.New(1 << 30)
	addFake(t, cat, cache, "fake-a", mustSector(t, 0, 10, 0, 10))

	r := chi.NewRouter()
	NewServer(New(cat)).Routes(r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func TestMosaicEndpointReturnsPNG(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/mosaic?sector=0,10,0,10&width=32&height=32&format=image/png")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))

	var buf bytes.Buffer
	_, err = buf.ReadFrom(resp.Body)
	require.NoError(t, err)
	img, err := png.Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, 32, img.Bounds().Dx())
}

func TestMosaicEndpointOutsideCoverageIs404(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/mosaic?sector=40,50,40,50&width=8&height=8")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestMosaicEndpointRejectsBadParams(t *testing.T) {
	srv := newTestServer(t)

	for _, query := range []string{
		"sector=0,10,0&width=8&height=8",
		"sector=0,10,0,10&width=0&height=8",
		"sector=0,10,0,10&width=8&height=8&format=image/tiff",
	} {
		resp, err := http.Get(srv.URL + "/mosaic?" + query)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, query)
	}
}
