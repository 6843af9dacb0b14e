package mosaic

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/geoframe/tilepyramid/internal/geo"
	"github.com/geoframe/tilepyramid/internal/pipelineerr"
)

// Server exposes Composer.ComposeRaster/GetRasterAsByteBuffer over HTTP:
// GET /mosaic?sector=minLat,maxLat,minLon,maxLon&width=...&height=...&format=...
// The core composition logic lives in Composer; this type only adapts it
// to chi's router.
type Server struct {
	composer *Composer
}

// NewServer returns a Server wrapping composer.
func NewServer(composer *Composer) *Server {
	return &Server{composer: composer}
}

// Routes mounts the mosaic endpoint on r.
func (s *Server) Routes(r chi.Router) {
	r.Get("/mosaic", s.handleMosaic)
}

var suffixByFormat = map[string]string{
	"image/png":               ".png",
	"image/jpeg":              ".jpg",
	"image/webp":              ".webp",
	"application/x-scalarraw": ".sraw",
}

func (s *Server) handleMosaic(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	sector, err := parseSector(q.Get("sector"))
	if err != nil {
		http.Error(w, "invalid sector: "+err.Error(), http.StatusBadRequest)
		return
	}
	width, err := strconv.Atoi(q.Get("width"))
	if err != nil || width < 1 {
		http.Error(w, "invalid width", http.StatusBadRequest)
		return
	}
	height, err := strconv.Atoi(q.Get("height"))
	if err != nil || height < 1 {
		http.Error(w, "invalid height", http.StatusBadRequest)
		return
	}

	format := q.Get("format")
	if format == "" {
		format = "image/png"
	}
	suffix, ok := suffixByFormat[format]
	if !ok {
		http.Error(w, "unsupported format "+format, http.StatusBadRequest)
		return
	}

	data, err := s.composer.GetRasterAsByteBuffer(Request{Width: width, Height: height, Sector: sector}, suffix)
	if err != nil {
		if errors.Is(err, pipelineerr.OutsideCoverage) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		log.Printf("mosaic: SEVERE: request failed: %v", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", format)
	w.Write(data)
}

// parseSector parses "minLat,maxLat,minLon,maxLon".
func parseSector(s string) (geo.Sector, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return geo.Empty, errors.New("expected minLat,maxLat,minLon,maxLon")
	}
	vals := make([]float64, 4)
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return geo.Empty, err
		}
		vals[i] = v
	}
	return geo.NewSector(vals[0], vals[1], vals[2], vals[3])
}
