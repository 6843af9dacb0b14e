// Package source implements the reader/writer registry: readers and
// writers for concrete tile/elevation formats, selected by a fixed-priority
// registry, plus the SourceRef each operates against.
package source

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// Ref is an opaque reference to a source: a local file path, an http(s)
// URL, or an in-memory buffer. Path is always
// set — for an in-memory buffer it carries the name the suffix dispatch
// runs against.
type Ref struct {
	Path string
	Data []byte
}

// Suffix returns the lowercased file extension, including the leading dot.
// For URL refs the query string is ignored.
func (r Ref) Suffix() string {
	path := r.Path
	if r.isURL() {
		if u, err := url.Parse(r.Path); err == nil {
			path = u.Path
		}
	}
	return strings.ToLower(filepath.Ext(path))
}

func (r Ref) isURL() bool {
	return strings.HasPrefix(r.Path, "http://") || strings.HasPrefix(r.Path, "https://")
}

// isFile reports whether Open would hit the local filesystem, which is what
// sidecar lookups (world files) key on.
func (r Ref) isFile() bool {
	return r.Data == nil && !r.isURL()
}

// Open returns a reader over the source's bytes. The caller closes it.
func (r Ref) Open() (io.ReadCloser, error) {
	if r.Data != nil {
		return io.NopCloser(bytes.NewReader(r.Data)), nil
	}
	if r.isURL() {
		resp, err := http.Get(r.Path)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return nil, fmt.Errorf("source: %s: unexpected status %s", r.Path, resp.Status)
		}
		return resp.Body, nil
	}
	return os.Open(r.Path)
}

// ReadAll reads the source's entire contents.
func (r Ref) ReadAll() ([]byte, error) {
	if r.Data != nil {
		return r.Data, nil
	}
	f, err := r.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

func (r Ref) String() string {
	if r.Data != nil {
		return fmt.Sprintf("%s (in-memory, %d bytes)", r.Path, len(r.Data))
	}
	return r.Path
}
