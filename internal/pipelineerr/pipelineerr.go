// Package pipelineerr defines the production pipeline's error taxonomy
//. Call sites wrap one of the sentinel kinds with fmt.Errorf and %w,
// the same style the rest of this module uses for error context.
package pipelineerr

import "errors"

// Kind sentinels. Use errors.Is against these after wrapping with
// fmt.Errorf("...: %w", Kind).
var (
	// InvalidArgument marks a wrong or missing parameter at an API
	// boundary (setStoreParameters, offerDataSource, composeRaster).
	InvalidArgument = errors.New("invalid argument")

	// UnreadableSource marks a reader that rejected a source, or whose
	// readMetadata call failed. Reported per source; production
	// continues with the remaining sources.
	UnreadableSource = errors.New("unreadable source")

	// DecodeError marks a reader failure during read. The source is
	// skipped for that tile; the cache remembers the failure so later
	// tiles referencing the same source do not re-attempt the decode.
	DecodeError = errors.New("decode error")

	// ResourceExhausted marks an out-of-memory condition during decode.
	// Handled locally (cache flush, one retry) before being promoted to
	// fatal on a second failure.
	ResourceExhausted = errors.New("resource exhausted")

	// IOError marks a tile write failure. Logged and non-fatal per
	// tile; the resulting dataset is incomplete at that tile.
	IOError = errors.New("io error")

	// OutsideCoverage marks an ad-hoc mosaic request whose sector does
	// not intersect the source catalog.
	OutsideCoverage = errors.New("outside coverage")

	// Cancelled marks a run that unwound because the stop flag was
	// observed. Callers that receive this should not surface it as a
	// failure.
	Cancelled = errors.New("cancelled")
)

// Is reports whether err wraps kind, a thin wrapper over errors.Is kept so
// call sites read pipelineerr.Is(err, pipelineerr.DecodeError) rather than
// mixing stdlib errors and this package at call sites.
func Is(err error, kind error) bool {
	return errors.Is(err, kind)
}
