package runs

import "errors"

var (
	// ErrRunExists indicates a Create with an id that is already registered.
	ErrRunExists = errors.New("run id already exists")

	// ErrRunNotFound indicates a lookup for an unknown run id.
	ErrRunNotFound = errors.New("run not found")

	// ErrWrongRunType indicates an operation applied to the wrong run type,
	// e.g. filtering an inventory run as if it were a scan.
	ErrWrongRunType = errors.New("wrong run type")

	// ErrMalformedReport indicates a report missing a required top-level
	// field, e.g. a scan report without a findings array.
	ErrMalformedReport = errors.New("malformed report")
)
