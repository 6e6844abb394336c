package media

import "errors"

// Sentinel errors for media operations.
var (
	// ErrNotFound indicates the referenced file does not exist under the
	// media root.
	ErrNotFound = errors.New("media: file not found")

	// ErrInvalidReference indicates the filename resolves outside the
	// media root or is otherwise malformed.
	ErrInvalidReference = errors.New("media: invalid reference")

	// ErrExists indicates a write would overwrite an existing file.
	ErrExists = errors.New("media: file already exists")
)
