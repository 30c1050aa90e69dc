package core

import "errors"

// Runtime failures the pipeline must survive. Storage trouble degrades to
// transient in-memory state; model trouble suppresses the response after the
// cooldown charge. Neither may take down a listener loop.
var (
	ErrStorageUnavailable = errors.New("storage unavailable")
	ErrModelCall          = errors.New("model call failed")
	ErrModelTimeout       = errors.New("model call timed out")
)
