package indexer

import "errors"

// ErrIndexBuildFailure marks a failed collection recreate, embedding or upsert.
// The collection may be left empty or partially written.
var ErrIndexBuildFailure = errors.New("index build failed")
