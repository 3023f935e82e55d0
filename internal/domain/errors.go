// Package domain provides shared domain-level sentinel errors.
package domain

import "errors"

// ErrInvalidQuery indicates the submitted query is empty or malformed.
// This is the only failure surfaced to the caller; every other failure
// mode degrades to a still-valid synthesized answer.
var ErrInvalidQuery = errors.New("invalid query")

// ErrUpstreamUnavailable indicates the knowledge lookup service or the
// inference backend could not be reached within the transport policy.
var ErrUpstreamUnavailable = errors.New("upstream unavailable")
