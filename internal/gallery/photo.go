// Copyright (c) 2026 Glyphlock. All rights reserved.

/*
Package gallery assembles the candidate image grids a client picks its
graphical credential from.

It queries an external photo provider for a keyword, re-identifies every
photo with a fresh server-side id, and returns a uniformly shuffled grid of
fixed size. The provider is an external collaborator behind a narrow
contract so tests and alternative backends can slot in.
*/
package gallery

import "context"

// # Provider Contract

// Grid assembly parameters. Three provider pages are drawn per keyword so a
// shuffled grid of 16 is sampled from up to 90 candidates.
const (
	CandidatePageCount = 3
	CandidatePageSize  = 30
	CandidateGridSize  = 16
)

// Photo is a single provider result, reduced to the one field the grid
// needs. Provider-side ids are discarded; the service assigns its own.
type Photo struct {
	URL string
}

// PhotoProvider is the outbound contract for keyword photo search.
//
// Implementations must honor context cancellation and bound every request
// with a timeout so grid assembly never hangs on a slow upstream.
type PhotoProvider interface {
	Search(context context.Context, keyword string, page, perPage int) ([]Photo, error)
}
