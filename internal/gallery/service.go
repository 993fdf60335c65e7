// Copyright (c) 2026 Glyphlock. All rights reserved.

package gallery

import (
	"context"
	"math/rand/v2"

	"github.com/glyphlock/glyphlock/internal/pattern"
	"github.com/glyphlock/glyphlock/internal/platform/apperr"
	"github.com/glyphlock/glyphlock/pkg/slug"
	"github.com/glyphlock/glyphlock/pkg/uuid"
)

// # Candidate Assembly

// Service assembles shuffled candidate grids from provider search results.
type Service struct {
	provider PhotoProvider
}

// NewService constructs a new [Service] with its provider dependency.
func NewService(provider PhotoProvider) *Service {
	return &Service{provider: provider}
}

/*
FetchCandidates builds the candidate grid for one category keyword.

Description: The keyword is normalized to the provider's query vocabulary,
then up to three pages of thirty results are collected. Every photo gets a
fresh server-side UUID, the whole collection is shuffled uniformly, and the
first sixteen survive. Fewer than sixteen candidates are returned as-is; zero
candidates and provider failures both surface as a provider error, since the
client cannot build a credential either way.

Parameters:
  - context: context.Context
  - keyword: string

Returns:
  - []pattern.Image: At most sixteen freshly identified candidates
  - err: Upstream err on provider failure or an empty result set
*/
func (service *Service) FetchCandidates(context context.Context, keyword string) ([]pattern.Image, error) {
	normalized := slug.From(keyword)

	var candidates []pattern.Image
	for page := 1; page <= CandidatePageCount; page++ {
		photos, err := service.provider.Search(context, normalized, page, CandidatePageSize)
		if err != nil {
			return nil, apperr.Upstream("Failed to fetch images. Please try again later.", err)
		}
		for _, photo := range photos {
			candidates = append(candidates, pattern.Image{ID: uuid.New(), URL: photo.URL})
		}
	}

	if len(candidates) == 0 {
		return nil, apperr.Upstream("Failed to fetch images. Please try again later.", nil)
	}

	// Uniform shuffle before truncation so every candidate has the same
	// chance of reaching the grid.
	rand.Shuffle(len(candidates), func(i, j int) {
		candidates[i], candidates[j] = candidates[j], candidates[i]
	})

	if len(candidates) > CandidateGridSize {
		candidates = candidates[:CandidateGridSize]
	}

	return candidates, nil
}
