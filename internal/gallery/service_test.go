// Copyright (c) 2026 Glyphlock. All rights reserved.

package gallery_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glyphlock/glyphlock/internal/gallery"
	"github.com/glyphlock/glyphlock/internal/platform/apperr"
)

// stubProvider serves canned pages and records the queries it received.
type stubProvider struct {
	pages    map[int][]gallery.Photo
	err      error
	keywords []string
}

func (p *stubProvider) Search(_ context.Context, keyword string, page, _ int) ([]gallery.Photo, error) {
	p.keywords = append(p.keywords, keyword)
	if p.err != nil {
		return nil, p.err
	}
	return p.pages[page], nil
}

func pageOf(page, count int) []gallery.Photo {
	photos := make([]gallery.Photo, 0, count)
	for index := range count {
		photos = append(photos, gallery.Photo{URL: fmt.Sprintf("https://images.example/%d/%d", page, index)})
	}
	return photos
}

func TestService_FetchCandidates(t *testing.T) {
	t.Run("full_provider_yields_sixteen", func(t *testing.T) {
		provider := &stubProvider{pages: map[int][]gallery.Photo{
			1: pageOf(1, 30),
			2: pageOf(2, 30),
			3: pageOf(3, 30),
		}}
		service := gallery.NewService(provider)

		images, err := service.FetchCandidates(context.Background(), "mountain lakes")
		require.NoError(t, err)
		require.Len(t, images, gallery.CandidateGridSize)

		// Every grid entry must come from the provider pool and carry a
		// fresh, unique server-side id.
		sourceURLs := map[string]bool{}
		for page := 1; page <= 3; page++ {
			for _, photo := range provider.pages[page] {
				sourceURLs[photo.URL] = true
			}
		}
		seenIDs := map[string]bool{}
		for _, image := range images {
			assert.True(t, sourceURLs[image.URL], "unexpected url %s", image.URL)
			assert.NotEmpty(t, image.ID)
			assert.False(t, seenIDs[image.ID], "duplicate id %s", image.ID)
			seenIDs[image.ID] = true
		}
	})

	t.Run("short_results_pass_through", func(t *testing.T) {
		provider := &stubProvider{pages: map[int][]gallery.Photo{1: pageOf(1, 7)}}
		service := gallery.NewService(provider)

		images, err := service.FetchCandidates(context.Background(), "narwhals")
		require.NoError(t, err)
		assert.Len(t, images, 7)
	})

	t.Run("keyword_is_normalized", func(t *testing.T) {
		provider := &stubProvider{pages: map[int][]gallery.Photo{1: pageOf(1, 5)}}
		service := gallery.NewService(provider)

		_, err := service.FetchCandidates(context.Background(), "  Café  Terraces ")
		require.NoError(t, err)
		require.NotEmpty(t, provider.keywords)
		assert.Equal(t, "cafe-terraces", provider.keywords[0])
	})

	t.Run("empty_results_are_a_provider_error", func(t *testing.T) {
		provider := &stubProvider{pages: map[int][]gallery.Photo{}}
		service := gallery.NewService(provider)

		_, err := service.FetchCandidates(context.Background(), "void")
		ae := apperr.As(err)
		require.NotNil(t, ae)
		assert.Equal(t, "PROVIDER_UNAVAILABLE", ae.Code)
		assert.Equal(t, http.StatusInternalServerError, ae.HTTPStatus)
	})

	t.Run("provider_failure_is_surfaced", func(t *testing.T) {
		provider := &stubProvider{err: errors.New("connection refused")}
		service := gallery.NewService(provider)

		_, err := service.FetchCandidates(context.Background(), "storms")
		ae := apperr.As(err)
		require.NotNil(t, ae)
		assert.Equal(t, "PROVIDER_UNAVAILABLE", ae.Code)
		assert.Equal(t, "Failed to fetch images. Please try again later.", ae.Message)
	})
}
