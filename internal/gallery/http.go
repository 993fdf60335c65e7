// Copyright (c) 2026 Glyphlock. All rights reserved.

package gallery

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/glyphlock/glyphlock/internal/platform/respond"
	"github.com/glyphlock/glyphlock/internal/platform/validate"
)

// # Handler

// Handler implements the candidate grid HTTP endpoint.
type Handler struct {
	galleryService *Service
}

// NewHandler constructs a new [Handler] with its service dependency.
func NewHandler(service *Service) *Handler {
	return &Handler{galleryService: service}
}

// Routes returns a [chi.Router] configured with gallery routes. The router
// is mounted under /image.
//
// # Endpoints
//   - GET /search : Returns a candidate grid for a keyword.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	router.Get("/search", handler.search)

	return router
}

/*
Search returns the candidate grid for one category keyword.

GET /api/v1/image/search?keyword=

Description: Assembles at most sixteen shuffled, freshly identified images
for the given keyword.

Response:
  - 200: []pattern.Image: The candidate grid
  - 400: ErrValidation: Missing keyword
  - 500: ErrUpstream: Provider failure or no candidates
*/
func (handler *Handler) search(writer http.ResponseWriter, request *http.Request) {
	keyword := request.URL.Query().Get("keyword")
	if strings.TrimSpace(keyword) == "" {
		respond.Error(writer, request, validate.RequiredError("keyword", "This field is required"))
		return
	}

	images, err := handler.galleryService.FetchCandidates(request.Context(), keyword)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, images)
}
