// Copyright (c) 2026 Glyphlock. All rights reserved.

package gallery

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/glyphlock/glyphlock/pkg/slice"
)

// # Unsplash Client

// UnsplashClient implements [PhotoProvider] against the Unsplash search API.
type UnsplashClient struct {
	baseURL    string
	accessKey  string
	httpClient *http.Client
}

// NewUnsplashClient constructs a provider client with a bounded HTTP timeout.
func NewUnsplashClient(baseURL, accessKey string, timeout time.Duration) *UnsplashClient {
	return &UnsplashClient{
		baseURL:    baseURL,
		accessKey:  accessKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// searchResponse mirrors the subset of the Unsplash payload the grid needs.
type searchResponse struct {
	Results []searchResult `json:"results"`
}

type searchResult struct {
	URLs struct {
		Small string `json:"small"`
	} `json:"urls"`
}

/*
Search fetches one page of photo results for a keyword.

Description: Issues GET {base}/search/photos with query, page, and per_page
parameters, authenticating via the Client-ID authorization scheme. The
request is bounded by both the client timeout and the caller's context.

Parameters:
  - context: context.Context
  - keyword: string
  - page: int
  - perPage: int

Returns:
  - []Photo: Result URLs for the page, possibly empty
  - err: Transport errors, non-200 statuses, or malformed payloads
*/
func (client *UnsplashClient) Search(context context.Context, keyword string, page, perPage int) ([]Photo, error) {
	endpoint, err := url.Parse(client.baseURL + "/search/photos")
	if err != nil {
		return nil, fmt.Errorf("photo_provider_bad_base_url: %w", err)
	}

	query := endpoint.Query()
	query.Set("query", keyword)
	query.Set("page", strconv.Itoa(page))
	query.Set("per_page", strconv.Itoa(perPage))
	endpoint.RawQuery = query.Encode()

	request, err := http.NewRequestWithContext(context, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("photo_provider_build_request_failed: %w", err)
	}
	request.Header.Set("Authorization", "Client-ID "+client.accessKey)
	request.Header.Set("Accept-Version", "v1")

	response, err := client.httpClient.Do(request)
	if err != nil {
		return nil, fmt.Errorf("photo_provider_request_failed: %w", err)
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("photo_provider_status_%d", response.StatusCode)
	}

	var payload searchResponse
	if err := json.NewDecoder(response.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("photo_provider_decode_failed: %w", err)
	}

	photos := slice.Map(payload.Results, func(result searchResult) Photo {
		return Photo{URL: result.URLs.Small}
	})

	return photos, nil
}
