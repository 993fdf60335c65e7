// Copyright (c) 2026 Glyphlock. All rights reserved.

/*
Package pattern implements the graphical credential model.

A credential is built during enrollment from per-category image selections:
the user is shown a shuffled slice of candidate images for each topical
category they name, and the ids they pick across all categories form the
pattern, the actual secret verified at login.

# Architecture

  - Draft: Mutable accumulator with toggle-select semantics, used while the
    user is still picking.
  - Credential: The immutable, validated enrollment-time bundle persisted on
    the account.

Entities defined here have no storage or transport dependencies and
encapsulate every business rule about what makes a selection a valid secret.
*/
package pattern

import (
	"fmt"
	"slices"

	"github.com/glyphlock/glyphlock/internal/platform/apperr"
	"github.com/glyphlock/glyphlock/internal/platform/validate"
	pkgslice "github.com/glyphlock/glyphlock/pkg/slice"
)

// # Selection Bounds

const (
	// MaxSelections caps how many images may be live-selected while building
	// a draft. This UI-facing cap is fixed at 5, independent of the wider
	// storage bound below; the cap binds at selection time, the range at
	// commit time.
	MaxSelections = 5

	// MinPatternSize and MaxPatternSize bound the stored secret.
	MinPatternSize = 5
	MaxPatternSize = 25

	// MinCategories and MaxCategories bound how many topical categories a
	// credential may draw from.
	MinCategories = 1
	MaxCategories = 5

	// RequiredSetCount is the exact number of category sets captured at
	// enrollment. Enforced only at creation, never re-validated afterward.
	RequiredSetCount = 5
)

// ErrPatternFull is returned by [Draft.Select] when a 6th distinct image is
// selected while the cap is already reached. The draft is left unchanged.
var ErrPatternFull = apperr.Unprocessable("Pattern already holds the maximum number of selections")

// # Domain Entities

// Image is a single candidate photo presented during enrollment.
type Image struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// CategorySet records everything shown and chosen for one category: the full
// candidate slice displayed at enrollment time (kept for later re-display)
// and the subset of ids the user actually selected.
type CategorySet struct {
	Category    string   `json:"category"`
	Images      []Image  `json:"images"`
	SelectedIDs []string `json:"selectedIds"`
}

// Credential is the enrollment-time bundle stored on an identity.
//
// # Invariants
//
//   - Pattern is exactly the union of SelectedIDs across Sets, no duplicates.
//   - MinPatternSize <= |Pattern| <= MaxPatternSize.
//   - MinCategories <= |Categories| <= MaxCategories.
//   - |Sets| == RequiredSetCount at creation.
//
// Pattern is the secret; it never crosses the transport boundary after
// enrollment and is therefore excluded from JSON.
type Credential struct {
	Pattern    []string      `json:"-"`
	Categories []string      `json:"categories"`
	Sets       []CategorySet `json:"sets"`
}

// Matches reports whether a submitted selection reproduces the stored pattern.
//
// The comparison is set equality: the submission must have the same length as
// the stored pattern and every submitted id must be a member of it. Order and
// duplicates are irrelevant once length and membership match; any permutation
// of the correct id set succeeds.
func (credential *Credential) Matches(submitted []string) bool {
	if len(submitted) != len(credential.Pattern) {
		return false
	}

	for _, id := range submitted {
		if !slices.Contains(credential.Pattern, id) {
			return false
		}
	}

	return true
}

// # Draft Builder

// Draft accumulates a cross-category image selection during enrollment.
//
// # Concurrency
//
// A Draft belongs to one enrollment flow and is not safe for concurrent use.
type Draft struct {
	pattern    []string
	categories []string
	sets       []CategorySet
}

// NewDraft returns an empty selection draft.
func NewDraft() *Draft {
	return &Draft{}
}

// Pattern returns a copy of the currently selected image ids.
func (draft *Draft) Pattern() []string {
	return slices.Clone(draft.pattern)
}

// Categories returns a copy of the currently active category labels.
func (draft *Draft) Categories() []string {
	return slices.Clone(draft.categories)
}

// Sets returns a copy of the category sets captured so far.
func (draft *Draft) Sets() []CategorySet {
	return slices.Clone(draft.sets)
}

/*
Select toggles one image in the draft.

Description: A first select of an id adds it to the pattern and to the owning
category's set (snapshotting the currently displayed candidate slice if the
category is new). A second select of the same id undoes the first: toggle
semantics, so replaying the same event is an idempotent undo. A category whose
last selection is removed is dropped from the category list; its set keeps the
displayed slice.

Parameters:
  - category: The label of the category the image was shown under.
  - imageID: The opaque id of the toggled image.
  - pool: The candidate slice currently displayed for the category.

Returns:
  - error: ErrPatternFull when a new id is selected at the cap; nil otherwise.
*/
func (draft *Draft) Select(category, imageID string, pool []Image) error {

	// ── Deselection ───────────────────────────────────────────────────────
	if slices.Contains(draft.pattern, imageID) {
		draft.pattern = pkgslice.Filter(draft.pattern, func(id string) bool {
			return id != imageID
		})

		for i := range draft.sets {
			set := &draft.sets[i]
			if !slices.Contains(set.SelectedIDs, imageID) {
				continue
			}

			set.SelectedIDs = pkgslice.Filter(set.SelectedIDs, func(id string) bool {
				return id != imageID
			})

			// A category with no remaining selections is no longer part of
			// the credential; the set keeps the images that were shown.
			if len(set.SelectedIDs) == 0 {
				draft.categories = pkgslice.Filter(draft.categories, func(label string) bool {
					return label != set.Category
				})
			}
			break
		}

		return nil
	}

	// ── Selection ─────────────────────────────────────────────────────────
	if len(draft.pattern) >= MaxSelections {
		return ErrPatternFull
	}

	draft.pattern = append(draft.pattern, imageID)

	if !slices.Contains(draft.categories, category) {
		draft.categories = append(draft.categories, category)
	}

	for i := range draft.sets {
		if draft.sets[i].Category == category {
			draft.sets[i].SelectedIDs = append(draft.sets[i].SelectedIDs, imageID)
			return nil
		}
	}

	// First selection under this category: snapshot the displayed slice.
	draft.sets = append(draft.sets, CategorySet{
		Category:    category,
		Images:      slices.Clone(pool),
		SelectedIDs: []string{imageID},
	})

	return nil
}

/*
Finalize validates the enrollment-time constraints and seals the draft.

Returns:
  - *Credential: The immutable credential, ready for persistence.
  - error: A VALIDATION_ERROR naming every violated bound.
*/
func (draft *Draft) Finalize() (*Credential, error) {
	credential := &Credential{
		Pattern:    slices.Clone(draft.pattern),
		Categories: slices.Clone(draft.categories),
		Sets:       slices.Clone(draft.sets),
	}

	if err := Validate(credential); err != nil {
		return nil, err
	}

	return credential, nil
}

// # Validation

/*
Validate checks the signup-time constraints and structural invariants of a
credential, whether built through [Draft] or assembled by a client.

Description: Bounds: pattern size in [MinPatternSize, MaxPatternSize],
category count in [MinCategories, MaxCategories], exactly RequiredSetCount
sets. Structure: every selected id references an image of its own set, and
the pattern is exactly the duplicate-free union of all selected ids.

Returns:
  - error: A VALIDATION_ERROR with one field entry per violation, or nil.
*/
func Validate(credential *Credential) error {
	validator := &validate.Validator{}
	validator.Range("pattern", len(credential.Pattern), MinPatternSize, MaxPatternSize).
		Range("categories", len(credential.Categories), MinCategories, MaxCategories).
		Custom("sets", len(credential.Sets) != RequiredSetCount,
			fmt.Sprintf("Exactly %d image sets are required", RequiredSetCount))

	// Bounds gate the structural checks: a credential with the wrong shape
	// cannot meaningfully satisfy the union invariant anyway.
	if validator.HasErrors() {
		return validator.Err()
	}

	// Structural invariants: selections reference displayed images, and the
	// pattern is the duplicate-free union of all selections.
	selected := make(map[string]bool)
	for _, set := range credential.Sets {
		shown := make(map[string]bool, len(set.Images))
		for _, image := range set.Images {
			shown[image.ID] = true
		}

		for _, id := range set.SelectedIDs {
			validator.Custom("sets", !shown[id],
				"Selected image does not belong to its category set")
			if shown[id] {
				selected[id] = true
			}
		}
	}

	union := len(selected) == len(credential.Pattern)
	for _, id := range credential.Pattern {
		if !selected[id] {
			union = false
		}
	}
	validator.Custom("pattern", !union,
		"Pattern must equal the union of selected images across sets")

	return validator.Err()
}
