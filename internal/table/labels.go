package table

import (
	"errors"
	"fmt"

	"github.com/JonMunkholm/etltoolbox/internal/cleaning"
	"github.com/JonMunkholm/etltoolbox/internal/mapping"
)

var (
	// ErrInvalidThreshold is returned when a label match threshold is not positive.
	ErrInvalidThreshold = errors.New("label match threshold must be at least 1")

	// ErrLabelRowNotFound is returned when no row has enough cells matching
	// the expected label fingerprints.
	ErrLabelRowNotFound = errors.New("label row could not be identified; make sure the fingerprint map contains the expected label names")
)

// DefaultMatchThreshold is the number of matching cells a row needs to be
// taken as the label row.
const DefaultMatchThreshold = 3

// LabelSearchOptions controls FindColumnLabels.
type LabelSearchOptions struct {
	MatchThreshold    int
	SpecialCharacters string
}

// DefaultLabelSearchOptions returns options with MatchThreshold set to
// DefaultMatchThreshold.
func DefaultLabelSearchOptions() LabelSearchOptions {
	return LabelSearchOptions{MatchThreshold: DefaultMatchThreshold}
}

// CurrentLabels is returned by LocateLabelRow when the table's existing
// labels already match.
const CurrentLabels = -1

// FindColumnLabels finds the real label row of t and promotes it.
//
// Spreadsheets exported by other tools often carry title blocks, notes or
// blank lines above the real header. The first row (top to bottom) with at
// least opts.MatchThreshold cells whose fingerprint is a key of fingerprints
// becomes the label row: its cells replace the labels, and it and every row
// above it are removed. If the current labels already match, t is left
// unchanged. An empty table is a no-op.
func FindColumnLabels(t Tabular, fingerprints mapping.FingerprintMap, opts LabelSearchOptions) error {
	row, err := LocateLabelRow(t, fingerprints, opts)
	if err != nil {
		return err
	}
	if row != CurrentLabels {
		PromoteLabelRow(t, row)
	}
	return nil
}

// LocateLabelRow reports the index of the label row FindColumnLabels would
// promote, or CurrentLabels when the existing labels match or t is empty.
// t is not modified.
func LocateLabelRow(t Tabular, fingerprints mapping.FingerprintMap, opts LabelSearchOptions) (int, error) {
	if opts.MatchThreshold <= 0 {
		return 0, fmt.Errorf("%w: got %d", ErrInvalidThreshold, opts.MatchThreshold)
	}
	if t.RowCount() == 0 || t.ColumnCount() == 0 {
		return CurrentLabels, nil
	}

	labelMatches := 0
	for j := 0; j < t.ColumnCount(); j++ {
		l := t.Label(j)
		if l.Valid && fingerprints.Has(cleaning.Fingerprint(l.Name, opts.SpecialCharacters)) {
			labelMatches++
		}
	}
	if labelMatches >= opts.MatchThreshold {
		return CurrentLabels, nil
	}

	for i := 0; i < t.RowCount(); i++ {
		matches := 0
		for j := 0; j < t.ColumnCount(); j++ {
			v := t.Cell(i, j)
			if v == nil {
				continue
			}
			if fingerprints.Has(cleaning.Fingerprint(v, opts.SpecialCharacters)) {
				matches++
			}
		}
		if matches >= opts.MatchThreshold {
			return i, nil
		}
	}

	return 0, ErrLabelRowNotFound
}

// PromoteLabelRow makes row i the labels of t and removes rows 0 through i.
// A nil cell becomes the null label; other cells are rendered as text, so an
// empty string is a valid, empty label.
func PromoteLabelRow(t Tabular, i int) {
	for j := 0; j < t.ColumnCount(); j++ {
		v := t.Cell(i, j)
		if v == nil {
			t.SetLabel(j, Label{})
			continue
		}
		t.SetLabel(j, NewLabel(cleaning.ToString(v)))
	}
	t.DropRows(rangeIndexes(0, i+1)...)
}

// MapOptions controls MapColumnLabels.
type MapOptions struct {
	SpecialCharacters string
	// NullUnmapped replaces labels that are not in the fingerprint map with
	// the null label, so MergeColumnsByLabel folds them together.
	NullUnmapped bool
}

// MapColumnLabels maps t's labels through fm (see mapping.MapLabels) and
// returns the valid labels that had no mapping, deduplicated in first-seen
// order. Null labels are left as they are.
func MapColumnLabels(t Tabular, fm mapping.FingerprintMap, opts MapOptions) []string {
	var unmapped []string
	seen := make(map[string]bool)

	for j := 0; j < t.ColumnCount(); j++ {
		l := t.Label(j)
		if !l.Valid {
			continue
		}
		if canonical, ok := fm.Lookup(l.Name, opts.SpecialCharacters); ok {
			t.SetLabel(j, NewLabel(canonical))
			continue
		}
		if !seen[l.Name] {
			seen[l.Name] = true
			unmapped = append(unmapped, l.Name)
		}
		if opts.NullUnmapped {
			t.SetLabel(j, Label{})
		}
	}
	return unmapped
}

// DisambiguateLabels renames repeated valid labels with rename
// (mapping.AppendCount when nil). Null labels are not renamed.
func DisambiguateLabels(t Tabular, rename mapping.RenameFunc) {
	var (
		names []string
		cols  []int
	)
	for j := 0; j < t.ColumnCount(); j++ {
		if l := t.Label(j); l.Valid {
			names = append(names, l.Name)
			cols = append(cols, j)
		}
	}

	renamed := mapping.RenameDuplicateLabels(names, rename)
	for k, j := range cols {
		t.SetLabel(j, NewLabel(renamed[k]))
	}
}
