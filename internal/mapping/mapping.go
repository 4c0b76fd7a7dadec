// Package mapping maps collections of messy labels onto canonical names.
//
// Labels are compared by fingerprint (see cleaning.Fingerprint), so a single
// FingerprintMap entry such as "emladdr" matches "EML-addr", "eml_addr" and
// "Eml Addr" alike.
package mapping

import (
	"sort"

	"github.com/JonMunkholm/etltoolbox/internal/cleaning"
)

// FingerprintMap maps label fingerprints to canonical labels.
// It is read-only configuration; callers build it once and pass it explicitly.
type FingerprintMap map[string]string

// NewFingerprintMap builds a FingerprintMap from raw label variants, keyed by
// their fingerprints. Keys whose fingerprints collide are not rejected: the
// variant that sorts last wins.
func NewFingerprintMap(variants map[string]string, special string) FingerprintMap {
	keys := make([]string, 0, len(variants))
	for k := range variants {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fm := make(FingerprintMap, len(variants))
	for _, k := range keys {
		fm[cleaning.Fingerprint(k, special)] = variants[k]
	}
	return fm
}

// FromVariants builds a FingerprintMap from canonical labels and the variants
// that should map to them. Each canonical label also maps from its own
// fingerprint. Collisions are resolved in favour of the canonical label that
// sorts last.
func FromVariants(canonical map[string][]string, special string) FingerprintMap {
	names := make([]string, 0, len(canonical))
	for name := range canonical {
		names = append(names, name)
	}
	sort.Strings(names)

	fm := make(FingerprintMap)
	for _, name := range names {
		fm[cleaning.Fingerprint(name, special)] = name
		for _, v := range canonical[name] {
			fm[cleaning.Fingerprint(v, special)] = name
		}
	}
	return fm
}

// FromKeys builds a FingerprintMap used only for its keys, such as the set of
// expected labels passed to table.FindColumnLabels. Each key maps to itself.
func FromKeys(keys ...string) FingerprintMap {
	fm := make(FingerprintMap, len(keys))
	for _, k := range keys {
		fm[k] = k
	}
	return fm
}

// Has reports whether fingerprint is a key of the map.
func (m FingerprintMap) Has(fingerprint string) bool {
	_, ok := m[fingerprint]
	return ok
}

// Lookup fingerprints label and returns its canonical label.
func (m FingerprintMap) Lookup(label any, special string) (string, bool) {
	canonical, ok := m[cleaning.Fingerprint(label, special)]
	return canonical, ok
}

// MapLabels returns labels with every label whose fingerprint is in fm
// replaced by its canonical label. Unmatched labels are returned unchanged.
// The result always has the same length and order as labels.
func MapLabels(labels []string, fm FingerprintMap, special string) []string {
	mapped, _ := MapLabelsUnmapped(labels, fm, special)
	return mapped
}

// MapLabelsUnmapped is MapLabels that also reports the labels that were not
// found in fm, deduplicated in first-seen order. Tracking these is useful for
// spotting new column names in incoming files.
func MapLabelsUnmapped(labels []string, fm FingerprintMap, special string) (mapped, unmapped []string) {
	mapped = make([]string, len(labels))
	seen := make(map[string]bool)

	for i, label := range labels {
		if canonical, ok := fm.Lookup(label, special); ok {
			mapped[i] = canonical
			continue
		}
		mapped[i] = label
		if !seen[label] {
			seen[label] = true
			unmapped = append(unmapped, label)
		}
	}
	return mapped, unmapped
}
