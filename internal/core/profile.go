package core

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/JonMunkholm/etltoolbox/internal/cleaning"
	"github.com/JonMunkholm/etltoolbox/internal/mapping"
	"github.com/JonMunkholm/etltoolbox/internal/table"
)

// ErrUnknownProfile is returned when a profile name is not registered.
var ErrUnknownProfile = errors.New("unknown cleaning profile")

// MergeMode selects what happens to columns sharing a label.
type MergeMode string

const (
	// MergeFirst keeps the first non-null value per row.
	MergeFirst MergeMode = "first"
	// MergeCollect keeps every non-null value per row as a list.
	MergeCollect MergeMode = "collect"
	// MergeRename keeps every column and suffixes repeated labels
	// ("email_1", "email_2").
	MergeRename MergeMode = "rename"
)

// Profile is a named cleaning configuration: which labels to expect, how to
// recognise nulls and how aggressively to drop empty rows and columns.
type Profile struct {
	Name        string
	Description string

	// Fingerprints maps label fingerprints to canonical labels.
	Fingerprints      mapping.FingerprintMap
	SpecialCharacters string

	MatchThreshold  int
	SkipLabelSearch bool

	// NullTokens are added to the default null tokens.
	NullTokens   []string
	FalseyIsNull bool

	EmptyRowThresh    int
	EmptyColumnThresh int

	NullUnmapped bool
	Merge        MergeMode
	Deduplicate  bool
}

// DefaultProfile cleans nulls and whitespace without any label knowledge.
// Label search is skipped because there is nothing to search for.
func DefaultProfile() Profile {
	return Profile{
		Name:              "default",
		Description:       "Whitespace and null cleanup only",
		Fingerprints:      mapping.FingerprintMap{},
		MatchThreshold:    table.DefaultMatchThreshold,
		SkipLabelSearch:   true,
		EmptyRowThresh:    1,
		EmptyColumnThresh: 1,
		Merge:             MergeFirst,
	}
}

// LabelSearchOptions returns the options for table.FindColumnLabels.
func (p Profile) LabelSearchOptions() table.LabelSearchOptions {
	return table.LabelSearchOptions{
		MatchThreshold:    p.MatchThreshold,
		SpecialCharacters: p.SpecialCharacters,
	}
}

// MapOptions returns the options for table.MapColumnLabels.
func (p Profile) MapOptions() table.MapOptions {
	return table.MapOptions{
		SpecialCharacters: p.SpecialCharacters,
		NullUnmapped:      p.NullUnmapped,
	}
}

// MergeOptions returns the options for table.MergeColumnsByLabel.
func (p Profile) MergeOptions() table.MergeOptions {
	opts := table.MergeOptions{Deduplicate: p.Deduplicate}
	if p.Merge == MergeCollect {
		opts.Strategy = table.MergeCollect
	}
	return opts
}

// NullOptions returns the resolved cell-level null options.
func (p Profile) NullOptions() cleaning.NullOptions {
	tokens := cleaning.DefaultNullTokens()
	if len(p.NullTokens) > 0 {
		tokens = tokens.With(p.NullTokens...)
	}
	return cleaning.NullOptions{
		Tokens:            tokens,
		FalseyIsNull:      p.FalseyIsNull,
		SpecialCharacters: p.SpecialCharacters,
	}
}

// CleanNullOptions returns the options for table.CleanNull.
func (p Profile) CleanNullOptions() table.CleanNullOptions {
	return table.CleanNullOptions{
		NullOptions:       p.NullOptions(),
		EmptyRowThresh:    p.EmptyRowThresh,
		EmptyColumnThresh: p.EmptyColumnThresh,
	}
}

// Validate reports configuration problems.
func (p Profile) Validate() error {
	var errs []string
	if strings.TrimSpace(p.Name) == "" {
		errs = append(errs, "name is required")
	}
	if p.MatchThreshold <= 0 {
		errs = append(errs, fmt.Sprintf("match_threshold must be at least 1, got %d", p.MatchThreshold))
	}
	if !p.SkipLabelSearch && len(p.Fingerprints) == 0 {
		errs = append(errs, "labels are required unless skip_label_search is set")
	}
	if p.EmptyRowThresh < 0 || p.EmptyColumnThresh < 0 {
		errs = append(errs, "empty thresholds must not be negative")
	}
	switch p.Merge {
	case MergeFirst, MergeCollect, MergeRename:
	default:
		errs = append(errs, fmt.Sprintf("merge must be %q, %q or %q, got %q", MergeFirst, MergeCollect, MergeRename, p.Merge))
	}

	if len(errs) > 0 {
		return fmt.Errorf("profile %q: %s", p.Name, strings.Join(errs, "; "))
	}
	return nil
}

// profileFile is the YAML shape of a profile. Pointer fields distinguish
// "unset" from an explicit zero.
type profileFile struct {
	Name              string              `yaml:"name"`
	Description       string              `yaml:"description"`
	Labels            map[string][]string `yaml:"labels"`
	SpecialCharacters string              `yaml:"special_characters"`
	MatchThreshold    *int                `yaml:"match_threshold"`
	SkipLabelSearch   bool                `yaml:"skip_label_search"`
	NullTokens        []string            `yaml:"null_tokens"`
	FalseyIsNull      bool                `yaml:"falsey_is_null"`
	EmptyRowThresh    *int                `yaml:"empty_row_thresh"`
	EmptyColumnThresh *int                `yaml:"empty_column_thresh"`
	NullUnmapped      bool                `yaml:"null_unmapped"`
	Merge             MergeMode           `yaml:"merge"`
	Deduplicate       bool                `yaml:"deduplicate"`
}

func (f profileFile) profile() Profile {
	p := Profile{
		Name:              f.Name,
		Description:       f.Description,
		Fingerprints:      mapping.FromVariants(f.Labels, f.SpecialCharacters),
		SpecialCharacters: f.SpecialCharacters,
		MatchThreshold:    table.DefaultMatchThreshold,
		SkipLabelSearch:   f.SkipLabelSearch,
		NullTokens:        f.NullTokens,
		FalseyIsNull:      f.FalseyIsNull,
		EmptyRowThresh:    1,
		EmptyColumnThresh: 1,
		NullUnmapped:      f.NullUnmapped,
		Merge:             f.Merge,
		Deduplicate:       f.Deduplicate,
	}
	if f.MatchThreshold != nil {
		p.MatchThreshold = *f.MatchThreshold
	}
	if f.EmptyRowThresh != nil {
		p.EmptyRowThresh = *f.EmptyRowThresh
	}
	if f.EmptyColumnThresh != nil {
		p.EmptyColumnThresh = *f.EmptyColumnThresh
	}
	if p.Merge == "" {
		p.Merge = MergeFirst
	}
	return p
}

// ProfileRegistry holds the cleaning profiles available to a Service.
// It is safe for concurrent use.
type ProfileRegistry struct {
	mu       sync.RWMutex
	profiles map[string]Profile
}

// NewProfileRegistry returns a registry holding DefaultProfile and profiles.
func NewProfileRegistry(profiles ...Profile) (*ProfileRegistry, error) {
	r := &ProfileRegistry{profiles: make(map[string]Profile)}
	if err := r.Register(DefaultProfile()); err != nil {
		return nil, err
	}
	for _, p := range profiles {
		if err := r.Register(p); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// ParseProfiles decodes a YAML profile document:
//
//	profiles:
//	  - name: contacts
//	    labels:
//	      email: [emladdr, "e-mail address"]
//	      phone: [phnnmbr, "phone #"]
//	    null_tokens: [tbd]
func ParseProfiles(data []byte) ([]Profile, error) {
	var doc struct {
		Profiles []profileFile `yaml:"profiles"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse profiles: %w", err)
	}

	profiles := make([]Profile, 0, len(doc.Profiles))
	for _, f := range doc.Profiles {
		p := f.profile()
		if err := p.Validate(); err != nil {
			return nil, err
		}
		profiles = append(profiles, p)
	}
	return profiles, nil
}

// LoadProfiles reads a YAML profile file into a new registry. An empty path
// yields a registry holding only the default profile.
func LoadProfiles(path string) (*ProfileRegistry, error) {
	if path == "" {
		return NewProfileRegistry()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read profiles: %w", err)
	}
	profiles, err := ParseProfiles(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return NewProfileRegistry(profiles...)
}

// Register adds a profile. Names must be unique.
func (r *ProfileRegistry) Register(p Profile) error {
	if err := p.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.profiles[p.Name]; exists {
		return fmt.Errorf("profile already registered: %s", p.Name)
	}
	r.profiles[p.Name] = p
	return nil
}

// Get returns a profile by name.
func (r *ProfileRegistry) Get(name string) (Profile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.profiles[name]
	if !ok {
		return Profile{}, fmt.Errorf("%w: %q", ErrUnknownProfile, name)
	}
	return p, nil
}

// All returns every profile sorted by name.
func (r *ProfileRegistry) All() []Profile {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Profile, 0, len(r.profiles))
	for _, p := range r.profiles {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Names returns the sorted profile names.
func (r *ProfileRegistry) Names() []string {
	all := r.All()
	names := make([]string, len(all))
	for i, p := range all {
		names[i] = p.Name
	}
	return names
}

// Count returns the number of registered profiles.
func (r *ProfileRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.profiles)
}
