package web

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"path"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/etltoolbox/internal/cleaning"
	"github.com/JonMunkholm/etltoolbox/internal/core"
	"github.com/JonMunkholm/etltoolbox/internal/loader"
	"github.com/JonMunkholm/etltoolbox/internal/logging"
	"github.com/JonMunkholm/etltoolbox/internal/mapping"
)

// maxJSONBody bounds the small JSON requests (fingerprint, map-labels).
const maxJSONBody = 1 << 20

// multipartMemory is how much of a multipart upload is kept in memory
// before spilling to temporary files.
const multipartMemory = 32 << 20

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"profiles": s.service.Profiles().Count(),
		"limiter":  s.service.Limiter().Status(),
		"sink":     s.service.CanLoad(),
	})
}

type profileInfo struct {
	Name              string            `json:"name"`
	Description       string            `json:"description,omitempty"`
	Labels            []string          `json:"labels"`
	Fingerprints      map[string]string `json:"fingerprints,omitempty"`
	SpecialCharacters string            `json:"special_characters,omitempty"`
	MatchThreshold    int               `json:"match_threshold"`
	SkipLabelSearch   bool              `json:"skip_label_search"`
	NullTokens        []string          `json:"null_tokens,omitempty"`
	FalseyIsNull      bool              `json:"falsey_is_null"`
	EmptyRowThresh    int               `json:"empty_row_thresh"`
	EmptyColumnThresh int               `json:"empty_column_thresh"`
	NullUnmapped      bool              `json:"null_unmapped"`
	Merge             core.MergeMode    `json:"merge"`
	Deduplicate       bool              `json:"deduplicate"`
}

func newProfileInfo(p core.Profile, detail bool) profileInfo {
	seen := make(map[string]bool)
	labels := []string{}
	for _, canonical := range p.Fingerprints {
		if !seen[canonical] {
			seen[canonical] = true
			labels = append(labels, canonical)
		}
	}
	sort.Strings(labels)

	info := profileInfo{
		Name:              p.Name,
		Description:       p.Description,
		Labels:            labels,
		SpecialCharacters: p.SpecialCharacters,
		MatchThreshold:    p.MatchThreshold,
		SkipLabelSearch:   p.SkipLabelSearch,
		NullTokens:        p.NullTokens,
		FalseyIsNull:      p.FalseyIsNull,
		EmptyRowThresh:    p.EmptyRowThresh,
		EmptyColumnThresh: p.EmptyColumnThresh,
		NullUnmapped:      p.NullUnmapped,
		Merge:             p.Merge,
		Deduplicate:       p.Deduplicate,
	}
	if detail {
		info.Fingerprints = p.Fingerprints
	}
	return info
}

func (s *Server) handleListProfiles(w http.ResponseWriter, r *http.Request) {
	all := s.service.Profiles().All()
	infos := make([]profileInfo, len(all))
	for i, p := range all {
		infos[i] = newProfileInfo(p, false)
	}
	writeJSON(w, http.StatusOK, infos)
}

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	p, err := s.service.Profiles().Get(chi.URLParam(r, "name"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newProfileInfo(p, true))
}

// decodeJSON reads a bounded JSON request body into v. Numbers are kept as
// json.Number so they fingerprint the way they were written.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return badRequest("invalid JSON body: %v", err)
	}
	return nil
}

type fingerprintRequest struct {
	Values            []any  `json:"values"`
	SpecialCharacters string `json:"special_characters"`
}

func (s *Server) handleFingerprint(w http.ResponseWriter, r *http.Request) {
	var req fingerprintRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}

	out := make([]string, len(req.Values))
	for i, v := range req.Values {
		out[i] = cleaning.Fingerprint(v, req.SpecialCharacters)
	}
	writeJSON(w, http.StatusOK, map[string]any{"fingerprints": out})
}

type cleanValuesRequest struct {
	Values            []any    `json:"values"`
	NullTokens        []string `json:"null_tokens"`
	FalseyIsNull      bool     `json:"falsey_is_null"`
	SpecialCharacters string   `json:"special_characters"`
}

// handleCleanValues trims whitespace and nulls out null-indicating values.
func (s *Server) handleCleanValues(w http.ResponseWriter, r *http.Request) {
	var req cleanValuesRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}

	opts := cleaning.NullOptions{
		Tokens:            cleaning.DefaultNullTokens().With(req.NullTokens...),
		FalseyIsNull:      req.FalseyIsNull,
		SpecialCharacters: req.SpecialCharacters,
	}
	out := make([]any, len(req.Values))
	for i, v := range req.Values {
		out[i] = cleaning.CleanNull(cleaning.CleanWhitespaceValue(v), opts)
	}
	writeJSON(w, http.StatusOK, map[string]any{"values": out})
}

type mapLabelsRequest struct {
	Labels  []string `json:"labels"`
	Profile string   `json:"profile"`
	// Map maps raw label variants to canonical labels. It is used instead
	// of the profile when given.
	Map               map[string]string `json:"map"`
	SpecialCharacters string            `json:"special_characters"`
}

func (s *Server) handleMapLabels(w http.ResponseWriter, r *http.Request) {
	var req mapLabelsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}

	var (
		fm      mapping.FingerprintMap
		special = req.SpecialCharacters
	)
	switch {
	case len(req.Map) > 0:
		fm = mapping.NewFingerprintMap(req.Map, special)
	case req.Profile != "":
		p, err := s.service.Profiles().Get(req.Profile)
		if err != nil {
			s.respondError(w, r, err)
			return
		}
		fm, special = p.Fingerprints, p.SpecialCharacters
	default:
		s.respondError(w, r, badRequest("either map or profile is required"))
		return
	}

	mapped, unmapped := mapping.MapLabelsUnmapped(req.Labels, fm, special)
	if unmapped == nil {
		unmapped = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"labels": mapped, "unmapped": unmapped})
}

type cleanResponse struct {
	Report *core.Report `json:"report"`
	Labels []*string    `json:"labels"`
	Rows   [][]any      `json:"rows"`
}

// handleClean loads an uploaded file, cleans it with a profile and returns
// the result as CSV, or as JSON with the run report when asked.
//
// The file is either the "file" part of a multipart form or the raw body.
// Query parameters: profile, format, sheet, charset, delimiter, header,
// normalize, name (raw bodies only) and load.
func (s *Server) handleClean(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Clean.MaxFileSize)

	src, name, err := uploadedFile(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	defer src.Close()

	opts, err := loaderOptions(r, name)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	profile := r.URL.Query().Get("profile")
	if profile == "" {
		profile = s.cfg.Clean.DefaultProfile
	}

	ctx := r.Context()
	t, rep, err := s.service.CleanReader(ctx, src, opts, profile)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	if r.URL.Query().Get("load") == "true" {
		if _, err := s.service.Load(ctx, t, rep); err != nil {
			s.respondError(w, r, err)
			return
		}
	}

	w.Header().Set("X-Run-ID", rep.RunID.String())
	if wantsJSON(r) {
		labels := make([]*string, t.ColumnCount())
		for j := range labels {
			if l := t.Label(j); l.Valid {
				labels[j] = &l.Name
			}
		}
		writeJSON(w, http.StatusOK, cleanResponse{Report: rep, Labels: labels, Rows: t.Rows()})
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+cleanFileName(name)+`"`)
	if err := loader.WriteCSV(w, t); err != nil {
		logRequestWarning(r, "write csv response", err)
	}
}

// uploadedFile returns the multipart "file" part, or the raw body for any
// other content type.
func uploadedFile(r *http.Request) (io.ReadCloser, string, error) {
	if !strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		return r.Body, r.URL.Query().Get("name"), nil
	}

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxBytes *http.MaxBytesError
		if errors.As(err, &maxBytes) {
			return nil, "", err
		}
		return nil, "", badRequest("invalid multipart form: %v", err)
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, "", badRequest("no file provided")
	}
	return file, header.Filename, nil
}

func loaderOptions(r *http.Request, name string) (loader.Options, error) {
	q := r.URL.Query()
	opts := loader.Options{
		Format:           loader.ParseFormat(q.Get("format")),
		Name:             name,
		Sheet:            q.Get("sheet"),
		Charset:          q.Get("charset"),
		HeaderRow:        q.Get("header") == "true",
		NormalizeUnicode: q.Get("normalize") == "true",
	}
	if d := q.Get("delimiter"); d != "" {
		if d == `\t` || d == "tab" {
			d = "\t"
		}
		if utf8.RuneCountInString(d) != 1 {
			return opts, badRequest("delimiter must be a single character, got %q", d)
		}
		opts.Delimiter, _ = utf8.DecodeRuneInString(d)
	}
	return opts, nil
}

// cleanFileName derives the download name: "export.csv.gz" -> "export.clean.csv".
func cleanFileName(name string) string {
	base := path.Base(strings.ReplaceAll(name, `\`, "/"))
	for _, ext := range []string{".gz", ".gzip", ".xz"} {
		base = strings.TrimSuffix(base, ext)
	}
	base = strings.TrimSuffix(base, path.Ext(base))
	if base == "" || base == "." || base == "/" {
		base = "table"
	}
	base = strings.Map(func(r rune) rune {
		if r == '"' || r < 0x20 {
			return '_'
		}
		return r
	}, base)
	return base + ".clean.csv"
}

func logRequestWarning(r *http.Request, msg string, err error) {
	logging.FromContext(r.Context()).Warn(msg, "path", r.URL.Path, "error", err)
}
