package web

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/etltoolbox/internal/config"
	"github.com/JonMunkholm/etltoolbox/internal/core"
	"github.com/JonMunkholm/etltoolbox/internal/mapping"
	"github.com/JonMunkholm/etltoolbox/internal/table"
)

const messyCSV = "created by:,etl-toolbox,,-\n" +
	"2020-06-07,---,3 rows,4 columns\n" +
	",,,-\n" +
	"Cust.,EML-addr,On,PHN-NMBR\n" +
	"Alice,alice@example.com,yes,n/a\n" +
	"Bob,,no,555-0100\n"

func testConfig() *config.Config {
	return &config.Config{
		Clean: config.CleanConfig{
			MaxFileSize:    1 << 20,
			MaxConcurrent:  2,
			DefaultProfile: "default",
		},
	}
}

func newTestServer(t *testing.T, cfg *config.Config) *Server {
	t.Helper()
	contacts := core.Profile{
		Name:        "contacts",
		Description: "CRM contacts",
		Fingerprints: mapping.FromVariants(map[string][]string{
			"name":     {"cust"},
			"email":    {"emladdr"},
			"opted_in": {"on"},
			"phone":    {"phnnmbr"},
		}, ""),
		MatchThreshold:    table.DefaultMatchThreshold,
		EmptyRowThresh:    1,
		EmptyColumnThresh: 1,
		Merge:             core.MergeFirst,
	}
	reg, err := core.NewProfileRegistry(contacts)
	require.NoError(t, err)

	svc := core.NewService(reg, core.Config{MaxConcurrent: cfg.Clean.MaxConcurrent, MaxFileSize: cfg.Clean.MaxFileSize})
	return NewServer(svc, cfg)
}

func do(t *testing.T, s *Server, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, testConfig())
	rec := do(t, s, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Status   string             `json:"status"`
		Profiles int                `json:"profiles"`
		Limiter  core.LimiterStatus `json:"limiter"`
		Sink     bool               `json:"sink"`
	}
	decode(t, rec, &body)
	assert.Equal(t, "ok", body.Status)
	assert.Equal(t, 2, body.Profiles)
	assert.Equal(t, 2, body.Limiter.Available)
	assert.False(t, body.Sink)
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
}

func TestListProfiles(t *testing.T) {
	s := newTestServer(t, testConfig())
	rec := do(t, s, httptest.NewRequest(http.MethodGet, "/api/profiles", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body []profileInfo
	decode(t, rec, &body)
	require.Len(t, body, 2)
	assert.Equal(t, "contacts", body[0].Name)
	assert.Equal(t, []string{"email", "name", "opted_in", "phone"}, body[0].Labels)
	assert.Nil(t, body[0].Fingerprints)
	assert.Equal(t, "default", body[1].Name)
}

func TestGetProfile(t *testing.T) {
	s := newTestServer(t, testConfig())

	rec := do(t, s, httptest.NewRequest(http.MethodGet, "/api/profiles/contacts", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var info profileInfo
	decode(t, rec, &info)
	assert.Equal(t, "email", info.Fingerprints["emladdr"])

	rec = do(t, s, httptest.NewRequest(http.MethodGet, "/api/profiles/missing", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	var errBody ErrorResponse
	decode(t, rec, &errBody)
	assert.Equal(t, "PRF001", errBody.Code)
}

func TestFingerprint(t *testing.T) {
	s := newTestServer(t, testConfig())
	body := `{"values": ["EML-addr", "Phone #", 3.5, null], "special_characters": "#"}`
	rec := do(t, s, httptest.NewRequest(http.MethodPost, "/api/fingerprint", strings.NewReader(body)))

	require.Equal(t, http.StatusOK, rec.Code)
	var out struct {
		Fingerprints []string `json:"fingerprints"`
	}
	decode(t, rec, &out)
	assert.Equal(t, []string{"emladdr", "phone#", "35", ""}, out.Fingerprints)
}

func TestFingerprint_BadJSON(t *testing.T) {
	s := newTestServer(t, testConfig())
	rec := do(t, s, httptest.NewRequest(http.MethodPost, "/api/fingerprint", strings.NewReader("{")))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var errBody ErrorResponse
	decode(t, rec, &errBody)
	assert.Equal(t, "REQ001", errBody.Code)
}

func TestCleanValues(t *testing.T) {
	s := newTestServer(t, testConfig())
	body := `{"values": ["  a   b ", "N/A", "tbd", "[None, null]", 0, "x"], "null_tokens": ["tbd"], "falsey_is_null": true}`
	rec := do(t, s, httptest.NewRequest(http.MethodPost, "/api/clean-values", strings.NewReader(body)))

	require.Equal(t, http.StatusOK, rec.Code)
	var out struct {
		Values []any `json:"values"`
	}
	decode(t, rec, &out)
	assert.Equal(t, []any{"a b", nil, nil, nil, nil, "x"}, out.Values)
}

func TestMapLabels(t *testing.T) {
	s := newTestServer(t, testConfig())

	rec := do(t, s, httptest.NewRequest(http.MethodPost, "/api/map-labels",
		strings.NewReader(`{"labels": ["Cust.", "unknown"], "map": {"cust": "Name"}}`)))
	require.Equal(t, http.StatusOK, rec.Code)
	var out struct {
		Labels   []string `json:"labels"`
		Unmapped []string `json:"unmapped"`
	}
	decode(t, rec, &out)
	assert.Equal(t, []string{"Name", "unknown"}, out.Labels)
	assert.Equal(t, []string{"unknown"}, out.Unmapped)

	rec = do(t, s, httptest.NewRequest(http.MethodPost, "/api/map-labels",
		strings.NewReader(`{"labels": ["EML-addr", "PHN-NMBR"], "profile": "contacts"}`)))
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &out)
	assert.Equal(t, []string{"email", "phone"}, out.Labels)
	assert.Empty(t, out.Unmapped)

	rec = do(t, s, httptest.NewRequest(http.MethodPost, "/api/map-labels", strings.NewReader(`{"labels": ["a"]}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func multipartBody(t *testing.T, filename, content string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = fw.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestClean_MultipartCSV(t *testing.T) {
	s := newTestServer(t, testConfig())
	body, contentType := multipartBody(t, "export.csv", messyCSV)

	req := httptest.NewRequest(http.MethodPost, "/api/clean?profile=contacts", body)
	req.Header.Set("Content-Type", contentType)
	rec := do(t, s, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="export.clean.csv"`, rec.Header().Get("Content-Disposition"))
	assert.NotEmpty(t, rec.Header().Get("X-Run-ID"))
	assert.Equal(t, "name,email,opted_in,phone\nAlice,alice@example.com,yes,\nBob,,no,555-0100\n", rec.Body.String())
}

func TestClean_RawBodyJSONOutput(t *testing.T) {
	s := newTestServer(t, testConfig())

	req := httptest.NewRequest(http.MethodPost, "/api/clean?profile=contacts&format=csv", strings.NewReader(messyCSV))
	req.Header.Set("Accept", "application/json")
	rec := do(t, s, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var out struct {
		Report core.Report `json:"report"`
		Labels []*string   `json:"labels"`
		Rows   [][]any     `json:"rows"`
	}
	decode(t, rec, &out)
	assert.Equal(t, "contacts", out.Report.Profile)
	assert.Equal(t, 3, out.Report.LabelRow)
	assert.Equal(t, 6, out.Report.RowsIn)
	assert.Equal(t, 2, out.Report.RowsOut)
	require.Len(t, out.Labels, 4)
	assert.Equal(t, "email", *out.Labels[1])
	assert.Equal(t, []any{"Bob", nil, "no", "555-0100"}, out.Rows[1])
}

func TestClean_DefaultProfileAndDelimiter(t *testing.T) {
	s := newTestServer(t, testConfig())

	req := httptest.NewRequest(http.MethodPost, "/api/clean?delimiter=%3B&header=true&name=x.txt", strings.NewReader("a;b\n1;null\n"))
	rec := do(t, s, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "a\n1\n", rec.Body.String())
}

func TestClean_Errors(t *testing.T) {
	tests := []struct {
		name   string
		query  string
		body   string
		status int
		code   string
	}{
		{"unknown profile", "?profile=nope", "a\n", http.StatusNotFound, "PRF001"},
		{"label row missing", "?profile=contacts", "a,b\nc,d\n", http.StatusUnprocessableEntity, "LBL001"},
		{"empty input", "", "", http.StatusBadRequest, "FILE004"},
		{"bad delimiter", "?delimiter=ab", "a\n", http.StatusBadRequest, "REQ001"},
		{"bad charset", "?charset=ebcdic", "a\n", http.StatusBadRequest, "FILE003"},
		{"load without sink", "?load=true", "a\n", http.StatusConflict, "DB005"},
	}

	s := newTestServer(t, testConfig())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, s, httptest.NewRequest(http.MethodPost, "/api/clean"+tt.query, strings.NewReader(tt.body)))
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			var errBody ErrorResponse
			decode(t, rec, &errBody)
			assert.Equal(t, tt.code, errBody.Code)
		})
	}
}

func TestClean_TooLarge(t *testing.T) {
	cfg := testConfig()
	cfg.Clean.MaxFileSize = 32
	s := newTestServer(t, cfg)

	rec := do(t, s, httptest.NewRequest(http.MethodPost, "/api/clean?format=csv", strings.NewReader(strings.Repeat("a,b,c\n", 50))))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code, rec.Body.String())
}

func TestAPIKeyRequired(t *testing.T) {
	cfg := testConfig()
	cfg.Security = config.SecurityConfig{RequireAPIKey: true, APIKeys: []string{"secret"}}
	s := newTestServer(t, cfg)

	rec := do(t, s, httptest.NewRequest(http.MethodGet, "/api/profiles", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/profiles", nil)
	req.Header.Set("X-API-Key", "secret")
	assert.Equal(t, http.StatusOK, do(t, s, req).Code)

	assert.Equal(t, http.StatusOK, do(t, s, httptest.NewRequest(http.MethodGet, "/healthz", nil)).Code, "health stays open")
}

func TestCleanFileName(t *testing.T) {
	tests := map[string]string{
		"export.csv":          "export.clean.csv",
		"dir/report.xlsx":     "report.clean.csv",
		`C:\data\dump.csv.gz`: "dump.clean.csv",
		"":                    "table.clean.csv",
		`we"ird.tsv`:          "we_ird.clean.csv",
	}
	for in, want := range tests {
		assert.Equal(t, want, cleanFileName(in), in)
	}
}
