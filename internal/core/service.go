package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/etltoolbox/internal/loader"
	"github.com/JonMunkholm/etltoolbox/internal/logging"
	"github.com/JonMunkholm/etltoolbox/internal/sink"
	"github.com/JonMunkholm/etltoolbox/internal/table"
)

// DefaultTimeout bounds a single CleanReader call.
var DefaultTimeout = 5 * time.Minute

// ErrNoSink is returned by Load when no database destination is configured.
var ErrNoSink = errors.New("no database configured")

// Config configures a Service. Zero values select defaults.
type Config struct {
	MaxConcurrent int
	MaxWait       time.Duration
	Timeout       time.Duration
	// MaxFileSize limits the bytes CleanReader reads (before
	// decompression). 0 means unlimited.
	MaxFileSize int64

	// DB and Sink enable Load. Both must be set.
	DB   sink.TxBeginner
	Sink *sink.Writer
}

// Service runs cleaning profiles over tables.
type Service struct {
	profiles    *ProfileRegistry
	limiter     *Limiter
	timeout     time.Duration
	maxFileSize int64

	db     sink.TxBeginner
	writer *sink.Writer
}

// NewService creates a Service using profiles.
func NewService(profiles *ProfileRegistry, cfg Config) *Service {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Service{
		profiles:    profiles,
		limiter:     NewLimiter(cfg.MaxConcurrent, cfg.MaxWait),
		timeout:     timeout,
		maxFileSize: cfg.MaxFileSize,
		db:          cfg.DB,
		writer:      cfg.Sink,
	}
}

// Profiles returns the profile registry.
func (s *Service) Profiles() *ProfileRegistry { return s.profiles }

// Limiter returns the concurrency limiter guarding CleanReader.
func (s *Service) Limiter() *Limiter { return s.limiter }

// CanLoad reports whether Load has a destination.
func (s *Service) CanLoad() bool { return s.db != nil && s.writer != nil }

// Report describes one cleaning run.
type Report struct {
	RunID   uuid.UUID `json:"run_id"`
	Profile string    `json:"profile"`

	// LabelRow is the index of the row promoted to labels, or
	// table.CurrentLabels when the existing labels were kept.
	LabelRow int `json:"label_row"`

	RowsIn     int `json:"rows_in"`
	ColumnsIn  int `json:"columns_in"`
	RowsOut    int `json:"rows_out"`
	ColumnsOut int `json:"columns_out"`

	// Unmapped lists labels that had no entry in the profile's
	// fingerprint map.
	Unmapped []string `json:"unmapped"`
	// MergedColumns is the number of columns folded into another column
	// with the same label.
	MergedColumns int `json:"merged_columns"`

	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`

	Load *sink.Result `json:"load,omitempty"`
}

// Clean runs profile p over t in place:
//
//  1. trim and collapse whitespace in string cells
//  2. find the label row and promote it (unless SkipLabelSearch)
//  3. map labels to their canonical names
//  4. replace null-indicating cells with nil and drop sparse rows and columns
//  5. merge columns that now share a label, or rename them apart
//
// Null cleanup runs before the merge, so a blank cell never wins a
// first-non-null merge.
func (s *Service) Clean(ctx context.Context, t *table.Table, p Profile) (*Report, error) {
	rep := &Report{
		RunID:     uuid.New(),
		Profile:   p.Name,
		LabelRow:  table.CurrentLabels,
		RowsIn:    t.RowCount(),
		ColumnsIn: t.ColumnCount(),
		Unmapped:  []string{},
		StartedAt: time.Now(),
	}
	ctx = logging.WithRunID(ctx, rep.RunID.String())
	log := logging.WithFields(ctx, "profile", p.Name)
	log.Debug("clean started", "rows", rep.RowsIn, "columns", rep.ColumnsIn)

	table.CleanWhitespace(t)

	if !p.SkipLabelSearch {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		row, err := table.LocateLabelRow(t, p.Fingerprints, p.LabelSearchOptions())
		if err != nil {
			log.Warn("label row not found", "error", err)
			return nil, fmt.Errorf("find column labels: %w", err)
		}
		if row != table.CurrentLabels {
			table.PromoteLabelRow(t, row)
		}
		rep.LabelRow = row
	}

	if len(p.Fingerprints) > 0 {
		rep.Unmapped = append(rep.Unmapped, table.MapColumnLabels(t, p.Fingerprints, p.MapOptions())...)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	table.CleanNull(t, p.CleanNullOptions())

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if p.Merge == MergeRename {
		table.DisambiguateLabels(t, nil)
	} else {
		before := t.ColumnCount()
		table.MergeColumnsByLabel(t, p.MergeOptions())
		rep.MergedColumns = before - t.ColumnCount()
	}

	rep.RowsOut = t.RowCount()
	rep.ColumnsOut = t.ColumnCount()
	rep.Duration = time.Since(rep.StartedAt)

	log.Info("clean finished",
		"label_row", rep.LabelRow,
		"rows_in", rep.RowsIn,
		"rows_out", rep.RowsOut,
		"columns_out", rep.ColumnsOut,
		"unmapped", len(rep.Unmapped),
		"duration", rep.Duration,
	)
	return rep, nil
}

// CleanReader loads a table from r and cleans it with the named profile.
// It waits for a limiter slot and is bounded by the service timeout.
func (s *Service) CleanReader(ctx context.Context, r io.Reader, opts loader.Options, profile string) (*table.Table, *Report, error) {
	p, err := s.profiles.Get(profile)
	if err != nil {
		return nil, nil, err
	}

	if err := s.limiter.Acquire(ctx); err != nil {
		return nil, nil, err
	}
	defer s.limiter.Release()

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if s.maxFileSize > 0 {
		r = &sizeLimitReader{r: r, remaining: s.maxFileSize}
	}

	t, err := loader.Read(ctx, r, opts)
	if err != nil {
		return nil, nil, fmt.Errorf("load: %w", err)
	}

	rep, err := s.Clean(ctx, t, p)
	if err != nil {
		return nil, nil, err
	}
	return t, rep, nil
}

// Load copies a cleaned table into the configured destination, tagging rows
// with the run id. The result is also recorded on rep.
func (s *Service) Load(ctx context.Context, t *table.Table, rep *Report) (*sink.Result, error) {
	if !s.CanLoad() {
		return nil, ErrNoSink
	}

	log := logging.FromContext(logging.WithRunID(ctx, rep.RunID.String()))

	res, err := s.writer.WriteTx(ctx, s.db, t, rep.RunID)
	if err != nil {
		log.Error("load failed", "error", err)
		return nil, fmt.Errorf("load: %w", err)
	}
	rep.Load = res

	log.Info("load finished",
		"table", res.Table,
		"rows", res.Rows,
	)
	return res, nil
}

// sizeLimitReader fails with ErrFileTooLarge once more than remaining bytes
// have been read.
type sizeLimitReader struct {
	r         io.Reader
	remaining int64
}

func (l *sizeLimitReader) Read(p []byte) (int, error) {
	if l.remaining < 0 {
		return 0, ErrFileTooLarge
	}
	if int64(len(p)) > l.remaining+1 {
		p = p[:l.remaining+1]
	}
	n, err := l.r.Read(p)
	l.remaining -= int64(n)
	if l.remaining < 0 {
		return n, ErrFileTooLarge
	}
	return n, err
}
