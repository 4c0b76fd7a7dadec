// Command etlclean cleans a file or a directory of files with a cleaning
// profile and writes each result as <name>.clean.csv. Files found in a
// directory keep their subdirectory under -out.
//
//	etlclean -profiles profiles.yaml -profile contacts -out cleaned exports/
//
// With -table set (and DATABASE_URL in the environment) the cleaned rows are
// also copied into PostgreSQL.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"regexp"
	"strings"
	"syscall"
	"unicode/utf8"

	"github.com/joho/godotenv"

	"github.com/JonMunkholm/etltoolbox/internal/config"
	"github.com/JonMunkholm/etltoolbox/internal/core"
	"github.com/JonMunkholm/etltoolbox/internal/database"
	"github.com/JonMunkholm/etltoolbox/internal/loader"
	"github.com/JonMunkholm/etltoolbox/internal/logging"
	"github.com/JonMunkholm/etltoolbox/internal/sink"
)

type flags struct {
	profiles  string
	profile   string
	out       string
	recursive bool
	include   string

	format    string
	sheet     string
	charset   string
	delimiter string
	header    bool
	normalize bool

	table       string
	createTable bool

	logLevel  string
	logFormat string
}

func parseFlags(args []string) (flags, []string, error) {
	var f flags
	fs := flag.NewFlagSet("etlclean", flag.ContinueOnError)
	fs.StringVar(&f.profiles, "profiles", os.Getenv("CLEAN_PROFILES"), "profiles YAML file")
	fs.StringVar(&f.profile, "profile", "default", "profile to clean with")
	fs.StringVar(&f.out, "out", ".", "output directory")
	fs.BoolVar(&f.recursive, "r", false, "search input directories recursively")
	fs.StringVar(&f.include, "include", "", "only clean paths matching this regexp from the start (e.g. '.*\\.csv$')")
	fs.StringVar(&f.format, "format", "", "input format: csv, tsv, xlsx or json (default: detect)")
	fs.StringVar(&f.sheet, "sheet", "", "XLSX worksheet (default: first)")
	fs.StringVar(&f.charset, "charset", "", "input charset (default: utf-8)")
	fs.StringVar(&f.delimiter, "delimiter", "", "CSV delimiter (default: ',' or tab for .tsv)")
	fs.BoolVar(&f.header, "header", false, "take the first row as labels")
	fs.BoolVar(&f.normalize, "normalize", false, "apply NFC normalization to text input")
	fs.StringVar(&f.table, "table", "", "also load cleaned rows into this PostgreSQL table")
	fs.BoolVar(&f.createTable, "create-table", false, "create the destination table if needed")
	fs.StringVar(&f.logLevel, "log-level", "info", "log level")
	fs.StringVar(&f.logFormat, "log-format", "text", "log format: text or json")

	if err := fs.Parse(args); err != nil {
		return f, nil, err
	}
	if fs.NArg() == 0 {
		return f, nil, errors.New("no input files or directories given")
	}
	return f, fs.Args(), nil
}

func (f flags) loaderOptions() (loader.Options, error) {
	opts := loader.Options{
		Format:           loader.ParseFormat(f.format),
		Sheet:            f.sheet,
		Charset:          f.charset,
		HeaderRow:        f.header,
		NormalizeUnicode: f.normalize,
	}
	if d := f.delimiter; d != "" {
		if d == `\t` || d == "tab" {
			d = "\t"
		}
		if utf8.RuneCountInString(d) != 1 {
			return opts, fmt.Errorf("delimiter must be a single character, got %q", d)
		}
		opts.Delimiter, _ = utf8.DecodeRuneInString(d)
	}
	return opts, nil
}

// input is a file to clean and its path relative to the argument that
// named it.
type input struct {
	path string
	rel  string
}

// inputFiles expands directories in args into the files they hold.
func inputFiles(args []string, recursive bool, include *regexp.Regexp) ([]input, error) {
	var files []input
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			files = append(files, input{path: arg, rel: filepath.Base(arg)})
			continue
		}
		found, err := loader.ListFiles(arg, recursive, include)
		if err != nil {
			return nil, err
		}
		for _, path := range found {
			rel, err := filepath.Rel(arg, path)
			if err != nil {
				return nil, err
			}
			files = append(files, input{path: path, rel: rel})
		}
	}
	return files, nil
}

// outputPath maps an input to <out>/<rel dir>/<base>.clean.csv, so nested
// files with the same name do not collide.
func outputPath(out string, in input) string {
	base := filepath.Base(in.rel)
	for _, ext := range []string{".gz", ".gzip", ".xz"} {
		base = strings.TrimSuffix(base, ext)
	}
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(out, filepath.Dir(in.rel), base+".clean.csv")
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintln(os.Stderr, "etlclean:", err)
		}
		os.Exit(1)
	}
}

func run(args []string) error {
	_ = godotenv.Load()

	f, inputs, err := parseFlags(args)
	if err != nil {
		return err
	}
	logging.Setup(f.logLevel, f.logFormat, nil)

	opts, err := f.loaderOptions()
	if err != nil {
		return err
	}

	var include *regexp.Regexp
	if f.include != "" {
		if include, err = regexp.Compile(f.include); err != nil {
			return fmt.Errorf("invalid -include: %w", err)
		}
	}

	profiles, err := core.LoadProfiles(f.profiles)
	if err != nil {
		return err
	}
	if _, err := profiles.Get(f.profile); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	svcCfg := core.Config{MaxConcurrent: 1}
	if f.table != "" {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if cfg.Database.URL == "" {
			return errors.New("-table requires DATABASE_URL")
		}
		pool, err := database.Open(ctx, cfg.Database)
		if err != nil {
			return err
		}
		defer pool.Close()

		writer, err := sink.NewWriter(sink.Options{
			Table:       f.table,
			CreateTable: f.createTable,
			BatchColumn: cfg.Sink.BatchColumn,
		})
		if err != nil {
			return err
		}
		svcCfg.DB, svcCfg.Sink = pool, writer
	}
	service := core.NewService(profiles, svcCfg)

	files, err := inputFiles(inputs, f.recursive, include)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return errors.New("no input files found")
	}
	if err := os.MkdirAll(f.out, 0o755); err != nil {
		return err
	}

	var failed int
	written := make(map[string]string, len(files))
	for _, file := range files {
		outPath := outputPath(f.out, file)
		if prev, ok := written[outPath]; ok {
			failed++
			slog.Error("clean failed", "file", file.path, "error",
				fmt.Errorf("output %s already written for %s", outPath, prev))
			continue
		}
		written[outPath] = file.path

		if err := cleanFile(ctx, service, file.path, outPath, f, opts); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			failed++
			slog.Error("clean failed", "file", file.path, "error", err, "user_message", core.FormatUserError(err))
		}
	}

	slog.Info("done", "files", len(files), "failed", failed)
	if failed > 0 {
		return fmt.Errorf("%d of %d files failed", failed, len(files))
	}
	return nil
}

func cleanFile(ctx context.Context, service *core.Service, file, outPath string, f flags, opts loader.Options) error {
	in, err := os.Open(file)
	if err != nil {
		return err
	}
	defer in.Close()

	opts.Name = file
	t, rep, err := service.CleanReader(ctx, in, opts, f.profile)
	if err != nil {
		return err
	}

	if service.CanLoad() {
		if _, err := service.Load(ctx, t, rep); err != nil {
			return err
		}
	}

	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return err
	}
	out, err := os.Create(outPath)
	if err != nil {
		return err
	}
	if err := loader.WriteCSV(out, t); err != nil {
		out.Close()
		return fmt.Errorf("write %s: %w", outPath, err)
	}
	if err := out.Close(); err != nil {
		return err
	}

	slog.Info("cleaned",
		"file", file,
		"output", outPath,
		"run_id", rep.RunID,
		"label_row", rep.LabelRow,
		"rows", rep.RowsOut,
		"columns", rep.ColumnsOut,
		"unmapped", rep.Unmapped,
	)
	return nil
}
