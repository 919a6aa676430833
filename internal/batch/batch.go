// Package batch turns command-line arguments into an ordered list of
// activities. An argument may be an activity file, a directory, a CSV
// manifest or a wildcard pattern.
package batch

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/tonimelisma/gupload/internal/upload"
)

// ErrNoActivities is returned when no argument yielded an uploadable file.
var ErrNoActivities = errors.New("batch: no valid activity files")

// manifestExt marks a CSV manifest argument.
const manifestExt = ".csv"

// Manifest column names. filename is required; the others are optional.
const (
	colFilename = "filename"
	colName     = "name"
	colType     = "type"
	colNotes    = "notes"
)

// Options carries metadata given on the command line.
type Options struct {
	// Name applies only when exactly one activity file comes from plain
	// arguments. It is ignored, with a warning, otherwise.
	Name string
	// Type applies to every activity that does not come from a manifest.
	Type string
}

// Loader expands arguments. Files that do not exist are skipped with a
// warning.
type Loader struct {
	logger *slog.Logger
}

// NewLoader creates a Loader.
func NewLoader(logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}

	return &Loader{logger: logger}
}

// Load expands args. Plain files and directory contents come first, in
// argument order; manifest rows follow, in manifest order.
//
// A file named directly with an unsupported extension stays in the batch so
// the report keeps one row per named file; the workflow rejects it before
// any request. Unsupported files found through directories, patterns or
// manifests are dropped. ErrNoActivities means nothing uploadable remained.
func (l *Loader) Load(args []string, opts Options) ([]*upload.Activity, error) {
	var (
		paths     []string
		manifests []string
		valid     int
	)

	for _, e := range l.expand(args) {
		arg := e.path

		info, err := os.Stat(arg)
		if err != nil {
			l.logger.Warn("file does not exist, skipping", slog.String("path", arg))
			continue
		}

		switch {
		case info.IsDir():
			found := l.scanDir(arg)
			paths = append(paths, found...)
			valid += len(found)
		case strings.EqualFold(filepath.Ext(arg), manifestExt):
			l.logger.Info("reading manifest", slog.String("path", arg))
			manifests = append(manifests, arg)
		case upload.IsSupported(arg):
			paths = append(paths, arg)
			valid++
		case e.matched:
			l.logger.Warn("unsupported extension, skipping",
				slog.String("path", arg),
				slog.String("extension", filepath.Ext(arg)),
			)
		default:
			l.logger.Warn("unsupported extension, will be reported as failed",
				slog.String("path", arg),
				slog.String("extension", filepath.Ext(arg)),
			)
			paths = append(paths, arg)
		}
	}

	name := opts.Name
	if name != "" && valid != 1 {
		l.logger.Warn("activity name applies only to a single file, ignoring",
			slog.String("name", name),
			slog.Int("files", valid),
		)

		name = ""
	}

	activities := make([]*upload.Activity, 0, len(paths))
	for _, p := range paths {
		a := upload.NewActivity(p)
		a.Type = opts.Type

		if upload.IsSupported(p) {
			a.Name = name
		}

		activities = append(activities, a)
	}

	for _, m := range manifests {
		rows, err := l.readManifest(m)
		if err != nil {
			return nil, err
		}

		activities = append(activities, rows...)
		valid += len(rows)
	}

	if valid == 0 {
		return nil, ErrNoActivities
	}

	return activities, nil
}

// expandedArg is one argument after wildcard expansion. matched marks paths
// that came from a pattern rather than being named directly.
type expandedArg struct {
	path    string
	matched bool
}

// expand replaces wildcard patterns with their sorted matches. Arguments
// without meta characters pass through untouched.
func (l *Loader) expand(args []string) []expandedArg {
	out := make([]expandedArg, 0, len(args))

	for _, arg := range args {
		if !strings.ContainsAny(arg, "*?[") {
			out = append(out, expandedArg{path: arg})
			continue
		}

		matches, err := filepath.Glob(arg)
		if err != nil {
			l.logger.Warn("bad pattern, skipping", slog.String("pattern", arg), slog.String("error", err.Error()))
			continue
		}

		if len(matches) == 0 {
			l.logger.Warn("pattern matched nothing", slog.String("pattern", arg))
		}

		for _, m := range matches {
			out = append(out, expandedArg{path: m, matched: true})
		}
	}

	return out
}

// scanDir lists the uploadable files directly inside dir, sorted by name.
// Subdirectories and manifests inside dir are not followed.
func (l *Loader) scanDir(dir string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		l.logger.Warn("cannot read directory, skipping", slog.String("path", dir), slog.String("error", err.Error()))
		return nil
	}

	var out []string

	for _, e := range entries {
		if e.IsDir() {
			continue
		}

		p := filepath.Join(dir, e.Name())
		if l.accept(p) {
			out = append(out, p)
		}
	}

	slices.Sort(out)

	return out
}

func (l *Loader) accept(path string) bool {
	if upload.IsSupported(path) {
		return true
	}

	l.logger.Warn("unsupported extension, skipping",
		slog.String("path", path),
		slog.String("extension", filepath.Ext(path)),
	)

	return false
}

// readManifest parses a CSV manifest with a header row. Relative filenames
// are resolved against the manifest's directory.
func (l *Loader) readManifest(path string) ([]*upload.Activity, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("batch: opening manifest: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("batch: reading manifest header %s: %w", path, err)
	}

	cols := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.TrimPrefix(h, "\ufeff")
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}

	if _, ok := cols[colFilename]; !ok {
		return nil, fmt.Errorf("batch: manifest %s has no %q column", path, colFilename)
	}

	base := filepath.Dir(path)

	var out []*upload.Activity

	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			return nil, fmt.Errorf("batch: reading manifest %s: %w", path, err)
		}

		file := field(rec, cols, colFilename)
		if file == "" {
			continue
		}

		if !filepath.IsAbs(file) {
			file = filepath.Join(base, file)
		}

		if _, err := os.Stat(file); err != nil {
			l.logger.Warn("file does not exist, skipping", slog.String("path", file), slog.String("manifest", path))
			continue
		}

		if !l.accept(file) {
			continue
		}

		a := upload.NewActivity(file)
		a.Name = field(rec, cols, colName)
		a.Type = field(rec, cols, colType)
		a.Notes = field(rec, cols, colNotes)
		out = append(out, a)
	}

	return out, nil
}

func field(rec []string, cols map[string]int, name string) string {
	i, ok := cols[name]
	if !ok || i >= len(rec) {
		return ""
	}

	return strings.TrimSpace(rec[i])
}
