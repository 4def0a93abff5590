// Package documentloaders reads saved articles from the local file system.
package documentloaders

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/sevigo/newscast/parsers"
	"github.com/sevigo/newscast/schema"
)

// SourceName is written on every article loaded from disk.
const SourceName = "Local files"

// MaxFileSize bounds a single file read.
const MaxFileSize = 32 << 20

var ErrNoText = errors.New("documentloaders: file has no readable text")

// Loader returns articles from a source that needs no crawling.
type Loader interface {
	Load(ctx context.Context) ([]schema.Article, error)
}

// Files loads every parseable file under a path, or the single file the
// path names. Each file becomes one article; files are ranked by path.
type Files struct {
	path           string
	parserRegistry parsers.ParserRegistry
	logger         *slog.Logger
}

var _ Loader = (*Files)(nil)

type Option func(*Files)

func WithLogger(logger *slog.Logger) Option {
	return func(f *Files) {
		if logger != nil {
			f.logger = logger
		}
	}
}

func NewFiles(path string, registry parsers.ParserRegistry, opts ...Option) *Files {
	f := &Files{
		path:           path,
		parserRegistry: registry,
		logger:         slog.Default(),
	}
	for _, opt := range opts {
		opt(f)
	}
	f.logger = f.logger.With("component", "file_loader", "path", path)
	return f
}

// Load walks the path and parses each file with the parser registered for
// its extension, falling back to plain text. Unreadable files and files
// without text are logged and skipped.
func (f *Files) Load(ctx context.Context) ([]schema.Article, error) {
	return f.Articles(ctx, 0)
}

// Articles is Load limited to the first limit files; limit <= 0 loads all.
func (f *Files) Articles(ctx context.Context, limit int) ([]schema.Article, error) {
	var paths []string
	err := filepath.WalkDir(f.path, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == f.path {
				return err
			}
			f.logger.WarnContext(ctx, "Skipping unreadable path", "file", path, "error", err)
			return nil
		}
		if d.IsDir() {
			if path != f.path && shouldSkipDir(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if shouldSkipFile(path) {
			f.logger.DebugContext(ctx, "Skipping excluded file", "file", path)
			return nil
		}
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("documentloaders: walk %s: %w", f.path, err)
	}
	slices.Sort(paths)

	articles := make([]schema.Article, 0, len(paths))
	for _, path := range paths {
		if limit > 0 && len(articles) >= limit {
			break
		}
		if err := ctx.Err(); err != nil {
			return articles, err
		}

		a, err := LoadFile(ctx, path, f.parserRegistry)
		if err != nil {
			f.logger.WarnContext(ctx, "Skipping file", "file", path, "error", err)
			continue
		}
		if rel, err := filepath.Rel(f.path, path); err == nil && rel != "." {
			a.SourceID = filepath.ToSlash(rel)
		}
		a.SourceRank = len(articles)
		articles = append(articles, a)
	}

	f.logger.InfoContext(ctx, "Files loaded", "articles", len(articles), "candidates", len(paths))
	return articles, nil
}

// LoadFile parses a single file into an article.
func LoadFile(ctx context.Context, path string, registry parsers.ParserRegistry) (schema.Article, error) {
	parser, err := registry.GetParserForExtension(filepath.Ext(path))
	if err != nil {
		if parser, err = registry.GetParser("text"); err != nil {
			return schema.Article{}, err
		}
	}

	info, err := os.Stat(path)
	if err != nil {
		return schema.Article{}, err
	}
	if info.Size() > MaxFileSize {
		return schema.Article{}, fmt.Errorf("documentloaders: %s is larger than %d bytes", path, MaxFileSize)
	}

	file, err := os.Open(path)
	if err != nil {
		return schema.Article{}, err
	}
	defer file.Close()

	paragraphs, err := parser.Parse(ctx, file)
	if err != nil {
		return schema.Article{}, fmt.Errorf("documentloaders: parse %s with %s: %w", path, parser.Name(), err)
	}

	a := schema.Article{
		SourceName: SourceName,
		SourceID:   filepath.Base(path),
		Title:      titleFromName(path),
		URL:        fileURL(path),
		TextList:   paragraphs,
	}
	if !a.HasText() {
		return schema.Article{}, fmt.Errorf("%w: %s", ErrNoText, path)
	}
	return a, nil
}

// titleFromName turns "2024-03-04_rate-decision.html" into
// "2024 03 04 rate decision".
func titleFromName(path string) string {
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return strings.Join(strings.FieldsFunc(name, func(r rune) bool {
		return r == '-' || r == '_' || r == '.'
	}), " ")
}

func fileURL(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	return "file://" + filepath.ToSlash(path)
}

func shouldSkipDir(name string) bool {
	return strings.HasPrefix(name, ".") || slices.Contains([]string{"node_modules", "__pycache__"}, name)
}

// shouldSkipFile excludes hidden files and media the parsers cannot read.
func shouldSkipFile(path string) bool {
	if strings.HasPrefix(filepath.Base(path), ".") {
		return true
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png", ".jpg", ".jpeg", ".gif", ".svg", ".ico",
		".zip", ".tar", ".gz",
		".mp3", ".mp4", ".wav", ".ogg",
		".json", ".yaml", ".yml":
		return true
	}
	return false
}
