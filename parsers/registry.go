package parsers

import (
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"strings"
	"sync"

	"github.com/sevigo/newscast/parsers/html"
	"github.com/sevigo/newscast/parsers/markdown"
	"github.com/sevigo/newscast/parsers/pdf"
	"github.com/sevigo/newscast/parsers/text"
)

// ErrParserNotFound is returned when no parser matches a name, media type or extension.
var ErrParserNotFound = errors.New("parsers: parser not found")

// ParserRegistry tracks registered content parsers.
type ParserRegistry interface {
	RegisterParser(parser Parser) error
	GetParser(name string) (Parser, error)
	GetParserForMediaType(contentType string) (Parser, error)
	GetParserForExtension(ext string) (Parser, error)
	GetAllParsers() []Parser
}

type registry struct {
	parsers    map[string]Parser
	mediaTypes map[string]Parser
	extensions map[string]Parser
	logger     *slog.Logger
	mu         sync.RWMutex
}

func NewRegistry(logger *slog.Logger) ParserRegistry {
	if logger == nil {
		logger = slog.Default()
	}
	return &registry{
		parsers:    make(map[string]Parser),
		mediaTypes: make(map[string]Parser),
		extensions: make(map[string]Parser),
		logger:     logger,
	}
}

// RegisterDefaultParsers builds a registry holding the html, pdf, markdown
// and text parsers.
func RegisterDefaultParsers(logger *slog.Logger) (ParserRegistry, error) {
	if logger == nil {
		logger = slog.Default()
	}
	registry := NewRegistry(logger)

	factories := []func(*slog.Logger) Parser{
		func(l *slog.Logger) Parser { return html.NewParser(l) },
		func(l *slog.Logger) Parser { return pdf.NewParser(l) },
		func(l *slog.Logger) Parser { return markdown.NewParser(l) },
		func(l *slog.Logger) Parser { return text.NewParser(l) },
	}

	for _, factory := range factories {
		parser := factory(logger)
		if err := registry.RegisterParser(parser); err != nil {
			return registry, fmt.Errorf("failed to register parser %s: %w", parser.Name(), err)
		}
	}

	logger.Debug("Content parsers registered", "count", len(registry.GetAllParsers()))
	return registry, nil
}

func (r *registry) RegisterParser(parser Parser) error {
	if parser == nil {
		return errors.New("parsers: cannot register nil parser")
	}

	name := parser.Name()
	if name == "" {
		return errors.New("parsers: parser must have a non-empty name")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.parsers[name]; exists {
		return fmt.Errorf("parsers: parser %q already registered", name)
	}
	r.parsers[name] = parser

	for _, mt := range parser.MediaTypes() {
		r.mediaTypes[strings.ToLower(mt)] = parser
	}
	for _, ext := range parser.Extensions() {
		if ext == "" {
			continue
		}
		r.extensions[normalizeExt(ext)] = parser
	}

	r.logger.Debug("Registered content parser", "parser", name, "media_types", parser.MediaTypes())
	return nil
}

func (r *registry) GetParser(name string) (Parser, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	parser, ok := r.parsers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrParserNotFound, name)
	}
	return parser, nil
}

// GetParserForMediaType accepts a raw Content-Type header value; parameters
// such as charset are ignored.
func (r *registry) GetParserForMediaType(contentType string) (Parser, error) {
	mt := mediaType(contentType)

	r.mu.RLock()
	defer r.mu.RUnlock()

	parser, ok := r.mediaTypes[mt]
	if !ok {
		return nil, fmt.Errorf("%w for media type %q", ErrParserNotFound, mt)
	}
	return parser, nil
}

func (r *registry) GetParserForExtension(ext string) (Parser, error) {
	if ext == "" {
		return nil, fmt.Errorf("%w: empty extension", ErrParserNotFound)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	parser, ok := r.extensions[normalizeExt(ext)]
	if !ok {
		return nil, fmt.Errorf("%w for extension %s", ErrParserNotFound, ext)
	}
	return parser, nil
}

func (r *registry) GetAllParsers() []Parser {
	r.mu.RLock()
	defer r.mu.RUnlock()

	parsers := make([]Parser, 0, len(r.parsers))
	for _, parser := range r.parsers {
		parsers = append(parsers, parser)
	}
	return parsers
}

// mediaType strips parameters from a Content-Type value and lowercases it.
func mediaType(contentType string) string {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mt = strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0])
	}
	return strings.ToLower(mt)
}

func normalizeExt(ext string) string {
	ext = strings.ToLower(ext)
	if ext != "" && ext[0] != '.' {
		ext = "." + ext
	}
	return ext
}
