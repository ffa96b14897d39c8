package file

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/custodia-labs/tidemark/internal/core/domain"
	"github.com/custodia-labs/tidemark/internal/core/ports/driven"
	"github.com/custodia-labs/tidemark/internal/validation"
)

// Ensure SourceStore implements the interface.
var _ driven.SourceStore = (*SourceStore)(nil)

// SourcesFile is the file name read from the config directory.
const SourcesFile = "sources.toml"

// sourcesDocument is the layout of sources.toml:
//
//	[sources.helpdesk]
//	type = "gorgias"
//	resources = ["tickets"]
//	start_date = "2024-01-01"
//
//	[sources.helpdesk.config]
//	domain = "acme"
//	api_key = "${GORGIAS_API_KEY}"
type sourcesDocument struct {
	Sources map[string]sourceEntry `toml:"sources"`
}

type sourceEntry struct {
	Type      string         `toml:"type" validate:"required"`
	Name      string         `toml:"name,omitempty"`
	Resources []string       `toml:"resources,omitempty" validate:"dive,required"`
	StartDate string         `toml:"start_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	EndDate   string         `toml:"end_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Config    map[string]any `toml:"config,omitempty"`
}

// SourceStore reads source definitions from sources.toml. Config values
// of the form ${NAME} are replaced from the environment when read, so
// secrets can stay out of the file. Save rewrites the whole file.
type SourceStore struct {
	mu       sync.Mutex
	filePath string
	lookup   func(string) (string, bool)
}

// NewSourceStore creates a store over configDir/sources.toml.
func NewSourceStore(configDir string) *SourceStore {
	return &SourceStore{
		filePath: filepath.Join(configDir, SourcesFile),
		lookup:   os.LookupEnv,
	}
}

// Path returns the sources file path.
func (s *SourceStore) Path() string {
	return s.filePath
}

// Get retrieves a source by ID.
func (s *SourceStore) Get(_ context.Context, id string) (*domain.Source, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read()
	if err != nil {
		return nil, err
	}
	entry, ok := doc.Sources[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	source, err := s.toSource(id, entry)
	if err != nil {
		return nil, err
	}
	return &source, nil
}

// List returns all sources sorted by ID.
func (s *SourceStore) List(_ context.Context) ([]domain.Source, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read()
	if err != nil {
		return nil, err
	}

	ids := slices.Sorted(maps.Keys(doc.Sources))
	sources := make([]domain.Source, 0, len(ids))
	for _, id := range ids {
		source, err := s.toSource(id, doc.Sources[id])
		if err != nil {
			return nil, err
		}
		sources = append(sources, source)
	}
	return sources, nil
}

// Save adds or replaces a source. Config values are written as given, so
// a source read with expanded secrets should not be saved back.
func (s *SourceStore) Save(_ context.Context, source domain.Source) error {
	if source.ID == "" {
		return domain.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read()
	if err != nil {
		return err
	}

	entry := sourceEntry{
		Type:      source.Type,
		Name:      source.Name,
		Resources: source.Resources,
		StartDate: formatDate(source.StartDate),
		EndDate:   formatDate(source.EndDate),
	}
	if len(source.Config) > 0 {
		entry.Config = make(map[string]any, len(source.Config))
		for k, v := range source.Config {
			entry.Config[k] = v
		}
	}
	if err := validation.Struct(entry); err != nil {
		return fmt.Errorf("source %s: %w", source.ID, err)
	}

	doc.Sources[source.ID] = entry
	return s.write(doc)
}

// Delete removes a source. Deleting a missing source is not an error.
func (s *SourceStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read()
	if err != nil {
		return err
	}
	if _, ok := doc.Sources[id]; !ok {
		return nil
	}
	delete(doc.Sources, id)
	return s.write(doc)
}

// read parses the file (caller must hold lock). A missing file has no sources.
func (s *SourceStore) read() (*sourcesDocument, error) {
	doc := &sourcesDocument{}
	data, err := os.ReadFile(s.filePath)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("reading %s: %w", s.filePath, err)
	}
	if err == nil {
		if err := toml.Unmarshal(data, doc); err != nil {
			return nil, fmt.Errorf("%w: parsing %s: %w", domain.ErrConfiguration, s.filePath, err)
		}
	}
	if doc.Sources == nil {
		doc.Sources = make(map[string]sourceEntry)
	}
	return doc, nil
}

// write replaces the file atomically (caller must hold lock).
func (s *SourceStore) write(doc *sourcesDocument) error {
	data, err := toml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encoding sources: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.filePath), 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	tmp := s.filePath + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("writing sources: %w", err)
	}
	if err := os.Rename(tmp, s.filePath); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("writing sources: %w", err)
	}
	return nil
}

func (s *SourceStore) toSource(id string, entry sourceEntry) (domain.Source, error) {
	if err := validation.Struct(entry); err != nil {
		return domain.Source{}, fmt.Errorf("source %s: %w", id, err)
	}

	source := domain.Source{
		ID:        id,
		Type:      entry.Type,
		Name:      entry.Name,
		Resources: entry.Resources,
		Config:    make(map[string]string, len(entry.Config)),
	}

	var err error
	if source.StartDate, err = parseDate(entry.StartDate, validation.ParseDate); err != nil {
		return domain.Source{}, fmt.Errorf("source %s start_date: %w", id, err)
	}
	if source.EndDate, err = parseDate(entry.EndDate, validation.ParseEndDate); err != nil {
		return domain.Source{}, fmt.Errorf("source %s end_date: %w", id, err)
	}
	if source.StartDate != nil && source.EndDate != nil && source.EndDate.Before(*source.StartDate) {
		return domain.Source{}, fmt.Errorf("%w: source %s ends before it starts", domain.ErrConfiguration, id)
	}

	for key, value := range entry.Config {
		str, err := s.expand(stringify(value))
		if err != nil {
			return domain.Source{}, fmt.Errorf("source %s config %s: %w", id, key, err)
		}
		source.Config[key] = str
	}
	return source, nil
}

var envRef = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// expand replaces ${NAME} references. A bare $ is kept as is. An unset
// variable is an error rather than an empty credential.
func (s *SourceStore) expand(value string) (string, error) {
	var missing []string
	out := envRef.ReplaceAllStringFunc(value, func(ref string) string {
		name := ref[2 : len(ref)-1]
		v, ok := s.lookup(name)
		if !ok {
			missing = append(missing, name)
		}
		return v
	})
	if len(missing) > 0 {
		return "", fmt.Errorf("%w: environment variable %s is not set",
			domain.ErrConfiguration, strings.Join(missing, ", "))
	}
	return out, nil
}

// stringify renders TOML scalars and arrays the way config decoding expects.
func stringify(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case []any:
		parts := make([]string, 0, len(val))
		for _, item := range val {
			parts = append(parts, stringify(item))
		}
		return strings.Join(parts, ",")
	case time.Time:
		return val.Format(validation.DateLayout)
	case toml.LocalDate:
		return val.String()
	default:
		return fmt.Sprint(val)
	}
}

func parseDate(s string, parse func(string) (time.Time, error)) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := parse(s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(validation.DateLayout)
}
