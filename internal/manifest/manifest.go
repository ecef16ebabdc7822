package manifest

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/cbout22/ghcp/internal/config"
)

const DefaultManifestFile = "ghcp.toml"

// Manifest represents the full ghcp.toml file: request settings and the
// named sources `ghcp sync` mirrors.
type Manifest struct {
	Settings config.Settings   `toml:"settings"`
	Sources  map[string]Source `toml:"sources,omitempty"`
}

// Source is one [sources.<name>] table.
type Source struct {
	URL   string `toml:"url"`
	Dest  string `toml:"dest,omitempty"`
	Force bool   `toml:"force,omitempty"`
}

// Resource parses the source URL.
func (s Source) Resource() (config.Resource, error) {
	return config.Parse(s.URL)
}

// Target returns where the source is written: Dest, or the last element
// of the remote path.
func (s Source) Target() string {
	if s.Dest != "" {
		return s.Dest
	}
	if res, err := s.Resource(); err == nil {
		return res.Name()
	}
	return ""
}

// New returns an empty Manifest with default settings.
func New() *Manifest {
	return &Manifest{
		Settings: config.DefaultSettings(),
		Sources:  make(map[string]Source),
	}
}

// Load reads and parses a ghcp.toml file from the given path.
// If the file does not exist it returns an empty manifest (no error).
// Settings left out of the file keep their defaults.
func Load(path string) (*Manifest, error) {
	m := New()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return m, nil
		}
		return nil, fmt.Errorf("reading manifest: %w", err)
	}

	if err := toml.Unmarshal(data, m); err != nil {
		return nil, fmt.Errorf("parsing manifest: %w", err)
	}

	if m.Sources == nil {
		m.Sources = make(map[string]Source)
	}

	if err := m.Settings.Validate(); err != nil {
		return nil, fmt.Errorf("manifest %s: %w", path, err)
	}

	return m, nil
}

// Save writes the manifest back to the given path.
func (m *Manifest) Save(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating manifest file: %w", err)
	}
	defer f.Close()

	encoder := toml.NewEncoder(f)
	if err := encoder.Encode(m); err != nil {
		return fmt.Errorf("encoding manifest: %w", err)
	}

	return nil
}

// Set adds or updates a source after checking its name and URL.
func (m *Manifest) Set(name string, src Source) error {
	if err := validateSourceName(name); err != nil {
		return err
	}
	res, err := src.Resource()
	if err != nil {
		return err
	}
	if res.Kind == config.Repository {
		return fmt.Errorf("source %q: %s points at a whole repository; use a blob or tree URL", name, src.URL)
	}
	m.Sources[name] = src
	return nil
}

// Remove deletes a source.
// Returns true if the source existed, false otherwise.
func (m *Manifest) Remove(name string) bool {
	if _, ok := m.Sources[name]; !ok {
		return false
	}
	delete(m.Sources, name)
	return true
}

// Entries returns every source ordered by name.
func (m *Manifest) Entries() []Entry {
	entries := make([]Entry, 0, len(m.Sources))
	for name, src := range m.Sources {
		entries = append(entries, Entry{Name: name, Source: src})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries
}

// Entry is a named manifest source.
type Entry struct {
	Name string
	Source
}

func validateSourceName(name string) error {
	if name == "" {
		return fmt.Errorf("source name must not be empty")
	}
	if strings.ContainsAny(name, " \t/\\") {
		return fmt.Errorf("invalid source name %q: must not contain whitespace or path separators", name)
	}
	return nil
}
