package settings

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/bytedance/sonic"
	"github.com/goccy/go-yaml"
	"github.com/pelletier/go-toml/v2"
)

// Format is the on-disk encoding of the settings file.
type Format string

const (
	FormatJSON Format = "json"
	FormatTOML Format = "toml"
	FormatYAML Format = "yaml"
)

// FormatFor picks the encoding from the file extension, defaulting to JSON.
func FormatFor(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return FormatTOML
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// Store persists coordinates in a single file. It is safe for concurrent use.
type Store struct {
	path   string
	format Format
	secret []byte

	mu     sync.RWMutex
	cached *Coordinates
}

// NewStore returns a store backed by path. With a non-empty secret the
// token is sealed at rest.
func NewStore(path, secret string) *Store {
	return &Store{
		path:   path,
		format: FormatFor(path),
		secret: []byte(secret),
	}
}

// Path returns the backing file path.
func (s *Store) Path() string { return s.path }

// Load reads the file. A missing file yields ErrNotConfigured.
func (s *Store) Load() (Coordinates, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked()
}

func (s *Store) loadLocked() (Coordinates, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return Coordinates{}, ErrNotConfigured
	}
	if err != nil {
		return Coordinates{}, fmt.Errorf("read settings: %w", err)
	}

	var c Coordinates
	if err := s.unmarshal(data, &c); err != nil {
		return Coordinates{}, fmt.Errorf("parse settings %s: %w", s.path, err)
	}
	token, err := unsealToken(s.secret, c.Token)
	if err != nil {
		return Coordinates{}, err
	}
	c.Token = token
	c = c.Normalized()
	s.cached = &c
	return c, nil
}

// Save validates and writes c, replacing any previous configuration.
func (s *Store) Save(c Coordinates) error {
	c = c.Normalized()
	if err := c.Validate(); err != nil {
		return err
	}

	onDisk := c
	if len(s.secret) > 0 {
		sealed, err := sealToken(s.secret, c.Token)
		if err != nil {
			return err
		}
		onDisk.Token = sealed
	}
	data, err := s.marshal(onDisk)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := writeFileAtomic(s.path, data); err != nil {
		return err
	}
	s.cached = &c
	return nil
}

// Clear removes the stored configuration.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cached = nil
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove settings: %w", err)
	}
	return nil
}

// Coordinates returns the current configuration, reading the file on first use.
func (s *Store) Coordinates() (Coordinates, error) {
	s.mu.RLock()
	cached := s.cached
	s.mu.RUnlock()
	if cached != nil {
		return *cached, cached.Validate()
	}

	c, err := s.Load()
	if err != nil {
		return Coordinates{}, err
	}
	return c, c.Validate()
}

func (s *Store) marshal(c Coordinates) ([]byte, error) {
	switch s.format {
	case FormatTOML:
		return toml.Marshal(c)
	case FormatYAML:
		return yaml.Marshal(c)
	default:
		return sonic.ConfigStd.MarshalIndent(c, "", "  ")
	}
}

func (s *Store) unmarshal(data []byte, c *Coordinates) error {
	switch s.format {
	case FormatTOML:
		return toml.Unmarshal(data, c)
	case FormatYAML:
		return yaml.Unmarshal(data, c)
	default:
		return sonic.Unmarshal(data, c)
	}
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create settings dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".settings-*")
	if err != nil {
		return fmt.Errorf("create temp settings: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write settings: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod settings: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close settings: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace settings: %w", err)
	}
	return nil
}
