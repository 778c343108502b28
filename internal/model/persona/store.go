package persona

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrNotFound is returned when a persona id has no catalogue entry.
var ErrNotFound = errors.New("persona not found")

// Store exposes persona retrieval for HTTP handlers.
type Store interface {
	List() []Persona
	FindByID(id string) (Persona, bool)
}

// MemoryStore implements Store with an in-memory slice and keeps catalogue order.
type MemoryStore struct {
	items []Persona
	index map[string]int
}

// NewMemoryStore returns a MemoryStore preloaded with the supplied personas.
func NewMemoryStore(items []Persona) *MemoryStore {
	store := &MemoryStore{
		items: append([]Persona(nil), items...),
		index: make(map[string]int, len(items)),
	}
	for i, item := range store.items {
		if _, exists := store.index[item.ID]; !exists {
			store.index[item.ID] = i
		}
	}
	return store
}

// List returns the catalogue in its original order.
func (s *MemoryStore) List() []Persona {
	return append([]Persona(nil), s.items...)
}

// FindByID looks up a persona by identifier.
func (s *MemoryStore) FindByID(id string) (Persona, bool) {
	i, ok := s.index[strings.TrimSpace(id)]
	if !ok {
		return Persona{}, false
	}
	return s.items[i], true
}

type catalogFile struct {
	Personas []Persona `yaml:"personas"`
}

// LoadFile reads a YAML persona catalogue. Voices without a language code
// inherit defaultLanguage.
func LoadFile(path, defaultLanguage string) ([]Persona, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read persona catalogue: %w", err)
	}
	return Parse(raw, defaultLanguage)
}

// Parse decodes and validates a YAML persona catalogue.
func Parse(raw []byte, defaultLanguage string) ([]Persona, error) {
	var catalog catalogFile
	if err := yaml.Unmarshal(raw, &catalog); err != nil {
		return nil, fmt.Errorf("decode persona catalogue: %w", err)
	}

	if len(catalog.Personas) == 0 {
		return nil, errors.New("persona catalogue is empty")
	}

	seen := make(map[string]struct{}, len(catalog.Personas))
	for i := range catalog.Personas {
		p := &catalog.Personas[i]
		p.ID = strings.TrimSpace(p.ID)
		if err := Validate(*p); err != nil {
			return nil, fmt.Errorf("persona #%d: %w", i+1, err)
		}
		if _, dup := seen[p.ID]; dup {
			return nil, fmt.Errorf("persona #%d: duplicate id %q", i+1, p.ID)
		}
		seen[p.ID] = struct{}{}

		if p.Voice.LanguageCode == "" {
			p.Voice.LanguageCode = defaultLanguage
		}
		if p.Voice.Rate == 0 {
			p.Voice.Rate = 1.0
		}
	}

	return catalog.Personas, nil
}

// Validate checks the fields the chat and speech paths rely on.
func Validate(p Persona) error {
	if strings.TrimSpace(p.ID) == "" {
		return errors.New("id is required")
	}
	if strings.TrimSpace(p.Name) == "" {
		return errors.New("name is required")
	}
	if strings.TrimSpace(p.Prompt) == "" {
		return errors.New("prompt is required")
	}
	// Google TTS accepts speakingRate in [0.25, 4.0] and pitch in [-20, 20].
	if p.Voice.Rate < 0 || p.Voice.Rate > 4 {
		return fmt.Errorf("voice rate %.2f out of range", p.Voice.Rate)
	}
	if p.Voice.Pitch < -20 || p.Voice.Pitch > 20 {
		return fmt.Errorf("voice pitch %.2f out of range", p.Voice.Pitch)
	}
	return nil
}
