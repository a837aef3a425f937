// Package catalog serves maps and card sets from a YAML document.
package catalog

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/chasegame/chase-server/internal/game"
	"github.com/chasegame/chase-server/internal/game/board"
	"github.com/chasegame/chase-server/internal/game/cards"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Document is the on-disk catalog layout.
type Document struct {
	Maps     []board.Definition `yaml:"maps"`
	CardSets []CardSet          `yaml:"card_sets"`
}

// CardSet is a named list of card definitions.
type CardSet struct {
	Name  string             `yaml:"name"`
	Cards []cards.Definition `yaml:"cards"`
}

// Catalog holds validated maps and card pools, keyed case-insensitively.
type Catalog struct {
	mu    sync.RWMutex
	maps  map[string]*board.Map
	pools map[string]*cards.Pool
}

// New builds a catalog from a decoded document.
func New(doc Document) (*Catalog, error) {
	c := &Catalog{
		maps:  make(map[string]*board.Map, len(doc.Maps)),
		pools: make(map[string]*cards.Pool, len(doc.CardSets)),
	}
	for _, def := range doc.Maps {
		m, err := def.Build()
		if err != nil {
			return nil, err
		}
		key := strings.ToLower(m.Name())
		if _, dup := c.maps[key]; dup {
			return nil, fmt.Errorf("duplicate map %q", m.Name())
		}
		c.maps[key] = m
	}
	for _, set := range doc.CardSets {
		p, err := cards.NewPool(set.Name, set.Cards)
		if err != nil {
			return nil, err
		}
		key := strings.ToLower(set.Name)
		if _, dup := c.pools[key]; dup {
			return nil, fmt.Errorf("duplicate card set %q", set.Name)
		}
		c.pools[key] = p
	}
	return c, nil
}

// Decode reads a YAML catalog.
func Decode(r io.Reader) (*Catalog, error) {
	var doc Document
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	return New(doc)
}

// LoadFile reads the catalog at path.
func LoadFile(path string, logger *zap.Logger) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	defer f.Close()

	c, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if logger != nil {
		logger.Info("catalog loaded",
			zap.String("path", path),
			zap.Strings("maps", c.MapNames()),
			zap.Strings("card_sets", c.CardSetNames()),
		)
	}
	return c, nil
}

// Map implements game.MapProvider.
func (c *Catalog) Map(_ context.Context, name string) (*board.Map, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	m, ok := c.maps[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("map %q: %w", name, game.ErrUnknownAsset)
	}
	return m, nil
}

// CardPool implements game.CardPoolProvider.
func (c *Catalog) CardPool(_ context.Context, set string) (*cards.Pool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.pools[strings.ToLower(set)]
	if !ok {
		return nil, fmt.Errorf("card set %q: %w", set, game.ErrUnknownAsset)
	}
	return p, nil
}

// AddMap registers or replaces a map.
func (c *Catalog) AddMap(m *board.Map) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.maps[strings.ToLower(m.Name())] = m
}

// AddCardSet registers or replaces a card pool.
func (c *Catalog) AddCardSet(p *cards.Pool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pools[strings.ToLower(p.Name())] = p
}

// MapNames lists the registered maps.
func (c *Catalog) MapNames() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.maps))
	for _, m := range c.maps {
		out = append(out, m.Name())
	}
	sort.Strings(out)
	return out
}

// CardSetNames lists the registered card sets.
func (c *Catalog) CardSetNames() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.pools))
	for _, p := range c.pools {
		out = append(out, p.Name())
	}
	sort.Strings(out)
	return out
}

// CardSets returns every pool, sorted by name.
func (c *Catalog) CardSets() []*cards.Pool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*cards.Pool, 0, len(c.pools))
	for _, p := range c.pools {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}

var (
	_ game.MapProvider      = (*Catalog)(nil)
	_ game.CardPoolProvider = (*Catalog)(nil)
)
