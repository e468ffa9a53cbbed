package fundamental

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"stock-analyst/pkg/utils"
)

//go:embed sectors.yaml
var defaultTableYAML []byte

// Profile holds the typical multiples of a sector.
type Profile struct {
	Name   string  `yaml:"name"`
	PE     float64 `yaml:"pe"`
	Growth float64 `yaml:"growth"`
}

type symbolEntry struct {
	Sector string  `yaml:"sector"`
	PE     float64 `yaml:"pe"`
	Growth float64 `yaml:"growth"`
}

// Table maps symbols to sectors and sectors to typical multiples.
type Table struct {
	Default Profile                `yaml:"default"`
	Sectors map[string]Profile     `yaml:"sectors"`
	Symbols map[string]symbolEntry `yaml:"symbols"`
}

// DefaultTable returns the built-in table.
func DefaultTable() *Table {
	t, err := ParseTable(defaultTableYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded sector table: %v", err))
	}
	return t
}

// LoadTable reads a table from a YAML file.
func LoadTable(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read sector table: %w", err)
	}
	return ParseTable(data)
}

// ParseTable parses a YAML sector table. A missing default falls back to
// Unknown with PE 25 and 10% growth.
func ParseTable(data []byte) (*Table, error) {
	var t Table
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("parse sector table: %w", err)
	}
	if t.Default.Name == "" {
		t.Default.Name = "Unknown"
	}
	if t.Default.PE <= 0 {
		t.Default.PE = 25
	}
	if t.Default.Growth <= 0 {
		t.Default.Growth = 0.10
	}
	for name, p := range t.Sectors {
		p.Name = name
		t.Sectors[name] = p
	}
	return &t, nil
}

// Resolve returns the profile for a symbol. An explicitly supplied sector
// wins; otherwise the exact symbol is tried, then the symbol without its
// exchange suffix. known is false when only the default applies.
func (t *Table) Resolve(symbol, sector string) (profile Profile, known bool) {
	if sector != "" {
		if p, ok := t.Sectors[sector]; ok {
			return p, true
		}
		p := t.Default
		p.Name = sector
		return p, false
	}

	for _, key := range []string{symbol, utils.NormalizeSymbol(symbol), utils.BaseSymbol(symbol)} {
		entry, ok := t.Symbols[key]
		if !ok {
			continue
		}
		p, ok := t.Sectors[entry.Sector]
		if !ok {
			p = Profile{Name: entry.Sector, PE: t.Default.PE, Growth: t.Default.Growth}
		}
		if entry.PE > 0 {
			p.PE = entry.PE
		}
		if entry.Growth > 0 {
			p.Growth = entry.Growth
		}
		return p, true
	}
	return t.Default, false
}
