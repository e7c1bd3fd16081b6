// Package materials loads monthly material cost series and derives the dashboard figures:
// percent changes, time range windows and a short term forecast.
package materials

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/aouyang1/go-costcast/frame"
	"github.com/aouyang1/go-costcast/timedataset"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	colYear   = "Year"
	colPeriod = "Period"
	colDate   = "Date"
	colValue  = "Value"
)

var (
	ErrNoMaterials     = errors.New("no material series found")
	ErrUnknownMaterial = errors.New("unknown material")
)

var columnMapping = map[string]string{
	colDate:  frame.ColDS,
	colValue: frame.ColY,
}

// Material is a single cost series with its derived changes
type Material struct {
	Key     string                   `json:"key"`
	Name    string                   `json:"name"`
	Data    *timedataset.TimeDataset `json:"-"`
	Changes Changes                  `json:"changes"`
}

// Catalog holds every loaded material keyed by file stem. It is read only after loading.
type Catalog struct {
	materials map[string]*Material
	keys      []string
}

// NewCatalog builds a catalog from already loaded materials
func NewCatalog(materials ...*Material) *Catalog {
	c := &Catalog{
		materials: make(map[string]*Material, len(materials)),
	}
	for _, m := range materials {
		if _, exists := c.materials[m.Key]; !exists {
			c.keys = append(c.keys, m.Key)
		}
		c.materials[m.Key] = m
	}
	slices.Sort(c.keys)
	return c
}

// LoadDir loads every csv in the directory as a material named after its file
func LoadDir(dir string) (*Catalog, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("unable to read material directory, %w", err)
	}

	var materials []*Material
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".csv") {
			continue
		}
		m, err := LoadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, err
		}
		materials = append(materials, m)
	}
	if len(materials) == 0 {
		return nil, fmt.Errorf("%s, %w", dir, ErrNoMaterials)
	}
	return NewCatalog(materials...), nil
}

// LoadFile loads a single material csv
func LoadFile(path string) (*Material, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("unable to open material file, %w", err)
	}
	defer f.Close()

	td, err := Load(f)
	if err != nil {
		return nil, fmt.Errorf("unable to load %s, %w", path, err)
	}
	return NewMaterial(KeyFromFile(path), td), nil
}

// NewMaterial computes the changes of a series. Series too short for changes keep a neutral
// direction.
func NewMaterial(key string, td *timedataset.TimeDataset) *Material {
	changes, err := NewChanges(td)
	if err != nil {
		slog.Warn("unable to compute material changes", "name", key, "error", err.Error())
	}
	return &Material{
		Key:     key,
		Name:    NameFromKey(key),
		Data:    td,
		Changes: changes,
	}
}

// Load reads a csv with either Year and Period columns or a Date column along with a Value
// column into a sorted dataset
func Load(r io.Reader) (*timedataset.TimeDataset, error) {
	df, err := frame.ReadCSV(r)
	if err != nil {
		return nil, err
	}
	if slices.Contains(df.Names(), colYear) && slices.Contains(df.Names(), colPeriod) {
		df, err = frame.PeriodToDate(df, colYear, colPeriod)
		if err != nil {
			return nil, err
		}
	}
	df, err = frame.Normalize(df, columnMapping)
	if err != nil {
		return nil, err
	}
	return frame.ToDataset(df)
}

// KeyFromFile returns the lower cased file stem
func KeyFromFile(path string) string {
	base := filepath.Base(path)
	return strings.ToLower(strings.TrimSuffix(base, filepath.Ext(base)))
}

// NameFromKey turns a file stem such as iron_and_steel into a display name
func NameFromKey(key string) string {
	words := strings.FieldsFunc(key, func(r rune) bool {
		return r == '_' || r == '-' || r == ' '
	})
	return cases.Title(language.English).String(strings.Join(words, " "))
}

// Get returns a material by key
func (c *Catalog) Get(key string) (*Material, error) {
	m, exists := c.materials[strings.ToLower(key)]
	if !exists {
		return nil, fmt.Errorf("%q, %w", key, ErrUnknownMaterial)
	}
	return m, nil
}

// List returns every material ordered by key
func (c *Catalog) List() []*Material {
	res := make([]*Material, 0, len(c.keys))
	for _, key := range c.keys {
		res = append(res, c.materials[key])
	}
	return res
}

func (c *Catalog) Len() int {
	return len(c.keys)
}

// TablePrint writes the change table of every material
func (c *Catalog) TablePrint(w io.Writer) error {
	tbl := tabwriter.NewWriter(w, 0, 0, 1, ' ', tabwriter.AlignRight)
	if _, err := fmt.Fprint(tbl, "Material\tLatest\tMonthly %\tQuarterly %\tSemi-Annual %\tAnnual %\tDirection\t\n"); err != nil {
		return err
	}
	for _, m := range c.List() {
		latest := "..."
		if m.Data.Len() > 0 {
			latest = fmt.Sprintf("%.3f", m.Data.Y[m.Data.Len()-1])
		}
		ch := m.Changes
		if _, err := fmt.Fprintf(tbl, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t\n",
			m.Name, latest,
			ch.Monthly.StringFixed(2), ch.Quarterly.StringFixed(2),
			ch.SemiAnnual.StringFixed(2), ch.Annual.StringFixed(2),
			ch.Direction); err != nil {
			return err
		}
	}
	return tbl.Flush()
}
