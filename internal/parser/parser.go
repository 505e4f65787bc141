// Package parser decodes tabular files into rows and headers for the engine.
package parser

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/KaramelBytes/tabloom-cli/internal/table"
)

// Table is a decoded dataset. Header order is authoritative.
type Table struct {
	Name      string
	Headers   []string
	Rows      []table.Row
	TotalRows int
	Warnings  []string
}

// Options controls decoding.
type Options struct {
	// MaxRows limits rows loaded; 0 means unlimited.
	MaxRows int
	// Delimiter for CSV. If 0, it is sniffed from the extension and header line.
	Delimiter rune
	// Sheet selects an XLSX sheet by name; SheetIndex (1-based) is used otherwise.
	Sheet      string
	SheetIndex int
}

// Loader decodes one file format.
type Loader interface {
	CanLoad(filename string) bool
	Load(path string, opt Options) (*Table, error)
}

var registry []Loader

// Register adds a loader implementation to the registry.
func Register(l Loader) {
	registry = append(registry, l)
}

// ErrUnsupported indicates a format is not supported yet.
var ErrUnsupported = errors.New("unsupported file format")

// Load selects a loader based on filename and decodes the file.
func Load(path string, opt Options) (*Table, error) {
	for _, l := range registry {
		if l.CanLoad(path) {
			return l.Load(path, opt)
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupported, filepath.Ext(path))
}

func init() {
	Register(csvLoader{})
	Register(xlsxLoader{})
	Register(jsonLoader{})
}

// fromRecords turns a header record plus data records into a Table. Short
// records are padded with nulls and extra cells dropped.
func fromRecords(name string, header []string, records [][]string, opt Options) *Table {
	t := &Table{Name: name, Headers: uniqueHeaders(header), Rows: []table.Row{}}
	for _, rec := range records {
		t.TotalRows++
		if opt.MaxRows > 0 && len(t.Rows) >= opt.MaxRows {
			continue
		}
		row := make(table.Row, len(t.Headers))
		for j, h := range t.Headers {
			if j < len(rec) {
				row[h] = table.Text(rec[j])
			} else {
				row[h] = table.Null()
			}
		}
		t.Rows = append(t.Rows, row)
	}
	t.noteTruncation()
	return t
}

func (t *Table) noteTruncation() {
	if len(t.Rows) < t.TotalRows {
		t.Warnings = append(t.Warnings, fmt.Sprintf("loaded only %d/%d rows due to max_rows", len(t.Rows), t.TotalRows))
	}
}

// uniqueHeaders trims names, fills blanks and suffixes repeats so every
// column has a distinct key.
func uniqueHeaders(in []string) []string {
	out := make([]string, len(in))
	used := make(map[string]bool, len(in))
	suffix := make(map[string]int)
	for i, h := range in {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		if h == "" {
			h = "column_" + strconv.Itoa(i+1)
		}
		base := h
		for used[h] {
			suffix[base]++
			h = base + "_" + strconv.Itoa(suffix[base])
		}
		used[h] = true
		out[i] = h
	}
	return out
}
