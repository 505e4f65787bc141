package parser

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/KaramelBytes/tabloom-cli/internal/table"
)

type jsonLoader struct{}

func (jsonLoader) CanLoad(filename string) bool {
	return strings.HasSuffix(strings.ToLower(filename), ".json")
}

func (jsonLoader) Load(path string, opt Options) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open json: %w", err)
	}
	defer f.Close()
	return ReadJSON(f, filepath.Base(path), opt)
}

// ReadJSON decodes an array of flat objects. Headers follow the order in which
// keys are first seen; nested values are kept as their JSON text.
func ReadJSON(r io.Reader, name string, opt Options) (*Table, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	t := &Table{Name: name, Rows: []table.Row{}}

	tok, err := dec.Token()
	if errors.Is(err, io.EOF) {
		return t, nil
	}
	if err != nil {
		return nil, fmt.Errorf("decode json: %w", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '[' {
		return nil, fmt.Errorf("decode json: expected an array of objects")
	}

	known := map[string]bool{}
	for dec.More() {
		row, keys, err := readObject(dec)
		if err != nil {
			return nil, fmt.Errorf("decode json row %d: %w", t.TotalRows+1, err)
		}
		t.TotalRows++
		for _, k := range keys {
			if !known[k] {
				known[k] = true
				t.Headers = append(t.Headers, k)
			}
		}
		if opt.MaxRows > 0 && len(t.Rows) >= opt.MaxRows {
			continue
		}
		t.Rows = append(t.Rows, row)
	}
	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("decode json: %w", err)
	}
	t.noteTruncation()
	return t, nil
}

func readObject(dec *json.Decoder) (table.Row, []string, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, nil, fmt.Errorf("expected an object, got %v", tok)
	}
	row := table.Row{}
	var keys []string
	for dec.More() {
		kt, err := dec.Token()
		if err != nil {
			return nil, nil, err
		}
		key, _ := kt.(string)
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, nil, err
		}
		var v table.Value
		if err := v.UnmarshalJSON(raw); err != nil {
			v = table.Text(string(raw))
		}
		if _, dup := row[key]; !dup {
			keys = append(keys, key)
		}
		row[key] = v
	}
	if _, err := dec.Token(); err != nil {
		return nil, nil, err
	}
	return row, keys, nil
}
