package impute

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/KaramelBytes/tabloom-cli/internal/schema"
	"github.com/KaramelBytes/tabloom-cli/internal/table"
)

// Method names an imputation strategy.
type Method string

const (
	Mean          Method = "mean"
	Median        Method = "median"
	Mode          Method = "mode"
	ForwardFill   Method = "forward_fill"
	BackwardFill  Method = "backward_fill"
	Interpolation Method = "interpolation"
	Custom        Method = "custom"
)

// Methods lists the supported methods in display order.
var Methods = []Method{Mean, Median, Mode, ForwardFill, BackwardFill, Interpolation, Custom}

// Valid reports whether m is a supported method.
func (m Method) Valid() bool {
	for _, x := range Methods {
		if m == x {
			return true
		}
	}
	return false
}

// Strategy binds a method to a column. CustomValue is only read for Custom.
type Strategy struct {
	Column      string       `json:"column" yaml:"column" validate:"required"`
	Method      Method       `json:"method" yaml:"method"`
	CustomValue *table.Value `json:"customValue,omitempty" yaml:"customValue,omitempty"`
}

// highCardinality is the distinct-count above which numeric columns use mean.
const highCardinality = 10

// Recommend picks a default method from the column's type and cardinality.
func Recommend(c schema.Column) Strategy {
	s := Strategy{Column: c.Name}
	switch c.Type {
	case schema.TypeNumber:
		if c.Stats.UniqueCount > highCardinality {
			s.Method = Mean
		} else {
			s.Method = Median
		}
	case schema.TypeDate:
		s.Method = ForwardFill
	default:
		s.Method = Mode
	}
	return s
}

// Defaults recommends a strategy for every column that has missing values.
func Defaults(cols []schema.Column) []Strategy {
	var out []Strategy
	for _, c := range cols {
		if c.Stats.NullCount > 0 {
			out = append(out, Recommend(c))
		}
	}
	return out
}

// ParseStrategyFlag parses "column=method" or "column=custom:value". Custom
// values that read as numbers or booleans keep that type.
func ParseStrategyFlag(s string) (Strategy, error) {
	col, rest, ok := strings.Cut(s, "=")
	col = strings.TrimSpace(col)
	if !ok || col == "" {
		return Strategy{}, fmt.Errorf("invalid strategy %q: expected column=method[:value]", s)
	}
	method, value, hasValue := strings.Cut(strings.TrimSpace(rest), ":")
	st := Strategy{Column: col, Method: Method(strings.ToLower(strings.TrimSpace(method)))}
	if !st.Method.Valid() {
		return Strategy{}, fmt.Errorf("invalid strategy %q: unknown method %q", s, method)
	}
	if hasValue {
		v := literal(value)
		st.CustomValue = &v
	}
	if st.Method == Custom && st.CustomValue == nil {
		return Strategy{}, fmt.Errorf("invalid strategy %q: %w", s, ErrCustomValueRequired)
	}
	return st, nil
}

func literal(s string) table.Value {
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return table.Number(f)
	}
	if b, err := strconv.ParseBool(s); err == nil {
		return table.Bool(b)
	}
	return table.Text(s)
}

type strategyFile struct {
	Strategies []Strategy `yaml:"strategies"`
}

// LoadStrategies reads a YAML strategy file:
//
//	strategies:
//	  - column: age
//	    method: median
//	  - column: city
//	    method: custom
//	    customValue: Unknown
func LoadStrategies(path string) ([]Strategy, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read strategies: %w", err)
	}
	var f strategyFile
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("parse strategies %s: %w", path, err)
	}
	for i, s := range f.Strategies {
		if s.Column == "" {
			return nil, fmt.Errorf("strategy %d: column is required", i+1)
		}
		if !s.Method.Valid() {
			return nil, fmt.Errorf("strategy %d (%s): unknown method %q", i+1, s.Column, s.Method)
		}
	}
	return f.Strategies, nil
}
