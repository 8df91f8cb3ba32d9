package service

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strconv"
)

// LabelTable is an inverted mapping file: class index -> label.
type LabelTable map[int]string

func (t LabelTable) Lookup(index int) (string, bool) {
	label, ok := t[index]
	return label, ok
}

func (t LabelTable) Len() int {
	return len(t)
}

func (t LabelTable) ClassCount() int {
	n := 0
	for idx := range t {
		if idx+1 > n {
			n = idx + 1
		}
	}
	return n
}

type Mappings map[Attribute]LabelTable

func (m Mappings) ClassCounts() []int {
	counts := make([]int, len(Attributes))
	for i, attr := range Attributes {
		counts[i] = m[attr].ClassCount()
	}
	return counts
}

func MappingPath(dir string, attr Attribute) string {
	return filepath.Join(dir, string(attr)+"_mapping.json")
}

// LoadMappings reads <dir>/<attribute>_mapping.json for every attribute.
// Any unreadable, malformed or inconsistent file fails the whole load.
func LoadMappings(dir string) (Mappings, error) {
	m := make(Mappings, len(Attributes))
	for _, attr := range Attributes {
		path := MappingPath(dir, attr)
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s mapping: %w", attr, err)
		}
		table, err := ParseMapping(data)
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
		if table.ClassCount() != table.Len() {
			slog.Warn("Mapping indices are not dense",
				slog.String("attribute", string(attr)),
				slog.Int("labels", table.Len()),
				slog.Int("max_index", table.ClassCount()-1))
		}
		m[attr] = table
	}
	return m, nil
}

var errTrailingData = errors.New("trailing data after JSON object")

// ParseMapping parses a flat label -> index JSON object and inverts it.
func ParseMapping(data []byte) (LabelTable, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return nil, errTrailingData
	}
	if raw == nil {
		return nil, fmt.Errorf("mapping is not a JSON object")
	}

	table := make(LabelTable, len(raw))
	for label, v := range raw {
		if label == "" {
			return nil, fmt.Errorf("empty label")
		}
		num, ok := v.(json.Number)
		if !ok {
			return nil, fmt.Errorf("label %q: index %v is not a number", label, v)
		}
		idx, err := parseIndex(num)
		if err != nil {
			return nil, fmt.Errorf("label %q: %w", label, err)
		}
		if other, dup := table[idx]; dup {
			return nil, fmt.Errorf("labels %q and %q share index %d", other, label, idx)
		}
		table[idx] = label
	}
	return table, nil
}

func parseIndex(num json.Number) (int, error) {
	if n, err := strconv.ParseInt(string(num), 10, 32); err == nil {
		if n < 0 {
			return 0, fmt.Errorf("index %d is negative", n)
		}
		return int(n), nil
	}
	f, err := num.Float64()
	if err != nil || f != math.Trunc(f) || f > math.MaxInt32 {
		return 0, fmt.Errorf("index %s is not an integer", num)
	}
	if f < 0 {
		return 0, fmt.Errorf("index %s is negative", num)
	}
	return int(f), nil
}
