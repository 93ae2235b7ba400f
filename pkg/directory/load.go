package directory

import (
	"encoding/json"
	"fmt"
	"os"

	"clearpath-hq/sentinel/pkg/rules"
)

// rosterDocument is the on-disk directory format: a JSON object with an
// employees array. Each entry is a free-form employee record keyed by "id".
type rosterDocument struct {
	Employees []rules.Employee `json:"employees"`
}

// LoadFile reads a directory document from disk and builds a Static
// directory from it.
func LoadFile(path string) (*Static, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory file %q: %w", path, err)
	}

	var doc rosterDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse directory file %q: %w", path, err)
	}
	if len(doc.Employees) == 0 {
		return nil, fmt.Errorf("directory file %q contains no employees", path)
	}
	for i, e := range doc.Employees {
		if e.ID() == "" {
			return nil, fmt.Errorf("directory file %q: employee at index %d has no id", path, i)
		}
	}
	return NewStatic(doc.Employees), nil
}
