package loader

import (
	"encoding/json"
	"time"

	"github.com/a-h/pkgrun/module"
	"github.com/a-h/pkgrun/pkgpath"
)

// JSON loads a ".json" file; its exported value is the parsed document,
// making require("./x.json") first-class (spec.md §4.4).
type JSON struct {
	now func() time.Time
}

// NewJSON builds a JSON loader.
func NewJSON() *JSON {
	return &JSON{now: time.Now}
}

// Suffixes implements Loader.
func (j *JSON) Suffixes() []string { return []string{".json"} }

// Load implements Loader.
func (j *JSON) Load(m *module.Module, target pkgpath.Path) error {
	data, err := target.ReadBytes()
	if err != nil {
		return &LoadError{Path: target.String(), Reason: err.Error()}
	}
	var value any
	if err := json.Unmarshal(data, &value); err != nil {
		return &LoadError{Path: target.String(), Reason: "invalid JSON: " + err.Error()}
	}
	m.Namespace = map[string]any{}
	m.MarkExecuted(value, j.now())
	return nil
}
