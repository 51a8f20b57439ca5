// Package persona loads interviewer personas from YAML definitions and
// serves them as an immutable registry. Personas parameterize phrasing of
// openings, feedback, and follow-ups; they never touch scoring arithmetic.
package persona

import (
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/avoronov/interviewer/internal/model"
)

// ErrUnknownPersona is returned when a named persona is not in the registry.
// Callers treat it as a configuration error fatal at session creation.
var ErrUnknownPersona = errors.New("unknown persona")

// Registry is a read-only persona set populated at process start.
type Registry struct {
	byName map[string]model.Persona
	names  []string
}

// Load reads every *.yaml file in dir into a Registry. A directory with no
// valid persona files is a configuration error.
func Load(dir string) (*Registry, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return nil, fmt.Errorf("scan persona dir: %w", err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no persona files found in %s", dir)
	}

	r := &Registry{byName: make(map[string]model.Persona)}
	for _, path := range paths {
		p, err := loadFile(path)
		if err != nil {
			return nil, fmt.Errorf("load persona %s: %w", path, err)
		}
		if _, dup := r.byName[p.Name]; dup {
			return nil, fmt.Errorf("duplicate persona name %q in %s", p.Name, path)
		}
		r.byName[p.Name] = p
		r.names = append(r.names, p.Name)
		slog.Info("loaded persona", "name", p.Name, "file", filepath.Base(path))
	}
	sort.Strings(r.names)
	return r, nil
}

func loadFile(path string) (model.Persona, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return model.Persona{}, err
	}
	var p model.Persona
	if err := yaml.Unmarshal(data, &p); err != nil {
		return model.Persona{}, fmt.Errorf("parse yaml: %w", err)
	}
	if p.Name == "" {
		return model.Persona{}, errors.New("persona has no name")
	}
	return p, nil
}

// Get returns the named persona, or a uniformly random one when name is
// empty.
func (r *Registry) Get(name string) (model.Persona, error) {
	if name == "" {
		return r.random(), nil
	}
	p, ok := r.byName[name]
	if !ok {
		return model.Persona{}, fmt.Errorf("%w: %q", ErrUnknownPersona, name)
	}
	return p, nil
}

func (r *Registry) random() model.Persona {
	name := r.names[rand.IntN(len(r.names))]
	return r.byName[name]
}

// Names returns all persona names in sorted order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

// All returns every loaded persona, ordered by name.
func (r *Registry) All() []model.Persona {
	out := make([]model.Persona, 0, len(r.names))
	for _, name := range r.names {
		out = append(out, r.byName[name])
	}
	return out
}

// Feedback picks the persona's phrasing band for a total score: low below
// the pass threshold, mid inside the follow-up band, high above it.
func Feedback(p model.Persona, total float64) string {
	switch {
	case total < 6.0:
		if p.Feedback.Low != "" {
			return p.Feedback.Low
		}
		return "That answer misses the mark. Let's keep going."
	case total <= 8.0:
		if p.Feedback.Mid != "" {
			return p.Feedback.Mid
		}
		return "Reasonable, though there is room to go deeper."
	default:
		if p.Feedback.High != "" {
			return p.Feedback.High
		}
		return "Solid answer. Moving on."
	}
}
