package options

import (
	"context"
	"fmt"

	"github.com/zclconf/go-cty/cty"
)

// Def describes a single declared option.
type Def struct {
	Name        string
	Type        cty.Type
	Default     cty.Value // cty.NilVal means the option is required
	Description string
}

// Required reports whether the option has no default value. Pass cty.NilVal
// as the default to declare a required option.
func (d Def) Required() bool {
	return d.Default.IsNull()
}

// Schema is an ordered collection of option definitions. Order is preserved
// so usage text lists options in declaration order.
type Schema struct {
	defs   []Def
	byName map[string]int
}

// NewSchema creates an empty schema.
func NewSchema() *Schema {
	return &Schema{byName: make(map[string]int)}
}

// Add appends an option definition. Declaring the same option name twice is
// a programmer error and panics.
func (s *Schema) Add(name string, typ cty.Type, def cty.Value, description string) *Schema {
	if _, exists := s.byName[name]; exists {
		panic(fmt.Sprintf("option '%s' already declared", name))
	}
	s.byName[name] = len(s.defs)
	s.defs = append(s.defs, Def{Name: name, Type: typ, Default: def, Description: description})
	return s
}

// Lookup returns the definition for name.
func (s *Schema) Lookup(name string) (Def, bool) {
	i, ok := s.byName[name]
	if !ok {
		return Def{}, false
	}
	return s.defs[i], true
}

// Defs returns the definitions in declaration order.
func (s *Schema) Defs() []Def {
	return s.defs
}

// Loader is the interface for the external configuration collaborator. It
// resolves the collected cli and cfg schemas into a single Values map.
type Loader interface {
	Load(ctx context.Context, cli, cfg *Schema) (Values, error)
}
