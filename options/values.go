package options

import (
	"fmt"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/gocty"
)

// Values holds the resolved options handed to every plugin's Initialize.
type Values map[string]cty.Value

// Has reports whether an option was resolved to a non-null value.
func (v Values) Has(name string) bool {
	val, ok := v[name]
	return ok && !val.IsNull()
}

// String returns the named option as a Go string.
func (v Values) String(name string) (string, error) {
	var out string
	if err := v.decode(name, &out); err != nil {
		return "", err
	}
	return out, nil
}

// Int returns the named option as a Go int.
func (v Values) Int(name string) (int, error) {
	var out int
	if err := v.decode(name, &out); err != nil {
		return 0, err
	}
	return out, nil
}

// Bool returns the named option as a Go bool.
func (v Values) Bool(name string) (bool, error) {
	var out bool
	if err := v.decode(name, &out); err != nil {
		return false, err
	}
	return out, nil
}

// StringList returns the named option as a slice of strings. A missing
// option yields an empty slice rather than an error, because list options
// are accumulative and usually optional.
func (v Values) StringList(name string) ([]string, error) {
	val, ok := v[name]
	if !ok || val.IsNull() {
		return nil, nil
	}
	var out []string
	if err := gocty.FromCtyValue(val, &out); err != nil {
		return nil, fmt.Errorf("option '%s': %w", name, err)
	}
	return out, nil
}

func (v Values) decode(name string, target any) error {
	val, ok := v[name]
	if !ok || val.IsNull() {
		return fmt.Errorf("option '%s' is not set", name)
	}
	if err := gocty.FromCtyValue(val, target); err != nil {
		return fmt.Errorf("option '%s': %w", name, err)
	}
	return nil
}
