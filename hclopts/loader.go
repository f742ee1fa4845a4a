// Package hclopts resolves plugin option schemas from HCL configuration
// files and command-line overrides. It is the concrete options.Loader used
// by the stackd daemon; the composition core only sees the interface.
package hclopts

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/vk/plugstack/ctxlog"
	"github.com/vk/plugstack/internal/fsutil"
	"github.com/vk/plugstack/options"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
)

// Loader reads options from an HCL file (or directory of .hcl files) in
// simple `name = value` attribute form, then applies command-line overrides
// on top. Resolution order: config file, then overrides, then declared
// defaults for anything still unset.
type Loader struct {
	// Path is a config file or a directory searched for .hcl files. Empty
	// means no config file.
	Path string
	// Overrides holds raw command-line values per option name. Multiple
	// values for the same name form a list for list-typed options.
	Overrides map[string][]string
}

// NewLoader creates a loader for the given config path and CLI overrides.
func NewLoader(path string, overrides map[string][]string) *Loader {
	return &Loader{Path: path, Overrides: overrides}
}

// Load implements options.Loader.
func (l *Loader) Load(ctx context.Context, cli, cfg *options.Schema) (options.Values, error) {
	logger := ctxlog.FromContext(ctx)
	vals := options.Values{}

	if l.Path != "" {
		if err := l.loadFiles(ctx, cfg, vals); err != nil {
			return nil, err
		}
	}

	for name, raw := range l.Overrides {
		def, ok := cli.Lookup(name)
		if !ok {
			if def, ok = cfg.Lookup(name); !ok {
				return nil, fmt.Errorf("unknown option '%s'", name)
			}
		}
		val, err := parseRaw(def, raw)
		if err != nil {
			return nil, err
		}
		vals[name] = val
	}

	for _, schema := range []*options.Schema{cli, cfg} {
		for _, def := range schema.Defs() {
			if _, set := vals[def.Name]; set {
				continue
			}
			if def.Required() {
				return nil, fmt.Errorf("required option '%s' was not provided", def.Name)
			}
			vals[def.Name] = def.Default
		}
	}

	logger.Debug("Options resolved.", "count", len(vals), "config_path", l.Path)
	return vals, nil
}

// loadFiles parses every config file and merges its attributes into vals.
// Config files may only set options from the cfg schema, mirroring the
// cli/config split in the declared schemas.
func (l *Loader) loadFiles(ctx context.Context, cfg *options.Schema, vals options.Values) error {
	logger := ctxlog.FromContext(ctx)

	filePaths, err := fsutil.FindFilesByExtension(l.Path, ".hcl")
	if err != nil {
		return fmt.Errorf("locate config files in '%s': %w", l.Path, err)
	}
	if len(filePaths) == 0 {
		logger.Warn("No .hcl config files found in path.", "path", l.Path)
		return nil
	}

	parser := hclparse.NewParser()
	for _, filePath := range filePaths {
		hclFile, diags := parser.ParseHCLFile(filePath)
		if diags.HasErrors() {
			return fmt.Errorf("parse config file %s: %w", filePath, diags)
		}

		attrs, diags := hclFile.Body.JustAttributes()
		if diags.HasErrors() {
			return fmt.Errorf("read config file %s: %w", filePath, diags)
		}

		for name, attr := range attrs {
			def, ok := cfg.Lookup(name)
			if !ok {
				return fmt.Errorf("%s: unknown option '%s'", filePath, name)
			}
			raw, diags := attr.Expr.Value(nil)
			if diags.HasErrors() {
				return fmt.Errorf("%s: evaluate option '%s': %w", filePath, name, diags)
			}
			val, err := convert.Convert(raw, def.Type)
			if err != nil {
				return fmt.Errorf("%s: option '%s': %w", filePath, name, err)
			}
			vals[name] = val
		}
		logger.Debug("Loaded config file.", "file", filePath)
	}
	return nil
}

// parseRaw converts raw command-line strings to the option's declared type.
// List-typed options accumulate one element per occurrence; scalar options
// take the last occurrence, matching common flag semantics.
func parseRaw(def options.Def, raw []string) (cty.Value, error) {
	if len(raw) == 0 {
		return cty.NilVal, fmt.Errorf("option '%s' was given no value", def.Name)
	}

	if def.Type.IsListType() {
		elems := make([]cty.Value, 0, len(raw))
		for _, r := range raw {
			v, err := convert.Convert(cty.StringVal(r), def.Type.ElementType())
			if err != nil {
				return cty.NilVal, fmt.Errorf("option '%s': %w", def.Name, err)
			}
			elems = append(elems, v)
		}
		return cty.ListVal(elems), nil
	}

	v, err := convert.Convert(cty.StringVal(raw[len(raw)-1]), def.Type)
	if err != nil {
		return cty.NilVal, fmt.Errorf("option '%s': %w", def.Name, err)
	}
	return v, nil
}
