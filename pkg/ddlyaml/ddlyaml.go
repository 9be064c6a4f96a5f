// Package ddlyaml loads the static library tables of the compiler: types,
// default field types, type aliases, compound templates and library source,
// all kept in YAML next to the code and embedded into the binary.
package ddlyaml

import (
	"embed"
	"fmt"
	"path"
	"slices"
	"strings"

	"dhlx/pkg/ddl"
	"dhlx/pkg/ddl/scan"

	"gopkg.in/yaml.v3"
)

//go:embed tables/*.yml
var tables embed.FS

// TypeDef is one registered type.
type TypeDef struct {
	Name   string
	Mode   string
	Native string
}

// Default maps Field, inside objects of type Context, to Type. An empty
// Context is a global default.
type Default struct {
	Context string
	Field   string
	Type    string
}

// Compound is the template source run into every new object of Type.
type Compound struct {
	Type   string
	Source string
	Line   int
}

// Table is the Go-level representation of one library table.
type Table struct {
	Library   string
	Requires  []string
	Namespace string
	Types     []TypeDef
	Redirects [][2]string
	Defaults  []Default
	Compounds []Compound
	// Source is DHLX text interpreted after everything else is registered.
	Source     string
	SourceLine int
}

// ---- Internal YAML parsing structs ----------------------------------------
//
// Mappings are kept as yaml.Node so that registration follows document
// order; type handles are small integers handed out in that order.

type yamlTable struct {
	Library   string    `yaml:"library"`
	Requires  []string  `yaml:"requires,omitempty"`
	Namespace string    `yaml:"namespace,omitempty"`
	Types     yaml.Node `yaml:"types,omitempty"`
	Redirects yaml.Node `yaml:"redirects,omitempty"`
	Defaults  yaml.Node `yaml:"defaults,omitempty"`
	Compounds yaml.Node `yaml:"compounds,omitempty"`
	Source    yaml.Node `yaml:"source,omitempty"`
}

// Parse parses one table document.
func Parse(in []byte) (Table, error) {
	var docNode yaml.Node
	if err := yaml.Unmarshal(in, &docNode); err != nil {
		return Table{}, err
	}
	if len(docNode.Content) == 0 {
		return Table{}, fmt.Errorf("phase=parse path=<doc>: empty YAML")
	}
	root := docNode.Content[0]
	if root.Kind != yaml.MappingNode {
		return Table{}, fmt.Errorf("phase=parse path=<doc>: expected a mapping, got YAML kind %d", root.Kind)
	}
	var yt yamlTable
	if err := root.Decode(&yt); err != nil {
		return Table{}, err
	}
	return convertTable(yt)
}

func convertTable(yt yamlTable) (Table, error) {
	if yt.Library == "" {
		return Table{}, fmt.Errorf("phase=parse path=library: missing library name")
	}
	t := Table{Library: yt.Library, Requires: yt.Requires, Namespace: yt.Namespace}
	var err error
	if t.Types, err = convertTypes(&yt.Types); err != nil {
		return Table{}, fmt.Errorf("phase=parse path=types: %w", err)
	}
	if t.Redirects, err = convertRedirects(&yt.Redirects); err != nil {
		return Table{}, fmt.Errorf("phase=parse path=redirects: %w", err)
	}
	if t.Defaults, err = convertDefaults(&yt.Defaults); err != nil {
		return Table{}, fmt.Errorf("phase=parse path=defaults: %w", err)
	}
	if t.Compounds, err = convertCompounds(&yt.Compounds); err != nil {
		return Table{}, fmt.Errorf("phase=parse path=compounds: %w", err)
	}
	if yt.Source.Kind != 0 {
		if yt.Source.Kind != yaml.ScalarNode {
			return Table{}, fmt.Errorf("phase=parse path=source: expected a block of text")
		}
		t.Source, t.SourceLine = yt.Source.Value, yt.Source.Line+1
	}
	return t, nil
}

// pairs returns the key/value node pairs of a mapping in document order.
// An absent key (Kind 0) yields nothing.
func pairs(node *yaml.Node) ([][2]*yaml.Node, error) {
	if node.Kind == 0 {
		return nil, nil
	}
	if node.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("expected mapping, got YAML kind %d", node.Kind)
	}
	if len(node.Content)%2 != 0 {
		return nil, fmt.Errorf("malformed YAML mapping: odd number of content nodes")
	}
	out := make([][2]*yaml.Node, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		out = append(out, [2]*yaml.Node{node.Content[i], node.Content[i+1]})
	}
	return out, nil
}

// convertTypes accepts both "name: mode" and "name: {mode: m, native: k}",
// plus the shorthand "name: native" for value types.
func convertTypes(node *yaml.Node) ([]TypeDef, error) {
	ps, err := pairs(node)
	if err != nil {
		return nil, err
	}
	out := make([]TypeDef, 0, len(ps))
	for _, p := range ps {
		td := TypeDef{Name: p[0].Value}
		switch p[1].Kind {
		case yaml.ScalarNode:
			if _, err := ddl.ParseMode(p[1].Value); err == nil {
				td.Mode = p[1].Value
			} else {
				td.Mode, td.Native = "value", p[1].Value
			}
		case yaml.MappingNode:
			var raw struct {
				Mode   string `yaml:"mode"`
				Native string `yaml:"native"`
			}
			if err := p[1].Decode(&raw); err != nil {
				return nil, fmt.Errorf("%s: %w", td.Name, err)
			}
			td.Mode, td.Native = raw.Mode, raw.Native
		default:
			return nil, fmt.Errorf("%s: expected scalar or mapping, got YAML kind %d", td.Name, p[1].Kind)
		}
		if td.Mode == "" {
			return nil, fmt.Errorf("%s: missing mode", td.Name)
		}
		out = append(out, td)
	}
	return out, nil
}

func convertRedirects(node *yaml.Node) ([][2]string, error) {
	ps, err := pairs(node)
	if err != nil {
		return nil, err
	}
	out := make([][2]string, 0, len(ps))
	for _, p := range ps {
		if p[1].Kind != yaml.ScalarNode || p[1].Value == "" {
			return nil, fmt.Errorf("%s: redirect target must be a type name", p[0].Value)
		}
		out = append(out, [2]string{p[0].Value, p[1].Value})
	}
	return out, nil
}

// convertDefaults reads "context: {field: type, ...}"; the context
// "global" holds the global defaults.
func convertDefaults(node *yaml.Node) ([]Default, error) {
	ps, err := pairs(node)
	if err != nil {
		return nil, err
	}
	var out []Default
	for _, p := range ps {
		ctx := p[0].Value
		if ctx == ddl.NameGlobal {
			ctx = ""
		}
		fields, err := pairs(p[1])
		if err != nil {
			return nil, fmt.Errorf("%s: %w", p[0].Value, err)
		}
		for _, f := range fields {
			if f[1].Kind != yaml.ScalarNode {
				return nil, fmt.Errorf("%s.%s: default type must be a type name", p[0].Value, f[0].Value)
			}
			for _, name := range strings.Split(f[0].Value, ",") {
				out = append(out, Default{Context: ctx, Field: strings.TrimSpace(name), Type: f[1].Value})
			}
		}
	}
	return out, nil
}

func convertCompounds(node *yaml.Node) ([]Compound, error) {
	ps, err := pairs(node)
	if err != nil {
		return nil, err
	}
	out := make([]Compound, 0, len(ps))
	for _, p := range ps {
		if p[1].Kind != yaml.ScalarNode {
			return nil, fmt.Errorf("%s: template must be a block of text", p[0].Value)
		}
		out = append(out, Compound{Type: p[0].Value, Source: p[1].Value, Line: p[1].Line + 1})
	}
	return out, nil
}

// ---- Embedded libraries ----------------------------------------------------

// Libraries lists the embedded library names.
func Libraries() []string {
	entries, err := tables.ReadDir("tables")
	if err != nil {
		return nil
	}
	var out []string
	for _, e := range entries {
		out = append(out, strings.TrimSuffix(e.Name(), ".yml"))
	}
	slices.Sort(out)
	return out
}

// Library parses the embedded table called name.
func Library(name string) (Table, error) {
	in, err := tables.ReadFile(path.Join("tables", name+".yml"))
	if err != nil {
		return Table{}, fmt.Errorf("phase=load path=%s: unknown library", name)
	}
	t, err := Parse(in)
	if err != nil {
		return Table{}, fmt.Errorf("library %s: %w", name, err)
	}
	return t, nil
}

// Resolve returns the tables for names plus everything they require,
// required libraries first, each library once.
func Resolve(names ...string) ([]Table, error) {
	var out []Table
	seen := make(map[string]bool)
	var visit func(name string, chain []string) error
	visit = func(name string, chain []string) error {
		if slices.Contains(chain, name) {
			return fmt.Errorf("phase=load path=%s: require cycle %s", name, strings.Join(append(chain, name), " -> "))
		}
		if seen[name] {
			return nil
		}
		t, err := Library(name)
		if err != nil {
			return err
		}
		for _, r := range t.Requires {
			if err := visit(r, append(chain, name)); err != nil {
				return err
			}
		}
		seen[name] = true
		out = append(out, t)
		return nil
	}
	for _, name := range names {
		if err := visit(name, nil); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// ---- Apply -----------------------------------------------------------------

// Apply registers a table with ip: types, aliases, defaults and compound
// templates, then interprets the table's source.
func Apply(ip *ddl.Interp, t Table) error {
	file := t.Library + ".yml"
	for _, td := range t.Types {
		if err := ip.DefineType(td.Name, td.Mode, td.Native); err != nil {
			return fmt.Errorf("phase=apply path=%s/types.%s: %w", t.Library, td.Name, err)
		}
	}
	for _, r := range t.Redirects {
		ip.Types.AddRedirect(r[0], r[1])
	}
	for _, d := range t.Defaults {
		if err := ip.DefineDefault(d.Field, d.Context, d.Type); err != nil {
			return fmt.Errorf("phase=apply path=%s/defaults.%s.%s: %w", t.Library, d.Context, d.Field, err)
		}
	}
	for _, c := range t.Compounds {
		typ, err := ip.Types.Lookup(c.Type)
		if err != nil {
			return fmt.Errorf("phase=apply path=%s/compounds.%s: %w", t.Library, c.Type, err)
		}
		ip.AddCompound(typ, ddl.Template{
			Block:  scan.Block{File: file, Line: c.Line, Text: c.Source},
			Syntax: scan.DHLX,
		})
	}
	if strings.TrimSpace(t.Source) != "" {
		before := ip.Errors()
		if err := ip.RunSource(file, t.Source, scan.DHLX); err != nil {
			return fmt.Errorf("phase=apply path=%s/source: %w", t.Library, err)
		}
		if n := ip.Errors() - before; n > 0 {
			return fmt.Errorf("phase=apply path=%s/source: %d errors", t.Library, n)
		}
	}
	return nil
}

// Load resolves the named libraries and applies them in order. It returns
// the namespace declared by the last table that has one.
func Load(ip *ddl.Interp, names ...string) (namespace string, err error) {
	ts, err := Resolve(names...)
	if err != nil {
		return "", err
	}
	for _, t := range ts {
		if err := Apply(ip, t); err != nil {
			return "", err
		}
		if t.Namespace != "" {
			namespace = t.Namespace
		}
	}
	return namespace, nil
}
