package ddl

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"dhlx/pkg/ddl/scan"
)

// ScriptKind tells which #script command filled a script buffer.
type ScriptKind uint8

const (
	ScriptGeneric ScriptKind = iota
	ScriptACS
	ScriptExtraData
	ScriptFraggle
)

func (k ScriptKind) String() string {
	switch k {
	case ScriptACS:
		return "acs"
	case ScriptExtraData:
		return "extradata"
	case ScriptFraggle:
		return "fraggle"
	}
	return "generic"
}

// Script is the text accumulated for one output file by the #script
// commands. It is not part of the object graph.
type Script struct {
	Name string
	Kind ScriptKind
	buf  strings.Builder
}

// Text returns everything appended so far.
func (s *Script) Text() string { return s.buf.String() }

func (s *Script) append(text string) {
	s.buf.WriteString(text)
	if text != "" && !strings.HasSuffix(text, "\n") {
		s.buf.WriteByte('\n')
	}
}

// Scripts returns the script buffers in the order they were first written.
func (ip *Interp) Scripts() []*Script {
	out := make([]*Script, 0, len(ip.scriptSeq))
	for _, name := range ip.scriptSeq {
		out = append(out, ip.scripts[name])
	}
	return out
}

// script returns the buffer for file name, creating it on first use. The
// kind of the first writer sticks.
func (ip *Interp) script(name string, kind ScriptKind) *Script {
	key := strings.ToUpper(name)
	s, ok := ip.scripts[key]
	if !ok {
		s = &Script{Name: name, Kind: kind}
		ip.scripts[key] = s
		ip.scriptSeq = append(ip.scriptSeq, key)
	}
	return s
}

// renderScript expands the text of a #script block as a Go template. The
// data is the target's scalar fields by name; value looks up any name in
// scope and eval evaluates an expression. Text without "{{" is copied
// as is.
func (ip *Interp) renderScript(target *Object, b scan.Block) (string, error) {
	text := strings.Trim(b.Text, "\r\n")
	if !strings.Contains(text, "{{") {
		return text, nil
	}
	funcs := template.FuncMap{
		"value": func(name string) (string, error) {
			n, err := ip.resolveName(name)
			if err != nil {
				return "", err
			}
			o, err := ip.Get(n)
			if err != nil {
				return "", err
			}
			return ip.valueOf(o).deref().Format(ip.Opts.Precision), nil
		},
		"eval": func(expr string) (string, error) {
			_, v, err := ip.infer(expr)
			if err != nil {
				return "", err
			}
			return v.deref().Format(ip.Opts.Precision), nil
		},
	}
	tpl, err := template.New(b.File).Funcs(funcs).Option("missingkey=error").Parse(text)
	if err != nil {
		return "", fmt.Errorf("%w: script template: %v", ErrSyntax, err)
	}
	data := make(map[string]string)
	if m := target.Map(); m != nil {
		for key, o := range m.All() {
			if v := o.val; !v.IsMap() && !v.IsObjectRef() {
				data[key] = v.Format(ip.Opts.Precision)
			}
		}
	}
	var buf bytes.Buffer
	err = ip.withScope(target, func() error { return tpl.Execute(&buf, data) })
	if err != nil {
		return "", fmt.Errorf("%w: script template: %v", ErrInvalidValue, err)
	}
	return buf.String(), nil
}
