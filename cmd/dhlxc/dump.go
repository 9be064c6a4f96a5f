package main

import (
	"fmt"
	"io"
	"strings"

	"dhlx/pkg/ddl"
)

// dumpObject writes o and its fields as an indented tree. Fields that
// point at objects owned elsewhere are printed as references so shared
// objects appear once.
func dumpObject(w io.Writer, ip *ddl.Interp, key string, o *ddl.Object, depth int) {
	pad := strings.Repeat("    ", depth)
	label := key
	if label == "" {
		label = "(anonymous)"
	}
	typ := ip.TypeName(o.Type())
	if !o.IsMap() {
		fmt.Fprintf(w, "%s%s : %s = %s\n", pad, label, typ, describeValue(o.Value()))
		return
	}
	if idx := o.Index(); idx >= 0 {
		typ = fmt.Sprintf("%s #%d", typ, idx)
	}
	fmt.Fprintf(w, "%s%s : %s {\n", pad, label, typ)
	for k, child := range o.Map().All() {
		if child.IsMap() && child.Parent() != o {
			fmt.Fprintf(w, "%s    %s -> %s\n", pad, k, reference(ip, child))
			continue
		}
		dumpObject(w, ip, k, child, depth+1)
	}
	fmt.Fprintf(w, "%s}\n", pad)
}

func reference(ip *ddl.Interp, o *ddl.Object) string {
	s := ip.TypeName(o.Type())
	if o.Name() != "" {
		s += " " + o.Name()
	}
	if idx := o.Index(); idx >= 0 {
		s += fmt.Sprintf(" #%d", idx)
	}
	return s
}

func describeValue(v ddl.Value) string {
	if v.Family() == ddl.FamilyString {
		if s, err := v.ToString(); err == nil {
			return fmt.Sprintf("%q", s)
		}
	}
	if v.IsNull() {
		return "null"
	}
	return v.String()
}

// summary is a one-line description of an object's fields.
func summary(o *ddl.Object, width int) string {
	m := o.Map()
	if m == nil {
		return describeValue(o.Value())
	}
	var parts []string
	for k, child := range m.All() {
		if k == "" || child.IsMap() {
			continue
		}
		parts = append(parts, k+"="+describeValue(child.Value()))
	}
	s := strings.Join(parts, " ")
	if width > 3 && len(s) > width {
		s = s[:width-3] + "..."
	}
	return s
}
