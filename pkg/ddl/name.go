package ddl

import (
	"strings"
)

// Pseudo-names recognised while resolving a multi-part name.
const (
	NameGlobal = "global"
	NameThis   = "this"
)

// Name is a dotted path such as a.b[3]. Bracket and <...> groups belong to
// the part they follow and are never split.
//
// Equal and Compare look at the first part only. Map keys are always
// single-part strings, so the looseness never merges two distinct keys.
type Name struct {
	parts []string
}

// ParseName splits s on '.' outside of [...], <...> and (...) groups. Empty
// parts are dropped.
func ParseName(s string) Name {
	var parts []string
	depth := 0
	start := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '[', '<', '(':
			depth++
		case ']', '>', ')':
			if depth > 0 {
				depth--
			}
		case '.':
			if depth == 0 {
				if p := strings.TrimSpace(s[start:i]); p != "" {
					parts = append(parts, p)
				}
				start = i + 1
			}
		}
	}
	if p := strings.TrimSpace(s[start:]); p != "" {
		parts = append(parts, p)
	}
	return Name{parts: parts}
}

// NewName builds a name from already split parts.
func NewName(parts ...string) Name {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return Name{parts: out}
}

func (n Name) Len() int       { return len(n.parts) }
func (n Name) IsEmpty() bool  { return len(n.parts) == 0 }
func (n Name) IsSingle() bool { return len(n.parts) == 1 }
func (n Name) String() string { return strings.Join(n.parts, ".") }

func (n Name) Parts() []string {
	return append([]string(nil), n.parts...)
}

// First is the head part, or "" for an empty name.
func (n Name) First() string {
	if len(n.parts) == 0 {
		return ""
	}
	return n.parts[0]
}

// Rest is everything after the head part.
func (n Name) Rest() Name {
	if len(n.parts) <= 1 {
		return Name{}
	}
	return Name{parts: n.parts[1:]}
}

// Last is the final part, the key a name is stored under in its owner.
func (n Name) Last() string {
	if len(n.parts) == 0 {
		return ""
	}
	return n.parts[len(n.parts)-1]
}

// Parent is the name without its last part.
func (n Name) Parent() Name {
	if len(n.parts) <= 1 {
		return Name{}
	}
	return Name{parts: n.parts[:len(n.parts)-1]}
}

// IsVolatile reports a single-part name with exactly one leading underscore.
func (n Name) IsVolatile() bool {
	return len(n.parts) == 1 && IsVolatileKey(n.parts[0])
}

// IsPrivate reports a single-part name with two leading underscores.
func (n Name) IsPrivate() bool {
	return len(n.parts) == 1 && IsPrivateKey(n.parts[0])
}

func IsVolatileKey(s string) bool {
	return strings.HasPrefix(s, "_") && !strings.HasPrefix(s, "__")
}

func IsPrivateKey(s string) bool {
	return strings.HasPrefix(s, "__")
}

func (n Name) Equal(o Name) bool { return n.First() == o.First() }

func (n Name) Compare(o Name) int { return strings.Compare(n.First(), o.First()) }
