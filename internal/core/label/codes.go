// Package label holds the classification code table and the deterministic
// rules that turn an input sidecar record into a relabeled output record.
package label

import (
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strings"
)

// Code is one entry of the fixed classification enumeration.
type Code struct {
	// Token is the short code embedded in filenames, e.g. "A2".
	Token string
	// DirName is the human-readable folder form, e.g. "A2_dandruff_scaling".
	DirName string
	// Presence is the symptom-presence value written for this code.
	Presence string
	// Label is written on synthesized shapes. Defaults to DirName.
	Label string
	// Color is written on synthesized shapes.
	Color string
	// Normal marks the terminal "no finding" code.
	Normal bool
}

// ShapeLabel returns the label written on synthesized annotations.
func (c Code) ShapeLabel() string {
	if c.Label != "" {
		return c.Label
	}
	return c.DirName
}

// ErrUnknownCode is returned when a token is not part of the table.
var ErrUnknownCode = errors.New("unknown code")

// Table is an immutable, ordered code enumeration.
type Table struct {
	codes   []Code
	byToken map[string]int
	tokenRe *regexp.Regexp
}

// NewTable validates codes and builds the token matcher.
func NewTable(codes []Code) (*Table, error) {
	if len(codes) == 0 {
		return nil, errors.New("code table is empty")
	}

	t := &Table{
		codes:   slices.Clone(codes),
		byToken: make(map[string]int, len(codes)),
	}

	normals := 0
	tokens := make([]string, 0, len(codes))
	for i, c := range codes {
		if c.Token == "" {
			return nil, fmt.Errorf("code %d: token is required", i)
		}
		if strings.ContainsAny(c.Token, `/\`) {
			return nil, fmt.Errorf("code %q: token cannot contain path separators", c.Token)
		}
		if _, dup := t.byToken[c.Token]; dup {
			return nil, fmt.Errorf("code %q: duplicate token", c.Token)
		}
		if c.DirName == "" {
			return nil, fmt.Errorf("code %q: dir_name is required", c.Token)
		}
		if c.Normal {
			normals++
		}
		t.byToken[c.Token] = i
		tokens = append(tokens, regexp.QuoteMeta(c.Token))
	}

	if normals > 1 {
		return nil, fmt.Errorf("code table has %d normal codes, at most one allowed", normals)
	}

	// Longest first so that e.g. "A10" wins over "A1".
	slices.SortStableFunc(tokens, func(a, b string) int { return len(b) - len(a) })
	t.tokenRe = regexp.MustCompile(strings.Join(tokens, "|"))

	return t, nil
}

// Codes returns the codes in table order.
func (t *Table) Codes() []Code {
	return slices.Clone(t.codes)
}

// Lookup finds a code by token.
func (t *Table) Lookup(token string) (Code, error) {
	i, ok := t.byToken[token]
	if !ok {
		return Code{}, fmt.Errorf("%w: %q", ErrUnknownCode, token)
	}
	return t.codes[i], nil
}

// Normal returns the terminal "normal" code, if the table has one.
func (t *Table) Normal() (Code, bool) {
	for _, c := range t.codes {
		if c.Normal {
			return c, true
		}
	}
	return Code{}, false
}

// Find returns the first code whose token occurs in s.
func (t *Table) Find(s string) (Code, bool) {
	m := t.tokenRe.FindString(s)
	if m == "" {
		return Code{}, false
	}
	return t.codes[t.byToken[m]], true
}

// Substitute replaces every code token in s with token. ok is false when s
// contains no token.
func (t *Table) Substitute(s, token string) (out string, ok bool) {
	if !t.tokenRe.MatchString(s) {
		return s, false
	}
	return t.tokenRe.ReplaceAllLiteralString(s, token), true
}

// Filter is a predicate over the code enumeration.
type Filter struct {
	table  *Table
	tokens map[string]bool
}

// NewFilter accepts the listed tokens. An empty list accepts every code.
func NewFilter(t *Table, tokens []string) (Filter, error) {
	f := Filter{table: t, tokens: make(map[string]bool, len(tokens))}
	for _, tok := range tokens {
		if _, err := t.Lookup(tok); err != nil {
			return Filter{}, err
		}
		f.tokens[tok] = true
	}
	return f, nil
}

// Match reports the first accepted code token found in name.
func (f Filter) Match(name string) (Code, bool) {
	for _, loc := range f.table.tokenRe.FindAllStringIndex(name, -1) {
		c := f.table.codes[f.table.byToken[name[loc[0]:loc[1]]]]
		if len(f.tokens) == 0 || f.tokens[c.Token] {
			return c, true
		}
	}
	return Code{}, false
}
