package label

import (
	"path/filepath"
	"strings"

	"github.com/colonyops/relabel/internal/core/geometry"
	"github.com/colonyops/relabel/internal/core/sidecar"
)

// Schema names the record fields the transformer reads and writes.
type Schema struct {
	MetadataKey     string
	AnnotationsKey  string
	IdentifierField string
	ClassField      string
	PresenceField   string
	DiagnosisField  string
	PathFields      []string
	// RejectFlagField is a top-level field reset to NotRejected on every
	// transform. Empty disables the rule.
	RejectFlagField string
	NotRejected     string
	// NormalDiagnosis is forced into DiagnosisField for the normal code.
	NormalDiagnosis string
	// SymptomMarker is replaced by NoSymptomMarker in path fields when the
	// target is the normal code.
	SymptomMarker   string
	NoSymptomMarker string
}

// Result is the output of a transform.
type Result struct {
	Record sidecar.Record
	// Filename is the rewritten image filename, extension preserved.
	Filename string
}

// Stem returns Filename without its extension.
func (r Result) Stem() string {
	return strings.TrimSuffix(r.Filename, filepath.Ext(r.Filename))
}

// Transformer applies the relabel rules. It is safe for concurrent use.
type Transformer struct {
	table  *Table
	schema Schema
}

// NewTransformer creates a Transformer.
func NewTransformer(table *Table, schema Schema) *Transformer {
	return &Transformer{table: table, schema: schema}
}

// Table returns the code table the transformer uses.
func (t *Transformer) Table() *Table { return t.table }

// Schema returns the field schema.
func (t *Transformer) Schema() Schema { return t.schema }

// RewriteFilename substitutes every code token in the stem of name with the
// target token. A stem without any token gets "_<target>" appended so that
// the output name never collides with the input name.
func (t *Transformer) RewriteFilename(name string, target Code) string {
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)

	out, ok := t.table.Substitute(stem, target.Token)
	if !ok {
		return stem + "_" + target.Token + ext
	}
	return out + ext
}

// Transform derives the output record for target and region. in is never
// modified; a nil record is treated as empty.
func (t *Transformer) Transform(in sidecar.Record, target Code, region geometry.Region, sourceFilename string) Result {
	out := in.Clone()
	s := t.schema
	filename := t.RewriteFilename(sourceFilename, target)

	meta := out.Map(s.MetadataKey)
	if meta == nil {
		meta = map[string]any{}
		out[s.MetadataKey] = meta
	}

	if s.IdentifierField != "" {
		if id, ok := meta[s.IdentifierField].(string); ok {
			meta[s.IdentifierField] = t.rewriteIdentifier(id, sourceFilename, filename, target)
		}
	}

	if s.ClassField != "" {
		meta[s.ClassField] = target.Token
	}
	if s.PresenceField != "" {
		meta[s.PresenceField] = target.Presence
	}
	if s.DiagnosisField != "" {
		if target.Normal {
			meta[s.DiagnosisField] = s.NormalDiagnosis
		} else {
			meta[s.DiagnosisField] = ""
		}
	}

	for _, field := range s.PathFields {
		if p, ok := meta[field].(string); ok {
			meta[field] = t.RewritePath(p, target)
		}
	}

	out[s.AnnotationsKey] = Annotations(region, target)

	if s.RejectFlagField != "" {
		out[s.RejectFlagField] = s.NotRejected
	}

	return Result{Record: out, Filename: filename}
}

// rewriteIdentifier keeps an identifier that mirrors the source filename in
// lockstep with the output filename; anything else only gets token
// substitution.
func (t *Transformer) rewriteIdentifier(id, source, output string, target Code) string {
	sourceStem := strings.TrimSuffix(source, filepath.Ext(source))
	switch id {
	case source:
		return output
	case sourceStem:
		return strings.TrimSuffix(output, filepath.Ext(output))
	}
	out, _ := t.table.Substitute(id, target.Token)
	return out
}

// RewritePath rewrites a path-like field one segment at a time. A segment
// that starts with "<token>_" is a class folder and becomes target.DirName.
// For the normal target the symptom marker is also swapped.
func (t *Transformer) RewritePath(p string, target Code) string {
	segs, seps := splitPath(p)

	for i, seg := range segs {
		if t.isClassFolder(seg) {
			segs[i] = target.DirName
			continue
		}
		if target.Normal {
			segs[i] = swapMarker(seg, t.schema.SymptomMarker, t.schema.NoSymptomMarker)
		}
	}

	var b strings.Builder
	for i, seg := range segs {
		b.WriteString(seg)
		if i < len(seps) {
			b.WriteByte(seps[i])
		}
	}
	return b.String()
}

func (t *Transformer) isClassFolder(seg string) bool {
	loc := t.table.tokenRe.FindStringIndex(seg)
	if loc == nil || loc[0] != 0 {
		return false
	}
	return len(seg) > loc[1] && seg[loc[1]] == '_'
}

// swapMarker replaces marker with counterpart unless the segment already
// carries the counterpart (which may itself contain the marker).
func swapMarker(seg, marker, counterpart string) string {
	if marker == "" || counterpart == "" || strings.Contains(seg, counterpart) {
		return seg
	}
	return strings.ReplaceAll(seg, marker, counterpart)
}

// splitPath splits on both slash kinds, remembering which separator was used.
func splitPath(p string) ([]string, []byte) {
	var (
		segs  []string
		seps  []byte
		start int
	)
	for i := 0; i < len(p); i++ {
		if p[i] == '/' || p[i] == '\\' {
			segs = append(segs, p[start:i])
			seps = append(seps, p[i])
			start = i + 1
		}
	}
	segs = append(segs, p[start:])
	return segs, seps
}

// Annotations synthesizes the closed polygon and the box for region.
func Annotations(region geometry.Region, target Code) []any {
	corners := region.Corners()
	loc := map[string]any{}
	for i, c := range append(corners[:], corners[0]) {
		n := string(rune('1' + i))
		loc["x"+n] = c.X
		loc["y"+n] = c.Y
	}

	polygon := map[string]any{
		"polygon": map[string]any{
			"color":    target.Color,
			"location": []any{loc},
			"label":    target.ShapeLabel(),
			"type":     "polygon",
		},
	}

	box := map[string]any{
		"box": map[string]any{
			"color": target.Color,
			"location": []any{map[string]any{
				"x":      region.X,
				"y":      region.Y,
				"width":  region.W,
				"height": region.H,
			}},
			"label": target.ShapeLabel(),
			"type":  "box",
		},
	}

	return []any{polygon, box}
}
