package il

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// SymbolsFormat identifies the debug-symbol sidecar format.
const SymbolsFormat = "ntsym/1"

// ErrUnsupportedSymbols is returned for sidecars of an unknown format.
var ErrUnsupportedSymbols = errors.New("unsupported symbol format")

// SymbolTable maps method keys to sequence points by instruction offset.
type SymbolTable struct {
	Methods map[string]map[int]SequencePoint
}

// NewSymbolTable returns an empty table.
func NewSymbolTable() *SymbolTable {
	return &SymbolTable{Methods: make(map[string]map[int]SequencePoint)}
}

// Len counts the sequence points in the table.
func (t *SymbolTable) Len() int {
	n := 0
	for _, points := range t.Methods {
		n += len(points)
	}

	return n
}

// MethodKey identifies a method in a symbol table: `Type::Name(p1,p2)`.
func MethodKey(m *Method) string {
	return m.FullName() + "(" + strings.Join(m.ParamTypes(), ",") + ")"
}

type symbolsDoc struct {
	Format   string      `yaml:"format"`
	Assembly string      `yaml:"assembly,omitempty"`
	Methods  []symMethod `yaml:"methods"`
}

type symMethod struct {
	Method string     `yaml:"method"`
	Points []symPoint `yaml:"points"`
}

type symPoint struct {
	Offset      int    `yaml:"offset"`
	Document    string `yaml:"document,omitempty"`
	StartLine   int    `yaml:"start_line,omitempty"`
	StartColumn int    `yaml:"start_column,omitempty"`
	EndLine     int    `yaml:"end_line,omitempty"`
	EndColumn   int    `yaml:"end_column,omitempty"`
	Hidden      bool   `yaml:"hidden,omitempty"`
}

// DecodeSymbols parses a symbol sidecar.
func DecodeSymbols(data []byte) (*SymbolTable, error) {
	var doc symbolsDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse symbols: %w", err)
	}

	if doc.Format != SymbolsFormat {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedSymbols, doc.Format)
	}

	table := NewSymbolTable()

	for _, m := range doc.Methods {
		points := table.Methods[m.Method]
		if points == nil {
			points = make(map[int]SequencePoint, len(m.Points))
			table.Methods[m.Method] = points
		}

		for _, p := range m.Points {
			points[p.Offset] = SequencePoint{
				Document:    p.Document,
				StartLine:   p.StartLine,
				StartColumn: p.StartColumn,
				EndLine:     p.EndLine,
				EndColumn:   p.EndColumn,
				Hidden:      p.Hidden,
			}
		}
	}

	return table, nil
}

// AttachSymbols sets the sequence points of freshly loaded methods by matching
// instruction original offsets. It must run before the assembly is shared.
func AttachSymbols(asm *Assembly, table *SymbolTable) int {
	if table == nil {
		return 0
	}

	attached := 0

	for _, m := range asm.Methods() {
		if m.Body == nil {
			continue
		}

		points, ok := table.Methods[MethodKey(m)]
		if !ok {
			continue
		}

		for i := range m.Body.Instructions {
			in := &m.Body.Instructions[i]

			sp, ok := points[in.OriginalOffset]
			if !ok {
				continue
			}

			in.SequencePoint = &sp
			attached++
		}
	}

	return attached
}

// EncodeSymbols emits the sequence points carried by the assembly's
// instructions, keyed by their current offsets.
func EncodeSymbols(asm *Assembly) ([]byte, error) {
	doc := symbolsDoc{Format: SymbolsFormat, Assembly: asm.Name}

	for _, m := range asm.Methods() {
		if m.Body == nil {
			continue
		}

		body := m.Body.Materialized()
		entry := symMethod{Method: MethodKey(m)}

		for _, in := range body.Instructions {
			if in.SequencePoint == nil {
				continue
			}

			sp := in.SequencePoint
			entry.Points = append(entry.Points, symPoint{
				Offset:      in.Offset,
				Document:    sp.Document,
				StartLine:   sp.StartLine,
				StartColumn: sp.StartColumn,
				EndLine:     sp.EndLine,
				EndColumn:   sp.EndColumn,
				Hidden:      sp.Hidden,
			})
		}

		if len(entry.Points) > 0 {
			doc.Methods = append(doc.Methods, entry)
		}
	}

	slices.SortFunc(doc.Methods, func(a, b symMethod) int { return strings.Compare(a.Method, b.Method) })

	data, err := yaml.Marshal(&doc)
	if err != nil {
		return nil, fmt.Errorf("failed to encode symbols: %w", err)
	}

	return data, nil
}
