package il

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// FormatVersion is the assembly document version this package reads and writes.
const FormatVersion = 1

// AssemblyExt and SymbolsExt are the file suffixes of assemblies and their
// debug-symbol sidecars.
const (
	AssemblyExt = ".asm.yaml"
	SymbolsExt  = ".sym.yaml"
)

const endLabel = "end"

// ErrUnsupportedVersion is returned for documents of an unknown format version.
var ErrUnsupportedVersion = errors.New("unsupported assembly format version")

type assemblyDoc struct {
	Assembly   string    `yaml:"assembly"`
	Version    int       `yaml:"version"`
	References []string  `yaml:"references,omitempty"`
	Types      []typeDoc `yaml:"types"`
}

type typeDoc struct {
	Name       string         `yaml:"name"`
	Base       string         `yaml:"base,omitempty"`
	Attributes []attributeDoc `yaml:"attributes,omitempty"`
	Fields     []fieldDoc     `yaml:"fields,omitempty"`
	Methods    []methodDoc    `yaml:"methods,omitempty"`
}

type attributeDoc struct {
	Name string   `yaml:"name"`
	Args []string `yaml:"args,omitempty,flow"`
}

type fieldDoc struct {
	Name   string `yaml:"name"`
	Type   string `yaml:"type"`
	Static bool   `yaml:"static,omitempty"`
}

type slotDoc struct {
	Name string `yaml:"name"`
	Type string `yaml:"type"`
}

type handlerDoc struct {
	Kind         string `yaml:"kind"`
	TryStart     string `yaml:"try_start"`
	TryEnd       string `yaml:"try_end"`
	HandlerStart string `yaml:"handler_start"`
	HandlerEnd   string `yaml:"handler_end"`
}

type methodDoc struct {
	Name       string         `yaml:"name"`
	Static     bool           `yaml:"static,omitempty"`
	Returns    string         `yaml:"returns"`
	Params     []slotDoc      `yaml:"params,omitempty"`
	Locals     []slotDoc      `yaml:"locals,omitempty"`
	Attributes []attributeDoc `yaml:"attributes,omitempty"`
	Handlers   []handlerDoc   `yaml:"handlers,omitempty"`
	Body       []string       `yaml:"body,omitempty"`
}

// Decode parses an assembly document.
func Decode(data []byte) (*Assembly, error) {
	var doc assemblyDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse assembly document: %w", err)
	}

	if doc.Version != FormatVersion {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, doc.Version)
	}

	if doc.Assembly == "" {
		return nil, errors.New("assembly name is required")
	}

	asm := &Assembly{Name: doc.Assembly, References: doc.References}

	for _, td := range doc.Types {
		t := &Type{Name: td.Name, Base: td.Base, Attributes: decodeAttributes(td.Attributes)}

		for _, fd := range td.Fields {
			t.Fields = append(t.Fields, Field(fd))
		}

		for _, md := range td.Methods {
			m, err := decodeMethod(td.Name, md)
			if err != nil {
				return nil, fmt.Errorf("%s::%s: %w", td.Name, md.Name, err)
			}

			m.Owner = t
			t.Methods = append(t.Methods, m)
		}

		asm.Types = append(asm.Types, t)
	}

	return asm, nil
}

func decodeAttributes(docs []attributeDoc) []Attribute {
	if len(docs) == 0 {
		return nil
	}

	attributes := make([]Attribute, len(docs))
	for i, d := range docs {
		attributes[i] = Attribute(d)
	}

	return attributes
}

func decodeMethod(owner string, md methodDoc) (*Method, error) {
	m := &Method{
		Name:          md.Name,
		DeclaringType: owner,
		Static:        md.Static,
		Returns:       md.Returns,
		Attributes:    decodeAttributes(md.Attributes),
	}

	if m.Returns == "" {
		m.Returns = VoidType
	}

	for _, p := range md.Params {
		m.Parameters = append(m.Parameters, Parameter(p))
	}

	if len(md.Body) == 0 {
		return m, nil
	}

	body, err := decodeBody(md)
	if err != nil {
		return nil, err
	}

	m.Body = body

	return m, nil
}

type pendingTarget struct {
	index int
	label string
}

func decodeBody(md methodDoc) (*Body, error) {
	instructions := make([]Instruction, 0, len(md.Body))
	byOffset := make(map[int]InstrID, len(md.Body))

	var pending []pendingTarget

	previous := -1

	for i, line := range md.Body {
		in, target, err := parseInstruction(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", i, err)
		}

		if in.Offset <= previous {
			return nil, fmt.Errorf("line %d: offset %s is not increasing", i, Label(in.Offset))
		}

		previous = in.Offset
		in.ID = InstrID(i)
		byOffset[in.Offset] = in.ID

		if target != "" {
			pending = append(pending, pendingTarget{index: i, label: target})
		}

		instructions = append(instructions, in)
	}

	for _, p := range pending {
		id, err := resolveLabel(byOffset, p.label)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", Label(instructions[p.index].Offset), err)
		}

		instructions[p.index].Operand = TargetOperand(id)
	}

	variables := make([]Variable, len(md.Locals))
	for i, l := range md.Locals {
		variables[i] = Variable{Index: i, Name: l.Name, Type: l.Type}
	}

	handlers := make([]Handler, 0, len(md.Handlers))

	for _, hd := range md.Handlers {
		h := Handler{Kind: HandlerKind(hd.Kind)}

		for _, bound := range []struct {
			dst   *InstrID
			label string
		}{
			{&h.TryStart, hd.TryStart},
			{&h.TryEnd, hd.TryEnd},
			{&h.HandlerStart, hd.HandlerStart},
			{&h.HandlerEnd, hd.HandlerEnd},
		} {
			id, err := resolveLabel(byOffset, bound.label)
			if err != nil {
				return nil, fmt.Errorf("handler: %w", err)
			}

			*bound.dst = id
		}

		handlers = append(handlers, h)
	}

	return NewBody(instructions, variables, handlers)
}

func resolveLabel(byOffset map[int]InstrID, label string) (InstrID, error) {
	if label == endLabel {
		return EndOfBody, nil
	}

	offset, err := parseLabel(label)
	if err != nil {
		return 0, err
	}

	id, ok := byOffset[offset]
	if !ok {
		return 0, fmt.Errorf("%w: no instruction at %s", ErrDanglingTarget, label)
	}

	return id, nil
}

func parseLabel(label string) (int, error) {
	hex, ok := strings.CutPrefix(label, "IL_")
	if !ok {
		return 0, fmt.Errorf("malformed label %q", label)
	}

	offset, err := strconv.ParseInt(hex, 16, 32)
	if err != nil {
		return 0, fmt.Errorf("malformed label %q: %w", label, err)
	}

	return int(offset), nil
}

// parseInstruction reads `IL_0003: op operand`. Branch operands are returned
// as labels for the caller to resolve.
func parseInstruction(line string) (Instruction, string, error) {
	label, rest, ok := strings.Cut(strings.TrimSpace(line), ":")
	if !ok {
		return Instruction{}, "", fmt.Errorf("missing label in %q", line)
	}

	offset, err := parseLabel(strings.TrimSpace(label))
	if err != nil {
		return Instruction{}, "", err
	}

	mnemonic, operandText, _ := strings.Cut(strings.TrimSpace(rest), " ")
	operandText = strings.TrimSpace(operandText)

	op, err := ParseOpCode(mnemonic)
	if err != nil {
		return Instruction{}, "", err
	}

	in := Instruction{OpCode: op, Offset: offset, OriginalOffset: offset}

	if op.IsBranch() {
		if operandText == "" {
			return Instruction{}, "", fmt.Errorf("%s requires a target", op)
		}

		return in, operandText, nil
	}

	operand, err := parseOperand(op, operandText)
	if err != nil {
		return Instruction{}, "", fmt.Errorf("%s: %w", op, err)
	}

	in.Operand = operand

	return in, "", nil
}

func parseOperand(op OpCode, text string) (Operand, error) {
	kind := op.OperandKind()
	if kind == InlineNone {
		if text != "" {
			return Operand{}, fmt.Errorf("unexpected operand %q", text)
		}

		return NoOperand(), nil
	}

	if text == "" {
		return Operand{}, errors.New("missing operand")
	}

	switch kind {
	case ShortInlineI, InlineI, InlineI8:
		v, err := strconv.ParseInt(text, 0, 64)
		if err != nil {
			return Operand{}, err
		}

		return IntOperand(v), nil
	case InlineR:
		v, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return Operand{}, err
		}

		return FloatOperand(v), nil
	case InlineString:
		v, err := strconv.Unquote(text)
		if err != nil {
			return Operand{}, fmt.Errorf("malformed string %s: %w", text, err)
		}

		return StringOperand(v), nil
	case ShortInlineVar, InlineVar:
		v, err := strconv.Atoi(text)
		if err != nil {
			return Operand{}, err
		}

		return VariableOperand(v), nil
	case ShortInlineArg, InlineArg:
		v, err := strconv.Atoi(text)
		if err != nil {
			return Operand{}, err
		}

		return ParameterOperand(v), nil
	case InlineField:
		ref, err := ParseFieldRef(text)
		if err != nil {
			return Operand{}, err
		}

		return FieldOperand(ref), nil
	case InlineMethod:
		ref, err := ParseMethodRef(text)
		if err != nil {
			return Operand{}, err
		}

		return MethodOperand(ref), nil
	default:
		return Operand{}, fmt.Errorf("unsupported operand kind %d", kind)
	}
}

// ParseFieldRef reads `type Owner::Name`.
func ParseFieldRef(text string) (FieldRef, error) {
	typ, ref, ok := strings.Cut(strings.TrimSpace(text), " ")
	if !ok {
		return FieldRef{}, fmt.Errorf("malformed field reference %q", text)
	}

	owner, name, ok := strings.Cut(strings.TrimSpace(ref), "::")
	if !ok || owner == "" || name == "" {
		return FieldRef{}, fmt.Errorf("malformed field reference %q", text)
	}

	return FieldRef{Owner: owner, Name: name, Type: typ}, nil
}

// ParseMethodRef reads `[instance] ret Owner::Name(p1,p2)`.
func ParseMethodRef(text string) (MethodRef, error) {
	var ref MethodRef

	text = strings.TrimSpace(text)
	if rest, ok := strings.CutPrefix(text, "instance "); ok {
		ref.Instance = true
		text = strings.TrimSpace(rest)
	}

	returns, rest, ok := strings.Cut(text, " ")
	if !ok {
		return MethodRef{}, fmt.Errorf("malformed method reference %q", text)
	}

	ref.Returns = returns

	open := strings.Index(rest, "(")
	if open < 0 || !strings.HasSuffix(rest, ")") {
		return MethodRef{}, fmt.Errorf("malformed method reference %q", text)
	}

	qualified := rest[:open]

	sep := strings.LastIndex(qualified, "::")
	if sep <= 0 {
		return MethodRef{}, fmt.Errorf("malformed method reference %q", text)
	}

	ref.Owner = qualified[:sep]
	ref.Name = qualified[sep+2:]

	params := strings.TrimSpace(rest[open+1 : len(rest)-1])
	if params != "" {
		for _, p := range strings.Split(params, ",") {
			ref.Params = append(ref.Params, strings.TrimSpace(p))
		}
	}

	return ref, nil
}

// Encode serializes an assembly. Bodies are materialized first, so labels and
// branch operands reflect the current encodings.
func Encode(asm *Assembly) ([]byte, error) {
	doc := assemblyDoc{
		Assembly:   asm.Name,
		Version:    FormatVersion,
		References: asm.References,
	}

	for _, t := range asm.Types {
		td := typeDoc{Name: t.Name, Base: t.Base, Attributes: encodeAttributes(t.Attributes)}

		for _, f := range t.Fields {
			td.Fields = append(td.Fields, fieldDoc(f))
		}

		for _, m := range t.Methods {
			md, err := encodeMethod(m)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", m.FullName(), err)
			}

			td.Methods = append(td.Methods, md)
		}

		doc.Types = append(doc.Types, td)
	}

	data, err := yaml.Marshal(&doc)
	if err != nil {
		return nil, fmt.Errorf("failed to encode assembly: %w", err)
	}

	return data, nil
}

func encodeAttributes(attributes []Attribute) []attributeDoc {
	if len(attributes) == 0 {
		return nil
	}

	docs := make([]attributeDoc, len(attributes))
	for i, a := range attributes {
		docs[i] = attributeDoc(a)
	}

	return docs
}

func encodeMethod(m *Method) (methodDoc, error) {
	md := methodDoc{
		Name:       m.Name,
		Static:     m.Static,
		Returns:    m.Returns,
		Attributes: encodeAttributes(m.Attributes),
	}

	for _, p := range m.Parameters {
		md.Params = append(md.Params, slotDoc(p))
	}

	if m.Body == nil {
		return md, nil
	}

	body := m.Body.Materialized()

	for _, v := range body.Variables {
		md.Locals = append(md.Locals, slotDoc{Name: v.Name, Type: v.Type})
	}

	label := func(id InstrID) (string, error) {
		if id == EndOfBody {
			return endLabel, nil
		}

		i, ok := body.IndexOf(id)
		if !ok {
			return "", fmt.Errorf("%w: id %d", ErrDanglingTarget, id)
		}

		return Label(body.Instructions[i].Offset), nil
	}

	for _, h := range body.Handlers {
		hd := handlerDoc{Kind: string(h.Kind)}

		for _, bound := range []struct {
			dst *string
			id  InstrID
		}{
			{&hd.TryStart, h.TryStart},
			{&hd.TryEnd, h.TryEnd},
			{&hd.HandlerStart, h.HandlerStart},
			{&hd.HandlerEnd, h.HandlerEnd},
		} {
			l, err := label(bound.id)
			if err != nil {
				return methodDoc{}, err
			}

			*bound.dst = l
		}

		md.Handlers = append(md.Handlers, hd)
	}

	for _, in := range body.Instructions {
		operand, err := formatOperand(body, in, func(target Instruction) int { return target.Offset })
		if err != nil {
			return methodDoc{}, err
		}

		md.Body = append(md.Body, formatLine(in.Offset, in.OpCode, operand))
	}

	return md, nil
}

func formatLine(offset int, op OpCode, operand string) string {
	if operand == "" {
		return fmt.Sprintf("%s: %s", Label(offset), op)
	}

	return fmt.Sprintf("%s: %s %s", Label(offset), op, operand)
}

func formatOperand(body *Body, in Instruction, targetOffset func(Instruction) int) (string, error) {
	switch in.OpCode.OperandKind() {
	case InlineNone:
		return "", nil
	case ShortInlineI, InlineI, InlineI8:
		return strconv.FormatInt(in.Operand.Int, 10), nil
	case InlineR:
		return strconv.FormatFloat(in.Operand.Float, 'g', -1, 64), nil
	case InlineString:
		return strconv.Quote(in.Operand.String), nil
	case ShortInlineVar, InlineVar, ShortInlineArg, InlineArg:
		return strconv.Itoa(in.Operand.Index), nil
	case InlineField:
		return in.Operand.Field.String(), nil
	case InlineMethod:
		return in.Operand.Method.String(), nil
	case ShortInlineBrTarget, InlineBrTarget:
		i, ok := body.IndexOf(in.Operand.Target)
		if !ok {
			return "", fmt.Errorf("%w: %s targets id %d", ErrDanglingTarget, in.OpCode, in.Operand.Target)
		}

		return Label(targetOffset(body.Instructions[i])), nil
	default:
		return "", fmt.Errorf("unsupported operand kind %d", in.OpCode.OperandKind())
	}
}

// Disassemble renders a method one instruction per line, labelled by original
// offsets so that listings of a method and of its mutants line up.
func Disassemble(m *Method) string {
	var b strings.Builder

	fmt.Fprintf(&b, ".method %s\n", m.Signature())

	if m.Body == nil {
		return b.String()
	}

	for _, in := range m.Body.Instructions {
		operand, err := formatOperand(m.Body, in, func(target Instruction) int { return target.OriginalOffset })
		if err != nil {
			operand = "<" + err.Error() + ">"
		}

		b.WriteString("  ")
		b.WriteString(formatLine(in.OriginalOffset, in.OpCode, operand))
		b.WriteString("\n")
	}

	return b.String()
}

// Render formats one instruction of b as `op operand`, naming branch targets
// by their original offsets.
func (b *Body) Render(in Instruction) string {
	operand, err := formatOperand(b, in, func(target Instruction) int { return target.OriginalOffset })
	if err != nil {
		operand = "<" + err.Error() + ">"
	}

	if operand == "" {
		return in.OpCode.String()
	}

	return in.OpCode.String() + " " + operand
}
