package il

import (
	"fmt"
	"slices"
	"strings"
)

// Well-known names.
const (
	ObjectType      = "System.Object"
	ConstructorName = ".ctor"
	VoidType        = "void"

	TestAttribute         = "Test"
	MethodTestedAttribute = "MethodTested"
)

// Attribute is a metadata annotation with positional string arguments.
type Attribute struct {
	Name string
	Args []string
}

// Parameter is a declared method parameter.
type Parameter struct {
	Name string
	Type string
}

// Field is a declared field of a type.
type Field struct {
	Name   string
	Type   string
	Static bool
}

// Method is a method definition with its body.
type Method struct {
	Name          string
	DeclaringType string
	Static        bool
	Returns       string
	Parameters    []Parameter
	Attributes    []Attribute
	Body          *Body

	// Owner is the declaring type definition; nil for detached methods.
	Owner *Type
}

// FullName is `Type::Name`.
func (m *Method) FullName() string {
	return m.DeclaringType + "::" + m.Name
}

// TestID is the qualified identifier test hosts use: `Type.Name`.
func (m *Method) TestID() string {
	return m.DeclaringType + "." + m.Name
}

// ParamTypes lists declared parameter types in order.
func (m *Method) ParamTypes() []string {
	types := make([]string, len(m.Parameters))
	for i, p := range m.Parameters {
		types[i] = p.Type
	}

	return types
}

// Signature renders `ret Type::Name(p1,p2)`.
func (m *Method) Signature() string {
	return fmt.Sprintf("%s %s(%s)", m.Returns, m.FullName(), strings.Join(m.ParamTypes(), ","))
}

// ArgCount counts argument slots, including `this` for instance methods.
func (m *Method) ArgCount() int {
	if m.Static {
		return len(m.Parameters)
	}

	return len(m.Parameters) + 1
}

// Arg resolves an argument slot. Slot 0 of an instance method is `this`.
func (m *Method) Arg(slot int) (Parameter, bool) {
	if !m.Static {
		if slot == 0 {
			return Parameter{Name: "this", Type: m.DeclaringType}, true
		}

		slot--
	}

	if slot < 0 || slot >= len(m.Parameters) {
		return Parameter{}, false
	}

	return m.Parameters[slot], true
}

// DeclaredFields lists the fields of the declaring type with the given
// staticness.
func (m *Method) DeclaredFields(static bool) []Field {
	if m.Owner == nil {
		return nil
	}

	var fields []Field

	for _, f := range m.Owner.Fields {
		if f.Static == static {
			fields = append(fields, f)
		}
	}

	return fields
}

// FirstParamSlot is the slot of the first declared parameter.
func (m *Method) FirstParamSlot() int {
	if m.Static {
		return 0
	}

	return 1
}

// AttributesNamed returns the annotations named name.
func (m *Method) AttributesNamed(name string) []Attribute {
	return attributesNamed(m.Attributes, name)
}

// HasAttribute reports whether the method carries an annotation named name.
func (m *Method) HasAttribute(name string) bool {
	return len(m.AttributesNamed(name)) > 0
}

// Ref returns a reference that resolves back to m.
func (m *Method) Ref() MethodRef {
	return MethodRef{
		Instance: !m.Static,
		Returns:  m.Returns,
		Owner:    m.DeclaringType,
		Name:     m.Name,
		Params:   m.ParamTypes(),
	}
}

// Matches reports whether ref resolves to m.
func (m *Method) Matches(ref MethodRef) bool {
	return ref.Owner == m.DeclaringType && ref.Name == m.Name && slices.Equal(ref.Params, m.ParamTypes())
}

// WithBody returns a shallow copy of m using body.
func (m *Method) WithBody(body *Body) *Method {
	clone := *m
	clone.Body = body

	return &clone
}

func (m *Method) clone() *Method {
	clone := *m
	clone.Parameters = slices.Clone(m.Parameters)
	clone.Attributes = cloneAttributes(m.Attributes)

	if m.Body != nil {
		clone.Body = m.Body.Clone()
	}

	return &clone
}

// Type is a type definition.
type Type struct {
	Name       string
	Base       string
	Fields     []Field
	Methods    []*Method
	Attributes []Attribute
}

// Field looks up a declared field.
func (t *Type) Field(name string) (Field, bool) {
	for _, f := range t.Fields {
		if f.Name == name {
			return f, true
		}
	}

	return Field{}, false
}

// MethodsNamed returns every overload named name.
func (t *Type) MethodsNamed(name string) []*Method {
	var methods []*Method

	for _, m := range t.Methods {
		if m.Name == name {
			methods = append(methods, m)
		}
	}

	return methods
}

// AttributesNamed returns the annotations named name.
func (t *Type) AttributesNamed(name string) []Attribute {
	return attributesNamed(t.Attributes, name)
}

// Assembly is a loaded unit of types plus the names of assemblies it references.
type Assembly struct {
	Name       string
	References []string
	Types      []*Type
}

// Type looks up a type by full name.
func (a *Assembly) Type(name string) (*Type, bool) {
	for _, t := range a.Types {
		if t.Name == name {
			return t, true
		}
	}

	return nil, false
}

// FindMethods returns the methods of typeName named methodName. A nil
// paramTypes matches every overload; an empty non-nil slice matches only
// parameterless overloads. An empty methodName matches every method that has
// a body.
func (a *Assembly) FindMethods(typeName, methodName string, paramTypes []string) []*Method {
	t, ok := a.Type(typeName)
	if !ok {
		return nil
	}

	var found []*Method

	for _, m := range t.Methods {
		if methodName != "" && m.Name != methodName {
			continue
		}

		if methodName == "" && m.Body == nil {
			continue
		}

		if paramTypes != nil && !slices.Equal(m.ParamTypes(), paramTypes) {
			continue
		}

		found = append(found, m)
	}

	return found
}

// ResolveMethod finds the definition a reference points at.
func (a *Assembly) ResolveMethod(ref MethodRef) (*Method, bool) {
	t, ok := a.Type(ref.Owner)
	if !ok {
		return nil, false
	}

	for _, m := range t.Methods {
		if m.Matches(ref) {
			return m, true
		}
	}

	return nil, false
}

// Methods iterates every method of every type.
func (a *Assembly) Methods() []*Method {
	var methods []*Method
	for _, t := range a.Types {
		methods = append(methods, t.Methods...)
	}

	return methods
}

// Replace returns a shallow copy of the assembly in which original is swapped
// for replacement. Types other than the declaring type are shared.
func (a *Assembly) Replace(original, replacement *Method) *Assembly {
	clone := *a
	clone.Types = make([]*Type, len(a.Types))

	for i, t := range a.Types {
		idx := slices.Index(t.Methods, original)
		if idx < 0 {
			clone.Types[i] = t
			continue
		}

		typeCopy := *t
		typeCopy.Methods = slices.Clone(t.Methods)
		typeCopy.Methods[idx] = replacement
		clone.Types[i] = &typeCopy
	}

	return &clone
}

// Clone returns a deep copy.
func (a *Assembly) Clone() *Assembly {
	clone := &Assembly{
		Name:       a.Name,
		References: slices.Clone(a.References),
		Types:      make([]*Type, len(a.Types)),
	}

	for i, t := range a.Types {
		typeCopy := &Type{
			Name:       t.Name,
			Base:       t.Base,
			Fields:     slices.Clone(t.Fields),
			Attributes: cloneAttributes(t.Attributes),
			Methods:    make([]*Method, len(t.Methods)),
		}

		for j, m := range t.Methods {
			typeCopy.Methods[j] = m.clone()
			typeCopy.Methods[j].Owner = typeCopy
		}

		clone.Types[i] = typeCopy
	}

	return clone
}

func attributesNamed(attributes []Attribute, name string) []Attribute {
	var found []Attribute

	for _, a := range attributes {
		if a.Name == name {
			found = append(found, a)
		}
	}

	return found
}

func cloneAttributes(attributes []Attribute) []Attribute {
	if attributes == nil {
		return nil
	}

	clone := make([]Attribute, len(attributes))
	for i, a := range attributes {
		clone[i] = Attribute{Name: a.Name, Args: slices.Clone(a.Args)}
	}

	return clone
}
