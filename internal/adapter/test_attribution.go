package adapter

import (
	"gooze.dev/pkg/ninjaturtles/internal/il"
	"gooze.dev/pkg/ninjaturtles/internal/vm"
)

// TestAttributionAdapter selects the tests that exercise a method.
type TestAttributionAdapter interface {
	// TestsFor returns the qualified identifiers (`Ns.Type.Method`) of the
	// tests in tests that cover typeName::methodName, in declaration order.
	TestsFor(tests *il.Assembly, typeName, methodName string) []string
}

// AttributeTestAttribution attributes tests through MethodTested annotations
// on the test method or its fixture type, and through direct calls.
type AttributeTestAttribution struct{}

// NewTestAttributionAdapter returns the default attribution strategy.
func NewTestAttributionAdapter() *AttributeTestAttribution {
	return &AttributeTestAttribution{}
}

// TestsFor implements TestAttributionAdapter.
func (a *AttributeTestAttribution) TestsFor(tests *il.Assembly, typeName, methodName string) []string {
	var ids []string

	seen := make(map[string]bool)

	for _, test := range vm.DiscoverTests(tests) {
		if seen[test.TestID()] || !a.covers(tests, test, typeName, methodName) {
			continue
		}

		seen[test.TestID()] = true
		ids = append(ids, test.TestID())
	}

	return ids
}

func (a *AttributeTestAttribution) covers(tests *il.Assembly, test *il.Method, typeName, methodName string) bool {
	if matchesMethodTested(test.AttributesNamed(il.MethodTestedAttribute), typeName, methodName) {
		return true
	}

	if fixture, ok := tests.Type(test.DeclaringType); ok {
		if matchesMethodTested(fixture.AttributesNamed(il.MethodTestedAttribute), typeName, methodName) {
			return true
		}
	}

	return callsMethod(test, typeName, methodName)
}

// matchesMethodTested accepts `MethodTested(Type, Method)` and the type-wide
// form `MethodTested(Type)`.
func matchesMethodTested(attributes []il.Attribute, typeName, methodName string) bool {
	for _, attr := range attributes {
		if len(attr.Args) == 0 || attr.Args[0] != typeName {
			continue
		}

		if len(attr.Args) == 1 || attr.Args[1] == methodName {
			return true
		}
	}

	return false
}

func callsMethod(test *il.Method, typeName, methodName string) bool {
	if test.Body == nil {
		return false
	}

	for _, in := range test.Body.Instructions {
		if in.OpCode.FlowControl() != il.FlowCall {
			continue
		}

		if in.Operand.Method.Owner == typeName && in.Operand.Method.Name == methodName {
			return true
		}
	}

	return false
}
