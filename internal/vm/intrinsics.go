package vm

import "fmt"

// AssertType is the owner of the assertion intrinsics test assemblies call.
const AssertType = "Testing.Assert"

// AssertionException is the exception type raised by failed assertions.
const AssertionException = "AssertionException"

type intrinsic func(args []Value) (Value, error)

var intrinsics = map[string]intrinsic{
	"System.Object::.ctor":       func([]Value) (Value, error) { return Null(), nil },
	AssertType + "::AreEqual":    assertAreEqual,
	AssertType + "::AreNotEqual": assertAreNotEqual,
	AssertType + "::IsTrue":      assertIsTrue,
	AssertType + "::IsFalse":     assertIsFalse,
	AssertType + "::Fail":        assertFail,
}

func assertion(format string, args ...any) error {
	return &Exception{Type: AssertionException, Message: fmt.Sprintf(format, args...)}
}

func assertAreEqual(args []Value) (Value, error) {
	if len(args) < 2 {
		return Null(), assertion("AreEqual requires expected and actual")
	}

	if !args[0].Equal(args[1]) {
		return Null(), assertion("expected %v but was %v", args[0], args[1])
	}

	return Null(), nil
}

func assertAreNotEqual(args []Value) (Value, error) {
	if len(args) < 2 {
		return Null(), assertion("AreNotEqual requires two values")
	}

	if args[0].Equal(args[1]) {
		return Null(), assertion("expected a value other than %v", args[0])
	}

	return Null(), nil
}

func assertIsTrue(args []Value) (Value, error) {
	if len(args) < 1 || !args[0].Truthy() {
		return Null(), assertion("expected true")
	}

	return Null(), nil
}

func assertIsFalse(args []Value) (Value, error) {
	if len(args) < 1 || args[0].Truthy() {
		return Null(), assertion("expected false")
	}

	return Null(), nil
}

func assertFail(args []Value) (Value, error) {
	if len(args) > 0 && args[0].Kind() == KindString {
		return Null(), assertion("%s", args[0].AsString())
	}

	return Null(), assertion("failed")
}
