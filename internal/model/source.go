package model

import (
	"fmt"
	"strings"
)

// Path represents a file system path.
type Path string

// Target identifies a method selected for mutation.
type Target struct {
	Assembly string
	Type     string
	Method   string
	Params   []string
}

// FullName renders `Type::Method(p1,p2)`.
func (t Target) FullName() string {
	return fmt.Sprintf("%s::%s(%s)", t.Type, t.Method, strings.Join(t.Params, ","))
}

func (t Target) String() string {
	return t.Assembly + "!" + t.FullName()
}
