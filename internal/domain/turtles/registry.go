package turtles

import "slices"

// Config tunes the catalog.
type Config struct {
	// PermutationCap bounds the size of permuted slot groups.
	PermutationCap int
}

// Registry is an ordered, immutable set of turtles.
type Registry struct {
	turtles []Turtle
}

// NewRegistry builds the catalog in its fixed order.
func NewRegistry(cfg Config) *Registry {
	return &Registry{turtles: []Turtle{
		ArithmeticTurtle{},
		BitwiseTurtle{},
		BranchTurtle{},
		ConditionalBoundaryTurtle{},
		SequencePointDeletionTurtle{},
		VariableReadTurtle{},
		VariableWriteTurtle{},
		NewPermutationTurtle(cfg.PermutationCap),
		OpCodeDeletionTurtle{},
	}}
}

// All returns the turtles in catalog order.
func (r *Registry) All() []Turtle {
	return slices.Clone(r.turtles)
}

// Lookup finds a turtle by name.
func (r *Registry) Lookup(name string) (Turtle, bool) {
	for _, t := range r.turtles {
		if t.Name() == name {
			return t, true
		}
	}

	return nil, false
}

// Names lists turtle names in catalog order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.turtles))
	for i, t := range r.turtles {
		names[i] = t.Name()
	}

	return names
}

var defaultRegistry = NewRegistry(Config{})

// Catalog returns every turtle with default settings.
func Catalog() []Turtle { return defaultRegistry.All() }

// Lookup finds a default turtle by name.
func Lookup(name string) (Turtle, bool) { return defaultRegistry.Lookup(name) }

// Names lists the default turtle names.
func Names() []string { return defaultRegistry.Names() }
