// Package mutable allows to change components of a running pipe without
// synchronization. Mutations are delivered along with the signal and
// applied by the component in its own goroutine.
package mutable

import (
	"github.com/rs/xid"
)

// zero value for context is immutable.
var immutable = Context{}

type (
	// Context can be embedded to make structure behaviour mutable.
	Context xid.ID

	// Mutation is mutator function associated with a certain mutable context.
	Mutation struct {
		Context
		mutator MutatorFunc
	}

	// Mutations is a set of mutators mapped to their contexts.
	Mutations map[Context][]MutatorFunc

	// MutatorFunc mutates the object.
	MutatorFunc func() error
)

// Mutable returns new mutable context.
func Mutable() Context {
	return Context(xid.New())
}

// Immutable returns immutable context.
func Immutable() Context {
	return immutable
}

// Mutate associates provided mutator with the context and returns
// mutation. Mutating immutable context panics.
func (c Context) Mutate(m MutatorFunc) Mutation {
	if c == immutable {
		panic("mutate immutable")
	}
	return Mutation{
		Context: c,
		mutator: m,
	}
}

// IsMutable returns true if object is mutable.
func (c Context) IsMutable() bool {
	return c != immutable
}

// String returns the text form of the context id.
func (c Context) String() string {
	return xid.ID(c).String()
}

// Apply mutator function.
func (m Mutation) Apply() error {
	return m.mutator()
}

// Put mutation to the set of mutations.
func (ms Mutations) Put(m Mutation) Mutations {
	if m.Context == immutable {
		return ms
	}
	if ms == nil {
		return map[Context][]MutatorFunc{m.Context: {m.mutator}}
	}
	ms[m.Context] = append(ms[m.Context], m.mutator)
	return ms
}

// Merge appends mutators of other set after the mutators already present
// for the same context.
func (ms Mutations) Merge(other Mutations) Mutations {
	for c, fns := range other {
		if ms == nil {
			ms = make(map[Context][]MutatorFunc, len(other))
		}
		ms[c] = append(ms[c], fns...)
	}
	return ms
}

// ApplyTo consumes mutations defined for the context. Mutators are
// executed in the order they were put. The first error interrupts the
// execution of the rest.
func (ms Mutations) ApplyTo(c Context) error {
	if ms == nil || c == immutable {
		return nil
	}
	fns, ok := ms[c]
	if !ok {
		return nil
	}
	delete(ms, c)
	for _, fn := range fns {
		if err := fn(); err != nil {
			return err
		}
	}
	return nil
}
