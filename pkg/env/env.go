// Package env implements the chained lexical scope used by the type
// checker (component G of the VM design), ported from
// original_source/src/env.rs's Env<T>: a stack of scope maps searched
// innermost-first.
package env

// Env is a stack of lexical scopes holding values of type T, searched from
// the innermost (most recently begun) scope outward.
type Env[T any] struct {
	stack []map[string]T
}

// New returns an Env with a single, empty root scope already open.
func New[T any]() *Env[T] {
	e := &Env[T]{}
	e.Begin()
	return e
}

// Get looks up key from the innermost scope outward, returning the first
// match and true, or the zero value and false if key is bound nowhere.
func (e *Env[T]) Get(key string) (T, bool) {
	for i := len(e.stack) - 1; i >= 0; i-- {
		if v, ok := e.stack[i][key]; ok {
			return v, true
		}
	}
	var zero T
	return zero, false
}

// Define binds key to value in the current (innermost) scope, shadowing
// any outer binding of the same name.
func (e *Env[T]) Define(key string, v T) {
	e.stack[len(e.stack)-1][key] = v
}

// Import copies every binding in scope into the current scope, as when
// entering a module or applying a lambda's captured environment.
func (e *Env[T]) Import(scope map[string]T) {
	for k, v := range scope {
		e.Define(k, v)
	}
}

// Begin opens a new, empty innermost scope.
func (e *Env[T]) Begin() {
	e.stack = append(e.stack, map[string]T{})
}

// End discards the innermost scope. Calling End with no open scope is a
// programmer error and panics, matching the teacher's fail-fast stance on
// invariant violations that indicate a bug in the caller rather than bad
// input.
func (e *Env[T]) End() {
	if len(e.stack) == 0 {
		panic("env: End called with no open scope")
	}
	e.stack = e.stack[:len(e.stack)-1]
}

// Depth reports how many scopes are currently open.
func (e *Env[T]) Depth() int {
	return len(e.stack)
}
