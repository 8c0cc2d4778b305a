// Package elevation reports whether provision runs with the privileges
// needed for machine-wide installs.
package elevation

// Checker reports the elevation state. Implementations have no side effects.
type Checker interface {
	IsElevated() bool
}

// CheckerFunc adapts a function to Checker.
type CheckerFunc func() bool

// IsElevated implements Checker.
func (f CheckerFunc) IsElevated() bool { return f() }

// Fixed returns a Checker that always gives the same answer.
func Fixed(elevated bool) Checker {
	return CheckerFunc(func() bool { return elevated })
}

// Host returns the Checker for the running process.
func Host() Checker {
	return CheckerFunc(isElevated)
}
