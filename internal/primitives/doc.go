// Package primitives provides the foundational, dependency-free data
// structures shared by the interpreter: the Event value type and the
// insertion-ordered set used for the configuration and working sets during
// a microstep.
package primitives
