// Package failfast centralizes the pool's "this should never happen, so
// crash loudly instead of limping on with corrupted state" checks: the
// invariants documented on Job, Pool and Barrier are enforced
// here rather than returned as recoverable errors, since a caller that
// passes a negative thread count or a nil run body has a bug, not a
// condition to retry.
package failfast

import (
	"fmt"
	"reflect"
	"runtime/debug"
)

// Err panics if err != nil (fail-fast principle)
// Includes stack trace for debugging
func Err(err error) {
	if err != nil {
		panic(fmt.Errorf("fail-fast: %w\n%s", err, debug.Stack()))
	}
}

// If panics if condition is false
// Allows formatted messages with args
func If(condition bool, message string, args ...interface{}) {
	if !condition {
		panic(fmt.Errorf("fail-fast: "+message, args...))
	}
}

// NotNil panics if ptr is nil
// Useful for validating required pointers/values
// Handles both untyped nil and typed nil pointers correctly
func NotNil(ptr interface{}, name string) {
	if ptr == nil {
		panic(fmt.Errorf("fail-fast: %s is nil", name))
	}
	// Check for typed nil pointers and nil functions
	v := reflect.ValueOf(ptr)
	if v.Kind() == reflect.Ptr && v.IsNil() {
		panic(fmt.Errorf("fail-fast: %s is nil", name))
	}
	// Check for nil functions (function types can be nil)
	if v.Kind() == reflect.Func && v.IsNil() {
		panic(fmt.Errorf("fail-fast: %s is nil", name))
	}
}

// NonNegative panics if n < 0. Used for thread/worker counts, where zero is
// a legal (if useless) configuration but a negative count indicates a
// corrupted argument rather than an edge case to tolerate.
func NonNegative(n int, name string) {
	If(n >= 0, "%s must be non-negative, got %d", name, n)
}

// Positive panics if n <= 0. Used for counts that gate a rendezvous (a
// Barrier's maxCount), where zero would make the predicate vacuously
// satisfied.
func Positive(n int, name string) {
	If(n > 0, "%s must be positive, got %d", name, n)
}
