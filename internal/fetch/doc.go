// Package fetch downloads named remote files into a local staging directory
// with a bounded, fixed-delay retry loop.
//
// A stale local copy is removed before the first attempt so partial downloads
// are never reused. Running out of attempts is reported as a *FetchError that
// wraps ErrExhausted; callers decide whether to tolerate it.
package fetch
