// Package session implements a small persistence context over Bun: an
// identity map of tracked entities, a caller-driven transaction, and the
// insert, merge, remove, find and detach operations repositories build on.
//
// A Context is a unit of work. It is not safe for concurrent use.
package session
