// Package textutil provides small text helpers: filesystem-safe names for
// clip artifacts and human-readable clip titles.
package textutil
