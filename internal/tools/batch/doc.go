// Package batch provides helpers for tools that act on several email ids
// in one call.
//
// It covers:
//   - Parsing parameters that accept both a single value and an array
//   - Recording per-id outcomes in a consistent structure
package batch
