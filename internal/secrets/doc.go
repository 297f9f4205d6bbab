// Package secrets detects credential-like values in free text.
//
// A Registry holds the compiled rule set. It is built once and shared
// read-only by every Engine. The Engine evaluates each rule independently,
// drops allow-listed placeholder values, and resolves overlapping matches
// into a start-ordered set of non-intersecting detections.
//
// Detection offsets are rune offsets into the scanned text. Matched values
// never leave the package unmasked.
package secrets
