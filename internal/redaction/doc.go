// Package redaction renders notes for display at a sensitivity level.
//
// A Policy decides which span categories are hidden. Redact rewrites the
// text right to left over its runes so that every stored offset stays valid,
// and every replacement has the same rune length as the text it hides.
package redaction
