// Package util holds the text helpers shared by the model and options table printers.
package util

import "strings"

// IndentExpand repeats indent depth times. Negative depths produce no indentation.
func IndentExpand(indent string, depth int) string {
	if depth <= 0 {
		return ""
	}
	return strings.Repeat(indent, depth)
}
