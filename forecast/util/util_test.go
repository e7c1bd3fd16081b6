package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIndentExpand(t *testing.T) {
	testData := map[string]struct {
		indent   string
		depth    int
		expected string
	}{
		"zero depth":     {indent: "  ", depth: 0, expected: ""},
		"negative depth": {indent: "  ", depth: -2, expected: ""},
		"two levels":     {indent: "  ", depth: 2, expected: "    "},
		"tab":            {indent: "\t", depth: 3, expected: "\t\t\t"},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, td.expected, IndentExpand(td.indent, td.depth))
		})
	}
}
