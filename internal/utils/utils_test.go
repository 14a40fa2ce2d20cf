package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type tagged struct {
	A string `json:"a"`
	B int    `json:"b,omitempty"`
	C bool   `json:"-"`
	D string
}

func TestStructTagNames(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, StructTagNames(tagged{}, "json"))
	assert.Empty(t, StructTagNames(tagged{}, "yaml"))
}
