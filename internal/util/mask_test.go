package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMaskLogin(t *testing.T) {
	cases := map[string]string{
		"":                    "",
		"bob":                 "***",
		"alice":               "a…e",
		" Alice@Example.com ": "a…@e….com",
		"a@b.io":              "a@b.io",
	}
	for in, want := range cases {
		assert.Equal(t, want, MaskLogin(in), in)
	}
}
