package masking

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMaskSecret(t *testing.T) {
	cases := map[string]string{
		"":                             "",
		"abc":                          "****",
		"fp_admin_K1_0123456789abcdef": "fp_admin_K1_****cdef",
		"plainsecretvalue":             "****alue",
		"trailing_":                    "****ing_",
	}
	for in, want := range cases {
		assert.Equal(t, want, MaskSecret(in), in)
	}
}

func TestMaskFields(t *testing.T) {
	assert.Nil(t, MaskFields(nil, "api_key"))

	got := MaskFields(map[string]any{
		"API_KEY": "fp_admin_K2_ffffffff1234",
		"role":    "admin",
		"count":   3,
		" ":       "dropped",
	}, "api_key")
	assert.Equal(t, map[string]any{
		"API_KEY": "fp_admin_K2_****1234",
		"role":    "admin",
		"count":   3,
	}, got)
}
