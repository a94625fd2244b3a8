package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMaskSensitiveString(t *testing.T) {
	tests := []struct {
		name   string
		in     string
		prefix int
		suffix int
		want   string
	}{
		{"empty", "", 2, 2, ""},
		{"short is fully masked", "abcd", 2, 2, "****"},
		{"long keeps edges", "ghp_abcdefghijkl", 4, 4, "ghp_...ijkl"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MaskSensitiveString(tt.in, tt.prefix, tt.suffix))
		})
	}
}

func TestMaskToken(t *testing.T) {
	assert.Equal(t, "ghp_...wxyz", MaskToken("ghp_0123456789wxyz"))
}

func TestGetLogger(t *testing.T) {
	IsTest = true
	l := GetLogger()
	assert.NotNil(t, l)
	assert.NotNil(t, Named("test"))
}
