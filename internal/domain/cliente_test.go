package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseCPF(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  CPF
		ok    bool
	}{
		{"formatted", "123.456.789-09", "12345678909", true},
		{"short is left padded", "123", "00000000123", true},
		{"exact length", "12345678909", "12345678909", true},
		{"long is padded then truncated to the first 11", "1234567890123", "12345678901", true},
		{"letters mixed in", "abc123def", "00000000123", true},
		{"no digits", "abc-def", "", false},
		{"empty", "", "", false},
		{"whitespace only", "   ", "", false},
		{"unicode garbage", "çãé☃", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseCPF(tt.input)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseCPFAlwaysElevenDigits(t *testing.T) {
	inputs := []string{"1", "99", "123456", "98765432100", "111111111111111111"}
	for _, input := range inputs {
		cpf, ok := ParseCPF(input)
		assert.True(t, ok)
		assert.Len(t, cpf.String(), 11)
	}
}
