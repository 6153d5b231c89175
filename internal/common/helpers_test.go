package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatNumber(t *testing.T) {
	cases := map[int64]string{
		0:       "0",
		7:       "7",
		999:     "999",
		1000:    "1 000",
		2350:    "2 350",
		1000000: "1 000 000",
		-2350:   "-2 350",
	}
	for n, want := range cases {
		assert.Equal(t, want, FormatNumber(n), "FormatNumber(%d)", n)
	}
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", Truncate("short", 10))
	assert.Equal(t, "abc...", Truncate("abcdef", 3))
	// Обрезка по рунам: кириллица не рвётся посреди символа.
	assert.Equal(t, "привет...", Truncate("привет мир", 6))
}

func TestCountNoun(t *testing.T) {
	assert.Equal(t, "1 subject", CountNoun(1, "subject", "subjects"))
	assert.Equal(t, "3 subjects", CountNoun(3, "subject", "subjects"))
	assert.Equal(t, "0 subjects", CountNoun(0, "subject", "subjects"))
}
