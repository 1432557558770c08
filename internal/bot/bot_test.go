package bot

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseCommand(t *testing.T) {
	testCases := []struct {
		input string
		cmd   string
		args  []string
		ok    bool
	}{
		{"!баланс", "баланс", []string{}, true},
		{".баланс", "баланс", []string{}, true},
		{"!перевод <@123> 100", "перевод", []string{"<@123>", "100"}, true},
		{"!СТАВКА 1 200", "ставка", []string{"1", "200"}, true},
		{"  !баланс  ", "баланс", []string{}, true},
		{"просто текст", "", nil, false},
		{"", "", nil, false},
		{"!", "", nil, false},
	}

	for _, tc := range testCases {
		cmd, args, ok := ParseCommand(tc.input)
		assert.Equal(t, tc.ok, ok, "input=%q", tc.input)
		assert.Equal(t, tc.cmd, cmd, "input=%q", tc.input)
		if tc.ok {
			assert.Equal(t, tc.args, args, "input=%q", tc.input)
		}
	}
}
