package symbols

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValid(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"AAPL", true},
		{"brk.b", true},
		{"BF-B", true},
		{"", false},
		{"TOOLONG", false},
		{"1ABC", false},
		{"AB CD", false},
		{"$SPY", false},
	}
	for _, tt := range tests {
		if got := Valid(tt.in); got != tt.want {
			t.Errorf("Valid(%q): expected %v, got %v", tt.in, tt.want, got)
		}
	}
}

func TestParse(t *testing.T) {
	got, err := Parse(" aapl, MSFT,,aapl ,nvda")
	require.NoError(t, err)
	assert.Equal(t, []string{"AAPL", "MSFT", "NVDA"}, got)

	_, err = Parse("AAPL,not a ticker")
	assert.Error(t, err)
}

func TestResolve(t *testing.T) {
	got, err := Resolve("tsla", "nasdaq100")
	require.NoError(t, err)
	assert.Equal(t, []string{"TSLA"}, got)

	got, err = Resolve("", "megacap")
	require.NoError(t, err)
	assert.Len(t, got, len(MegaCapSymbols))
	got[0] = "XXX"
	assert.Equal(t, "AAPL", MegaCapSymbols[0], "result must be a copy")

	_, err = Resolve("", "sp9000")
	assert.Error(t, err)
	_, err = Resolve("", "")
	assert.Error(t, err)
}
