package engine

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSuccessStatus(t *testing.T) {
	testCases := []struct {
		status   int
		expected bool
	}{
		{status: 200, expected: true},
		{status: 204, expected: true},
		{status: 299, expected: true},
		{status: 301, expected: false},
		{status: 404, expected: false},
		{status: 500, expected: false},
		{status: 0, expected: false},
	}

	for _, test := range testCases {
		require.Equal(t, test.expected, SuccessStatus(test.status), "status %d", test.status)
	}
}

func TestA4Layout(t *testing.T) {
	require.InDelta(t, 0.2083, A4.Margin, 0.001)
	require.Greater(t, A4.PaperHeight, A4.PaperWidth)
	require.True(t, A4.PrintBackground)
}
