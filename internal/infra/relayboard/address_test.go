package relayboard

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeAddress(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"192.168.4.1", "192.168.4.1"},
		{"http://192.168.4.1", "192.168.4.1"},
		{"https://192.168.4.1/", "192.168.4.1"},
		{"relayboard.local/", "relayboard.local"},
		{" http://relayboard.local:8080/ ", "relayboard.local:8080"},
	}

	for _, tt := range tests {
		require.Equal(t, tt.want, NormalizeAddress(tt.in), "input %q", tt.in)
	}
}

func TestBaseURLForcesPlaintextScheme(t *testing.T) {
	t.Parallel()

	require.Equal(t, "http://192.168.4.1", BaseURL("https://192.168.4.1/"))
	require.Equal(t, "http://192.168.4.1", BaseURL("192.168.4.1"))
}

func TestDialAddrDefaultsToHTTPPort(t *testing.T) {
	t.Parallel()

	require.Equal(t, "192.168.4.1:80", dialAddr("192.168.4.1"))
	require.Equal(t, "192.168.4.1:8080", dialAddr("http://192.168.4.1:8080"))
}
