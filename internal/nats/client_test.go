package nats

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/goodfoods/reservation-platform/pkg/logger"
)

func TestStatusWithoutConnection(t *testing.T) {
	var c *Client
	require.EqualError(t, c.Status(), "nats not connected")
	require.Error(t, (&Client{}).Status())
}

func TestOptionsTLSRequiresAllFiles(t *testing.T) {
	base, err := options(Config{URL: "nats://localhost:4222"}, logger.Nop())
	require.NoError(t, err)

	withToken, err := options(Config{Token: "secret", CAFile: "ca.pem"}, logger.Nop())
	require.NoError(t, err)
	require.Len(t, withToken, len(base)+1)

	ca := filepath.Join(t.TempDir(), "ca.pem")
	require.NoError(t, os.WriteFile(ca, []byte("not a certificate"), 0o600))
	_, err = options(Config{CAFile: ca, CertFile: "cert.pem", KeyFile: "key.pem"}, logger.Nop())
	require.ErrorContains(t, err, "no certificates found")
}
