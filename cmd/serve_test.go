package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServeCommand_Registered(t *testing.T) {
	found, _, err := rootCmd.Find([]string{"serve"})
	require.NoError(t, err)
	assert.Equal(t, serveCmd, found)

	flag := serveCmd.Flags().Lookup("env-file")
	require.NotNil(t, flag)
	assert.Equal(t, "[]", flag.DefValue)
}

func TestServeCommand_FailsOnMissingEnvFile(t *testing.T) {
	envFiles = []string{t.TempDir() + "/missing.env"}
	t.Cleanup(func() { envFiles = nil })

	err := runServe(serveCmd, nil)

	assert.ErrorContains(t, err, "missing.env")
}
