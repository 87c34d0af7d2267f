package main

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSetupLoggerNeverReturnsNil(t *testing.T) {
	t.Parallel()

	for _, env := range []string{envLocal, envDev, envProd, "staging", ""} {
		require.NotNil(t, setupLogger(env), "env %q", env)
	}
}
