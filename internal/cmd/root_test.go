package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUsageErrorsExitOne(t *testing.T) {
	t.Run("unknown flag", func(t *testing.T) {
		rootCmd.SetArgs([]string{"--no-such-flag"})
		assert.Equal(t, exitUsage, Execute())
	})

	t.Run("too many arguments", func(t *testing.T) {
		rootCmd.SetArgs([]string{"one", "two"})
		assert.Equal(t, exitUsage, Execute())
	})

	t.Run("missing directory", func(t *testing.T) {
		rootCmd.SetArgs([]string{})
		assert.Equal(t, exitUsage, Execute())
	})

	t.Run("not a directory", func(t *testing.T) {
		rootCmd.SetArgs([]string{"/no/such/path"})
		assert.Equal(t, exitUsage, Execute())
	})
}
