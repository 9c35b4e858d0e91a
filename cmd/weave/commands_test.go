package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "weave.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestDemoCommand(t *testing.T) {
	t.Run("retries until the warehouse answers", func(t *testing.T) {
		path := writeConfig(t, "retry:\n  enabled: true\n  max_attempts: 3\n")

		out, err := run(t, "demo", "--config", path, "--failures", "2", "--sku", "A", "-q", "2")

		require.NoError(t, err)
		assert.Equal(t, "Warehouse.Reserve(sku = {A}, quantity = {2}) started.\n"+
			"warehouse is busy Retrying (attempt 1 of 3).\n"+
			"warehouse is busy Retrying (attempt 2 of 3).\n"+
			"Warehouse.Reserve(sku = {A}, quantity = {2}) returned R-A-2.\n"+
			"Reservation R-A-2 confirmed after 3 calls\n", out)
	})

	t.Run("fails once attempts are exhausted", func(t *testing.T) {
		path := writeConfig(t, "retry:\n  enabled: true\n  max_attempts: 2\n")

		_, err := run(t, "demo", "--config", path, "--failures", "5")

		assert.EqualError(t, err, "reservation failed after 2 calls: warehouse is busy")
	})

	t.Run("rejects an unknown sink", func(t *testing.T) {
		_, err := run(t, "demo", "--config", filepath.Join(t.TempDir(), "missing.yaml"), "--sink", "kafka")

		assert.ErrorContains(t, err, "invalid configuration")
	})
}

func TestInspectCommand(t *testing.T) {
	path := writeConfig(t, "retry:\n  enabled: true\ndeadline: 1s\n")

	out, err := run(t, "inspect", "--config", path)

	require.NoError(t, err)
	assert.Contains(t, out, "max_attempts: 5")
	assert.Contains(t, out, fmt.Sprintf("%-25s %s", "LoggingAdvice", "before, after, exception"))
	assert.Contains(t, out, fmt.Sprintf("%-25s %s", "RetryAdvice", "around"))
	assert.Contains(t, out, fmt.Sprintf("%-25s %s", "DeadlineAdvice", "around"))
}

func TestCheckCommand(t *testing.T) {
	out, err := run(t, "check")

	assert.EqualError(t, err, "1 dirty-tracking errors found")
	assert.Contains(t, out, "main.legacyCart.SetDirtyState: error MY002:")
}
