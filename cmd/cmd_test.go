//nolint:testpackage
package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBuildsExpectedCommandTree(t *testing.T) {
	t.Parallel()

	root := New()

	assert.Equal(t, "ripplecache", root.Name)

	var names []string
	for _, sub := range root.Commands {
		names = append(names, sub.Name)
	}

	assert.ElementsMatch(t, []string{"serve", "get", "clear"}, names)

	var flagNames []string
	for _, f := range root.Flags {
		flagNames = append(flagNames, f.Names()...)
	}

	assert.Contains(t, flagNames, "log-level")
	assert.Contains(t, flagNames, "otel-enabled")
	assert.Contains(t, flagNames, "otel-grpc-url")
	assert.Contains(t, flagNames, "config")
	assert.Contains(t, flagNames, "prometheus-enabled")
}

func TestGetDefaultConfigPathEndsInRipplecacheConfig(t *testing.T) {
	t.Parallel()

	path := getDefaultConfigPath()
	require.NotEmpty(t, path)
	assert.Contains(t, path, "ripplecache")
	assert.Contains(t, path, "config.yaml")
}
