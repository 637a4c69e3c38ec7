package main

import (
	"testing"

	"github.com/devhale/bulktask/internal/engine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseVariant_AllNamesRoundTrip(t *testing.T) {
	for _, v := range allVariants() {
		name := variantFlagName(v)
		got, err := parseVariant(name)
		require.NoError(t, err)
		assert.Equal(t, v, got)
	}
}

func TestParseVariant_UnknownNameIsConfigError(t *testing.T) {
	_, err := parseVariant("quantum")
	var cfgErr *engine.ConfigError
	require.ErrorAs(t, err, &cfgErr)
}
