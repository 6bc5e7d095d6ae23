// internal/interpreter/provider_test.go
package interpreter

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultRegistryHasKeywordProvider(t *testing.T) {
	assert.Contains(t, DefaultRegistry.GetAvailableProviders(), KeywordProviderName)

	p, err := DefaultRegistry.GetProvider(KeywordProviderName, map[string]string{"latency_ms": "0", "seed": "3"})
	require.NoError(t, err)
	assert.Equal(t, KeywordProviderName, p.GetName())

	m, err := p.Interpret(context.Background(), "a castle")
	require.NoError(t, err)
	assert.Equal(t, "Castle", m.Scenes[0].Elements[0].Name)
}

func TestSeededProvidersAgree(t *testing.T) {
	cfg := map[string]string{"latency_ms": "0", "seed": "99"}
	a, err := DefaultRegistry.GetProvider(KeywordProviderName, cfg)
	require.NoError(t, err)
	b, err := DefaultRegistry.GetProvider(KeywordProviderName, cfg)
	require.NoError(t, err)

	ma, _ := a.Interpret(context.Background(), "dragon over the ocean")
	mb, _ := b.Interpret(context.Background(), "dragon over the ocean")
	assert.Equal(t, ma.Scenes[0].Elements, mb.Scenes[0].Elements)
}

func TestUnknownProvider(t *testing.T) {
	_, err := NewRegistry().GetProvider("oracle", nil)
	assert.True(t, errors.Is(err, ErrUnknownProvider))
}

func TestBadProviderConfig(t *testing.T) {
	_, err := DefaultRegistry.GetProvider(KeywordProviderName, map[string]string{"latency_ms": "soon"})
	assert.Error(t, err)
}
