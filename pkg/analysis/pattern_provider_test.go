package analysis

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePatternStore struct {
	created []map[string]any
}

func (f *fakePatternStore) CreateNode(_ context.Context, _ []string, properties map[string]any) (string, error) {
	f.created = append(f.created, properties)
	return "node-1", nil
}

func (f *fakePatternStore) RunQuery(_ context.Context, _ string, _ ...any) ([]map[string]any, error) {
	return nil, nil
}

func TestBuiltinPatternProvider_ReturnsLanguageSpecificAndGenericPatterns(t *testing.T) {
	p := NewBuiltinPatternProvider(nil, nil)

	patterns, err := p.PatternsForLanguage(context.Background(), "Python")
	require.NoError(t, err)

	var sawPythonSpecific, sawGeneric bool
	for _, pat := range patterns {
		if pat.Language == "python" {
			sawPythonSpecific = true
		}
		if pat.Language == "" {
			sawGeneric = true
		}
		assert.NotEqual(t, "java", pat.Language)
	}
	assert.True(t, sawPythonSpecific)
	assert.True(t, sawGeneric)
}

func TestBuiltinPatternProvider_SeedsStoreExactlyOnce(t *testing.T) {
	store := &fakePatternStore{}
	p := NewBuiltinPatternProvider(store, nil)

	_, err := p.PatternsForLanguage(context.Background(), "go")
	require.NoError(t, err)
	firstCount := len(store.created)
	assert.Greater(t, firstCount, 0)

	_, err = p.PatternsForLanguage(context.Background(), "java")
	require.NoError(t, err)
	assert.Equal(t, firstCount, len(store.created))
}
