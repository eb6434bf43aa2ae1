package adapters

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigAdapterColonKeys(t *testing.T) {
	cfg := NewConfigFromMap(map[string]any{
		"concretizer": map[string]any{
			"duplicates": map[string]any{
				"strategy": "minimal",
				"max_dupes": map[string]any{
					"cmake": 4,
				},
			},
			"static_analysis": true,
		},
	})

	assert.Equal(t, "minimal", cfg.GetString("concretizer:duplicates:strategy", "none"))
	assert.Equal(t, 4, cfg.GetInt("concretizer:duplicates:max_dupes:cmake", 2))
	assert.True(t, cfg.GetBool("concretizer:static_analysis", false))
}

func TestConfigAdapterFallbacks(t *testing.T) {
	cfg := NewConfigFromMap(map[string]any{})

	assert.Equal(t, "none", cfg.GetString("concretizer:duplicates:strategy", "none"))
	assert.Equal(t, 2, cfg.GetInt("concretizer:duplicates:max_dupes:cmake", 2))
	assert.False(t, cfg.GetBool("concretizer:static_analysis", false))

	_, ok := cfg.Get("packages:all:require")
	assert.False(t, ok)
}

func TestConfigAdapterRawLists(t *testing.T) {
	cfg := NewConfigFromMap(map[string]any{
		"packages": map[string]any{
			"all": map[string]any{
				"require": []any{"%gcc"},
			},
		},
	})

	raw, ok := cfg.Get("packages:all:require")
	require.True(t, ok)
	list, isList := raw.([]any)
	require.True(t, isList)
	assert.Equal(t, "%gcc", list[0])
}
