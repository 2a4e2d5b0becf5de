package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildToolRegistry_AddsCustomToolWhoseBinaryIsOnPath(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Tools.Tools["my-scanner"] = ToolConfig{
		Command:  "echo", // always resolvable on PATH, unlike a real scanner binary
		Parser:   "generic",
		Language: "rust",
	}

	reg := BuildToolRegistry(cfg, nil)

	found := false
	for _, tool := range reg.ForLanguage("rust") {
		if tool.Name == "my-scanner" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestBuildToolRegistry_SkipsCustomToolWithUnresolvableBinary(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Tools.Tools["ghost-scanner"] = ToolConfig{
		Command:  "definitely-not-a-real-binary-xyz",
		Parser:   "generic",
	}

	reg := BuildToolRegistry(cfg, nil)

	for _, tool := range reg.ForLanguage("python") {
		assert.NotEqual(t, "ghost-scanner", tool.Name)
	}
}
