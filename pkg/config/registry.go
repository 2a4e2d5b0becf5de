package config

import (
	"log/slog"

	"github.com/codeready-toolchain/vulnassess/pkg/analysis/tools"
)

// BuildToolRegistry registers the tool registry's built-in scanner set and
// then layers on every tool named in c.Tools, so a deployment can add a
// custom scanner without touching Go code. Register skips (and logs) a
// c.Tools entry whose name is already registered, so a built-in whose
// binary was found on PATH keeps its definition; a built-in whose binary
// is absent was never registered, and a c.Tools entry of the same name is
// registered in its place.
func BuildToolRegistry(c *Config, logger *slog.Logger) *tools.Registry {
	reg := tools.NewRegistry(logger)
	reg.RegisterBuiltin()

	for name, t := range c.Tools.Tools {
		reg.Register(&tools.Tool{
			Name:        name,
			Command:     t.Command,
			Args:        t.Args,
			Language:    t.Language,
			VersionArgs: t.VersionCommand,
			InstallURL:  t.InstallationURL,
			Description: t.Description,
			Parser:      tools.ParserByName(t.Parser),
		})
	}

	return reg
}
