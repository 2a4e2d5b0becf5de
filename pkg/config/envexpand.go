package config

import "os"

// ExpandEnv expands environment variables in YAML content using Go's
// standard library. Supports both ${VAR} and $VAR syntax (standard
// shell-style).
//
// Examples:
//   - ${ANTHROPIC_API_KEY} -> value of ANTHROPIC_API_KEY
//   - $GRAPH_STORE_DSN -> value of GRAPH_STORE_DSN
//
// Missing variables expand to empty string; Validate catches required fields
// left empty by a missing variable.
func ExpandEnv(data []byte) []byte {
	return []byte(os.ExpandEnv(string(data)))
}
