// Package configs provides the embedded configuration templates written by
// `notedex config init`.
//
// Template files:
//   - project-config.example.yaml: per notes directory, saved as .notedex.yaml
//   - user-config.example.yaml: machine-wide, saved as ~/.config/notedex/config.yaml
//
// Load order is described in internal/config Load.
package configs

import _ "embed"

// ProjectConfigTemplate is written to <notes>/.notedex.yaml.
//
//go:embed project-config.example.yaml
var ProjectConfigTemplate string

// UserConfigTemplate is written to the user config path.
//
//go:embed user-config.example.yaml
var UserConfigTemplate string
