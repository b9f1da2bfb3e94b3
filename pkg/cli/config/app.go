package config

import (
	"os"

	"github.com/m-mizutani/goerr/v2"
	"github.com/pelletier/go-toml/v2"
	"github.com/urfave/cli/v3"
)

// AppConfig represents optional application configuration loaded from a
// TOML file. Flag and environment values take precedence; the file only
// fills values the caller left empty.
type AppConfig struct {
	path string

	Corpus           string `toml:"corpus"`
	Collection       string `toml:"collection"`
	AssistEnabled    bool   `toml:"assist_enabled"`
	AssistPromptFile string `toml:"assist_prompt_file"`

	assistPrompt string
}

// Flags returns CLI flags for application configuration
func (a *AppConfig) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "config",
			Usage:       "Path to TOML configuration file",
			Sources:     cli.EnvVars("MALKB_CONFIG"),
			Destination: &a.path,
		},
	}
}

// AssistPrompt returns the custom assistant prompt template, empty when
// none is configured.
func (a *AppConfig) AssistPrompt() string {
	return a.assistPrompt
}

// Configure loads and validates the TOML file when one is configured.
func (a *AppConfig) Configure() error {
	if a.path == "" {
		return nil
	}

	// #nosec G304 - path is expected to be provided by CLI argument
	data, err := os.ReadFile(a.path)
	if err != nil {
		return goerr.Wrap(err, "failed to read config file", goerr.V("path", a.path))
	}

	if err := toml.Unmarshal(data, a); err != nil {
		return goerr.Wrap(err, "failed to parse TOML config", goerr.V("path", a.path))
	}

	if a.AssistPromptFile != "" {
		// #nosec G304 - path comes from the operator's own config file
		prompt, err := os.ReadFile(a.AssistPromptFile)
		if err != nil {
			return goerr.Wrap(err, "failed to read assist prompt file", goerr.V("path", a.AssistPromptFile))
		}
		a.assistPrompt = string(prompt)
	}

	return nil
}
