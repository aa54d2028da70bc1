package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// defaultConfigYAML is the starter configuration written by "aide init".
const defaultConfigYAML = `# Aide configuration.
# Environment variables in values are expanded at load time.

listen:
  address: ""        # bind address; empty = all interfaces
  port: 8080

# The logic model drives the agent loop. Any OpenAI-compatible endpoint
# works.
logic:
  base_url: "https://api.openai.com/v1"
  api_key: "${OPENAI_API_KEY}"
  model: "gpt-4o"

# Optional. The vision model analyzes attached images; the image model
# generates pictures. Both inherit the logic endpoint's credentials when
# their own are empty.
vision:
  model: ""
image:
  model: ""

agent:
  max_steps: 10
  context_window: 20

search:
  provider: "searxng"     # searxng or brave
  searxng_url: ""
  brave_api_key: ""

weather:
  api_key: ""             # OpenWeather API key

# Python code execution. Disabled by default; enable only on hosts
# where running model-authored scripts is acceptable.
sandbox:
  enabled: false
  python: "python3"
  timeout_sec: 10

data_dir: "data"
generated_dir: "generated"
log_level: "info"         # trace, debug, info, warn, error
`

// runInit initializes an Aide working directory with default files.
// Existing files are never overwritten.
func runInit(w io.Writer, dir string) error {
	fmt.Fprintf(w, "Initializing Aide workspace in %s\n", dir)

	for _, sub := range []string{"data", "generated"} {
		path := filepath.Join(dir, sub)
		if err := os.MkdirAll(path, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", path, err)
		}
	}

	configPath := filepath.Join(dir, "aide.yaml")
	if err := writeIfMissing(configPath, []byte(defaultConfigYAML)); err != nil {
		return err
	}
	fmt.Fprintf(w, "  ✓ %s\n", configPath)

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Edit aide.yaml and set your model endpoint, then run: aide serve")
	return nil
}

// writeIfMissing writes content to path only if the file does not
// already exist, so init never overwrites user customizations.
func writeIfMissing(path string, content []byte) error {
	if _, err := os.Stat(path); err == nil {
		return nil // already exists, skip
	}
	return os.WriteFile(path, content, 0o644)
}
