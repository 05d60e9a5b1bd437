package cmd

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"text/template"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

var configForce bool

// configDirFunc returns the config directory path, replaceable in tests.
var configDirFunc = defaultConfigDir

func defaultConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "fmtplay"), nil
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or manage configuration",
	Long: `Show or manage fmtplay configuration.

Running bare 'fmtplay config' is the same as 'fmtplay config show'.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return configShowRun()
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create config file with commented defaults",
	RunE: func(cmd *cobra.Command, args []string) error {
		return configInitRun()
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration with sources",
	RunE: func(cmd *cobra.Command, args []string) error {
		return configShowRun()
	},
}

var configEditCmd = &cobra.Command{
	Use:   "edit",
	Short: "Open config file in $EDITOR",
	RunE: func(cmd *cobra.Command, args []string) error {
		return configEditRun()
	},
}

func init() {
	configInitCmd.Flags().BoolVar(&configForce, "force", false, "Overwrite existing config file")
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configEditCmd)
	rootCmd.AddCommand(configCmd)
}

// configTemplate is the template for generating config.yaml with comments.
const configTemplate = `# fmtplay configuration
# See: fmtplay config show (for effective values and sources)

# State/data directory (default: ~/.config/fmtplay)
# state_dir: {{ .StateDir }}

# SQLite run history path (default: ~/.config/fmtplay/fmtplay.db)
# db_path: {{ .DBPath }}

# Port for 'fmtplay serve'
port: {{ .Port }}

# Formatter engine
engine:
  # djangofmt executable name or path
  path: "{{ .EnginePath }}"
  # Per-call timeout, e.g. "5s" (0s disables)
  timeout: "{{ .EngineTimeout }}"

# Playground defaults and permalinks
playground:
  # Page permalinks point at
  base_url: "{{ .BaseURL }}"
  # Formatter profile: django or jinja
  mode: "{{ .Mode }}"
  # Line length
  width: {{ .Width }}
  # Indent width
  indent: {{ .Indent }}

# Bug reports
report:
  # Issue creation page the report body is sent to
  issue_url: "{{ .IssueURL }}"

# Run history (metadata only, never template sources)
history:
  enabled: {{ .HistoryEnabled }}
  # Runs kept by 'fmtplay history prune'
  keep: {{ .HistoryKeep }}

# Anthropic API, used by 'fmtplay report --suggest-title'
anthropic:
  # api_key: ""
  model: "{{ .AnthropicModel }}"
`

type configTemplateData struct {
	StateDir       string
	DBPath         string
	Port           int
	EnginePath     string
	EngineTimeout  string
	BaseURL        string
	Mode           string
	Width          int
	Indent         int
	IssueURL       string
	HistoryEnabled bool
	HistoryKeep    int
	AnthropicModel string
}

func configFilePath() (string, error) {
	dir, err := configDirFunc()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

func configInitRun() error {
	cfgPath, err := configFilePath()
	if err != nil {
		return err
	}

	// Check if file already exists
	if _, err := os.Stat(cfgPath); err == nil {
		if !configForce {
			return fmt.Errorf("config file already exists: %s (use --force to overwrite)", cfgPath)
		}
		ui.Warning("Overwriting existing config file")
	}

	// Build template data from current viper values
	data := configTemplateData{
		StateDir:       viper.GetString("state_dir"),
		DBPath:         viper.GetString("db_path"),
		Port:           viper.GetInt("port"),
		EnginePath:     viper.GetString("engine.path"),
		EngineTimeout:  viper.GetDuration("engine.timeout").String(),
		BaseURL:        viper.GetString("playground.base_url"),
		Mode:           viper.GetString("playground.mode"),
		Width:          viper.GetInt("playground.width"),
		Indent:         viper.GetInt("playground.indent"),
		IssueURL:       viper.GetString("report.issue_url"),
		HistoryEnabled: viper.GetBool("history.enabled"),
		HistoryKeep:    viper.GetInt("history.keep"),
		AnthropicModel: viper.GetString("anthropic.model"),
	}

	tmpl, err := template.New("config").Parse(configTemplate)
	if err != nil {
		return fmt.Errorf("template parse error: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return fmt.Errorf("template execute error: %w", err)
	}

	if dryRun {
		ui.DryRunMsg("Would create config file: %s", cfgPath)
		fmt.Fprintln(ui.Out)
		fmt.Fprint(ui.Out, buf.String())
		return nil
	}

	// Create config directory
	dir := filepath.Dir(cfgPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(cfgPath, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	ui.Success("Config file created: %s", cfgPath)
	fmt.Fprintln(ui.Out)
	fmt.Fprint(ui.Out, buf.String())
	return nil
}

// configKeyInfo describes a config key for display purposes.
type configKeyInfo struct {
	Key    string
	EnvVar string
}

var configKeys = []configKeyInfo{
	{Key: "state_dir", EnvVar: "FMTPLAY_STATE_DIR"},
	{Key: "db_path", EnvVar: "FMTPLAY_DB_PATH"},
	{Key: "port", EnvVar: "FMTPLAY_PORT"},
	{Key: "engine.path", EnvVar: "FMTPLAY_ENGINE_PATH"},
	{Key: "engine.timeout", EnvVar: "FMTPLAY_ENGINE_TIMEOUT"},
	{Key: "playground.base_url", EnvVar: "FMTPLAY_PLAYGROUND_BASE_URL"},
	{Key: "playground.mode", EnvVar: "FMTPLAY_PLAYGROUND_MODE"},
	{Key: "playground.width", EnvVar: "FMTPLAY_PLAYGROUND_WIDTH"},
	{Key: "playground.indent", EnvVar: "FMTPLAY_PLAYGROUND_INDENT"},
	{Key: "report.issue_url", EnvVar: "FMTPLAY_REPORT_ISSUE_URL"},
	{Key: "history.enabled", EnvVar: "FMTPLAY_HISTORY_ENABLED"},
	{Key: "history.keep", EnvVar: "FMTPLAY_HISTORY_KEEP"},
	{Key: "anthropic.api_key", EnvVar: "FMTPLAY_ANTHROPIC_API_KEY"},
	{Key: "anthropic.model", EnvVar: "FMTPLAY_ANTHROPIC_MODEL"},
}

func configShowRun() error {
	cfgPath, err := configFilePath()
	if err != nil {
		return err
	}

	// Check if config file exists
	if _, err := os.Stat(cfgPath); err == nil {
		ui.Info("Config file: %s", cfgPath)
	} else {
		ui.Info("Config file: (none)")
	}
	fmt.Fprintln(ui.Out)

	// Read config file values to determine file source
	fileValues := readConfigFileValues(cfgPath)

	for _, k := range configKeys {
		val := viper.Get(k.Key)
		if k.Key == "anthropic.api_key" {
			val = maskSecret(viper.GetString(k.Key))
		}
		source := detectSource(k.Key, k.EnvVar, fileValues)
		fmt.Fprintf(ui.Out, "  %-22s %v  %s\n", k.Key, val, source)
	}

	return nil
}

// maskSecret hides all but the last four characters of a secret.
func maskSecret(v string) string {
	if v == "" {
		return ""
	}
	if len(v) <= 4 {
		return "****"
	}
	return "****" + v[len(v)-4:]
}

// readConfigFileValues reads the raw YAML file and returns a flat map of keys present in it.
func readConfigFileValues(path string) map[string]bool {
	result := make(map[string]bool)

	data, err := os.ReadFile(path)
	if err != nil {
		return result
	}

	var parsed map[string]any
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return result
	}

	// Flatten nested keys with dot notation
	flattenKeys("", parsed, result)
	return result
}

// flattenKeys recursively flattens a nested map to dot-notation keys.
func flattenKeys(prefix string, m map[string]any, result map[string]bool) {
	for key, val := range m {
		fullKey := key
		if prefix != "" {
			fullKey = prefix + "." + key
		}
		if nested, ok := val.(map[string]any); ok {
			flattenKeys(fullKey, nested, result)
		} else {
			result[fullKey] = true
		}
	}
}

// detectSource determines where a config value is coming from.
func detectSource(key, envVar string, fileValues map[string]bool) string {
	if _, ok := os.LookupEnv(envVar); ok {
		return fmt.Sprintf("(env: %s)", envVar)
	}
	if fileValues[key] {
		return "(file)"
	}
	return "(default)"
}

func configEditRun() error {
	editor := os.Getenv("EDITOR")
	if editor == "" {
		editor = os.Getenv("VISUAL")
	}
	if editor == "" {
		return fmt.Errorf("$EDITOR is not set; set it to your preferred editor (e.g. export EDITOR=vim)")
	}

	cfgPath, err := configFilePath()
	if err != nil {
		return err
	}

	if _, err := os.Stat(cfgPath); os.IsNotExist(err) {
		return fmt.Errorf("config file not found: %s (run 'fmtplay config init' first)", cfgPath)
	}

	if dryRun {
		ui.DryRunMsg("Would open %s in %s", cfgPath, editor)
		return nil
	}

	editCmd := exec.Command(editor, cfgPath)
	editCmd.Stdin = os.Stdin
	editCmd.Stdout = os.Stdout
	editCmd.Stderr = os.Stderr
	return editCmd.Run()
}
