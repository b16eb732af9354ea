package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/oliverbatey/forager/internal/adapters/driven/config/file"
	"github.com/oliverbatey/forager/internal/config"
	"github.com/oliverbatey/forager/internal/core/domain"
	"github.com/oliverbatey/forager/internal/core/ports/driven"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the configuration file",
	Long: `Reads and edits config.toml in the config directory.

Keys are dotted, for example reddit.client_id or store.backend.
Environment variables take precedence over the file.`,
}

var configGetCmd = &cobra.Command{
	Use:   "get [key]",
	Short: "Print a configuration value",
	Args:  cobra.ExactArgs(1),
	RunE:  runConfigGet,
}

var configSetCmd = &cobra.Command{
	Use:   "set [key] [value]",
	Short: "Set a configuration value",
	Args:  cobra.ExactArgs(2),
	RunE:  runConfigSet,
}

var configUnsetCmd = &cobra.Command{
	Use:   "unset [key]",
	Short: "Remove a configuration value",
	Args:  cobra.ExactArgs(1),
	RunE:  runConfigUnset,
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "List values set in the configuration file",
	Args:  cobra.NoArgs,
	RunE:  runConfigList,
}

func init() {
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configUnsetCmd)
	configCmd.AddCommand(configListCmd)
	rootCmd.AddCommand(configCmd)
}

// getConfigStore opens config.toml without validating it, so a broken file
// can still be repaired.
func getConfigStore() (driven.ConfigStore, error) {
	if configStore != nil {
		return configStore, nil
	}
	dir := configDir
	if dir == "" {
		dir = config.DefaultDir()
	}
	s, err := file.NewConfigStore(dir)
	if err != nil {
		return nil, err
	}
	configStore = s
	return s, nil
}

func checkKey(key string) error {
	if !config.IsKey(key) {
		return fmt.Errorf("unknown key %q (known: %s): %w", key, strings.Join(config.Keys(), ", "), domain.ErrInvalidInput)
	}
	return nil
}

func runConfigGet(cmd *cobra.Command, args []string) error {
	if err := checkKey(args[0]); err != nil {
		return err
	}
	store, err := getConfigStore()
	if err != nil {
		return err
	}

	val, ok := store.Get(args[0])
	if !ok {
		cmd.Println("(not set)")
		return nil
	}
	cmd.Println(displayValue(args[0], val))
	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	key, raw := args[0], args[1]
	if err := checkKey(key); err != nil {
		return err
	}
	store, err := getConfigStore()
	if err != nil {
		return err
	}

	val, err := parseValue(key, raw)
	if err != nil {
		return err
	}
	if err := store.Set(key, val); err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}
	cmd.Printf("Set %s\n", key)
	return nil
}

func runConfigUnset(cmd *cobra.Command, args []string) error {
	store, err := getConfigStore()
	if err != nil {
		return err
	}
	if err := store.Unset(args[0]); err != nil {
		return fmt.Errorf("failed to unset %s: %w", args[0], err)
	}
	cmd.Printf("Unset %s\n", args[0])
	return nil
}

func runConfigList(cmd *cobra.Command, _ []string) error {
	store, err := getConfigStore()
	if err != nil {
		return err
	}

	keys := store.Keys()
	if len(keys) == 0 {
		cmd.Println("No values set.")
		return nil
	}
	for _, key := range keys {
		val, _ := store.Get(key)
		cmd.Printf("%s = %s\n", key, displayValue(key, val))
	}
	return nil
}

// numericKeys are written to the TOML file as numbers rather than strings.
var numericKeys = map[string]bool{
	"agent.history_limit":        true,
	"agent.max_iterations":       true,
	"chunker.overlap":            true,
	"chunker.size":               true,
	"reddit.requests_per_second": true,
}

func parseValue(key, raw string) (any, error) {
	if !numericKeys[key] {
		return raw, nil
	}
	if i, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return i, nil
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return f, nil
	}
	return nil, fmt.Errorf("%s must be a number, got %q: %w", key, raw, domain.ErrInvalidInput)
}

func displayValue(key string, val any) string {
	s := fmt.Sprint(val)
	if isSecret(key) {
		return maskSecret(s)
	}
	return s
}

func isSecret(key string) bool {
	return strings.HasSuffix(key, "api_key") || strings.HasSuffix(key, "secret")
}

func maskSecret(s string) string {
	if len(s) <= 8 {
		return "****"
	}
	return s[:4] + "..." + s[len(s)-4:]
}
