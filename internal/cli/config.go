package cli

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/Automaat/shader-buster/internal/config"
	"github.com/kballard/go-shellquote"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// ConfigCmd manages configuration.
var ConfigCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Display current configuration",
	RunE:  runConfigShow,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create default configuration file",
	RunE:  runConfigInit,
}

var configEditCmd = &cobra.Command{
	Use:   "edit",
	Short: "Open configuration in $EDITOR",
	RunE:  runConfigEdit,
}

var configSchemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the JSON schema of the configuration file",
	RunE:  runConfigSchema,
}

func init() {
	ConfigCmd.AddCommand(configShowCmd)
	ConfigCmd.AddCommand(configInitCmd)
	ConfigCmd.AddCommand(configEditCmd)
	ConfigCmd.AddCommand(configSchemaCmd)
}

func runConfigShow(_ *cobra.Command, _ []string) error {
	return runConfigShowWithLoader(newLoader())
}

func runConfigShowWithLoader(loader *config.Loader) error {
	cfg, _, err := loader.LoadOrCreate()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	out, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	configPath, _ := loader.ConfigPath()
	fmt.Printf("# %s\n", configPath)
	if from := loader.MigratedFrom(); from > 0 {
		fmt.Printf("# migrated from schema version %d\n", from)
	}
	fmt.Print(string(out))
	return nil
}

func runConfigInit(_ *cobra.Command, _ []string) error {
	return runConfigInitWithLoader(newLoader())
}

func runConfigInitWithLoader(loader *config.Loader) error {
	created, err := loader.InitDefault()
	if err != nil {
		return fmt.Errorf("init config: %w", err)
	}

	configPath, _ := loader.ConfigPath()
	if created {
		fmt.Printf("Created %s\n", configPath)
	} else {
		fmt.Printf("Config already exists: %s\n", configPath)
	}
	return nil
}

func runConfigEdit(_ *cobra.Command, _ []string) error {
	return runConfigEditWithLoader(newLoader(), os.Getenv("EDITOR"))
}

func runConfigEditWithLoader(loader *config.Loader, editor string) error {
	if editor == "" {
		editor = "vi"
	}

	if _, err := loader.InitDefault(); err != nil {
		return fmt.Errorf("init config: %w", err)
	}

	configPath, err := loader.ConfigPath()
	if err != nil {
		return fmt.Errorf("get config path: %w", err)
	}

	// EDITOR may carry flags, e.g. "code --wait".
	args, err := shellquote.Split(editor)
	if err != nil || len(args) == 0 {
		return fmt.Errorf("invalid EDITOR %q", editor)
	}

	cmd := exec.Command(args[0], append(args[1:], configPath)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		return err
	}

	// Report a broken edit right away instead of on the next run.
	if _, err := loader.Load(); err != nil {
		return err
	}
	return nil
}

func runConfigSchema(_ *cobra.Command, _ []string) error {
	data, err := config.Schema()
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}
