package main

import (
	"fmt"
	"os"

	"github.com/Automaat/shader-buster/internal/cli"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "shader-buster",
	Short: "Shader and GPU cache cleaner",
	Long: `A CLI tool that finds the shader caches left behind by GPU drivers,
game launchers, engines and browsers, and deletes them safely.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cli.ConfigPath, "config", "", "Config file (default is the platform config dir)")

	rootCmd.AddCommand(cli.StatusCmd)
	rootCmd.AddCommand(cli.CleanCmd)
	rootCmd.AddCommand(cli.InteractiveCmd)
	rootCmd.AddCommand(cli.ConfigCmd)
	rootCmd.AddCommand(cli.BackupCmd)
	rootCmd.AddCommand(cli.HistoryCmd)
	rootCmd.AddCommand(cli.ScheduleCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
