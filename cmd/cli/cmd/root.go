// Package cmd provides the CLI commands for jewelquote.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"jewelquote/internal/config"
	"jewelquote/internal/logging"
)

var (
	cfgFile string
	verbose bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "jewelquote",
	Short: "Compute reproducible jewelry price quotes",
	Long: `jewelquote prices jewelry products from their metal and gemstone
composition against an immutable rate catalog snapshot.

Every surface computes prices through the same engine, so two products
priced against the same snapshot are always mutually consistent.

Examples:
  jewelquote quote --metal 18k_yellow_gold --weight 5 --main-stone ruby --main-carats 1.2
  jewelquote rates import rates.hcl
  jewelquote rates list`,
}

// Execute runs the CLI
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.jewelquote/config.json)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")

	// Add subcommands
	rootCmd.AddCommand(quoteCmd)
	rootCmd.AddCommand(ratesCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(configCmd)
}

func initConfig() {
	path := cfgFile
	if path == "" {
		homeDir, _ := os.UserHomeDir()
		path = homeDir + "/.jewelquote/config.json"
	}

	cfg, err := config.Load(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	config.Set(cfg)

	if verbose {
		cfg.Logging.Level = "debug"
	}
	if err := logging.Initialize(cfg.Logging); err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing logging: %v\n", err)
	}
}

// versionCmd prints version information
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("jewelquote version 0.1.0")
	},
}

// configCmd manages configuration
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Get()
		fmt.Printf("server.addr:               %s\n", cfg.Server.Addr)
		fmt.Printf("storage.database_path:     %s\n", cfg.Storage.DatabasePath)
		fmt.Printf("pricing.fallback_usd_to_inr: %s\n", cfg.Pricing.FallbackUSDToINR.String())
		fmt.Printf("logging.level:             %s\n", cfg.Logging.Level)
		return nil
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default config file",
	RunE: func(cmd *cobra.Command, args []string) error {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return err
		}
		path := homeDir + "/.jewelquote/config.json"
		if err := config.Default().Save(path); err != nil {
			return fmt.Errorf("write config: %w", err)
		}
		fmt.Printf("Wrote %s\n", path)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
}
