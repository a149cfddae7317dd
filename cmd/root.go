/*
Copyright © 2025 Valentyn Solomko <valentyn.solomko@gmail.com>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/valpere/bhasha/internal/config"
)

var version = "0.1.0"

var (
	cfgFile      string
	globalConfig *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "bhasha",
	Short: "Language identification for a multilingual college assistant",
	Long: `Identifies which Indian language a chat message is written in, including
romanized text, and forwards messages to the assistant backend in that language.

Supported languages: English, Hindi, Tamil, Telugu, Gujarati, Marathi, Marwari

Detection runs offline with a lexical heuristic, or through remote services
(OpenAI-compatible, Ollama, Google Cloud Translation, lingua) with the
heuristic as fallback.

Examples:
  bhasha detect "aap kaise ho"
  bhasha detect --remote --explain "vanakkam nandri"
  bhasha chat "admission kab start hoga"
  bhasha serve --port 8080`,
	Version:      version,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.NewLoader().LoadWithFile(cfgFile)
		if err != nil {
			return err
		}
		globalConfig = cfg
		setupLogging(cfg, cmd.Name() == "serve" && cfg.Server.JSONLogs)

		if used := viper.ConfigFileUsed(); used != "" {
			slog.Debug("configuration loaded", "file", used)
		}
		return nil
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is bhasha.yaml in ., $HOME/.config/bhasha, /etc/bhasha)")
	rootCmd.PersistentFlags().Bool("verbose", false, "verbose output (equivalent to --log-level=debug)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("db", "./data/bhasha.db", "SQLite database for detection history and cache")
	rootCmd.PersistentFlags().String("profiles", "", "language profile catalog (YAML); the built-in catalog is used if empty")

	viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("db_path", rootCmd.PersistentFlags().Lookup("db"))
	viper.BindPFlag("profiles_file", rootCmd.PersistentFlags().Lookup("profiles"))
}

func setupLogging(cfg *config.Config, json bool) {
	level := slog.LevelInfo
	if cfg.Verbose {
		level = slog.LevelDebug
	} else {
		switch cfg.LogLevel {
		case "debug":
			level = slog.LevelDebug
		case "warn":
			level = slog.LevelWarn
		case "error":
			level = slog.LevelError
		}
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler = slog.NewTextHandler(os.Stderr, opts)
	if json {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
}
