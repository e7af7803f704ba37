package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Proton-105/rumor-bot/pkg/config"
)

var (
	configPath string
	appEnv     string
)

var rootCmd = &cobra.Command{
	Use:   "rumorbot",
	Short: "Telegram bot that checks forwarded messages against a fact-check database",
	Long: `rumorbot answers forwarded messages with fact-check replies from the
content service, walks users through choosing an article and a reply,
collects feedback and lets users submit unknown messages for review.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (defaults to configs/<env>.yaml)")
	rootCmd.PersistentFlags().StringVar(&appEnv, "env", "", "application environment (overrides APP_ENV)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(chatCmd)
}

func loadConfig() (*config.Config, *viper.Viper, error) {
	if appEnv != "" {
		if err := os.Setenv("APP_ENV", appEnv); err != nil {
			return nil, nil, fmt.Errorf("set APP_ENV: %w", err)
		}
	}
	if configPath == "" {
		return config.Load()
	}

	env := appEnv
	if env == "" {
		env = os.Getenv("APP_ENV")
	}
	return config.LoadFile(configPath, env)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
