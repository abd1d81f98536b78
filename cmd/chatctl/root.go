package main

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/suPer8Hu/chatcore/internal/config"
	"github.com/suPer8Hu/chatcore/internal/db"
	"github.com/suPer8Hu/chatcore/internal/observability"
	"gorm.io/gorm"
)

// rootCmd is the admin entry point. Flags override the same settings read
// from the environment by the server (DB_DRIVER, DB_DSN, JWT_SECRET ...).
var rootCmd = &cobra.Command{
	Use:           "chatctl",
	Short:         "Administrative tasks for the chat core",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	_ = godotenv.Load()

	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	rootCmd.PersistentFlags().String("db-driver", "", "store driver (sqlite|mysql), defaults to DB_DRIVER")
	_ = viper.BindPFlag("db_driver", rootCmd.PersistentFlags().Lookup("db-driver"))

	rootCmd.PersistentFlags().String("db-dsn", "", "store DSN, defaults to DB_DSN")
	_ = viper.BindPFlag("db_dsn", rootCmd.PersistentFlags().Lookup("db-dsn"))

	rootCmd.PersistentFlags().StringP("log-level", "v", "", "log level, defaults to LOG_LEVEL")
	_ = viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
}

// loadConfig reads the process config and applies flag overrides.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, err
	}
	if v := viper.GetString("db_driver"); v != "" {
		cfg.DBDriver = strings.ToLower(v)
	}
	if v := viper.GetString("db_dsn"); v != "" {
		cfg.DBDSN = v
	}
	if v := viper.GetString("log_level"); v != "" {
		cfg.LogLevel = v
	}
	if v := viper.GetString("jwt_secret"); v != "" {
		cfg.JWTSecret = v
	}
	if v := viper.GetString("jwt_issuer"); v != "" {
		cfg.JWTIssuer = v
	}
	return cfg, cfg.Validate()
}

func openStore(cfg config.Config) (*gorm.DB, *slog.Logger, error) {
	log, err := observability.NewLogger(cfg.LogLevel, "text")
	if err != nil {
		return nil, nil, err
	}
	gdb, err := db.Connect(cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("open store: %w", err)
	}
	return gdb, log, nil
}
