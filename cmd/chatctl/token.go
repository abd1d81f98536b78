package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/suPer8Hu/chatcore/internal/session"
)

// tokenCmd mints a bearer token for local testing; real tokens come from the
// auth service.
var tokenCmd = &cobra.Command{
	Use:   "token <identity>",
	Short: "Sign a session token for an identity",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		tok, err := session.SignToken(cfg.JWTSecret, cfg.JWTIssuer, args[0], viper.GetDuration("ttl"))
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), tok)
		return err
	},
}

func init() {
	tokenCmd.Flags().Duration("ttl", 24*time.Hour, "token lifetime")
	_ = viper.BindPFlag("ttl", tokenCmd.Flags().Lookup("ttl"))
	rootCmd.AddCommand(tokenCmd)
}
