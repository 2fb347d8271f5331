package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sitegate/internal/config"
)

func newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Validate the configuration and static root, then exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			printSummary(cmd.OutOrStdout(), cfg)
			return nil
		},
	}
}

// printSummary writes the effective configuration with secrets redacted
func printSummary(w io.Writer, cfg *config.Config) {
	gh := cfg.Auth.GitHub
	rows := [][2]string{
		{"listen address", cfg.ServerAddress},
		{"static root", cfg.StaticRoot},
		{"callback url", cfg.CallbackURL()},
		{"github client id", gh.ClientID},
		{"github client secret", redact(gh.ClientSecret)},
		{"organization", orNone(gh.Organization)},
		{"teams", orNone(strings.Trim(fmt.Sprint(gh.TeamIDs), "[]"))},
		{"allowed users", orNone(strings.Join(gh.AllowedUsers, ", "))},
		{"whitelist", orNone(strings.Join(cfg.Whitelist, " "))},
		{"session store", cfg.Session.Store},
		{"session secret", redact(cfg.Session.Secret)},
		{"session ttl", cfg.Session.TTL.String()},
		{"enforce ssl", fmt.Sprint(cfg.EnforceSSL)},
		{"metrics", fmt.Sprint(cfg.Metrics.Enabled)},
	}
	for _, row := range rows {
		fmt.Fprintf(w, "%-22s %s\n", row[0]+":", row[1])
	}
	fmt.Fprintln(w, "configuration OK")
}

func redact(secret string) string {
	if secret == "" {
		return "(not set)"
	}
	return "********"
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}
