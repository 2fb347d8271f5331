package main

import (
	"os"

	"github.com/spf13/cobra"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "sitegate",
		Short: "Serves a static site to GitHub organization and team members only",
		Long: `sitegate serves a built static site (a jekyll _site directory by default)
behind GitHub OAuth. Visitors sign in with GitHub and are let through when they
are an allowed user or a member of the configured organization or teams.

Configuration is read from the environment and an optional .env file.`,
		Version:      version,
		SilenceUsage: true,
	}
	root.SetVersionTemplate(`{{printf "sitegate version %s\n" .Version}}`)
	root.PersistentFlags().String("env-file", ".env", "dotenv file loaded before reading the environment")

	root.AddCommand(newServeCmd())
	root.AddCommand(newCheckCmd())
	root.AddCommand(newVersionCmd())
	return root
}

func main() {
	// If no subcommand is provided, serve
	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Printf("sitegate version %s\n", version)
		},
	}
}
