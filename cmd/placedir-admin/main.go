// placedir-admin is the operator tooling for a placedir deployment. It works
// directly against the database file, which is how the very first admin
// account comes to exist before any API caller holds the admin role.
package main

import (
	"fmt"
	"os"

	_ "github.com/mattn/go-sqlite3"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var dbPath string

	cmd := &cobra.Command{
		Use:           "placedir-admin",
		Short:         "Admin tooling for the placedir identity platform",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&dbPath, "db", "placedir.sqlite", "path to the SQLite database file")

	cmd.AddCommand(newInitAdminCmd(&dbPath))
	cmd.AddCommand(newCreateOperatorCmd(&dbPath))
	cmd.AddCommand(newMintTokenCmd(&dbPath))
	cmd.AddCommand(newSweepCmd(&dbPath))
	return cmd
}
