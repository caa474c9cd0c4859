package main

import (
	"log"

	"github.com/hcengineering/platform-sub028/cmd"
	"github.com/hcengineering/platform-sub028/cmd/migrate"
	"github.com/hcengineering/platform-sub028/cmd/run"
)

func main() {
	rootCmd := cmd.NewRootCommand()

	rootCmd.AddCommand(run.NewRunCommand())
	rootCmd.AddCommand(migrate.NewMigrateCommand())

	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
