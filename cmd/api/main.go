package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func main() {
	//.envはあれば読む（なければ環境変数だけ）
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:           "fulfillment",
		Short:         "order fulfillment API",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	rootCmd.AddCommand(
		serveCommand(),
		migrateCommand(),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
