package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

var rootCmd = &cobra.Command{
	Use:   "lexsift",
	Short: "Legal document analysis service",
	Long:  "lexsift ingests PDF documents and serves summarization, risk analysis, and grounded Q&A over them.",
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the lexsift version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("lexsift version " + version)
	},
}

func main() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
