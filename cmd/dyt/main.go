package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	configPath string
	quiet      bool
	rootCmd    = &cobra.Command{
		Use:   "dyt",
		Short: "dyt - client for a video-download service",
		Long: `A command-line client for a video-download service: search, inspect
videos and playlists, and download audio or video with optional trimming.`,
		SilenceUsage: true,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default: ./configs, $HOME/.dyt or /etc/dyt)")
	rootCmd.PersistentFlags().BoolVar(&quiet, "quiet", false, "Only print results and errors")

	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(infoCmd)
	rootCmd.AddCommand(downloadCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(logsCmd)
	rootCmd.AddCommand(configCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("Error: "+err.Error()))
		os.Exit(1)
	}
}
