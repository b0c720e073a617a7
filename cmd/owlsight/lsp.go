package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"owlsight/internal/config"
	"owlsight/internal/driver"
	"owlsight/internal/lsp"
)

var (
	lspDebounce time.Duration
	lspNoCache  bool
)

func init() {
	lspCmd.Flags().DurationVar(&lspDebounce, "debounce", time.Duration(config.Default().Server.DebounceMS)*time.Millisecond, "delay between a save and the analysis it triggers")
	lspCmd.Flags().BoolVar(&lspNoCache, "no-disk-cache", false, "do not reuse per-function results between runs")
}

var lspCmd = &cobra.Command{
	Use:          "lsp",
	Short:        "Run the owlsight language server over stdio",
	SilenceUsage: true,
	RunE:         runLSP,
}

func runLSP(cmd *cobra.Command, _ []string) error {
	opts := lsp.ServerOptions{
		Debounce:       lspDebounce,
		AnalyzerStderr: os.Stderr,
	}
	if !lspNoCache {
		cache, err := openDiskCache()
		if err != nil {
			fmt.Fprintf(os.Stderr, "lsp: disk cache disabled: %v\n", err)
		}
		opts.Cache = cache
	}
	server := lsp.NewServer(os.Stdin, os.Stdout, opts)
	if err := server.Run(cmd.Context()); err != nil {
		if errors.Is(err, lsp.ErrExit) {
			return nil
		}
		if errors.Is(err, lsp.ErrExitWithoutShutdown) {
			return fmt.Errorf("lsp exit without shutdown")
		}
		return err
	}
	return nil
}

func openDiskCache() (*driver.DiskCache, error) {
	dir, err := driver.DefaultCacheDir("owlsight")
	if err != nil {
		return nil, err
	}
	return driver.OpenDiskCache(dir)
}
