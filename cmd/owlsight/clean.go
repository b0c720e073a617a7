package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"owlsight/internal/workspace"
)

var cleanKeepDisk bool

func init() {
	cleanCmd.Flags().BoolVar(&cleanKeepDisk, "keep-disk-cache", false, "keep the shared per-function cache")
}

var cleanCmd = &cobra.Command{
	Use:   "clean [path]",
	Short: "Remove the project's cache.json and the per-function cache",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runClean,
}

func runClean(cmd *cobra.Command, args []string) error {
	start := "."
	if len(args) > 0 && args[0] != "" {
		start = args[0]
	}
	p, err := resolveProject(start, false)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	path := workspace.CachePath(p.CacheDir())
	if err := workspace.Remove(path); err != nil {
		return fmt.Errorf("failed to remove %q: %w", path, err)
	}
	fmt.Fprintf(out, "removed %s\n", formatPathForOutput(p.Root, path))

	if cleanKeepDisk {
		return nil
	}
	cache, err := openDiskCache()
	if err != nil {
		return err
	}
	if err := cache.DropAll(); err != nil {
		return fmt.Errorf("failed to clear %q: %w", cache.Dir(), err)
	}
	fmt.Fprintf(out, "cleared %s\n", cache.Dir())
	return nil
}
