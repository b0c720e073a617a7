package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"owlsight/internal/version"
)

// buildInfo is what `owlsight version` reports. Empty optional fields are
// left out of both renderings.
type buildInfo struct {
	Tool      string `json:"tool"`
	Version   string `json:"version"`
	GitCommit string `json:"git_commit,omitempty"`
	BuildDate string `json:"build_date,omitempty"`
}

func newVersionCmd() *cobra.Command {
	var (
		format           string
		hash, date, full bool
	)
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show owlsight build information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			info := currentBuild(hash || full, date || full)
			switch strings.ToLower(format) {
			case "pretty":
				writeBuildPretty(cmd.OutOrStdout(), info)
				return nil
			case "json":
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(info)
			}
			return fmt.Errorf("unsupported format %q (must be pretty or json)", format)
		},
	}
	cmd.Flags().BoolVar(&hash, "hash", false, "include git commit hash")
	cmd.Flags().BoolVar(&date, "date", false, "include build timestamp")
	cmd.Flags().BoolVar(&full, "full", false, "show all recorded build metadata")
	cmd.Flags().StringVar(&format, "format", "pretty", "output format (pretty|json)")
	return cmd
}

func currentBuild(withHash, withDate bool) buildInfo {
	info := buildInfo{Tool: "owlsight", Version: orDefault(version.Version, "dev")}
	if withHash {
		info.GitCommit = orDefault(version.GitCommit, "unknown")
	}
	if withDate {
		info.BuildDate = orDefault(version.BuildDate, "unknown")
	}
	return info
}

// orDefault returns s trimmed, or fallback when it is blank.
func orDefault(s, fallback string) string {
	if s = strings.TrimSpace(s); s != "" {
		return s
	}
	return fallback
}

func writeBuildPretty(w io.Writer, info buildInfo) {
	fmt.Fprintf(w, "%s %s\n", info.Tool, version.Colored())
	if info.GitCommit != "" {
		fmt.Fprintf(w, "commit: %s\n", info.GitCommit)
	}
	if info.BuildDate != "" {
		fmt.Fprintf(w, "built:  %s\n", info.BuildDate)
	}
}
