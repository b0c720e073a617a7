package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"fortio.org/safecast"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"owlsight/internal/decoration"
	"owlsight/internal/model"
	"owlsight/internal/source"
	"owlsight/internal/ui"
	"owlsight/internal/workspace"
)

var (
	showLine   int
	showChar   int
	showFormat string
)

func init() {
	showCmd.Flags().IntVar(&showLine, "line", 1, "cursor line (1-based)")
	showCmd.Flags().IntVar(&showChar, "char", 1, "cursor column in characters (1-based)")
	showCmd.Flags().StringVar(&showFormat, "format", "pretty", "output format (pretty|json)")
}

var showCmd = &cobra.Command{
	Use:   "show <file>",
	Short: "Print the decorations at a cursor position from the project cache",
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

type showRange struct {
	Start source.LineChar `json:"start"`
	End   source.LineChar `json:"end"`
}

type showDecoration struct {
	Type       decoration.Kind `json:"type"`
	Local      model.FnLocal   `json:"local"`
	Range      showRange       `json:"range"`
	HoverText  string          `json:"hover_text"`
	Overlapped bool            `json:"overlapped"`
}

// showResult mirrors the owlsight/cursor response; positions are zero-based.
type showResult struct {
	IsAnalyzed  bool             `json:"is_analyzed"`
	Status      workspace.Status `json:"status"`
	Path        string           `json:"path"`
	Decorations []showDecoration `json:"decorations"`
}

func runShow(cmd *cobra.Command, args []string) error {
	format := strings.ToLower(showFormat)
	if format != "pretty" && format != "json" {
		return fmt.Errorf("unsupported format %q (must be pretty or json)", showFormat)
	}
	line, err := safecast.Conv[uint32](showLine - 1)
	if err != nil || showLine < 1 {
		return fmt.Errorf("invalid --line %d", showLine)
	}
	char, err := safecast.Conv[uint32](showChar - 1)
	if err != nil || showChar < 1 {
		return fmt.Errorf("invalid --char %d", showChar)
	}

	path, err := filepath.Abs(args[0])
	if err != nil {
		return err
	}
	p, err := resolveProject(path, false)
	if err != nil {
		return err
	}
	// #nosec G304 -- path is provided by the user
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %q: %w", args[0], err)
	}
	data, _ = source.Normalize(data)
	text := source.NewText(string(data))

	res, err := queryCache(p.Root, workspace.CachePath(p.CacheDir()), path, text, source.LineChar{Line: line, Char: char})
	if err != nil {
		return err
	}
	if format == "json" {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}
	renderShowPretty(cmd.OutOrStdout(), formatPathForOutput(p.Root, path), text, res)
	return nil
}

// queryCache answers a cursor query at pos from the cache.json at cachePath.
func queryCache(root, cachePath, path string, text *source.Text, pos source.LineChar) (showResult, error) {
	ws, err := workspace.Load(cachePath)
	if err != nil {
		return showResult{}, err
	}
	store := workspace.NewStore()
	if ws != nil {
		store.Replace(ws)
	}
	q := store.Cursor(root, path, text.Index(pos))
	res := showResult{
		IsAnalyzed:  q.Analyzed,
		Status:      q.Status,
		Path:        path,
		Decorations: make([]showDecoration, 0, len(q.Decorations)),
	}
	for _, d := range q.Decorations {
		res.Decorations = append(res.Decorations, showDecoration{
			Type:       d.Kind,
			Local:      d.Local,
			Range:      showRange{Start: text.LineChar(d.Range.From), End: text.LineChar(d.Range.Until)},
			HoverText:  d.HoverText,
			Overlapped: d.Overlapped,
		})
	}
	return res, nil
}

func renderShowPretty(out io.Writer, name string, text *source.Text, res showResult) {
	if !res.IsAnalyzed {
		fmt.Fprintf(out, "%s no cached analysis, run `owlsight check` first\n", color.YellowString("note:"))
		return
	}
	if res.Status == workspace.StatusError {
		fmt.Fprintf(out, "%s %s was not analyzed\n", color.RedString("error:"), name)
		return
	}
	rows := make([]ui.DecorationRow, 0, len(res.Decorations))
	for _, d := range res.Decorations {
		rows = append(rows, ui.DecorationRow{
			Kind:       d.Type.String(),
			Start:      ui.Position{Line: d.Range.Start.Line, Char: d.Range.Start.Char},
			End:        ui.Position{Line: d.Range.End.Line, Char: d.Range.End.Char},
			Hover:      d.HoverText,
			Overlapped: d.Overlapped,
		})
	}
	ui.RenderDecorations(out, name, strings.Split(text.String(), "\n"), rows)
}
