package lsp

import (
	"os"

	"owlsight/internal/decoration"
	"owlsight/internal/model"
	"owlsight/internal/source"
)

// readText loads the saved content of path the same way the analyzer saw it.
func readText(path string) (*source.Text, error) {
	// #nosec G304 -- path belongs to a document opened by the client
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	data, _ = source.Normalize(data)
	return source.NewText(string(data)), nil
}

func toLoc(text *source.Text, pos position) model.Loc {
	return text.Index(source.LineChar{Line: pos.Line, Char: pos.Character})
}

func toPosition(text *source.Text, loc model.Loc) position {
	lc := text.LineChar(loc)
	return position{Line: lc.Line, Character: lc.Char}
}

func toLSPDecorations(text *source.Text, ds []decoration.Decoration) []lspDecoration {
	out := make([]lspDecoration, 0, len(ds))
	for _, d := range ds {
		out = append(out, lspDecoration{
			Type:  d.Kind,
			Local: d.Local,
			Range: lspRange{
				Start: toPosition(text, d.Range.From),
				End:   toPosition(text, d.Range.Until),
			},
			HoverText:  d.HoverText,
			Overlapped: d.Overlapped,
		})
	}
	return out
}
