package extract

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"

	"chatdoc/internal/service"
)

var markdownParser = goldmark.New(
	goldmark.WithExtensions(extension.Table),
)

// extractMarkdown parses markdown into an AST and collects its text
// content, separating block elements with newlines so the segmenter's
// separator still finds boundaries.
func extractMarkdown(name string, data []byte) (string, error) {
	doc := markdownParser.Parser().Parse(text.NewReader(data))

	var builder strings.Builder
	err := ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}

		switch node := n.(type) {
		case *ast.Text:
			builder.Write(node.Segment.Value(data))
		case *ast.String:
			builder.Write(node.Value)
		case *ast.CodeBlock:
			lines := node.Lines()
			for i := 0; i < lines.Len(); i++ {
				line := lines.At(i)
				builder.Write(line.Value(data))
			}
		case *ast.FencedCodeBlock:
			lines := node.Lines()
			for i := 0; i < lines.Len(); i++ {
				line := lines.At(i)
				builder.Write(line.Value(data))
			}
		case *ast.Heading, *ast.Paragraph, *ast.ListItem:
			if builder.Len() > 0 && !strings.HasSuffix(builder.String(), "\n") {
				builder.WriteString("\n")
			}
		}
		return ast.WalkContinue, nil
	})
	if err != nil {
		return "", &service.ExtractionError{Name: name, Err: err}
	}

	return builder.String(), nil
}
