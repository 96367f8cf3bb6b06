// Package render turns configured page content into servable HTML.
package render

import (
	"bytes"
	"fmt"
	"html"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	goldmarkhtml "github.com/yuin/goldmark/renderer/html"

	"github.com/shroudlabs/shroud/internal/config"
)

// md converts markdown page bodies to HTML. Page content comes from the
// operator-controlled config, so raw HTML inside markdown is allowed.
var md = goldmark.New(
	goldmark.WithExtensions(
		extension.GFM,
	),
	goldmark.WithRendererOptions(
		goldmarkhtml.WithHardWraps(),
		goldmarkhtml.WithUnsafe(),
	),
)

// Markdown converts a markdown body to HTML.
func Markdown(source string) (string, error) {
	var buf bytes.Buffer
	if err := md.Convert([]byte(source), &buf); err != nil {
		return "", fmt.Errorf("rendering markdown: %w", err)
	}
	return buf.String(), nil
}

// Page renders a full HTML document for the given page config. Bodies in
// markdown format are converted; html bodies are embedded as-is.
func Page(page config.PageConfig) (string, error) {
	body := page.Body
	if page.Format == "markdown" {
		rendered, err := Markdown(page.Body)
		if err != nil {
			return "", err
		}
		body = rendered
	}

	var buf bytes.Buffer
	buf.WriteString("<!DOCTYPE html>\n<html>\n<head>\n")
	buf.WriteString(`<meta charset="utf-8">` + "\n")
	buf.WriteString(`<meta name="viewport" content="width=device-width, initial-scale=1">` + "\n")
	buf.WriteString(`<link rel="manifest" href="/manifest.json">` + "\n")
	if page.Title != "" {
		fmt.Fprintf(&buf, "<title>%s</title>\n", html.EscapeString(page.Title))
	}
	buf.WriteString("</head>\n<body>\n")
	buf.WriteString(body)
	buf.WriteString("\n</body>\n</html>\n")
	return buf.String(), nil
}
