package render

import (
	"strings"
	"testing"

	"github.com/shroudlabs/shroud/internal/config"
)

func TestMarkdown(t *testing.T) {
	out, err := Markdown("# Hello\n\nSome **bold** text.")
	if err != nil {
		t.Fatalf("Markdown failed: %v", err)
	}
	if !strings.Contains(out, "<h1") || !strings.Contains(out, "<strong>bold</strong>") {
		t.Errorf("Unexpected markdown output: %s", out)
	}
}

func TestPageHTMLBody(t *testing.T) {
	out, err := Page(config.PageConfig{
		Title: "Welcome <script>",
		Body:  "<h1>Hi</h1>",
	})
	if err != nil {
		t.Fatalf("Page failed: %v", err)
	}
	if !strings.Contains(out, "<h1>Hi</h1>") {
		t.Error("Expected body embedded as-is")
	}
	if !strings.Contains(out, "Welcome &lt;script&gt;") {
		t.Errorf("Expected escaped title, got: %s", out)
	}
	if !strings.Contains(out, `rel="manifest"`) {
		t.Error("Expected manifest link in head")
	}
}

func TestPageMarkdownBody(t *testing.T) {
	out, err := Page(config.PageConfig{
		Title:  "Doc",
		Body:   "## Section",
		Format: "markdown",
	})
	if err != nil {
		t.Fatalf("Page failed: %v", err)
	}
	if !strings.Contains(out, "<h2") {
		t.Errorf("Expected markdown converted, got: %s", out)
	}
}
