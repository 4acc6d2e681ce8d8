package outline

import (
	"fmt"
	"html"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/iromo/iromo/internal/topic"
)

// Source supplies topic text and highlights for the HTML export.
type Source interface {
	GetContent(id string) (string, error)
	Highlights(parentID string) ([]topic.Highlight, error)
}

// HTMLOptions controls WriteHTML.
type HTMLOptions struct {
	Title string
	Since *time.Time
}

const htmlHeader = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>%s</title>
<style>
  body { font-family: -apple-system, system-ui, sans-serif; margin: 2rem; }
  body { background: #fafafa; max-width: 60rem; }
  details { margin-left: 1.5rem; }
  summary { cursor: pointer; padding: 0.3rem 0.5rem; border-radius: 4px; }
  summary { list-style: none; }
  summary:hover { background: #e8e8e8; }
  summary::-webkit-details-marker { display: none; }
  summary::before { content: "▶ "; font-size: 0.7em; color: #666; }
  details[open] > summary::before { content: "▼ "; }
  .root { margin-left: 0; }
  .title { font-weight: 500; }
  .new > summary .title { color: #d95f02; }
  .content { white-space: pre-wrap; margin: 0.3rem 0 0.8rem 1.2rem; padding: 0.5rem; }
  .content { background: white; border-left: 3px solid #ddd; }
  mark { background: #fff3a8; }
  mark a { color: inherit; text-decoration: none; }
  .stale { font-size: 0.85em; color: #a6761d; margin-left: 1.2rem; }
  .help { position: fixed; bottom: 1rem; right: 1rem; font-size: 0.85em; color: #666; }
  .help kbd { background: #eee; padding: 0.1rem 0.4rem; border-radius: 3px; }
</style>
</head>
<body>
<h1>%s</h1>
`

const htmlFooter = `
<div class="help"><kbd>c</kbd> collapse all <kbd>e</kbd> expand all</div>
<script>
const sel = 'details';
function collapseAll() { document.querySelectorAll(sel).forEach(d => d.open = false); }
function expandAll() { document.querySelectorAll(sel).forEach(d => d.open = true); }
document.addEventListener('keydown', e => {
  if (e.key === 'c') collapseAll();
  if (e.key === 'e') expandAll();
});
</script>
</body>
</html>
`

// WriteHTML renders the forest with each topic's text. Extracted spans are
// marked and link to the child topic; stale spans are listed below the text
// instead.
func WriteHTML(w io.Writer, entries []topic.Entry, src Source, opts HTMLOptions) error {
	title := opts.Title
	if title == "" {
		title = "Topics"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, htmlHeader, html.EscapeString(title), html.EscapeString(title))

	roots := Build(entries)
	if len(roots) == 0 {
		sb.WriteString("<p>No topics.</p>\n")
	}
	for _, n := range roots {
		if err := renderNode(&sb, n, true, src, opts); err != nil {
			return err
		}
	}
	sb.WriteString(htmlFooter)

	_, err := io.WriteString(w, sb.String())
	return err
}

func renderNode(sb *strings.Builder, n *Node, isRoot bool, src Source, opts HTMLOptions) error {
	text, err := src.GetContent(n.Topic.ID)
	if err != nil {
		return err
	}
	highlights, err := src.Highlights(n.Topic.ID)
	if err != nil {
		return err
	}

	var classes []string
	if isRoot {
		classes = append(classes, "root")
	}
	if IsNew(&n.Topic, opts.Since) {
		classes = append(classes, "new")
	}
	classAttr := ""
	if len(classes) > 0 {
		classAttr = fmt.Sprintf(` class="%s"`, strings.Join(classes, " "))
	}

	fmt.Fprintf(sb, `<details id="t-%s"%s open><summary><span class="title">%s</span></summary>`,
		html.EscapeString(n.Topic.ID), classAttr, html.EscapeString(n.Topic.Title))
	fmt.Fprintf(sb, `<div class="content">%s</div>`, Mark(text, highlights))

	var stale []string
	for _, h := range highlights {
		if h.Stale {
			stale = append(stale, fmt.Sprintf(`<a href="#t-%s">[%d, %d)</a>`,
				html.EscapeString(h.ChildTopicID), h.StartChar, h.EndChar))
		}
	}
	if len(stale) > 0 {
		fmt.Fprintf(sb, `<div class="stale">Extractions no longer matching the text: %s</div>`, strings.Join(stale, " "))
	}

	for _, child := range n.Children {
		if err := renderNode(sb, child, false, src, opts); err != nil {
			return err
		}
	}
	sb.WriteString("</details>\n")
	return nil
}

// Mark returns text as escaped HTML with each fitting, non-overlapping
// highlight wrapped in a <mark> linking to its child topic.
func Mark(text string, highlights []topic.Highlight) string {
	var spans []topic.Highlight
	for _, h := range highlights {
		if !h.Stale {
			spans = append(spans, h)
		}
	}
	sort.SliceStable(spans, func(i, j int) bool {
		if spans[i].StartChar != spans[j].StartChar {
			return spans[i].StartChar < spans[j].StartChar
		}
		return spans[i].EndChar > spans[j].EndChar
	})

	runes := []rune(text)
	var sb strings.Builder
	pos := 0
	for _, h := range spans {
		if h.StartChar < pos || h.EndChar > len(runes) {
			continue // nested or overlapping an earlier mark
		}
		sb.WriteString(html.EscapeString(string(runes[pos:h.StartChar])))
		fmt.Fprintf(&sb, `<mark><a href="#t-%s">%s</a></mark>`,
			html.EscapeString(h.ChildTopicID), html.EscapeString(string(runes[h.StartChar:h.EndChar])))
		pos = h.EndChar
	}
	sb.WriteString(html.EscapeString(string(runes[pos:])))
	return sb.String()
}
