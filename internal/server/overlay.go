package server

import (
	"errors"
	"fmt"
	stdhtml "html"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/coralpages/reef/internal/artifact"
	"github.com/coralpages/reef/internal/compiler"
	reeferr "github.com/coralpages/reef/internal/errors"
)

// liveReloadScript reconnects with backoff and reloads the page on any
// reload message from the hub.
const liveReloadScript = `(function () {
  var delay = 250;
  function connect() {
    var ws = new WebSocket("ws://" + location.host + "/ws");
    ws.onmessage = function (ev) {
      var msg = JSON.parse(ev.data);
      if (msg.type === "reload") location.reload();
    };
    ws.onclose = function () {
      setTimeout(connect, delay);
      if (delay < 4000) delay *= 2;
    };
  }
  connect();
})();`

// buildPreviewPage wraps a compiled skeleton in a full HTML document,
// embeds the artifact payload for the hydration runtime, and injects
// the live-reload script. The skeleton passes through an HTML parse so
// malformed markup is normalized the way a browser would see it.
func buildPreviewPage(tpl *artifact.CompiledTemplate, liveReload bool) (string, error) {
	page := "<!DOCTYPE html><html><head><meta charset=\"utf-8\"><title>Reef Preview</title></head><body>" +
		tpl.Skeleton + "</body></html>"

	doc, err := html.Parse(strings.NewReader(page))
	if err != nil {
		return "", fmt.Errorf("skeleton does not parse as HTML: %w", err)
	}

	body := findElement(doc, atom.Body)
	if body == nil {
		return "", fmt.Errorf("parsed document has no body")
	}

	payload, err := artifact.EncodeJSON(tpl)
	if err != nil {
		return "", err
	}
	body.AppendChild(scriptNode(string(payload), map[string]string{
		"type": "application/json",
		"id":   "reef-artifact",
	}))

	if liveReload {
		body.AppendChild(scriptNode(liveReloadScript, nil))
	}

	var sb strings.Builder
	if err := html.Render(&sb, doc); err != nil {
		return "", err
	}
	return sb.String(), nil
}

func findElement(n *html.Node, a atom.Atom) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == a {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, a); found != nil {
			return found
		}
	}
	return nil
}

func scriptNode(content string, attrs map[string]string) *html.Node {
	n := &html.Node{
		Type:     html.ElementNode,
		DataAtom: atom.Script,
		Data:     "script",
	}
	for k, v := range attrs {
		n.Attr = append(n.Attr, html.Attribute{Key: k, Val: v})
	}
	n.AppendChild(&html.Node{Type: html.TextNode, Data: content})
	return n
}

// renderOverlay produces the full-page error overlay for a template
// that failed to compile: every batched error with its location and,
// for limit violations, the corrective suggestion.
func renderOverlay(name string, err error) string {
	var sb strings.Builder
	sb.WriteString("<!DOCTYPE html><html><head><meta charset=\"utf-8\">")
	sb.WriteString("<title>Compile error</title><style>")
	sb.WriteString("body{background:#1e1e1e;color:#eee;font-family:monospace;padding:2rem}")
	sb.WriteString(".err{background:#3a1d1d;border-left:4px solid #e06c75;margin:1rem 0;padding:1rem}")
	sb.WriteString(".hint{color:#98c379;margin-top:.5rem}")
	sb.WriteString("</style></head><body>")
	fmt.Fprintf(&sb, "<h1>%s failed to compile</h1>", stdhtml.EscapeString(name))

	for _, e := range overlayErrors(err) {
		sb.WriteString(`<div class="err">`)
		sb.WriteString(stdhtml.EscapeString(e.Error()))
		if hint := reeferr.Suggestion(e); hint != "" {
			fmt.Fprintf(&sb, `<div class="hint">hint: %s</div>`, stdhtml.EscapeString(hint))
		}
		sb.WriteString("</div>")
	}

	sb.WriteString(`<script type="text/javascript">` + liveReloadScript + "</script>")
	sb.WriteString("</body></html>")
	return sb.String()
}

func overlayErrors(err error) []error {
	var ce *compiler.CompileError
	if errors.As(err, &ce) {
		out := make([]error, len(ce.Errors))
		for i, e := range ce.Errors {
			out[i] = e
		}
		return out
	}
	return []error{err}
}
