package server

import (
	"net/http"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/coralpages/reef/internal/artifact"
	"github.com/coralpages/reef/internal/registry"
	"github.com/coralpages/reef/internal/runtime"
)

// mockBindings are the read-only session and page values the preview
// injects, so templates that reference external collaborators render
// with plausible data instead of failing their prop resolution.
func mockBindings() map[string]any {
	return map[string]any{
		"user": map[string]any{
			"handle":      "coraline",
			"displayName": "Coraline Jones",
			"bio":         "building small pages on the open web",
		},
		"page": map[string]any{
			"title": "My Page",
			"views": float64(1234),
			"theme": "tidepool",
		},
		"posts": []any{
			map[string]any{"title": "hello world", "likes": float64(12)},
			map[string]any{"title": "second post", "likes": float64(3)},
		},
	}
}

// handleRendered serves a server-side hydrated preview: every island is
// mounted with the mock bindings and its rendered HTML is spliced into
// the skeleton's mount markers. This shows the post-hydration page
// without a browser runtime.
func (s *PreviewServer) handleRendered(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimPrefix(r.URL.Path, "/rendered/")

	tpl, ok := s.Template(name)
	if !ok {
		http.NotFound(w, r)
		return
	}

	reg := registry.New(s.logger)
	pre, _ := reg.PreloadAll(r.Context(), tpl.ComponentNames())

	rt := runtime.New(tpl, pre, runtime.Options{
		Bindings: mockBindings(),
		Logger:   s.logger,
	})
	rt.HydrateAll(r.Context())
	defer rt.UnmountAll()

	page, err := spliceIslands(tpl, rt)
	if err != nil {
		s.logger.Error(r.Context(), err, "failed to splice islands", "template", name)
		http.Error(w, "failed to render", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(page))
}

// spliceIslands replaces each mount marker in the skeleton with the
// island's hydrated HTML.
func spliceIslands(tpl *artifact.CompiledTemplate, rt *runtime.Runtime) (string, error) {
	page := "<!DOCTYPE html><html><head><meta charset=\"utf-8\"><title>Reef Preview</title></head><body>" +
		tpl.Skeleton + "</body></html>"

	doc, err := html.Parse(strings.NewReader(page))
	if err != nil {
		return "", err
	}

	var walk func(n *html.Node) error
	walk = func(n *html.Node) error {
		if n.Type == html.ElementNode {
			for _, attr := range n.Attr {
				if attr.Key == "data-reef-island" {
					if err := fillMarker(n, rt.HTML(attr.Val)); err != nil {
						return err
					}
					return nil
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if err := walk(c); err != nil {
				return err
			}
		}
		return nil
	}
	if err := walk(doc); err != nil {
		return "", err
	}

	var sb strings.Builder
	if err := html.Render(&sb, doc); err != nil {
		return "", err
	}
	return sb.String(), nil
}

func fillMarker(marker *html.Node, content string) error {
	fragment, err := html.ParseFragment(strings.NewReader(content), &html.Node{
		Type:     html.ElementNode,
		DataAtom: atom.Div,
		Data:     "div",
	})
	if err != nil {
		return err
	}
	for _, child := range fragment {
		marker.AppendChild(child)
	}
	return nil
}
