package widget

import (
	"bytes"
	"fmt"
	"os"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// RenderFrame assembles a bundle into one standalone HTML document: the
// markup, its style inlined into <head> and its behavior appended to <body>.
func (r *Registry) RenderFrame(id string) ([]byte, error) {
	bundle, err := r.Lookup(id)
	if err != nil {
		return nil, err
	}

	markup, err := os.ReadFile(bundle.Markup)
	if err != nil {
		return nil, fmt.Errorf("read markup: %w", err)
	}

	doc, err := html.Parse(bytes.NewReader(markup))
	if err != nil {
		return nil, fmt.Errorf("parse markup: %w", err)
	}

	head := findElement(doc, atom.Head)
	body := findElement(doc, atom.Body)
	if head == nil || body == nil {
		return nil, fmt.Errorf("parse markup: document has no head or body")
	}

	if bundle.Style != "" {
		css, err := os.ReadFile(bundle.Style)
		if err != nil {
			return nil, fmt.Errorf("read style: %w", err)
		}
		head.AppendChild(rawTextElement(atom.Style, string(css)))
	}

	if bundle.Behavior != "" {
		js, err := os.ReadFile(bundle.Behavior)
		if err != nil {
			return nil, fmt.Errorf("read behavior: %w", err)
		}
		body.AppendChild(rawTextElement(atom.Script, string(js)))
	}

	var buf bytes.Buffer
	if err := html.Render(&buf, doc); err != nil {
		return nil, fmt.Errorf("render frame: %w", err)
	}
	return buf.Bytes(), nil
}

func rawTextElement(a atom.Atom, text string) *html.Node {
	n := &html.Node{
		Type:     html.ElementNode,
		DataAtom: a,
		Data:     a.String(),
	}
	n.AppendChild(&html.Node{Type: html.TextNode, Data: text})
	return n
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
