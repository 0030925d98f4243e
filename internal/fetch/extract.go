package fetch

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// dropped elements never contribute visible text.
var dropped = map[atom.Atom]bool{
	atom.Head:     true,
	atom.Script:   true,
	atom.Style:    true,
	atom.Noscript: true,
	atom.Template: true,
	atom.Iframe:   true,
	atom.Svg:      true,
	atom.Canvas:   true,
	atom.Nav:      true,
	atom.Footer:   true,
	atom.Form:     true,
}

var blocks = map[atom.Atom]bool{
	atom.P: true, atom.Div: true, atom.Section: true, atom.Article: true,
	atom.Main: true, atom.Aside: true, atom.Header: true,
	atom.H1: true, atom.H2: true, atom.H3: true, atom.H4: true, atom.H5: true, atom.H6: true,
	atom.Ul: true, atom.Ol: true, atom.Li: true, atom.Dl: true, atom.Dt: true, atom.Dd: true,
	atom.Table: true, atom.Tr: true, atom.Blockquote: true, atom.Pre: true,
	atom.Figure: true, atom.Figcaption: true, atom.Br: true, atom.Hr: true,
}

// Extract returns the document title and its visible text, one block per
// line with whitespace collapsed.
func Extract(doc string) (title, text string) {
	root, err := html.Parse(strings.NewReader(doc))
	if err != nil {
		return "", collapse(doc)
	}
	var w textWriter
	walk(root, &w)
	return collapseSpaces(findTitle(root)), w.String()
}

func findTitle(n *html.Node) string {
	if n.Type == html.ElementNode && n.DataAtom == atom.Title {
		if n.FirstChild != nil {
			return n.FirstChild.Data
		}
		return ""
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if t := findTitle(c); t != "" {
			return t
		}
	}
	return ""
}

func walk(n *html.Node, w *textWriter) {
	switch n.Type {
	case html.TextNode:
		w.word(n.Data)
		return
	case html.ElementNode:
		if dropped[n.DataAtom] {
			return
		}
		if blocks[n.DataAtom] {
			w.newline()
			defer w.newline()
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, w)
	}
}

// textWriter joins words with single spaces and blocks with single newlines.
type textWriter struct {
	lines []string
	cur   []string
}

func (w *textWriter) word(s string) {
	w.cur = append(w.cur, strings.Fields(s)...)
}

func (w *textWriter) newline() {
	if len(w.cur) == 0 {
		return
	}
	w.lines = append(w.lines, strings.Join(w.cur, " "))
	w.cur = w.cur[:0]
}

func (w *textWriter) String() string {
	w.newline()
	return strings.Join(w.lines, "\n")
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// collapse is the fallback for input the parser rejects.
func collapse(s string) string {
	z := html.NewTokenizer(strings.NewReader(s))
	var w textWriter
	for {
		switch z.Next() {
		case html.ErrorToken:
			return w.String()
		case html.TextToken:
			w.word(string(z.Text()))
		}
	}
}
