package richtext

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Selection is a range of text offsets, counted in runes over the text
// content of the fragment. Start == End is a cursor.
type Selection struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

func (s Selection) Collapsed() bool { return s.Start == s.End }

func (s Selection) normalize(length int) Selection {
	if s.Start > s.End {
		s.Start, s.End = s.End, s.Start
	}
	s.Start = clamp(s.Start, 0, length)
	s.End = clamp(s.End, 0, length)
	return s
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func parseFragment(value string) (*html.Node, error) {
	root := &html.Node{Type: html.ElementNode, Data: "div", DataAtom: atom.Div}
	nodes, err := html.ParseFragment(strings.NewReader(value), &html.Node{
		Type:     html.ElementNode,
		Data:     "div",
		DataAtom: atom.Div,
	})
	if err != nil {
		return nil, fmt.Errorf("parse fragment: %w", err)
	}
	for _, n := range nodes {
		if n.Parent != nil {
			n.Parent.RemoveChild(n)
		}
		root.AppendChild(n)
	}
	return root, nil
}

func renderFragment(root *html.Node) (string, error) {
	var b strings.Builder
	for c := root.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&b, c); err != nil {
			return "", fmt.Errorf("render fragment: %w", err)
		}
	}
	return b.String(), nil
}

type textRun struct {
	node       *html.Node
	start, end int
}

func textRuns(root *html.Node) []textRun {
	var runs []textRun
	offset := 0
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			length := utf8.RuneCountInString(n.Data)
			runs = append(runs, textRun{node: n, start: offset, end: offset + length})
			offset += length
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return runs
}

func textLength(runs []textRun) int {
	if len(runs) == 0 {
		return 0
	}
	return runs[len(runs)-1].end
}

func textNode(value string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: value}
}

func element(tag atom.Atom, attrs ...html.Attribute) *html.Node {
	return &html.Node{Type: html.ElementNode, Data: tag.String(), DataAtom: tag, Attr: attrs}
}

// wrapRange wraps the selected part of every text node in a fresh element
// from newWrapper. Text nodes are split at the selection boundaries.
func wrapRange(root *html.Node, sel Selection, newWrapper func() *html.Node) {
	for _, run := range textRuns(root) {
		lo, hi := max(sel.Start, run.start), min(sel.End, run.end)
		if lo >= hi {
			continue
		}
		runes := []rune(run.node.Data)
		before := string(runes[:lo-run.start])
		middle := string(runes[lo-run.start : hi-run.start])
		after := string(runes[hi-run.start:])

		parent := run.node.Parent
		wrapper := newWrapper()
		wrapper.AppendChild(textNode(middle))
		if before != "" {
			parent.InsertBefore(textNode(before), run.node)
		}
		parent.InsertBefore(wrapper, run.node)
		if after != "" {
			parent.InsertBefore(textNode(after), run.node)
		}
		parent.RemoveChild(run.node)
	}
}

// insertAt places node at a text offset, splitting the text node there.
func insertAt(root *html.Node, offset int, node *html.Node) {
	for _, run := range textRuns(root) {
		if offset < run.start || offset > run.end {
			continue
		}
		runes := []rune(run.node.Data)
		before := string(runes[:offset-run.start])
		after := string(runes[offset-run.start:])
		parent := run.node.Parent
		if before != "" {
			parent.InsertBefore(textNode(before), run.node)
		}
		parent.InsertBefore(node, run.node)
		if after != "" {
			parent.InsertBefore(textNode(after), run.node)
		}
		parent.RemoveChild(run.node)
		return
	}
	root.AppendChild(node)
}

var blockTags = map[atom.Atom]bool{
	atom.P: true, atom.Div: true, atom.H1: true, atom.H2: true, atom.H3: true,
	atom.H4: true, atom.H5: true, atom.H6: true, atom.Li: true, atom.Blockquote: true,
}

// enclosingBlock returns the nearest block element around n below root. Text
// sitting directly in root, or only inside inline elements, is first moved
// into a new div.
func enclosingBlock(root, n *html.Node) *html.Node {
	top := n
	for p := n.Parent; p != nil && p != root; p = p.Parent {
		if isBlock(p) {
			return p
		}
		top = p
	}
	if isBlock(top) {
		return top
	}

	// Gather the whole run of inline siblings, as a browser would.
	first, last := top, top
	for first.PrevSibling != nil && !isBlock(first.PrevSibling) {
		first = first.PrevSibling
	}
	for last.NextSibling != nil && !isBlock(last.NextSibling) {
		last = last.NextSibling
	}
	div := element(atom.Div)
	root.InsertBefore(div, first)
	for n := first; n != nil; {
		next := n.NextSibling
		root.RemoveChild(n)
		div.AppendChild(n)
		if n == last {
			break
		}
		n = next
	}
	return div
}

func isBlock(n *html.Node) bool {
	return n.Type == html.ElementNode && blockTags[n.DataAtom]
}

func getAttr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

func setAttr(n *html.Node, key, value string) {
	for i := range n.Attr {
		if n.Attr[i].Key == key {
			n.Attr[i].Val = value
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: value})
}

// setStyle sets one CSS property in the style attribute, keeping the others.
func setStyle(n *html.Node, property, value string) {
	current, _ := getAttr(n, "style")
	var decls []string
	replaced := false
	for _, decl := range strings.Split(current, ";") {
		decl = strings.TrimSpace(decl)
		if decl == "" {
			continue
		}
		name, _, _ := strings.Cut(decl, ":")
		if strings.EqualFold(strings.TrimSpace(name), property) {
			decl = property + ": " + value
			replaced = true
		}
		decls = append(decls, decl)
	}
	if !replaced {
		decls = append(decls, property+": "+value)
	}
	setAttr(n, "style", strings.Join(decls, "; ")+";")
}
