// Package richtext implements the formatting operations of the admin
// content editor over HTML fragments, and the sanitizing renderer used by
// the public pages.
package richtext

import (
	"errors"
	"fmt"
	"sync"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var (
	ErrUnknownSize      = errors.New("unknown text size")
	ErrUnknownAlignment = errors.New("unknown alignment")
	ErrUnknownEmphasis  = errors.New("unknown emphasis")
)

// Placeholder is inserted when a size is applied without a selection.
const Placeholder = "Text"

type Size struct {
	Label string
	PX    string
	// Tag is the element used for the placeholder; headings for the three
	// largest sizes, span otherwise.
	Tag    atom.Atom
	Margin string
}

func (s Size) heading() bool { return s.Tag != atom.Span }

// Sizes lists the seven tiers from smallest to largest.
var Sizes = []Size{
	{Label: "Small", PX: "14px", Tag: atom.Span},
	{Label: "Normal", PX: "16px", Tag: atom.Span},
	{Label: "Large", PX: "18px", Tag: atom.Span},
	{Label: "Extra Large", PX: "20px", Tag: atom.Span},
	{Label: "Heading 3", PX: "24px", Tag: atom.H3, Margin: "0.5rem 0"},
	{Label: "Heading 2", PX: "28px", Tag: atom.H2, Margin: "0.75rem 0"},
	{Label: "Heading 1", PX: "32px", Tag: atom.H1, Margin: "1rem 0"},
}

func LookupSize(px string) (Size, bool) {
	for _, s := range Sizes {
		if s.PX == px {
			return s, true
		}
	}
	return Size{}, false
}

type Alignment string

const (
	AlignLeft    Alignment = "left"
	AlignCenter  Alignment = "center"
	AlignRight   Alignment = "right"
	AlignJustify Alignment = "justify"
)

func (a Alignment) valid() bool {
	switch a {
	case AlignLeft, AlignCenter, AlignRight, AlignJustify:
		return true
	}
	return false
}

type Emphasis string

const (
	Bold      Emphasis = "bold"
	Italic    Emphasis = "italic"
	Underline Emphasis = "underline"
)

var emphasisTags = map[Emphasis]atom.Atom{
	Bold:      atom.B,
	Italic:    atom.I,
	Underline: atom.U,
}

// Editor holds the HTML of one rich-text field. SetValue applies an external
// value and never notifies; every local change notifies onChange at once.
type Editor struct {
	mu       sync.Mutex
	value    string
	onChange func(string)
}

func NewEditor(value string, onChange func(string)) *Editor {
	return &Editor{value: value, onChange: onChange}
}

func (e *Editor) Value() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.value
}

// SetValue replaces the content only when it differs from the current value
// and reports whether it did.
func (e *Editor) SetValue(value string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if value == e.value {
		return false
	}
	e.value = value
	return true
}

// Input records a local edit.
func (e *Editor) Input(value string) {
	e.mu.Lock()
	e.value = value
	e.mu.Unlock()
	e.notify(value)
}

func (e *Editor) notify(value string) {
	if e.onChange != nil {
		e.onChange(value)
	}
}

// edit parses the current value, runs fn over it and stores the result.
func (e *Editor) edit(fn func(root *html.Node, runs []textRun) error) error {
	e.mu.Lock()
	root, err := parseFragment(e.value)
	if err != nil {
		e.mu.Unlock()
		return err
	}
	if err := fn(root, textRuns(root)); err != nil {
		e.mu.Unlock()
		return err
	}
	out, err := renderFragment(root)
	if err != nil {
		e.mu.Unlock()
		return err
	}
	e.value = out
	e.mu.Unlock()
	e.notify(out)
	return nil
}

// ApplyTextSize wraps a selection in a sized span. With a cursor it inserts
// the placeholder in the tier's element instead. It returns the selection to
// use afterwards: a cursor just past the placeholder, or sel unchanged.
func (e *Editor) ApplyTextSize(sel Selection, px string) (Selection, error) {
	size, ok := LookupSize(px)
	if !ok {
		return sel, fmt.Errorf("%w: %q", ErrUnknownSize, px)
	}
	next := sel
	err := e.edit(func(root *html.Node, runs []textRun) error {
		sel = sel.normalize(textLength(runs))
		if !sel.Collapsed() {
			weight := "normal"
			if size.heading() {
				weight = "bold"
			}
			wrapRange(root, sel, func() *html.Node {
				span := element(atom.Span)
				setStyle(span, "font-size", size.PX)
				setStyle(span, "font-weight", weight)
				return span
			})
			next = sel
			return nil
		}

		node := element(size.Tag)
		setStyle(node, "font-size", size.PX)
		if size.heading() {
			setStyle(node, "font-weight", "bold")
			setStyle(node, "margin", size.Margin)
		}
		node.AppendChild(textNode(Placeholder))
		insertAt(root, sel.Start, node)
		cursor := sel.Start + len([]rune(Placeholder))
		next = Selection{Start: cursor, End: cursor}
		return nil
	})
	return next, err
}

// ApplyAlignment sets text-align on every block touched by the selection.
func (e *Editor) ApplyAlignment(sel Selection, align Alignment) error {
	if !align.valid() {
		return fmt.Errorf("%w: %q", ErrUnknownAlignment, align)
	}
	return e.edit(func(root *html.Node, runs []textRun) error {
		sel = sel.normalize(textLength(runs))
		seen := map[*html.Node]bool{}
		for _, run := range runs {
			touched := run.start < sel.End && run.end > sel.Start
			if sel.Collapsed() {
				touched = sel.Start >= run.start && sel.Start <= run.end
			}
			if !touched {
				continue
			}
			block := enclosingBlock(root, run.node)
			if seen[block] {
				continue
			}
			seen[block] = true
			setStyle(block, "text-align", string(align))
			if sel.Collapsed() {
				break
			}
		}
		return nil
	})
}

// ApplyEmphasis wraps the selection in b, i or u. A cursor leaves the content
// unchanged.
func (e *Editor) ApplyEmphasis(sel Selection, emphasis Emphasis) error {
	tag, ok := emphasisTags[emphasis]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownEmphasis, emphasis)
	}
	return e.edit(func(root *html.Node, runs []textRun) error {
		sel = sel.normalize(textLength(runs))
		if sel.Collapsed() {
			return nil
		}
		wrapRange(root, sel, func() *html.Node { return element(tag) })
		return nil
	})
}
