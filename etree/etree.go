// Package etree parses METS structural descriptors and ALTO page layouts
// using github.com/beevik/etree. Both parsers match elements by local name
// so they work with any namespace prefix, including none.
package etree

import (
	"strconv"
	"strings"

	"github.com/beevik/etree"
)

// readDocument parses data into an element tree.
func readDocument(data []byte) (*etree.Element, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, err
	}
	root := doc.Root()
	if root == nil {
		return nil, errEmptyDocument
	}
	return root, nil
}

type parseError string

func (e parseError) Error() string { return string(e) }

const errEmptyDocument = parseError("document has no root element")

// is reports whether el has the given local name, ignoring case.
func is(el *etree.Element, name string) bool {
	return strings.EqualFold(el.Tag, name)
}

// descendants returns all descendants of el with the given local name in
// document order.
func descendants(el *etree.Element, name string) []*etree.Element {
	var out []*etree.Element
	var walk func(*etree.Element)
	walk = func(e *etree.Element) {
		for _, c := range e.ChildElements() {
			if is(c, name) {
				out = append(out, c)
			}
			walk(c)
		}
	}
	walk(el)
	return out
}

// first returns the first descendant of el with the given local name.
func first(el *etree.Element, name string) *etree.Element {
	for _, c := range el.ChildElements() {
		if is(c, name) {
			return c
		}
		if d := first(c, name); d != nil {
			return d
		}
	}
	return nil
}

// children returns the direct children of el with the given local name.
func children(el *etree.Element, name string) []*etree.Element {
	var out []*etree.Element
	for _, c := range el.ChildElements() {
		if is(c, name) {
			out = append(out, c)
		}
	}
	return out
}

// attr returns the trimmed value of the attribute with the given local name.
func attr(el *etree.Element, name string) string {
	return strings.TrimSpace(el.SelectAttrValue(name, ""))
}

// hasAttr reports whether the attribute is present, even if empty.
func hasAttr(el *etree.Element, name string) bool {
	return el.SelectAttr(name) != nil
}

// intAttr parses a numeric attribute, truncating fractions. Missing or
// invalid values yield def.
func intAttr(el *etree.Element, name string, def int) int {
	v := attr(el, name)
	if v == "" {
		return def
	}
	if n, err := strconv.Atoi(v); err == nil {
		return n
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return int(f)
}

// floatAttr parses a float attribute. Missing or invalid values yield 0.
func floatAttr(el *etree.Element, name string) float64 {
	f, err := strconv.ParseFloat(attr(el, name), 64)
	if err != nil {
		return 0
	}
	return f
}
