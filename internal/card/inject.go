package card

import (
	"fmt"
	"slices"
	"strings"

	"github.com/beevik/etree"
	"github.com/samber/lo"
)

// MissingFieldsError lists placeholder ids that could not be located.
type MissingFieldsError struct {
	IDs []string
}

func (e *MissingFieldsError) Error() string {
	return "template is missing placeholder(s): " + strings.Join(e.IDs, ", ")
}

// textMatcher finds the element whose text content carries the value for id.
type textMatcher struct {
	name string
	find func(doc *etree.Document, id string) *etree.Element
}

// textTags are the elements that may hold a placeholder's text directly.
var textTags = []string{"text", "tspan", "textPath", "flowPara", "flowSpan"}

// matchers are tried in order; the first hit wins.
var matchers = []textMatcher{
	{
		name: "text",
		find: func(doc *etree.Document, id string) *etree.Element {
			el := doc.FindElement(fmt.Sprintf("//text[@id='%s']", id))
			if el == nil || len(el.ChildElements()) > 0 {
				return nil
			}
			return el
		},
	},
	{
		name: "tspan",
		find: func(doc *etree.Document, id string) *etree.Element {
			return doc.FindElement(fmt.Sprintf("//text[@id='%s']/tspan", id))
		},
	},
	{
		name: "any",
		find: func(doc *etree.Document, id string) *etree.Element {
			for _, el := range doc.FindElements(fmt.Sprintf("//*[@id='%s']", id)) {
				if slices.Contains(textTags, el.Tag) {
					return el
				}
			}
			return nil
		},
	},
}

// Inject replaces the text content of each placeholder element in svg with
// the value mapped to its id. Values are escaped on output. If any id has no
// matching element nothing is returned and the error is a
// *MissingFieldsError naming all of them.
func Inject(svg []byte, fields map[string]string) ([]byte, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(svg); err != nil {
		return nil, fmt.Errorf("parse template: %w", err)
	}
	if doc.Root() == nil {
		return nil, fmt.Errorf("parse template: no root element")
	}

	var missing []string
	for _, id := range orderedIDs(fields) {
		el := locate(doc, id)
		if el == nil {
			missing = append(missing, id)
			continue
		}
		for _, child := range el.ChildElements() {
			el.RemoveChild(child)
		}
		clearSiblings(el, id)
		el.SetText(xmlSafe(fields[id]))
	}
	if len(missing) > 0 {
		return nil, &MissingFieldsError{IDs: missing}
	}

	return doc.WriteToBytes()
}

func locate(doc *etree.Document, id string) *etree.Element {
	if strings.ContainsAny(id, `'"[]`) {
		return nil
	}
	for _, m := range matchers {
		if el := m.find(doc, id); el != nil {
			return el
		}
	}
	return nil
}

// clearSiblings removes the text around a tspan matched through its parent,
// so that in <text id="x">NAME <tspan>X</tspan></text> only the tspan's new
// value remains.
func clearSiblings(el *etree.Element, id string) {
	parent := el.Parent()
	if parent == nil || parent.SelectAttrValue("id", "") != id {
		return
	}
	for i := len(parent.Child) - 1; i >= 0; i-- {
		switch tok := parent.Child[i].(type) {
		case *etree.CharData:
			parent.RemoveChildAt(i)
		case *etree.Element:
			if tok != el && slices.Contains(textTags, tok.Tag) {
				parent.RemoveChildAt(i)
			}
		}
	}
}

// orderedIDs returns the known placeholder ids first, then any others sorted.
func orderedIDs(fields map[string]string) []string {
	known := lo.Filter(FieldIDs, func(id string, _ int) bool {
		_, ok := fields[id]
		return ok
	})
	extra := lo.Filter(lo.Keys(fields), func(id string, _ int) bool {
		return !slices.Contains(FieldIDs, id)
	})
	slices.Sort(extra)
	return append(known, extra...)
}

// xmlSafe drops characters that cannot appear in an XML 1.0 document.
func xmlSafe(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r == '\t' || r == '\n' || r == '\r':
			return r
		case r >= 0x20 && r <= 0xD7FF, r >= 0xE000 && r <= 0xFFFD, r >= 0x10000 && r <= 0x10FFFF:
			return r
		}
		return -1
	}, s)
}
