package render

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/beevik/etree"
)

// unitsPerInch maps SVG length units to their size in inches.
var unitsPerInch = map[string]float64{
	"":   96,
	"px": 96,
	"pt": 72,
	"pc": 6,
	"mm": 25.4,
	"cm": 2.54,
	"in": 1,
}

// PageSize is a page size in inches.
type PageSize struct {
	Width  float64
	Height float64
}

// Size reads the outer dimensions of an SVG document. Explicit width and
// height attributes win; otherwise the viewBox is taken as CSS pixels.
func Size(svg []byte) (PageSize, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(svg); err != nil {
		return PageSize{}, fmt.Errorf("parse svg: %w", err)
	}
	root := doc.Root()
	if root == nil || root.Tag != "svg" {
		return PageSize{}, errors.New("parse svg: root element is not <svg>")
	}

	w, wok := parseLength(root.SelectAttrValue("width", ""))
	h, hok := parseLength(root.SelectAttrValue("height", ""))
	if wok && hok {
		return PageSize{Width: w, Height: h}, nil
	}

	vb := strings.FieldsFunc(root.SelectAttrValue("viewBox", ""), func(r rune) bool {
		return r == ' ' || r == ','
	})
	if len(vb) == 4 {
		vw, err1 := strconv.ParseFloat(vb[2], 64)
		vh, err2 := strconv.ParseFloat(vb[3], 64)
		if err1 == nil && err2 == nil && vw > 0 && vh > 0 {
			return PageSize{Width: vw / 96, Height: vh / 96}, nil
		}
	}
	return PageSize{}, errors.New("svg has no usable width/height or viewBox")
}

// parseLength converts an SVG length such as "85.6mm" to inches.
func parseLength(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" || strings.HasSuffix(s, "%") {
		return 0, false
	}
	i := strings.IndexFunc(s, func(r rune) bool {
		return (r < '0' || r > '9') && r != '.' && r != '-' && r != '+' && r != 'e' && r != 'E'
	})
	num, unit := s, ""
	if i >= 0 {
		num, unit = s[:i], strings.ToLower(s[i:])
	}
	per, ok := unitsPerInch[unit]
	if !ok {
		return 0, false
	}
	v, err := strconv.ParseFloat(num, 64)
	if err != nil || v <= 0 {
		return 0, false
	}
	return v / per, true
}

// rootElement returns the <svg> element serialized without any XML
// declaration or doctype so it can be inlined into HTML.
func rootElement(svg []byte) ([]byte, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(svg); err != nil {
		return nil, fmt.Errorf("parse svg: %w", err)
	}
	if doc.Root() == nil {
		return nil, errors.New("parse svg: no root element")
	}
	out := etree.NewDocument()
	out.SetRoot(doc.Root().Copy())
	var buf bytes.Buffer
	if _, err := out.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
