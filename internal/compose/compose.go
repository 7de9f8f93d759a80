// Package compose assembles the final two-page card document.
package compose

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/jung-kurt/gofpdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

// Layout describes the geometry of a composed card, in PDF points.
type Layout struct {
	FrontWidth  float64
	FrontHeight float64
	BackWidth   float64
	BackHeight  float64
	Scale       float64
}

// ScaledBack returns the size of the back page content after scaling.
func (l Layout) ScaledBack() (float64, float64) {
	return l.BackWidth * l.Scale, l.BackHeight * l.Scale
}

var ErrInvalidPage = errors.New("page has no usable dimensions")

func init() {
	// pdfcpu would otherwise create a config directory under $HOME.
	api.DisableConfigDir()
}

// Compositor places a fixed back page behind rendered front pages.
type Compositor struct {
	// BackPage is the path of the PDF whose first page becomes page 2.
	BackPage string
}

// ScaleFactor is the uniform factor that makes the back page as wide as
// the front page.
func ScaleFactor(frontWidth, backWidth float64) (float64, error) {
	if frontWidth <= 0 || backWidth <= 0 {
		return 0, fmt.Errorf("scale %.2f onto %.2f: %w", backWidth, frontWidth, ErrInvalidPage)
	}
	return frontWidth / backWidth, nil
}

func newConfig() *model.Configuration {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return conf
}

// Compose writes a two-page PDF to w: the front page unchanged, then a page
// of the same size carrying the back page scaled to the front's width and
// anchored at the bottom-left corner.
func (c *Compositor) Compose(front []byte, w io.Writer) (Layout, error) {
	conf := newConfig()

	frontDim, err := firstPageDim(bytes.NewReader(front), conf)
	if err != nil {
		return Layout{}, fmt.Errorf("read front page: %w", err)
	}

	back, err := os.Open(c.BackPage)
	if err != nil {
		return Layout{}, fmt.Errorf("open back page: %w", err)
	}
	backDim, err := firstPageDim(back, conf)
	back.Close()
	if err != nil {
		return Layout{}, fmt.Errorf("read back page %s: %w", c.BackPage, err)
	}

	scale, err := ScaleFactor(frontDim.Width, backDim.Width)
	if err != nil {
		return Layout{}, err
	}
	layout := Layout{
		FrontWidth:  frontDim.Width,
		FrontHeight: frontDim.Height,
		BackWidth:   backDim.Width,
		BackHeight:  backDim.Height,
		Scale:       scale,
	}

	blank, err := BlankPage(frontDim.Width, frontDim.Height)
	if err != nil {
		return Layout{}, err
	}

	wm, err := api.PDFWatermark(c.BackPage+":1",
		stampDescription(scale),
		true, false, types.POINTS)
	if err != nil {
		return Layout{}, fmt.Errorf("prepare back page stamp: %w", err)
	}

	var stamped bytes.Buffer
	if err := api.AddWatermarks(bytes.NewReader(blank), &stamped, nil, wm, conf); err != nil {
		return Layout{}, fmt.Errorf("stamp back page: %w", err)
	}

	var merged bytes.Buffer
	rsc := []io.ReadSeeker{bytes.NewReader(front), bytes.NewReader(stamped.Bytes())}
	if err := api.MergeRaw(rsc, &merged, false, conf); err != nil {
		return Layout{}, fmt.Errorf("merge pages: %w", err)
	}

	n, err := PageCount(merged.Bytes())
	if err != nil {
		return Layout{}, err
	}
	if n != 2 {
		return Layout{}, fmt.Errorf("composed document has %d pages, want 2", n)
	}

	if _, err := w.Write(merged.Bytes()); err != nil {
		return Layout{}, err
	}
	return layout, nil
}

// stampDescription is the pdfcpu watermark description that places the
// back page at an absolute scale in the bottom-left corner. Parameter
// names are spelled out since pdfcpu rejects ambiguous prefixes.
func stampDescription(scale float64) string {
	return fmt.Sprintf("scalefactor:%.6f abs, position:bl, offset:0 0, rotation:0, opacity:1", scale)
}

func firstPageDim(rs io.ReadSeeker, conf *model.Configuration) (types.Dim, error) {
	dims, err := api.PageDims(rs, conf)
	if err != nil {
		return types.Dim{}, err
	}
	if len(dims) == 0 {
		return types.Dim{}, ErrInvalidPage
	}
	d := dims[0]
	if d.Width <= 0 || d.Height <= 0 {
		return types.Dim{}, ErrInvalidPage
	}
	return d, nil
}

// BlankPage returns a one-page PDF of the given size in points.
func BlankPage(width, height float64) ([]byte, error) {
	if width <= 0 || height <= 0 {
		return nil, ErrInvalidPage
	}
	// gofpdf wants the short side first and the orientation to match.
	orientation, short, long := "P", width, height
	if width > height {
		orientation, short, long = "L", height, width
	}
	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		OrientationStr: orientation,
		UnitStr:        "pt",
		Size:           gofpdf.SizeType{Wd: short, Ht: long},
	})
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	pdf.AddPage()

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("create blank page: %w", err)
	}
	return buf.Bytes(), nil
}

// PageCount returns the number of pages in a PDF.
func PageCount(pdf []byte) (int, error) {
	n, err := api.PageCount(bytes.NewReader(pdf), newConfig())
	if err != nil {
		return 0, fmt.Errorf("failed to read PDF: %w", err)
	}
	return n, nil
}

// PageSizes returns the width and height of every page in a PDF.
func PageSizes(pdf []byte) ([]types.Dim, error) {
	return api.PageDims(bytes.NewReader(pdf), newConfig())
}
