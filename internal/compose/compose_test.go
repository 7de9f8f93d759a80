package compose

import (
	"bytes"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"testing"

	"github.com/jung-kurt/gofpdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pdfPage builds a one-page PDF of the given size in points with some text.
func pdfPage(t *testing.T, width, height float64, label string) []byte {
	t.Helper()
	orientation, short, long := "P", width, height
	if width > height {
		orientation, short, long = "L", height, width
	}
	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		OrientationStr: orientation,
		UnitStr:        "pt",
		Size:           gofpdf.SizeType{Wd: short, Ht: long},
	})
	pdf.SetAutoPageBreak(false, 0)
	pdf.AddPage()
	pdf.SetFont("Helvetica", "", 12)
	pdf.Text(10, 20, label)
	var buf bytes.Buffer
	require.NoError(t, pdf.Output(&buf))
	return buf.Bytes()
}

func writeBackPage(t *testing.T, width, height float64) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "page2.pdf")
	require.NoError(t, os.WriteFile(p, pdfPage(t, width, height, "back"), 0o644))
	return p
}

// stampForm returns the form XObject stamped onto page pageNr.
func stampForm(t *testing.T, pdf []byte, pageNr int) *types.StreamDict {
	t.Helper()
	ctx, err := api.ReadAndValidate(bytes.NewReader(pdf), newConfig())
	require.NoError(t, err)

	_, _, inherited, err := ctx.PageDict(pageNr, true)
	require.NoError(t, err)
	require.NotNil(t, inherited.Resources, "page %d has no resources", pageNr)
	xobjs, err := ctx.DereferenceDict(inherited.Resources["XObject"])
	require.NoError(t, err)

	for _, o := range xobjs {
		sd, _, err := ctx.DereferenceStreamDict(o)
		require.NoError(t, err)
		if sd != nil && sd.Subtype() != nil && *sd.Subtype() == "Form" {
			require.NoError(t, sd.Decode())
			return sd
		}
	}
	t.Fatalf("page %d carries no form XObject", pageNr)
	return nil
}

func number(t *testing.T, o types.Object) float64 {
	t.Helper()
	switch v := o.(type) {
	case types.Float:
		return v.Value()
	case types.Integer:
		return float64(v.Value())
	}
	t.Fatalf("not a number: %v", o)
	return 0
}

var scaleOp = regexp.MustCompile(`^\s*([0-9.]+) 0\.00000 0\.00000 ([0-9.]+) `)

func TestStampDescription(t *testing.T) {
	back := writeBackPage(t, 595.28, 841.89)
	for _, scale := range []float64{0.408211, 1, 2} {
		_, err := api.PDFWatermark(back+":1", stampDescription(scale), true, false, types.POINTS)
		require.NoError(t, err, stampDescription(scale))
	}
}

func TestPageCount(t *testing.T) {
	n, err := PageCount(pdfPage(t, 243, 153, "front"))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	c := &Compositor{BackPage: writeBackPage(t, 595.28, 841.89)}
	var out bytes.Buffer
	_, err = c.Compose(pdfPage(t, 243, 153, "front"), &out)
	require.NoError(t, err)
	n, err = PageCount(out.Bytes())
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, err = PageCount([]byte("not a pdf"))
	assert.Error(t, err)
}

func TestScaleFactor(t *testing.T) {
	s, err := ScaleFactor(243, 486)
	require.NoError(t, err)
	assert.Equal(t, 0.5, s)

	s, err = ScaleFactor(600, 300)
	require.NoError(t, err)
	assert.Equal(t, 2.0, s)

	_, err = ScaleFactor(243, 0)
	assert.ErrorIs(t, err, ErrInvalidPage)
	_, err = ScaleFactor(-1, 10)
	assert.ErrorIs(t, err, ErrInvalidPage)
}

func TestBlankPage(t *testing.T) {
	for _, dim := range [][2]float64{{243, 153}, {153, 243}, {595.28, 841.89}} {
		blank, err := BlankPage(dim[0], dim[1])
		require.NoError(t, err)

		sizes, err := PageSizes(blank)
		require.NoError(t, err)
		require.Len(t, sizes, 1)
		assert.InDelta(t, dim[0], sizes[0].Width, 0.01)
		assert.InDelta(t, dim[1], sizes[0].Height, 0.01)
	}

	_, err := BlankPage(0, 10)
	assert.ErrorIs(t, err, ErrInvalidPage)
}

func TestCompose_TwoPagesWithMatchingWidth(t *testing.T) {
	tests := []struct {
		name       string
		front      [2]float64
		back       [2]float64
		wantScaled float64
	}{
		{"shrink A4 back to card", [2]float64{243, 153}, [2]float64{595.28, 841.89}, 243.0 / 595.28},
		{"grow small back", [2]float64{600, 400}, [2]float64{300, 150}, 2},
		{"identical sizes", [2]float64{243, 153}, [2]float64{243, 153}, 1},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := &Compositor{BackPage: writeBackPage(t, tc.back[0], tc.back[1])}
			front := pdfPage(t, tc.front[0], tc.front[1], "front")

			var out bytes.Buffer
			layout, err := c.Compose(front, &out)
			require.NoError(t, err)

			n, err := PageCount(out.Bytes())
			require.NoError(t, err)
			assert.Equal(t, 2, n)

			sizes, err := PageSizes(out.Bytes())
			require.NoError(t, err)
			require.Len(t, sizes, 2)
			assert.InDelta(t, tc.front[0], sizes[0].Width, 0.01, "front page must stay unscaled")
			assert.InDelta(t, tc.front[1], sizes[0].Height, 0.01)
			assert.InDelta(t, sizes[0].Width, sizes[1].Width, 0.01)
			assert.InDelta(t, sizes[0].Height, sizes[1].Height, 0.01)

			assert.InDelta(t, tc.wantScaled, layout.Scale, 1e-4)
			w, h := layout.ScaledBack()
			assert.InDelta(t, layout.FrontWidth, w, 0.01)
			assert.InDelta(t, tc.back[1]*layout.Scale, h, 0.05, "height follows the uniform scale")

			// page 2 carries the back page content at the computed scale
			form := stampForm(t, out.Bytes(), 2)
			bbox := form.ArrayEntry("BBox")
			require.Len(t, bbox, 4)
			assert.InDelta(t, tc.front[0], number(t, bbox[2])-number(t, bbox[0]), 0.05, "stamp spans the front width")
			assert.InDelta(t, h, number(t, bbox[3])-number(t, bbox[1]), 0.05)

			m := scaleOp.FindSubmatch(form.Content)
			require.NotNil(t, m, "form content starts with a scaling transform")
			sx, err := strconv.ParseFloat(string(m[1]), 64)
			require.NoError(t, err)
			sy, err := strconv.ParseFloat(string(m[2]), 64)
			require.NoError(t, err)
			assert.InDelta(t, layout.Scale, sx, 1e-4)
			assert.InDelta(t, layout.Scale, sy, 1e-4)
			assert.Contains(t, string(form.Content), "(back) Tj", "back page text is stamped")
		})
	}
}

func TestCompose_MissingBackPage(t *testing.T) {
	c := &Compositor{BackPage: filepath.Join(t.TempDir(), "absent.pdf")}
	var out bytes.Buffer
	_, err := c.Compose(pdfPage(t, 243, 153, "front"), &out)
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.Zero(t, out.Len())
}

func TestCompose_InvalidFront(t *testing.T) {
	c := &Compositor{BackPage: writeBackPage(t, 595.28, 841.89)}
	var out bytes.Buffer
	_, err := c.Compose([]byte("not a pdf"), &out)
	require.Error(t, err)
	assert.Zero(t, out.Len())
}

func TestCompose_InvalidBack(t *testing.T) {
	p := filepath.Join(t.TempDir(), "page2.pdf")
	require.NoError(t, os.WriteFile(p, []byte("%PDF-1.4 garbage"), 0o644))
	c := &Compositor{BackPage: p}

	var out bytes.Buffer
	_, err := c.Compose(pdfPage(t, 243, 153, "front"), &out)
	assert.Error(t, err)
}
