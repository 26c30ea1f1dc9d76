package pdf_test

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pdftools/pdf"
)

// realFixture builds a PDF with one page per width, each page the size of a
// width x 100 image, so page order can be read back from page widths.
func realFixture(t *testing.T, dir string, sizes ...int) string {
	t.Helper()
	var images []string
	for i, w := range sizes {
		img := image.NewRGBA(image.Rect(0, 0, w, 100))
		for x := 0; x < w; x++ {
			img.Set(x, x%100, color.RGBA{R: uint8(40 * i), A: 0xFF})
		}
		path := filepath.Join(dir, fmt.Sprintf("img-%d.png", i))
		f, err := os.Create(path)
		require.NoError(t, err)
		require.NoError(t, png.Encode(f, img))
		require.NoError(t, f.Close())
		images = append(images, path)
	}

	out := filepath.Join(dir, "fixture.pdf")
	require.NoError(t, pdf.NewPDFCPUEngine().ImportImages(images, out))
	return out
}

func realProcessor() *pdf.Processor {
	log, _ := test.NewNullLogger()
	return pdf.NewProcessor(pdf.Deps{
		Engine:  pdf.NewPDFCPUEngine(),
		Crypter: pdf.PDFCPUCrypter{},
		Log:     log,
	})
}

func analyze(t *testing.T, path string) *pdf.Analysis {
	t.Helper()
	a, err := pdf.Analyze(pdf.NewPDFCPUEngine(), path)
	require.NoError(t, err)
	return a
}

func widths(a *pdf.Analysis) []float64 {
	out := make([]float64, len(a.Pages))
	for i, p := range a.Pages {
		out[i] = p.Width
	}
	return out
}

func TestPDFCPURotateSelectedPage(t *testing.T) {
	dir := t.TempDir()
	in := realFixture(t, dir, 100, 200, 300, 400, 500)
	p := realProcessor()

	once := filepath.Join(dir, "once.pdf")
	_, err := p.Run(t.Context(), pdf.RotateOp{Input: in, Output: once, Rotation: 90, Ranges: "2"})
	require.NoError(t, err)

	a := analyze(t, once)
	require.Equal(t, 5, a.TotalPages)
	for _, page := range a.Pages {
		if page.Page == 2 {
			assert.Equal(t, 90, page.Rotation)
		} else {
			assert.Equal(t, 0, page.Rotation, "page %d", page.Page)
		}
	}

	twice := filepath.Join(dir, "twice.pdf")
	_, err = p.Run(t.Context(), pdf.RotateOp{Input: once, Output: twice, Rotation: 270, Ranges: "2"})
	require.NoError(t, err)
	assert.Equal(t, 0, analyze(t, twice).Pages[1].Rotation)
}

func TestPDFCPUReorderKeepsRepeats(t *testing.T) {
	dir := t.TempDir()
	in := realFixture(t, dir, 100, 200, 300, 400)
	src := widths(analyze(t, in))
	require.Len(t, src, 4)
	require.NotEqual(t, src[0], src[2])

	out := filepath.Join(dir, "reordered.pdf")
	_, err := realProcessor().Run(t.Context(), pdf.ReorderOp{Input: in, Output: out, Order: []int{2, 0, 0, 99}})
	require.NoError(t, err)
	assert.Equal(t, []float64{src[2], src[0], src[0]}, widths(analyze(t, out)))
}

func TestPDFCPUMerge(t *testing.T) {
	dir := t.TempDir()
	b := filepath.Join(dir, "b.pdf")
	require.NoError(t, os.Rename(realFixture(t, dir, 100, 200), b))
	c := realFixture(t, dir, 300)

	out := filepath.Join(dir, "merged.pdf")
	_, err := realProcessor().Run(t.Context(), pdf.MergeOp{Inputs: []string{c, b}, Output: out})
	require.NoError(t, err)

	got := widths(analyze(t, out))
	want := append(widths(analyze(t, c)), widths(analyze(t, b))...)
	assert.Equal(t, want, got)
}

func TestPDFCPUSplitWithoutRanges(t *testing.T) {
	dir := t.TempDir()
	in := realFixture(t, dir, 100, 200, 300)
	outDir := filepath.Join(dir, "pages")

	res, err := realProcessor().Run(t.Context(), pdf.SplitOp{Input: in, OutDir: outDir})
	require.NoError(t, err)
	require.Equal(t, []string{
		filepath.Join(outDir, "page-1.pdf"),
		filepath.Join(outDir, "page-2.pdf"),
		filepath.Join(outDir, "page-3.pdf"),
	}, res.Outputs)

	src := widths(analyze(t, in))
	for i, out := range res.Outputs {
		assert.Equal(t, []float64{src[i]}, widths(analyze(t, out)))
	}
}

func TestPDFCPUWatermarks(t *testing.T) {
	dir := t.TempDir()
	in := realFixture(t, dir, 300, 300, 300, 300, 300)
	p := realProcessor()

	text := filepath.Join(dir, "text.pdf")
	_, err := p.Run(t.Context(), pdf.WatermarkTextOp{Input: in, Output: text, Ranges: "2"})
	require.NoError(t, err)
	assert.Equal(t, 5, analyze(t, text).TotalPages)

	logo := filepath.Join(dir, "img-0.png")
	stamped := filepath.Join(dir, "image.pdf")
	_, err = p.Run(t.Context(), pdf.WatermarkImageOp{Input: in, Output: stamped, Image: logo, Ranges: "1,3-4"})
	require.NoError(t, err)
	assert.Equal(t, 5, analyze(t, stamped).TotalPages)

	all := filepath.Join(dir, "all.pdf")
	_, err = p.Run(t.Context(), pdf.WatermarkImageOp{Input: in, Output: all, Image: logo})
	require.NoError(t, err)
}

func TestPDFCPUProtectAndUnlock(t *testing.T) {
	dir := t.TempDir()
	in := realFixture(t, dir, 200, 300)
	p := realProcessor()

	locked := filepath.Join(dir, "locked.pdf")
	_, err := p.Run(t.Context(), pdf.ProtectOp{Input: in, Output: locked, Password: "s3cret"})
	require.NoError(t, err)

	_, err = pdf.NewPDFCPUEngine().Open(locked)
	assert.Error(t, err, "an encrypted file needs its password")

	_, err = p.Run(t.Context(), pdf.UnlockOp{Input: locked, Output: filepath.Join(dir, "bad.pdf"), Password: "nope"})
	assert.Error(t, err)

	open := filepath.Join(dir, "open.pdf")
	_, err = p.Run(t.Context(), pdf.UnlockOp{Input: locked, Output: open, Password: "s3cret"})
	require.NoError(t, err)
	assert.Equal(t, widths(analyze(t, in)), widths(analyze(t, open)))
}

func TestPDFCPUUnlockPlainFile(t *testing.T) {
	dir := t.TempDir()
	in := realFixture(t, dir, 200, 300)

	out := filepath.Join(dir, "open.pdf")
	_, err := realProcessor().Run(t.Context(), pdf.UnlockOp{Input: in, Output: out, Password: "anything"})
	require.NoError(t, err)
	assert.Equal(t, widths(analyze(t, in)), widths(analyze(t, out)))
}
