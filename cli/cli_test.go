package cli

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pdftools/api"
	"pdftools/pdf"
	"pdftools/pdf/pdftest"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	a := &app{
		engine: pdftest.NewEngine(),
		newRunner: func(a *app) api.Runner {
			return pdf.NewProcessor(pdf.Deps{Engine: a.engine, Crypter: pdftest.Crypter{}, Log: a.log})
		},
	}
	root := newRootCommand(a)

	var stdout, stderr bytes.Buffer
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(args)
	err := root.Execute()
	return stdout.String(), err
}

func fakePDF(t *testing.T, dir, name string, pages int) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, pdftest.WriteFile(path, pages))
	return path
}

func labels(t *testing.T, path string) []string {
	t.Helper()
	f, err := pdftest.ReadFile(path)
	require.NoError(t, err)
	return f.Label()
}

func TestUnknownOperation(t *testing.T) {
	_, err := execute(t, "frobnicate", "--input", "a.pdf")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown command "frobnicate"`)
}

func TestEveryOperationHasACommand(t *testing.T) {
	root := NewRootCommand()
	for _, kind := range []pdf.Kind{
		pdf.KindMerge, pdf.KindSplit, pdf.KindCompress, pdf.KindPDFToWord, pdf.KindPDFToPPTX,
		pdf.KindJPGToPDF, pdf.KindPDFToJPG, pdf.KindRotate, pdf.KindUnlock, pdf.KindProtect,
		pdf.KindReorder, pdf.KindWatermarkText, pdf.KindWatermarkImage, pdf.KindPDFToExcel,
		pdf.KindOfficeToPDF, pdf.KindRemovePages,
	} {
		cmd, _, err := root.Find([]string{string(kind)})
		require.NoError(t, err, kind)
		assert.Equal(t, string(kind), cmd.Name())
	}
}

func TestMergeCommand(t *testing.T) {
	dir := t.TempDir()
	a := fakePDF(t, dir, "a,draft.pdf", 1)
	b := fakePDF(t, dir, "b.pdf", 2)
	out := filepath.Join(dir, "merged.pdf")

	stdout, err := execute(t, "merge", "--inputs", a, "--inputs", b, "--output", out)
	require.NoError(t, err)
	assert.Equal(t, out, strings.TrimSpace(stdout))
	assert.Equal(t, []string{"a,draft.pdf:1", "b.pdf:1", "b.pdf:2"}, labels(t, out))
}

func TestMergeCommandTakesTrailingInputs(t *testing.T) {
	dir := t.TempDir()
	a := fakePDF(t, dir, "a.pdf", 1)
	b := fakePDF(t, dir, "b.pdf", 1)
	c := fakePDF(t, dir, "c.pdf", 1)
	out := filepath.Join(dir, "merged.pdf")

	_, err := execute(t, "merge", "--output", out, "--inputs", a, b, c)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.pdf:1", "b.pdf:1", "c.pdf:1"}, labels(t, out))
}

func TestSingleInputCommandRejectsArguments(t *testing.T) {
	dir := t.TempDir()
	in := fakePDF(t, dir, "in.pdf", 1)

	_, err := execute(t, "rotate", "--input", in, "--output", filepath.Join(dir, "out.pdf"), "stray.pdf")
	assert.ErrorContains(t, err, `unknown command "stray.pdf"`)
}

func TestRotateCommandDefaultsToNinety(t *testing.T) {
	dir := t.TempDir()
	in := fakePDF(t, dir, "in.pdf", 2)
	out := filepath.Join(dir, "rotated.pdf")

	_, err := execute(t, "rotate", "--input", in, "--output", out, "--ranges", "2")
	require.NoError(t, err)

	f, err := pdftest.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, 0, f.Pages[0].Rotation)
	assert.Equal(t, 90, f.Pages[1].Rotation)
}

func TestReorderCommand(t *testing.T) {
	dir := t.TempDir()
	in := fakePDF(t, dir, "in.pdf", 3)
	out := filepath.Join(dir, "out.pdf")

	_, err := execute(t, "reorder_pages", "--input", in, "--output", out, "--order", `[2, "skip", 0]`)
	require.NoError(t, err)
	assert.Equal(t, []string{"in.pdf:3", "in.pdf:1"}, labels(t, out))
}

func TestSplitCommandPrintsEveryOutput(t *testing.T) {
	dir := t.TempDir()
	in := fakePDF(t, dir, "in.pdf", 3)
	outDir := filepath.Join(dir, "pages")

	stdout, err := execute(t, "split", "--input", in, "--outdir", outDir, "--ranges", "1,3")
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(outDir, "page-1.pdf"), filepath.Join(outDir, "page-3.pdf")},
		strings.Fields(stdout))
}

func TestOperationErrors(t *testing.T) {
	dir := t.TempDir()
	in := fakePDF(t, dir, "in.pdf", 2)

	_, err := execute(t, "remove_pages", "--input", in, "--output", filepath.Join(dir, "out.pdf"), "--ranges", "1-2")
	assert.ErrorIs(t, err, pdf.ErrInvalidInput)

	_, err = execute(t, "protect", "--input", in, "--output", filepath.Join(dir, "out.pdf"))
	assert.ErrorIs(t, err, pdf.ErrInvalidInput)

	_, err = execute(t, "merge", "--output", filepath.Join(dir, "out.pdf"), "stray")
	assert.Error(t, err)
}

func TestInfoCommand(t *testing.T) {
	dir := t.TempDir()
	in := fakePDF(t, dir, "in.pdf", 2)

	stdout, err := execute(t, "info", in)
	require.NoError(t, err)
	assert.Contains(t, stdout, "pages: 2")
	assert.Contains(t, stdout, "612x792 pt  rotation 0")

	stdout, err = execute(t, "info", "--json", in)
	require.NoError(t, err)
	var analysis pdf.Analysis
	require.NoError(t, json.Unmarshal([]byte(stdout), &analysis))
	assert.Equal(t, 2, analysis.TotalPages)
}

func TestLoggerFlags(t *testing.T) {
	_, err := execute(t, "--log-level", "loud", "info", "x.pdf")
	assert.ErrorIs(t, err, pdf.ErrInvalidInput)

	_, err = execute(t, "--log-format", "xml", "info", "x.pdf")
	assert.ErrorIs(t, err, pdf.ErrInvalidInput)
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	log, err := newLogger("warn", "json", &buf)
	require.NoError(t, err)
	assert.Equal(t, logrus.WarnLevel, log.GetLevel())

	log.Info("hidden")
	log.WithField("op", "merge").Warn("shown")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "shown", entry["msg"])
	assert.Equal(t, "merge", entry["op"])
}

func TestExtraArgumentsGoToTheListFlag(t *testing.T) {
	f := &opFlags{}
	f.extra([]string{"images", "output"}, []string{"b.png", "c.png"})
	assert.Equal(t, []string{"b.png", "c.png"}, f.images)
	assert.Empty(t, f.inputs)

	f = &opFlags{inputs: []string{"a.pdf"}}
	f.extra([]string{"inputs", "output"}, []string{"b.pdf"})
	assert.Equal(t, []string{"a.pdf", "b.pdf"}, f.inputs)
}
