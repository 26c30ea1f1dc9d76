package api

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pdftools/pdf"
)

const samplePDF = "%PDF-1.4\n%fake\n"

// fakeRunner records operations and writes placeholder outputs.
type fakeRunner struct {
	mu  sync.Mutex
	ops []pdf.Operation
	err error
}

func (f *fakeRunner) Run(_ context.Context, op pdf.Operation) (pdf.Result, error) {
	f.mu.Lock()
	f.ops = append(f.ops, op)
	f.mu.Unlock()

	if err := op.Validate(); err != nil {
		return pdf.Result{}, err
	}
	if f.err != nil {
		return pdf.Result{}, f.err
	}

	var outputs []string
	switch o := op.(type) {
	case pdf.SplitOp:
		if err := os.MkdirAll(o.OutDir, 0755); err != nil {
			return pdf.Result{}, err
		}
		for _, page := range []int{1, 2} {
			outputs = append(outputs, filepath.Join(o.OutDir, pdf.PageFileName(page, ".pdf")))
		}
	case pdf.PDFToJPGOp:
		if err := os.MkdirAll(o.OutDir, 0755); err != nil {
			return pdf.Result{}, err
		}
		outputs = append(outputs, filepath.Join(o.OutDir, pdf.PageFileName(1, ".jpg")))
	case pdf.OfficeToPDFOp:
		outputs = append(outputs, filepath.Join(o.OutDir, "input.pdf"))
	case pdf.MergeOp:
		outputs = append(outputs, o.Output)
	case pdf.ReorderOp:
		outputs = append(outputs, o.Output)
	case pdf.RotateOp:
		outputs = append(outputs, o.Output)
	case pdf.WatermarkTextOp:
		outputs = append(outputs, o.Output)
	case pdf.WatermarkImageOp:
		outputs = append(outputs, o.Output)
	case pdf.ProtectOp:
		outputs = append(outputs, o.Output)
	case pdf.JPGToPDFOp:
		outputs = append(outputs, o.Output)
	case pdf.RemovePagesOp:
		outputs = append(outputs, o.Output)
	case pdf.CompressOp:
		outputs = append(outputs, o.Output)
	default:
		return pdf.Result{}, fmt.Errorf("unexpected op %s", op.Kind())
	}

	for _, out := range outputs {
		if err := os.WriteFile(out, []byte("output of "+string(op.Kind())), 0644); err != nil {
			return pdf.Result{}, err
		}
	}
	return pdf.Result{Outputs: outputs}, nil
}

func (f *fakeRunner) last(t *testing.T) pdf.Operation {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.ops)
	return f.ops[len(f.ops)-1]
}

type testServer struct {
	router *gin.Engine
	runner *fakeRunner
	jobs   *JobStore
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	log, _ := test.NewNullLogger()
	jobs, err := NewJobStore(t.TempDir(), 15*time.Minute, log)
	require.NoError(t, err)

	runner := &fakeRunner{}
	h := NewHandler(runner, jobs, 1024*1024, log)
	return &testServer{router: NewRouter(h, "*", log), runner: runner, jobs: jobs}
}

type upload struct {
	field, name, content string
}

func multipartBody(t *testing.T, fields map[string]string, files ...upload) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	for _, f := range files {
		part, err := w.CreateFormFile(f.field, f.name)
		require.NoError(t, err)
		_, err = io.WriteString(part, f.content)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return &body, w.FormDataContentType()
}

func (s *testServer) post(t *testing.T, path string, fields map[string]string, files ...upload) *httptest.ResponseRecorder {
	t.Helper()
	body, contentType := multipartBody(t, fields, files...)
	req := httptest.NewRequest(http.MethodPost, path, body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) get(path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func decodeDownload(t *testing.T, rec *httptest.ResponseRecorder) DownloadResponse {
	t.Helper()
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp DownloadResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func pdfUpload(name string) upload {
	return upload{field: uploadField, name: name, content: samplePDF}
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	rec := s.get("/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ok":true}`, rec.Body.String())
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestMergeAndDownload(t *testing.T) {
	s := newTestServer(t)

	rec := s.post(t, "/merge-pdf", nil, pdfUpload("b.pdf"), pdfUpload("a.pdf"))
	resp := decodeDownload(t, rec)

	assert.Equal(t, "merged.pdf", resp.Filename)
	assert.Equal(t, 15, resp.ExpiresAtMinutes)
	assert.Equal(t, "/download/"+resp.JobID+"/merged.pdf", resp.DownloadURL)

	op, ok := s.runner.last(t).(pdf.MergeOp)
	require.True(t, ok)
	require.Len(t, op.Inputs, 2)
	assert.Equal(t, "01-b.pdf", filepath.Base(op.Inputs[0]))
	assert.Equal(t, "02-a.pdf", filepath.Base(op.Inputs[1]))

	dl := s.get(resp.DownloadURL)
	assert.Equal(t, http.StatusOK, dl.Code)
	assert.Equal(t, "output of merge", dl.Body.String())
}

func TestMergeNeedsTwoFiles(t *testing.T) {
	s := newTestServer(t)
	rec := s.post(t, "/merge-pdf", nil, pdfUpload("only.pdf"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "at least two")
}

func TestRejectsNonPDFUpload(t *testing.T) {
	s := newTestServer(t)
	rec := s.post(t, "/compress-pdf", nil, upload{field: uploadField, name: "notes.pdf", content: "hello"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "not a PDF")

	entries, err := os.ReadDir(s.jobs.root)
	require.NoError(t, err)
	assert.Empty(t, entries, "failed jobs are removed")
}

func TestMissingUpload(t *testing.T) {
	s := newTestServer(t)
	rec := s.post(t, "/rotate-pdf", map[string]string{"rotation": "90"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSplitBundlesPages(t *testing.T) {
	s := newTestServer(t)

	rec := s.post(t, "/split-pdf", map[string]string{"range": "1-2"}, pdfUpload("doc.pdf"))
	resp := decodeDownload(t, rec)
	assert.Equal(t, "split.zip", resp.Filename)

	op, ok := s.runner.last(t).(pdf.SplitOp)
	require.True(t, ok)
	assert.Equal(t, "1-2", op.Ranges)

	path, err := s.jobs.Resolve(resp.JobID, resp.Filename)
	require.NoError(t, err)
	zr, err := zip.OpenReader(path)
	require.NoError(t, err)
	defer zr.Close()

	var names []string
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	assert.Equal(t, []string{"page-1.pdf", "page-2.pdf"}, names)
}

func TestRotate(t *testing.T) {
	tests := []struct {
		name     string
		fields   map[string]string
		status   int
		rotation int
		ranges   string
	}{
		{name: "default rotation", fields: nil, status: http.StatusOK, rotation: 90},
		{name: "empty rotation", fields: map[string]string{"rotation": ""}, status: http.StatusOK, rotation: 90},
		{name: "explicit", fields: map[string]string{"rotation": "180", "range": "2"}, status: http.StatusOK, rotation: 180, ranges: "2"},
		{name: "not a number", fields: map[string]string{"rotation": "quarter"}, status: http.StatusBadRequest},
		{name: "not a right angle", fields: map[string]string{"rotation": "45"}, status: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t)
			rec := s.post(t, "/rotate-pdf", tt.fields, pdfUpload("doc.pdf"))
			require.Equal(t, tt.status, rec.Code, rec.Body.String())
			if tt.status != http.StatusOK {
				return
			}
			op := s.runner.last(t).(pdf.RotateOp)
			assert.Equal(t, tt.rotation, op.Rotation)
			assert.Equal(t, tt.ranges, op.Ranges)
		})
	}
}

func TestProtectRequiresPassword(t *testing.T) {
	s := newTestServer(t)
	rec := s.post(t, "/protect-pdf", nil, pdfUpload("doc.pdf"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.post(t, "/protect-pdf", map[string]string{"newPassword": "s3cret"}, pdfUpload("doc.pdf"))
	decodeDownload(t, rec)
	op := s.runner.last(t).(pdf.ProtectOp)
	assert.Equal(t, "s3cret", op.Password)
}

func TestOrganize(t *testing.T) {
	t.Run("single file reorders pages", func(t *testing.T) {
		s := newTestServer(t)
		rec := s.post(t, "/organize-pdf", map[string]string{"order": `[2, "x", 0, 1]`}, pdfUpload("doc.pdf"))
		decodeDownload(t, rec)
		op := s.runner.last(t).(pdf.ReorderOp)
		assert.Equal(t, []int{2, 0, 1}, op.Order)
	})

	t.Run("files merged in posted order", func(t *testing.T) {
		s := newTestServer(t)
		rec := s.post(t, "/organize-pdf", map[string]string{"order": "[1, 0]"}, pdfUpload("a.pdf"), pdfUpload("b.pdf"))
		decodeDownload(t, rec)
		op := s.runner.last(t).(pdf.MergeOp)
		assert.Equal(t, "02-b.pdf", filepath.Base(op.Inputs[0]))
		assert.Equal(t, "01-a.pdf", filepath.Base(op.Inputs[1]))
	})

	t.Run("invalid order keeps upload order", func(t *testing.T) {
		s := newTestServer(t)
		rec := s.post(t, "/organize-pdf", map[string]string{"order": "[1, 1]"}, pdfUpload("a.pdf"), pdfUpload("b.pdf"))
		decodeDownload(t, rec)
		op := s.runner.last(t).(pdf.MergeOp)
		assert.Equal(t, "01-a.pdf", filepath.Base(op.Inputs[0]))
	})
}

func TestWatermarkPrefersImage(t *testing.T) {
	s := newTestServer(t)

	rec := s.post(t, "/watermark-pdf", map[string]string{"watermarkText": "DRAFT"}, pdfUpload("doc.pdf"))
	decodeDownload(t, rec)
	textOp := s.runner.last(t).(pdf.WatermarkTextOp)
	assert.Equal(t, "DRAFT", textOp.Text)

	rec = s.post(t, "/watermark-pdf", map[string]string{"watermarkText": "DRAFT"},
		pdfUpload("doc.pdf"), upload{field: "watermarkImage", name: "logo.PNG", content: "png"})
	decodeDownload(t, rec)
	imgOp := s.runner.last(t).(pdf.WatermarkImageOp)
	assert.Equal(t, "wm.png", filepath.Base(imgOp.Image))
}

func TestJPGToPDFAcceptsOnlyImages(t *testing.T) {
	s := newTestServer(t)

	rec := s.post(t, "/jpg-to-pdf", nil, upload{field: uploadField, name: "scan.gif", content: "gif"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.post(t, "/jpg-to-pdf", nil,
		upload{field: uploadField, name: "one.jpg", content: "jpg"},
		upload{field: uploadField, name: "two.png", content: "png"})
	resp := decodeDownload(t, rec)
	assert.Equal(t, "images.pdf", resp.Filename)
	op := s.runner.last(t).(pdf.JPGToPDFOp)
	assert.Len(t, op.Images, 2)
}

func TestOfficeToPDF(t *testing.T) {
	s := newTestServer(t)

	rec := s.post(t, "/word-to-pdf", nil, upload{field: uploadField, name: "report.pdf", content: samplePDF})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.post(t, "/word-to-pdf", nil, upload{field: uploadField, name: "report.docx", content: "docx"})
	resp := decodeDownload(t, rec)
	assert.Equal(t, "input.pdf", resp.Filename)
	op := s.runner.last(t).(pdf.OfficeToPDFOp)
	assert.Equal(t, "input.docx", filepath.Base(op.Input))
}

func TestRemovePagesRequiresPages(t *testing.T) {
	s := newTestServer(t)
	rec := s.post(t, "/remove-pages", nil, pdfUpload("doc.pdf"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.post(t, "/remove-pages", map[string]string{"pages": "2-3"}, pdfUpload("doc.pdf"))
	decodeDownload(t, rec)
	assert.Equal(t, "2-3", s.runner.last(t).(pdf.RemovePagesOp).Ranges)
}

func TestRunnerErrorsMapToStatus(t *testing.T) {
	s := newTestServer(t)

	s.runner.err = fmt.Errorf("remove_pages: %w: cannot remove all 3 pages", pdf.ErrInvalidInput)
	rec := s.post(t, "/remove-pages", map[string]string{"pages": "1-3"}, pdfUpload("doc.pdf"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	s.runner.err = errors.New("engine exploded")
	rec = s.post(t, "/compress-pdf", nil, pdfUpload("doc.pdf"))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "engine exploded")
}

func TestDownloadNotFound(t *testing.T) {
	s := newTestServer(t)

	assert.Equal(t, http.StatusNotFound, s.get("/download/not-a-uuid/file.pdf").Code)
	assert.Equal(t, http.StatusNotFound, s.get("/download/3f1c2d4e-5a6b-4c7d-8e9f-0a1b2c3d4e5f/file.pdf").Code)
	assert.JSONEq(t, `{"error":"Not found"}`, s.get("/download/x/y").Body.String())
}

func TestCORSPreflight(t *testing.T) {
	s := newTestServer(t)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/merge-pdf", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"report.pdf", "report.pdf"},
		{"Résumé final.pdf", "Resume_final.pdf"},
		{"../../etc/passwd", "passwd"},
		{`C:\Users\me\scan 01.png`, "scan_01.png"},
		{"..", "document"},
		{"", "document"},
		{"日本.pdf", "__.pdf"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, sanitizeFilename(tt.in), tt.in)
	}
}

func TestIsPermutation(t *testing.T) {
	assert.True(t, isPermutation([]int{2, 0, 1}, 3))
	assert.False(t, isPermutation([]int{0, 1}, 3))
	assert.False(t, isPermutation([]int{0, 0, 1}, 3))
	assert.False(t, isPermutation([]int{0, 1, 3}, 3))
	assert.True(t, isPermutation(nil, 0))
}
