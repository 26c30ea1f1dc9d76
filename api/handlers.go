package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"unicode"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"pdftools/pdf"
)

// Runner performs PDF operations.
type Runner interface {
	Run(ctx context.Context, op pdf.Operation) (pdf.Result, error)
}

// DownloadResponse points the client at a job's output.
type DownloadResponse struct {
	JobID            string `json:"jobId"`
	Filename         string `json:"filename"`
	DownloadURL      string `json:"downloadUrl"`
	ExpiresAtMinutes int    `json:"expiresAtMinutes"`
}

// Handler serves the conversion routes. Each request gets its own job
// directory; outputs are fetched later through Download.
type Handler struct {
	runner      Runner
	jobs        *JobStore
	maxFileSize int64
	log         logrus.FieldLogger
}

// NewHandler returns a Handler that runs operations with runner.
func NewHandler(runner Runner, jobs *JobStore, maxFileSize int64, log logrus.FieldLogger) *Handler {
	return &Handler{runner: runner, jobs: jobs, maxFileSize: maxFileSize, log: log}
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", pdf.ErrInvalidInput, fmt.Sprintf(format, args...))
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *Handler) Download(c *gin.Context) {
	path, err := h.jobs.Resolve(c.Param("jobId"), c.Param("filename"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
		return
	}
	c.FileAttachment(path, filepath.Base(path))
}

// pdfRoute handles routes that take a single PDF upload. build turns the
// saved input into the operation to run; a non-empty zipName bundles all
// outputs into one archive.
func (h *Handler) pdfRoute(zipName string, build func(c *gin.Context, job *Job, input string) (pdf.Operation, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		header, err := c.FormFile(uploadField)
		if err != nil {
			h.fail(c, nil, invalid("upload a PDF"))
			return
		}

		job, err := h.jobs.New()
		if err != nil {
			h.fail(c, nil, err)
			return
		}

		input, err := h.savePDF(c, job, header, "input.pdf")
		if err != nil {
			h.fail(c, job, err)
			return
		}

		op, err := build(c, job, input)
		if err != nil {
			h.fail(c, job, err)
			return
		}
		h.run(c, job, op, zipName)
	}
}

// officeRoute converts an uploaded office document with one of exts to PDF.
func (h *Handler) officeRoute(kind string, exts ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header, err := c.FormFile(uploadField)
		if err != nil {
			h.fail(c, nil, invalid("upload a %s file", kind))
			return
		}
		ext := strings.ToLower(filepath.Ext(header.Filename))
		if !slices.Contains(exts, ext) {
			h.fail(c, nil, invalid("%s files must end in %s", kind, strings.Join(exts, ", ")))
			return
		}
		if header.Size > h.maxFileSize {
			h.fail(c, nil, invalid("file size %d exceeds maximum allowed %d bytes", header.Size, h.maxFileSize))
			return
		}

		job, err := h.jobs.New()
		if err != nil {
			h.fail(c, nil, err)
			return
		}
		input := job.Path("input" + ext)
		if err := c.SaveUploadedFile(header, input); err != nil {
			h.fail(c, job, fmt.Errorf("failed to save upload: %w", err))
			return
		}
		h.run(c, job, pdf.OfficeToPDFOp{Input: input, OutDir: job.Dir}, "")
	}
}

func (h *Handler) Merge(c *gin.Context) {
	headers := h.uploads(c)
	if len(headers) < 2 {
		h.fail(c, nil, invalid("upload at least two PDF files"))
		return
	}

	job, err := h.jobs.New()
	if err != nil {
		h.fail(c, nil, err)
		return
	}
	inputs, err := h.savePDFs(c, job, headers)
	if err != nil {
		h.fail(c, job, err)
		return
	}
	h.run(c, job, pdf.MergeOp{Inputs: inputs, Output: job.Path("merged.pdf")}, "")
}

func (h *Handler) Split(c *gin.Context) {
	h.pdfRoute("split.zip", func(c *gin.Context, job *Job, input string) (pdf.Operation, error) {
		return pdf.SplitOp{Input: input, Ranges: c.PostForm("range"), OutDir: job.Path("split")}, nil
	})(c)
}

func (h *Handler) Compress(c *gin.Context) {
	h.pdfRoute("", func(c *gin.Context, job *Job, input string) (pdf.Operation, error) {
		return pdf.CompressOp{Input: input, Output: job.Path("compressed.pdf")}, nil
	})(c)
}

func (h *Handler) PDFToWord(c *gin.Context) {
	h.pdfRoute("", func(c *gin.Context, job *Job, input string) (pdf.Operation, error) {
		return pdf.PDFToWordOp{Input: input, Output: job.Path("output.docx")}, nil
	})(c)
}

func (h *Handler) PDFToPPTX(c *gin.Context) {
	h.pdfRoute("", func(c *gin.Context, job *Job, input string) (pdf.Operation, error) {
		return pdf.PDFToPPTXOp{Input: input, Output: job.Path("slides.pptx")}, nil
	})(c)
}

func (h *Handler) PDFToExcel(c *gin.Context) {
	h.pdfRoute("", func(c *gin.Context, job *Job, input string) (pdf.Operation, error) {
		return pdf.PDFToExcelOp{Input: input, Output: job.Path("tables.xlsx")}, nil
	})(c)
}

func (h *Handler) PDFToJPG(c *gin.Context) {
	h.pdfRoute("images.zip", func(c *gin.Context, job *Job, input string) (pdf.Operation, error) {
		return pdf.PDFToJPGOp{Input: input, OutDir: job.Path("images")}, nil
	})(c)
}

func (h *Handler) JPGToPDF(c *gin.Context) {
	headers := h.uploads(c)
	if len(headers) == 0 {
		h.fail(c, nil, invalid("upload one or more images"))
		return
	}
	for _, header := range headers {
		ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(header.Filename), "."))
		if !slices.Contains([]string{"jpg", "jpeg", "png"}, ext) {
			h.fail(c, nil, invalid("only JPG/PNG images are accepted, got %q", header.Filename))
			return
		}
		if header.Size > h.maxFileSize {
			h.fail(c, nil, invalid("file size %d exceeds maximum allowed %d bytes", header.Size, h.maxFileSize))
			return
		}
	}

	job, err := h.jobs.New()
	if err != nil {
		h.fail(c, nil, err)
		return
	}
	images := make([]string, 0, len(headers))
	for i, header := range headers {
		dst := job.Path(uploadName(i, header.Filename))
		if err := c.SaveUploadedFile(header, dst); err != nil {
			h.fail(c, job, fmt.Errorf("failed to save upload: %w", err))
			return
		}
		images = append(images, dst)
	}
	h.run(c, job, pdf.JPGToPDFOp{Images: images, Output: job.Path("images.pdf")}, "")
}

func (h *Handler) Rotate(c *gin.Context) {
	h.pdfRoute("", func(c *gin.Context, job *Job, input string) (pdf.Operation, error) {
		rotation := pdf.DefaultRotation
		if raw := strings.TrimSpace(c.PostForm("rotation")); raw != "" {
			var err error
			if rotation, err = strconv.Atoi(raw); err != nil {
				return nil, invalid("rotation must be an integer, got %q", raw)
			}
		}
		return pdf.RotateOp{
			Input:    input,
			Output:   job.Path("rotated.pdf"),
			Rotation: rotation,
			Ranges:   c.PostForm("range"),
		}, nil
	})(c)
}

func (h *Handler) Unlock(c *gin.Context) {
	h.pdfRoute("", func(c *gin.Context, job *Job, input string) (pdf.Operation, error) {
		return pdf.UnlockOp{Input: input, Output: job.Path("unlocked.pdf"), Password: c.PostForm("password")}, nil
	})(c)
}

func (h *Handler) Protect(c *gin.Context) {
	if c.PostForm("newPassword") == "" {
		h.fail(c, nil, invalid("upload a PDF and set a password"))
		return
	}
	h.pdfRoute("", func(c *gin.Context, job *Job, input string) (pdf.Operation, error) {
		return pdf.ProtectOp{Input: input, Output: job.Path("protected.pdf"), Password: c.PostForm("newPassword")}, nil
	})(c)
}

// Organize merges several PDFs in the posted order, or reorders the pages of
// a single PDF.
func (h *Handler) Organize(c *gin.Context) {
	headers := h.uploads(c)
	if len(headers) == 0 {
		h.fail(c, nil, invalid("upload PDFs"))
		return
	}

	order, discards := pdf.ParseOrder(c.PostForm("order"))
	for _, d := range discards {
		h.log.WithFields(logrus.Fields{"token": d.Token, "reason": d.Reason}).Warn("ignoring order entry")
	}

	job, err := h.jobs.New()
	if err != nil {
		h.fail(c, nil, err)
		return
	}
	inputs, err := h.savePDFs(c, job, headers)
	if err != nil {
		h.fail(c, job, err)
		return
	}

	out := job.Path("organized.pdf")
	if len(inputs) == 1 {
		h.run(c, job, pdf.ReorderOp{Input: inputs[0], Output: out, Order: order}, "")
		return
	}

	if isPermutation(order, len(inputs)) {
		ordered := make([]string, len(order))
		for i, idx := range order {
			ordered[i] = inputs[idx]
		}
		inputs = ordered
	}
	h.run(c, job, pdf.MergeOp{Inputs: inputs, Output: out}, "")
}

// Watermark stamps the uploaded watermarkImage when present, watermarkText
// otherwise.
func (h *Handler) Watermark(c *gin.Context) {
	h.pdfRoute("", func(c *gin.Context, job *Job, input string) (pdf.Operation, error) {
		out := job.Path("watermarked.pdf")
		ranges := c.PostForm("range")

		img, err := c.FormFile("watermarkImage")
		if errors.Is(err, http.ErrMissingFile) {
			return pdf.WatermarkTextOp{Input: input, Output: out, Text: c.PostForm("watermarkText"), Ranges: ranges}, nil
		}
		if err != nil {
			return nil, invalid("unreadable watermark image")
		}
		if img.Size > h.maxFileSize {
			return nil, invalid("file size %d exceeds maximum allowed %d bytes", img.Size, h.maxFileSize)
		}

		ext := strings.ToLower(filepath.Ext(img.Filename))
		if ext == "" {
			ext = ".png"
		}
		path := job.Path(sanitizeFilename("wm" + ext))
		if err := c.SaveUploadedFile(img, path); err != nil {
			return nil, fmt.Errorf("failed to save upload: %w", err)
		}
		return pdf.WatermarkImageOp{Input: input, Output: out, Image: path, Ranges: ranges}, nil
	})(c)
}

func (h *Handler) RemovePages(c *gin.Context) {
	if strings.TrimSpace(c.PostForm("pages")) == "" {
		h.fail(c, nil, invalid("no pages specified"))
		return
	}
	h.pdfRoute("", func(c *gin.Context, job *Job, input string) (pdf.Operation, error) {
		return pdf.RemovePagesOp{Input: input, Output: job.Path("pages_removed.pdf"), Ranges: c.PostForm("pages")}, nil
	})(c)
}

// run executes op for job and answers with its download location.
func (h *Handler) run(c *gin.Context, job *Job, op pdf.Operation, zipName string) {
	result, err := h.runner.Run(c.Request.Context(), op)
	if err != nil {
		h.fail(c, job, err)
		return
	}
	if len(result.Outputs) == 0 {
		h.fail(c, job, errors.New("operation did not produce output"))
		return
	}

	out := result.Outputs[0]
	if zipName != "" {
		out = job.Path(zipName)
		if err := zipFiles(result.Outputs, out); err != nil {
			h.fail(c, job, fmt.Errorf("failed to bundle outputs: %w", err))
			return
		}
	}

	filename := filepath.Base(out)
	c.JSON(http.StatusOK, DownloadResponse{
		JobID:            job.ID,
		Filename:         filename,
		DownloadURL:      "/download/" + job.ID + "/" + url.PathEscape(filename),
		ExpiresAtMinutes: int(h.jobs.TTL().Minutes()),
	})
}

// fail drops job, if any, and reports err. Input problems are the client's
// fault; anything else is ours.
func (h *Handler) fail(c *gin.Context, job *Job, err error) {
	if job != nil {
		h.jobs.Remove(job)
	}

	status := http.StatusInternalServerError
	entry := h.log.WithError(err).WithField("path", c.FullPath())
	if errors.Is(err, pdf.ErrInvalidInput) {
		status = http.StatusBadRequest
		entry.Warn("rejected request")
	} else {
		entry.Error("PDF operation error")
	}

	msg := err.Error()
	if len(msg) > maxErrorLength {
		msg = msg[:maxErrorLength] + "..."
	}
	c.JSON(status, gin.H{"error": msg})
}

// uploads returns every file posted under the upload field.
func (h *Handler) uploads(c *gin.Context) []*multipart.FileHeader {
	form, err := c.MultipartForm()
	if err != nil || form == nil {
		return nil
	}
	return form.File[uploadField]
}

func (h *Handler) savePDF(c *gin.Context, job *Job, header *multipart.FileHeader, name string) (string, error) {
	if err := validatePDFFile(header, h.maxFileSize); err != nil {
		return "", err
	}
	dst := job.Path(name)
	if err := c.SaveUploadedFile(header, dst); err != nil {
		return "", fmt.Errorf("failed to save upload: %w", err)
	}
	return dst, nil
}

// savePDFs saves uploads in order under distinct names.
func (h *Handler) savePDFs(c *gin.Context, job *Job, headers []*multipart.FileHeader) ([]string, error) {
	paths := make([]string, 0, len(headers))
	for i, header := range headers {
		p, err := h.savePDF(c, job, header, uploadName(i, header.Filename))
		if err != nil {
			return nil, err
		}
		paths = append(paths, p)
	}
	return paths, nil
}

// uploadName prefixes the sanitized name with its position so that uploads
// with the same name don't overwrite each other.
func uploadName(i int, filename string) string {
	return fmt.Sprintf("%02d-%s", i+1, sanitizeFilename(filename))
}

// validatePDFFile checks the upload size and the PDF header
func validatePDFFile(header *multipart.FileHeader, maxSize int64) error {
	if header.Size > maxSize {
		return invalid("file size %d exceeds maximum allowed %d bytes", header.Size, maxSize)
	}

	file, err := header.Open()
	if err != nil {
		return fmt.Errorf("failed to open upload: %w", err)
	}
	defer file.Close()

	buffer := make([]byte, 4)
	n, err := io.ReadFull(file, buffer)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to read file header: %w", err)
	}
	if n < 4 || string(buffer) != "%PDF" {
		return invalid("%s is not a PDF file", sanitizeFilename(header.Filename))
	}
	return nil
}

// sanitizeFilename folds accents and replaces anything outside
// [a-zA-Z0-9._-] with an underscore.
func sanitizeFilename(filename string) string {
	filename = filepath.Base(strings.ReplaceAll(filename, "\\", "/"))

	fold := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	if folded, _, err := transform.String(fold, filename); err == nil {
		filename = folded
	}

	var sb strings.Builder
	for _, r := range filename {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '_', r == '-':
			sb.WriteRune(r)
		default:
			sb.WriteByte('_')
		}
	}

	name := strings.Trim(sb.String(), ".")
	if name == "" {
		return "document"
	}
	return name
}

// isPermutation reports whether order lists each of 0..n-1 exactly once.
func isPermutation(order []int, n int) bool {
	if len(order) != n {
		return false
	}
	seen := make([]bool, n)
	for _, idx := range order {
		if idx < 0 || idx >= n || seen[idx] {
			return false
		}
		seen[idx] = true
	}
	return true
}
