package pdf

import (
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/png"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// DefaultCLITimeout bounds each external tool invocation
const DefaultCLITimeout = 120 * time.Second

// ErrToolDisabled is returned when an external tool is not configured.
var ErrToolDisabled = errors.New("tool disabled")

// execCommandWithTimeout executes a command with a timeout
func execCommandWithTimeout(ctx context.Context, timeout time.Duration, name string, args ...string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, name, args...)
	output, err := cmd.CombinedOutput()

	if ctx.Err() == context.DeadlineExceeded {
		return nil, fmt.Errorf("%s timed out after %v", name, timeout)
	}

	if err != nil {
		return output, fmt.Errorf("%s failed: %w: %s", name, err, strings.TrimSpace(string(output)))
	}

	return output, nil
}

// Tools locates the external programs used where no Go library covers the job.
// An empty path disables that tool.
type Tools struct {
	Ghostscript string
	Pdftoppm    string
	Soffice     string
	Timeout     time.Duration
}

func (t Tools) timeout() time.Duration {
	if t.Timeout <= 0 {
		return DefaultCLITimeout
	}
	return t.Timeout
}

// Compress rewrites input through ghostscript's pdfwrite device with the
// ebook preset.
func (t Tools) Compress(ctx context.Context, input, output string) error {
	if t.Ghostscript == "" {
		return fmt.Errorf("ghostscript: %w", ErrToolDisabled)
	}
	_, err := execCommandWithTimeout(ctx, t.timeout(), t.Ghostscript,
		"-sDEVICE=pdfwrite",
		"-dCompatibilityLevel=1.4",
		"-dPDFSETTINGS=/ebook",
		"-dNOPAUSE",
		"-dQUIET",
		"-dBATCH",
		"-sOutputFile="+output,
		input,
	)
	return err
}

// Rasterize renders a 1-based page of input at dpi.
func (t Tools) Rasterize(ctx context.Context, input string, page, dpi int) (image.Image, error) {
	if t.Pdftoppm == "" {
		return nil, fmt.Errorf("pdftoppm: %w", ErrToolDisabled)
	}

	dir, err := os.MkdirTemp("", "pdftools_raster_*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp directory: %w", err)
	}
	defer os.RemoveAll(dir)

	prefix := filepath.Join(dir, "page")
	p := strconv.Itoa(page)
	if _, err := execCommandWithTimeout(ctx, t.timeout(), t.Pdftoppm,
		"-png", "-r", strconv.Itoa(dpi), "-f", p, "-l", p, "-singlefile", input, prefix,
	); err != nil {
		return nil, err
	}

	f, err := os.Open(prefix + ".png")
	if err != nil {
		return nil, fmt.Errorf("pdftoppm produced no image: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode rendered page: %w", err)
	}
	return img, nil
}

// ConvertToPDF converts an office document into outDir with LibreOffice and
// returns the path of the produced PDF.
func (t Tools) ConvertToPDF(ctx context.Context, input, outDir string) (string, error) {
	if t.Soffice == "" {
		return "", fmt.Errorf("soffice: %w", ErrToolDisabled)
	}
	if _, err := execCommandWithTimeout(ctx, t.timeout(), t.Soffice,
		"--headless", "--convert-to", "pdf", "--outdir", outDir, input,
	); err != nil {
		return "", err
	}

	base := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
	out := filepath.Join(outDir, base+".pdf")
	if _, err := os.Stat(out); err != nil {
		return "", fmt.Errorf("soffice did not produce %s: %w", out, err)
	}
	return out, nil
}
