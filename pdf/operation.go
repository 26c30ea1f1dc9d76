package pdf

import (
	"fmt"
)

// Kind names an operation.
type Kind string

const (
	KindMerge          Kind = "merge"
	KindSplit          Kind = "split"
	KindCompress       Kind = "compress"
	KindPDFToWord      Kind = "pdf_to_word"
	KindPDFToPPTX      Kind = "pdf_to_pptx"
	KindJPGToPDF       Kind = "jpg_to_pdf"
	KindPDFToJPG       Kind = "pdf_to_jpg"
	KindRotate         Kind = "rotate"
	KindUnlock         Kind = "unlock"
	KindProtect        Kind = "protect"
	KindReorder        Kind = "reorder_pages"
	KindWatermarkText  Kind = "watermark_text"
	KindWatermarkImage Kind = "watermark_image"
	KindPDFToExcel     Kind = "pdf_to_excel"
	KindOfficeToPDF    Kind = "office_to_pdf"
	KindRemovePages    Kind = "remove_pages"
)

// Operation is one of the operation types in this file. The set is closed:
// Processor.Run rejects anything else.
type Operation interface {
	Kind() Kind
	// Validate reports missing or malformed arguments.
	Validate() error
}

func required(field, value string) error {
	if value == "" {
		return fmt.Errorf("%w: %s is required", ErrInvalidInput, field)
	}
	return nil
}

func requiredAll(checks ...error) error {
	for _, err := range checks {
		if err != nil {
			return err
		}
	}
	return nil
}

// MergeOp concatenates Inputs in order.
type MergeOp struct {
	Inputs []string
	Output string
}

func (MergeOp) Kind() Kind { return KindMerge }

func (o MergeOp) Validate() error {
	if len(o.Inputs) == 0 {
		return fmt.Errorf("%w: at least one input is required", ErrInvalidInput)
	}
	for _, in := range o.Inputs {
		if err := required("input", in); err != nil {
			return err
		}
	}
	return required("output", o.Output)
}

// SplitOp writes each page selected by Ranges to its own file in OutDir.
type SplitOp struct {
	Input  string
	Ranges string
	OutDir string
}

func (SplitOp) Kind() Kind { return KindSplit }

func (o SplitOp) Validate() error {
	return requiredAll(required("input", o.Input), required("outdir", o.OutDir))
}

// CompressOp rewrites Input to a smaller Output.
type CompressOp struct {
	Input  string
	Output string
}

func (CompressOp) Kind() Kind { return KindCompress }

func (o CompressOp) Validate() error {
	return requiredAll(required("input", o.Input), required("output", o.Output))
}

// PDFToWordOp converts Input to a .docx document.
type PDFToWordOp struct {
	Input  string
	Output string
}

func (PDFToWordOp) Kind() Kind { return KindPDFToWord }

func (o PDFToWordOp) Validate() error {
	return requiredAll(required("input", o.Input), required("output", o.Output))
}

// PDFToPPTXOp renders each page of Input onto a slide.
type PDFToPPTXOp struct {
	Input  string
	Output string
}

func (PDFToPPTXOp) Kind() Kind { return KindPDFToPPTX }

func (o PDFToPPTXOp) Validate() error {
	return requiredAll(required("input", o.Input), required("output", o.Output))
}

// JPGToPDFOp makes one page per image.
type JPGToPDFOp struct {
	Images []string
	Output string
}

func (JPGToPDFOp) Kind() Kind { return KindJPGToPDF }

func (o JPGToPDFOp) Validate() error {
	if len(o.Images) == 0 {
		return fmt.Errorf("%w: at least one image is required", ErrInvalidInput)
	}
	return required("output", o.Output)
}

// PDFToJPGOp renders every page of Input into OutDir.
type PDFToJPGOp struct {
	Input  string
	OutDir string
}

func (PDFToJPGOp) Kind() Kind { return KindPDFToJPG }

func (o PDFToJPGOp) Validate() error {
	return requiredAll(required("input", o.Input), required("outdir", o.OutDir))
}

// RotateOp turns the pages selected by Ranges by Rotation degrees.
type RotateOp struct {
	Input    string
	Output   string
	Rotation int
	Ranges   string
}

func (RotateOp) Kind() Kind { return KindRotate }

func (o RotateOp) Validate() error {
	if err := requiredAll(required("input", o.Input), required("output", o.Output)); err != nil {
		return err
	}
	if o.Rotation%90 != 0 {
		return fmt.Errorf("%w: rotation must be a multiple of 90, got %d", ErrInvalidInput, o.Rotation)
	}
	return nil
}

// UnlockOp removes password protection from Input.
type UnlockOp struct {
	Input    string
	Output   string
	Password string
}

func (UnlockOp) Kind() Kind { return KindUnlock }

func (o UnlockOp) Validate() error {
	return requiredAll(required("input", o.Input), required("output", o.Output))
}

// ProtectOp encrypts Input with Password as both owner and user password.
type ProtectOp struct {
	Input    string
	Output   string
	Password string
}

func (ProtectOp) Kind() Kind { return KindProtect }

func (o ProtectOp) Validate() error {
	return requiredAll(required("input", o.Input), required("output", o.Output), required("password", o.Password))
}

// ReorderOp rebuilds Input from the 0-based page indices in Order.
type ReorderOp struct {
	Input  string
	Output string
	Order  []int
}

func (ReorderOp) Kind() Kind { return KindReorder }

func (o ReorderOp) Validate() error {
	return requiredAll(required("input", o.Input), required("output", o.Output))
}

// WatermarkTextOp stamps Text over the pages selected by Ranges.
type WatermarkTextOp struct {
	Input  string
	Output string
	Text   string
	Ranges string
}

func (WatermarkTextOp) Kind() Kind { return KindWatermarkText }

func (o WatermarkTextOp) Validate() error {
	return requiredAll(required("input", o.Input), required("output", o.Output))
}

// WatermarkImageOp stamps Image over the pages selected by Ranges.
type WatermarkImageOp struct {
	Input  string
	Output string
	Image  string
	Ranges string
}

func (WatermarkImageOp) Kind() Kind { return KindWatermarkImage }

func (o WatermarkImageOp) Validate() error {
	return requiredAll(required("input", o.Input), required("output", o.Output), required("image", o.Image))
}

// PDFToExcelOp writes the tables found in Input to a workbook.
type PDFToExcelOp struct {
	Input  string
	Output string
}

func (PDFToExcelOp) Kind() Kind { return KindPDFToExcel }

func (o PDFToExcelOp) Validate() error {
	return requiredAll(required("input", o.Input), required("output", o.Output))
}

// OfficeToPDFOp converts a Word, PowerPoint or Excel file into OutDir.
type OfficeToPDFOp struct {
	Input  string
	OutDir string
}

func (OfficeToPDFOp) Kind() Kind { return KindOfficeToPDF }

func (o OfficeToPDFOp) Validate() error {
	return requiredAll(required("input", o.Input), required("outdir", o.OutDir))
}

// RemovePagesOp drops the pages selected by Ranges.
type RemovePagesOp struct {
	Input  string
	Output string
	Ranges string
}

func (RemovePagesOp) Kind() Kind { return KindRemovePages }

func (o RemovePagesOp) Validate() error {
	if err := requiredAll(required("input", o.Input), required("output", o.Output)); err != nil {
		return err
	}
	return required("pages", o.Ranges)
}

// Result lists the files an operation wrote.
type Result struct {
	Outputs []string
}
