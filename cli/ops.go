package cli

import (
	"fmt"
	"slices"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"pdftools/pdf"
)

// opFlags holds every flag an operation command may register.
type opFlags struct {
	inputs   []string
	images   []string
	input    string
	output   string
	outDir   string
	ranges   string
	rotation int
	password string
	order    string
	text     string
	image    string
}

type operationDef struct {
	kind  pdf.Kind
	short string
	flags []string
	build func(f *opFlags, log logrus.FieldLogger) pdf.Operation
}

var operations = []operationDef{
	{
		kind:  pdf.KindMerge,
		short: "Concatenate PDFs in order",
		flags: []string{"inputs", "output"},
		build: func(f *opFlags, _ logrus.FieldLogger) pdf.Operation {
			return pdf.MergeOp{Inputs: f.inputs, Output: f.output}
		},
	},
	{
		kind:  pdf.KindSplit,
		short: "Write selected pages to one file each",
		flags: []string{"input", "outdir", "ranges"},
		build: func(f *opFlags, _ logrus.FieldLogger) pdf.Operation {
			return pdf.SplitOp{Input: f.input, Ranges: f.ranges, OutDir: f.outDir}
		},
	},
	{
		kind:  pdf.KindCompress,
		short: "Rewrite a PDF smaller",
		flags: []string{"input", "output"},
		build: func(f *opFlags, _ logrus.FieldLogger) pdf.Operation {
			return pdf.CompressOp{Input: f.input, Output: f.output}
		},
	},
	{
		kind:  pdf.KindPDFToWord,
		short: "Convert PDF text to a Word document",
		flags: []string{"input", "output"},
		build: func(f *opFlags, _ logrus.FieldLogger) pdf.Operation {
			return pdf.PDFToWordOp{Input: f.input, Output: f.output}
		},
	},
	{
		kind:  pdf.KindPDFToPPTX,
		short: "Render each page onto a slide",
		flags: []string{"input", "output"},
		build: func(f *opFlags, _ logrus.FieldLogger) pdf.Operation {
			return pdf.PDFToPPTXOp{Input: f.input, Output: f.output}
		},
	},
	{
		kind:  pdf.KindJPGToPDF,
		short: "Make a PDF with one page per image",
		flags: []string{"images", "output"},
		build: func(f *opFlags, _ logrus.FieldLogger) pdf.Operation {
			return pdf.JPGToPDFOp{Images: f.images, Output: f.output}
		},
	},
	{
		kind:  pdf.KindPDFToJPG,
		short: "Render every page to JPEG",
		flags: []string{"input", "outdir"},
		build: func(f *opFlags, _ logrus.FieldLogger) pdf.Operation {
			return pdf.PDFToJPGOp{Input: f.input, OutDir: f.outDir}
		},
	},
	{
		kind:  pdf.KindRotate,
		short: "Rotate selected pages",
		flags: []string{"input", "output", "rotation", "ranges"},
		build: func(f *opFlags, _ logrus.FieldLogger) pdf.Operation {
			return pdf.RotateOp{Input: f.input, Output: f.output, Rotation: f.rotation, Ranges: f.ranges}
		},
	},
	{
		kind:  pdf.KindUnlock,
		short: "Remove password protection",
		flags: []string{"input", "output", "password"},
		build: func(f *opFlags, _ logrus.FieldLogger) pdf.Operation {
			return pdf.UnlockOp{Input: f.input, Output: f.output, Password: f.password}
		},
	},
	{
		kind:  pdf.KindProtect,
		short: "Encrypt with a password",
		flags: []string{"input", "output", "password"},
		build: func(f *opFlags, _ logrus.FieldLogger) pdf.Operation {
			return pdf.ProtectOp{Input: f.input, Output: f.output, Password: f.password}
		},
	},
	{
		kind:  pdf.KindReorder,
		short: "Rebuild a PDF from a JSON list of 0-based page indices",
		flags: []string{"input", "output", "order"},
		build: func(f *opFlags, log logrus.FieldLogger) pdf.Operation {
			order, discards := pdf.ParseOrder(f.order)
			for _, d := range discards {
				log.WithFields(logrus.Fields{"token": d.Token, "reason": d.Reason}).Warn("ignoring order entry")
			}
			return pdf.ReorderOp{Input: f.input, Output: f.output, Order: order}
		},
	},
	{
		kind:  pdf.KindWatermarkText,
		short: "Stamp diagonal text over selected pages",
		flags: []string{"input", "output", "text", "ranges"},
		build: func(f *opFlags, _ logrus.FieldLogger) pdf.Operation {
			return pdf.WatermarkTextOp{Input: f.input, Output: f.output, Text: f.text, Ranges: f.ranges}
		},
	},
	{
		kind:  pdf.KindWatermarkImage,
		short: "Stamp an image over selected pages",
		flags: []string{"input", "output", "image", "ranges"},
		build: func(f *opFlags, _ logrus.FieldLogger) pdf.Operation {
			return pdf.WatermarkImageOp{Input: f.input, Output: f.output, Image: f.image, Ranges: f.ranges}
		},
	},
	{
		kind:  pdf.KindPDFToExcel,
		short: "Extract tables into a workbook",
		flags: []string{"input", "output"},
		build: func(f *opFlags, _ logrus.FieldLogger) pdf.Operation {
			return pdf.PDFToExcelOp{Input: f.input, Output: f.output}
		},
	},
	{
		kind:  pdf.KindOfficeToPDF,
		short: "Convert a Word, PowerPoint or Excel file to PDF",
		flags: []string{"input", "outdir"},
		build: func(f *opFlags, _ logrus.FieldLogger) pdf.Operation {
			return pdf.OfficeToPDFOp{Input: f.input, OutDir: f.outDir}
		},
	},
	{
		kind:  pdf.KindRemovePages,
		short: "Drop selected pages",
		flags: []string{"input", "output", "ranges"},
		build: func(f *opFlags, _ logrus.FieldLogger) pdf.Operation {
			return pdf.RemovePagesOp{Input: f.input, Output: f.output, Ranges: f.ranges}
		},
	},
}

func (f *opFlags) register(cmd *cobra.Command, names []string) {
	fs := cmd.Flags()
	for _, name := range names {
		switch name {
		case "inputs":
			fs.StringArrayVar(&f.inputs, name, nil, "input PDF; repeat the flag for each file, in order")
		case "images":
			fs.StringArrayVar(&f.images, name, nil, "input image; repeat the flag for each file, in order")
		case "input":
			fs.StringVar(&f.input, name, "", "input file")
		case "output":
			fs.StringVar(&f.output, name, "", "output file")
		case "outdir":
			fs.StringVar(&f.outDir, name, "", "output directory")
		case "ranges":
			fs.StringVar(&f.ranges, name, "", `page ranges such as "1-3,5"; empty selects all pages`)
		case "rotation":
			fs.IntVar(&f.rotation, name, pdf.DefaultRotation, "degrees clockwise, a multiple of 90")
		case "password":
			fs.StringVar(&f.password, name, "", "document password")
		case "order":
			fs.StringVar(&f.order, name, "", "JSON list of 0-based page indices, e.g. [2,0,1]")
		case "text":
			fs.StringVar(&f.text, name, "", "watermark text (default "+pdf.DefaultWatermarkText+")")
		case "image":
			fs.StringVar(&f.image, name, "", "watermark image")
		default:
			panic(fmt.Sprintf("unknown operation flag %q", name))
		}
	}
}

func newOperationCommand(a *app, def operationDef) *cobra.Command {
	f := &opFlags{}
	cmd := &cobra.Command{
		Use:   string(def.kind),
		Short: def.short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f.extra(def.flags, args)
			op := def.build(f, a.log)
			result, err := a.runner.Run(cmd.Context(), op)
			if err != nil {
				return err
			}
			for _, out := range result.Outputs {
				fmt.Fprintln(cmd.OutOrStdout(), out)
			}
			return nil
		},
	}
	f.register(cmd, def.flags)
	if slices.Contains(def.flags, "inputs") || slices.Contains(def.flags, "images") {
		// "--inputs a.pdf b.pdf" leaves b.pdf as a positional argument.
		cmd.Args = cobra.ArbitraryArgs
	}
	return cmd
}

// extra appends positional arguments to the list flag the command takes.
func (f *opFlags) extra(flags, args []string) {
	switch {
	case len(args) == 0:
	case slices.Contains(flags, "images"):
		f.images = append(f.images, args...)
	case slices.Contains(flags, "inputs"):
		f.inputs = append(f.inputs, args...)
	}
}
