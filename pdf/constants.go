package pdf

import "image/color"

const (
	// DefaultDirPermissions for output directories
	DefaultDirPermissions = 0755

	// DefaultRotation is the rotation delta used when none is given
	DefaultRotation = 90

	// RasterDPI is the resolution pages are rendered at for JPG and slide output
	RasterDPI = 200

	// JPEGQuality for rendered pages
	JPEGQuality = 90

	// DefaultWatermarkText is stamped when no text is given
	DefaultWatermarkText = "CONFIDENTIAL"

	// WatermarkFontSize in points
	WatermarkFontSize = 48

	// WatermarkAngle draws text along the page diagonal
	WatermarkAngle = 45

	// WatermarkOpacity applies to both text and image overlays
	WatermarkOpacity = 0.2

	// ImageWatermarkMargin keeps image overlays this many points off the page edge
	ImageWatermarkMargin = 36

	// EncryptionKeyLength selects AES-128, the security handler revision 4 cipher
	EncryptionKeyLength = 128
)

// WatermarkColor is the dark red used for text overlays.
var WatermarkColor = color.RGBA{R: 0xB3, G: 0x00, B: 0x00, A: 0xFF}
