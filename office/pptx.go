package office

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
)

// Slide size of the default 4:3 deck, in EMU (10in x 7.5in).
const (
	slideWidth  = 9144000
	slideHeight = 6858000
)

const presentationNamespaces = `xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main" ` +
	`xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships" ` +
	`xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main"`

const groupShapeHeader = `<p:nvGrpSpPr><p:cNvPr id="1" name=""/><p:cNvGrpSpPr/><p:nvPr/></p:nvGrpSpPr>` +
	`<p:grpSpPr><a:xfrm><a:off x="0" y="0"/><a:ext cx="0" cy="0"/><a:chOff x="0" y="0"/><a:chExt cx="0" cy="0"/></a:xfrm></p:grpSpPr>`

// WriteSlides writes a deck with one blank slide per image. Each JPEG is
// stretched over its whole slide.
func (w *Writer) WriteSlides(images [][]byte, output string) error {
	parts := []part{
		{"[Content_Types].xml", pptxContentTypes(len(images))},
		{"_rels/.rels", relationships(relationship("rId1", relOfficeDocument, "ppt/presentation.xml"))},
		{"ppt/presentation.xml", presentationXML(len(images))},
		{"ppt/_rels/presentation.xml.rels", presentationRels(len(images))},
		{"ppt/slideMasters/slideMaster1.xml", []byte(slideMasterXML)},
		{"ppt/slideMasters/_rels/slideMaster1.xml.rels", relationships(
			relationship("rId1", relSlideLayout, "../slideLayouts/slideLayout1.xml"),
			relationship("rId2", relTheme, "../theme/theme1.xml"),
		)},
		{"ppt/slideLayouts/slideLayout1.xml", []byte(slideLayoutXML)},
		{"ppt/slideLayouts/_rels/slideLayout1.xml.rels", relationships(
			relationship("rId1", relSlideMaster, "../slideMasters/slideMaster1.xml"),
		)},
		{"ppt/theme/theme1.xml", []byte(themeXML)},
	}

	for i, img := range images {
		n := i + 1
		parts = append(parts,
			part{fmt.Sprintf("ppt/slides/slide%d.xml", n), slideXML(n)},
			part{fmt.Sprintf("ppt/slides/_rels/slide%d.xml.rels", n), relationships(
				relationship("rId1", relSlideLayout, "../slideLayouts/slideLayout1.xml"),
				relationship("rId2", relImage, fmt.Sprintf("../media/image%d.jpeg", n)),
			)},
			part{fmt.Sprintf("ppt/media/image%d.jpeg", n), img},
		)
	}

	if err := writePackage(output, parts); err != nil {
		return err
	}

	w.log.WithFields(logrus.Fields{"output": output, "slides": len(images)}).Debug("wrote presentation")
	return nil
}

func pptxContentTypes(slides int) []byte {
	var sb strings.Builder
	sb.WriteString(xmlHeader + `<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">`)
	sb.WriteString(`<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>`)
	sb.WriteString(`<Default Extension="xml" ContentType="application/xml"/>`)
	sb.WriteString(`<Default Extension="jpeg" ContentType="image/jpeg"/>`)
	sb.WriteString(`<Override PartName="/ppt/presentation.xml" ContentType="application/vnd.openxmlformats-officedocument.presentationml.presentation.main+xml"/>`)
	sb.WriteString(`<Override PartName="/ppt/slideMasters/slideMaster1.xml" ContentType="application/vnd.openxmlformats-officedocument.presentationml.slideMaster+xml"/>`)
	sb.WriteString(`<Override PartName="/ppt/slideLayouts/slideLayout1.xml" ContentType="application/vnd.openxmlformats-officedocument.presentationml.slideLayout+xml"/>`)
	sb.WriteString(`<Override PartName="/ppt/theme/theme1.xml" ContentType="application/vnd.openxmlformats-officedocument.theme+xml"/>`)
	for n := 1; n <= slides; n++ {
		fmt.Fprintf(&sb, `<Override PartName="/ppt/slides/slide%d.xml" ContentType="application/vnd.openxmlformats-officedocument.presentationml.slide+xml"/>`, n)
	}
	sb.WriteString(`</Types>`)
	return []byte(sb.String())
}

// Presentation relationship ids: rId1 master, rId2 theme, rId3 onwards slides.
func slideRelID(n int) string {
	return fmt.Sprintf("rId%d", n+2)
}

func presentationXML(slides int) []byte {
	var sb strings.Builder
	sb.WriteString(xmlHeader + `<p:presentation ` + presentationNamespaces + ` saveSubsetFonts="1">`)
	sb.WriteString(`<p:sldMasterIdLst><p:sldMasterId id="2147483648" r:id="rId1"/></p:sldMasterIdLst>`)
	if slides > 0 {
		sb.WriteString(`<p:sldIdLst>`)
		for n := 1; n <= slides; n++ {
			fmt.Fprintf(&sb, `<p:sldId id="%d" r:id="%s"/>`, 255+n, slideRelID(n))
		}
		sb.WriteString(`</p:sldIdLst>`)
	}
	fmt.Fprintf(&sb, `<p:sldSz cx="%d" cy="%d" type="screen4x3"/><p:notesSz cx="%d" cy="%d"/>`,
		slideWidth, slideHeight, slideHeight, slideWidth)
	sb.WriteString(`</p:presentation>`)
	return []byte(sb.String())
}

func presentationRels(slides int) []byte {
	rels := []string{
		relationship("rId1", relSlideMaster, "slideMasters/slideMaster1.xml"),
		relationship("rId2", relTheme, "theme/theme1.xml"),
	}
	for n := 1; n <= slides; n++ {
		rels = append(rels, relationship(slideRelID(n), relSlide, fmt.Sprintf("slides/slide%d.xml", n)))
	}
	return relationships(rels...)
}

func slideXML(n int) []byte {
	return []byte(fmt.Sprintf(xmlHeader+`<p:sld `+presentationNamespaces+`><p:cSld><p:spTree>`+groupShapeHeader+
		`<p:pic><p:nvPicPr><p:cNvPr id="2" name="Page %d"/><p:cNvPicPr><a:picLocks noChangeAspect="1"/></p:cNvPicPr><p:nvPr/></p:nvPicPr>`+
		`<p:blipFill><a:blip r:embed="rId2"/><a:stretch><a:fillRect/></a:stretch></p:blipFill>`+
		`<p:spPr><a:xfrm><a:off x="0" y="0"/><a:ext cx="%d" cy="%d"/></a:xfrm><a:prstGeom prst="rect"><a:avLst/></a:prstGeom></p:spPr>`+
		`</p:pic></p:spTree></p:cSld><p:clrMapOvr><a:masterClrMapping/></p:clrMapOvr></p:sld>`,
		n, slideWidth, slideHeight))
}

const slideMasterXML = xmlHeader + `<p:sldMaster ` + presentationNamespaces + `>` +
	`<p:cSld><p:bg><p:bgRef idx="1001"><a:schemeClr val="bg1"/></p:bgRef></p:bg><p:spTree>` + groupShapeHeader + `</p:spTree></p:cSld>` +
	`<p:clrMap bg1="lt1" tx1="dk1" bg2="lt2" tx2="dk2" accent1="accent1" accent2="accent2" accent3="accent3" ` +
	`accent4="accent4" accent5="accent5" accent6="accent6" hlink="hlink" folHlink="folHlink"/>` +
	`<p:sldLayoutIdLst><p:sldLayoutId id="2147483649" r:id="rId1"/></p:sldLayoutIdLst>` +
	`</p:sldMaster>`

const slideLayoutXML = xmlHeader + `<p:sldLayout ` + presentationNamespaces + ` type="blank" preserve="1">` +
	`<p:cSld name="Blank"><p:spTree>` + groupShapeHeader + `</p:spTree></p:cSld>` +
	`<p:clrMapOvr><a:masterClrMapping/></p:clrMapOvr></p:sldLayout>`

var themeXML = xmlHeader + `<a:theme xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main" name="Office Theme"><a:themeElements>` +
	`<a:clrScheme name="Office">` +
	`<a:dk1><a:sysClr val="windowText" lastClr="000000"/></a:dk1><a:lt1><a:sysClr val="window" lastClr="FFFFFF"/></a:lt1>` +
	`<a:dk2><a:srgbClr val="1F497D"/></a:dk2><a:lt2><a:srgbClr val="EEECE1"/></a:lt2>` +
	`<a:accent1><a:srgbClr val="4F81BD"/></a:accent1><a:accent2><a:srgbClr val="C0504D"/></a:accent2>` +
	`<a:accent3><a:srgbClr val="9BBB59"/></a:accent3><a:accent4><a:srgbClr val="8064A2"/></a:accent4>` +
	`<a:accent5><a:srgbClr val="4BACC6"/></a:accent5><a:accent6><a:srgbClr val="F79646"/></a:accent6>` +
	`<a:hlink><a:srgbClr val="0000FF"/></a:hlink><a:folHlink><a:srgbClr val="800080"/></a:folHlink>` +
	`</a:clrScheme>` +
	`<a:fontScheme name="Office">` +
	`<a:majorFont><a:latin typeface="Calibri"/><a:ea typeface=""/><a:cs typeface=""/></a:majorFont>` +
	`<a:minorFont><a:latin typeface="Calibri"/><a:ea typeface=""/><a:cs typeface=""/></a:minorFont>` +
	`</a:fontScheme>` +
	`<a:fmtScheme name="Office">` +
	`<a:fillStyleLst>` + strings.Repeat(`<a:solidFill><a:schemeClr val="phClr"/></a:solidFill>`, 3) + `</a:fillStyleLst>` +
	`<a:lnStyleLst>` + strings.Repeat(`<a:ln w="9525"><a:solidFill><a:schemeClr val="phClr"/></a:solidFill></a:ln>`, 3) + `</a:lnStyleLst>` +
	`<a:effectStyleLst>` + strings.Repeat(`<a:effectStyle><a:effectLst/></a:effectStyle>`, 3) + `</a:effectStyleLst>` +
	`<a:bgFillStyleLst>` + strings.Repeat(`<a:solidFill><a:schemeClr val="phClr"/></a:solidFill>`, 3) + `</a:bgFillStyleLst>` +
	`</a:fmtScheme>` +
	`</a:themeElements></a:theme>`
