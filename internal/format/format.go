// Package format classifies an ingested document's bytes into the kinds
// the extraction pipeline dispatches on. Grounded on the teacher's
// internal/gcpclient/text_parser.go content-type dispatch idiom; magic-byte
// sniffing itself is stdlib-only (no pack library offers it — see
// DESIGN.md).
package format

import (
	"bytes"
	"unicode/utf8"
)

// Kind is the classified document format.
type Kind int

const (
	Unsupported Kind = iota
	PlainText
	Image
	DigitalPdf
	ScannedPdf
)

func (k Kind) String() string {
	switch k {
	case PlainText:
		return "plain_text"
	case Image:
		return "image"
	case DigitalPdf:
		return "digital_pdf"
	case ScannedPdf:
		return "scanned_pdf"
	default:
		return "unsupported"
	}
}

var (
	pdfMagic  = []byte("%PDF-")
	jpegMagic = []byte{0xFF, 0xD8, 0xFF}
	pngMagic  = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}
	tiffLE    = []byte{0x49, 0x49, 0x2A, 0x00}
	tiffBE    = []byte{0x4D, 0x4D, 0x00, 0x2A}
)

// minExtractableTextThreshold is the minimum run of extracted text bytes
// (per spec.md §4.5) below which a PDF is treated as scanned rather than
// digital.
const minExtractableTextThreshold = 32

// PDFTextProber extracts raw text from a PDF's pages without rendering —
// the native-PDF half of the extractor dispatch (spec.md §4.6). Injected
// because no pack library provides native PDF text extraction; a real
// implementation wraps a PDF parsing library at the call site.
type PDFTextProber interface {
	ProbeText(data []byte) (string, error)
}

// Sniff classifies raw bytes by magic prefix and content. With a prober,
// DigitalPdf/ScannedPdf is decided by extractable text volume; with a nil
// prober every PDF is classified as ScannedPdf.
func Sniff(data []byte, prober PDFTextProber) Kind {
	switch {
	case bytes.HasPrefix(data, pdfMagic):
		return classifyPDF(data, prober)
	case bytes.HasPrefix(data, jpegMagic):
		return Image
	case bytes.HasPrefix(data, pngMagic):
		return Image
	case bytes.HasPrefix(data, tiffLE), bytes.HasPrefix(data, tiffBE):
		return Image
	case isPlainText(data):
		return PlainText
	default:
		return Unsupported
	}
}

func classifyPDF(data []byte, prober PDFTextProber) Kind {
	if prober == nil {
		return ScannedPdf
	}
	text, err := prober.ProbeText(data)
	if err != nil || len(text) < minExtractableTextThreshold {
		return ScannedPdf
	}
	return DigitalPdf
}

// isPlainText reports whether data is valid UTF-8 with no binary prefix:
// no NUL byte in the first 512 bytes and the whole buffer decodes cleanly.
func isPlainText(data []byte) bool {
	if len(data) == 0 {
		return true
	}
	probe := data
	if len(probe) > 512 {
		probe = probe[:512]
	}
	if bytes.IndexByte(probe, 0) != -1 {
		return false
	}
	return utf8.Valid(data)
}
