package format

import "testing"

type fakeProber struct {
	text string
	err  error
}

func (f fakeProber) ProbeText(data []byte) (string, error) { return f.text, f.err }

func TestSniff(t *testing.T) {
	tests := []struct {
		name   string
		data   []byte
		prober PDFTextProber
		want   Kind
	}{
		{"plain text", []byte("hello, world\nthis is UTF-8 text"), nil, PlainText},
		{"empty", []byte{}, nil, PlainText},
		{"jpeg", []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00}, nil, Image},
		{"png", []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}, nil, Image},
		{"tiff le", []byte{0x49, 0x49, 0x2A, 0x00}, nil, Image},
		{"pdf no prober", append([]byte("%PDF-1.7\n"), make([]byte, 20)...), nil, ScannedPdf},
		{"pdf digital", []byte("%PDF-1.7\n"), fakeProber{text: "a reasonably long extracted line of real text content here"}, DigitalPdf},
		{"pdf scanned", []byte("%PDF-1.7\n"), fakeProber{text: ""}, ScannedPdf},
		{"binary garbage", []byte{0x00, 0x01, 0x02, 0x03, 0xFE, 0xFF, 0x10, 0x20}, nil, Unsupported},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Sniff(tt.data, tt.prober); got != tt.want {
				t.Fatalf("Sniff(%q) = %v, want %v", tt.name, got, tt.want)
			}
		})
	}
}
