package attestation

import (
	"fmt"
	"os"

	"github.com/go-pdf/fpdf"
	"golang.org/x/image/font/gofont/goregular"
)

const fontFamily = "attestation"

// FontRegistry resolves the font used on attestation pages. The row
// labels are Cyrillic, so a UTF-8 capable face is always registered:
// the configured TTF when one is given, the embedded Go Regular face
// otherwise. The core PDF fonts only cover cp1252 and would corrupt
// both the rendered text and the width measurements. A configured path
// is checked once at startup so a missing font fails the boot, not the
// first signature.
type FontRegistry struct {
	ttfPath string
}

func NewFontRegistry(ttfPath string) (*FontRegistry, error) {
	if ttfPath == "" {
		return &FontRegistry{}, nil
	}
	if _, err := os.Stat(ttfPath); err != nil {
		return nil, fmt.Errorf("attestation font: %w", err)
	}
	return &FontRegistry{ttfPath: ttfPath}, nil
}

// Apply registers the font on the document and returns the family name
// to select with SetFont.
func (r *FontRegistry) Apply(doc *fpdf.Fpdf) string {
	if r.ttfPath != "" {
		doc.AddUTF8Font(fontFamily, "", r.ttfPath)
	} else {
		doc.AddUTF8FontFromBytes(fontFamily, "", goregular.TTF)
	}
	return fontFamily
}
