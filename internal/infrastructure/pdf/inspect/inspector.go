// Package inspect validates uploaded files before they are registered
// with the signing authority.
package inspect

import (
	"bytes"
	"fmt"

	"github.com/ledongthuc/pdf"

	"github.com/qazdocs/docsign/internal/core/domain"
)

// Inspector parses the uploaded bytes as a PDF and rejects anything the
// parser cannot walk. Corrupt uploads fail here instead of after
// registration with the authority.
type Inspector struct{}

func New() *Inspector {
	return &Inspector{}
}

func (i *Inspector) Validate(content []byte) (int, error) {
	if len(content) == 0 {
		return 0, domain.WrapError(domain.ErrInvalidInput, "validate document", fmt.Errorf("empty content"))
	}

	reader, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return 0, domain.WrapError(domain.ErrDocumentCorrupt, "validate document", err)
	}

	pages := reader.NumPage()
	if pages < 1 {
		return 0, domain.WrapError(domain.ErrDocumentCorrupt, "validate document", fmt.Errorf("no pages"))
	}

	// Walk every page so a truncated xref or broken page tree surfaces
	// now rather than during attestation.
	for n := 1; n <= pages; n++ {
		page := reader.Page(n)
		if page.V.IsNull() {
			return 0, domain.WrapError(domain.ErrDocumentCorrupt, "validate document", fmt.Errorf("page %d unreadable", n))
		}
	}
	return pages, nil
}
