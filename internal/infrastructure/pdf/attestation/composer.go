// Package attestation renders human-readable signature pages and appends
// them to the stored document.
package attestation

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/qazdocs/docsign/internal/core/domain"
	"github.com/qazdocs/docsign/internal/core/ports"
)

const (
	labelX       = 50.0
	valueX       = 250.0
	fontSize     = 10.0
	rowStep      = 20.0
	qrSize       = 100.0
	qrStep       = 120.0
	marginTop    = 50.0
	marginBottom = 50.0
	marginRight  = 50.0
	maxQRCodes   = 4
)

// Observer receives the duration of each successful compose pass.
type Observer interface {
	ObserveCompose(seconds float64)
}

type nopObserver struct{}

func (nopObserver) ObserveCompose(float64) {}

// Composer appends attestation pages to a stored PDF. New pages inherit
// the media box of the document's first page, and the stored file is
// only replaced after the full merged document has been produced.
type Composer struct {
	storage  ports.ObjectStorage
	fonts    *FontRegistry
	logger   *slog.Logger
	observer Observer
}

type Option func(*Composer)

func WithObserver(o Observer) Option {
	return func(c *Composer) {
		if o != nil {
			c.observer = o
		}
	}
}

func NewComposer(storage ports.ObjectStorage, fonts *FontRegistry, logger *slog.Logger, opts ...Option) *Composer {
	c := &Composer{
		storage:  storage,
		fonts:    fonts,
		logger:   logger,
		observer: nopObserver{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Composer) AppendAttestation(ctx context.Context, storageKey string, events []domain.SignatureEvent) error {
	if len(events) == 0 {
		return nil
	}
	start := time.Now()

	rc, err := c.storage.Open(ctx, storageKey)
	if err != nil {
		return fmt.Errorf("open stored document: %w", err)
	}
	original, err := io.ReadAll(rc)
	rc.Close()
	if err != nil {
		return fmt.Errorf("read stored document: %w", err)
	}

	conf := model.NewDefaultConfiguration()
	dims, err := api.PageDims(bytes.NewReader(original), conf)
	if err != nil || len(dims) == 0 {
		if err == nil {
			err = fmt.Errorf("no pages")
		}
		return domain.WrapError(domain.ErrDocumentCorrupt, "read page dimensions", err)
	}
	pageW, pageH := dims[0].Width, dims[0].Height

	pages, err := c.renderPages(pageW, pageH, events)
	if err != nil {
		return fmt.Errorf("render attestation pages: %w", err)
	}

	var merged bytes.Buffer
	readers := []io.ReadSeeker{bytes.NewReader(original), bytes.NewReader(pages)}
	if err := api.MergeRaw(readers, &merged, false, conf); err != nil {
		return domain.WrapError(domain.ErrDocumentCorrupt, "merge attestation pages", err)
	}

	if err := c.storage.Replace(ctx, storageKey, bytes.NewReader(merged.Bytes())); err != nil {
		return fmt.Errorf("replace stored document: %w", err)
	}

	c.observer.ObserveCompose(time.Since(start).Seconds())
	c.logger.Info("attestation_appended",
		slog.String("storage_key", storageKey),
		slog.Int("events", len(events)))
	return nil
}

func (c *Composer) renderPages(pageW, pageH float64, events []domain.SignatureEvent) ([]byte, error) {
	doc := fpdf.NewCustom(&fpdf.InitType{
		UnitStr: "pt",
		Size:    fpdf.SizeType{Wd: pageW, Ht: pageH},
	})
	family := c.fonts.Apply(doc)
	doc.SetFont(family, "", fontSize)
	doc.SetAutoPageBreak(false, 0)
	doc.AddPage()

	measure := func(s string) float64 { return doc.GetStringWidth(s) }
	y := marginTop

	// A block never clips: when the next element would pass the bottom
	// margin the cursor moves to a fresh page.
	ensure := func(need float64) {
		if y+need > pageH-marginBottom {
			doc.AddPage()
			y = marginTop
		}
	}
	row := func(label, value string) {
		ensure(rowStep)
		doc.Text(labelX, y, label)
		if value != "" {
			doc.Text(valueX, y, value)
		}
		y += rowStep
	}

	for _, ev := range events {
		row("Дата формирования подписи:", ev.SignedAt)
		row("Подписал(-а):", domain.ParseSubject(ev.Subject).DisplayName())
		if ev.HasKeyUsage(domain.KeyUsageDigitalSignature) {
			row("-Цифровая подпись:", string(domain.KeyUsageDigitalSignature))
		}
		if ev.HasKeyUsage(domain.KeyUsageNonRepudiation) {
			row("-Неотрекаемость:", string(domain.KeyUsageNonRepudiation))
		}

		row("Субъект:", "")
		for _, line := range wrapText(measure, ev.Subject, pageW-marginRight-labelX) {
			ensure(rowStep)
			doc.Text(labelX, y, line)
			y += rowStep
		}
		y += rowStep

		row("С:", ev.ValidFrom)
		row("По:", ev.ValidUntil)

		issuerLines := wrapText(measure, ev.Issuer, pageW-marginRight-valueX)
		ensure(rowStep)
		doc.Text(labelX, y, "Издатель:")
		for i, line := range issuerLines {
			if i > 0 {
				ensure(rowStep)
			}
			doc.Text(valueX, y, line)
			y += rowStep
		}
		if len(issuerLines) == 0 {
			y += rowStep
		}
		y += rowStep

		c.drawQRCodes(doc, ev, &y, pageW, ensure)

		y += 2 * rowStep
	}

	if err := doc.Error(); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (c *Composer) drawQRCodes(doc *fpdf.Fpdf, ev domain.SignatureEvent, y *float64, pageW float64, ensure func(float64)) {
	codes := ev.QRCodes
	if len(codes) == 0 {
		return
	}
	if len(codes) > maxQRCodes {
		codes = codes[:maxQRCodes]
	}

	opts := fpdf.ImageOptions{ImageType: "PNG"}
	x := labelX
	ensure(qrSize)
	for i, code := range codes {
		if x+qrSize > pageW-marginRight {
			x = labelX
			*y += qrStep
			ensure(qrSize)
		}
		name := fmt.Sprintf("qr-%d-%d", ev.SignID, i)
		doc.RegisterImageOptionsReader(name, opts, bytes.NewReader(code))
		doc.ImageOptions(name, x, *y, qrSize, qrSize, false, opts, 0, "")
		x += qrStep
	}
	*y += qrSize + marginBottom
}
