package export

import (
	"context"
	"fmt"
	"html/template"
	"os/exec"
	"strings"
	"time"

	"go.uber.org/zap"

	"notionclone/client/internal/document"
)

const defaultPDFTimeout = 30 * time.Second

// Exporter renders pages. The zero value is not usable; call New.
type Exporter struct {
	lookPath   func(string) (string, error)
	pdfTimeout time.Duration
	logger     *zap.Logger
}

func New(logger *zap.Logger) *Exporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Exporter{
		lookPath:   exec.LookPath,
		pdfTimeout: defaultPDFTimeout,
		logger:     logger,
	}
}

// Export generates an export in the requested format
func (e *Exporter) Export(ctx context.Context, p Page, format Format) (*Result, error) {
	if p.Doc == nil {
		p.Doc = document.New()
	}
	base := sanitizeFilename(p.Title)

	switch format {
	case FormatMarkdown:
		md := ToMarkdown(p.Doc)
		if title := strings.TrimSpace(p.Title); title != "" {
			md = "# " + title + "\n\n" + md
		}
		return &Result{Data: []byte(md), Filename: base + ".md", MimeType: "text/markdown; charset=utf-8"}, nil
	case FormatHTML, FormatPDF, FormatDOCX:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}

	html, err := RenderDocumentHTML(TemplateData{
		Title:       p.Title,
		ContentHTML: template.HTML(ToHTML(p.Doc)),
		Author:      p.Author,
		Workspace:   p.Workspace,
		UpdatedAt:   p.UpdatedAt,
		WordCount:   document.WordCount(p.Doc),
	})
	if err != nil {
		return nil, fmt.Errorf("render template: %w", err)
	}

	start := time.Now()
	var res *Result
	switch format {
	case FormatHTML:
		res = &Result{Data: []byte(html), Filename: base + ".html", MimeType: "text/html; charset=utf-8"}
	case FormatPDF:
		res, err = e.exportPDF(ctx, html, base)
	case FormatDOCX:
		res, err = e.exportDOCX(ctx, html, base)
	}
	if err != nil {
		return nil, err
	}
	e.logger.Debug("page exported",
		zap.String("page_id", p.ID),
		zap.String("format", string(format)),
		zap.Int("bytes", len(res.Data)),
		zap.Duration("duration", time.Since(start)),
	)
	return res, nil
}

// sanitizeFilename creates a safe filename from a title
func sanitizeFilename(title string) string {
	var b strings.Builder
	for _, r := range title {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ':
			b.WriteByte('-')
		case r == '-', r == '_':
			b.WriteRune(r)
		}
	}
	result := b.String()
	if len(result) > 50 {
		result = result[:50]
	}
	if result == "" {
		result = "document"
	}
	return result
}
