package extraction

import (
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"
)

const excerptRunes = 2000

// PDFTextExtractor extracts plain text from PDF bytes.
type PDFTextExtractor struct{}

func NewPDFTextExtractor() PDFTextExtractor {
	return PDFTextExtractor{}
}

func (PDFTextExtractor) Extract(r io.ReaderAt, size int64) (string, string, error) {
	reader, err := pdf.NewReader(r, size)
	if err != nil {
		return "", "", fmt.Errorf("opening pdf: %w", err)
	}

	plain, err := reader.GetPlainText()
	if err != nil {
		return "", "", fmt.Errorf("extracting pdf text: %w", err)
	}

	var sb strings.Builder
	if _, err := io.Copy(&sb, plain); err != nil {
		return "", "", fmt.Errorf("reading pdf text: %w", err)
	}

	text := strings.TrimSpace(sb.String())
	return text, Excerpt(text), nil
}

// Excerpt truncates text to the listing excerpt length on a rune boundary.
func Excerpt(text string) string {
	runes := []rune(text)
	if len(runes) <= excerptRunes {
		return text
	}
	return string(runes[:excerptRunes])
}
