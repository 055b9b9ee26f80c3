package media

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	pdfmodel "github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	"github.com/open4good/open4goods-sub001/internal/langdetect"
	"github.com/open4good/open4goods-sub001/internal/model"
)

// maxAnalyzedPages bounds how many pages feed the language detector.
// Product manuals repeat their language mix early, so a prefix is enough.
const maxAnalyzedPages = 10

// PDFAnalysis bundles the structured metadata and the extracted text of a
// cached PDF resource.
type PDFAnalysis struct {
	Info model.PDFInfo
	Text string
}

// AnalyzePDF extracts page count, document metadata, a display title and
// the dominant language from a cached PDF file. A missing metadata title
// falls back to the largest-font text run on the first page.
func AnalyzePDF(path string) (*PDFAnalysis, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()

	conf := pdfmodel.NewDefaultConfiguration()
	ctx, err := api.ReadValidateAndOptimize(file, conf)
	if err != nil {
		return nil, fmt.Errorf("pdfcpu read: %w", err)
	}

	analysis := &PDFAnalysis{
		Info: model.PDFInfo{PageCount: ctx.PageCount},
	}
	readDocumentInfo(ctx, &analysis.Info)

	var text strings.Builder
	var firstPage pageContent
	pages := ctx.PageCount
	if pages > maxAnalyzedPages {
		pages = maxAnalyzedPages
	}
	for pageNr := 1; pageNr <= pages; pageNr++ {
		content := extractPageContent(ctx, pageNr)
		if pageNr == 1 {
			firstPage = content
		}
		if content.text == "" {
			continue
		}
		if text.Len() > 0 {
			text.WriteByte('\n')
		}
		text.WriteString(content.text)
	}
	analysis.Text = text.String()

	if analysis.Info.Title == "" {
		analysis.Info.Title = firstPage.largestFontRun()
	}

	code, multilingual := langdetect.DetectDocument(analysis.Text)
	analysis.Info.Language = code
	analysis.Info.Multilingual = multilingual

	return analysis, nil
}

// readDocumentInfo fills Title, Author and CreatedAt from the document
// information dictionary when present.
func readDocumentInfo(ctx *pdfmodel.Context, info *model.PDFInfo) {
	if ctx.Info == nil {
		return
	}
	dict, err := ctx.DereferenceDict(*ctx.Info)
	if err != nil || dict == nil {
		return
	}

	info.Title = truncateTitle(infoString(dict, "Title"))
	info.Author = strings.TrimSpace(infoString(dict, "Author"))
	if raw := infoString(dict, "CreationDate"); raw != "" {
		if created, ok := types.DateTime(raw, true); ok {
			utc := created.UTC()
			info.CreatedAt = &utc
		}
	}
}

func infoString(dict types.Dict, key string) string {
	obj, found := dict.Find(key)
	if !found {
		return ""
	}
	switch v := obj.(type) {
	case types.StringLiteral:
		return v.Value()
	case types.HexLiteral:
		decoded, err := v.Bytes()
		if err != nil {
			return ""
		}
		return string(decoded)
	default:
		return ""
	}
}

func truncateTitle(title string) string {
	title = strings.TrimSpace(title)
	if len(title) > 200 {
		title = title[:200]
	}
	return title
}

// pageContent is the text of one page plus its text runs keyed by the font
// size they were rendered at.
type pageContent struct {
	text string
	runs []fontRun
}

type fontRun struct {
	size float64
	text string
}

// largestFontRun returns the text rendered at the largest font size on the
// page. Ties keep the earliest run. This is the title heuristic for PDFs
// without an information dictionary.
func (p pageContent) largestFontRun() string {
	best := -1
	for i, run := range p.runs {
		if strings.TrimSpace(run.text) == "" {
			continue
		}
		if best < 0 || run.size > p.runs[best].size {
			best = i
		}
	}
	if best < 0 {
		return ""
	}
	return truncateTitle(p.runs[best].text)
}

func extractPageContent(ctx *pdfmodel.Context, pageNr int) pageContent {
	reader, err := pdfcpu.ExtractPageContent(ctx, pageNr)
	if err != nil {
		return pageContent{}
	}
	data, err := io.ReadAll(reader)
	if err != nil || len(data) == 0 {
		return pageContent{}
	}
	return parseContentStream(data)
}

var (
	// pdfLiteralRe matches string literals in parentheses inside text
	// operators.
	pdfLiteralRe = regexp.MustCompile(`\(([^)]*)\)`)
	// fontSizeRe matches the size operand of a Tf font-selection operator.
	fontSizeRe = regexp.MustCompile(`/\S+\s+([0-9.]+)\s+Tf`)
)

// parseContentStream walks the page content stream line by line. Tj, TJ
// and ' operators contribute text; Tf switches the active font size so
// text can be grouped into font runs; Td, TD and T* insert separators.
func parseContentStream(data []byte) pageContent {
	var sb strings.Builder
	var runs []fontRun
	fontSize := 0.0

	appendRun := func(text string) {
		if text == "" {
			return
		}
		if n := len(runs); n > 0 && runs[n-1].size == fontSize {
			runs[n-1].text += text
			return
		}
		runs = append(runs, fontRun{size: fontSize, text: text})
	}

	for _, line := range bytes.Split(data, []byte{'\n'}) {
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}

		if m := fontSizeRe.FindSubmatch(line); m != nil {
			if size, err := strconv.ParseFloat(string(m[1]), 64); err == nil {
				fontSize = size
			}
		}

		switch {
		case bytes.HasSuffix(line, []byte("Tj")), bytes.HasSuffix(line, []byte("TJ")):
			for _, m := range pdfLiteralRe.FindAllSubmatch(line, -1) {
				text := decodePDFString(m[1])
				sb.WriteString(text)
				appendRun(text)
			}
		case bytes.HasSuffix(line, []byte("'")) && bytes.Contains(line, []byte("(")):
			for _, m := range pdfLiteralRe.FindAllSubmatch(line, -1) {
				text := decodePDFString(m[1])
				if text != "" {
					sb.WriteByte('\n')
					sb.WriteString(text)
					appendRun(text)
				}
			}
		case bytes.HasSuffix(line, []byte("Td")), bytes.HasSuffix(line, []byte("TD")):
			if sb.Len() > 0 {
				sb.WriteByte(' ')
			}
			appendRun(" ")
		case bytes.Equal(line, []byte("T*")):
			sb.WriteByte('\n')
			appendRun(" ")
		}
	}

	return pageContent{text: collapsePDFText(sb.String()), runs: runs}
}

// decodePDFString resolves the escape sequences of a PDF string literal,
// including octal escapes.
func decodePDFString(raw []byte) string {
	var sb strings.Builder
	for i := 0; i < len(raw); i++ {
		if raw[i] != '\\' || i+1 >= len(raw) {
			sb.WriteByte(raw[i])
			continue
		}
		i++
		switch raw[i] {
		case 'n':
			sb.WriteByte('\n')
		case 'r':
			sb.WriteByte('\r')
		case 't':
			sb.WriteByte('\t')
		case '\\', '(', ')':
			sb.WriteByte(raw[i])
		default:
			if raw[i] < '0' || raw[i] > '7' {
				sb.WriteByte(raw[i])
				continue
			}
			val := int(raw[i] - '0')
			for n := 0; n < 2 && i+1 < len(raw) && raw[i+1] >= '0' && raw[i+1] <= '7'; n++ {
				i++
				val = val*8 + int(raw[i]-'0')
			}
			sb.WriteByte(byte(val))
		}
	}
	return sb.String()
}

func collapsePDFText(text string) string {
	var sb strings.Builder
	prevSpace := false
	for _, r := range text {
		switch {
		case unicode.IsSpace(r):
			if !prevSpace && sb.Len() > 0 {
				sb.WriteByte(' ')
				prevSpace = true
			}
		case unicode.IsPrint(r):
			sb.WriteRune(r)
			prevSpace = false
		}
	}
	return strings.TrimSpace(sb.String())
}
