// Package export renders generated documents and the chat log as
// downloadable files.
package export

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"regexp"
	"strings"

	"github.com/go-pdf/fpdf"

	"github.com/fyrsmithlabs/managerd/internal/chat"
)

// ErrUnknownFormat is returned for formats other than pdf and doc.
var ErrUnknownFormat = errors.New("unknown export format")

// Format is an export file format.
type Format string

const (
	FormatPDF Format = "pdf"
	FormatDOC Format = "doc"
)

// ParseFormat accepts pdf and doc case-insensitively. Empty means pdf.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case "", FormatPDF:
		return FormatPDF, nil
	case FormatDOC:
		return FormatDOC, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

// ContentType is the MIME type served for f.
func (f Format) ContentType() string {
	if f == FormatDOC {
		return "application/msword"
	}
	return "application/pdf"
}

// ChatLogFilename is the name of the exported conversation.
const ChatLogFilename = "nikto-log.pdf"

// Page geometry in millimetres on A4.
const (
	margin         = 15.0
	titleY         = 20.0
	bodyY          = 35.0
	continuationY  = 20.0
	lineHeight     = 7.0
	pageBreakAfter = 280.0

	logMargin   = 10.0
	logTopY     = 10.0
	logWrap     = 180.0
	logGap      = 5.0
	defaultName = "Document"
)

// File is a rendered export.
type File struct {
	Name        string
	ContentType string
	Data        []byte
	Pages       int
}

var whitespace = regexp.MustCompile(`\s+`)

// Filename replaces every whitespace run in title with an underscore and
// appends the extension.
func Filename(title string, f Format) string {
	if strings.TrimSpace(title) == "" {
		title = defaultName
	}
	return whitespace.ReplaceAllString(title, "_") + "." + string(f)
}

// Document renders a generated document in the requested format.
func Document(title, content string, f Format) (File, error) {
	out := File{Name: Filename(title, f), ContentType: f.ContentType()}
	switch f {
	case FormatPDF:
		data, pages, err := RenderPDF(title, content)
		if err != nil {
			return File{}, err
		}
		out.Data, out.Pages = data, pages
	case FormatDOC:
		data, err := RenderDOC(title, content)
		if err != nil {
			return File{}, err
		}
		out.Data, out.Pages = data, 1
	default:
		return File{}, fmt.Errorf("%w: %q", ErrUnknownFormat, f)
	}
	return out, nil
}

// RenderPDF lays out title and wrapped content on A4 pages and returns the
// bytes and page count.
func RenderPDF(title, content string) ([]byte, int, error) {
	if title == "" {
		title = defaultName
	}
	pdf := fpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pageWidth, _ := pdf.GetPageSize()

	pdf.AddPage()
	pdf.SetFont("Helvetica", "", 18)
	pdf.Text(margin, titleY, tr(title))

	pdf.SetFont("Helvetica", "", 12)
	y := bodyY
	for _, line := range wrap(pdf, content, pageWidth-2*margin) {
		if y > pageBreakAfter {
			pdf.AddPage()
			y = continuationY
		}
		pdf.Text(margin, y, tr(line))
		y += lineHeight
	}
	return output(pdf)
}

var docTemplate = template.Must(template.New("doc").Parse(`<html xmlns:o='urn:schemas-microsoft-com:office:office' xmlns:w='urn:schemas-microsoft-com:office:word' xmlns='http://www.w3.org/TR/REC-html40'>
<head><meta charset='utf-8'><title>{{.Title}}</title></head>
<body>
<h1>{{.Title}}</h1>
<div style="font-family: Arial, sans-serif; white-space: pre-wrap;">{{.Content}}</div>
</body>
</html>
`))

// RenderDOC wraps the content in the HTML shell Word opens as a .doc.
func RenderDOC(title, content string) ([]byte, error) {
	var buf bytes.Buffer
	err := docTemplate.Execute(&buf, struct{ Title, Content string }{title, content})
	if err != nil {
		return nil, fmt.Errorf("render doc: %w", err)
	}
	return buf.Bytes(), nil
}

var markup = strings.NewReplacer("#", "", "*", "", "`", "")

// ChatLog renders the whole conversation, one prefixed block per message.
func ChatLog(agency string, messages []chat.Message) (File, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.AddPage()
	y := logTopY
	pdf.SetFont("Helvetica", "", 16)
	pdf.Text(logMargin, y, tr(agency+" - Conversation Log"))
	y += 10

	pdf.SetFont("Helvetica", "", 12)
	for _, msg := range messages {
		prefix := "AI: "
		if msg.Role == chat.RoleUser {
			prefix = "User: "
		}
		for _, line := range wrap(pdf, prefix+markup.Replace(msg.Content), logWrap) {
			if y > pageBreakAfter {
				pdf.AddPage()
				y = logTopY
			}
			pdf.Text(logMargin, y, tr(line))
			y += lineHeight
		}
		y += logGap
	}

	data, pages, err := output(pdf)
	if err != nil {
		return File{}, err
	}
	return File{Name: ChatLogFilename, ContentType: FormatPDF.ContentType(), Data: data, Pages: pages}, nil
}

// wrap splits text on newlines and then to width using the current font.
func wrap(pdf *fpdf.Fpdf, text string, width float64) []string {
	var lines []string
	for _, para := range strings.Split(strings.ReplaceAll(text, "\r", ""), "\n") {
		if para == "" {
			lines = append(lines, "")
			continue
		}
		lines = append(lines, pdf.SplitText(para, width)...)
	}
	return lines
}

func output(pdf *fpdf.Fpdf) ([]byte, int, error) {
	var buf bytes.Buffer
	pages := pdf.PageNo()
	if err := pdf.Output(&buf); err != nil {
		return nil, 0, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), pages, nil
}
