// Package slides extracts text from uploaded lecture material so course
// analysis and quiz generation can work over slide content.
//
// PDF text is read with github.com/ledongthuc/pdf. The Office Open XML
// formats (.pptx, .docx) are zip containers of XML parts and are parsed
// directly. The legacy binary formats (.ppt, .doc) are recognised but cannot
// be parsed; uploading one yields a processing error asking for conversion.
package slides

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/ledongthuc/pdf"
)

// ErrUnsupportedFormat is returned for file extensions outside the supported
// set.
var ErrUnsupportedFormat = errors.New("slides: unsupported file format")

// supportedExtensions maps accepted extensions to their MIME types.
var supportedExtensions = map[string]string{
	".pdf":  "application/pdf",
	".ppt":  "application/vnd.ms-powerpoint",
	".pptx": "application/vnd.openxmlformats-officedocument.presentationml.presentation",
	".doc":  "application/msword",
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
}

// Document is the extraction result for one uploaded file.
type Document struct {
	// Filename is the original upload name.
	Filename string

	// TotalPages is the page, slide, or estimated page count.
	TotalPages int

	// ExtractedText is the full text with per-page separator lines.
	ExtractedText string

	// FileType is "pdf", "powerpoint", or "word".
	FileType string
}

// Processor extracts text from uploaded slide files and stores the originals
// under UploadDir.
type Processor struct {
	uploadDir string
}

// NewProcessor creates a Processor that saves uploads under uploadDir,
// creating the directory if needed.
func NewProcessor(uploadDir string) (*Processor, error) {
	if uploadDir == "" {
		uploadDir = "uploads"
	}
	if err := os.MkdirAll(uploadDir, 0o755); err != nil {
		return nil, fmt.Errorf("slides: create upload dir: %w", err)
	}
	return &Processor{uploadDir: uploadDir}, nil
}

// IsSupported reports whether the filename's extension is in the supported
// set.
func IsSupported(filename string) bool {
	_, ok := supportedExtensions[strings.ToLower(filepath.Ext(filename))]
	return ok
}

// Process extracts text from one uploaded file.
func (p *Processor) Process(content []byte, filename string) (*Document, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if _, ok := supportedExtensions[ext]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
	}

	switch ext {
	case ".pdf":
		return processPDF(content, filename)
	case ".pptx":
		return processPowerPoint(content, filename)
	case ".docx":
		return processWord(content, filename)
	default:
		// .ppt and .doc are OLE compound files, not zip containers.
		return nil, fmt.Errorf("slides: legacy format %s cannot be parsed, convert to %sx first", ext, ext)
	}
}

// Save writes the original upload to the processor's upload directory and
// returns the stored path. The filename is flattened to its base name so
// uploads cannot escape the directory.
func (p *Processor) Save(content []byte, filename string) (string, error) {
	path := filepath.Join(p.uploadDir, filepath.Base(filename))
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return "", fmt.Errorf("slides: save %s: %w", filename, err)
	}
	return path, nil
}

// processPDF extracts per-page text with 第 N 頁 separators.
func processPDF(content []byte, filename string) (*Document, error) {
	reader, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, fmt.Errorf("slides: read pdf: %w", err)
	}

	totalPages := reader.NumPage()
	var sb strings.Builder
	for i := 1; i <= totalPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("slides: extract pdf page %d: %w", i, err)
		}
		fmt.Fprintf(&sb, "\n--- 第 %d 頁 ---\n%s\n", i, text)
	}

	return &Document{
		Filename:      filename,
		TotalPages:    totalPages,
		ExtractedText: strings.TrimSpace(sb.String()),
		FileType:      "pdf",
	}, nil
}

// slideFileRe matches slide part names inside a pptx container.
var slideFileRe = regexp.MustCompile(`^ppt/slides/slide(\d+)\.xml$`)

// processPowerPoint extracts per-slide text with 投影片 N separators. Table
// cells are plain text runs in the slide XML and come out inline.
func processPowerPoint(content []byte, filename string) (*Document, error) {
	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, fmt.Errorf("slides: open pptx: %w", err)
	}

	type slidePart struct {
		num  int
		file *zip.File
	}
	var parts []slidePart
	for _, f := range zr.File {
		m := slideFileRe.FindStringSubmatch(f.Name)
		if m == nil {
			continue
		}
		n, _ := strconv.Atoi(m[1])
		parts = append(parts, slidePart{num: n, file: f})
	}
	sort.Slice(parts, func(i, j int) bool { return parts[i].num < parts[j].num })

	var sb strings.Builder
	for _, part := range parts {
		texts, err := extractXMLText(part.file, "t")
		if err != nil {
			return nil, fmt.Errorf("slides: extract slide %d: %w", part.num, err)
		}
		fmt.Fprintf(&sb, "\n--- 投影片 %d ---\n", part.num)
		for _, t := range texts {
			sb.WriteString(t)
			sb.WriteString("\n")
		}
	}

	return &Document{
		Filename:      filename,
		TotalPages:    len(parts),
		ExtractedText: strings.TrimSpace(sb.String()),
		FileType:      "powerpoint",
	}, nil
}

// processWord extracts paragraph text from word/document.xml. Word files have
// no fixed page notion, so the page count is estimated from the paragraph
// count.
func processWord(content []byte, filename string) (*Document, error) {
	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, fmt.Errorf("slides: open docx: %w", err)
	}

	var doc *zip.File
	for _, f := range zr.File {
		if f.Name == "word/document.xml" {
			doc = f
			break
		}
	}
	if doc == nil {
		return nil, fmt.Errorf("slides: docx has no word/document.xml")
	}

	paragraphs, err := extractWordParagraphs(doc)
	if err != nil {
		return nil, fmt.Errorf("slides: extract docx: %w", err)
	}

	var sb strings.Builder
	var nonEmpty int
	for _, para := range paragraphs {
		if strings.TrimSpace(para) == "" {
			continue
		}
		nonEmpty++
		sb.WriteString(para)
		sb.WriteString("\n")
	}

	estimatedPages := len(paragraphs) / 10
	if estimatedPages < 1 {
		estimatedPages = 1
	}

	return &Document{
		Filename:      filename,
		TotalPages:    estimatedPages,
		ExtractedText: strings.TrimSpace(sb.String()),
		FileType:      "word",
	}, nil
}

// readPart returns the decompressed contents of one zip entry.
func readPart(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}
