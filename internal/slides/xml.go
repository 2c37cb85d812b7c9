package slides

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"io"
	"strings"
)

// extractXMLText streams one XML part and collects the character data of
// every element with the given local name, namespace-agnostic. For pptx
// slides the text runs live in <a:t> elements, local name "t".
func extractXMLText(f *zip.File, localName string) ([]string, error) {
	data, err := readPart(f)
	if err != nil {
		return nil, err
	}

	dec := xml.NewDecoder(bytes.NewReader(data))
	var texts []string
	var depth int
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local == localName {
				depth++
			}
		case xml.EndElement:
			if t.Name.Local == localName && depth > 0 {
				depth--
			}
		case xml.CharData:
			if depth > 0 {
				texts = append(texts, string(t))
			}
		}
	}
	return texts, nil
}

// extractWordParagraphs streams word/document.xml and returns one string per
// <w:p> paragraph, concatenating the <w:t> runs inside it. Table cell runs
// nest inside paragraphs and are included where they occur.
func extractWordParagraphs(f *zip.File) ([]string, error) {
	data, err := readPart(f)
	if err != nil {
		return nil, err
	}

	dec := xml.NewDecoder(bytes.NewReader(data))
	var paragraphs []string
	var current strings.Builder
	var inParagraph bool
	var inText bool
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "p":
				inParagraph = true
				current.Reset()
			case "t":
				inText = true
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "p":
				if inParagraph {
					paragraphs = append(paragraphs, current.String())
					inParagraph = false
				}
			case "t":
				inText = false
			}
		case xml.CharData:
			if inParagraph && inText {
				current.Write(t)
			}
		}
	}
	return paragraphs, nil
}
