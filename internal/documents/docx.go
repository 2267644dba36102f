package documents

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// block is one rendered paragraph.
type block struct {
	Style string
	Text  string
}

var (
	headingPattern = regexp.MustCompile(`^(#{1,6})\s+(.*)$`)
	bulletPattern  = regexp.MustCompile(`^\s*[-*+]\s+(.*)$`)
	linkPattern    = regexp.MustCompile(`\[([^\]]+)\]\(([^)]+)\)`)
	boldPattern    = regexp.MustCompile(`\*\*([^*]+)\*\*`)
)

// parseMarkdown splits report markdown into styled blocks. The first
// level-one heading becomes the document title.
func parseMarkdown(md string) []block {
	var out []block
	var para []string
	titleSeen := false

	flush := func() {
		if len(para) > 0 {
			out = append(out, block{Style: "Normal", Text: strings.Join(para, " ")})
			para = nil
		}
	}

	for _, raw := range strings.Split(strings.ReplaceAll(md, "\r\n", "\n"), "\n") {
		line := strings.TrimRight(raw, " \t")
		trimmed := strings.TrimSpace(line)
		switch {
		case trimmed == "":
			flush()
		case trimmed == "---" || trimmed == "***" || trimmed == "___":
			flush()
		case headingPattern.MatchString(trimmed):
			flush()
			m := headingPattern.FindStringSubmatch(trimmed)
			style := headingStyle(len(m[1]))
			if len(m[1]) == 1 && !titleSeen {
				style = "Title"
				titleSeen = true
			}
			out = append(out, block{Style: style, Text: m[2]})
		case bulletPattern.MatchString(line):
			flush()
			m := bulletPattern.FindStringSubmatch(line)
			out = append(out, block{Style: "ListBullet", Text: m[1]})
		case strings.HasPrefix(trimmed, ">"):
			flush()
			out = append(out, block{Style: "Quote", Text: strings.TrimSpace(strings.TrimPrefix(trimmed, ">"))})
		default:
			para = append(para, trimmed)
		}
	}
	flush()
	return out
}

func headingStyle(level int) string {
	switch level {
	case 1:
		return "Heading1"
	case 2:
		return "Heading2"
	default:
		return "Heading3"
	}
}

// run is a span of text with uniform formatting.
type run struct {
	Text string
	Bold bool
}

// parseInline turns **bold** spans into runs and flattens links.
func parseInline(text string) []run {
	text = linkPattern.ReplaceAllString(text, "$1 ($2)")
	var runs []run
	last := 0
	for _, loc := range boldPattern.FindAllStringSubmatchIndex(text, -1) {
		if loc[0] > last {
			runs = append(runs, run{Text: text[last:loc[0]]})
		}
		runs = append(runs, run{Text: text[loc[2]:loc[3]], Bold: true})
		last = loc[1]
	}
	if last < len(text) {
		runs = append(runs, run{Text: text[last:]})
	}
	for i := range runs {
		runs[i].Text = strings.ReplaceAll(runs[i].Text, "*", "")
	}
	return runs
}

// RenderDocx renders report markdown as a WordprocessingML package.
func RenderDocx(title, markdown string, created time.Time) ([]byte, error) {
	var output bytes.Buffer
	writer := zip.NewWriter(&output)

	parts := []struct {
		name    string
		content []byte
	}{
		{"[Content_Types].xml", []byte(contentTypesXML)},
		{"_rels/.rels", []byte(packageRelsXML)},
		{"word/_rels/document.xml.rels", []byte(documentRelsXML)},
		{"word/styles.xml", stylesXML()},
		{"word/document.xml", documentXML(parseMarkdown(markdown))},
		{"docProps/core.xml", coreXML(title, created)},
	}
	for _, p := range parts {
		if err := writeZipEntry(writer, p.name, created, p.content); err != nil {
			return nil, fmt.Errorf("write %s: %w", p.name, err)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}
	return output.Bytes(), nil
}

func writeZipEntry(writer *zip.Writer, name string, modified time.Time, content []byte) error {
	header := &zip.FileHeader{Name: name, Method: zip.Deflate, Modified: modified}
	dst, err := writer.CreateHeader(header)
	if err != nil {
		return err
	}
	_, err = dst.Write(content)
	return err
}

func documentXML(blocks []block) []byte {
	var b bytes.Buffer
	b.WriteString(xml.Header)
	b.WriteString(`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>`)
	for _, blk := range blocks {
		fmt.Fprintf(&b, `<w:p><w:pPr><w:pStyle w:val="%s"/></w:pPr>`, blk.Style)
		runs := parseInline(blk.Text)
		if blk.Style == "ListBullet" {
			runs = append([]run{{Text: "• "}}, runs...)
		}
		for _, r := range runs {
			b.WriteString("<w:r>")
			if r.Bold {
				b.WriteString("<w:rPr><w:b/></w:rPr>")
			}
			b.WriteString(`<w:t xml:space="preserve">`)
			_ = xml.EscapeText(&b, []byte(r.Text))
			b.WriteString("</w:t></w:r>")
		}
		b.WriteString("</w:p>")
	}
	b.WriteString(`<w:sectPr><w:pgSz w:w="12240" w:h="15840"/>`)
	b.WriteString(`<w:pgMar w:top="1440" w:right="1440" w:bottom="1440" w:left="1440" w:header="720" w:footer="720" w:gutter="0"/>`)
	b.WriteString(`</w:sectPr></w:body></w:document>`)
	return b.Bytes()
}

func stylesXML() []byte {
	var b bytes.Buffer
	b.WriteString(xml.Header)
	b.WriteString(`<w:styles xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">`)
	b.WriteString(`<w:docDefaults><w:rPrDefault><w:rPr><w:rFonts w:ascii="Calibri" w:hAnsi="Calibri" w:cs="Calibri"/></w:rPr></w:rPrDefault></w:docDefaults>`)
	for _, s := range styleTable {
		fmt.Fprintf(&b, `<w:style w:type="paragraph" w:styleId="%s"`, s.ID)
		if s.ID == "Normal" {
			b.WriteString(` w:default="1"`)
		}
		fmt.Fprintf(&b, `><w:name w:val="%s"/>`, s.Name)
		if s.ID != "Normal" {
			b.WriteString(`<w:basedOn w:val="Normal"/><w:qFormat/>`)
		}
		fmt.Fprintf(&b, `<w:pPr><w:spacing w:before="%d" w:after="%d"/>`, s.Before, s.After)
		if s.Indent > 0 {
			fmt.Fprintf(&b, `<w:ind w:left="%d"/>`, s.Indent)
		}
		b.WriteString(`</w:pPr><w:rPr>`)
		if s.Bold {
			b.WriteString(`<w:b/>`)
		}
		if s.Italic {
			b.WriteString(`<w:i/>`)
		}
		if s.Color != "" {
			fmt.Fprintf(&b, `<w:color w:val="%s"/>`, s.Color)
		}
		fmt.Fprintf(&b, `<w:sz w:val="%d"/></w:rPr></w:style>`, s.Size)
	}
	b.WriteString(`</w:styles>`)
	return b.Bytes()
}

func coreXML(title string, created time.Time) []byte {
	var b bytes.Buffer
	b.WriteString(xml.Header)
	b.WriteString(`<cp:coreProperties xmlns:cp="http://schemas.openxmlformats.org/package/2006/metadata/core-properties" `)
	b.WriteString(`xmlns:dc="http://purl.org/dc/elements/1.1/" xmlns:dcterms="http://purl.org/dc/terms/" `)
	b.WriteString(`xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance"><dc:title>`)
	_ = xml.EscapeText(&b, []byte(title))
	b.WriteString(`</dc:title><dc:creator>MarketSauce Agent</dc:creator>`)
	fmt.Fprintf(&b, `<dcterms:created xsi:type="dcterms:W3CDTF">%s</dcterms:created>`, created.UTC().Format(time.RFC3339))
	b.WriteString(`</cp:coreProperties>`)
	return b.Bytes()
}

const contentTypesXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">` +
	`<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>` +
	`<Default Extension="xml" ContentType="application/xml"/>` +
	`<Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>` +
	`<Override PartName="/word/styles.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.styles+xml"/>` +
	`<Override PartName="/docProps/core.xml" ContentType="application/vnd.openxmlformats-package.core-properties+xml"/>` +
	`</Types>`

const packageRelsXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">` +
	`<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/>` +
	`<Relationship Id="rId2" Type="http://schemas.openxmlformats.org/package/2006/relationships/metadata/core-properties" Target="docProps/core.xml"/>` +
	`</Relationships>`

const documentRelsXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">` +
	`<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/styles" Target="styles.xml"/>` +
	`</Relationships>`
