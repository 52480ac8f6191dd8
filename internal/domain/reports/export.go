package reports

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html"
	"net/http"
	"regexp"
	"strings"
	"time"
)

// maxChunkBytes bounds the HTML handed to the renderer in one piece.
// Very large single payloads trip the renderer's backtracking limits, so
// bodies are split at section markers first and only oversized sections
// are cut mid-stream.
const maxChunkBytes = 64 * 1024

// ChunkHTML splits a report body at section markers, merging adjacent
// sections while they fit under the byte limit. A single section larger
// than the limit is emitted on its own rather than split mid-markup.
func ChunkHTML(body string) []string {
	sections := strings.Split(body, SectionMarker)
	var chunks []string
	var cur strings.Builder
	for _, s := range sections {
		if cur.Len() > 0 && cur.Len()+len(s) > maxChunkBytes {
			chunks = append(chunks, cur.String())
			cur.Reset()
		}
		cur.WriteString(s)
	}
	if cur.Len() > 0 {
		chunks = append(chunks, cur.String())
	}
	return chunks
}

// Renderer converts HTML chunks into a binary document. The pdf and docx
// formats go through a rendering service; html, txt and rtf are produced
// locally and never touch it.
type Renderer interface {
	Render(ctx context.Context, format string, chunks []string) ([]byte, error)
}

// NewHTTPRenderer points at an external rendering service.
func NewHTTPRenderer(baseURL string) Renderer {
	return &httpRenderer{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 60 * time.Second},
	}
}

type httpRenderer struct {
	baseURL string
	client  *http.Client
}

func (r *httpRenderer) Render(ctx context.Context, format string, chunks []string) ([]byte, error) {
	payload, err := json.Marshal(map[string]any{"format": format, "chunks": chunks})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/render", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("renderer unreachable: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("renderer returned %d", resp.StatusCode)
	}

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// NoRenderer reports binary formats as unavailable.
func NoRenderer() Renderer { return noRenderer{} }

type noRenderer struct{}

func (noRenderer) Render(_ context.Context, format string, _ []string) ([]byte, error) {
	return nil, fmt.Errorf("no renderer configured for %s", format)
}

var tagPattern = regexp.MustCompile(`<[^>]*>`)

// plainText strips markup and entities from a report body.
func plainText(body string) string {
	text := strings.ReplaceAll(body, SectionMarker, "")
	text = tagPattern.ReplaceAllString(text, "")
	return strings.TrimSpace(html.UnescapeString(text))
}

var rtfEscaper = strings.NewReplacer(`\`, `\\`, `{`, `\{`, `}`, `\}`)

// renderRTF emits a minimal RTF document, one paragraph per template line.
func renderRTF(body string) []byte {
	var b strings.Builder
	b.WriteString(`{\rtf1\ansi\deff0{\fonttbl{\f0 Helvetica;}}\f0\fs22`)
	for _, line := range strings.Split(plainText(body), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		b.WriteString("\n")
		b.WriteString(rtfEscaper.Replace(line))
		b.WriteString(`\par`)
	}
	b.WriteString("\n}")
	return []byte(b.String())
}

// Export produces the report in the requested format. html, txt and rtf
// are local; pdf and docx go through the renderer with a chunked body.
func Export(ctx context.Context, r Renderer, rep *Report, format string) ([]byte, string, error) {
	switch format {
	case FormatHTML:
		body := strings.ReplaceAll(rep.Body, SectionMarker, "")
		return []byte(body), "text/html; charset=utf-8", nil
	case FormatText:
		return []byte(plainText(rep.Body)), "text/plain; charset=utf-8", nil
	case FormatRTF:
		return renderRTF(rep.Body), contentTypeFor(FormatRTF), nil
	case FormatPDF, FormatDocx:
		out, err := r.Render(ctx, format, ChunkHTML(rep.Body))
		if err != nil {
			return nil, "", err
		}
		return out, contentTypeFor(format), nil
	default:
		return nil, "", fmt.Errorf("unsupported format %q", format)
	}
}

func contentTypeFor(format string) string {
	switch format {
	case FormatPDF:
		return "application/pdf"
	case FormatDocx:
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	case FormatRTF:
		return "application/rtf"
	}
	return "application/octet-stream"
}
