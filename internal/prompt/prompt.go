package prompt

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"text/template"
)

var assistantTemplate = template.Must(template.New("system").Parse(
	`You are {{.Assistant}}, a helpful product specialist.
Your role is to assist customers with questions about our product.

Product Information:
{{.ProductInfo}}

Guidelines:
- Be friendly and professional
- Only discuss topics related to the product above
- If asked about unrelated topics, politely redirect to the product's features
- Don't make up information not in the product details
- Keep responses concise and focused`))

// Load returns the system prompt injected into every chat turn. A non-empty
// override is used verbatim. Otherwise the product-info JSON at path is compacted
// into the assistant template; an unreadable or invalid file degrades to "{}".
func Load(path, assistant, override string) (string, error) {
	if strings.TrimSpace(override) != "" {
		return override, nil
	}

	info := productInfo(path)
	var buf bytes.Buffer
	err := assistantTemplate.Execute(&buf, struct {
		Assistant   string
		ProductInfo string
	}{Assistant: assistant, ProductInfo: info})
	if err != nil {
		return "", fmt.Errorf("render system prompt: %w", err)
	}
	return buf.String(), nil
}

func productInfo(path string) string {
	raw, err := os.ReadFile(path)
	if err != nil {
		slog.Error("Failed to read product info, continuing without it", "path", path, "error", err)
		return "{}"
	}
	var compact bytes.Buffer
	if err := json.Compact(&compact, raw); err != nil {
		slog.Error("Product info is not valid JSON, continuing without it", "path", path, "error", err)
		return "{}"
	}
	return compact.String()
}
