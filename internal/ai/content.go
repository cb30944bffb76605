package ai

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

var (
	pngMagic   = []byte("\x89PNG")
	fencesExpr = regexp.MustCompile("```json\\s*|\\s*```")
)

// DetectImageMIME sniffs the image type from its leading bytes, falling back to
// the file extension and finally to JPEG.
func DetectImageMIME(data []byte, name string) string {
	switch {
	case bytes.HasPrefix(data, pngMagic):
		return "image/png"
	case len(data) >= 12 && string(data[0:4]) == "RIFF" && string(data[8:12]) == "WEBP":
		return "image/webp"
	case len(data) >= 3 && data[0] == 0xFF && data[1] == 0xD8 && data[2] == 0xFF:
		return "image/jpeg"
	}

	switch strings.ToLower(filepath.Ext(name)) {
	case ".png":
		return "image/png"
	case ".webp":
		return "image/webp"
	}
	return "image/jpeg"
}

// CleanJSON strips Markdown code fences a model may wrap around JSON output.
func CleanJSON(text string) string {
	return strings.TrimSpace(fencesExpr.ReplaceAllString(text, ""))
}

// DecodeJSON decodes a model answer that is expected to be JSON.
func DecodeJSON(text string, v any) error {
	cleaned := CleanJSON(text)
	if cleaned == "" {
		return fmt.Errorf("empty json answer")
	}
	if err := json.Unmarshal([]byte(cleaned), v); err != nil {
		return fmt.Errorf("failed to decode json answer: %w", err)
	}
	return nil
}
