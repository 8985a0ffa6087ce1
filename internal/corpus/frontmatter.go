package corpus

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

const fmDelimiter = "---"

// splitFrontMatter separates a leading YAML block delimited by "---" lines
// from the rest of the document. Documents without one are all body.
func splitFrontMatter(content string) (metadata, string, error) {
	var meta metadata

	text := strings.TrimPrefix(content, "\ufeff")
	text = strings.ReplaceAll(text, "\r\n", "\n")

	trimmed := strings.TrimLeft(text, " \t\n")
	if !strings.HasPrefix(trimmed, fmDelimiter+"\n") {
		return meta, text, nil
	}

	rest := trimmed[len(fmDelimiter)+1:]
	header, body, found := cutDelimiterLine(rest)
	if !found {
		return meta, text, nil
	}

	if err := yaml.Unmarshal([]byte(header), &meta); err != nil {
		return metadata{}, "", fmt.Errorf("parsing front matter: %w", err)
	}
	return meta, body, nil
}

// cutDelimiterLine splits s at the first line consisting solely of "---".
func cutDelimiterLine(s string) (before, after string, found bool) {
	offset := 0
	for offset <= len(s) {
		end := strings.IndexByte(s[offset:], '\n')
		var line string
		if end < 0 {
			line = s[offset:]
		} else {
			line = s[offset : offset+end]
		}
		if strings.TrimSpace(line) == fmDelimiter {
			if end < 0 {
				return s[:offset], "", true
			}
			return s[:offset], s[offset+end+1:], true
		}
		if end < 0 {
			break
		}
		offset += end + 1
	}
	return "", "", false
}
