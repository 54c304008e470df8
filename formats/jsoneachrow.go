package formats

import (
	"bufio"
	"bytes"
	"fmt"
	"strings"

	"spexregister/models"

	"github.com/bytedance/sonic"
)

const maxLineSize = 16 * 1024 * 1024

// JSONEachRowParser implements DocumentParser for JSON Lines format
// Each line is a separate spexare object
type JSONEachRowParser struct{}

// Parse parses JSON Lines format (one JSON object per line)
func (p *JSONEachRowParser) Parse(data []byte) ([]models.Spexare, error) {
	var documents []models.Spexare

	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := scanner.Text()

		// Skip empty lines
		if strings.TrimSpace(line) == "" {
			continue
		}

		var doc models.Spexare
		if err := sonic.UnmarshalString(line, &doc); err != nil {
			return nil, fmt.Errorf("invalid JSON on line %d: %w", lineNum, err)
		}
		if err := validate(&doc, fmt.Sprintf("line %d", lineNum)); err != nil {
			return nil, err
		}

		documents = append(documents, doc)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading input: %w", err)
	}

	return documents, nil
}
