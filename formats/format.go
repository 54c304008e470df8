package formats

import (
	"errors"
	"fmt"

	"spexregister/models"
)

// DocumentParser is an interface for parsing spexare documents from different formats
type DocumentParser interface {
	// Parse parses the input data and returns the spexare it contains
	Parse(data []byte) ([]models.Spexare, error)
}

// ErrUnsupportedFormat is returned when the requested format is not supported
var ErrUnsupportedFormat = errors.New("unsupported format")

// Supported format names
const (
	FormatJSONEachRow = "jsoneachrow"
	FormatMsgpack     = "msgpack"
)

// GetParser returns the appropriate parser for the given format
func GetParser(format string) (DocumentParser, error) {
	switch format {
	case FormatJSONEachRow:
		return &JSONEachRowParser{}, nil
	case FormatMsgpack:
		return &MsgpackParser{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}

func validate(sp *models.Spexare, position string) error {
	if sp.ID <= 0 {
		return fmt.Errorf("%s: id must be a positive number", position)
	}
	return nil
}
