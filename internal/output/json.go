package output

import (
	"io"

	"github.com/goccy/go-json"

	"github.com/spiffcs/vitals/internal/refresh"
)

// JSONFormatter formats output as JSON
type JSONFormatter struct {
	Pretty bool
}

// Format outputs the snapshot as JSON
func (f *JSONFormatter) Format(s refresh.Snapshot, w io.Writer) error {
	encoder := json.NewEncoder(w)
	if f.Pretty {
		encoder.SetIndent("", "  ")
	}
	return encoder.Encode(s)
}
