package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/usestring/privacyshield/pkg/shield"
)

// queryLine is one entry of a queries file.
type queryLine struct {
	Kind   string         `json:"kind"`
	Target string         `json:"target"`
	Meta   map[string]any `json:"meta,omitempty"`
}

// readQueries reads a JSON array of {kind, target, meta} from path, or from
// stdin when path is "" or "-".
func readQueries(path string, stdin io.Reader) ([]shield.Query, error) {
	r := stdin
	if path != "" && path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open queries file: %w", err)
		}
		defer f.Close()
		r = f
	}

	var lines []queryLine
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&lines); err != nil {
		return nil, fmt.Errorf("failed to parse queries: %w", err)
	}
	if len(lines) == 0 {
		return nil, fmt.Errorf("no queries given")
	}

	out := make([]shield.Query, len(lines))
	for i, l := range lines {
		if l.Kind == "" || l.Target == "" {
			return nil, fmt.Errorf("query %d: kind and target are required", i)
		}
		out[i] = shield.Query{Kind: shield.Kind(l.Kind), Target: l.Target, Meta: l.Meta}
	}
	return out, nil
}
