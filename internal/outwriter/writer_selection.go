package outwriter

import (
	"fmt"
	"io"
	"os"

	"github.com/lambentLogic/spectrum/schema"
	"gopkg.in/yaml.v3"
)

// WriteSelection persists the unfrozen-parameters document: a single
// top-level key holding one anchored selector per chosen matrix. The two
// fixed entries lead, then per-type blocks labeled with the direction and
// percentage that produced them.
//
// The document is emitted line by line because the type labels are YAML
// comments interleaved with list items, which yaml encoders cannot produce.
func WriteSelection(sel *schema.SelectionResult, path string) error {
	return writeWithFile(path, func(w io.Writer) error {
		if _, err := fmt.Fprintln(w, "unfrozen_parameters:"); err != nil {
			return err
		}
		for _, fixed := range sel.Fixed {
			if _, err := fmt.Fprintf(w, "- ^%s$\n", fixed); err != nil {
				return err
			}
		}
		for _, t := range sel.TypeOrder {
			if _, err := fmt.Fprintf(w, "# %s layers (%s %d%%)\n", t, sel.Direction, sel.Percent); err != nil {
				return err
			}
			for _, name := range sel.ByType[t] {
				if _, err := fmt.Fprintf(w, "- %s\n", name); err != nil {
					return err
				}
			}
		}
		return nil
	}, fmt.Sprintf("%s %d%% SNR layers saved", sel.Direction, sel.Percent))
}

// LoadSelection parses an unfrozen-parameters document back into its
// selector list, in document order. Comments vanish in parsing, so only the
// selectors survive a round trip.
func LoadSelection(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read selection %q: %w", path, err)
	}

	var doc struct {
		UnfrozenParameters []string `yaml:"unfrozen_parameters"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("malformed selection %q: %w", path, err)
	}
	if doc.UnfrozenParameters == nil {
		return nil, fmt.Errorf("selection %q is missing the unfrozen_parameters key", path)
	}
	return doc.UnfrozenParameters, nil
}
