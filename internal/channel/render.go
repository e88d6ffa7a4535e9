package channel

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"domainbot/internal/dispatch"
)

// Render writes an outcome for a terminal, or as indented JSON.
func Render(w io.Writer, out *dispatch.Outcome, asJSON bool) error {
	if asJSON {
		data, err := json.MarshalIndent(out, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal outcome: %w", err)
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	}

	fmt.Fprintf(w, "domain:       %s\n", out.Domain)
	fmt.Fprintf(w, "capabilities: %v\n", out.Capabilities)
	fmt.Fprintf(w, "gathered:     %v\n", out.Gathered)
	if out.Directive == nil {
		_, err := fmt.Fprintf(w, "follow-up:    %s\n", out.FollowUp)
		return err
	}

	fmt.Fprintf(w, "template:     %s\n", out.Directive.Template)
	keys := make([]string, 0, len(out.Directive.Props))
	for k := range out.Directive.Props {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		v, err := json.Marshal(out.Directive.Props[k])
		if err != nil {
			v = []byte(fmt.Sprintf("%v", out.Directive.Props[k]))
		}
		if _, err := fmt.Fprintf(w, "  %s: %s\n", k, v); err != nil {
			return err
		}
	}
	return nil
}
