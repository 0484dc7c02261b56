package output

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/itchyny/gojq"
)

// writeJQ runs the configured jq program over the envelope and prints each
// result. Strings are printed raw, like jq -r, so results pipe cleanly into
// other tools.
func (w *Writer) writeJQ(v any) error {
	results, err := ApplyJQ(w.opts.JQ, v)
	if err != nil {
		return err
	}
	for _, r := range results {
		if s, ok := r.(string); ok {
			if _, err := fmt.Fprintln(w.opts.Writer, s); err != nil {
				return err
			}
			continue
		}
		if err := w.writeJSON(r); err != nil {
			return err
		}
	}
	return nil
}

// ApplyJQ evaluates a jq program against v. v is first converted to generic
// JSON values because gojq only accepts maps, slices and scalars.
func ApplyJQ(program string, v any) ([]any, error) {
	query, err := gojq.Parse(program)
	if err != nil {
		return nil, ErrUsageHint(fmt.Sprintf("invalid --jq expression: %v", err), "See https://jqlang.org/manual/")
	}
	code, err := gojq.Compile(query)
	if err != nil {
		return nil, ErrUsage(fmt.Sprintf("invalid --jq expression: %v", err))
	}

	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encoding output for jq: %w", err)
	}
	var input any
	if err := json.Unmarshal(b, &input); err != nil {
		return nil, fmt.Errorf("decoding output for jq: %w", err)
	}

	var results []any
	iter := code.Run(input)
	for {
		r, ok := iter.Next()
		if !ok {
			break
		}
		if err, ok := r.(error); ok {
			var halt *gojq.HaltError
			if errors.As(err, &halt) && halt.Value() == nil {
				break
			}
			return nil, ErrUsage(fmt.Sprintf("jq: %v", err))
		}
		results = append(results, r)
	}
	return results, nil
}
