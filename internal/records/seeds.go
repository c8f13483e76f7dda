package records

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

// ReadSeeds reads seed agent ids. A YAML or JSON list is decoded as such;
// anything else is read as one id per line, skipping blanks and # comments.
func ReadSeeds(r io.Reader) ([]string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read seeds: %w", err)
	}
	trimmed := bytes.TrimSpace(data)
	if bytes.HasPrefix(trimmed, []byte("[")) || bytes.HasPrefix(trimmed, []byte("- ")) {
		var ids []string
		if err := yaml.Unmarshal(trimmed, &ids); err != nil {
			return nil, fmt.Errorf("decode seeds: %w: %w", err, ErrFormat)
		}
		return ids, nil
	}

	var ids []string
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		ids = append(ids, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read seeds: %w", err)
	}
	return ids, nil
}

// ReadBeliefs reads a-priori beliefs as a YAML or JSON mapping from agent id
// to belief.
func ReadBeliefs(r io.Reader) (map[string]float64, error) {
	var beliefs map[string]float64
	dec := yaml.NewDecoder(r)
	if err := dec.Decode(&beliefs); err != nil {
		if err == io.EOF {
			return map[string]float64{}, nil
		}
		return nil, fmt.Errorf("decode beliefs: %w: %w", err, ErrFormat)
	}
	for id, b := range beliefs {
		if b < 0 || b > 1 {
			return nil, fmt.Errorf("belief of %q is %v, outside [0, 1]: %w", id, b, ErrFormat)
		}
	}
	return beliefs, nil
}
