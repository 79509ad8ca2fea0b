// Package resources implements exec_vnode parsing and the resource
// assignment collaborator used on suspend/resume transitions.
package resources

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Chunk is one node's share of an exec_vnode description.
type Chunk struct {
	Node   string
	Cpus   int64
	Memory int64 // bytes
}

// ParseExecVnode parses an exec_vnode description of the form
// "(nodeA:ncpus=2:mem=4gb)+(nodeB:ncpus=1)". Parentheses around individual
// chunks are optional. Chunks naming the same node are kept separate; the
// allocator sums them per node.
func ParseExecVnode(spec string) ([]Chunk, error) {
	if strings.TrimSpace(spec) == "" {
		return nil, errors.New("empty exec_vnode")
	}
	parts := strings.Split(spec, "+")
	chunks := make([]Chunk, 0, len(parts))
	for _, part := range parts {
		chunk, err := parseChunk(part)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, chunk)
	}
	return chunks, nil
}

func parseChunk(part string) (Chunk, error) {
	var chunk Chunk
	part = strings.TrimSpace(part)
	part = strings.TrimPrefix(part, "(")
	part = strings.TrimSuffix(part, ")")
	fields := strings.Split(part, ":")
	if fields[0] == "" {
		return chunk, errors.Errorf("chunk %q names no node", part)
	}
	chunk.Node = fields[0]
	for _, field := range fields[1:] {
		kv := strings.SplitN(field, "=", 2)
		if len(kv) != 2 {
			return chunk, errors.Errorf("malformed resource %q in chunk %q", field, part)
		}
		switch kv[0] {
		case "ncpus":
			n, err := strconv.ParseInt(kv[1], 10, 64)
			if err != nil || n < 0 {
				return chunk, errors.Errorf("invalid ncpus %q in chunk %q", kv[1], part)
			}
			chunk.Cpus = n
		case "mem":
			n, err := parseSize(kv[1])
			if err != nil {
				return chunk, errors.Wrapf(err, "invalid mem in chunk %q", part)
			}
			chunk.Memory = n
		default:
			// Unknown resources are carried by the agent, not accounted here.
		}
	}
	return chunk, nil
}

// NodeNames returns the distinct node names in the chunks, in first-seen
// order.
func NodeNames(chunks []Chunk) []string {
	seen := map[string]bool{}
	var names []string
	for _, chunk := range chunks {
		if !seen[chunk.Node] {
			seen[chunk.Node] = true
			names = append(names, chunk.Node)
		}
	}
	return names
}

func parseSize(value string) (int64, error) {
	value = strings.ToLower(strings.TrimSpace(value))
	multiplier := int64(1)
	switch {
	case strings.HasSuffix(value, "gb"):
		multiplier = 1 << 30
		value = strings.TrimSuffix(value, "gb")
	case strings.HasSuffix(value, "mb"):
		multiplier = 1 << 20
		value = strings.TrimSuffix(value, "mb")
	case strings.HasSuffix(value, "kb"):
		multiplier = 1 << 10
		value = strings.TrimSuffix(value, "kb")
	case strings.HasSuffix(value, "b"):
		value = strings.TrimSuffix(value, "b")
	}
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil || n < 0 {
		return 0, errors.Errorf("invalid size %q", value)
	}
	return n * multiplier, nil
}
