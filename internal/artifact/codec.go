package artifact

import (
	"bytes"
	"fmt"

	json "github.com/goccy/go-json"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/coralpages/reef/internal/ast"
	"github.com/coralpages/reef/internal/parser"
)

// EncodeJSON serializes the artifact as JSON. Map keys are emitted in
// sorted order, so encoding is deterministic: identical compilations
// produce byte-identical artifacts.
func EncodeJSON(t *CompiledTemplate) ([]byte, error) {
	data, err := json.Marshal(t)
	if err != nil {
		return nil, fmt.Errorf("encode artifact: %w", err)
	}
	return data, nil
}

// DecodeJSON deserializes a JSON artifact. Unknown fields are ignored
// for forward compatibility. Binding expressions inside island subtrees
// are re-parsed from their source form.
func DecodeJSON(data []byte) (*CompiledTemplate, error) {
	var t CompiledTemplate
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("decode artifact: %w", err)
	}
	if err := rehydrate(&t); err != nil {
		return nil, err
	}
	return &t, nil
}

// EncodeMsgpack serializes the artifact in the compact binary format
// used for storage. Map keys are sorted so the binary form is as
// deterministic as the JSON form.
func EncodeMsgpack(t *CompiledTemplate) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetSortMapKeys(true)
	if err := enc.Encode(t); err != nil {
		return nil, fmt.Errorf("encode artifact: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodeMsgpack deserializes a binary artifact.
func DecodeMsgpack(data []byte) (*CompiledTemplate, error) {
	var t CompiledTemplate
	if err := msgpack.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("decode artifact: %w", err)
	}
	if err := rehydrate(&t); err != nil {
		return nil, err
	}
	return &t, nil
}

// rehydrate re-parses binding expressions dropped during
// serialization. A binding that fails to parse marks a corrupt
// artifact: compilation would have rejected it.
func rehydrate(t *CompiledTemplate) error {
	for i := range t.Islands {
		var parseErr error
		for _, root := range t.Islands[i].Nodes {
			ast.Walk(root, func(n *ast.Node) bool {
				for name, attr := range n.Attrs {
					if !attr.Binding || attr.Expr != nil {
						continue
					}
					expr, err := parser.ParseExpr(attr.Raw)
					if err != nil {
						parseErr = fmt.Errorf("island %s: attribute %s: %w", t.Islands[i].ID, name, err)
						return false
					}
					attr.Expr = expr
					n.Attrs[name] = attr
				}
				return true
			})
			if parseErr != nil {
				return parseErr
			}
		}
	}
	return nil
}
