// Package artifact defines the persisted output of template
// compilation: the static skeleton, the islands with their precomputed
// props, and a snapshot of the limit metrics. An artifact is plain
// data; it carries no behavior and is safe to cache by content hash.
//
// Two codecs are provided: JSON for interoperability and inspection,
// msgpack for compact storage. Both ignore unknown optional fields on
// decode so older readers accept newer artifacts.
package artifact

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/coralpages/reef/internal/ast"
	"github.com/coralpages/reef/internal/limits"
	"github.com/coralpages/reef/internal/props"
)

// FormatVersion identifies the artifact layout. Readers must accept
// artifacts with the same major shape and ignore fields they do not
// know.
const FormatVersion = "1"

// Island is one hydration root in the artifact. Nodes holds the run of
// dynamic sibling subtrees the detector grouped under one scope.
type Island struct {
	ID        string            `json:"id" msgpack:"id"`
	Component string            `json:"component" msgpack:"component"`
	Props     props.Precomputed `json:"props" msgpack:"props"`
	Nodes     []*ast.Node       `json:"nodes" msgpack:"nodes"`
	Path      []int             `json:"path" msgpack:"path"`
}

// CompiledTemplate is the complete compilation output for one template.
type CompiledTemplate struct {
	Version           string       `json:"version" msgpack:"version"`
	VocabularyVersion string       `json:"vocabulary_version" msgpack:"vocabulary_version"`
	SourceHash        string       `json:"source_hash" msgpack:"source_hash"`
	Skeleton          string       `json:"skeleton" msgpack:"skeleton"`
	Islands           []Island     `json:"islands" msgpack:"islands"`
	Limits            limits.Usage `json:"limits" msgpack:"limits"`
}

// ComponentNames returns the distinct component names referenced by the
// artifact's islands, in first-appearance order. The registry preloads
// exactly this set.
func (t *CompiledTemplate) ComponentNames() []string {
	seen := make(map[string]struct{}, len(t.Islands))
	var names []string
	for _, island := range t.Islands {
		if _, ok := seen[island.Component]; ok {
			continue
		}
		seen[island.Component] = struct{}{}
		names = append(names, island.Component)
	}
	return names
}

// Island returns the island with the given ID.
func (t *CompiledTemplate) Island(id string) (*Island, bool) {
	for i := range t.Islands {
		if t.Islands[i].ID == id {
			return &t.Islands[i], true
		}
	}
	return nil, false
}

// HashSource returns the content hash used to key compiled artifacts.
func HashSource(source string) string {
	sum := sha256.Sum256([]byte(source))
	return hex.EncodeToString(sum[:])
}
