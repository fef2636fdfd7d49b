//go:build property

package compiler

import (
	"context"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/coralpages/reef/internal/artifact"
)

// fragments are sentence-sized template pieces the generator shuffles
// into documents: static markup, state, bindings, loops, and events.
var fragments = []string{
	`<Paragraph>plain words</Paragraph>`,
	`<Heading>title</Heading>`,
	`<Spacer/>`,
	`<Card><Text value="inside"/></Card>`,
	`<Var name="n" value="1"/>`,
	`<Text value={n}/>`,
	`<Text value={1 + 2}/>`,
	`<If condition={n > 0}><Text value="yes"/></If>`,
	`<ForEach source="[1,2]"><Text value={item}/></ForEach>`,
	`<OnClick><Increment target="n"/></OnClick>`,
	`<Button label={n} tone="primary" size="lg" icon="arrow">go</Button>`,
}

func genSource() gopter.Gen {
	return gen.SliceOfN(6, gen.IntRange(0, len(fragments)-1)).Map(func(picks []int) string {
		var sb strings.Builder
		for _, i := range picks {
			sb.WriteString(fragments[i])
		}
		return sb.String()
	})
}

func TestCompileProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.Rng.Seed(1234) // For reproducible results
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	properties.Property("identical source compiles to byte-identical artifacts", prop.ForAll(
		func(source string) bool {
			a, err := New(Options{DisableCache: true}).Compile(context.Background(), source)
			if err != nil {
				return false
			}
			b, err := New(Options{DisableCache: true}).Compile(context.Background(), source)
			if err != nil {
				return false
			}
			aj, err := artifact.EncodeJSON(a.Template)
			if err != nil {
				return false
			}
			bj, err := artifact.EncodeJSON(b.Template)
			if err != nil {
				return false
			}
			am, err := artifact.EncodeMsgpack(a.Template)
			if err != nil {
				return false
			}
			bm, err := artifact.EncodeMsgpack(b.Template)
			if err != nil {
				return false
			}
			return string(aj) == string(bj) && string(am) == string(bm)
		},
		genSource(),
	))

	properties.Property("island IDs are stable and unique", prop.ForAll(
		func(source string) bool {
			result, err := New(Options{DisableCache: true}).Compile(context.Background(), source)
			if err != nil {
				return false
			}
			seen := make(map[string]bool)
			for _, island := range result.Template.Islands {
				if seen[island.ID] {
					return false
				}
				seen[island.ID] = true
			}

			again, err := New(Options{DisableCache: true}).Compile(context.Background(), source)
			if err != nil {
				return false
			}
			if len(again.Template.Islands) != len(result.Template.Islands) {
				return false
			}
			for i := range again.Template.Islands {
				if again.Template.Islands[i].ID != result.Template.Islands[i].ID {
					return false
				}
			}
			return true
		},
		genSource(),
	))

	properties.Property("artifact survives a JSON round trip", prop.ForAll(
		func(source string) bool {
			result, err := New(Options{DisableCache: true}).Compile(context.Background(), source)
			if err != nil {
				return false
			}
			data, err := artifact.EncodeJSON(result.Template)
			if err != nil {
				return false
			}
			decoded, err := artifact.DecodeJSON(data)
			if err != nil {
				return false
			}
			return decoded.SourceHash == result.Template.SourceHash &&
				len(decoded.Islands) == len(result.Template.Islands)
		},
		genSource(),
	))

	properties.TestingRun(t)
}
