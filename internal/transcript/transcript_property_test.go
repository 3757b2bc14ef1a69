//go:build property
// +build property

package transcript_test

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/ziadkadry99/flowchat/internal/transcript"
)

// TestAppendOnlyHistory verifies earlier entries never change as more are appended.
// Property: Entries()[:n] before == Entries()[:n] after any further appends
func TestAppendOnlyHistory(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("length is non-decreasing and history is immutable", prop.ForAll(
		func(contents []string, userFlags []bool) bool {
			s := transcript.NewStore()
			var prev []transcript.Entry
			for i, c := range contents {
				role := transcript.RoleAssistant
				if i < len(userFlags) && userFlags[i] {
					role = transcript.RoleUser
				}
				if _, err := s.Append(c, role); err != nil {
					return false
				}
				cur := s.Entries()
				if len(cur) != len(prev)+1 {
					return false
				}
				for j := range prev {
					if cur[j] != prev[j] {
						return false
					}
				}
				prev = cur
			}
			return true
		},
		gen.SliceOf(gen.AnyString()),
		gen.SliceOf(gen.Bool()),
	))

	properties.TestingRun(t)
}
