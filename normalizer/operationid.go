package normalizer

import (
	"fmt"
	"strings"

	"github.com/erraggy/toolsetgen/internal/severity"
	"github.com/erraggy/toolsetgen/spec"
)

// dedupeOperationIDs makes operation ids unique. The first operation in
// order keeps its id; later duplicates get the smallest numeric suffix,
// starting at 2, that no other operation uses. Every rename is recorded.
func dedupeOperationIDs(ops []spec.Operation, st *state) []spec.Operation {
	// First pass: collect every id so renames never collide with a later original.
	assigned := make(map[string]bool, len(ops))
	for _, op := range ops {
		assigned[op.ID] = true
	}

	first := make(map[string]spec.Operation, len(ops))
	for i := range ops {
		op := &ops[i]
		prev, dup := first[op.ID]
		if !dup {
			first[op.ID] = *op
			continue
		}
		renamed := nextFreeID(op.ID, assigned)
		assigned[renamed] = true
		st.warnings = append(st.warnings, spec.Issue{
			Path:        "paths." + op.Path + "." + strings.ToLower(op.Method) + ".operationId",
			Message:     fmt.Sprintf("renamed duplicate operation id %q to %q (first occurrence at %s %s)", op.ID, renamed, prev.Method, prev.Path),
			Severity:    severity.SeverityWarning,
			OperationID: renamed,
		})
		op.ID = renamed
		first[renamed] = *op
	}
	return ops
}

// nextFreeID returns id with the smallest numeric suffix from 2 that is not
// assigned. There are fewer assigned ids than suffixes, so it terminates.
func nextFreeID(id string, assigned map[string]bool) string {
	for n := 2; ; n++ {
		if candidate := fmt.Sprintf("%s%d", id, n); !assigned[candidate] {
			return candidate
		}
	}
}
