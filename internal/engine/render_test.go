package engine

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/recordupdate/internal/result"
)

func TestRender(t *testing.T) {
	root := &Node{
		Name:    "UpdateRequest",
		Result:  result.OK(),
		Elapsed: 12 * time.Millisecond,
		Children: []*Node{
			{Name: "ValidateOperation", Result: result.OK(), Elapsed: 3 * time.Millisecond},
			{Name: "UpdateOperation", Result: result.Error(result.StatusFailed, "nope")},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, root.Render(&buf, RenderOptions{Timing: true}))
	assert.Equal(t, "UpdateRequest in 12 ms: ok\n  ValidateOperation in 3 ms: ok\n  UpdateOperation in 0 ms: failed: nope\n", buf.String())

	assert.Equal(t, "UpdateRequest: ok\n  ValidateOperation: ok\n  UpdateOperation: failed: nope\n", root.String())
	assert.Equal(t, []string{"ValidateOperation", "UpdateOperation"}, root.ChildNames())
}

func TestRender_AbortedNode(t *testing.T) {
	n := &Node{Name: "Store"}
	assert.Equal(t, "Store: aborted\n", n.String())
}
