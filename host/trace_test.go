package host

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTraceRender(t *testing.T) {
	root := &traceNode{contract: "lh1root", kind: "script", method: "forward", budget: 1000, gasUsed: 400, settled: true, success: true}
	mid := root.child("lh1mid")
	mid.kind, mid.method, mid.budget, mid.gasUsed, mid.settled, mid.success = "abi", "forward", 800, 300, true, true
	leaf := mid.child("lh1leaf")
	leaf.kind, leaf.budget, leaf.gasUsed, leaf.settled, leaf.code = "wasm", 500, 500, true, "OUT_OF_GAS"
	root.child("lh1pending")

	out := root.render()
	lines := strings.Split(strings.TrimSpace(out), "\n")
	assert.Len(t, lines, 4)
	assert.Equal(t, "lh1root [script] forward gas=400/1000 ok", lines[0])
	assert.Contains(t, out, "lh1mid [abi] forward gas=300/800 ok")
	assert.Contains(t, out, "lh1leaf [wasm] gas=500/500 failed OUT_OF_GAS")
	assert.Contains(t, out, "lh1pending gas=0/0 pending")

	var nilNode *traceNode
	assert.Empty(t, nilNode.render())
}
