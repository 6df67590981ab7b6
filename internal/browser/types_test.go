// internal/browser/types_test.go
package browser

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestParseEngineKind(t *testing.T) {
	tests := []struct {
		in     string
		want   EngineKind
		wantOK bool
	}{
		{"chrome", EngineChrome, true},
		{" Firefox ", EngineFirefox, true},
		{"EDGE", EngineEdge, true},
		{"safari", EngineChrome, false},
		{"", EngineChrome, false},
	}
	for _, tt := range tests {
		got, ok := ParseEngineKind(tt.in)
		assert.Equal(t, tt.want, got, tt.in)
		assert.Equal(t, tt.wantOK, ok, tt.in)
	}
}

func TestElementRef_String(t *testing.T) {
	assert.Equal(t, "css=#checkout", CSS("#checkout").String())
	assert.Equal(t, "xpath=//button[text()='Pay']", XPath("//button[text()='Pay']").String())
}

// TestElementRef_JSExprQuoting checks that any selector survives embedding in
// a script literal unchanged.
func TestElementRef_JSExprQuoting(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		sel := rapid.String().Draw(t, "selector")
		expr := CSS(sel).JSExpr()

		const prefix, suffix = "document.querySelector(", ")"
		if !strings.HasPrefix(expr, prefix) || !strings.HasSuffix(expr, suffix) {
			t.Fatalf("unexpected expression shape: %s", expr)
		}
		var decoded string
		if err := json.Unmarshal([]byte(expr[len(prefix):len(expr)-len(suffix)]), &decoded); err != nil {
			t.Fatalf("literal is not valid: %v", err)
		}
		if decoded != sel {
			t.Fatalf("decoded %q, want %q", decoded, sel)
		}
	})
}

func TestElementRef_XPathExpr(t *testing.T) {
	expr := XPath(`//a[@title="x"]`).JSExpr()
	assert.Contains(t, expr, "document.evaluate(")
	assert.Contains(t, expr, `"//a[@title=\"x\"]"`)
	assert.Contains(t, expr, "singleNodeValue")
}
