package browser

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/user/ferry-watch/internal/domain"
)

func TestEvalResultErr(t *testing.T) {
	require.NoError(t, evalResult{OK: true, Count: 2}.err())
	require.ErrorIs(t, evalResult{Error: "no match"}.err(), ErrNoMatch)
	require.ErrorIs(t, evalResult{Count: 1, Error: "option not found: Troon"}.err(), ErrRejected)
	require.ErrorIs(t, evalResult{Error: "bad selector: oops"}.err(), ErrRejected)
}

func TestSelectorScriptQuotesInput(t *testing.T) {
	script := selectorScript(domain.WithText(`select[name="port"]`, ` It's "Troon" `), countBody)
	require.True(t, strings.HasPrefix(script, "(() => {"))
	require.Contains(t, script, `const css = "select[name=\"port\"]"`)
	require.Contains(t, script, `needle = "it's \"troon\""`)
	require.Contains(t, script, "el.querySelectorAll(css)")
	require.Contains(t, script, countBody)
}
