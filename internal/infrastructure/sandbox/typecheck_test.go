package sandbox

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTypeCheckerFlagsMissingRun(t *testing.T) {
	checker := NewTypeChecker()
	diags := checker.Check("", `function notRun() { return 1; }`)
	require.NotEmpty(t, diags)
}

func TestTypeCheckerAcceptsWellFormedScript(t *testing.T) {
	checker := NewTypeChecker()
	diags := checker.Check("", `async function run() { return 1; }`)
	require.Empty(t, diags)
}

func TestTypeCheckerFlagsSyntaxError(t *testing.T) {
	checker := NewTypeChecker()
	diags := checker.Check("", `async function run() { return 1 ++ ; }`)
	require.NotEmpty(t, diags)
}
