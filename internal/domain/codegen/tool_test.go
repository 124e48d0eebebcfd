package codegen

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/codemoderun/codemode/internal/domain/toolmodel"
)

func TestAnnotateAndRenderSignatures(t *testing.T) {
	input := mustSchema(t, `{"type": "object", "properties": {"a": {"type": "number"}}, "required": ["a"]}`)
	output := mustSchema(t, `{"type": "number"}`)
	tool := toolmodel.NewCallbackTool("Math", "add", "adds two numbers", input, output)

	require.NoError(t, Annotate(tool))
	require.Equal(t, "{ a: number; [key: string]: any /* shape unknown */ }", tool.InputTypeText)
	require.Equal(t, "number", tool.OutputTypeText)

	sig := ShortSignature(tool)
	require.Equal(t, "function Math_add(args: { a: number; [key: string]: any /* shape unknown */ }): Promise<number>;", sig)

	decl := DetailedDeclaration(tool)
	require.Equal(t, "/** adds two numbers */\nfunction Math_add(args: { a: number; [key: string]: any /* shape unknown */ }): Promise<number>;", decl)
}

func TestAnnotateRejectsCyclicSchema(t *testing.T) {
	cyclic := mustSchema(t, `{
		"$defs": {"Node": {"type": "object", "properties": {"next": {"$ref": "#/$defs/Node"}}}},
		"$ref": "#/$defs/Node"
	}`)
	tool := toolmodel.NewCallbackTool("Tree", "walk", "", cyclic, nil)
	err := Annotate(tool)
	require.Error(t, err)
}
