package codegen

import "github.com/codemoderun/codemode/internal/domain/toolmodel"

// Annotate renders and caches a tool's InputTypeText/OutputTypeText.
// add_callback/add_server call this once per tool before it becomes
// visible to list_functions/get_function_details, so a
// cyclic-or-unresolved $ref is rejected at registration time rather
// than at first use.
func Annotate(tool *toolmodel.Tool) error {
	inputText, err := RenderType(tool.InputSchema)
	if err != nil {
		return err
	}
	outputText, err := RenderType(tool.OutputSchema)
	if err != nil {
		return err
	}
	tool.InputTypeText = inputText
	tool.OutputTypeText = outputText
	return nil
}

// ShortSignature renders the list_functions line for one already
// annotated tool: "fn_name(args: InputType): Promise<OutputType>;".
func ShortSignature(tool *toolmodel.Tool) string {
	return "function " + tool.ID.Namespace + "_" + tool.ID.Name +
		"(args: " + tool.InputTypeText + "): Promise<" + tool.OutputTypeText + ">;"
}

// DetailedDeclaration renders the get_function_details entry: the
// description as a doc comment, then the short signature.
func DetailedDeclaration(tool *toolmodel.Tool) string {
	sig := ShortSignature(tool)
	if tool.Description == "" {
		return sig
	}
	return "/** " + tool.Description + " */\n" + sig
}
