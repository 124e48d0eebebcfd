package registry

import (
	"strings"

	"github.com/codemoderun/codemode/internal/domain/codegen"
	"github.com/codemoderun/codemode/internal/domain/toolmodel"
)

// declarationBuilder accumulates codegen declaration lines for
// list_functions/get_function_details.
type declarationBuilder struct {
	b strings.Builder
}

func (d *declarationBuilder) addShort(tool *toolmodel.Tool) {
	if d.b.Len() > 0 {
		d.b.WriteString("\n")
	}
	d.b.WriteString(codegen.ShortSignature(tool))
}

func (d *declarationBuilder) addDetailed(tool *toolmodel.Tool) {
	if d.b.Len() > 0 {
		d.b.WriteString("\n\n")
	}
	d.b.WriteString(codegen.DetailedDeclaration(tool))
}

func (d *declarationBuilder) String() string {
	return d.b.String()
}
