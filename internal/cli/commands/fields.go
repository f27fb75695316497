package commands

import (
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/dark/internal/cli/output"
	"github.com/leapstack-labs/dark/internal/fields"
)

// FieldTypeInfo is the JSON shape of a registered field type.
type FieldTypeInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// NewFieldsCommand creates the fields command.
func NewFieldsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "fields",
		Short: "List field types accepted by add_datastore_field",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmdCtx := NewCommandContextWithoutEngine(cmd)
			return renderFieldTypes(cmdCtx.Renderer, fields.Default())
		},
	}
}

func renderFieldTypes(r *output.Renderer, reg *fields.Registry) error {
	kinds := reg.Kinds()

	if r.EffectiveMode() == output.ModeJSON {
		infos := make([]FieldTypeInfo, len(kinds))
		for i, k := range kinds {
			infos[i] = FieldTypeInfo{Name: k.Name, Description: k.Description}
		}
		return r.JSON(infos)
	}

	rows := make([][]string, len(kinds))
	for i, k := range kinds {
		rows[i] = []string{k.Name, k.Description}
	}
	r.Header(1, "Field Types")
	r.Table([]string{"Type", "Description"}, rows)
	return nil
}
