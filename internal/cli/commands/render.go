package commands

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/leapstack-labs/dark/internal/cli/output"
	"github.com/leapstack-labs/dark/internal/frontend"
)

// renderView writes a projected graph in the renderer's effective mode.
func renderView(r *output.Renderer, view frontend.View) error {
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(view)
	}

	cursor := "-"
	if view.Cursor != nil {
		cursor = *view.Cursor
	}

	r.Header(2, "Nodes")
	if len(view.Nodes) == 0 {
		r.Muted("(empty graph)")
	} else {
		rows := make([][]string, 0, len(view.Nodes))
		for _, n := range view.Nodes {
			marker := ""
			if n.ID == cursor {
				marker = "*"
			}
			rows = append(rows, []string{marker, n.ID, n.Role, formatCoord(n.X), formatCoord(n.Y)})
		}
		r.Table([]string{"", "Name", "Role", "X", "Y"}, rows)
	}

	if len(view.Datastores) > 0 {
		r.Println("")
		r.Header(2, "Datastores")
		rows := make([][]string, 0, len(view.Datastores))
		for _, ds := range view.Datastores {
			rows = append(rows, []string{ds.ID, formatFields(ds.Fields), strconv.Itoa(ds.Records)})
		}
		r.Table([]string{"Name", "Fields", "Records"}, rows)
	}

	r.Println("")
	r.KeyValue("Cursor", cursor)
	return nil
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatFields(fs []frontend.Field) string {
	if len(fs) == 0 {
		return "-"
	}
	parts := make([]string, len(fs))
	for i, f := range fs {
		parts[i] = fmt.Sprintf("%s:%s", f.Name, f.Type)
	}
	return strings.Join(parts, ", ")
}
