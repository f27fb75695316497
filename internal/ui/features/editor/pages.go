package editor

import "encoding/json"

// fieldTypesJSON encodes the field type names for the editor script.
func fieldTypesJSON(types []string) string {
	if types == nil {
		types = []string{}
	}
	data, _ := json.Marshal(types)
	return string(data)
}
