package catalog

import "encoding/json"

// marshalProperties encodes a properties map to the JSON form the
// namespace/warehouse/tabular tables store in their properties columns.
func marshalProperties(properties map[string]string) ([]byte, error) {
	if properties == nil {
		properties = map[string]string{}
	}

	return json.Marshal(properties)
}
