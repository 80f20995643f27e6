package mime

import "encoding/json"

// rawJSON returns data as a json.RawMessage when it is valid JSON, and as a
// string otherwise, so bundles always encode.
func rawJSON(data []byte) any {
	if json.Valid(data) {
		return json.RawMessage(data)
	}
	return string(data)
}
