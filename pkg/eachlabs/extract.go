package eachlabs

import "github.com/tidwall/gjson"

const (
	fieldTriggerID    = "trigger_id"
	fieldExecutionIDs = "execution_ids"
)

// TriggerID returns the string at "trigger_id".
func TriggerID(obj Object) (string, bool) {
	res := obj.Get(fieldTriggerID)
	if res.Type != gjson.String {
		return "", false
	}
	return res.Str, true
}

// ExecutionIDs returns the strings at "execution_ids" in order. It fails if
// the value is not an array or any element is not a string.
func ExecutionIDs(obj Object) ([]string, bool) {
	res := obj.Get(fieldExecutionIDs)
	if !res.IsArray() {
		return nil, false
	}

	elems := res.Array()
	ids := make([]string, 0, len(elems))
	for _, el := range elems {
		if el.Type != gjson.String {
			return nil, false
		}
		ids = append(ids, el.Str)
	}
	return ids, true
}
