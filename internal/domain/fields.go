package domain

// FieldMap is the flattened string view of an event's payload used as
// template input. Keys with empty values are never present.
type FieldMap map[string]string

// Has checks if the field map contains the given field
func (f FieldMap) Has(name string) bool {
	_, ok := f[name]
	return ok
}

// ExtractFields reads the bound payload members and returns them as a
// field map. Members whose value is empty are omitted; a binding with a
// nil getter is skipped. Extraction never fails.
func ExtractFields(payload Payload, bindings []FieldBinding) FieldMap {
	fields := make(FieldMap, len(bindings))
	for _, b := range bindings {
		if b.Get == nil {
			continue
		}
		if value := b.Get(payload); value != "" {
			fields[b.Name] = value
		}
	}
	return fields
}
