package domain

// NamespaceInfo describes one namespace of the backend index: its name,
// record count, and the metadata fields observed by sampling records.
// Instances are replaced wholesale on cache refresh, never mutated.
type NamespaceInfo struct {
	Name        string          `json:"namespace"`
	RecordCount int             `json:"record_count"`
	Fields      map[string]Kind `json:"metadata_fields"`
}

// FieldNames returns the schema field names (unordered).
func (n NamespaceInfo) FieldNames() []string {
	names := make([]string, 0, len(n.Fields))
	for name := range n.Fields {
		names = append(names, name)
	}
	return names
}
