package db

// Chunk hash field names. The write path (ingestion, out of scope here)
// maintains these; the search path only reads them.
const (
	FieldContent    = "__content"
	FieldVector     = "__vector"
	FieldChunkID    = "chunk_id"
	FieldDocumentID = "document_id"
	FieldChunkIndex = "chunk_index"
	FieldKBID       = "kb_id"
	FieldEnabled    = "enabled"
	FieldDocDeleted = "doc_deleted"
)

// Document hash field names.
const (
	DocFieldName    = "name"
	DocFieldDeleted = "deleted"
)

// TagSlotFields lists the seven fixed tag-slot hash fields.
var TagSlotFields = []string{"tag1", "tag2", "tag3", "tag4", "tag5", "tag6", "tag7"}

// HNSWConfig holds HNSW build parameters for the chunk index.
type HNSWConfig struct {
	M           int
	EFConstruct int
}

// ChunkIndex builds the FT index definition for content chunks.
// Tag fields are case-insensitive so tag-equality filters fold case at the
// store, matching the compiler's lower-cased alternatives.
func ChunkIndex(name, keyPrefix string, vectorDim int, hnsw HNSWConfig) (*IndexDefinition, error) {
	fields := []IndexField{
		{Name: FieldChunkID, Type: IndexFieldTag},
		{Name: FieldKBID, Type: IndexFieldTag},
		{Name: FieldEnabled, Type: IndexFieldTag},
		{Name: FieldDocDeleted, Type: IndexFieldTag},
		{Name: FieldChunkIndex, Type: IndexFieldNumeric},
	}
	for _, slot := range TagSlotFields {
		fields = append(fields, IndexField{Name: slot, Type: IndexFieldTag})
	}
	fields = append(fields, IndexField{
		Name:              FieldVector,
		Type:              IndexFieldVector,
		VectorDim:         vectorDim,
		VectorDistance:    DistanceCosine,
		VectorM:           hnsw.M,
		VectorEFConstruct: hnsw.EFConstruct,
	})

	def := &IndexDefinition{
		Name:     name,
		Prefixes: []string{keyPrefix},
		Fields:   fields,
	}
	if err := def.Validate(); err != nil {
		return nil, err
	}
	return def, nil
}
