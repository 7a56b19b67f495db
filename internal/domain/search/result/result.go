package result

// Result is a single content-chunk hit.
//
// Distance is always present and comparable: lower is better. Tag-only
// retrieval carries a sentinel distance of 0 because no similarity signal
// exists for it; tag-only and vector results from different retrieval modes
// are never re-sorted against each other by distance.
type Result struct {
	chunkID    string
	content    string
	documentID string
	chunkIndex int
	tags       map[string]string
	distance   float64
	kbID       string
}

// New creates a search result.
func New(
	chunkID, content, documentID string, chunkIndex int,
	tags map[string]string, distance float64, kbID string,
) Result {
	return Result{
		chunkID:    chunkID,
		content:    content,
		documentID: documentID,
		chunkIndex: chunkIndex,
		tags:       tags,
		distance:   distance,
		kbID:       kbID,
	}
}

// ChunkID returns the opaque chunk identifier.
func (r *Result) ChunkID() string { return r.chunkID }

// Content returns the chunk text.
func (r *Result) Content() string { return r.content }

// DocumentID returns the owning document identifier.
func (r *Result) DocumentID() string { return r.documentID }

// ChunkIndex returns the zero-based chunk position within the document.
func (r *Result) ChunkIndex() int { return r.chunkIndex }

// Tags returns the populated tag-slot values (slot name -> value).
func (r *Result) Tags() map[string]string { return r.tags }

// Distance returns the similarity distance (0 for tag-only retrieval).
func (r *Result) Distance() float64 { return r.distance }

// KnowledgeBaseID returns the originating partition identifier.
func (r *Result) KnowledgeBaseID() string { return r.kbID }
