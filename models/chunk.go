package models

// DocumentChunk is an indexed fragment of a source legal document.
type DocumentChunk struct {
	ID     string `json:"id"`
	Text   string `json:"text"`
	Index  int    `json:"index"`
	Source string `json:"source,omitempty"`
}

// ScoredChunk is a chunk returned by a nearest-neighbour lookup. Lower
// distance means closer to the query.
type ScoredChunk struct {
	Chunk    DocumentChunk `json:"chunk"`
	Distance float64       `json:"distance"`
}
