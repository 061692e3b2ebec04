package core

// Chunk is one embedding unit: a single indexable symbol's content, ready
// to be sent to the embedding provider and upserted into the vector store.
type Chunk struct {
	ID              string // stable id = hash(file_path + qualified_name)
	RepositoryID    int64
	FilePath        string
	LineStart       int
	LineEnd         int
	SymbolName      string
	SymbolType      SymbolKind
	ParentSymbol    string
	Content         string // the text actually sent to the embedder
	ContentPreview  string
}
