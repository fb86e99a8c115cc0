package search

import "sitedocs/internal/store"

// Result is a single search hit returned to the caller.
type Result struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Snippet   string `json:"snippet"`
	Container string `json:"container"`
	Kind      string `json:"kind"`
	URL       string `json:"url"`
}

// Query describes a search request. Container narrows hits to one
// container when set.
type Query struct {
	Text      string
	Container string
	Limit     int
	Offset    int
}

// Response is the envelope returned by the search endpoint.
type Response struct {
	Results []Result `json:"results"`
	Total   int      `json:"total"`
	Query   string   `json:"query"`
	Engine  string   `json:"engine"`
}

// DocumentRecord is the data we index for a document.
type DocumentRecord struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Container   string `json:"container"`
	Kind        string `json:"kind"`
	MediaType   string `json:"mediaType"`
	URL         string `json:"url"`
	Tag         string `json:"tag"`
}

func RecordOf(doc store.Document) DocumentRecord {
	return DocumentRecord{
		ID:          doc.ID,
		Title:       doc.Title,
		Description: doc.Description,
		Container:   doc.Container,
		Kind:        doc.Kind,
		MediaType:   doc.MediaType,
		URL:         doc.URL,
		Tag:         doc.Tag,
	}
}
