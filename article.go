package metsalto

import "context"

// Article is one reconstructed news item.
type Article struct {
	IssueCode string `json:"issueCode"`
	ID        string `json:"id"`

	// Title is the declared label, or the heading text when no label was
	// declared.
	Title       string `json:"title"`
	HeadingText string `json:"headingText"`

	// Text is the running text. Regions are separated by a single newline.
	Text string `json:"text"`

	// Pages are the distinct pages touched by heading and body regions,
	// in reading order.
	Pages     []int    `json:"pages"`
	RegionIDs []string `json:"regionIds"`
	WordCount int      `json:"wordCount"`
	FirstPage int      `json:"firstPage"`
	LastPage  int      `json:"lastPage"`

	// Box is the union of all word boxes.
	Box BoundingBox `json:"box"`

	// Confidence is the mean OCR word confidence, 0 when unknown.
	Confidence float64 `json:"confidence"`

	NonText []string `json:"nonText,omitempty"`

	// Merges holds the source fragments of every hyphen merge. It is not
	// part of the batch file; the ledger stores it in audit mode.
	Merges []HyphenMerge `json:"merges,omitempty"`
}

// BatchWriter persists one issue's articles as a single batch.
type BatchWriter interface {
	// WriteBatch writes the articles and returns the path written. A batch
	// is either fully written or not present; failures are EPERSIST errors.
	WriteBatch(ctx context.Context, issue *Issue, articles []*Article) (string, error)
}
