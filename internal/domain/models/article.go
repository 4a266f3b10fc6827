// internal/domain/models/article.go
package models

import "time"

// Article is one help article in the knowledge base.
//
// NOTE:
//   - ID is assigned by the article store on first persist and is immutable
//     afterwards. A zero ID marks an article that has never been stored.
//   - Body is always plaintext in memory. When GroupName is set the store
//     encrypts the body before it is written; Encrypted reports how the body
//     is held at rest and is therefore always equal to (GroupName != "").
//   - AuthorUsername is set at creation and never changes.
//   - Articles are persisted by articlestore in a delimited-text document
//     encoding, so there are no bson tags here.
type Article struct {
	ID             int64    `json:"id"`
	Title          string   `json:"title"`
	Description    string   `json:"description"`
	Body           string   `json:"body"`
	Level          Level    `json:"level"`
	Keywords       []string `json:"keywords"`
	ReferenceLinks []string `json:"reference_links"`
	AuthorUsername string   `json:"author_username"`
	GroupName      string   `json:"group_name,omitempty"`
	Encrypted      bool     `json:"encrypted"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsGrouped reports whether the article belongs to an access group, which
// is exactly the condition under which its body is encrypted at rest.
func (a *Article) IsGrouped() bool {
	return a.GroupName != ""
}
