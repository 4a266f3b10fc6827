// internal/app/features/articles/types.go
package articles

// articleRequest is the JSON body for creating or updating an article.
// The author comes from the requesting user, never from the body, and the
// id comes from the URL on updates.
type articleRequest struct {
	Title          string   `json:"title"`
	Description    string   `json:"description"`
	Body           string   `json:"body"`
	Level          string   `json:"level"`
	Keywords       []string `json:"keywords"`
	ReferenceLinks []string `json:"reference_links"`
	GroupName      string   `json:"group_name"`
}
