package domain

// Resource kinds that carry an owner.
const (
	ResourcePost    = "post"
	ResourceComment = "comment"
)

// Resource is the ownership projection of a piece of user content.
type Resource struct {
	Kind    string `json:"kind"`
	ID      string `json:"id"`
	Slug    string `json:"slug,omitempty"`
	OwnerID string `json:"owner_id"`
}
