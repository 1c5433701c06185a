package models

const (
	RoleUser  = "user"
	RoleModel = "model"
)

// ConversationTurn is one message of a conversation.
type ConversationTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// SearchResult is a single web snippet collected for a sub-query.
type SearchResult struct {
	Text  string `json:"text"`
	URL   string `json:"url"`
	Query string `json:"query"`
}
