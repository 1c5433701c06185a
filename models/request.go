package models

// ChatForm is the form accepted by POST /api/chat. The optional file is
// read separately from the multipart request.
type ChatForm struct {
	Message   string `form:"message" json:"message"`
	Mode      string `form:"mode" json:"mode"`
	SessionID string `form:"session_id" json:"session_id"`
	CaseID    string `form:"case_id" json:"case_id"`
	ChatID    string `form:"chat_id" json:"chat_id"`
}

type CreateChatRequest struct {
	Type string `json:"type"`
}
