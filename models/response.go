package models

type ChatResponse struct {
	Response     string  `json:"response"`
	Domain       string  `json:"domain"`
	Mode         string  `json:"mode"`
	ResponseTime float64 `json:"response_time"`
	SessionID    string  `json:"session_id"`
}

type UploadResponse struct {
	FileContent string `json:"file_content"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
