package models

import "time"

// Case groups the chats a user keeps about one legal matter.
type Case struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Chats []Chat `json:"chats"`
}

// Chat is one conversation thread inside a case.
type Chat struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Type     string    `json:"type"`
	Messages []Message `json:"messages"`
}

// Message is a recorded turn of a chat.
type Message struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Mode      string    `json:"mode,omitempty"`
	Domain    string    `json:"domain,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
