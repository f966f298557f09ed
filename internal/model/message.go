package model

import "time"

// ChatMessage is the in-flight chat payload. Messages are ephemeral: the
// relay owns delivery only and nothing here is ever persisted.
type ChatMessage struct {
	GroupID     string    `json:"groupId"`
	SenderID    string    `json:"senderId"`
	SenderEmail string    `json:"senderEmail"`
	Content     string    `json:"content"`
	Timestamp   time.Time `json:"timestamp"`
}

const ChatMessageMaxLength = 500
