package chat

import "time"

// MessageResponse is the outward-facing representation of a chat message.
type MessageResponse struct {
	ID          string `json:"id"`
	MessageType string `json:"message_type"`
	Content     string `json:"content"`
	Timestamp   string `json:"timestamp"`
}

func toMessageResponse(msg Message) MessageResponse {
	return MessageResponse{
		ID:          msg.ID,
		MessageType: msg.MessageType,
		Content:     msg.Content,
		Timestamp:   msg.Timestamp.UTC().Format(time.RFC3339Nano),
	}
}

func toMessageResponses(msgs []Message) []MessageResponse {
	out := make([]MessageResponse, 0, len(msgs))
	for _, msg := range msgs {
		out = append(out, toMessageResponse(msg))
	}
	return out
}
