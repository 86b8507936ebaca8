// Package telegram describes outbound admin messaging without tying callers
// to the bot library.
package telegram

// Message is one outbound plain-text message.
type Message struct {
	ChatID         int64
	Text           string
	DisablePreview bool
}

// Client delivers messages to a chat.
type Client interface {
	Send(msg Message) error
}
