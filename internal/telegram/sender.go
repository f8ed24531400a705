package telegram

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Sender delivers outbound messages through the Telegram Bot API. It
// implements orchestrator.Transport.
type Sender struct {
	api *tgbotapi.BotAPI
}

// NewSender wraps a Telegram API client.
func NewSender(api *tgbotapi.BotAPI) *Sender {
	return &Sender{api: api}
}

// SendText sends one text message. markdown selects MarkdownV2 parse mode;
// the caller is responsible for escaping.
func (s *Sender) SendText(chatID int64, text string, markdown bool) error {
	msg := tgbotapi.NewMessage(chatID, text)
	if markdown {
		msg.ParseMode = tgbotapi.ModeMarkdownV2
	}
	_, err := s.api.Send(msg)
	return err
}

// SendPhoto sends a photo by URL with a caption.
func (s *Sender) SendPhoto(chatID int64, url, caption string) error {
	photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileURL(url))
	photo.Caption = caption
	_, err := s.api.Send(photo)
	return err
}
