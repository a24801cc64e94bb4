package bot

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"strings"

	"codeberg.org/luchgpt/server/internal/coordinator"
	"codeberg.org/luchgpt/server/internal/logger"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// sends the largest size of a photo, with its caption as the prompt
func (b *Bot) handlePhoto(ctx context.Context, caller coordinator.Caller, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	photo := msg.Photo[len(msg.Photo)-1]

	if photo.FileSize > maxPhotoBytes {
		b.reply(chatID, "The photo is larger than 5 MiB.")
		return
	}

	imageURL, err := b.downloadPhoto(ctx, photo.FileID)
	if err != nil {
		logger.FromContext(ctx).Warn("failed to download photo", "error", err)
		b.reply(chatID, "Could not read the photo, please send it again.")
		return
	}

	b.converse(ctx, caller, chatID, coordinator.SendRequest{
		Caller:   caller,
		Text:     msg.Caption,
		ImageURL: imageURL,
	})
}

// fetches the file and returns it as a data URI, keeping the bot token out of stored messages
func (b *Bot) downloadPhoto(ctx context.Context, fileID string) (string, error) {
	url, err := b.api.GetFileDirectURL(fileID)
	if err != nil {
		return "", fmt.Errorf("failed to resolve file: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := b.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to download file: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck // read-only body

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("file download returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxPhotoBytes+1))
	if err != nil {
		return "", fmt.Errorf("failed to read file: %w", err)
	}

	if len(data) > maxPhotoBytes {
		return "", fmt.Errorf("file larger than %d bytes", maxPhotoBytes)
	}

	mime := http.DetectContentType(data)
	if !strings.HasPrefix(mime, "image/") {
		mime = "image/jpeg"
	}

	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}
