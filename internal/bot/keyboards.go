package bot

import (
	"fmt"
	"strconv"

	"codeberg.org/luchgpt/server/internal/models"
	"codeberg.org/luchgpt/server/luchgpt/chats"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

func mainMenuKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("New chat", actionNew)),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("My chats", actionChats),
			tgbotapi.NewInlineKeyboardButtonData("Profile", actionProfile),
		),
	)
}

func activeChatKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Change model", actionModels),
			tgbotapi.NewInlineKeyboardButtonData("End chat", actionEnd),
		),
	)
}

// one row per chat: open it or delete it
func chatsKeyboard(list []*chats.Chat) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(list)+1)

	for _, chat := range list {
		id := strconv.FormatInt(chat.ID, 10)
		label := chat.DisplayTitle()
		if chat.IsActive {
			label = "● " + label
		}

		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(label, actionSelect+id),
			tgbotapi.NewInlineKeyboardButtonData("Delete", actionDelete+id),
		))
	}

	rows = append(rows, tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("New chat", actionNew)))

	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// one button per model; the current one is marked
func modelsKeyboard(catalog *models.Catalog, current string) tgbotapi.InlineKeyboardMarkup {
	keys := catalog.Keys()
	row := make([]tgbotapi.InlineKeyboardButton, 0, len(keys))

	for _, key := range keys {
		m, _ := catalog.Get(key)

		label := m.Title
		if key == current {
			label = fmt.Sprintf("✓ %s", m.Title)
		}

		row = append(row, tgbotapi.NewInlineKeyboardButtonData(label, actionModel+key))
	}

	return tgbotapi.NewInlineKeyboardMarkup(row)
}
