package telegram

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// UI texts in English
const (
	helpText = "👋 I am a weather bot.\n\n" +
		"• /weather <city> — current weather and what to wear\n" +
		"• /setlocation <city> <HH:MM> — a daily report at that time (%s)\n" +
		"• /status — your daily report settings\n" +
		"• /stop — stop the daily report"

	weatherUsageText     = "Usage: /weather <city>, e.g. /weather Austin"
	setLocationUsageText = "Usage: /setlocation <city> <HH:MM>, e.g. /setlocation Austin 07:30"
	invalidTimeText      = "Invalid time. Use 24-hour HH:MM, e.g. 07:30 or 18:00."
	invalidLocationText  = "Invalid location. Please try again."
	fetchFailedText      = "Sorry, couldn't find weather data for that location."
	saveFailedText       = "Could not save your settings. Please try again later."
	noPreferenceText     = "No daily report set. Use /setlocation <city> <HH:MM>."
	stoppedText          = "Daily report stopped. Use /setlocation to start again."
	unknownCommandText   = "Unknown command. Try /help."

	setLocationOKFmt = "Location set to %s. You'll receive a daily weather report at %s (%s).\nNext report: %s"
	statusFmt        = "🧾 Your daily report:\n• Location: %s\n• Time: %s (%s)\n• Delivered to: %s\n• Next: %s"
)

func helpMessage(zone string) string {
	return fmt.Sprintf(helpText, zone)
}

// mainMenuKeyboard is shown in private chats.
func mainMenuKeyboard() tgbotapi.ReplyKeyboardMarkup {
	return tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton("/status"),
			tgbotapi.NewKeyboardButton("/help"),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton("/stop"),
		),
	)
}
