package telegram

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

func RegisterBotCommands(b *telebot.Bot, adminTelegramID int64, jobNames []string, baseLogger *logrus.Entry) {
	startHelpLogger := baseLogger.WithField("handler_group", "start_help")

	b.Handle("/start", func(c telebot.Context) error {
		senderID := c.Sender().ID
		logCtx := startHelpLogger.WithField("command", "/start").WithField("sender_id", senderID)
		logCtx.Info("Processing /start command")

		if senderID == adminTelegramID {
			logCtx.Info("User identified as Admin")
			return c.Send(fmt.Sprintf("Привет, Администратор %s! Сюда будут приходить уведомления о проверках оригинальности. Используйте /help для списка команд.", c.Sender().FirstName))
		}
		logCtx.Info("User is unknown")
		return c.Send("Привет! Это служебный бот проверки оригинальности. Команды доступны только администратору.")
	})

	b.Handle("/help", func(c telebot.Context) error {
		senderID := c.Sender().ID
		logCtx := startHelpLogger.WithField("command", "/help").WithField("sender_id", senderID)
		logCtx.Info("Processing /help command")

		if senderID != adminTelegramID {
			logCtx.Info("User is unknown, sending restricted help.")
			return c.Send("Доступных команд для вас нет.")
		}
		return c.Send(adminHelp(jobNames), &telebot.SendOptions{ParseMode: telebot.ModeMarkdown})
	})
}

func adminHelp(jobNames []string) string {
	var helpText strings.Builder
	helpText.WriteString("Доступные команды Администратора:\n\n")
	helpText.WriteString("`/account`\n - Проверить подключение и остаток проверок.\n\n")
	helpText.WriteString("`/doc <ID>`\n - Показать состояние документа.\n\n")
	helpText.WriteString("`/refresh <ID>`\n - Запросить статус проверки документа и обновить его.\n\n")
	helpText.WriteString("`/retry <ID>`\n - Вернуть документ с ошибкой загрузки в очередь.\n\n")
	fmt.Fprintf(&helpText, "`/run <задача>`\n - Запустить задачу вне расписания: `%s`.\n\n", strings.Join(jobNames, "`, `"))
	helpText.WriteString("`/help`\n - Показать это справочное сообщение.")
	return helpText.String()
}
