package telegram

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"

	"originality_sync/internal/app"
	"originality_sync/internal/domain/document"
	"originality_sync/internal/domain/remote"
)

const (
	msgUnauthorized  = "Ошибка: У вас нет прав для выполнения этой команды."
	msgNotConfigured = "Сервис проверки оригинальности не настроен: заполните параметры подключения."
	commandTimeout   = 2 * time.Minute
)

// RegisterAdminHandlers registers the operator commands. Every command is
// restricted to the configured admin Telegram ID.
func RegisterAdminHandlers(ctx context.Context, b *telebot.Bot, adminService *app.AdminService, adminTelegramID int64, jobTimeout time.Duration, baseLogger *logrus.Entry) {
	adminOnly := func(command string, fn func(c telebot.Context, log *logrus.Entry) error) telebot.HandlerFunc {
		return func(c telebot.Context) error {
			handlerLogger := baseLogger.WithFields(logrus.Fields{
				"handler":   command,
				"sender_id": c.Sender().ID,
			})
			handlerLogger.Info("Command received")
			if c.Sender().ID != adminTelegramID {
				handlerLogger.Warn("Unauthorized access attempt")
				return c.Send(msgUnauthorized)
			}
			return fn(c, handlerLogger)
		}
	}

	b.Handle("/account", adminOnly("/account", func(c telebot.Context, log *logrus.Entry) error {
		cmdCtx, cancel := context.WithTimeout(ctx, commandTimeout)
		defer cancel()

		status, err := adminService.AccountStatus(cmdCtx, c.Sender().ID)
		if err != nil {
			return c.Send(describeError(log, err, "Не удалось проверить учётную запись"))
		}
		return c.Send(formatAccount(status))
	}))

	b.Handle("/doc", adminOnly("/doc", func(c telebot.Context, log *logrus.Entry) error {
		id, ok := parseDocumentID(c.Args())
		if !ok {
			return c.Send("Неверный формат команды. Используйте: /doc <ID документа>")
		}
		cmdCtx, cancel := context.WithTimeout(ctx, commandTimeout)
		defer cancel()

		rec, err := adminService.Document(cmdCtx, c.Sender().ID, id)
		if err != nil {
			return c.Send(describeError(log.WithField("document_id", id), err, "Не удалось получить документ"))
		}
		return c.Send(formatDocument(rec), &telebot.SendOptions{DisableWebPagePreview: true})
	}))

	b.Handle("/refresh", adminOnly("/refresh", func(c telebot.Context, log *logrus.Entry) error {
		id, ok := parseDocumentID(c.Args())
		if !ok {
			return c.Send("Неверный формат команды. Используйте: /refresh <ID документа>")
		}
		cmdCtx, cancel := context.WithTimeout(ctx, commandTimeout)
		defer cancel()

		rec, err := adminService.RefreshDocument(cmdCtx, c.Sender().ID, id)
		if err != nil {
			return c.Send(describeError(log.WithField("document_id", id), err, "Не удалось обновить статус документа"))
		}
		log.WithFields(logrus.Fields{"document_id": id, "status": rec.Status}).Info("Document refreshed")
		return c.Send(formatDocument(rec), &telebot.SendOptions{DisableWebPagePreview: true})
	}))

	b.Handle("/retry", adminOnly("/retry", func(c telebot.Context, log *logrus.Entry) error {
		id, ok := parseDocumentID(c.Args())
		if !ok {
			return c.Send("Неверный формат команды. Используйте: /retry <ID документа>")
		}
		cmdCtx, cancel := context.WithTimeout(ctx, commandTimeout)
		defer cancel()

		rec, err := adminService.RetryUpload(cmdCtx, c.Sender().ID, id)
		if err != nil {
			return c.Send(describeError(log.WithField("document_id", id), err, "Не удалось вернуть документ в очередь"))
		}
		log.WithField("document_id", id).Info("Document queued for another upload")
		return c.Send(formatDocument(rec), &telebot.SendOptions{DisableWebPagePreview: true})
	}))

	b.Handle("/run", adminOnly("/run", func(c telebot.Context, log *logrus.Entry) error {
		args := c.Args()
		if len(args) != 1 {
			return c.Send("Неверный формат команды. Используйте: /run <" + strings.Join(adminService.JobNames(), "|") + ">")
		}
		name := strings.ToLower(args[0])
		_ = c.Send(fmt.Sprintf("Задача %s запущена…", name))

		jobCtx, cancel := context.WithTimeout(ctx, jobTimeout)
		defer cancel()

		report, err := adminService.RunJob(jobCtx, c.Sender().ID, name)
		if err != nil {
			if errors.Is(err, app.ErrUnknownJob) {
				return c.Send(fmt.Sprintf("Неизвестная задача %q. Доступные задачи: %s", name, strings.Join(adminService.JobNames(), ", ")))
			}
			return c.Send(describeError(log.WithField("job", name), err, "Задача завершилась с ошибкой"))
		}
		log.WithFields(report.Fields()).Info("Job run on demand")
		return c.Send(fmt.Sprintf("Готово: %s", report.String()))
	}))
}

func parseDocumentID(args []string) (int64, bool) {
	if len(args) != 1 {
		return 0, false
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// describeError logs err and turns it into a message for the admin.
func describeError(log *logrus.Entry, err error, prefix string) string {
	logWithError := log.WithError(err)
	switch {
	case errors.Is(err, app.ErrAdminNotAuthorized):
		logWithError.Warn("Admin not authorized (service level)")
		return msgUnauthorized
	case errors.Is(err, app.ErrNotConfigured):
		logWithError.Warn("Originality service is not configured")
		return msgNotConfigured
	case errors.Is(err, document.ErrNotFound):
		logWithError.Warn("Document not found")
		return "Документ не найден."
	case errors.Is(err, app.ErrNotRetryable):
		return "Повторная загрузка возможна только для документов с ошибкой загрузки."
	}

	var re *remote.Error
	if errors.As(err, &re) {
		logWithError.Warn("Originality service call failed")
		return fmt.Sprintf("%s: %s", prefix, remote.UserMessage(err))
	}
	logWithError.Error("Command failed")
	return fmt.Sprintf("%s: %s", prefix, err.Error())
}

func formatAccount(s *remote.AccountStatus) string {
	var b strings.Builder
	b.WriteString("Подключение к сервису проверки установлено.\n")
	fmt.Fprintf(&b, "Тариф: %s\n", s.PlanName)
	if !s.Expiration.IsZero() {
		fmt.Fprintf(&b, "Действует до: %s\n", s.Expiration.Format("02.01.2006"))
	}
	fmt.Fprintf(&b, "Проверок осталось: %d из %d", s.RemainingChecks, s.TotalChecks)
	return b.String()
}

var statusTitles = map[document.Status]string{
	document.StatusPendingUpload: "ожидает загрузки",
	document.StatusUploaded:      "загружен",
	document.StatusChecking:      "проверяется",
	document.StatusChecked:       "проверен",
	document.StatusIndexed:       "проверен и проиндексирован",
	document.StatusUploadError:   "ошибка загрузки",
	document.StatusCheckingError: "ошибка запуска проверки",
	document.StatusCheckFailed:   "проверка не удалась",
	document.StatusStatusError:   "ошибка получения статуса",
	document.StatusIndexError:    "ошибка индексации",
	document.StatusTooShort:      "текст слишком короткий",
	document.StatusNotFound:      "содержимое не найдено",
}

func formatDocument(rec *document.Record) string {
	title, ok := statusTitles[rec.Status]
	if !ok {
		title = string(rec.Status)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Документ #%d (%s)\n", rec.ID, rec.DocType)
	fmt.Fprintf(&b, "Курс %d, модуль %d, ответ %d, пользователь %d, попытка %d\n",
		rec.CourseID, rec.ModuleID, rec.AnswerID, rec.UserID, rec.Attempt)
	fmt.Fprintf(&b, "Статус: %s\n", title)
	if rec.Error.Valid {
		fmt.Fprintf(&b, "Ошибка: %s\n", rec.Error.String)
	}
	fmt.Fprintf(&b, "Добавлен: %s", rec.AddedAt.Format("02.01.2006 15:04"))
	if rec.CheckEndedAt.Valid {
		fmt.Fprintf(&b, "\nПроверен: %s", rec.CheckEndedAt.Time.Format("02.01.2006 15:04"))
	}
	if res := rec.Result; res != nil {
		fmt.Fprintf(&b, "\nОригинальность: %.0f%%, заимствования: %.2f%%, цитирования: %.2f%%, самоцитирования: %.2f%%",
			res.Originality, res.Plagiarism, res.Legal, res.SelfCite)
		if res.IsSuspicious {
			b.WriteString("\nДокумент помечен как подозрительный.")
		}
		if link := res.Links.Read; link != "" {
			fmt.Fprintf(&b, "\nОтчёт: %s", link)
		}
	}
	return b.String()
}
