package render

import (
	"fmt"
	"net/http"
	"sort"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"usersbox-bot/internal/models"
	"usersbox-bot/internal/usersbox"
)

const (
	EmptyQuery      = "❌ Пожалуйста, укажите запрос для поиска."
	DebitFailed     = "❌ Не удалось списать попытку. Попробуйте еще раз."
	InternalError   = "⚠️ Внутренняя ошибка. Попробуйте позже."
	InviteUsage     = "❌ Укажите реферальный код: `/invite <код>`"
	SourcesFailed   = "❌ Ошибка получения списка баз данных"
	BalanceFailed   = "❌ Ошибка получения информации о балансе"
	AlreadyReferred = "ℹ️ Вы уже использовали реферальный код."
	InvalidCode     = "❌ Реферальный код не найден."
	SelfReferral    = "❌ Нельзя использовать собственный реферальный код."
)

const Help = `❓ *Справка по командам*

*🤖 Основные команды:*
• ` + "`/start`" + ` - приветствие и инструкции
• ` + "`/search <запрос>`" + ` - поиск по всем базам
• ` + "`/sources`" + ` - список доступных баз данных
• ` + "`/balance`" + ` - проверка баланса приложения
• ` + "`/profile`" + ` - ваш профиль и попытки
• ` + "`/referral`" + ` - реферальная ссылка
• ` + "`/invite <код>`" + ` - применить код друга
• ` + "`/help`" + ` - эта справка

*🔍 Форматы поиска:*
• Телефон: ` + "`+79123456789`" + ` или ` + "`79123456789`" + `
• Email: ` + "`example@mail.ru`" + `
• Имя: ` + "`Иван Петров`" + `
• IP-адрес: ` + "`192.168.1.1`" + `

*💡 Советы:*
• Просто отправьте любой текст для быстрого поиска
• Каждый поиск расходует одну попытку
• Приглашайте друзей и получайте дополнительные попытки

*⚠️ Важно:*
Используйте бота только в законных целях!`

var numbers = message.NewPrinter(language.English)

func Welcome(user *models.User) string {
	return fmt.Sprintf(`🔍 *Добро пожаловать в бота поиска по базам данных!*

Я помогу вам найти информацию по номерам телефонов, email, именам и другим данным.

💎 Доступно попыток: *%d*
🔗 Ваш реферальный код: `+"`%s`"+`

*Доступные команды:*
📱 `+"`/search <запрос>`"+` - поиск по всем базам
📊 `+"`/sources`"+` - список доступных баз данных
👤 `+"`/profile`"+` - ваш профиль
🤝 `+"`/referral`"+` - пригласить друга
❓ `+"`/help`"+` - помощь

Просто отправьте любой текст для поиска!`, user.FreeAttempts, user.ReferralCode)
}

func Searching(query string) string {
	return fmt.Sprintf("🔍 Ищу информацию по запросу: `%s`", inlineCode(query))
}

// NotFound is the fixed reply for zero results, with query format hints.
func NotFound(query string) string {
	return fmt.Sprintf("❌ По запросу `%s` ничего не найдено.\n\n"+
		"💡 Проверьте формат запроса:\n"+
		"• Телефон: `+79123456789`\n"+
		"• Email: `user@domain.com`\n"+
		"• Имя: `Иван Петров`", inlineCode(query))
}

func NoAttempts(code string) string {
	return fmt.Sprintf("😔 *У вас закончились попытки поиска.*\n\n"+
		"Пригласите друга по своему реферальному коду `%s` и получите +1 попытку за каждого.\n"+
		"Используйте /referral, чтобы получить ссылку.", code)
}

// ErrorKind groups provider failures into the hints shown to users.
type ErrorKind int

const (
	ErrorGeneric ErrorKind = iota
	ErrorBadRequest
	ErrorAuth
	ErrorRateLimit
	ErrorServer
)

// ClassifyProviderError maps the provider HTTP status carried by err to an ErrorKind.
func ClassifyProviderError(err error) ErrorKind {
	status := usersbox.StatusCode(err)
	switch {
	case status == http.StatusBadRequest:
		return ErrorBadRequest
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return ErrorAuth
	case status == http.StatusTooManyRequests:
		return ErrorRateLimit
	case status >= http.StatusInternalServerError:
		return ErrorServer
	}
	return ErrorGeneric
}

func SearchError(err error) string {
	var b strings.Builder
	b.WriteString("❌ Ошибка при поиске.")

	switch ClassifyProviderError(err) {
	case ErrorBadRequest:
		b.WriteString("\n\n💡 Попробуйте другой формат запроса:\n")
		b.WriteString("• Телефон: `+79123456789` (без пробелов)\n")
		b.WriteString("• Email: `user@domain.com`\n")
		b.WriteString("• Имя: `Иван Петров`")
	case ErrorAuth:
		b.WriteString("\n\n🔑 Проблема с авторизацией API")
	case ErrorRateLimit:
		b.WriteString("\n\n⏱️ Превышен лимит запросов. Попробуйте позже.")
	case ErrorServer:
		b.WriteString("\n\n⚠️ Проблема на сервере API. Попробуйте позже.")
	default:
		b.WriteString("\n\nПопробуйте позже.")
	}
	return b.String()
}

// Sources lists the ten largest provider sources.
func Sources(data usersbox.SourcesData) string {
	items := make([]usersbox.Source, len(data.Items))
	copy(items, data.Items)
	sort.SliceStable(items, func(i, j int) bool { return items[i].Count > items[j].Count })

	var b strings.Builder
	fmt.Fprintf(&b, "📊 *Доступно баз данных: %d*\n\n", data.Count)
	b.WriteString("*Топ-10 крупнейших баз:*\n\n")

	for i, item := range items {
		if i == 10 {
			break
		}
		fmt.Fprintf(&b, "%d. *%s*\n", i+1, escapeMarkdown(orUnknown(item.Title)))
		fmt.Fprintf(&b, "   📁 `%s/%s`\n", item.Database, item.Collection)
		b.WriteString(numbers.Sprintf("   📊 Записей: %d\n\n", item.Count))
	}

	b.WriteString("💡 Используйте `/search <запрос>` для поиска по всем базам")
	return b.String()
}

func Balance(info usersbox.AppInfo) string {
	status := "❌ Статус: Неактивно"
	if info.IsActive {
		status = "✅ Статус: Активно"
	}

	return fmt.Sprintf(`💰 *Информация о балансе*

🏷️ Приложение: `+"`%s`"+`
%s
💳 Баланс: *%s ₽*

📊 *Тарифы:*
• Поиск по базе: 0.005 ₽ за документ
• Поиск по всем базам: 2.5 ₽
• Проверка количества: Бесплатно`, orUnknown(info.Title), status, info.Balance.StringFixed(2))
}

func Profile(user *models.User, referrals int64) string {
	name := user.DisplayName
	if user.Username != "" {
		name = "@" + user.Username
	}
	if name == "" {
		name = "—"
	}

	return fmt.Sprintf("👤 *Ваш профиль*\n\n"+
		"🔹 ID: `%d`\n"+
		"🔹 Имя: %s\n"+
		"💎 Осталось попыток: *%d*\n"+
		"🔍 Всего поисков: %d\n"+
		"🤝 Приглашено друзей: %d\n"+
		"🔗 Реферальный код: `%s`\n"+
		"📅 С нами с: %s",
		user.UserID, escapeMarkdown(name), user.FreeAttempts, user.TotalSearches,
		referrals, user.ReferralCode, user.CreatedAt.Format("02.01.2006"))
}

// Referral shows the invite link. link may be empty when the bot username is unknown.
func Referral(user *models.User, link string, referrals int64) string {
	var b strings.Builder
	b.WriteString("🤝 *Реферальная программа*\n\n")
	b.WriteString("Приглашайте друзей и получайте +1 попытку поиска за каждого!\n\n")
	fmt.Fprintf(&b, "👥 Приглашено: %d\n", referrals)
	fmt.Fprintf(&b, "💎 Получено попыток: %d\n\n", user.TotalReferrals)
	fmt.Fprintf(&b, "🔗 *Ваш код:* `%s`\n", user.ReferralCode)
	if link != "" {
		fmt.Fprintf(&b, "📎 *Ссылка:* %s\n", escapeMarkdown(link))
	}
	fmt.Fprintf(&b, "\nДруг может отправить боту `/invite %s`", user.ReferralCode)
	return b.String()
}

func ReferralApplied(attemptsLeft int) string {
	return fmt.Sprintf("✅ Реферальный код применен! У вас %d попыток поиска.", attemptsLeft)
}

func ReferrerCredited(attemptsLeft int) string {
	return fmt.Sprintf("🎉 По вашему коду зарегистрировался друг! Вам начислена +1 попытка.\n💎 Доступно попыток: %d", attemptsLeft)
}

var markdownEscaper = strings.NewReplacer("_", "\\_", "*", "\\*", "`", "\\`", "[", "\\[")

// escapeMarkdown protects user-controlled text in legacy Markdown mode.
func escapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}
