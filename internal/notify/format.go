package notify

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-telegram/bot/models"

	"github.com/edgard/taskbridge/internal/telegram"
)

const (
	// MaxDescriptionRunes caps the task description in the message body.
	MaxDescriptionRunes = 500

	// DateLayout renders dates the same way regardless of server locale.
	DateLayout = "02/01/2006, 15:04:05"

	askAIButtonText = "🤖 Ask AI"
)

var priorityIndicators = map[string]string{
	"low":    "🟢 Low",
	"medium": "🟡 Medium",
	"high":   "🔴 High",
}

// PriorityIndicator maps a priority to its visual indicator. Unrecognised
// values render as medium.
func PriorityIndicator(priority string) string {
	if indicator, ok := priorityIndicators[strings.ToLower(strings.TrimSpace(priority))]; ok {
		return indicator
	}
	return priorityIndicators["medium"]
}

// FormatTaskAssigned renders the message body for payload and, when
// assistantURL is a public https URL, an inline keyboard with an Ask AI
// button. Otherwise markup is nil and the URL, if any, is appended as text.
func FormatTaskAssigned(p Payload, adminContact, assistantURL string) (string, models.ReplyMarkup) {
	assistantURL = strings.TrimSpace(assistantURL)
	buttonAllowed := telegram.IsPublicHTTPSURL(assistantURL)

	project := strings.TrimSpace(p.ProjectName)
	if project == "" {
		project = "-"
	}

	lines := []string{
		"🆕 Task Assigned",
		"Project: " + project,
		"Title: " + p.Title,
	}
	if strings.TrimSpace(p.Description) != "" {
		lines = append(lines, "Details: "+truncateRunes(p.Description, MaxDescriptionRunes))
	}
	if strings.TrimSpace(p.Priority) != "" {
		lines = append(lines, "Priority: "+PriorityIndicator(p.Priority))
	}
	if p.StartDate != nil && !p.StartDate.IsZero() {
		lines = append(lines, "Start: "+formatDate(p.StartDate.Time))
	}
	if p.DueDate != nil && !p.DueDate.IsZero() {
		lines = append(lines, "Due: "+formatDate(p.DueDate.Time))
	}
	if link := strings.TrimSpace(p.Link); link != "" {
		lines = append(lines, "Link: "+link)
	}
	if line := aiCommunicationLine(p.AICommunication); line != "" {
		lines = append(lines, line)
	}

	lines = append(lines, "")
	switch {
	case buttonAllowed:
		lines = append(lines, "If you have questions, tap Ask AI or email Admin.")
	case assistantURL != "":
		lines = append(lines, adminLine(adminContact), "AI (open in browser): "+assistantURL)
	default:
		lines = append(lines, adminLine(adminContact))
	}

	text := strings.Join(lines, "\n")
	if !buttonAllowed {
		return text, nil
	}

	return text, &models.InlineKeyboardMarkup{
		InlineKeyboard: [][]models.InlineKeyboardButton{
			{{Text: askAIButtonText, URL: assistantURL}},
		},
	}
}

func adminLine(adminContact string) string {
	adminContact = strings.TrimSpace(adminContact)
	if adminContact == "" {
		return "If you have questions, contact your admin."
	}
	return "If you have questions, email Admin: " + adminContact
}

func aiCommunicationLine(ai *AICommunication) string {
	if ai == nil || !ai.Active {
		return ""
	}

	var b strings.Builder
	b.WriteString("AI follow-up: ")
	if f := strings.TrimSpace(ai.Frequency); f != "" {
		b.WriteString(f)
	} else {
		b.WriteString("enabled")
	}
	if len(ai.Days) > 0 {
		b.WriteString(" (" + strings.Join(ai.Days, ", ") + ")")
	}
	if prompt := strings.TrimSpace(ai.Prompt); prompt != "" {
		b.WriteString(": " + truncateRunes(prompt, 200))
	}
	return b.String()
}

func formatDate(t time.Time) string {
	return t.UTC().Format(DateLayout)
}

// truncateRunes cuts s to at most n runes without splitting a character.
func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}
