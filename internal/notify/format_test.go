package notify

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/go-telegram/bot/models"
)

func TestFormatTaskAssignedAssistantURL(t *testing.T) {
	t.Parallel()

	payload := Payload{TaskID: 1, Title: "Ship release"}
	tests := []struct {
		name       string
		url        string
		wantButton bool
		wantText   []string
		notText    []string
	}{
		{
			name:       "public https",
			url:        "https://assistant.example.com/ai",
			wantButton: true,
			wantText:   []string{"tap Ask AI"},
			notText:    []string{"https://assistant.example.com/ai", "AI (open in browser)"},
		},
		{
			name:     "plain http",
			url:      "http://example.com/ai",
			wantText: []string{"AI (open in browser): http://example.com/ai", "email Admin: admin@example.com"},
		},
		{
			name:     "loopback",
			url:      "https://localhost/ai",
			wantText: []string{"AI (open in browser): https://localhost/ai", "email Admin: admin@example.com"},
		},
		{
			name:     "absent",
			wantText: []string{"email Admin: admin@example.com"},
			notText:  []string{"AI (open in browser)", "Ask AI"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			text, markup := FormatTaskAssigned(payload, "admin@example.com", tt.url)

			for _, want := range tt.wantText {
				if !strings.Contains(text, want) {
					t.Errorf("text missing %q:\n%s", want, text)
				}
			}
			for _, not := range tt.notText {
				if strings.Contains(text, not) {
					t.Errorf("text unexpectedly contains %q:\n%s", not, text)
				}
			}

			kb, ok := markup.(*models.InlineKeyboardMarkup)
			if ok != tt.wantButton {
				t.Fatalf("inline keyboard present = %v, want %v", ok, tt.wantButton)
			}
			if ok && kb.InlineKeyboard[0][0].URL != tt.url {
				t.Errorf("button URL = %q, want %q", kb.InlineKeyboard[0][0].URL, tt.url)
			}
		})
	}
}

func TestFormatTaskAssignedDescriptionTruncation(t *testing.T) {
	t.Parallel()

	long := strings.Repeat("é", MaxDescriptionRunes+37)
	text, _ := FormatTaskAssigned(Payload{Title: "t", Description: long}, "", "")
	details := detailsLine(t, text)
	if n := utf8.RuneCountInString(details); n != MaxDescriptionRunes {
		t.Errorf("description has %d runes, want %d", n, MaxDescriptionRunes)
	}

	short := "Check the  spacing, verbatim."
	text, _ = FormatTaskAssigned(Payload{Title: "t", Description: short}, "", "")
	if got := detailsLine(t, text); got != short {
		t.Errorf("description = %q, want %q", got, short)
	}
}

func detailsLine(t *testing.T, text string) string {
	t.Helper()
	for _, line := range strings.Split(text, "\n") {
		if rest, ok := strings.CutPrefix(line, "Details: "); ok {
			return rest
		}
	}
	t.Fatalf("no Details line in:\n%s", text)
	return ""
}

func TestPriorityIndicator(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"low":      "🟢 Low",
		"Medium":   "🟡 Medium",
		" HIGH ":   "🔴 High",
		"critical": "🟡 Medium",
	}
	for in, want := range tests {
		if got := PriorityIndicator(in); got != want {
			t.Errorf("PriorityIndicator(%q) = %q, want %q", in, got, want)
		}
	}

	text, _ := FormatTaskAssigned(Payload{Title: "t", Priority: "critical"}, "", "")
	if !strings.Contains(text, "Priority: 🟡 Medium") {
		t.Errorf("unknown priority not rendered as medium:\n%s", text)
	}
	text, _ = FormatTaskAssigned(Payload{Title: "t"}, "", "")
	if strings.Contains(text, "Priority:") {
		t.Errorf("empty priority rendered:\n%s", text)
	}
}

func TestFormatTaskAssignedFullBody(t *testing.T) {
	t.Parallel()

	start := &Timestamp{time.Date(2025, 3, 4, 9, 5, 6, 0, time.UTC)}
	due := &Timestamp{time.Date(2025, 3, 9, 18, 0, 0, 0, time.FixedZone("BRT", -3*3600))}
	p := Payload{
		TaskID:      9,
		Title:       "Prepare audit",
		Priority:    "high",
		StartDate:   start,
		DueDate:     due,
		ProjectName: "Compliance",
		Link:        "https://tasks.example.com/t/9",
		AICommunication: &AICommunication{
			Active:    true,
			Frequency: "weekly",
			Days:      []string{"Mon", "Thu"},
			Prompt:    "Ask about blockers",
		},
	}

	text, _ := FormatTaskAssigned(p, "admin@example.com", "")
	want := strings.Join([]string{
		"🆕 Task Assigned",
		"Project: Compliance",
		"Title: Prepare audit",
		"Priority: 🔴 High",
		"Start: 04/03/2025, 09:05:06",
		"Due: 09/03/2025, 21:00:00",
		"Link: https://tasks.example.com/t/9",
		"AI follow-up: weekly (Mon, Thu): Ask about blockers",
		"",
		"If you have questions, email Admin: admin@example.com",
	}, "\n")
	if text != want {
		t.Errorf("body mismatch\n got:\n%s\nwant:\n%s", text, want)
	}

	p.AICommunication.Active = false
	p.ProjectName = ""
	text, _ = FormatTaskAssigned(p, "", "")
	if strings.Contains(text, "AI follow-up") {
		t.Error("inactive AI communication rendered")
	}
	if !strings.Contains(text, "Project: -") || !strings.Contains(text, "contact your admin") {
		t.Errorf("defaults not rendered:\n%s", text)
	}
}

func TestPayloadJSON(t *testing.T) {
	t.Parallel()

	var p Payload
	err := json.Unmarshal([]byte(`{
		"id": 12,
		"title": "Review",
		"startDate": "2025-01-02",
		"endDate": "2025-01-05T10:00:00Z",
		"aiCommunication": {"active": true, "frequency": "daily"}
	}`), &p)
	if err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if p.TaskID != 12 || p.Title != "Review" {
		t.Errorf("payload = %+v", p)
	}
	if p.StartDate == nil || p.StartDate.Format(time.DateOnly) != "2025-01-02" {
		t.Errorf("start date = %v", p.StartDate)
	}
	if p.DueDate == nil || p.DueDate.Hour() != 10 {
		t.Errorf("endDate not used as due date: %v", p.DueDate)
	}
	if p.AICommunication == nil || !p.AICommunication.Active {
		t.Error("aiCommunication not decoded")
	}

	if err := json.Unmarshal([]byte(`{"title":"x","dueDate":"next week"}`), &Payload{}); err == nil {
		t.Error("invalid date accepted")
	}
}

func TestChatIDJSON(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		`123456789`:      "123456789",
		`-1001234567890`: "-1001234567890",
		`" 42 "`:         "42",
		`null`:           "",
		`""`:             "",
	}
	for in, want := range tests {
		var c ChatID
		if err := json.Unmarshal([]byte(in), &c); err != nil {
			t.Fatalf("Unmarshal(%s) error = %v", in, err)
		}
		if got := c.Normalized(); got != want {
			t.Errorf("Unmarshal(%s) = %q, want %q", in, got, want)
		}
	}

	var c ChatID
	if err := json.Unmarshal([]byte(`true`), &c); err == nil {
		t.Error("boolean chat id accepted")
	}
}
