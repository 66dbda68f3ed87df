package ui

import (
	"fmt"
	"strings"
	"time"

	"finsense/internal/styles"

	"github.com/mattn/go-runewidth"
)

func WrappedLineCount(value string, width int) int {
	if width <= 0 {
		return 1
	}
	lines := strings.Split(value, "\n")
	if len(lines) == 0 {
		return 1
	}
	count := 0
	for _, line := range lines {
		w := runewidth.StringWidth(line)
		if w == 0 {
			count++
			continue
		}
		count += (w-1)/width + 1
	}
	return count
}

func PromptPreview(s string) string {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, "\r", " ")
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.Join(strings.Fields(s), " ")
	const maxRunes = 500
	r := []rune(s)
	if len(r) > maxRunes {
		return string(r[:maxRunes])
	}
	return s
}

func TruncateRunes(s string, max int) string {
	if max <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	if max <= 1 {
		return "…"
	}
	return string(r[:max-1]) + "…"
}

// SessionSuffix shortens a backend session id for display. UUIDs keep their
// last group; anything else keeps the last 8 runes.
func SessionSuffix(id string) string {
	if idx := strings.LastIndex(id, "-"); idx != -1 && idx+1 < len(id) {
		return id[idx+1:]
	}
	r := []rune(id)
	if len(r) <= 8 {
		return id
	}
	return string(r[len(r)-8:])
}

func RelativeTime(t time.Time) string {
	d := time.Since(t)
	if d < 0 {
		d = -d
	}
	if d < time.Minute {
		return "just now"
	}
	if d < time.Hour {
		mins := int(d.Minutes())
		if mins == 1 {
			return "1 min ago"
		}
		return fmt.Sprintf("%d mins ago", mins)
	}
	if d < 24*time.Hour {
		hrs := int(d.Hours())
		if hrs == 1 {
			return "1 hr ago"
		}
		return fmt.Sprintf("%d hrs ago", hrs)
	}
	days := int(d.Hours() / 24)
	if days < 14 {
		if days == 1 {
			return "1 day ago"
		}
		return fmt.Sprintf("%d days ago", days)
	}
	weeks := days / 7
	if weeks == 1 {
		return "1 week ago"
	}
	return fmt.Sprintf("%d weeks ago", weeks)
}

func FormatUserMessage(content string, width int, isFirst bool) string {
	label := styles.UserLabelStyle.Render("YOU")
	msg := styles.UserMsgStyle.Width(width - 4).Render(content)
	if isFirst {
		return fmt.Sprintf("\n%s\n%s", label, msg)
	}
	return fmt.Sprintf("%s\n%s", label, msg)
}

func FormatBotMessage(content string) string {
	label := styles.BotLabelStyle.Render("FINSENSE")
	msg := styles.BotMsgStyle.Render(content)
	return fmt.Sprintf("%s\n%s", label, msg)
}

// FormatBotContinuation renders a follow-on block of the same reply without
// repeating the label.
func FormatBotContinuation(content string) string {
	return styles.BotMsgStyle.Render(content)
}

// FormatBotPlain is for locally generated notices that should read like the
// assistant speaking (sign-in hints, guest switches, fallback welcome).
func FormatBotPlain(content string) string {
	label := styles.BotLabelStyle.Render("FINSENSE")
	msg := styles.BotMsgStyle.Render(content)
	return fmt.Sprintf("%s\n%s", label, msg)
}

func FormatResearchSection(content string) string {
	return styles.ResultSectionStyle.Render(strings.TrimSpace(content))
}
