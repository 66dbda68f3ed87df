package ui

import (
	"fmt"
	"strings"
	"time"

	"finsense/internal/styles"

	"github.com/charmbracelet/lipgloss"
)

func (m *Model) RenderHistorySelector() string {
	totalPages := (m.HistorySessionCount + HistoryPageSize - 1) / HistoryPageSize
	if totalPages < 1 {
		totalPages = 1
	}
	title := styles.ModalTitleStyle.Render("Past Conversations")
	header := styles.ModalHeaderStyle.Render(fmt.Sprintf("%d saved - page %d/%d", m.HistorySessionCount, m.HistoryPage+1, totalPages))

	var body string
	if m.HistoryErr != nil {
		errLine := lipgloss.NewStyle().Width(styles.ContentWidth).Render(styles.ErrorStyle.Render(fmt.Sprintf("Error: %v", m.HistoryErr)))
		body = errLine
	} else if len(m.HistorySessions) == 0 {
		body = styles.ModalItemStyle.Render(lipgloss.NewStyle().Foreground(styles.HintColor).Render("No conversations yet"))
	} else {
		items := make([]string, 0, len(m.HistorySessions))
		for i, sess := range m.HistorySessions {
			isSelected := i == m.HistorySelectedIdx
			cursor := "  "
			if isSelected {
				cursor = "> "
			}
			timeStr := RelativeTime(time.Unix(sess.UpdatedAtUnix, 0))
			prompt := PromptPreview(sess.LastUserPrompt)
			if prompt == "" {
				prompt = "(no prompt)"
			}
			availableWidth := styles.ContentWidth - 2 - len(cursor) - 1 - len(timeStr)
			prompt = TruncateRunes(prompt, availableWidth)

			itemContent := fmt.Sprintf("%s%s %s", cursor, prompt, lipgloss.NewStyle().Foreground(styles.HintColor).Render(timeStr))
			if isSelected {
				items = append(items, styles.ModalSelectedStyle.Render(itemContent))
			} else {
				items = append(items, styles.ModalItemStyle.Render(itemContent))
			}
		}
		body = lipgloss.JoinVertical(lipgloss.Left, items...)
	}

	content := lipgloss.JoinVertical(lipgloss.Left, title, header, body)
	hint := lipgloss.NewStyle().
		Foreground(styles.HintColor).
		Width(styles.ContentWidth).
		PaddingTop(1).
		Render("↑/↓: navigate • ←/→: page • Enter: open • Esc: close")

	return lipgloss.JoinVertical(lipgloss.Left, content, hint)
}

func (m *Model) RenderShortcutsModal() string {
	title := styles.ModalTitleStyle.Render("Keyboard Shortcuts")

	shortcuts := []struct {
		key  string
		desc string
	}{
		{"Ctrl+C", "Quit Application"},
		{"Ctrl+N", "New Conversation"},
		{"Ctrl+H", "View Past Conversations"},
		{"Ctrl+L", "Sign In (device flow)"},
		{"Ctrl+G", "Continue as Guest"},
		{"Ctrl+S", "View Shortcuts (this menu)"},
	}

	var items []string
	keyStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#FFCC80")).
		Bold(true).
		Width(12)

	descStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#E0E0E0"))

	for _, s := range shortcuts {
		line := fmt.Sprintf("%s %s", keyStyle.Render(s.key), descStyle.Render(s.desc))
		items = append(items, styles.ModalItemStyle.Render(line))
	}

	listContent := lipgloss.JoinVertical(lipgloss.Left, items...)
	content := lipgloss.JoinVertical(lipgloss.Left, title, listContent)

	hint := lipgloss.NewStyle().
		Foreground(styles.HintColor).
		Width(styles.ContentWidth).
		PaddingTop(1).
		Render("Esc/Enter: close")

	return lipgloss.JoinVertical(lipgloss.Left, content, hint)
}

func (m *Model) RenderBottomBar() string {
	// 1. Auth mode badge (left)
	mode := string(m.Gate.Mode())
	badge := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#FFFFFF")).
		Background(styles.GetAuthModeColor(mode)).
		Padding(0, 1).
		Render(strings.ToUpper(mode))

	// 2. Who is signed in
	who := m.UserLabel
	if who == "" {
		who = "anonymous"
	}
	user := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#888888")).
		Render(TruncateRunes(who, 30))

	// 3. Conversation state as reported by the backend
	state := m.Client.State()
	if state == "" {
		state = "idle"
	}
	stateTag := styles.StateTagStyle.
		Foreground(lipgloss.Color("#B39DDB")).
		Render(state)

	// 4. Session id suffix
	session := "no session"
	if id := m.Client.SessionID(); id != "" {
		session = "session " + SessionSuffix(id)
	}
	sessionTag := styles.SessionTagStyle.Render(session)

	// 5. Help hint (far right)
	help := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#555555")).
		Render("Help: ^S")

	leftSide := lipgloss.JoinHorizontal(lipgloss.Center, badge, "  ", user)
	rightSide := lipgloss.JoinHorizontal(lipgloss.Center, stateTag, "  ", sessionTag, "  ", help)

	availableWidth := m.WindowWidth - lipgloss.Width(leftSide) - lipgloss.Width(rightSide) - 2
	if availableWidth < 0 {
		availableWidth = 0
	}
	spacer := strings.Repeat(" ", availableWidth)

	bar := lipgloss.JoinHorizontal(lipgloss.Center, leftSide, spacer, rightSide)

	return lipgloss.NewStyle().
		Width(m.WindowWidth).
		BorderTop(true).
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("#333333")).
		Padding(0, 1).
		Render(bar)
}

func (m *Model) RenderLoginPrompt() string {
	if m.LoginPrompt == nil {
		return ""
	}

	codeStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#FFFFFF")).
		Background(lipgloss.Color("#7C4DFF")).
		Bold(true).
		Padding(0, 1)

	labelStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#888888"))

	line := labelStyle.Render("Visit ") +
		lipgloss.NewStyle().Underline(true).Render(m.LoginPrompt.VerificationURI) +
		labelStyle.Render(" and enter code ") +
		codeStyle.Render(m.LoginPrompt.UserCode)

	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#7C4DFF")).
		Padding(0, 1)

	return boxStyle.Render(line + "\n" + labelStyle.Render("Waiting for sign-in... Ctrl+G to continue as guest instead"))
}

func GetWelcomeScreen(width, height int) string {
	art := `
 ╭─────────────────────────────────────────────────────────╮
 │                                                         │
 │   █████▒ ██▓ ███▄    █   ██████ ▓█████  ███▄    █       │
 │  ▓██   ▒ ▓██▒ ██ ▀█   █ ▒██    ▒ ▓█   ▀  ██ ▀█   █      │
 │  ▒████ ░ ▒██▒▓██  ▀█ ██▒░ ▓██▄   ▒███   ▓██  ▀█ ██▒     │
 │  ░▓█▒  ░ ░██░▓██▒  ▐▌██▒  ▒   ██▒▒▓█  ▄ ▓██▒  ▐▌██▒     │
 │  ░▒█░    ░██░▒██░   ▓██░▒██████▒▒░▒████▒▒██░   ▓██░     │
 │   ▒ ░    ░▓  ░ ▒░   ▒ ▒ ▒ ▒▓▒ ▒ ░░░ ▒░ ░░ ▒░   ▒ ▒      │
 │   ░       ▒ ░░ ░░   ░ ▒░░ ░▒  ░ ░ ░ ░  ░░ ░░   ░ ▒░     │
 │   ░ ░     ▒ ░   ░   ░ ░ ░  ░  ░     ░      ░   ░ ░      │
 │           ░           ░       ░     ░  ░         ░      │
 │                                                         │
 ╰─────────────────────────────────────────────────────────╯
`
	subtitle := "Research-grade stock analysis, one conversation at a time."

	styledArt := styles.WelcomeArtStyle.Render(art)
	styledSubtitle := styles.WelcomeSubtitleStyle.Italic(true).Render(subtitle)

	content := lipgloss.JoinVertical(lipgloss.Center, styledArt, "", styledSubtitle)

	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, content)
}

func (m *Model) UpdateViewport() {
	if len(m.Messages) == 0 && !m.Pending {
		m.Viewport.SetContent(GetWelcomeScreen(m.Viewport.Width, m.Viewport.Height))
		return
	}

	content := strings.Join(m.Messages, "\n\n")
	if m.Pending {
		statusLine := fmt.Sprintf("%s%s", m.Spinner.View(), styles.InfoStyle(" Thinking..."))
		if m.Researching && m.ProgressLabel != "" {
			statusLine = fmt.Sprintf("%s %s",
				styles.ProgressIconStyle.Render(m.Spinner.View()),
				styles.ProgressStyle.Render(m.ProgressLabel+"..."))
		}

		var loadingParts []string
		loadingParts = append(loadingParts, styles.BotLabelStyle.Render("FINSENSE"))
		loadingParts = append(loadingParts, statusLine)

		loadingMsg := strings.Join(loadingParts, "\n")
		if len(m.Messages) > 0 {
			content = content + "\n\n" + loadingMsg
		} else {
			content = loadingMsg
		}
	}
	m.Viewport.SetContent(content)
	m.Viewport.GotoBottom()
}

func (m *Model) View() string {
	loginPrompt := m.RenderLoginPrompt()

	inputWidth := m.WindowWidth - 4
	inputBox := styles.InputBoxStyle.Width(inputWidth).Render(m.TextInput.View())

	var inputParts []string
	if loginPrompt != "" {
		inputParts = append(inputParts, loginPrompt)
	}
	inputParts = append(inputParts, inputBox)
	inputSection := lipgloss.JoinVertical(lipgloss.Left, inputParts...)

	chatContent := lipgloss.JoinVertical(lipgloss.Center,
		styles.TitleStyle.Render("FINSENSE"),
		"",
		m.Viewport.View(),
		"",
		inputSection,
	)
	chatArea := lipgloss.PlaceHorizontal(m.WindowWidth, lipgloss.Center, chatContent)
	bottomBar := m.RenderBottomBar()

	content := lipgloss.JoinVertical(lipgloss.Left, chatArea, bottomBar)

	if m.HistoryOpen {
		modal := m.RenderHistorySelector()
		modal = styles.ModalStyle.Width(ModalWidth).Render(modal)

		return lipgloss.NewStyle().
			Background(lipgloss.Color("rgba(0,0,0,0.7)")).
			Render(lipgloss.Place(
				m.WindowWidth,
				m.WindowHeight,
				lipgloss.Center,
				lipgloss.Center,
				modal,
			))
	}

	if m.ShortcutsOpen {
		modal := m.RenderShortcutsModal()
		modal = styles.ModalStyle.Width(ModalWidth).Render(modal)

		return lipgloss.NewStyle().
			Background(lipgloss.Color("rgba(0,0,0,0.7)")).
			Render(lipgloss.Place(
				m.WindowWidth,
				m.WindowHeight,
				lipgloss.Center,
				lipgloss.Center,
				modal,
			))
	}

	return content
}
