package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"finsense/internal/auth"
	"finsense/internal/config"
	"finsense/internal/db"
	"finsense/internal/models"
	"finsense/internal/render"
	"finsense/internal/styles"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var (
		tiCmd tea.Cmd
		vpCmd tea.Cmd
		spCmd tea.Cmd
	)

	switch msg := msg.(type) {
	case spinner.TickMsg:
		m.Spinner, spCmd = m.Spinner.Update(msg)
		if m.Pending {
			m.UpdateViewport()
		}
		return m, spCmd

	case tea.KeyMsg:
		if m.HistoryOpen {
			switch msg.String() {
			case "ctrl+c":
				return m, tea.Quit
			case "esc", "ctrl+h":
				m.HistoryOpen = false
				m.HistoryErr = nil
				return m, nil
			case "up", "k":
				if len(m.HistorySessions) == 0 {
					return m, nil
				}
				m.HistorySelectedIdx--
				if m.HistorySelectedIdx < 0 {
					m.HistorySelectedIdx = len(m.HistorySessions) - 1
				}
				return m, nil
			case "down", "j":
				if len(m.HistorySessions) == 0 {
					return m, nil
				}
				m.HistorySelectedIdx++
				if m.HistorySelectedIdx >= len(m.HistorySessions) {
					m.HistorySelectedIdx = 0
				}
				return m, nil
			case "enter":
				if len(m.HistorySessions) == 0 {
					return m, nil
				}
				sess := m.HistorySessions[m.HistorySelectedIdx]
				if err := m.LoadSessionFromDB(sess.ID); err != nil {
					m.HistoryErr = err
					return m, nil
				}
				m.HistoryOpen = false
				m.HistoryErr = nil
				return m, nil
			case "left", "h":
				if m.HistoryPage > 0 {
					m.HistoryPage--
					m.RefreshHistoryFromDB()
				}
				return m, nil
			case "right", "l":
				totalPages := (m.HistorySessionCount + HistoryPageSize - 1) / HistoryPageSize
				if m.HistoryPage < totalPages-1 {
					m.HistoryPage++
					m.RefreshHistoryFromDB()
				}
				return m, nil
			}
			return m, nil
		}

		if m.ShortcutsOpen {
			switch msg.String() {
			case "ctrl+c":
				return m, tea.Quit
			case "esc", "enter", "?", "ctrl+s":
				m.ShortcutsOpen = false
				return m, nil
			}
			return m, nil
		}

		if isNewlineShortcut(msg) {
			m.TextInput.InsertString("\n")
			m.updateInputLayout()
			return m, nil
		}

		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit

		case tea.KeyCtrlN:
			return m, m.ResetSession()

		case tea.KeyCtrlS:
			m.ShortcutsOpen = true
			m.HistoryOpen = false
			return m, nil

		case tea.KeyCtrlH:
			m.HistoryOpen = true
			m.ShortcutsOpen = false
			m.HistoryPage = 0
			m.RefreshHistoryFromDB()
			return m, nil

		case tea.KeyCtrlL:
			return m, m.startLogin()

		case tea.KeyCtrlG:
			return m, m.switchToGuest()

		case tea.KeyEnter:
			if m.Pending || m.LoginPending {
				return m, nil
			}
			if !m.Gate.Enabled() {
				return m, nil
			}
			input := strings.TrimSpace(m.TextInput.Value())
			if input == "" {
				return m, nil
			}

			if input == "/clear" || input == "/reset" {
				return m, m.ResetSession()
			}

			m.Messages = append(m.Messages, FormatUserMessage(input, m.Viewport.Width, len(m.Messages) == 0))
			if err := m.PersistUserMessage(input); err != nil {
				m.Messages = append(m.Messages, styles.ErrorStyle.Render(fmt.Sprintf("History error: %v", err)))
			}
			m.TextInput.Reset()
			m.updateInputLayout()
			m.Pending = true
			m.UpdateViewport()

			return m, tea.Batch(m.sendCmd(input), m.Spinner.Tick)
		}

	case ChatReplyMsg:
		if err := m.PersistBotMessage(msg.Resp.BotMessage); err != nil {
			m.Messages = append(m.Messages, styles.ErrorStyle.Render(fmt.Sprintf("History error: %v", err)))
		}
		var cmds []tea.Cmd
		if msg.FirstTurn && (m.Gate.Mode() == config.AuthSession || m.Gate.Mode() == config.AuthToken) {
			cmds = append(cmds, m.serverHistoryCmd())
		}
		cmds = append(cmds, m.enqueueReply(msg.Resp.BotMessage))
		if msg.Resp.State == models.StateReadyToResearch {
			cmds = append(cmds, m.startResearch()...)
		}
		m.UpdateViewport()
		return m, tea.Batch(cmds...)

	case ServerHistoryMsg:
		// Earlier turns from the backend replay instantly, ahead of any
		// blocks still waiting in the reveal queue.
		replay := make([]string, 0, len(msg.Messages))
		for _, h := range msg.Messages {
			switch h.Role {
			case models.RoleUser:
				replay = append(replay, FormatUserMessage(h.Message, m.Viewport.Width, false))
			case models.RoleBot:
				display := h.Message
				if m.Renderer != nil {
					if rendered, err := m.Renderer.Render(h.Message); err == nil {
						display = strings.TrimSpace(rendered)
					}
				}
				replay = append(replay, FormatBotMessage(display))
			}
		}
		m.Messages = append(replay, m.Messages...)
		m.UpdateViewport()
		return m, nil

	case StatusMsg:
		// The client already stored the refreshed state; redraw the bar.
		m.UpdateViewport()
		return m, nil

	case ChatErrMsg:
		m.Pending = false
		m.Err = msg.Err
		if msg.FirstTurn {
			// The opening call is decorative; degrade to a canned welcome
			// instead of greeting the user with an error.
			m.Messages = append(m.Messages, FormatBotPlain(FallbackWelcome))
		} else {
			m.Messages = append(m.Messages, styles.ErrorStyle.Render(fmt.Sprintf("Error: %v", msg.Err)))
		}
		m.UpdateViewport()
		return m, nil

	case ResearchDoneMsg:
		if msg.ID != m.ProgressID {
			return m, nil
		}
		results := msg.Results
		m.pendingResults = &results
		if m.scriptDone {
			return m, m.beginOutro()
		}
		return m, nil

	case ResearchErrMsg:
		if msg.ID != m.ProgressID {
			return m, nil
		}
		m.Researching = false
		m.ProgressID = ""
		m.ProgressLabel = ""
		m.scriptDone = false
		m.Err = msg.Err
		m.Messages = append(m.Messages, styles.ErrorStyle.Render(fmt.Sprintf("Research failed: %v", msg.Err)))
		if !m.revealing {
			m.Pending = false
		}
		m.UpdateViewport()
		return m, nil

	case ProgressStepMsg:
		return m, m.advanceProgress(msg)

	case RevealMsg:
		return m, m.revealNext(msg.Seq)

	case LoginPromptMsg:
		p := msg.Prompt
		m.LoginPrompt = &p
		return m, nil

	case LoginDoneMsg:
		m.LoginPending = false
		m.LoginPrompt = nil
		if msg.Err != nil {
			m.Messages = append(m.Messages, styles.ErrorStyle.Render(auth.LoginFailureMessage(msg.Err)))
			m.UpdateViewport()
			return m, nil
		}
		m.UserLabel = userLabel(m.Gate)
		who := m.UserLabel
		if who == "" {
			who = "your account"
		}
		m.Messages = append(m.Messages, FormatBotPlain(fmt.Sprintf("Signed in as %s.", who)))
		m.Pending = true
		m.UpdateViewport()
		return m, tea.Batch(m.welcomeCmd(), m.Spinner.Tick)

	case ErrMsg:
		m.Pending = false
		m.Err = msg
		m.Messages = append(m.Messages, styles.ErrorStyle.Render(fmt.Sprintf("Error: %v", msg)))
		m.UpdateViewport()
		return m, nil

	case tea.WindowSizeMsg:
		m.WindowWidth = msg.Width
		m.WindowHeight = msg.Height

		ModalWidth = msg.Width - 10
		if ModalWidth > 60 {
			ModalWidth = 60
		}
		if ModalWidth < 30 {
			ModalWidth = 30
		}
		styles.ContentWidth = ModalWidth - 6

		chatWidth := msg.Width - 2
		m.Viewport.Width = chatWidth - 2

		m.updateInputLayout()
		glamourStyle := "dark"
		if !lipgloss.HasDarkBackground() {
			glamourStyle = "light"
		}
		m.Renderer, _ = glamour.NewTermRenderer(
			glamour.WithStylePath(glamourStyle),
			glamour.WithWordWrap(chatWidth-6),
		)
		m.UpdateViewport()
		return m, tea.Batch(tiCmd, vpCmd)
	}

	m.TextInput, tiCmd = m.TextInput.Update(msg)
	m.updateInputLayout()

	// Filter out terminal background color queries and cursor reference codes that leak into the input
	val := m.TextInput.Value()
	if strings.Contains(val, "]11;rgb:") || strings.Contains(val, "1;rgb:") || strings.Contains(val, "[1;1R") {
		m.TextInput.Reset()
	}

	m.Viewport, vpCmd = m.Viewport.Update(msg)

	return m, tea.Batch(tiCmd, vpCmd)
}

func isNewlineShortcut(msg tea.KeyMsg) bool {
	switch msg.String() {
	case "shift+enter", "shift+return", "ctrl+j", "ctrl+enter", "alt+enter":
		return true
	default:
		return false
	}
}

func (m *Model) updateInputLayout() {
	if m.WindowWidth == 0 || m.WindowHeight == 0 {
		return
	}

	inputWidth := m.WindowWidth - 6
	if inputWidth < 20 {
		inputWidth = 20
	}
	contentWidth := inputWidth - 2
	if contentWidth < 1 {
		contentWidth = 1
	}

	maxInputHeight := 6
	lineCount := WrappedLineCount(m.TextInput.Value(), contentWidth)
	if lineCount < 1 {
		lineCount = 1
	}
	if lineCount > maxInputHeight {
		lineCount = maxInputHeight
	}

	m.TextInput.MaxHeight = maxInputHeight
	m.TextInput.SetWidth(inputWidth)
	m.TextInput.SetHeight(lineCount)

	inputBoxHeight := m.TextInput.Height() + 2
	reserved := inputBoxHeight + 5
	viewportHeight := m.WindowHeight - reserved
	if viewportHeight < 5 {
		viewportHeight = 5
	}
	m.Viewport.Height = viewportHeight
}

// ResetSession drops both the local transcript and the backend session, then
// replays the opening call so the next conversation starts at the greeting.
func (m *Model) ResetSession() tea.Cmd {
	m.Messages = []string{}
	m.CurrentSessionID = 0
	m.HistoryOpen = false
	m.HistoryErr = nil
	m.Err = nil
	m.Researching = false
	m.ProgressID = ""
	m.ProgressLabel = ""
	m.scriptDone = false
	m.pendingResults = nil
	m.RevealQueue = nil
	m.revealing = false
	m.revealSeq++
	m.Client.Reset()
	m.Viewport.SetContent(GetWelcomeScreen(m.Viewport.Width, m.Viewport.Height))
	m.Viewport.GotoTop()
	m.TextInput.Reset()
	m.updateInputLayout()

	if _, err := m.Gate.Headers(); err != nil {
		m.Pending = false
		return nil
	}
	m.Pending = true
	return tea.Batch(m.welcomeCmd(), m.Spinner.Tick)
}

func (m *Model) RefreshHistoryFromDB() {
	m.HistoryErr = nil
	m.HistorySessions = nil
	m.HistorySelectedIdx = 0

	if m.DBErr != nil {
		m.HistoryErr = m.DBErr
		return
	}
	if m.DB == nil {
		m.HistoryErr = fmt.Errorf("history database not initialized")
		return
	}

	offset := m.HistoryPage * HistoryPageSize
	count, sessions, err := db.GetRecentSessions(m.DB, HistoryPageSize, offset)
	if err != nil {
		m.HistoryErr = err
		return
	}
	m.HistorySessionCount = count
	m.HistorySessions = sessions
}

func (m *Model) PersistUserMessage(content string) error {
	if m.DBErr != nil {
		return m.DBErr
	}
	if m.DB == nil {
		return fmt.Errorf("history database not initialized")
	}

	nowUnix := time.Now().Unix()
	if m.CurrentSessionID == 0 {
		id, err := db.CreateSession(m.DB, nowUnix, string(m.Gate.Mode()))
		if err != nil {
			return err
		}
		m.CurrentSessionID = id
	}

	if err := db.InsertMessage(m.DB, m.CurrentSessionID, models.RoleUser, content, nowUnix); err != nil {
		return err
	}
	return db.UpdateSessionOnUser(m.DB, m.CurrentSessionID, nowUnix, m.Client.SessionID(), PromptPreview(content))
}

func (m *Model) PersistBotMessage(content string) error {
	if m.CurrentSessionID == 0 {
		return nil
	}
	if m.DBErr != nil {
		return m.DBErr
	}
	if m.DB == nil {
		return fmt.Errorf("history database not initialized")
	}

	nowUnix := time.Now().Unix()
	if err := db.InsertMessage(m.DB, m.CurrentSessionID, models.RoleBot, content, nowUnix); err != nil {
		return err
	}
	return db.TouchSession(m.DB, m.CurrentSessionID, nowUnix)
}

// LoadSessionFromDB replays a stored transcript into the viewport. The
// backend session behind it is gone, so sending a message afterwards starts
// a fresh conversation.
func (m *Model) LoadSessionFromDB(sessionID int64) error {
	if m.DBErr != nil {
		return m.DBErr
	}
	if m.DB == nil {
		return fmt.Errorf("history database not initialized")
	}

	msgs, err := db.GetSessionMessages(m.DB, sessionID)
	if err != nil {
		return err
	}

	m.CurrentSessionID = sessionID
	m.Pending = false
	m.Researching = false
	m.ProgressID = ""
	m.ProgressLabel = ""
	m.RevealQueue = nil
	m.revealing = false
	m.revealSeq++
	m.Messages = []string{}
	m.Client.Reset()

	for _, msg := range msgs {
		switch msg.Role {
		case models.RoleUser:
			m.Messages = append(m.Messages, FormatUserMessage(msg.Content, m.Viewport.Width, len(m.Messages) == 0))
		case models.RoleBot:
			// Research reports are stored as their backend HTML; replay
			// them through the report renderer, not glamour.
			if strings.HasPrefix(strings.TrimSpace(msg.Content), "<") {
				for _, sec := range render.Sections(msg.Content) {
					if text := render.Text(sec); strings.TrimSpace(text) != "" {
						m.Messages = append(m.Messages, FormatResearchSection(text))
					}
				}
				continue
			}
			displayContent := msg.Content
			if m.Renderer != nil {
				rendered, _ := m.Renderer.Render(msg.Content)
				displayContent = strings.TrimSpace(rendered)
			}
			m.Messages = append(m.Messages, FormatBotMessage(displayContent))
		}
	}

	m.UpdateViewport()
	return nil
}

func (m *Model) welcomeCmd() tea.Cmd {
	return m.chatCmd("", true)
}

func (m *Model) sendCmd(input string) tea.Cmd {
	return m.chatCmd(input, false)
}

func (m *Model) chatCmd(message string, firstTurn bool) tea.Cmd {
	c := m.Client
	log := m.Log
	return func() tea.Msg {
		resp, err := c.Chat(context.Background(), message)
		if err != nil {
			return ChatErrMsg{Err: err, FirstTurn: firstTurn}
		}
		log.Debug("chat reply", zap.String("state", resp.State))
		return ChatReplyMsg{Resp: *resp, FirstTurn: firstTurn}
	}
}

// startResearch kicks off the backend call and the cosmetic progress script
// in parallel. Results are held until the script has played out, then
// revealed section by section.
func (m *Model) startResearch() []tea.Cmd {
	m.Researching = true
	m.ProgressID = uuid.NewString()
	m.ProgressLabel = researchScript[0].Label
	m.scriptDone = false
	m.pendingResults = nil

	c := m.Client
	id := m.ProgressID
	researchCall := func() tea.Msg {
		resp, err := c.Research(context.Background())
		if err != nil {
			return ResearchErrMsg{ID: id, Err: err}
		}
		return ResearchDoneMsg{ID: id, Results: *resp.Results}
	}

	return []tea.Cmd{
		researchCall,
		progressTick(id, 1, false, researchScript[1].Delay),
		m.Spinner.Tick,
	}
}

func progressTick(id string, index int, outro bool, delay time.Duration) tea.Cmd {
	return tea.Tick(delay, func(time.Time) tea.Msg {
		return ProgressStepMsg{ID: id, Index: index, Outro: outro}
	})
}

func (m *Model) advanceProgress(msg ProgressStepMsg) tea.Cmd {
	if msg.ID != m.ProgressID || !m.Researching {
		return nil
	}

	if !msg.Outro {
		if msg.Index < len(researchScript) {
			m.ProgressLabel = researchScript[msg.Index].Label
			m.UpdateViewport()
			if msg.Index+1 < len(researchScript) {
				return progressTick(msg.ID, msg.Index+1, false, researchScript[msg.Index+1].Delay)
			}
			// Script exhausted; wait for the backend if it is still running.
			m.scriptDone = true
			if m.pendingResults != nil {
				return m.beginOutro()
			}
			return nil
		}
		m.scriptDone = true
		if m.pendingResults != nil {
			return m.beginOutro()
		}
		return nil
	}

	if msg.Index < len(researchOutro) {
		m.ProgressLabel = researchOutro[msg.Index].Label
		m.UpdateViewport()
		if msg.Index+1 < len(researchOutro) {
			return progressTick(msg.ID, msg.Index+1, true, researchOutro[msg.Index+1].Delay)
		}
		return progressTick(msg.ID, len(researchOutro), true, researchOutro[msg.Index].Delay)
	}

	return m.finishResearch()
}

func (m *Model) beginOutro() tea.Cmd {
	m.ProgressLabel = researchOutro[0].Label
	m.UpdateViewport()
	if len(researchOutro) > 1 {
		return progressTick(m.ProgressID, 1, true, researchOutro[1].Delay)
	}
	return progressTick(m.ProgressID, 1, true, researchOutro[0].Delay)
}

func (m *Model) finishResearch() tea.Cmd {
	results := m.pendingResults
	m.Researching = false
	m.ProgressID = ""
	m.ProgressLabel = ""
	m.scriptDone = false
	m.pendingResults = nil

	if results == nil {
		m.Pending = false
		m.UpdateViewport()
		return nil
	}

	if err := m.PersistBotMessage(results.HTML); err != nil {
		m.Messages = append(m.Messages, styles.ErrorStyle.Render(fmt.Sprintf("History error: %v", err)))
	}

	sections := render.Sections(results.HTML)
	for _, sec := range sections {
		text := render.Text(sec)
		if strings.TrimSpace(text) == "" {
			continue
		}
		m.RevealQueue = append(m.RevealQueue, RevealItem{
			Text:  FormatResearchSection(text),
			Delay: SectionRevealDelay,
		})
	}

	// A report with nothing renderable must still release the input.
	if len(m.RevealQueue) == 0 && !m.revealing {
		m.Pending = false
		m.UpdateViewport()
		return m.statusCmd()
	}

	m.UpdateViewport()
	return tea.Batch(m.startReveal(), m.statusCmd())
}

// serverHistoryCmd fetches earlier turns of a resumed backend session.
// History is best-effort; a failed fetch drops silently.
func (m *Model) serverHistoryCmd() tea.Cmd {
	c := m.Client
	return func() tea.Msg {
		msgs, err := c.History(context.Background())
		if err != nil || len(msgs) == 0 {
			return nil
		}
		return ServerHistoryMsg{Messages: msgs}
	}
}

// statusCmd re-syncs the displayed conversation state after research settles.
func (m *Model) statusCmd() tea.Cmd {
	c := m.Client
	return func() tea.Msg {
		if _, err := c.Status(context.Background()); err != nil {
			return nil
		}
		return StatusMsg{}
	}
}

// enqueueReply splits a bot reply into blocks and queues them for paced
// reveal. Lists move faster than prose.
func (m *Model) enqueueReply(content string) tea.Cmd {
	blocks := render.Blocks(content)
	if len(blocks) == 0 {
		if !m.Researching && !m.revealing {
			m.Pending = false
		}
		return nil
	}

	for i, b := range blocks {
		display := b.Text
		if m.Renderer != nil {
			rendered, err := m.Renderer.Render(b.Text)
			if err == nil {
				display = strings.TrimSpace(rendered)
			}
		}
		delay := ParagraphRevealDelay
		if b.Kind == render.List {
			delay = ListRevealDelay
		}
		text := FormatBotContinuation(display)
		if i == 0 {
			delay = 0
			text = FormatBotMessage(display)
		}
		m.RevealQueue = append(m.RevealQueue, RevealItem{Text: text, Delay: delay})
	}

	return m.startReveal()
}

func (m *Model) startReveal() tea.Cmd {
	if m.revealing || len(m.RevealQueue) == 0 {
		return nil
	}
	m.revealing = true
	m.revealSeq++
	seq := m.revealSeq
	delay := m.RevealQueue[0].Delay
	if delay <= 0 {
		return func() tea.Msg { return RevealMsg{Seq: seq} }
	}
	return tea.Tick(delay, func(time.Time) tea.Msg {
		return RevealMsg{Seq: seq}
	})
}

// revealNext pops the queue head into the transcript and schedules the next
// pop. The queue is strictly FIFO: chat blocks queued before research
// sections always surface first.
func (m *Model) revealNext(seq int) tea.Cmd {
	// Stale ticks from before a reset carry an old sequence number.
	if seq != m.revealSeq {
		return nil
	}
	if len(m.RevealQueue) == 0 {
		m.revealing = false
		if !m.Researching {
			m.Pending = false
		}
		return nil
	}

	item := m.RevealQueue[0]
	m.RevealQueue = m.RevealQueue[1:]
	m.Messages = append(m.Messages, item.Text)
	m.UpdateViewport()

	if len(m.RevealQueue) == 0 {
		m.revealing = false
		if !m.Researching {
			m.Pending = false
		}
		return nil
	}

	next := m.RevealQueue[0].Delay
	if next <= 0 {
		next = ListRevealDelay
	}
	return tea.Tick(next, func(time.Time) tea.Msg {
		return RevealMsg{Seq: seq}
	})
}

func (m *Model) startLogin() tea.Cmd {
	tg, ok := m.Gate.(*auth.TokenGate)
	if !ok {
		m.Messages = append(m.Messages, FormatBotPlain("Sign-in is not configured; set the AUTH0_* variables to enable it."))
		m.UpdateViewport()
		return nil
	}
	if m.LoginPending {
		return nil
	}

	m.LoginPending = true
	prog := m.Program
	return func() tea.Msg {
		err := tg.Login(context.Background(), func(p auth.DevicePrompt) {
			if prog != nil {
				prog.Send(LoginPromptMsg{Prompt: p})
			}
		})
		if err != nil {
			return LoginDoneMsg{Err: err}
		}
		return LoginDoneMsg{User: tg.User()}
	}
}

// switchToGuest abandons the token flow for a locally fabricated guest
// identity. Only offered while sign-in has not completed.
func (m *Model) switchToGuest() tea.Cmd {
	if m.Gate.Mode() != config.AuthToken || m.Gate.Enabled() {
		return nil
	}

	guest := auth.NewGuestGate()
	m.Gate = guest
	m.Client.SetGate(guest)
	m.LoginPending = false
	m.LoginPrompt = nil
	m.UserLabel = userLabel(guest)
	m.Messages = append(m.Messages, FormatBotPlain(fmt.Sprintf("Continuing as %s. Your research will not be tied to an account.", guest.User().ID)))
	m.Pending = true
	m.UpdateViewport()
	return tea.Batch(m.welcomeCmd(), m.Spinner.Tick)
}
