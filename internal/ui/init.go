package ui

import (
	"finsense/internal/auth"
	"finsense/internal/client"
	"finsense/internal/config"
	"finsense/internal/db"
	"finsense/internal/styles"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"
)

func InitialModel(cfg *config.Config, gate auth.Gate, c *client.Client, log *zap.Logger) Model {
	styles.InitTheme()

	ti := textarea.New()
	ti.Placeholder = "Ask about stocks, sectors, or your goals..."
	ti.Prompt = "❯ "
	ti.ShowLineNumbers = false
	ti.CharLimit = 0
	ti.MaxHeight = 6
	ti.SetHeight(2)
	ti.SetWidth(80)
	ti.FocusedStyle.Prompt = lipgloss.NewStyle().Foreground(lipgloss.Color("#B39DDB")).Bold(true)
	ti.BlurredStyle.Prompt = lipgloss.NewStyle().Foreground(lipgloss.Color("#B39DDB")).Bold(true)
	ti.FocusedStyle.Placeholder = lipgloss.NewStyle().Foreground(lipgloss.Color("#545454"))
	ti.BlurredStyle.Placeholder = lipgloss.NewStyle().Foreground(lipgloss.Color("#545454"))
	ti.FocusedStyle.CursorLine = lipgloss.NewStyle()
	ti.BlurredStyle.CursorLine = lipgloss.NewStyle()
	ti.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#B39DDB"))

	vp := viewport.New(60, 15)

	dbConn, dbErr := db.OpenFinsenseDB()

	m := Model{
		TextInput:        ti,
		Viewport:         vp,
		Spinner:          sp,
		Client:           c,
		Gate:             gate,
		Cfg:              cfg,
		Log:              log,
		DB:               dbConn,
		DBErr:            dbErr,
		CurrentSessionID: 0,
		Renderer:         nil,
		Messages:         []string{},
		HistoryOpen:      false,
		HistoryPage:      0,
	}
	m.UserLabel = userLabel(gate)
	return m
}

func userLabel(gate auth.Gate) string {
	u := gate.User()
	switch {
	case u.Name != "":
		return u.Name
	case u.Email != "":
		return u.Email
	case u.ID != "":
		return u.ID
	default:
		return ""
	}
}

func (m *Model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		m.TextInput.Cursor.BlinkCmd(),
		m.Spinner.Tick,
	}

	// Token mode without a stored token cannot place the opening call yet.
	if _, err := m.Gate.Headers(); err != nil {
		m.Messages = append(m.Messages, FormatBotPlain("Press Ctrl+L to sign in, or Ctrl+G to continue as a guest."))
		return tea.Batch(cmds...)
	}

	m.Pending = true
	cmds = append(cmds, m.welcomeCmd())
	return tea.Batch(cmds...)
}

func NewProgram(cfg *config.Config, gate auth.Gate, c *client.Client, log *zap.Logger) *tea.Program {
	m := InitialModel(cfg, gate, c, log)
	p := tea.NewProgram(&m, tea.WithAltScreen())
	m.Program = p
	return p
}
