package ui

import (
	"database/sql"
	"time"

	"finsense/internal/auth"
	"finsense/internal/client"
	"finsense/internal/config"
	"finsense/internal/models"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"go.uber.org/zap"
)

const (
	MaxChatWidth = 100

	HistoryListLimit = 50
	HistoryPageSize  = 10

	// Reveal pacing for progressive transcript output
	ParagraphRevealDelay = 350 * time.Millisecond
	ListRevealDelay      = 150 * time.Millisecond
	SectionRevealDelay   = 450 * time.Millisecond
)

var ModalWidth = 60

// FallbackWelcome is shown when the opening backend call fails. The session
// starts once the user sends their first real message.
const FallbackWelcome = `Welcome to Finsense, your financial research assistant.

I could not reach the research backend just now, but you can start typing anyway. Tell me which companies or sectors you want to look into and I will retry on your first message.`

type progressStep struct {
	Delay time.Duration
	Label string
}

// researchScript is cosmetic pacing for the research wait. The labels do not
// track real backend progress.
var researchScript = []progressStep{
	{0, "Contacting research engine"},
	{900 * time.Millisecond, "Gathering market data"},
	{1100 * time.Millisecond, "Screening sector fundamentals"},
	{1300 * time.Millisecond, "Scoring candidates against your goals"},
	{1200 * time.Millisecond, "Checking risk alignment"},
}

var researchOutro = []progressStep{
	{700 * time.Millisecond, "Compiling your report"},
	{600 * time.Millisecond, "Formatting results"},
}

type ErrMsg error

type ChatReplyMsg struct {
	Resp      models.ChatResponse
	FirstTurn bool
}

type ChatErrMsg struct {
	Err       error
	FirstTurn bool
}

type ResearchDoneMsg struct {
	ID      string
	Results models.ResearchResults
}

type ResearchErrMsg struct {
	ID  string
	Err error
}

type ProgressStepMsg struct {
	ID    string
	Index int
	Outro bool
}

type RevealMsg struct {
	Seq int
}

type LoginPromptMsg struct {
	Prompt auth.DevicePrompt
}

type LoginDoneMsg struct {
	User auth.User
	Err  error
}

// ServerHistoryMsg carries earlier turns of a resumed backend session.
type ServerHistoryMsg struct {
	Messages []models.HistoryMessage
}

// StatusMsg signals that the client refreshed its conversation state.
type StatusMsg struct{}

type RevealItem struct {
	Text  string
	Delay time.Duration
}

type Model struct {
	Viewport  viewport.Model
	Messages  []string
	TextInput textarea.Model
	Spinner   spinner.Model

	Client *client.Client
	Gate   auth.Gate
	Cfg    *config.Config
	Log    *zap.Logger

	DB               *sql.DB
	DBErr            error
	CurrentSessionID int64

	Renderer *glamour.TermRenderer
	Err      error

	// Pending is true from the moment a user turn is sent until the reply
	// (and any research it triggers) has fully revealed. Enter is a no-op
	// while it is set.
	Pending bool

	// Research progress indicator
	Researching    bool
	ProgressID     string
	ProgressLabel  string
	scriptDone     bool
	pendingResults *models.ResearchResults

	// Progressive reveal queue. Items are appended in arrival order and
	// drained strictly FIFO.
	RevealQueue []RevealItem
	revealSeq   int
	revealing   bool

	WindowWidth  int
	WindowHeight int

	HistoryOpen         bool
	HistorySelectedIdx  int
	HistorySessionCount int
	HistorySessions     []models.SessionListItem
	HistoryErr          error
	HistoryPage         int

	ShortcutsOpen bool

	// Device login flow
	LoginPending bool
	LoginPrompt  *auth.DevicePrompt
	UserLabel    string

	Program *tea.Program
}
