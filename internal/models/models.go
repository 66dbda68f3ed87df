package models

// Conversation state tags assigned by the backend. The client forwards the
// state as an opaque string; the only tag it branches on is
// StateReadyToResearch, which triggers an automatic research request.
const (
	StateInitial           = "initial"
	StateCollectingInitial = "collecting_initial"
	StateCollectingGoals   = "collecting_goals"
	StateCollectingSectors = "collecting_sectors"
	StateCollectingRisk    = "collecting_risk"
	StateConfirming        = "confirming"
	StateConversational    = "conversational"
	StateReadyToResearch   = "ready_to_research"
	StateResearching       = "researching"
	StateComplete          = "complete"
	StateError             = "error"
)

const (
	RoleUser = "user"
	RoleBot  = "bot"
)

// SessionListItem is one row in the local history browser.
type SessionListItem struct {
	ID             int64
	UpdatedAtUnix  int64
	LastUserPrompt string
	BackendID      string
	AuthMode       string
}

type DBMessage struct {
	Role    string
	Content string
}

// ChatRequest is the POST /api/chat body. SessionID is empty on the first
// turn; the backend assigns one and echoes it back.
type ChatRequest struct {
	SessionID string `json:"session_id,omitempty"`
	Message   string `json:"message"`
}

type ChatResponse struct {
	SessionID         string   `json:"session_id"`
	BotMessage        string   `json:"bot_message"`
	State             string   `json:"state"`
	NeedsConfirmation bool     `json:"needs_confirmation"`
	Options           []string `json:"options,omitempty"`
}

type ResearchRequest struct {
	SessionID string `json:"session_id"`
}

// ResearchResults carries the report as backend-rendered HTML. Raw holds
// the untyped analysis payload; the client never inspects it.
type ResearchResults struct {
	HTML string         `json:"html"`
	Raw  map[string]any `json:"raw,omitempty"`
}

type ResearchResponse struct {
	SessionID string           `json:"session_id"`
	Status    string           `json:"status"`
	Progress  string           `json:"progress,omitempty"`
	Results   *ResearchResults `json:"results"`
}

type HistoryMessage struct {
	Role    string `json:"role"`
	Message string `json:"message"`
}

type HistoryResponse struct {
	Messages []HistoryMessage `json:"messages"`
}

type StatusResponse struct {
	SessionID string `json:"session_id"`
	State     string `json:"state"`
}
