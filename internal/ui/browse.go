package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/seekerlabs/indexscope/internal/bus"
	"github.com/seekerlabs/indexscope/internal/history"
	"github.com/seekerlabs/indexscope/internal/search"
	"github.com/seekerlabs/indexscope/internal/session"
)

// BrowseConfig wires the browse session to the application components.
// Manager must already have an index open.
type BrowseConfig struct {
	Bus          *bus.Bus
	Manager      *session.Manager
	Compiler     *search.Compiler
	Executor     *search.Executor
	History      *history.Store // optional
	Styles       Styles
	DefaultField string
	MaxResults   int
}

// Browse runs the interactive query loop until the user quits.
func Browse(ctx context.Context, cfg BrowseConfig) error {
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = 20
	}
	p := tea.NewProgram(newBrowseModel(cfg), tea.WithAltScreen(), tea.WithContext(ctx))

	sub := bus.Subscribe(cfg.Bus, func(session.IndexChanged) {
		p.Send(indexChangedMsg{})
	})
	defer sub.Cancel()

	_, err := p.Run()
	return err
}

type searchDoneMsg struct {
	raw string
	res *search.Result
	err error
}

type explainDoneMsg struct {
	docID string
	expl  *search.Explanation
	err   error
}

type reopenedMsg struct {
	err error
}

type indexChangedMsg struct{}

type browseModel struct {
	cfg   BrowseConfig
	input textinput.Model

	rows     []search.Row
	total    uint64
	lastRaw  string
	selected int

	expl       *search.Explanation
	explainFor string

	status  string
	stale   bool
	width   int
	height  int
	waiting bool
}

func newBrowseModel(cfg BrowseConfig) browseModel {
	in := textinput.New()
	in.Prompt = "query> "
	in.Placeholder = "type a query, enter to search"
	in.Focus()
	return browseModel{cfg: cfg, input: in}
}

func (m browseModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m browseModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			return m, tea.Quit
		case "enter":
			m.waiting = true
			m.expl = nil
			m.status = ""
			return m, m.searchCmd(m.input.Value())
		case "up":
			if m.selected > 0 {
				m.selected--
			}
			return m, nil
		case "down":
			if m.selected < len(m.rows)-1 {
				m.selected++
			}
			return m, nil
		case "ctrl+e":
			if m.selected < len(m.rows) {
				return m, m.explainCmd(m.rows[m.selected].DocID)
			}
			return m, nil
		case "ctrl+r":
			return m, m.reopenCmd(false)
		case "ctrl+t":
			return m, m.reopenCmd(true)
		}

	case searchDoneMsg:
		m.waiting = false
		if msg.err != nil {
			m.status = m.cfg.Styles.Error.Render(msg.err.Error())
			return m, nil
		}
		m.lastRaw = msg.raw
		m.selected = 0
		if msg.res == nil {
			m.rows = nil
			m.total = 0
			m.status = m.cfg.Styles.Subtle.Render("no query")
			return m, nil
		}
		m.rows = msg.res.Rows
		m.total = msg.res.TotalHits
		m.status = m.cfg.Styles.Success.Render(fmt.Sprintf("%d hits", msg.res.TotalHits))
		return m, nil

	case explainDoneMsg:
		if msg.err != nil {
			m.status = m.cfg.Styles.Error.Render(msg.err.Error())
			return m, nil
		}
		if msg.expl == nil {
			m.status = m.cfg.Styles.Warning.Render("run a search before explaining")
			return m, nil
		}
		m.expl = msg.expl
		m.explainFor = msg.docID
		return m, nil

	case reopenedMsg:
		if msg.err != nil {
			m.status = m.cfg.Styles.Error.Render(msg.err.Error())
			return m, nil
		}
		m.stale = false
		mode := "writable"
		if m.cfg.Manager.IsReadOnly() {
			mode = "read-only"
		}
		m.status = m.cfg.Styles.Success.Render("reopened " + mode)
		if m.lastRaw != "" {
			m.waiting = true
			return m, m.searchCmd(m.lastRaw)
		}
		return m, nil

	case indexChangedMsg:
		m.stale = true
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m browseModel) searchCmd(raw string) tea.Cmd {
	cfg := m.cfg
	return func() tea.Msg {
		cq, err := cfg.Compiler.Parse(raw, cfg.DefaultField)
		if err != nil {
			return searchDoneMsg{raw: raw, err: err}
		}
		if cq == nil {
			return searchDoneMsg{raw: raw}
		}
		res, err := cfg.Executor.Execute(context.Background(), cq, cfg.MaxResults)
		if err != nil {
			return searchDoneMsg{raw: raw, err: err}
		}
		if cfg.History != nil {
			// Best effort, surfacing history failures here would just
			// interrupt the session.
			_ = cfg.History.RecordQuery(cq.Raw, cq.Field, res.TotalHits)
		}
		return searchDoneMsg{raw: raw, res: res}
	}
}

func (m browseModel) explainCmd(docID string) tea.Cmd {
	cfg := m.cfg
	return func() tea.Msg {
		expl, err := cfg.Executor.Explain(context.Background(), docID)
		return explainDoneMsg{docID: docID, expl: expl, err: err}
	}
}

func (m browseModel) reopenCmd(toggle bool) tea.Cmd {
	cfg := m.cfg
	return func() tea.Msg {
		var err error
		if toggle {
			_, err = cfg.Manager.ReopenToggled(context.Background())
		} else {
			_, err = cfg.Manager.Reopen(context.Background())
		}
		return reopenedMsg{err: err}
	}
}

func (m browseModel) View() string {
	var b strings.Builder
	st := m.cfg.Styles

	mode := "rw"
	if m.cfg.Manager.IsReadOnly() {
		mode = "ro"
	}
	header := fmt.Sprintf("%s (%s)", m.cfg.Manager.Path(), mode)
	if m.stale {
		header += "  " + st.Warning.Render("index changed on disk, ctrl+r to reopen")
	}
	b.WriteString(st.Title.Render(header) + "\n\n")
	b.WriteString(m.input.View() + "\n")

	if m.waiting {
		b.WriteString(st.Subtle.Render("searching...") + "\n")
	} else if m.status != "" {
		b.WriteString(m.status + "\n")
	}
	b.WriteString("\n")

	for i, row := range m.rows {
		line := fmt.Sprintf("%s  %s  %s",
			st.DocID.Render(row.DocID),
			st.Score.Render(fmt.Sprintf("%.4f", row.Score)),
			row.Preview)
		if i == m.selected {
			line = st.Selected.Render("> " + line)
		} else {
			line = "  " + line
		}
		b.WriteString(line + "\n")
	}

	if m.expl != nil {
		b.WriteString("\n" + st.Title.Render("why "+m.explainFor) + "\n")
		b.WriteString(m.expl.String())
	}

	b.WriteString("\n" + st.Help.Render(
		"enter search · up/down select · ctrl+e explain · ctrl+r reopen · ctrl+t toggle mode · esc quit"))
	return b.String()
}
