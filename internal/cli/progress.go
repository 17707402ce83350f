package cli

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/Automaat/shader-buster/internal/cleanup"
	"github.com/Automaat/shader-buster/pkg/size"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// lineObserver prints one line per phase change, for pipes and logs.
type lineObserver struct {
	out  io.Writer
	mu   sync.Mutex
	last cleanup.State
}

func newLineObserver(out io.Writer) *lineObserver {
	return &lineObserver{out: out, last: cleanup.StateIdle}
}

// OnProgress implements cleanup.Observer.
func (o *lineObserver) OnProgress(p cleanup.Progress) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if p.State == o.last || p.State.Terminal() {
		return
	}
	o.last = p.State
	fmt.Fprintf(o.out, "%s...\n", phaseTitle(p.State))
}

func phaseTitle(s cleanup.State) string {
	switch s {
	case cleanup.StateDiscovering:
		return "Discovering cache locations"
	case cleanup.StateValidating:
		return "Validating locations"
	case cleanup.StateBackingUp:
		return "Backing up"
	case cleanup.StateDeleting:
		return "Deleting"
	}
	title := s.String()
	return strings.ToUpper(title[:1]) + title[1:]
}

type progressMsg cleanup.Progress

type updatesClosedMsg struct{}

type runDoneMsg struct {
	result cleanup.Result
}

func waitForProgress(ch <-chan cleanup.Progress) tea.Cmd {
	return func() tea.Msg {
		p, ok := <-ch
		if !ok {
			return updatesClosedMsg{}
		}
		return progressMsg(p)
	}
}

func waitForResult(h *cleanup.Handle) tea.Cmd {
	return func() tea.Msg {
		return runDoneMsg{result: h.Wait()}
	}
}

// runView renders a live run. It is embedded by the clean progress program
// and the interactive mode.
type runView struct {
	handle     *cleanup.Handle
	updates    <-chan cleanup.Progress
	result     *cleanup.Result
	spinner    spinner.Model
	progress   progress.Model
	last       cleanup.Progress
	cancelling bool
}

func newRunView(h *cleanup.Handle, updates <-chan cleanup.Progress) runView {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	return runView{
		handle:   h,
		updates:  updates,
		spinner:  s,
		progress: progress.New(progress.WithDefaultGradient()),
	}
}

func (v runView) init() tea.Cmd {
	return tea.Batch(waitForProgress(v.updates), v.spinner.Tick)
}

func (v runView) done() bool {
	return v.result != nil
}

// cancel requests cancellation once; the run stops at its next checkpoint.
func (v runView) cancel() runView {
	if v.handle != nil && !v.cancelling {
		v.handle.Cancel()
		v.cancelling = true
	}
	return v
}

func (v runView) update(msg tea.Msg) (runView, tea.Cmd) {
	switch msg := msg.(type) {
	case progressMsg:
		v.last = cleanup.Progress(msg)
		return v, waitForProgress(v.updates)

	case updatesClosedMsg:
		return v, waitForResult(v.handle)

	case runDoneMsg:
		v.result = &msg.result
		return v, nil

	case tea.WindowSizeMsg:
		v.progress.Width = max(msg.Width-10, 1)
		return v, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		v.spinner, cmd = v.spinner.Update(msg)
		return v, cmd

	case progress.FrameMsg:
		m, cmd := v.progress.Update(msg)
		v.progress = m.(progress.Model)
		return v, cmd
	}
	return v, nil
}

func (v runView) view() string {
	var b strings.Builder

	if v.result != nil {
		b.WriteString(resultHeadline(*v.result))
		b.WriteString("\n")
		return b.String()
	}

	phase := phaseTitle(v.last.State)
	if v.last.State == cleanup.StateIdle {
		phase = "Starting"
	}
	if v.cancelling {
		phase = "Cancelling"
	}
	fmt.Fprintf(&b, "%s %s\n\n", v.spinner.View(), phase)
	b.WriteString(v.progress.ViewAs(v.last.Percent / 100))
	b.WriteString("\n\n")

	st := v.last.Stats
	fmt.Fprintf(&b, "%s files, %s directories, %s freed",
		size.Count(st.FilesDeleted), size.Count(st.DirectoriesDeleted), size.Format(st.BytesFreed))
	if st.Errors > 0 {
		b.WriteString("  ")
		b.WriteString(errorStyle.Render(fmt.Sprintf("%d errors", st.Errors)))
	}
	b.WriteString("\n")
	if v.last.Current != "" {
		b.WriteString(dimStyle.Render(truncateLeft(v.last.Current, max(v.progress.Width, 20))))
		b.WriteString("\n")
	}
	return b.String()
}

// truncateLeft keeps the tail of s, which for paths is the informative part.
func truncateLeft(s string, width int) string {
	r := []rune(s)
	if len(r) <= width {
		return s
	}
	return "..." + string(r[len(r)-width+3:])
}

// runModel is the full-screen progress program used by clean on a terminal.
type runModel struct {
	view runView
}

func newRunModel(h *cleanup.Handle, updates <-chan cleanup.Progress) runModel {
	return runModel{view: newRunView(h, updates)}
}

func (m runModel) Init() tea.Cmd {
	return m.view.init()
}

func (m runModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "q", "esc", "ctrl+c":
			m.view = m.view.cancel()
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.view, cmd = m.view.update(msg)
	if m.view.done() {
		return m, tea.Quit
	}
	return m, cmd
}

func (m runModel) View() string {
	if m.view.done() {
		return ""
	}
	return titleStyle.Render("Shader Buster") + "\n\n" + m.view.view() + "\n" + dimStyle.Render("q=cancel")
}
