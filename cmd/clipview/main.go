// Command clipview is a terminal browser for the moments surfaced by an
// analysis run: a scrollable list on the left, a rendered detail pane for
// the selected moment on the right.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/clipscan/clipscan/internal/analysis"
	"github.com/clipscan/clipscan/internal/peaks"
)

var (
	borderStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)
)

func main() {
	path := flag.String("file", "", "path to an analysis response JSON file (defaults to stdin)")
	flag.Parse()

	resp, err := loadResponse(*path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "clipview: %v\n", err)
		os.Exit(1)
	}
	if len(resp.Moments) == 0 {
		fmt.Println("no moments to show")
		return
	}

	renderer, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(60))
	if err != nil {
		fmt.Fprintf(os.Stderr, "clipview: %v\n", err)
		os.Exit(1)
	}

	m := newModel(resp, renderer)
	if _, err := tea.NewProgram(m, tea.WithAltScreen()).Run(); err != nil {
		fmt.Fprintf(os.Stderr, "clipview: %v\n", err)
		os.Exit(1)
	}
}

func loadResponse(path string) (*analysis.Response, error) {
	var (
		raw []byte
		err error
	)
	if path == "" {
		raw, err = io.ReadAll(os.Stdin)
	} else {
		raw, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("reading input: %w", err)
	}

	var resp analysis.Response
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("decoding analysis response: %w", err)
	}
	return &resp, nil
}

// momentItem adapts a peaks.Moment to bubbles/list's Item interface.
type momentItem struct {
	moment peaks.Moment
}

func (i momentItem) Title() string {
	return fmt.Sprintf("%s  %s  score %.1f", formatClock(i.moment.StartSec), strings.ToUpper(string(i.moment.Tag)), i.moment.Score)
}

func (i momentItem) Description() string {
	return fmt.Sprintf("%d messages, %.1f msg/s", i.moment.MessageCount, i.moment.MessagesPerSec)
}

func (i momentItem) FilterValue() string { return string(i.moment.Tag) }

type model struct {
	resp     *analysis.Response
	list     list.Model
	renderer *glamour.TermRenderer
	width    int
	height   int
}

func newModel(resp *analysis.Response, renderer *glamour.TermRenderer) model {
	items := make([]list.Item, 0, len(resp.Moments))
	for _, m := range resp.Moments {
		items = append(items, momentItem{moment: m})
	}

	l := list.New(items, list.NewDefaultDelegate(), 0, 0)
	l.Title = fmt.Sprintf("Moments for video %s", resp.VideoID)
	l.SetShowHelp(true)

	return model{resp: resp, list: l, renderer: renderer}
}

func (m model) Init() tea.Cmd { return nil }

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		listWidth := m.width / 2
		m.list.SetSize(listWidth, m.height-2)
		return m, nil
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m model) View() string {
	listView := borderStyle.Width(m.width/2 - 2).Height(m.height - 2).Render(m.list.View())
	detailView := borderStyle.Width(m.width/2 - 2).Height(m.height - 2).Render(m.renderDetail())
	return lipgloss.JoinHorizontal(lipgloss.Top, listView, detailView)
}

func (m model) renderDetail() string {
	item, ok := m.list.SelectedItem().(momentItem)
	if !ok {
		return "no moment selected"
	}
	mo := item.moment

	var b strings.Builder
	fmt.Fprintf(&b, "# %s at %s\n\n", strings.ToUpper(string(mo.Tag)), formatClock(mo.StartSec))
	fmt.Fprintf(&b, "- **Score**: %.2f\n", mo.Score)
	fmt.Fprintf(&b, "- **Window**: %s - %s\n", formatClock(mo.StartSec), formatClock(mo.EndSec))
	fmt.Fprintf(&b, "- **Messages**: %d (%.1f/s)\n", mo.MessageCount, mo.MessagesPerSec)
	fmt.Fprintf(&b, "- **Burst**: %.2f  **Spam**: %.2f\n\n", mo.BurstScore, mo.SpamScore)

	if len(mo.SampleMessages) > 0 {
		b.WriteString("## Sample chat\n\n")
		for _, s := range mo.SampleMessages {
			fmt.Fprintf(&b, "- %s\n", s)
		}
	}

	out, err := m.renderer.Render(b.String())
	if err != nil {
		return b.String()
	}
	return out
}

func formatClock(sec int) string {
	h := sec / 3600
	mm := (sec % 3600) / 60
	ss := sec % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, mm, ss)
	}
	return fmt.Sprintf("%d:%02d", mm, ss)
}
