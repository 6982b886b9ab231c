package update

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/sandeepkv93/recurd/internal/storage"
	"github.com/sandeepkv93/recurd/internal/views"
)

const helpMarkdown = `# recurd

Recurring schedules spawn one task per occurrence.

## Schedules
- **n** new schedule
- **↑/↓** move, **/** filter
- **?** toggle help, **q** quit

## Editor
- **tab / shift+tab** switch field
- **←/→** cycle frequency
- **0-6** toggle weekdays (0 = Sunday)
- **enter** preview the next ` + "`5`" + ` occurrences
- **ctrl+s** save, **esc** back
`

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.loadSchedulesCmd(), m.waitDueCmd())
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case SetSchedulesMsg:
		items := make([]list.Item, 0, len(msg.Schedules))
		for _, s := range msg.Schedules {
			items = append(items, scheduleItem{schedule: s})
		}
		m.scheduleList.SetItems(items)
		return m, nil
	case ScheduleSavedMsg:
		m.CurrentView = ViewSchedules
		m.Status = StatusBar{Text: "Saved schedule " + msg.ID}
		return m, m.loadSchedulesCmd()
	case ScheduleDueMsg:
		m.Status = StatusBar{Text: fmt.Sprintf("Due: %s (%s)", msg.Event.Title, msg.Event.DueAt.Format("15:04"))}
		return m, tea.Batch(m.dispatchCmd(), m.waitDueCmd())
	case DispatchedMsg:
		m.Status = dispatchStatus(msg)
		return m, m.loadSchedulesCmd()
	case AppErrorMsg:
		m.Status = StatusBar{Text: "error: " + msg.Err.Error(), IsError: true}
		return m, nil
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		m.Quitting = true
		return m, tea.Quit
	}

	if m.CurrentView == ViewEditor {
		next, cmd := m.handleEditorKey(msg)
		return next, cmd
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		m.Quitting = true
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.HelpVisible = !m.HelpVisible
		return m, nil
	case key.Matches(msg, m.keys.NewSchedule):
		m.editor = newEditorState()
		m.CurrentView = ViewEditor
		return m, nil
	}

	var cmd tea.Cmd
	m.scheduleList, cmd = m.scheduleList.Update(msg)
	return m, cmd
}

func (m Model) View() string {
	if m.Quitting {
		return ""
	}
	if m.HelpVisible {
		return views.RenderMarkdown(helpMarkdown)
	}

	data := views.AppData{
		Header:     "recurd — recurring schedules",
		StatusLine: m.Status.Text,
		Footer:     m.helpModel.ShortHelpView(m.keys.ShortHelp()),
	}
	if m.CurrentView == ViewEditor {
		data.Header = "recurd — pattern editor"
		data.LeftPane = m.renderEditorPane()
		data.RightPane = m.renderPreviewPane()
	} else {
		data.LeftPane = m.scheduleList.View()
		data.RightPane = m.renderSchedulePane()
	}
	return views.RenderApp(data)
}

func (m Model) renderSchedulePane() string {
	item, ok := m.scheduleList.SelectedItem().(scheduleItem)
	if !ok {
		return "No schedule selected.\n\nPress n to create one."
	}
	s := item.schedule
	lines := []string{
		s.Title,
		"",
		"frequency   " + s.Frequency,
		fmt.Sprintf("interval    %d", s.IntervalValue),
	}
	if s.DaysOfWeek != "" && s.DaysOfWeek != "[]" {
		lines = append(lines, "days        "+s.DaysOfWeek)
	}
	if s.DayOfMonth > 0 {
		lines = append(lines, fmt.Sprintf("day         %d", s.DayOfMonth))
	}
	if s.MonthOfYear > 0 {
		lines = append(lines, fmt.Sprintf("month       %d", s.MonthOfYear))
	}
	if s.EndDate != nil {
		lines = append(lines, "until       "+s.EndDate.Format("2006-01-02"))
	}
	if s.OccurrenceCount > 0 {
		lines = append(lines, fmt.Sprintf("occurrences %d/%d", s.SpawnedCount, s.OccurrenceCount))
	}
	if s.Enabled {
		lines = append(lines, "next due    "+s.NextDueAt.Format("2006-01-02 15:04"))
	} else {
		lines = append(lines, "finished")
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderEditorPane() string {
	e := m.editor
	row := func(field EditorField, label, value string) string {
		marker := "  "
		style := views.FieldStyle
		if e.Field == field {
			marker = "> "
			style = views.FocusedStyle
		}
		return marker + style.Render(fmt.Sprintf("%-9s %s", label, value))
	}

	lines := []string{
		row(FieldTitle, "title", e.Title.View()),
		row(FieldFrequency, "frequency", string(e.Frequency)),
		row(FieldInterval, "every", e.Interval.View()),
		row(FieldDays, "days", renderDayToggles(e.Days)),
		row(FieldDayOfMonth, "day", e.DayOfMonth.View()),
		row(FieldMonthOfYear, "month", e.MonthOfYear.View()),
		row(FieldEndDate, "until", e.EndDate.View()),
		row(FieldCount, "count", e.Count.View()),
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderPreviewPane() string {
	if len(m.editor.Preview) == 0 {
		return "Upcoming\n\nno upcoming occurrences"
	}
	lines := append([]string{"Upcoming", ""}, m.editor.Preview...)
	return strings.Join(lines, "\n")
}

var dayLabels = [7]string{"Su", "Mo", "Tu", "We", "Th", "Fr", "Sa"}

func renderDayToggles(days map[int]bool) string {
	selected := make([]string, 0, 7)
	for d := 0; d < 7; d++ {
		label := dayLabels[d]
		if days[d] {
			label = "[" + label + "]"
		}
		selected = append(selected, label)
	}
	return strings.Join(selected, " ")
}

func dispatchStatus(msg DispatchedMsg) StatusBar {
	r := msg.Result
	if len(r.Failures) > 0 {
		ids := make([]string, 0, len(r.Failures))
		for _, f := range r.Failures {
			ids = append(ids, f.ScheduleID)
		}
		sort.Strings(ids)
		return StatusBar{Text: "error: schedules failed: " + strings.Join(ids, ", "), IsError: true}
	}
	return StatusBar{Text: fmt.Sprintf("Spawned %d task(s)", len(r.Spawned))}
}

func (m Model) loadSchedulesCmd() tea.Cmd {
	repo := m.repo
	return func() tea.Msg {
		if repo == nil {
			return SetSchedulesMsg{}
		}
		items, err := repo.ListSchedules(context.Background(), storage.ScheduleListFilter{})
		if err != nil {
			return AppErrorMsg{Err: err}
		}
		return SetSchedulesMsg{Schedules: items}
	}
}

func (m Model) waitDueCmd() tea.Cmd {
	engine := m.engine
	return func() tea.Msg {
		if engine == nil {
			return nil
		}
		ev, ok := <-engine.C()
		if !ok {
			return nil
		}
		return ScheduleDueMsg{Event: ev}
	}
}

func (m Model) dispatchCmd() tea.Cmd {
	dispatcher := m.dispatcher
	engine := m.engine
	return func() tea.Msg {
		if dispatcher == nil {
			return nil
		}
		result, err := dispatcher.AdvanceDue(context.Background(), time.Now().UTC())
		if err != nil {
			return AppErrorMsg{Err: err}
		}
		if engine != nil {
			for _, ev := range result.Rearmed {
				_ = engine.Arm(ev)
			}
		}
		return DispatchedMsg{Result: result}
	}
}
