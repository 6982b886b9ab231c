package update

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	domainmodel "github.com/sandeepkv93/recurd/internal/model"
	"github.com/sandeepkv93/recurd/internal/scheduler"
	"github.com/sandeepkv93/recurd/internal/storage"
)

// previewCount is the caller-facing default for the bounded occurrence
// preview; the engine itself always requires an explicit bound.
const previewCount = 5

const endDateLayout = "2006-01-02"

var frequencyCycle = []domainmodel.Frequency{
	domainmodel.FrequencyDaily,
	domainmodel.FrequencyWeekly,
	domainmodel.FrequencyMonthly,
	domainmodel.FrequencyYearly,
	domainmodel.FrequencyCustom,
}

func (m Model) handleEditorKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Back):
		m.CurrentView = ViewSchedules
		return m, nil
	case key.Matches(msg, m.keys.NextField):
		m.editor = m.editor.focusField((m.editor.Field + 1) % fieldCount)
		return m, nil
	case key.Matches(msg, m.keys.PrevField):
		m.editor = m.editor.focusField((m.editor.Field + fieldCount - 1) % fieldCount)
		return m, nil
	case key.Matches(msg, m.keys.Preview):
		m.computePreview(time.Now().UTC())
		return m, nil
	case key.Matches(msg, m.keys.Save):
		return m, m.saveScheduleCmd()
	}

	switch m.editor.Field {
	case FieldFrequency:
		switch msg.String() {
		case "left":
			m.editor.Frequency = cycleFrequency(m.editor.Frequency, -1)
		case "right", " ":
			m.editor.Frequency = cycleFrequency(m.editor.Frequency, 1)
		}
		return m, nil
	case FieldDays:
		if msg.Type == tea.KeyRunes && len(msg.Runes) == 1 {
			if d := int(msg.Runes[0] - '0'); d >= 0 && d <= 6 {
				m.editor.Days[d] = !m.editor.Days[d]
			}
		}
		return m, nil
	default:
		var cmd tea.Cmd
		m.editor, cmd = m.editor.updateFocusedInput(msg)
		return m, cmd
	}
}

func cycleFrequency(f domainmodel.Frequency, delta int) domainmodel.Frequency {
	idx := 0
	for i, candidate := range frequencyCycle {
		if candidate == f {
			idx = i
			break
		}
	}
	idx = (idx + delta + len(frequencyCycle)) % len(frequencyCycle)
	return frequencyCycle[idx]
}

func (e EditorState) focusField(field EditorField) EditorState {
	e.Field = field
	e.Title.Blur()
	e.Interval.Blur()
	e.DayOfMonth.Blur()
	e.MonthOfYear.Blur()
	e.EndDate.Blur()
	e.Count.Blur()
	switch field {
	case FieldTitle:
		e.Title.Focus()
	case FieldInterval:
		e.Interval.Focus()
	case FieldDayOfMonth:
		e.DayOfMonth.Focus()
	case FieldMonthOfYear:
		e.MonthOfYear.Focus()
	case FieldEndDate:
		e.EndDate.Focus()
	case FieldCount:
		e.Count.Focus()
	}
	return e
}

func (e EditorState) updateFocusedInput(msg tea.Msg) (EditorState, tea.Cmd) {
	var cmd tea.Cmd
	switch e.Field {
	case FieldTitle:
		e.Title, cmd = e.Title.Update(msg)
	case FieldInterval:
		e.Interval, cmd = e.Interval.Update(msg)
	case FieldDayOfMonth:
		e.DayOfMonth, cmd = e.DayOfMonth.Update(msg)
	case FieldMonthOfYear:
		e.MonthOfYear, cmd = e.MonthOfYear.Update(msg)
	case FieldEndDate:
		e.EndDate, cmd = e.EndDate.Update(msg)
	case FieldCount:
		e.Count, cmd = e.Count.Update(msg)
	}
	return e, cmd
}

// pattern assembles the recurrence pattern currently described by the
// editor fields. Unparseable numeric input maps to values Validate will
// reject; an unparseable end date fails here.
func (e EditorState) pattern() (domainmodel.RecurrencePattern, error) {
	p := domainmodel.RecurrencePattern{
		Frequency:   e.Frequency,
		Interval:    atoiOrZero(e.Interval.Value()),
		DaysOfWeek:  e.selectedDays(),
		DayOfMonth:  atoiOrZero(e.DayOfMonth.Value()),
		MonthOfYear: atoiOrZero(e.MonthOfYear.Value()),
		Count:       atoiOrZero(e.Count.Value()),
	}
	if raw := strings.TrimSpace(e.EndDate.Value()); raw != "" {
		end, err := time.Parse(endDateLayout, raw)
		if err != nil {
			return domainmodel.RecurrencePattern{}, fmt.Errorf("update: bad end date %q: %w", raw, err)
		}
		endOfDay := end.Add(24*time.Hour - time.Nanosecond)
		p.EndDate = &endOfDay
	}
	return p, nil
}

func (e EditorState) selectedDays() []int {
	if len(e.Days) == 0 {
		return nil
	}
	out := make([]int, 0, len(e.Days))
	for d, on := range e.Days {
		if on {
			out = append(out, d)
		}
	}
	if len(out) == 0 {
		return nil
	}
	sort.Ints(out)
	return out
}

func atoiOrZero(raw string) int {
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0
	}
	return v
}

// computePreview fills the preview pane with the next occurrences of the
// edited pattern. Invalid patterns are an expected transient state while
// the user types, so any failure clears the preview instead of surfacing
// an error.
func (m *Model) computePreview(now time.Time) {
	p, err := m.editor.pattern()
	if err != nil {
		m.editor.Preview = nil
		return
	}
	list, err := p.Occurrences(now, previewCount, nil)
	if err != nil {
		m.editor.Preview = nil
		return
	}
	m.editor.Preview = make([]string, 0, len(list))
	for _, item := range list {
		m.editor.Preview = append(m.editor.Preview, item.Format("2006-01-02 15:04"))
	}
}

func (m Model) saveScheduleCmd() tea.Cmd {
	repo := m.repo
	engine := m.engine
	editor := m.editor
	return func() tea.Msg {
		if repo == nil {
			return AppErrorMsg{Err: fmt.Errorf("update: no repository configured")}
		}
		p, err := editor.pattern()
		if err != nil {
			return AppErrorMsg{Err: err}
		}
		if err := p.Validate(); err != nil {
			return AppErrorMsg{Err: err}
		}

		now := time.Now().UTC()
		next, err := p.NextAfter(now)
		if err != nil {
			return AppErrorMsg{Err: err}
		}

		title := strings.TrimSpace(editor.Title.Value())
		if title == "" {
			title = "Untitled schedule"
		}
		sched := storage.Schedule{
			ID:              newScheduleID(),
			Title:           title,
			Frequency:       string(p.Frequency),
			IntervalValue:   p.Interval,
			DaysOfWeek:      domainmodel.EncodeDaysOfWeek(p.DaysOfWeek),
			DayOfMonth:      p.DayOfMonth,
			MonthOfYear:     p.MonthOfYear,
			EndDate:         p.EndDate,
			OccurrenceCount: p.Count,
			NextDueAt:       next,
			Enabled:         true,
			CreatedAt:       now,
		}
		if err := repo.CreateSchedule(context.Background(), sched); err != nil {
			return AppErrorMsg{Err: err}
		}
		if engine != nil {
			_ = engine.Arm(scheduler.ScheduleDueEvent{ScheduleID: sched.ID, Title: sched.Title, DueAt: next})
		}
		return ScheduleSavedMsg{ID: sched.ID}
	}
}

func newScheduleID() string {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return fmt.Sprintf("sched-%d", time.Now().UnixNano())
	}
	return "sched-" + hex.EncodeToString(buf)
}
