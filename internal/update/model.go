package update

import (
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	domainmodel "github.com/sandeepkv93/recurd/internal/model"
	"github.com/sandeepkv93/recurd/internal/scheduler"
	"github.com/sandeepkv93/recurd/internal/storage"
)

type View string

const (
	ViewSchedules View = "Schedules"
	ViewEditor    View = "Editor"
)

type StatusBar struct {
	Text    string
	IsError bool
}

type KeyMap struct {
	NewSchedule key.Binding
	NextField   key.Binding
	PrevField   key.Binding
	Cycle       key.Binding
	Preview     key.Binding
	Save        key.Binding
	Back        key.Binding
	Help        key.Binding
	Quit        key.Binding
}

func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.NewSchedule, k.Preview, k.Save, k.Help, k.Quit}
}

func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.NewSchedule, k.NextField, k.PrevField, k.Cycle},
		{k.Preview, k.Save, k.Back, k.Help, k.Quit},
	}
}

func defaultKeyMap() KeyMap {
	return KeyMap{
		NewSchedule: key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "new schedule")),
		NextField:   key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next field")),
		PrevField:   key.NewBinding(key.WithKeys("shift+tab"), key.WithHelp("shift+tab", "prev field")),
		Cycle:       key.NewBinding(key.WithKeys("left", "right"), key.WithHelp("←/→", "cycle value")),
		Preview:     key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "preview")),
		Save:        key.NewBinding(key.WithKeys("ctrl+s"), key.WithHelp("ctrl+s", "save")),
		Back:        key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
		Help:        key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Quit:        key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

type EditorField int

const (
	FieldTitle EditorField = iota
	FieldFrequency
	FieldInterval
	FieldDays
	FieldDayOfMonth
	FieldMonthOfYear
	FieldEndDate
	FieldCount
	fieldCount
)

// EditorState is the pattern editor: typed fields plus the preview the
// engine computed for them. The editor tolerates transient invalid input;
// a failed preview renders as "no upcoming occurrences".
type EditorState struct {
	Field       EditorField
	Frequency   domainmodel.Frequency
	Title       textinput.Model
	Interval    textinput.Model
	Days        map[int]bool
	DayOfMonth  textinput.Model
	MonthOfYear textinput.Model
	EndDate     textinput.Model
	Count       textinput.Model
	Preview     []string
}

type scheduleItem struct {
	schedule storage.Schedule
}

func (i scheduleItem) FilterValue() string { return i.schedule.Title }
func (i scheduleItem) Title() string       { return i.schedule.Title }
func (i scheduleItem) Description() string {
	state := "next " + i.schedule.NextDueAt.Format("2006-01-02 15:04")
	if !i.schedule.Enabled {
		state = "finished"
	}
	return i.schedule.Frequency + " · " + state
}

type Model struct {
	CurrentView View
	repo        storage.Repository
	engine      *scheduler.Engine
	dispatcher  *scheduler.Dispatcher

	scheduleList list.Model
	editor       EditorState
	helpModel    help.Model
	keys         KeyMap
	Status       StatusBar
	HelpVisible  bool
	Quitting     bool
}

type SetSchedulesMsg struct {
	Schedules []storage.Schedule
}

type ScheduleSavedMsg struct {
	ID string
}

type ScheduleDueMsg struct {
	Event scheduler.ScheduleDueEvent
}

type DispatchedMsg struct {
	Result scheduler.AdvanceResult
}

type AppErrorMsg struct {
	Err error
}

func NewModel(repo storage.Repository, engine *scheduler.Engine, dispatcher *scheduler.Dispatcher) Model {
	delegate := list.NewDefaultDelegate()
	scheduleList := list.New(nil, delegate, 44, 14)
	scheduleList.Title = "Recurring schedules"
	scheduleList.SetShowHelp(false)

	m := Model{
		CurrentView:  ViewSchedules,
		repo:         repo,
		engine:       engine,
		dispatcher:   dispatcher,
		scheduleList: scheduleList,
		helpModel:    help.New(),
		keys:         defaultKeyMap(),
	}
	m.editor = newEditorState()
	return m
}

func newEditorState() EditorState {
	title := textinput.New()
	title.Placeholder = "Title"
	title.CharLimit = 80
	title.Focus()

	interval := textinput.New()
	interval.Placeholder = "1"
	interval.CharLimit = 3
	interval.SetValue("1")

	dayOfMonth := textinput.New()
	dayOfMonth.Placeholder = "-"
	dayOfMonth.CharLimit = 2

	monthOfYear := textinput.New()
	monthOfYear.Placeholder = "-"
	monthOfYear.CharLimit = 2

	endDate := textinput.New()
	endDate.Placeholder = "2026-12-31"
	endDate.CharLimit = 10

	count := textinput.New()
	count.Placeholder = "-"
	count.CharLimit = 4

	return EditorState{
		Field:       FieldTitle,
		Frequency:   domainmodel.FrequencyDaily,
		Title:       title,
		Interval:    interval,
		Days:        make(map[int]bool),
		DayOfMonth:  dayOfMonth,
		MonthOfYear: monthOfYear,
		EndDate:     endDate,
		Count:       count,
	}
}
