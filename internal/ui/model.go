// Package ui is the terminal front end: a week calendar with keyboard
// drag-and-drop and a booking detail page.
package ui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/EpicMandM/station-calendar/internal/app"
	"github.com/EpicMandM/station-calendar/internal/calendar"
	"github.com/EpicMandM/station-calendar/internal/logger"
	"github.com/EpicMandM/station-calendar/internal/models"
	"github.com/EpicMandM/station-calendar/internal/orchestrator"
	"github.com/EpicMandM/station-calendar/internal/search"
)

type focus int

const (
	focusCalendar focus = iota
	focusSearch
)

// changedMsg tells the model that the controller or search box moved.
type changedMsg struct{}

type initialLoadedMsg struct{ err error }

type dropDoneMsg struct {
	booking *models.Booking
	err     error
}

type detailLoadedMsg struct {
	id     string
	detail *app.Detail
	err    error
}

type exportDoneMsg struct {
	result orchestrator.ExportResult
	err    error
}

// chip is one booking endpoint shown in a day column.
type chip struct {
	booking models.Booking
	kind    calendar.Endpoint
}

// Model is the root bubbletea model.
type Model struct {
	ctx     context.Context
	app     *app.App
	logger  *logger.Logger
	ctrl    *calendar.Controller
	search  *search.Box[models.Station]
	changes chan struct{}

	routes []Route
	focus  focus
	cursor int
	day    int
	chip   int
	status string

	detail        *app.Detail
	detailLoading bool
	detailErr     error

	width int
}

// New builds the model on an initialized App. start is the first route shown.
func New(ctx context.Context, a *app.App, start Route) (*Model, error) {
	m := &Model{
		ctx:     ctx,
		app:     a,
		logger:  a.Logger(),
		changes: make(chan struct{}, 1),
		routes:  []Route{start},
	}

	ctrl, err := a.NewController(m.notify)
	if err != nil {
		return nil, err
	}
	box, err := a.NewStationSearch(m.selectStation, m.notify)
	if err != nil {
		return nil, err
	}
	m.ctrl = ctrl
	m.search = box
	m.day = m.todayIndex()
	return m, nil
}

// Run launches the program and blocks until the user quits.
func Run(ctx context.Context, a *app.App, start Route) error {
	m, err := New(ctx, a, start)
	if err != nil {
		return err
	}
	defer m.Close()

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err = p.Run()
	return err
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	m.search.Mount()
	cmds := []tea.Cmd{m.waitForChange(), m.loadInitial()}
	if r := m.route(); r.Page == PageDetail {
		cmds = append(cmds, m.loadDetail(r.BookingID))
	}
	return tea.Batch(cmds...)
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch v := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = v.Width
	case changedMsg:
		return m, m.waitForChange()
	case initialLoadedMsg:
		m.clampChip()
	case dropDoneMsg:
		if v.err == nil && v.booking != nil {
			m.status = fmt.Sprintf("Booking #%s: %s - %s", v.booking.ID, v.booking.StartDate, v.booking.EndDate)
		}
	case detailLoadedMsg:
		if r := m.route(); r.Page == PageDetail && r.BookingID == v.id {
			m.detail = v.detail
			m.detailErr = v.err
			m.detailLoading = false
		}
	case exportDoneMsg:
		if v.err != nil {
			m.status = "Export failed: " + v.err.Error()
		} else {
			m.status = fmt.Sprintf("Exported %d events (%d new, %d updated)", v.result.Total(), v.result.Created, v.result.Updated)
		}
	case tea.KeyMsg:
		return m.handleKey(v)
	}
	return m, nil
}

func (m *Model) handleKey(k tea.KeyMsg) (tea.Model, tea.Cmd) {
	if k.String() == "ctrl+c" {
		return m, tea.Quit
	}
	if m.route().Page == PageDetail {
		switch k.String() {
		case "b", "backspace", "esc":
			m.back()
		case "q":
			return m, tea.Quit
		}
		return m, nil
	}
	if m.focus == focusSearch {
		return m, m.handleSearchKey(k)
	}
	return m.handleCalendarKey(k)
}

func (m *Model) handleSearchKey(k tea.KeyMsg) tea.Cmd {
	s := m.search.Session()
	switch k.Type {
	case tea.KeyEsc:
		m.search.Dismiss()
		m.focus = focusCalendar
	case tea.KeyUp:
		m.cursor = clamp(m.cursor-1, 0, len(s.Results)-1)
	case tea.KeyDown:
		m.cursor = clamp(m.cursor+1, 0, len(s.Results)-1)
	case tea.KeyEnter:
		if len(s.Results) == 0 {
			return nil
		}
		m.search.Select(s.Results[clamp(m.cursor, 0, len(s.Results)-1)])
		m.focus = focusCalendar
		m.cursor = 0
	case tea.KeyBackspace:
		runes := []rune(s.RawQuery)
		if len(runes) > 0 {
			m.search.QueryChanged(string(runes[:len(runes)-1]))
		}
		m.cursor = 0
	case tea.KeySpace:
		m.search.QueryChanged(s.RawQuery + " ")
		m.cursor = 0
	case tea.KeyRunes:
		m.search.QueryChanged(s.RawQuery + string(k.Runes))
		m.cursor = 0
	}
	return nil
}

func (m *Model) handleCalendarKey(k tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch k.String() {
	case "q":
		return m, tea.Quit
	case "/":
		m.focus = focusSearch
		m.cursor = 0
		m.search.Focus()
	case "esc":
		m.ctrl.CancelDrag()
	case "[":
		m.ctrl.NavigateWeek(-7)
		m.chip = 0
	case "]":
		m.ctrl.NavigateWeek(7)
		m.chip = 0
	case "t":
		m.ctrl.ThisWeek()
		m.day = m.todayIndex()
		m.chip = 0
	case "left":
		m.day = clamp(m.day-1, 0, 6)
		m.chip = 0
	case "right":
		m.day = clamp(m.day+1, 0, 6)
		m.chip = 0
	case "tab":
		if n := len(m.focusedChips()); n > 0 {
			m.chip = (m.chip + 1) % n
		}
	case "p":
		m.beginDrag(calendar.EndpointStart)
	case "r":
		m.beginDrag(calendar.EndpointEnd)
	case "enter":
		if _, dragging := m.ctrl.Drag().(calendar.DraggingEndpoint); dragging {
			return m, m.drop()
		}
		return m, m.openFocused()
	case "o":
		return m, m.openFocused()
	case "x":
		return m, m.export()
	}
	return m, nil
}

func (m *Model) beginDrag(kind calendar.Endpoint) {
	c, ok := m.focusedChip()
	if !ok {
		return
	}
	if !m.ctrl.BeginDrag(c.booking.ID, kind) {
		m.logger.Debug("Drag refused", logger.Booking(c.booking.ID), logger.Endpoint(string(kind)))
	}
}

func (m *Model) drop() tea.Cmd {
	day := m.ctrl.VisibleDays()[m.day]
	return func() tea.Msg {
		b, err := m.ctrl.DropOnDay(m.ctx, day)
		return dropDoneMsg{booking: b, err: err}
	}
}

func (m *Model) openFocused() tea.Cmd {
	c, ok := m.focusedChip()
	if !ok {
		return nil
	}
	return m.navigate(DetailRoute(c.booking.ID))
}

func (m *Model) export() tea.Cmd {
	m.status = "Exporting week…"
	return func() tea.Msg {
		result, err := m.app.ExportController(m.ctx, m.ctrl)
		return exportDoneMsg{result: result, err: err}
	}
}

func (m *Model) navigate(r Route) tea.Cmd {
	m.routes = append(m.routes, r)
	m.logger.Debug("Navigate", logger.URL(r.Path()))
	if r.Page == PageDetail {
		return m.loadDetail(r.BookingID)
	}
	return nil
}

func (m *Model) back() {
	if len(m.routes) > 1 {
		m.routes = m.routes[:len(m.routes)-1]
		return
	}
	// A detail page opened directly returns to the calendar.
	m.routes = []Route{CalendarRoute()}
}

func (m *Model) route() Route {
	return m.routes[len(m.routes)-1]
}

func (m *Model) loadInitial() tea.Cmd {
	return func() tea.Msg {
		return initialLoadedMsg{err: m.ctrl.LoadInitialStation(m.ctx)}
	}
}

func (m *Model) loadDetail(id string) tea.Cmd {
	m.detail = nil
	m.detailErr = nil
	m.detailLoading = true
	return func() tea.Msg {
		d, err := m.app.LoadDetail(m.ctx, id)
		return detailLoadedMsg{id: id, detail: d, err: err}
	}
}

// selectStation runs when the user picks a station from the search box.
func (m *Model) selectStation(st models.Station) {
	m.chip = 0
	go func() {
		if err := m.ctrl.SelectStation(m.ctx, st); err != nil {
			m.logger.Warn("Station selection failed", logger.Station(st.ID), logger.Error(err))
		}
	}()
}

func (m *Model) notify() {
	select {
	case m.changes <- struct{}{}:
	default:
	}
}

func (m *Model) waitForChange() tea.Cmd {
	return func() tea.Msg {
		select {
		case <-m.changes:
			return changedMsg{}
		case <-m.ctx.Done():
			return nil
		}
	}
}

func (m *Model) focusedChips() []chip {
	day := m.ctrl.VisibleDays()[m.day]
	return chipsFor(m.ctrl.BucketForDay(day))
}

func (m *Model) focusedChip() (chip, bool) {
	chips := m.focusedChips()
	if len(chips) == 0 {
		return chip{}, false
	}
	return chips[clamp(m.chip, 0, len(chips)-1)], true
}

func (m *Model) clampChip() {
	m.chip = clamp(m.chip, 0, max(len(m.focusedChips())-1, 0))
}

func (m *Model) todayIndex() int {
	today := m.app.Today()
	for i, d := range m.ctrl.VisibleDays() {
		if d == today {
			return i
		}
	}
	return 0
}

func chipsFor(b models.DayBucket) []chip {
	chips := make([]chip, 0, len(b.Pickups)+len(b.Returns))
	for _, bk := range b.Pickups {
		chips = append(chips, chip{booking: bk, kind: calendar.EndpointStart})
	}
	for _, bk := range b.Returns {
		chips = append(chips, chip{booking: bk, kind: calendar.EndpointEnd})
	}
	return chips
}

// Close releases the controller and search box.
func (m *Model) Close() {
	m.search.Close()
	m.ctrl.Close()
}

func clamp(value, lower, upper int) int {
	if upper < lower {
		return lower
	}
	if value < lower {
		return lower
	}
	if value > upper {
		return upper
	}
	return value
}
