package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/EpicMandM/station-calendar/internal/calendar"
	"github.com/EpicMandM/station-calendar/internal/dates"
	"github.com/EpicMandM/station-calendar/internal/models"
)

const (
	columnWidth = 18
	maxResults  = 8
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true)
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	hintStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	selectedItem = lipgloss.NewStyle().Reverse(true)
	inputStyle   = lipgloss.NewStyle().Border(lipgloss.NormalBorder()).Padding(0, 1).Width(40)
	dayStyle     = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1).Width(columnWidth)
	focusedDay   = dayStyle.BorderForeground(lipgloss.Color("39"))
	chipStyle    = lipgloss.NewStyle().Border(lipgloss.NormalBorder(), false, false, false, true).PaddingLeft(1)
	focusedChip  = chipStyle.BorderForeground(lipgloss.Color("39")).Bold(true)
)

// View implements tea.Model.
func (m *Model) View() string {
	if m.route().Page == PageDetail {
		return m.detailView()
	}
	return m.calendarView()
}

func (m *Model) calendarView() string {
	snap := m.ctrl.Snapshot()
	var b strings.Builder

	b.WriteString(titleStyle.Render(m.ctrl.StationLabel()))
	b.WriteString("\n")
	b.WriteString(m.searchView())
	b.WriteString("\n")

	nav := strings.Join([]string{"◀︎ Prev", "This week", "Next ▶︎"}, "   ")
	b.WriteString(nav + "   " + mutedStyle.Render(dates.FormatRange(snap.Days)))
	b.WriteString("\n")

	cols := make([]string, len(snap.Days))
	for i, day := range snap.Days {
		cols[i] = m.dayColumn(i, m.ctrl.BucketForDay(day))
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, cols...))
	b.WriteString("\n")

	b.WriteString(statusLine(snap, m.status))
	b.WriteString("\n")
	b.WriteString(mutedStyle.Render(m.help()))
	return b.String()
}

func (m *Model) searchView() string {
	s := m.search.Session()
	text := s.RawQuery
	if text == "" {
		text = mutedStyle.Render(m.search.Placeholder())
	}
	if m.focus == focusSearch {
		text += "▏"
	}
	out := inputStyle.Render(text)
	if !s.Open {
		return out
	}

	var lines []string
	switch {
	case s.Loading && len(s.Results) == 0:
		lines = append(lines, mutedStyle.Render("Loading…"))
	case s.NoResults():
		lines = append(lines, mutedStyle.Render("No results"))
	default:
		for i, st := range s.Results {
			if i == maxResults {
				lines = append(lines, mutedStyle.Render("…"))
				break
			}
			label := m.search.Label(st)
			if i == m.cursor && m.focus == focusSearch {
				label = selectedItem.Render(label)
			}
			lines = append(lines, "  "+label)
		}
	}
	return out + "\n" + strings.Join(lines, "\n")
}

func (m *Model) dayColumn(index int, bucket models.DayBucket) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(dates.FormatWeekday(bucket.Day)) + " " + dates.FormatDate(bucket.Day))

	chips := chipsFor(bucket)
	section := calendar.Endpoint("")
	for i, c := range chips {
		if c.kind != section {
			section = c.kind
			b.WriteString("\n" + mutedStyle.Render(sectionTitle(c.kind)))
		}
		style := chipStyle
		if index == m.day && i == m.chip {
			style = focusedChip
		}
		b.WriteString("\n" + style.Render(chipText(c.booking)))
	}
	if len(chips) == 0 {
		b.WriteString("\n" + mutedStyle.Render("-"))
	}

	if index == m.day {
		return focusedDay.Render(b.String())
	}
	return dayStyle.Render(b.String())
}

func sectionTitle(kind calendar.Endpoint) string {
	if kind == calendar.EndpointEnd {
		return "Returns"
	}
	return "Pickups"
}

func chipText(b models.Booking) string {
	return b.CustomerName + "\n" + mutedStyle.Render("Booking #"+b.ID)
}

func statusLine(snap calendar.Snapshot, status string) string {
	switch {
	case snap.Err != nil:
		return errorStyle.Render(snap.Err.Message())
	case snap.Loading:
		return mutedStyle.Render("Loading…")
	}
	if d, ok := snap.Drag.(calendar.DraggingEndpoint); ok {
		return hintStyle.Render(d.Hint())
	}
	return status
}

func (m *Model) help() string {
	if m.focus == focusSearch {
		return "type to search • ↑/↓ choose • enter select • esc close"
	}
	if _, ok := m.ctrl.Drag().(calendar.DraggingEndpoint); ok {
		return "←/→ day • enter drop • esc cancel"
	}
	return "/ search • [ ] week • t today • ←/→ day • tab booking • p/r move pickup/return • o details • x export • q quit"
}

func (m *Model) detailView() string {
	var b strings.Builder
	switch {
	case m.detailLoading:
		b.WriteString("Loading booking…")
	case m.detailErr != nil:
		b.WriteString(errorStyle.Render("Failed to load booking: " + m.detailErr.Error()))
	case m.detail == nil:
		b.WriteString("Booking not found.")
	default:
		d := m.detail
		b.WriteString(titleStyle.Render("Booking #"+d.Booking.ID) + "\n\n")
		rows := [][2]string{
			{"Customer", d.Booking.CustomerName},
			{"Booking ID", d.Booking.ID},
			{"Start date", dates.FormatLong(d.Booking.StartDate)},
			{"End date", dates.FormatLong(d.Booking.EndDate)},
			{"Duration", d.DurationLabel()},
			{"Pickup & Return Station", d.StationName},
		}
		for _, r := range rows {
			b.WriteString(mutedStyle.Width(26).Render(r[0]) + r[1] + "\n")
		}
	}
	b.WriteString("\n\n" + mutedStyle.Render("← Back to calendar (b)"))
	return b.String()
}
