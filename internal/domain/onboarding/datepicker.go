package onboarding

import (
	"strings"
	"time"

	crerr "github.com/cockroachdb/errors"
)

const (
	DateOfBirthLayout  = "02/01/2006"
	PickerYearSpan     = 100
	DefaultYearsBefore = 30
)

type PickerState int

const (
	PickerClosed PickerState = iota
	PickerYearOpen
	PickerDayOpen
)

func (s PickerState) String() string {
	switch s {
	case PickerClosed:
		return "closed"
	case PickerYearOpen:
		return "year_open"
	case PickerDayOpen:
		return "day_open"
	default:
		return "unknown"
	}
}

// DateSelection is what the picker currently has highlighted.
type DateSelection struct {
	SelectedYear int
	SelectedDate *time.Time
}

// DatePicker splits birth date entry into a year pick followed by a day pick.
// It never mutates a draft except through ConfirmDay.
type DatePicker struct {
	state    PickerState
	year     int
	working  time.Time
	selected *time.Time
	now      func() time.Time
}

func NewDatePicker(now func() time.Time) *DatePicker {
	if now == nil {
		now = time.Now
	}
	p := &DatePicker{now: now}
	p.year = p.currentYear() - DefaultYearsBefore
	return p
}

func (p *DatePicker) State() PickerState {
	return p.state
}

func (p *DatePicker) Selection() DateSelection {
	out := DateSelection{SelectedYear: p.year}
	if p.selected != nil {
		selected := *p.selected
		out.SelectedDate = &selected
	}
	return out
}

// Working is the date highlighted in the day phase.
func (p *DatePicker) Working() time.Time {
	return p.working
}

// Years lists selectable years from the current year down to 100 years back.
func (p *DatePicker) Years() []int {
	current := p.currentYear()
	out := make([]int, 0, PickerYearSpan+1)
	for y := current; y >= current-PickerYearSpan; y-- {
		out = append(out, y)
	}
	return out
}

func (p *DatePicker) Open() error {
	if p.state != PickerClosed {
		return crerr.Wrapf(ErrPickerState, "open from %s", p.state)
	}
	p.state = PickerYearOpen
	return nil
}

// ConfirmYear moves to the day phase seeded with January 1 of year.
func (p *DatePicker) ConfirmYear(year int) error {
	if p.state != PickerYearOpen {
		return crerr.Wrapf(ErrPickerState, "confirm year from %s", p.state)
	}
	current := p.currentYear()
	if year > current || year < current-PickerYearSpan {
		return crerr.Wrapf(ErrInvalidDate, "year %d outside %d..%d", year, current-PickerYearSpan, current)
	}
	p.year = year
	p.working = time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	p.state = PickerDayOpen
	return nil
}

// Back returns from the day phase to the year list.
func (p *DatePicker) Back() error {
	if p.state != PickerDayOpen {
		return crerr.Wrapf(ErrPickerState, "back from %s", p.state)
	}
	p.state = PickerYearOpen
	return nil
}

// Shift moves the working day, staying between the earliest offered year
// and today.
func (p *DatePicker) Shift(days int) {
	if p.state != PickerDayOpen {
		return
	}
	next := p.working.AddDate(0, 0, days)
	if today := p.today(); next.After(today) {
		next = today
	}
	if earliest := p.earliest(); next.Before(earliest) {
		next = earliest
	}
	p.working = next
}

// ConfirmDay commits date into the draft's date of birth and closes the picker.
// A date after today, or before the oldest year Years offers, leaves both the
// picker and the draft untouched.
func (p *DatePicker) ConfirmDay(draft ProfileDraft, date time.Time) (ProfileDraft, error) {
	if p.state != PickerDayOpen {
		return draft, crerr.Wrapf(ErrPickerState, "confirm day from %s", p.state)
	}
	day := calendarDay(date)
	if day.After(p.today()) {
		return draft, crerr.Wrapf(ErrFutureDateRejected, "%s", day.Format(DateOfBirthLayout))
	}
	if earliest := p.earliest(); day.Before(earliest) {
		return draft, crerr.Wrapf(ErrInvalidDate, "%s is before %s", day.Format(DateOfBirthLayout), earliest.Format(DateOfBirthLayout))
	}

	p.selected = &day
	p.year = day.Year()
	p.working = day
	p.state = PickerClosed
	return draft.WithDateOfBirth(FormatDateOfBirth(day)), nil
}

func (p *DatePicker) ConfirmWorking(draft ProfileDraft) (ProfileDraft, error) {
	return p.ConfirmDay(draft, p.working)
}

// Cancel closes the picker without committing. Safe to call in any state.
func (p *DatePicker) Cancel() {
	p.state = PickerClosed
}

// Reset forgets any selection, as on a new session.
func (p *DatePicker) Reset() {
	p.state = PickerClosed
	p.selected = nil
	p.working = time.Time{}
	p.year = p.currentYear() - DefaultYearsBefore
}

func (p *DatePicker) currentYear() int {
	return p.now().Year()
}

func (p *DatePicker) earliest() time.Time {
	return time.Date(p.currentYear()-PickerYearSpan, time.January, 1, 0, 0, 0, 0, time.UTC)
}

func (p *DatePicker) today() time.Time {
	return calendarDay(p.now())
}

func calendarDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func FormatDateOfBirth(t time.Time) string {
	return t.Format(DateOfBirthLayout)
}

func ParseDateOfBirth(raw string) (time.Time, error) {
	t, err := time.Parse(DateOfBirthLayout, strings.TrimSpace(raw))
	if err != nil {
		return time.Time{}, crerr.Wrapf(ErrInvalidDate, "parse %q", raw)
	}
	return t, nil
}

// CheckDateOfBirth rejects malformed values and dates after the day of now.
func CheckDateOfBirth(raw string, now time.Time) error {
	t, err := ParseDateOfBirth(raw)
	if err != nil {
		return err
	}
	if t.After(calendarDay(now)) {
		return crerr.Wrapf(ErrFutureDateRejected, "%s", raw)
	}
	return nil
}
