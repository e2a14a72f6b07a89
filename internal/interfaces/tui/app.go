// Package tui is the terminal front end of the onboarding wizard. It renders
// the StepController's state and forwards key presses to it.
package tui

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	crerr "github.com/cockroachdb/errors"

	"github.com/riskibarqy/patient-onboarding/internal/domain/onboarding"
	"github.com/riskibarqy/patient-onboarding/internal/platform/logging"
	"github.com/riskibarqy/patient-onboarding/internal/usecase"
)

// appState is the screen currently shown.
type appState int

const (
	stateAccount appState = iota
	statePersonal
	stateHealth
	stateHome
)

type accountMode int

const (
	modeSignUp accountMode = iota
	modeSignIn
)

const (
	fieldEmail = iota
	fieldPassword
	fieldConfirm
)

const (
	fieldFullName = iota
	fieldNationalID
	fieldGender
	fieldAddress
	fieldContactNumber
)

const defaultTimeout = 10 * time.Second

// HomeLoader fetches the summary shown once onboarding is complete.
type HomeLoader interface {
	Home(ctx context.Context, userID string) (usecase.HomeSummary, error)
}

// AppOption customizes App construction for tests and alternate runtimes.
type AppOption func(*App)

// WithClock overrides the clock used by the date picker and validation.
func WithClock(now func() time.Time) AppOption {
	return func(a *App) {
		if now != nil {
			a.now = now
		}
	}
}

// WithTimeout bounds every call made to the auth gateway and profile store.
func WithTimeout(d time.Duration) AppOption {
	return func(a *App) {
		if d > 0 {
			a.timeout = d
		}
	}
}

type opResultMsg struct {
	op  string
	err error
	nav []navEvent
}

type homeLoadedMsg struct {
	summary usecase.HomeSummary
	err     error
}

type yearItem int

func (y yearItem) Title() string       { return strconv.Itoa(int(y)) }
func (y yearItem) Description() string { return "" }
func (y yearItem) FilterValue() string { return strconv.Itoa(int(y)) }

type App struct {
	ctx        context.Context
	controller *usecase.StepController
	nav        *recordingNavigator
	home       HomeLoader
	logger     *logging.Logger
	now        func() time.Time
	timeout    time.Duration

	state    appState
	mode     accountMode
	account  []textinput.Model
	personal []textinput.Model
	focus    int
	years    list.Model
	spinner  spinner.Model
	busy     bool
	errMsg   string
	status   string
	summary  *usecase.HomeSummary

	width  int
	height int
}

func New(ctx context.Context, auth usecase.AuthGateway, store usecase.ProfileStore, home HomeLoader, logger *logging.Logger, opts ...AppOption) *App {
	if ctx == nil {
		ctx = context.Background()
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	delegate := list.NewDefaultDelegate()
	delegate.ShowDescription = false
	delegate.SetSpacing(0)
	years := list.New(nil, delegate, 30, 14)
	years.Title = "Year of birth"
	years.SetShowStatusBar(false)
	years.DisableQuitKeybindings()

	a := &App{
		ctx:      ctx,
		nav:      &recordingNavigator{},
		home:     home,
		logger:   logger,
		now:      time.Now,
		timeout:  defaultTimeout,
		state:    stateAccount,
		account:  newAccountInputs(),
		personal: newPersonalInputs(),
		years:    years,
		spinner:  spinner.New(spinner.WithSpinner(spinner.Dot)),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(a)
		}
	}
	a.controller = usecase.NewStepController(auth, store, logger,
		usecase.WithNavigator(a.nav),
		usecase.WithClock(a.now),
	)
	a.setFocus(fieldEmail)
	return a
}

func newInput(placeholder string, limit int) textinput.Model {
	in := textinput.New()
	in.Placeholder = placeholder
	in.CharLimit = limit
	in.Prompt = ""
	in.Cursor.SetMode(cursor.CursorStatic)
	return in
}

func newAccountInputs() []textinput.Model {
	email := newInput("you@example.com", 254)
	password := newInput("at least 6 characters", 128)
	password.EchoMode = textinput.EchoPassword
	confirm := newInput("repeat password", 128)
	confirm.EchoMode = textinput.EchoPassword
	return []textinput.Model{email, password, confirm}
}

func newPersonalInputs() []textinput.Model {
	return []textinput.Model{
		newInput("Jane Doe", 120),
		newInput("national id number", 32),
		newInput("male / female / other", 10),
		newInput("optional", 200),
		newInput("optional", 32),
	}
}

func (a *App) Init() tea.Cmd {
	return tea.SetWindowTitle("Patient onboarding")
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.years.SetSize(max(20, msg.Width-6), max(6, msg.Height-12))
		return a, nil

	case spinner.TickMsg:
		if !a.busy {
			return a, nil
		}
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd

	case opResultMsg:
		return a, a.finishOp(msg)

	case homeLoadedMsg:
		a.busy = false
		if msg.err != nil {
			a.errMsg = friendlyError(msg.err)
			a.logger.WarnContext(a.ctx, "load home summary failed", "error", msg.err)
			return a, nil
		}
		summary := msg.summary
		a.summary = &summary
		return a, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return a, tea.Quit
		}
		// the controller refuses edits while a call is pending anyway
		if a.busy {
			return a, nil
		}
		return a.handleKey(msg)
	}
	return a, nil
}

func (a *App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch a.state {
	case stateAccount:
		return a.handleAccountKey(msg)
	case statePersonal:
		if a.controller.PickerState() != onboarding.PickerClosed {
			return a.handlePickerKey(msg)
		}
		return a.handlePersonalKey(msg)
	case stateHealth:
		return a.handleHealthKey(msg)
	case stateHome:
		return a.handleHomeKey(msg)
	}
	return a, nil
}

func (a *App) handleAccountKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "tab", "down":
		return a, a.cycleFocus(1)
	case "shift+tab", "up":
		return a, a.cycleFocus(-1)
	case "ctrl+t":
		if a.mode == modeSignUp {
			a.mode = modeSignIn
		} else {
			a.mode = modeSignUp
		}
		a.errMsg = ""
		return a, a.setFocus(fieldEmail)
	case "enter":
		return a, a.submitAccount()
	}
	return a, a.updateFocused(msg)
}

func (a *App) handlePersonalKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "tab", "down":
		return a, a.cycleFocus(1)
	case "shift+tab", "up":
		return a, a.cycleFocus(-1)
	case "ctrl+d":
		return a, a.openPicker()
	case "enter":
		if err := a.syncDraft(); err != nil {
			a.errMsg = friendlyError(err)
			return a, nil
		}
		return a, a.run("submit_personal", a.controller.SubmitPersonal)
	case "esc":
		if err := a.syncDraft(); err != nil {
			a.errMsg = friendlyError(err)
			return a, nil
		}
		return a, a.back()
	case "ctrl+o":
		return a, a.signOut()
	}
	return a, a.updateFocused(msg)
}

func (a *App) handlePickerKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	switch a.controller.PickerState() {
	case onboarding.PickerYearOpen:
		if a.years.FilterState() == list.Filtering || (key == "esc" && a.years.FilterState() == list.FilterApplied) {
			var cmd tea.Cmd
			a.years, cmd = a.years.Update(msg)
			return a, cmd
		}
		switch key {
		case "enter":
			item, ok := a.years.SelectedItem().(yearItem)
			if !ok {
				return a, nil
			}
			if err := a.controller.ConfirmYear(int(item)); err != nil {
				a.errMsg = friendlyError(err)
				return a, nil
			}
			a.errMsg = ""
			return a, nil
		case "esc":
			a.controller.CancelDatePicker()
			return a, nil
		}
		var cmd tea.Cmd
		a.years, cmd = a.years.Update(msg)
		return a, cmd

	case onboarding.PickerDayOpen:
		switch key {
		case "left", "h":
			a.controller.ShiftDay(-1)
		case "right", "l":
			a.controller.ShiftDay(1)
		case "up", "k":
			a.controller.ShiftDay(-7)
		case "down", "j":
			a.controller.ShiftDay(7)
		case "pgup", "[":
			a.shiftMonth(-1)
		case "pgdown", "]":
			a.shiftMonth(1)
		case "enter":
			if err := a.controller.ConfirmWorkingDay(); err != nil {
				a.errMsg = friendlyError(err)
				return a, nil
			}
			a.errMsg = ""
			a.status = "Date of birth set to " + a.controller.Draft().DateOfBirth
		case "esc", "backspace":
			if err := a.controller.PickerBack(); err != nil {
				a.errMsg = friendlyError(err)
			}
		}
	}
	return a, nil
}

func (a *App) handleHealthKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		return a, a.run("complete_health", a.controller.CompleteHealth)
	case "esc":
		return a, a.back()
	case "ctrl+o":
		return a, a.signOut()
	}
	return a, nil
}

func (a *App) handleHomeKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "r":
		return a, a.showHome(a.controller.State().UserID)
	case "ctrl+o":
		return a, a.signOut()
	case "q":
		return a, tea.Quit
	}
	return a, nil
}

func (a *App) submitAccount() tea.Cmd {
	email := a.account[fieldEmail].Value()
	if a.mode == modeSignIn {
		return a.run("sign_in", func(ctx context.Context) error {
			return a.controller.SignIn(ctx, email)
		})
	}
	password := a.account[fieldPassword].Value()
	confirm := a.account[fieldConfirm].Value()
	return a.run("create_account", func(ctx context.Context) error {
		return a.controller.CreateAccount(ctx, email, password, confirm)
	})
}

// syncDraft copies the personal form into the controller's draft. Gender is
// stored as typed and checked on submit.
func (a *App) syncDraft() error {
	in := a.personal
	return a.controller.UpdateDraft(func(d onboarding.ProfileDraft) onboarding.ProfileDraft {
		return d.
			WithFullName(in[fieldFullName].Value()).
			WithNationalID(in[fieldNationalID].Value()).
			WithGender(onboarding.Gender(strings.ToLower(strings.TrimSpace(in[fieldGender].Value())))).
			WithAddress(in[fieldAddress].Value()).
			WithContactNumber(in[fieldContactNumber].Value())
	})
}

func (a *App) fillPersonal(d onboarding.ProfileDraft) {
	a.personal[fieldFullName].SetValue(d.FullName)
	a.personal[fieldNationalID].SetValue(d.NationalID)
	a.personal[fieldGender].SetValue(string(d.Gender))
	a.personal[fieldAddress].SetValue(d.Address)
	a.personal[fieldContactNumber].SetValue(d.ContactNumber)
}

func (a *App) openPicker() tea.Cmd {
	if err := a.controller.OpenDatePicker(); err != nil {
		a.errMsg = friendlyError(err)
		return nil
	}
	a.errMsg = ""

	target := a.controller.PickerSelection().SelectedYear
	years := a.controller.PickerYears()
	items := make([]list.Item, len(years))
	selected := 0
	for i, y := range years {
		items[i] = yearItem(y)
		if y == target {
			selected = i
		}
	}
	a.years.ResetFilter()
	cmd := a.years.SetItems(items)
	a.years.Select(selected)
	return cmd
}

func (a *App) shiftMonth(delta int) {
	working := a.controller.PickerWorking()
	target := working.AddDate(0, delta, 0)
	a.controller.ShiftDay(int(target.Sub(working).Hours() / 24))
}

// run executes fn off the update loop and reports back with an opResultMsg.
func (a *App) run(op string, fn func(context.Context) error) tea.Cmd {
	a.busy = true
	a.errMsg = ""
	a.status = ""
	call := func() tea.Msg {
		ctx, cancel := context.WithTimeout(a.ctx, a.timeout)
		defer cancel()
		err := fn(ctx)
		return opResultMsg{op: op, err: err, nav: a.nav.drain()}
	}
	return tea.Batch(call, a.spinner.Tick)
}

func (a *App) finishOp(msg opResultMsg) tea.Cmd {
	a.busy = false
	if msg.err != nil {
		a.errMsg = friendlyError(msg.err)
		a.logger.WarnContext(a.ctx, "onboarding step failed",
			"op", msg.op,
			"error", msg.err,
		)
	}
	return a.applyNavigation(msg.nav)
}

func (a *App) back() tea.Cmd {
	if err := a.controller.Back(a.ctx); err != nil {
		a.errMsg = friendlyError(err)
		return nil
	}
	a.errMsg = ""
	return a.applyNavigation(a.nav.drain())
}

func (a *App) signOut() tea.Cmd {
	a.controller.SignOut(a.ctx)
	a.nav.drain()

	a.account = newAccountInputs()
	a.personal = newPersonalInputs()
	a.summary = nil
	a.errMsg = ""
	a.status = "Signed out"
	a.mode = modeSignIn
	a.state = stateAccount
	return a.setFocus(fieldEmail)
}

func (a *App) applyNavigation(events []navEvent) tea.Cmd {
	var cmds []tea.Cmd
	for _, ev := range events {
		if ev.kind == navComplete {
			cmds = append(cmds, a.showHome(ev.userID))
			continue
		}
		cmds = append(cmds, a.enterStep(ev.step))
	}
	return tea.Batch(cmds...)
}

func (a *App) enterStep(step onboarding.Step) tea.Cmd {
	switch step {
	case onboarding.StepAccount:
		a.state = stateAccount
		return a.setFocus(fieldEmail)
	case onboarding.StepPersonal:
		a.state = statePersonal
		a.fillPersonal(a.controller.Draft())
		return a.setFocus(fieldFullName)
	case onboarding.StepHealth:
		if st := a.controller.State(); st.Completed {
			return a.showHome(st.UserID)
		}
		a.state = stateHealth
	}
	return nil
}

func (a *App) showHome(userID string) tea.Cmd {
	a.state = stateHome
	a.summary = nil
	if a.home == nil || userID == "" {
		return nil
	}
	a.busy = true
	load := func() tea.Msg {
		ctx, cancel := context.WithTimeout(a.ctx, a.timeout)
		defer cancel()
		summary, err := a.home.Home(ctx, userID)
		return homeLoadedMsg{summary: summary, err: err}
	}
	return tea.Batch(load, a.spinner.Tick)
}

func (a *App) activeInputs() []textinput.Model {
	switch a.state {
	case stateAccount:
		if a.mode == modeSignIn {
			return a.account[:fieldEmail+1]
		}
		return a.account
	case statePersonal:
		return a.personal
	default:
		return nil
	}
}

func (a *App) setFocus(i int) tea.Cmd {
	inputs := a.activeInputs()
	var cmd tea.Cmd
	for j := range inputs {
		if j == i {
			cmd = inputs[j].Focus()
			continue
		}
		inputs[j].Blur()
	}
	a.focus = i
	return cmd
}

func (a *App) cycleFocus(delta int) tea.Cmd {
	n := len(a.activeInputs())
	if n == 0 {
		return nil
	}
	return a.setFocus((a.focus + delta + n) % n)
}

func (a *App) updateFocused(msg tea.Msg) tea.Cmd {
	inputs := a.activeInputs()
	if a.focus < 0 || a.focus >= len(inputs) {
		return nil
	}
	var cmd tea.Cmd
	inputs[a.focus], cmd = inputs[a.focus].Update(msg)
	return cmd
}

var operationPrefixes = map[string]struct{}{
	"create account":                {},
	"sign in":                       {},
	"save personal information":     {},
	"complete onboarding":           {},
	usecase.ErrInvalidInput.Error(): {},
	usecase.ErrUnauthorized.Error(): {},
	usecase.ErrConflict.Error():     {},
	usecase.ErrNotFound.Error():     {},
}

func friendlyError(err error) string {
	var missing *onboarding.ValidationError
	switch {
	case crerr.As(err, &missing):
		return "Please fill in: " + strings.Join(missing.Fields, ", ")
	case crerr.Is(err, onboarding.ErrFutureDateRejected):
		return "Date of birth cannot be in the future"
	case crerr.Is(err, onboarding.ErrInvalidGender):
		return "Gender must be one of male, female or other"
	case crerr.Is(err, onboarding.ErrSubmissionInFlight):
		return "Still saving, please wait"
	case crerr.Is(err, onboarding.ErrSessionChanged):
		return "Your session changed, please try again"
	case crerr.Is(err, usecase.ErrDependencyUnavailable):
		return "Service is unavailable, please try again later"
	case crerr.Is(err, usecase.ErrNotFound):
		return "No account found for that email"
	}

	for _, part := range strings.Split(err.Error(), ": ") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if _, skip := operationPrefixes[part]; skip {
			continue
		}
		return strings.ToUpper(part[:1]) + part[1:]
	}
	return "Something went wrong"
}
