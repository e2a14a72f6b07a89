package usecase

import (
	"context"
	"strings"
	"sync"
	"time"

	crerr "github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"
	"github.com/riskibarqy/patient-onboarding/internal/domain/onboarding"
	"github.com/riskibarqy/patient-onboarding/internal/platform/logging"
)

// AuthGateway creates and looks up patient accounts.
type AuthGateway interface {
	CreateAccount(ctx context.Context, email, password string) (string, error)
	Lookup(ctx context.Context, email string) (string, error)
}

// ProfileStore persists the onboarding document keyed by user id.
type ProfileStore interface {
	Save(ctx context.Context, userID string, info onboarding.PersonalInformation) error
	Load(ctx context.Context, userID string) (onboarding.Profile, bool, error)
	MarkCompleted(ctx context.Context, userID string) error
}

// Navigator is the screen router the flow reports transitions to.
type Navigator interface {
	Advance(ctx context.Context, step onboarding.Step, userID string)
	Back(ctx context.Context, step onboarding.Step)
	Complete(ctx context.Context, userID string)
}

type noopNavigator struct{}

func (noopNavigator) Advance(context.Context, onboarding.Step, string) {}
func (noopNavigator) Back(context.Context, onboarding.Step)            {}
func (noopNavigator) Complete(context.Context, string)                 {}

type signupForm struct {
	Email    string `validate:"required,email"`
	Password string `validate:"required,min=6"`
	Confirm  string `validate:"required,eqfield=Password"`
}

// StepController owns the account -> personal -> health state machine for a
// single onboarding session. The lock is never held across collaborator calls.
type StepController struct {
	auth      AuthGateway
	store     ProfileStore
	navigator Navigator
	session   *SessionObserver
	logger    *logging.Logger
	validate  *validator.Validate
	now       func() time.Time

	mu         sync.Mutex
	draft      onboarding.ProfileDraft
	state      onboarding.StepState
	picker     *onboarding.DatePicker
	pending    bool
	generation uint64

	// beforeApply runs after a collaborator call returned and before its
	// result is applied. Tests use it to interleave session changes.
	beforeApply func()
}

type StepControllerOption func(*StepController)

func WithNavigator(navigator Navigator) StepControllerOption {
	return func(c *StepController) {
		if navigator != nil {
			c.navigator = navigator
		}
	}
}

func WithSessionObserver(session *SessionObserver) StepControllerOption {
	return func(c *StepController) {
		if session != nil {
			c.session = session
		}
	}
}

func WithClock(now func() time.Time) StepControllerOption {
	return func(c *StepController) {
		if now != nil {
			c.now = now
		}
	}
}

func NewStepController(auth AuthGateway, store ProfileStore, logger *logging.Logger, opts ...StepControllerOption) *StepController {
	if logger == nil {
		logger = logging.Default()
	}
	c := &StepController{
		auth:      auth,
		store:     store,
		navigator: noopNavigator{},
		logger:    logger,
		validate:  validator.New(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.session == nil {
		c.session = NewSessionObserver(logger)
	}
	c.picker = onboarding.NewDatePicker(c.now)
	c.session.Subscribe(c)
	return c
}

func (c *StepController) Draft() onboarding.ProfileDraft {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.draft
}

func (c *StepController) State() onboarding.StepState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *StepController) Pending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending
}

// UpdateDraft replaces the draft with fn's result. Edits are refused while a
// submission is in flight.
func (c *StepController) UpdateDraft(fn func(onboarding.ProfileDraft) onboarding.ProfileDraft) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pending {
		return onboarding.ErrSubmissionInFlight
	}
	c.draft = fn(c.draft)
	return nil
}

// CreateAccount registers a new account and moves the session to the personal step.
func (c *StepController) CreateAccount(ctx context.Context, email, password, confirm string) error {
	ctx, span := startUsecaseSpan(ctx, "usecase.StepController.CreateAccount")
	defer span.End()

	form := signupForm{Email: strings.TrimSpace(email), Password: password, Confirm: confirm}
	if err := c.validate.StructCtx(ctx, form); err != nil {
		return crerr.Wrapf(ErrInvalidInput, "%s", signupValidationMessage(err))
	}

	gen, err := c.begin(onboarding.StepAccount)
	if err != nil {
		return err
	}
	userID, err := c.auth.CreateAccount(ctx, form.Email, form.Password)
	if err := c.verify(gen, err); err != nil {
		return crerr.Wrap(err, "create account")
	}
	if err := c.bindUser(ctx, userID, onboarding.ProfileDraft{}, onboarding.StepPersonal, false); err != nil {
		return crerr.Wrap(err, "create account")
	}
	c.navigator.Advance(ctx, onboarding.StepPersonal, userID)
	return nil
}

// SignIn resolves an existing account and resumes onboarding from the stored profile.
func (c *StepController) SignIn(ctx context.Context, email string) error {
	ctx, span := startUsecaseSpan(ctx, "usecase.StepController.SignIn")
	defer span.End()

	email = strings.TrimSpace(email)
	if err := c.validate.VarCtx(ctx, email, "required,email"); err != nil {
		return crerr.Wrap(ErrInvalidInput, "a valid email is required")
	}

	gen, err := c.begin(onboarding.StepAccount)
	if err != nil {
		return err
	}
	userID, err := c.auth.Lookup(ctx, email)
	var (
		profile onboarding.Profile
		exists  bool
	)
	if err == nil {
		profile, exists, err = c.store.Load(ctx, userID)
	}
	if err := c.verify(gen, err); err != nil {
		return crerr.Wrap(err, "sign in")
	}

	next := onboarding.StepPersonal
	draft := onboarding.ProfileDraft{}
	completed := false
	if exists && profile.HasPersonal() {
		draft = profile.Draft()
		next = onboarding.StepHealth
		completed = profile.OnboardingCompleted
	}
	if err := c.bindUser(ctx, userID, draft, next, completed); err != nil {
		return crerr.Wrap(err, "sign in")
	}
	c.navigator.Advance(ctx, next, userID)
	return nil
}

// SubmitPersonal saves the personal step and, only once the save succeeded,
// advances to the health step.
func (c *StepController) SubmitPersonal(ctx context.Context) error {
	ctx, span := startUsecaseSpan(ctx, "usecase.StepController.SubmitPersonal")
	defer span.End()

	c.mu.Lock()
	if c.pending {
		c.mu.Unlock()
		return onboarding.ErrSubmissionInFlight
	}
	state, draft, gen := c.state, c.draft, c.generation
	if !state.HasUser() {
		c.mu.Unlock()
		c.logger.ErrorContext(ctx, "personal step submitted without a user",
			"step", state.Current.String(),
		)
		return crerr.WithStack(onboarding.ErrMissingUserContext)
	}
	if state.Current != onboarding.StepPersonal {
		c.mu.Unlock()
		return crerr.Wrapf(onboarding.ErrInvalidTransition, "submit personal from %s", state.Current)
	}
	next, err := onboarding.ValidateAndAdvance(draft, state.Current)
	if err != nil {
		c.mu.Unlock()
		return err
	}
	if err := onboarding.CheckDateOfBirth(draft.DateOfBirth, c.now()); err != nil {
		c.mu.Unlock()
		return err
	}
	c.pending = true
	c.mu.Unlock()

	saveErr := c.store.Save(ctx, state.UserID, onboarding.Snapshot(draft, c.now()))
	err = c.finish(gen, saveErr, func() { c.state.Current = next })
	if err != nil {
		if !crerr.Is(err, onboarding.ErrSessionChanged) {
			c.logger.WarnContext(ctx, "save personal information failed",
				"user_id", state.UserID,
				"error", err,
			)
		}
		return crerr.Wrap(err, "save personal information")
	}

	c.navigator.Advance(ctx, next, state.UserID)
	return nil
}

// CompleteHealth finishes onboarding for the bound user.
func (c *StepController) CompleteHealth(ctx context.Context) error {
	ctx, span := startUsecaseSpan(ctx, "usecase.StepController.CompleteHealth")
	defer span.End()

	c.mu.Lock()
	if c.pending {
		c.mu.Unlock()
		return onboarding.ErrSubmissionInFlight
	}
	state, gen := c.state, c.generation
	if !state.HasUser() {
		c.mu.Unlock()
		c.logger.ErrorContext(ctx, "health step submitted without a user")
		return crerr.WithStack(onboarding.ErrMissingUserContext)
	}
	if state.Current != onboarding.StepHealth {
		c.mu.Unlock()
		return crerr.Wrapf(onboarding.ErrInvalidTransition, "complete from %s", state.Current)
	}
	c.pending = true
	c.mu.Unlock()

	err := c.store.MarkCompleted(ctx, state.UserID)
	if err := c.finish(gen, err, func() { c.state.Completed = true }); err != nil {
		return crerr.Wrap(err, "complete onboarding")
	}

	c.navigator.Complete(ctx, state.UserID)
	return nil
}

// Back moves to the previous step and keeps everything typed so far.
func (c *StepController) Back(ctx context.Context) error {
	c.mu.Lock()
	if c.pending {
		c.mu.Unlock()
		return onboarding.ErrSubmissionInFlight
	}
	prev, ok := onboarding.Previous(c.state.Current)
	if !ok {
		current := c.state.Current
		c.mu.Unlock()
		return crerr.Wrapf(onboarding.ErrInvalidTransition, "no step before %s", current)
	}
	c.state.Current = prev
	c.state.Completed = false
	c.picker.Cancel()
	c.mu.Unlock()

	c.navigator.Back(ctx, prev)
	return nil
}

// SignOut clears the active identity, which resets the session.
func (c *StepController) SignOut(ctx context.Context) {
	c.session.Observe(ctx, "")
}

// OnSessionChanged resets the draft and step state for the new identity.
// A save already in flight finishes against the old id but is not applied.
func (c *StepController) OnSessionChanged(ctx context.Context, previous, current string) {
	c.mu.Lock()
	c.generation++
	c.draft = onboarding.ProfileDraft{}
	c.state = onboarding.StepState{Current: onboarding.StepAccount, UserID: current}
	c.pending = false
	c.picker.Reset()
	c.mu.Unlock()

	c.logger.DebugContext(ctx, "onboarding session reset",
		"previous_user_id", previous,
		"user_id", current,
	)
}

func (c *StepController) OpenDatePicker() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.picker.Open()
}

func (c *StepController) PickerYears() []int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.picker.Years()
}

func (c *StepController) PickerState() onboarding.PickerState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.picker.State()
}

func (c *StepController) PickerSelection() onboarding.DateSelection {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.picker.Selection()
}

func (c *StepController) PickerWorking() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.picker.Working()
}

func (c *StepController) ConfirmYear(year int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.picker.ConfirmYear(year)
}

func (c *StepController) PickerBack() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.picker.Back()
}

func (c *StepController) ShiftDay(days int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.picker.Shift(days)
}

// ConfirmDay commits date as the draft's date of birth.
func (c *StepController) ConfirmDay(date time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pending {
		return onboarding.ErrSubmissionInFlight
	}
	draft, err := c.picker.ConfirmDay(c.draft, date)
	if err != nil {
		return err
	}
	c.draft = draft
	return nil
}

func (c *StepController) ConfirmWorkingDay() error {
	c.mu.Lock()
	working := c.picker.Working()
	c.mu.Unlock()
	return c.ConfirmDay(working)
}

func (c *StepController) CancelDatePicker() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.picker.Cancel()
}

// begin marks a collaborator call as pending when the session is on step.
func (c *StepController) begin(step onboarding.Step) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pending {
		return 0, onboarding.ErrSubmissionInFlight
	}
	if c.state.Current != step {
		return 0, crerr.Wrapf(onboarding.ErrInvalidTransition, "expected %s, at %s", step, c.state.Current)
	}
	c.pending = true
	return c.generation, nil
}

// verify checks a collaborator result without leaving the pending state, so
// the caller can still bind the session to a new user.
func (c *StepController) verify(gen uint64, callErr error) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.generation != gen {
		return onboarding.ErrSessionChanged
	}
	if callErr != nil {
		c.pending = false
	}
	return callErr
}

// finish clears the pending flag and, on success, runs apply under the same
// lock as the generation check. A reset in between is never overwritten.
func (c *StepController) finish(gen uint64, callErr error, apply func()) error {
	if c.beforeApply != nil {
		c.beforeApply()
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.generation != gen {
		return onboarding.ErrSessionChanged
	}
	c.pending = false
	if callErr != nil {
		return callErr
	}
	apply()
	return nil
}

// bindUser switches the session to userID and lands it on step. It must be
// called while the caller still holds the pending flag from begin.
func (c *StepController) bindUser(ctx context.Context, userID string, draft onboarding.ProfileDraft, step onboarding.Step, completed bool) error {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		c.mu.Lock()
		c.pending = false
		c.mu.Unlock()
		return crerr.WithStack(onboarding.ErrMissingUserContext)
	}

	c.session.Observe(ctx, userID)
	if c.beforeApply != nil {
		c.beforeApply()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.UserID != userID {
		return onboarding.ErrSessionChanged
	}
	// calls begun while the reset had cleared pending belong to the old session
	c.generation++
	c.pending = false
	c.draft = draft
	c.state = onboarding.StepState{Current: step, UserID: userID, Completed: completed}
	return nil
}

func signupValidationMessage(err error) string {
	var validationErrs validator.ValidationErrors
	if !crerr.As(err, &validationErrs) || len(validationErrs) == 0 {
		return "invalid signup form"
	}
	switch first := validationErrs[0]; {
	case first.Field() == "Email" && first.Tag() == "required",
		first.Field() == "Password" && first.Tag() == "required",
		first.Field() == "Confirm" && first.Tag() == "required":
		return "please fill in all fields"
	case first.Field() == "Email":
		return "please enter a valid email address"
	case first.Field() == "Password":
		return "password must be at least 6 characters"
	case first.Field() == "Confirm":
		return "passwords do not match"
	default:
		return "invalid signup form"
	}
}
