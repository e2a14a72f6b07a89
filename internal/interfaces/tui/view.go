package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/riskibarqy/patient-onboarding/internal/domain/onboarding"
)

var (
	appStyle      = lipgloss.NewStyle().Padding(1, 2)
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7D56F4"))
	headingStyle  = lipgloss.NewStyle().Bold(true).MarginBottom(1)
	labelStyle    = lipgloss.NewStyle().Width(16).Foreground(lipgloss.Color("244"))
	activeStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#04B575"))
	mutedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	selectedStyle = lipgloss.NewStyle().Reverse(true)
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5F87"))
	statusStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#04B575"))
)

var stepLabels = []struct {
	step  onboarding.Step
	label string
}{
	{onboarding.StepAccount, "Account"},
	{onboarding.StepPersonal, "Personal"},
	{onboarding.StepHealth, "Health"},
}

func (a *App) View() string {
	var body string
	switch a.state {
	case stateAccount:
		body = a.viewAccount()
	case statePersonal:
		switch a.controller.PickerState() {
		case onboarding.PickerYearOpen:
			body = a.years.View()
		case onboarding.PickerDayOpen:
			body = a.viewCalendar()
		default:
			body = a.viewPersonal()
		}
	case stateHealth:
		body = a.viewHealth()
	case stateHome:
		body = a.viewHome()
	}

	parts := []string{titleStyle.Render("Patient onboarding"), a.viewProgress(), "", body, ""}
	if a.busy {
		parts = append(parts, a.spinner.View()+" Working...")
	}
	if a.errMsg != "" {
		parts = append(parts, errorStyle.Render(a.errMsg))
	}
	if a.status != "" {
		parts = append(parts, statusStyle.Render(a.status))
	}
	parts = append(parts, mutedStyle.Render(a.helpLine()))
	return appStyle.Render(lipgloss.JoinVertical(lipgloss.Left, parts...))
}

func (a *App) viewProgress() string {
	current := a.controller.State().Current
	labels := make([]string, 0, len(stepLabels))
	for _, s := range stepLabels {
		switch {
		case a.state == stateHome:
			labels = append(labels, mutedStyle.Render(s.label+" ✓"))
		case s.step == current:
			labels = append(labels, activeStyle.Render(s.label))
		default:
			labels = append(labels, mutedStyle.Render(s.label))
		}
	}
	return strings.Join(labels, mutedStyle.Render(" › "))
}

func (a *App) viewAccount() string {
	var b strings.Builder
	if a.mode == modeSignIn {
		b.WriteString(headingStyle.Render("Sign in"))
	} else {
		b.WriteString(headingStyle.Render("Create your account"))
	}
	b.WriteString("\n")

	labels := []string{"Email", "Password", "Confirm"}
	for i, in := range a.activeInputs() {
		b.WriteString(labelStyle.Render(labels[i]) + in.View() + "\n")
	}
	return b.String()
}

func (a *App) viewPersonal() string {
	var b strings.Builder
	b.WriteString(headingStyle.Render("Personal information"))
	b.WriteString("\n")

	labels := []string{"Full name", "National ID", "Gender", "Address", "Contact number"}
	for i, in := range a.personal {
		b.WriteString(labelStyle.Render(labels[i]) + in.View() + "\n")
	}

	dob := a.controller.Draft().DateOfBirth
	if dob == "" {
		dob = mutedStyle.Render("not set")
	}
	b.WriteString(labelStyle.Render("Date of birth") + dob + "\n")
	return b.String()
}

func (a *App) viewCalendar() string {
	working := a.controller.PickerWorking()
	y, m, d := a.now().Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	first := time.Date(working.Year(), working.Month(), 1, 0, 0, 0, 0, time.UTC)

	var b strings.Builder
	b.WriteString(headingStyle.Render(first.Format("January 2006")))
	b.WriteString("\n")
	b.WriteString(mutedStyle.Render("Mo Tu We Th Fr Sa Su"))
	b.WriteString("\n")

	// weeks start on Monday
	b.WriteString(strings.Repeat("   ", (int(first.Weekday())+6)%7))
	for day := first; day.Month() == first.Month(); day = day.AddDate(0, 0, 1) {
		cell := fmt.Sprintf("%2d", day.Day())
		switch {
		case day.Equal(working):
			cell = selectedStyle.Render(cell)
		case day.After(today):
			cell = mutedStyle.Render(cell)
		}
		b.WriteString(cell)
		if day.Weekday() == time.Sunday {
			b.WriteString("\n")
		} else {
			b.WriteString(" ")
		}
	}
	return b.String()
}

func (a *App) viewHealth() string {
	draft := a.controller.Draft()
	var b strings.Builder
	b.WriteString(headingStyle.Render("Health"))
	b.WriteString("\n")
	b.WriteString(labelStyle.Render("Name") + draft.FullName + "\n")
	b.WriteString(labelStyle.Render("Date of birth") + draft.DateOfBirth + "\n")
	b.WriteString("\nPress enter to finish onboarding.\n")
	return b.String()
}

func (a *App) viewHome() string {
	if a.summary == nil {
		return "Loading your profile..."
	}
	var b strings.Builder
	b.WriteString(headingStyle.Render("Welcome, " + a.summary.FirstName + "!"))
	b.WriteString("\n")
	b.WriteString(labelStyle.Render("Full name") + a.summary.FullName + "\n")
	if a.summary.Email != "" {
		b.WriteString(labelStyle.Render("Email") + a.summary.Email + "\n")
	}
	if a.summary.OnboardingCompleted {
		b.WriteString(statusStyle.Render("Onboarding complete") + "\n")
	}
	return b.String()
}

func (a *App) helpLine() string {
	switch a.state {
	case stateAccount:
		if a.mode == modeSignIn {
			return "enter sign in • ctrl+t create account instead • ctrl+c quit"
		}
		return "tab next field • enter create account • ctrl+t sign in instead • ctrl+c quit"
	case statePersonal:
		switch a.controller.PickerState() {
		case onboarding.PickerYearOpen:
			return "↑/↓ choose year • / filter • enter confirm • esc close"
		case onboarding.PickerDayOpen:
			return "←/→ day • ↑/↓ week • [/] month • enter confirm • esc back to years"
		}
		return "tab next field • ctrl+d pick date of birth • enter continue • esc back • ctrl+o sign out"
	case stateHealth:
		return "enter finish • esc back • ctrl+o sign out"
	case stateHome:
		return "r refresh • ctrl+o sign out • q quit"
	}
	return ""
}
