package onboarding

import (
	"strings"
	"time"
)

type Gender string

const (
	GenderUnset  Gender = ""
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
	GenderOther  Gender = "other"
)

var AllGenders = map[Gender]struct{}{
	GenderMale:   {},
	GenderFemale: {},
	GenderOther:  {},
}

// ParseGender accepts the stored lowercase form; anything else maps to unset.
func ParseGender(raw string) (Gender, bool) {
	g := Gender(strings.ToLower(strings.TrimSpace(raw)))
	if g == GenderUnset {
		return GenderUnset, true
	}
	if _, ok := AllGenders[g]; !ok {
		return GenderUnset, false
	}
	return g, true
}

type Step int

const (
	StepAccount Step = iota
	StepPersonal
	StepHealth
)

func (s Step) String() string {
	switch s {
	case StepAccount:
		return "account"
	case StepPersonal:
		return "personal"
	case StepHealth:
		return "health"
	default:
		return "unknown"
	}
}

// ProfileDraft is the working copy of what a patient typed during onboarding.
// Values are replaced wholesale on each edit; use the With* helpers.
type ProfileDraft struct {
	FullName          string `json:"fullName" validate:"required"`
	DateOfBirth       string `json:"dateOfBirth" validate:"required"`
	NationalID        string `json:"nationalId" validate:"required"`
	Gender            Gender `json:"gender" validate:"required,oneof=male female other"`
	Address           string `json:"address,omitempty"`
	ContactNumber     string `json:"contactNumber,omitempty"`
	ProfilePictureRef string `json:"profilePictureRef,omitempty"`
}

func (d ProfileDraft) WithFullName(v string) ProfileDraft {
	d.FullName = v
	return d
}

func (d ProfileDraft) WithDateOfBirth(v string) ProfileDraft {
	d.DateOfBirth = v
	return d
}

func (d ProfileDraft) WithNationalID(v string) ProfileDraft {
	d.NationalID = v
	return d
}

func (d ProfileDraft) WithGender(v Gender) ProfileDraft {
	d.Gender = v
	return d
}

func (d ProfileDraft) WithAddress(v string) ProfileDraft {
	d.Address = v
	return d
}

func (d ProfileDraft) WithContactNumber(v string) ProfileDraft {
	d.ContactNumber = v
	return d
}

func (d ProfileDraft) WithProfilePictureRef(v string) ProfileDraft {
	d.ProfilePictureRef = v
	return d
}

func (d ProfileDraft) IsEmpty() bool {
	return d == ProfileDraft{}
}

func (d ProfileDraft) Normalize() ProfileDraft {
	d.FullName = strings.TrimSpace(d.FullName)
	d.DateOfBirth = strings.TrimSpace(d.DateOfBirth)
	d.NationalID = strings.TrimSpace(d.NationalID)
	d.Gender = Gender(strings.ToLower(strings.TrimSpace(string(d.Gender))))
	d.Address = strings.TrimSpace(d.Address)
	d.ContactNumber = strings.TrimSpace(d.ContactNumber)
	d.ProfilePictureRef = strings.TrimSpace(d.ProfilePictureRef)
	return d
}

// StepState tracks where a session is in the account -> personal -> health sequence.
type StepState struct {
	Current   Step
	UserID    string
	Completed bool
}

func (s StepState) HasUser() bool {
	return strings.TrimSpace(s.UserID) != ""
}

// PersonalInformation is a timestamped snapshot of a submitted draft.
type PersonalInformation struct {
	ProfileDraft
	CreatedAt time.Time
	UpdatedAt time.Time
}

func Snapshot(draft ProfileDraft, at time.Time) PersonalInformation {
	at = at.UTC()
	return PersonalInformation{
		ProfileDraft: draft.Normalize(),
		CreatedAt:    at,
		UpdatedAt:    at,
	}
}

// Profile is the durable per-user document.
type Profile struct {
	UserID              string
	Personal            PersonalInformation
	OnboardingCompleted bool
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

func (p Profile) HasPersonal() bool {
	return strings.TrimSpace(p.Personal.FullName) != ""
}

// Draft rebuilds an editable draft from the stored snapshot.
func (p Profile) Draft() ProfileDraft {
	return p.Personal.ProfileDraft
}
