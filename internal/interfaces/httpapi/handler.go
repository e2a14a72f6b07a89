package httpapi

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"
	"github.com/go-playground/validator/v10"
	"github.com/riskibarqy/patient-onboarding/internal/domain/identity"
	"github.com/riskibarqy/patient-onboarding/internal/domain/onboarding"
	"github.com/riskibarqy/patient-onboarding/internal/platform/logging"
	"github.com/riskibarqy/patient-onboarding/internal/usecase"
)

const maxRequestBodyBytes = 1 << 20

type Handler struct {
	authService    *usecase.AuthService
	profileService *usecase.ProfileService
	resyncService  *usecase.ProfileResyncService
	logger         *logging.Logger
	validator      *validator.Validate
}

// NewHandler wires the HTTP handlers. resyncService may be nil when no
// secondary profile store is configured.
func NewHandler(
	authService *usecase.AuthService,
	profileService *usecase.ProfileService,
	resyncService *usecase.ProfileResyncService,
	logger *logging.Logger,
) *Handler {
	if logger == nil {
		logger = logging.Default()
	}

	return &Handler{
		authService:    authService,
		profileService: profileService,
		resyncService:  resyncService,
		logger:         logger,
		validator:      validator.New(),
	}
}

func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.Healthz")
	defer span.End()

	writeSuccess(ctx, w, http.StatusOK, "ok", map[string]string{"status": "ok"})
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.Login")
	defer span.End()

	var req credentialsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}

	account, err := h.authService.Login(ctx, usecase.CredentialsInput{Email: req.Email, Password: req.Password})
	if err != nil {
		h.logger.WarnContext(ctx, "login failed", "email", identity.NormalizeEmail(req.Email), "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, "Login successful", accountToDTO(account))
}

func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.Signup")
	defer span.End()

	var req credentialsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}

	account, err := h.authService.Signup(ctx, usecase.CredentialsInput{Email: req.Email, Password: req.Password})
	if err != nil {
		h.logger.WarnContext(ctx, "signup failed", "email", identity.NormalizeEmail(req.Email), "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, "User created successfully", accountToDTO(account))
}

func (h *Handler) SavePersonal(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.SavePersonal")
	defer span.End()

	userID := strings.TrimSpace(r.PathValue("userID"))
	var req personalRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}

	profile, err := h.profileService.SavePersonal(ctx, usecase.SavePersonalInput{
		UserID: userID,
		Draft:  req.toDraft(),
	})
	if err != nil {
		h.logger.WarnContext(ctx, "save personal information failed", "user_id", userID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, "Personal information saved", profileToDTO(profile))
}

func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetProfile")
	defer span.End()

	userID := strings.TrimSpace(r.PathValue("userID"))
	profile, err := h.profileService.Get(ctx, userID)
	if err != nil {
		h.logger.WarnContext(ctx, "get profile failed", "user_id", userID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, "Profile loaded", profileToDTO(profile))
}

func (h *Handler) CompleteOnboarding(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.CompleteOnboarding")
	defer span.End()

	userID := strings.TrimSpace(r.PathValue("userID"))
	profile, err := h.profileService.CompleteOnboarding(ctx, userID)
	if err != nil {
		h.logger.WarnContext(ctx, "complete onboarding failed", "user_id", userID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, "Onboarding completed", profileToDTO(profile))
}

func (h *Handler) Home(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.Home")
	defer span.End()

	userID := strings.TrimSpace(r.PathValue("userID"))
	summary, err := h.profileService.Home(ctx, userID)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, "Home loaded", summary)
}

func (h *Handler) RunProfileResyncJob(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.RunProfileResyncJob")
	defer span.End()

	if h.resyncService == nil {
		writeError(ctx, w, fmt.Errorf("%w: profile resync target is not configured", usecase.ErrDependencyUnavailable))
		return
	}

	var req profileResyncRequest
	if err := h.decodeAndValidate(ctx, r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}

	started := time.Now()
	result, err := h.resyncService.Resync(ctx, usecase.ProfileResyncInput{
		UserIDs:    req.UserIDs,
		MaxWorkers: req.MaxWorkers,
		DryRun:     req.DryRun,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "profile resync job failed", "dry_run", req.DryRun, "error", err)
		writeError(ctx, w, err)
		return
	}

	h.logger.InfoContext(ctx, "profile resync job finished",
		"profiles", result.ProfileCount,
		"failed", result.FailedCount,
		"duration_ms", time.Since(started).Milliseconds(),
	)
	writeSuccess(ctx, w, http.StatusOK, "Profile resync finished", result)
}

func (h *Handler) decodeAndValidate(ctx context.Context, r *http.Request, payload any) error {
	if err := decodeJSON(r, payload); err != nil {
		return err
	}
	return h.validateRequest(ctx, payload)
}

func (h *Handler) validateRequest(ctx context.Context, payload any) error {
	ctx, span := startSpan(ctx, "httpapi.Handler.validateRequest")
	defer span.End()

	if err := h.validator.StructCtx(ctx, payload); err != nil {
		return fmt.Errorf("%w: validation failed: %v", usecase.ErrInvalidInput, err)
	}

	return nil
}

// decodeJSON reads a JSON object body. An empty body leaves payload untouched.
func decodeJSON(r *http.Request, payload any) error {
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBodyBytes))
	if err != nil {
		return fmt.Errorf("%w: read request body: %v", usecase.ErrInvalidInput, err)
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}

	decoder := sonic.ConfigDefault.NewDecoder(bytes.NewReader(raw))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(payload); err != nil {
		return fmt.Errorf("%w: invalid JSON payload: %v", usecase.ErrInvalidInput, err)
	}
	return nil
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type personalRequest struct {
	FullName          string `json:"fullName"`
	DateOfBirth       string `json:"dateOfBirth"`
	NationalID        string `json:"nationalId"`
	Gender            string `json:"gender"`
	Address           string `json:"address"`
	ContactNumber     string `json:"contactNumber"`
	ProfilePictureRef string `json:"profilePictureRef"`
}

func (r personalRequest) toDraft() onboarding.ProfileDraft {
	return onboarding.ProfileDraft{
		FullName:          r.FullName,
		DateOfBirth:       r.DateOfBirth,
		NationalID:        r.NationalID,
		Gender:            onboarding.Gender(r.Gender),
		Address:           r.Address,
		ContactNumber:     r.ContactNumber,
		ProfilePictureRef: r.ProfilePictureRef,
	}
}

type profileResyncRequest struct {
	UserIDs    []string `json:"user_ids" validate:"omitempty,dive,required"`
	MaxWorkers int      `json:"max_workers" validate:"omitempty,min=1,max=64"`
	DryRun     bool     `json:"dry_run"`
}

type accountDTO struct {
	UID   string `json:"uid"`
	Email string `json:"email"`
}

func accountToDTO(account identity.Account) accountDTO {
	return accountDTO{UID: account.UserID, Email: account.Email}
}

type personalDTO struct {
	FullName          string    `json:"fullName"`
	DateOfBirth       string    `json:"dateOfBirth"`
	NationalID        string    `json:"nationalId"`
	Gender            string    `json:"gender"`
	Address           string    `json:"address,omitempty"`
	ContactNumber     string    `json:"contactNumber,omitempty"`
	ProfilePictureRef string    `json:"profilePictureRef,omitempty"`
	CreatedAt         time.Time `json:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

type profileDTO struct {
	UserID              string       `json:"userId"`
	Personal            *personalDTO `json:"personal"`
	OnboardingCompleted bool         `json:"onboardingCompleted"`
	CreatedAt           time.Time    `json:"createdAt"`
	UpdatedAt           time.Time    `json:"updatedAt"`
}

func profileToDTO(profile onboarding.Profile) profileDTO {
	out := profileDTO{
		UserID:              profile.UserID,
		OnboardingCompleted: profile.OnboardingCompleted,
		CreatedAt:           profile.CreatedAt,
		UpdatedAt:           profile.UpdatedAt,
	}
	if profile.HasPersonal() {
		p := profile.Personal
		out.Personal = &personalDTO{
			FullName:          p.FullName,
			DateOfBirth:       p.DateOfBirth,
			NationalID:        p.NationalID,
			Gender:            string(p.Gender),
			Address:           p.Address,
			ContactNumber:     p.ContactNumber,
			ProfilePictureRef: p.ProfilePictureRef,
			CreatedAt:         p.CreatedAt,
			UpdatedAt:         p.UpdatedAt,
		}
	}
	return out
}
