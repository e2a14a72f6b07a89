// Package apiclient reaches the onboarding HTTP API. It backs the terminal
// wizard's auth gateway and profile store.
package apiclient

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"
	"github.com/riskibarqy/patient-onboarding/internal/domain/onboarding"
	"github.com/riskibarqy/patient-onboarding/internal/platform/logging"
	"github.com/riskibarqy/patient-onboarding/internal/usecase"
	"github.com/valyala/bytebufferpool"
	"github.com/valyala/fasthttp"
)

const defaultTimeout = 10 * time.Second

type Config struct {
	BaseURL string
	Timeout time.Duration
}

type Client struct {
	http    *fasthttp.Client
	baseURL string
	timeout time.Duration
	logger  *logging.Logger
}

var (
	_ usecase.AuthGateway  = (*Client)(nil)
	_ usecase.ProfileStore = (*Client)(nil)
)

func NewClient(cfg Config, logger *logging.Logger) *Client {
	if logger == nil {
		logger = logging.Default()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &Client{
		http: &fasthttp.Client{
			Name:                "patient-onboarding-cli",
			MaxIdleConnDuration: 30 * time.Second,
			ReadTimeout:         timeout,
			WriteTimeout:        timeout,
		},
		baseURL: strings.TrimSuffix(strings.TrimSpace(cfg.BaseURL), "/"),
		timeout: timeout,
		logger:  logger,
	}
}

type envelope[T any] struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Data    T      `json:"data"`
}

type credentialsBody struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type accountPayload struct {
	UID   string `json:"uid"`
	Email string `json:"email"`
}

type personalBody struct {
	FullName          string `json:"fullName"`
	DateOfBirth       string `json:"dateOfBirth"`
	NationalID        string `json:"nationalId"`
	Gender            string `json:"gender"`
	Address           string `json:"address,omitempty"`
	ContactNumber     string `json:"contactNumber,omitempty"`
	ProfilePictureRef string `json:"profilePictureRef,omitempty"`
}

type personalPayload struct {
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

type profilePayload struct {
	UserID              string           `json:"userId"`
	Personal            *personalPayload `json:"personal"`
	OnboardingCompleted bool             `json:"onboardingCompleted"`
	CreatedAt           time.Time        `json:"createdAt"`
	UpdatedAt           time.Time        `json:"updatedAt"`
}

func (c *Client) CreateAccount(ctx context.Context, email, password string) (string, error) {
	out, err := call[accountPayload](ctx, c, fasthttp.MethodPost, "/signup", credentialsBody{Email: email, Password: password})
	if err != nil {
		return "", err
	}
	if out.UID == "" {
		return "", crerr.New("signup response carried no uid")
	}
	return out.UID, nil
}

// unknownEmailMessage is what /login answers for an email with no account.
// Any other 401 is a provider failure and stays ErrUnauthorized.
const unknownEmailMessage = "invalid email or password"

// Lookup resolves an email through the login endpoint. An unknown email is
// reported as usecase.ErrNotFound.
func (c *Client) Lookup(ctx context.Context, email string) (string, error) {
	out, err := call[accountPayload](ctx, c, fasthttp.MethodPost, "/login", credentialsBody{Email: email})
	if err != nil {
		if crerr.Is(err, usecase.ErrUnauthorized) && strings.HasSuffix(strings.ToLower(err.Error()), unknownEmailMessage) {
			return "", fmt.Errorf("%w: %w", usecase.ErrNotFound, err)
		}
		return "", err
	}
	return out.UID, nil
}

func (c *Client) Save(ctx context.Context, userID string, info onboarding.PersonalInformation) error {
	_, err := call[profilePayload](ctx, c, fasthttp.MethodPut, profilePath(userID, "personal"), personalBody{
		FullName:          info.FullName,
		DateOfBirth:       info.DateOfBirth,
		NationalID:        info.NationalID,
		Gender:            string(info.Gender),
		Address:           info.Address,
		ContactNumber:     info.ContactNumber,
		ProfilePictureRef: info.ProfilePictureRef,
	})
	return err
}

func (c *Client) Load(ctx context.Context, userID string) (onboarding.Profile, bool, error) {
	out, err := call[profilePayload](ctx, c, fasthttp.MethodGet, profilePath(userID, ""), nil)
	if err != nil {
		if crerr.Is(err, usecase.ErrNotFound) {
			return onboarding.Profile{}, false, nil
		}
		return onboarding.Profile{}, false, err
	}
	return out.toProfile(), true, nil
}

func (c *Client) MarkCompleted(ctx context.Context, userID string) error {
	_, err := call[profilePayload](ctx, c, fasthttp.MethodPost, profilePath(userID, "complete"), nil)
	return err
}

func (c *Client) Home(ctx context.Context, userID string) (usecase.HomeSummary, error) {
	return call[usecase.HomeSummary](ctx, c, fasthttp.MethodGet, "/v1/home/"+url.PathEscape(strings.TrimSpace(userID)), nil)
}

func profilePath(userID, action string) string {
	path := "/v1/profiles/" + url.PathEscape(strings.TrimSpace(userID))
	if action != "" {
		path += "/" + action
	}
	return path
}

func (p profilePayload) toProfile() onboarding.Profile {
	profile := onboarding.Profile{
		UserID:              p.UserID,
		OnboardingCompleted: p.OnboardingCompleted,
		CreatedAt:           p.CreatedAt,
		UpdatedAt:           p.UpdatedAt,
	}
	if p.Personal != nil {
		profile.Personal = onboarding.PersonalInformation{
			ProfileDraft: onboarding.ProfileDraft{
				FullName:          p.Personal.FullName,
				DateOfBirth:       p.Personal.DateOfBirth,
				NationalID:        p.Personal.NationalID,
				Gender:            onboarding.Gender(p.Personal.Gender),
				Address:           p.Personal.Address,
				ContactNumber:     p.Personal.ContactNumber,
				ProfilePictureRef: p.Personal.ProfilePictureRef,
			},
			CreatedAt: p.Personal.CreatedAt,
			UpdatedAt: p.Personal.UpdatedAt,
		}
	}
	return profile
}

// call sends one JSON request and unwraps the {status,message,data} envelope.
func call[T any](ctx context.Context, c *Client, method, path string, body any) (T, error) {
	var zero T

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(c.baseURL + path)
	req.Header.SetMethod(method)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		buf := bytebufferpool.Get()
		defer bytebufferpool.Put(buf)
		if err := sonic.ConfigDefault.NewEncoder(buf).Encode(body); err != nil {
			return zero, crerr.Wrapf(err, "encode %s %s", method, path)
		}
		req.Header.SetContentType("application/json")
		req.SetBody(buf.B)
	}

	deadline := time.Now().Add(c.timeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
	}
	if err := ctx.Err(); err != nil {
		return zero, err
	}

	started := time.Now()
	if err := c.http.DoDeadline(req, resp, deadline); err != nil {
		c.logger.WarnContext(ctx, "onboarding api unreachable", "method", method, "path", path, "error", err)
		return zero, fmt.Errorf("%w: %s %s: %v", usecase.ErrDependencyUnavailable, method, path, err)
	}

	status := resp.StatusCode()
	c.logger.DebugContext(ctx, "onboarding api call",
		"method", method,
		"path", path,
		"status", status,
		"duration_ms", time.Since(started).Milliseconds(),
	)

	var out envelope[T]
	if raw := resp.Body(); len(raw) > 0 {
		if err := sonic.Unmarshal(raw, &out); err != nil {
			if status/100 == 2 {
				return zero, crerr.Wrapf(err, "decode %s %s response", method, path)
			}
			out.Message = http.StatusText(status)
		}
	}
	if status/100 != 2 {
		return zero, statusError(status, out.Message)
	}
	return out.Data, nil
}

func statusError(status int, message string) error {
	message = strings.TrimSpace(message)
	if message == "" {
		message = http.StatusText(status)
	}

	switch status {
	case http.StatusBadRequest:
		return fmt.Errorf("%w: %s", usecase.ErrInvalidInput, message)
	case http.StatusUnauthorized:
		return fmt.Errorf("%w: %s", usecase.ErrUnauthorized, message)
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", usecase.ErrNotFound, message)
	case http.StatusConflict:
		return fmt.Errorf("%w: %s", usecase.ErrConflict, message)
	case http.StatusServiceUnavailable, http.StatusBadGateway, http.StatusGatewayTimeout:
		return fmt.Errorf("%w: %s", usecase.ErrDependencyUnavailable, message)
	default:
		return crerr.Newf("onboarding api status %d: %s", status, message)
	}
}
