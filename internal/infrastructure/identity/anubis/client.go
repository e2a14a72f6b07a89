package anubis

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"
	"github.com/riskibarqy/patient-onboarding/internal/domain/identity"
	"github.com/riskibarqy/patient-onboarding/internal/platform/cache"
	"github.com/riskibarqy/patient-onboarding/internal/platform/logging"
	"github.com/riskibarqy/patient-onboarding/internal/platform/resilience"
	"github.com/riskibarqy/patient-onboarding/internal/usecase"
)

var errAnubisTransient = crerr.New("anubis transient failure")

const (
	usersPath       = "/v1/admin/users"
	maxResponseSize = 1 << 20
)

type Config struct {
	BaseURL         string
	AdminKey        string
	Timeout         time.Duration
	AccountCacheTTL time.Duration
	AccountCacheMax int
	CircuitBreaker  resilience.BreakerConfig
}

// Client talks to the identity service's admin API.
type Client struct {
	httpClient *http.Client
	usersURL   string
	adminKey   string
	breaker    *resilience.Breaker
	accounts   *cache.Store
	logger     *logging.Logger
}

func NewClient(httpClient *http.Client, cfg Config, logger *logging.Logger) *Client {
	if logger == nil {
		logger = logging.Default()
	}
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 5 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	var accounts *cache.Store
	if cfg.AccountCacheTTL > 0 {
		accounts = cache.NewStore(cfg.AccountCacheTTL, cache.WithMaxEntries(cfg.AccountCacheMax))
	}

	return &Client{
		httpClient: httpClient,
		usersURL:   buildURL(cfg.BaseURL, usersPath),
		adminKey:   strings.TrimSpace(cfg.AdminKey),
		breaker:    resilience.NewBreaker(cfg.CircuitBreaker),
		accounts:   accounts,
		logger:     logger,
	}
}

func (c *Client) CreateUser(ctx context.Context, input identity.CreateUserInput) (identity.Account, error) {
	payload, err := sonic.Marshal(createUserRequest{
		Email:         identity.NormalizeEmail(input.Email),
		Password:      input.Password,
		EmailVerified: input.EmailVerified,
		Disabled:      input.Disabled,
	})
	if err != nil {
		return identity.Account{}, crerr.Wrap(err, "marshal create user request")
	}

	var decoded userEnvelope
	status, err := c.do(ctx, http.MethodPost, c.usersURL, payload, &decoded)
	if err != nil {
		return identity.Account{}, err
	}
	switch {
	case status == http.StatusConflict:
		return identity.Account{}, crerr.WithStack(identity.ErrEmailAlreadyExists)
	case status/100 != 2:
		return identity.Account{}, crerr.New(decoded.message(status))
	}

	account, err := decoded.account()
	if err != nil {
		return identity.Account{}, err
	}
	c.remember(ctx, account)
	return account, nil
}

func (c *Client) GetUserByEmail(ctx context.Context, email string) (identity.Account, bool, error) {
	email = identity.NormalizeEmail(email)
	if email == "" {
		return identity.Account{}, false, nil
	}
	return c.lookup(ctx, "email:"+email, c.usersURL+"?email="+url.QueryEscape(email))
}

func (c *Client) GetUserByID(ctx context.Context, userID string) (identity.Account, bool, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return identity.Account{}, false, nil
	}
	return c.lookup(ctx, "id:"+userID, c.usersURL+"/"+url.PathEscape(userID))
}

func (c *Client) lookup(ctx context.Context, cacheKey, target string) (identity.Account, bool, error) {
	if c.accounts != nil {
		if cached, ok := c.accounts.Get(ctx, cacheKey); ok {
			account, _ := cached.(identity.Account)
			return account, true, nil
		}
	}

	var decoded userEnvelope
	status, err := c.do(ctx, http.MethodGet, target, nil, &decoded)
	if err != nil {
		return identity.Account{}, false, err
	}
	switch {
	case status == http.StatusNotFound:
		return identity.Account{}, false, nil
	case status/100 != 2:
		return identity.Account{}, false, crerr.Newf("anubis user lookup failed: %s", decoded.message(status))
	}

	account, err := decoded.account()
	if err != nil {
		return identity.Account{}, false, err
	}
	c.remember(ctx, account)
	return account, true, nil
}

// do sends one request through the breaker. Network failures and 5xx/429
// responses are transient; any other status is returned to the caller.
func (c *Client) do(ctx context.Context, method, target string, body []byte, out *userEnvelope) (int, error) {
	var status int
	err := c.breaker.Execute(func() error {
		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, target, reader)
		if err != nil {
			return crerr.Wrap(err, "create anubis request")
		}
		req.Header.Set("Accept", "application/json")
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		if c.adminKey != "" {
			req.Header.Set("x-admin-key", c.adminKey)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("%w: %s %s: %v", errAnubisTransient, method, target, err)
		}
		defer resp.Body.Close()

		raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
		if err != nil {
			return fmt.Errorf("%w: read response: %v", errAnubisTransient, err)
		}
		status = resp.StatusCode
		if isRetryableStatus(status) {
			return fmt.Errorf("%w: %s %s status=%d", errAnubisTransient, method, target, status)
		}
		if len(bytes.TrimSpace(raw)) == 0 {
			return nil
		}
		if err := sonic.Unmarshal(raw, out); err != nil {
			return crerr.Wrapf(err, "decode anubis response status=%d", status)
		}
		return nil
	}, isCircuitFailure)
	if err != nil {
		if crerr.Is(err, resilience.ErrCircuitOpen) || isCircuitFailure(err) {
			c.logger.WarnContext(ctx, "anubis unavailable",
				"method", method,
				"state", string(c.breaker.State()),
				"error", err,
			)
			return 0, fmt.Errorf("%w: %w", usecase.ErrDependencyUnavailable, err)
		}
		return 0, err
	}
	return status, nil
}

func (c *Client) remember(ctx context.Context, account identity.Account) {
	if c.accounts == nil || account.UserID == "" {
		return
	}
	c.accounts.Set(ctx, "id:"+account.UserID, account)
	if account.Email != "" {
		c.accounts.Set(ctx, "email:"+identity.NormalizeEmail(account.Email), account)
	}
}

type createUserRequest struct {
	Email         string `json:"email"`
	Password      string `json:"password"`
	EmailVerified bool   `json:"email_verified"`
	Disabled      bool   `json:"disabled"`
}

type userEnvelope struct {
	User    *userPayload `json:"user"`
	Message string       `json:"message"`
	Error   string       `json:"error"`
}

type userPayload struct {
	ID            string    `json:"id"`
	Email         string    `json:"email"`
	EmailVerified bool      `json:"email_verified"`
	Disabled      bool      `json:"disabled"`
	CreatedAt     time.Time `json:"created_at"`
}

func (e userEnvelope) account() (identity.Account, error) {
	if e.User == nil || strings.TrimSpace(e.User.ID) == "" {
		return identity.Account{}, crerr.New("invalid anubis response: user id is empty")
	}
	return identity.Account{
		UserID:        e.User.ID,
		Email:         identity.NormalizeEmail(e.User.Email),
		EmailVerified: e.User.EmailVerified,
		Disabled:      e.User.Disabled,
		CreatedAt:     e.User.CreatedAt,
	}, nil
}

func (e userEnvelope) message(status int) string {
	for _, candidate := range []string{e.Message, e.Error} {
		if msg := strings.TrimSpace(candidate); msg != "" {
			return msg
		}
	}
	return fmt.Sprintf("status %d", status)
}
