package login

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spdrive/spdrive/internal/auth"
	"github.com/spdrive/spdrive/internal/totp"
)

// Element ids on the Entra ID sign-in pages.
const (
	idUsername    = "i0116"
	idPassword    = "i0118"
	idOTP         = "idTxtBx_SAOTCC_OTC"
	idHeader      = "loginHeader"
	idAccept      = "idSIButton9"
	idDeclineStay = "idBtn_Back"
)

// consentHeader is the loginHeader text shown on the consent screen.
const consentHeader = "Permissions requested"

// Step names, in execution order.
const (
	StepUsername = "username"
	StepPassword = "password"
	StepMFA      = "mfa"
	StepConsent  = "consent"
	StepTrust    = "trust-device"
)

// Options controls timing and which screens are expected.
type Options struct {
	PageLoadDelay time.Duration
	ElementWait   time.Duration
	RedirectWait  time.Duration
	UseMFA        bool
}

// Credentials are typed into the sign-in pages. Secret is the base32 TOTP
// seed; it is only read when MFA is enabled.
type Credentials struct {
	Username string
	Password string
	Secret   string
}

// StepOutcome records what happened on one screen.
type StepOutcome struct {
	Step    string
	Skipped bool
}

// Result is the outcome of a successful sign-in.
type Result struct {
	RedirectURL string
	Steps       []StepOutcome
}

// Driver runs the sign-in script against a Page.
type Driver struct {
	page   Page
	opts   Options
	creds  Credentials
	logger *slog.Logger

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// NewDriver creates a driver. The page is owned by the driver from here on
// and is closed when Run returns.
func NewDriver(page Page, opts Options, creds Credentials, logger *slog.Logger) *Driver {
	return &Driver{
		page:   page,
		opts:   opts,
		creds:  creds,
		logger: logger,
		now:    time.Now,
		sleep:  timeSleep,
	}
}

// timeSleep waits for d or until ctx is canceled.
func timeSleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

type step struct {
	name    string
	enabled func(*Driver) bool
	run     func(*Driver, context.Context) error
}

// steps is the fixed screen sequence. Every screen is optional: a screen the
// authority does not show is skipped.
var steps = []step{
	{name: StepUsername, run: (*Driver).enterUsername},
	{name: StepPassword, run: (*Driver).enterPassword},
	{name: StepMFA, enabled: func(d *Driver) bool { return d.opts.UseMFA }, run: (*Driver).enterCode},
	{name: StepConsent, run: (*Driver).acceptConsent},
	{name: StepTrust, run: (*Driver).declineStaySignedIn},
}

// Run opens flow.AuthURL, walks the sign-in screens and returns the redirect
// URL. The page is closed on every return path.
func (d *Driver) Run(ctx context.Context, flow *auth.Flow) (*Result, error) {
	defer d.closePage()

	d.logger.Info("opening sign-in page")

	if err := d.page.Navigate(ctx, flow.AuthURL); err != nil {
		return nil, fmt.Errorf("login: opening sign-in page: %w", err)
	}

	result := &Result{}

	for _, s := range steps {
		if s.enabled != nil && !s.enabled(d) {
			continue
		}

		if err := d.sleep(ctx, d.opts.PageLoadDelay); err != nil {
			return nil, fmt.Errorf("login: %s step: %w", s.name, err)
		}

		err := s.run(d, ctx)

		switch {
		case errors.Is(err, ErrElementNotFound):
			d.logger.Info("login step skipped", slog.String("step", s.name))
			result.Steps = append(result.Steps, StepOutcome{Step: s.name, Skipped: true})
		case err != nil:
			return nil, fmt.Errorf("login: %s step: %w", s.name, err)
		default:
			d.logger.Info("login step done", slog.String("step", s.name))
			result.Steps = append(result.Steps, StepOutcome{Step: s.name})
		}
	}

	d.logger.Info("waiting for redirect", slog.Duration("timeout", d.opts.RedirectWait))

	redirect, err := d.page.CaptureRedirect(ctx, flow.RedirectURI, d.opts.RedirectWait)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNoRedirect, err)
	}

	if redirect == "" {
		return nil, ErrNoRedirect
	}

	result.RedirectURL = redirect

	return result, nil
}

func (d *Driver) closePage() {
	if err := d.page.Close(); err != nil {
		d.logger.Warn("closing browser failed", slog.String("error", err.Error()))
	}
}

func (d *Driver) enterUsername(ctx context.Context) error {
	if err := d.page.WaitFor(ctx, idUsername, d.opts.ElementWait); err != nil {
		return err
	}

	return d.page.Type(ctx, idUsername, d.creds.Username+EnterKey)
}

func (d *Driver) enterPassword(ctx context.Context) error {
	if err := d.page.WaitFor(ctx, idPassword, d.opts.ElementWait); err != nil {
		return err
	}

	return d.page.Type(ctx, idPassword, d.creds.Password+EnterKey)
}

// enterCode generates the one-time code only once the field is on screen,
// so the code is as fresh as possible when submitted.
func (d *Driver) enterCode(ctx context.Context) error {
	if err := d.page.WaitFor(ctx, idOTP, d.opts.ElementWait); err != nil {
		return err
	}

	code, err := totp.Code(d.creds.Secret, d.now())
	if err != nil {
		return err
	}

	return d.page.Type(ctx, idOTP, code+EnterKey)
}

func (d *Driver) acceptConsent(ctx context.Context) error {
	if err := d.page.WaitFor(ctx, idHeader, d.opts.ElementWait); err != nil {
		return err
	}

	header, err := d.page.Text(ctx, idHeader)
	if err != nil {
		return err
	}

	if strings.TrimSpace(header) != consentHeader {
		return ErrElementNotFound
	}

	if err := d.page.WaitFor(ctx, idAccept, d.opts.ElementWait); err != nil {
		return err
	}

	return d.page.Click(ctx, idAccept)
}

func (d *Driver) declineStaySignedIn(ctx context.Context) error {
	if err := d.page.WaitFor(ctx, idDeclineStay, d.opts.ElementWait); err != nil {
		return err
	}

	return d.page.Click(ctx, idDeclineStay)
}
