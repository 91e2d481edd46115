package flow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"recovery-service/internal/limiter"
	"recovery-service/internal/models"
	"recovery-service/internal/service"
)

// State is the wizard's position in the recovery flow.
type State int

const (
	// StateEmail collects the account email.
	StateEmail State = iota
	// StateQuestions presents the security questions.
	StateQuestions
	// StateNewPassword collects the replacement password.
	StateNewPassword
	// StateDone is terminal; the password was reset.
	StateDone
)

func (s State) String() string {
	switch s {
	case StateEmail:
		return "email"
	case StateQuestions:
		return "questions"
	case StateNewPassword:
		return "new_password"
	case StateDone:
		return "done"
	default:
		return "unknown"
	}
}

var (
	// ErrWrongState reports a step submitted out of order. Transitions
	// only move forward; restarting means a fresh Controller.
	ErrWrongState = errors.New("step not available in current state")
	// ErrNoQuestions reports an email with nothing to answer. The wizard
	// stays on the email step.
	ErrNoQuestions = errors.New("no security questions available for this email")
	// ErrTooManyAttempts is the client-side limiter tripping before a
	// request is even sent.
	ErrTooManyAttempts = errors.New("too many attempts, wait before retrying")
	// ErrPasswordMismatch reports password and confirmation disagreeing.
	ErrPasswordMismatch = errors.New("password and confirmation do not match")
)

const (
	defaultMaxAttempts       = 5
	defaultWindow            = time.Hour
	defaultMinPasswordLength = 12
)

// Controller runs one user's pass through the recovery wizard. It is
// not safe for concurrent use; each recovery session gets its own.
//
// A local fixed-window limiter keyed by email backs off repeated answer
// submissions before they reach the server, which has its own limit.
type Controller struct {
	client      *Client
	attempts    *limiter.MemoryLimiter
	maxAttempts int
	window      time.Duration

	state     State
	email     string
	questions []string
	token     string
}

// NewController creates a wizard controller starting at the email step.
func NewController(client *Client) *Controller {
	return &Controller{
		client:      client,
		attempts:    limiter.NewMemoryLimiter(),
		maxAttempts: defaultMaxAttempts,
		window:      defaultWindow,
		state:       StateEmail,
	}
}

// State returns the wizard's current step.
func (c *Controller) State() State {
	return c.state
}

// Questions returns the questions fetched for the submitted email.
func (c *Controller) Questions() []string {
	return c.questions
}

// SubmitEmail fetches the questions for the address and advances to the
// questions step. With nothing to answer the wizard stays put and
// returns ErrNoQuestions.
func (c *Controller) SubmitEmail(ctx context.Context, email string) ([]string, error) {
	if c.state != StateEmail {
		return nil, ErrWrongState
	}
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, fmt.Errorf("email must not be empty")
	}

	questions, err := c.client.FetchQuestions(ctx, email)
	if err != nil {
		return nil, err
	}
	if len(questions) == 0 {
		return nil, ErrNoQuestions
	}

	c.email = email
	c.questions = questions
	c.state = StateQuestions
	return questions, nil
}

// SubmitAnswers verifies the answers and advances to the password step.
// A wrong set of answers keeps the wizard on the questions step so the
// user can retry, within the local attempt budget.
func (c *Controller) SubmitAnswers(ctx context.Context, answers []models.AnswerSubmission) error {
	if c.state != StateQuestions {
		return ErrWrongState
	}
	if len(answers) != len(c.questions) {
		return fmt.Errorf("all %d questions must be answered", len(c.questions))
	}
	for _, a := range answers {
		if strings.TrimSpace(a.Answer) == "" {
			return fmt.Errorf("answers must not be empty")
		}
	}

	allowed, err := c.attempts.Allow(ctx, c.email, c.maxAttempts, c.window)
	if err != nil {
		return err
	}
	if !allowed {
		return ErrTooManyAttempts
	}

	token, err := c.client.VerifyAnswers(ctx, c.email, answers)
	if err != nil {
		return err
	}

	c.token = token
	c.state = StateNewPassword
	return nil
}

// SubmitNewPassword redeems the verification token and finishes the
// wizard. The password policy and the confirmation match are checked
// locally first; a rejected password never leaves the client, keeps the
// token and keeps the step for a retry. Any other failure means
// starting over from the email step with a new Controller.
func (c *Controller) SubmitNewPassword(ctx context.Context, newPassword, confirmPassword string) error {
	if c.state != StateNewPassword {
		return ErrWrongState
	}
	if newPassword != confirmPassword {
		return ErrPasswordMismatch
	}
	if err := service.ValidatePassword(newPassword, defaultMinPasswordLength); err != nil {
		return err
	}

	if err := c.client.ResetPassword(ctx, c.email, c.token, newPassword); err != nil {
		return err
	}

	c.token = ""
	c.state = StateDone
	return nil
}
