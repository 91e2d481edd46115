package flow

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"recovery-service/internal/models"
	"recovery-service/internal/service"
)

// stubAPI fakes the recovery endpoints for wizard tests.
type stubAPI struct {
	questions     []string
	correctAnswer string
	token         string
	tokenSpent    bool
	verifyCalls   int
	resetCalls    int
}

func (s *stubAPI) handler() http.Handler {
	mux := http.NewServeMux()

	writeJSON := func(w http.ResponseWriter, status int, body map[string]interface{}) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(body)
	}

	mux.HandleFunc("/api/v1/recovery/questions", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"data":    map[string]interface{}{"questions": s.questions},
		})
	})

	mux.HandleFunc("/api/v1/recovery/verify", func(w http.ResponseWriter, r *http.Request) {
		s.verifyCalls++
		var req struct {
			Answers []models.AnswerSubmission `json:"answers"`
		}
		json.NewDecoder(r.Body).Decode(&req)

		for _, a := range req.Answers {
			if a.Answer != s.correctAnswer {
				writeJSON(w, http.StatusUnauthorized, map[string]interface{}{
					"success": false,
					"message": "Security answers incorrect",
				})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"data":    map[string]interface{}{"verification_token": s.token},
		})
	})

	mux.HandleFunc("/api/v1/recovery/reset", func(w http.ResponseWriter, r *http.Request) {
		s.resetCalls++
		var req struct {
			Token       string `json:"token"`
			NewPassword string `json:"new_password"`
		}
		json.NewDecoder(r.Body).Decode(&req)

		if len(req.NewPassword) < 12 {
			writeJSON(w, http.StatusBadRequest, map[string]interface{}{
				"success": false,
				"message": "Password does not meet requirements",
			})
			return
		}
		if req.Token != s.token || s.tokenSpent {
			writeJSON(w, http.StatusUnauthorized, map[string]interface{}{
				"success": false,
				"message": "Verification token invalid or expired",
			})
			return
		}
		s.tokenSpent = true
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"message": "Password reset successfully",
		})
	})

	return mux
}

func newTestController(t *testing.T, api *stubAPI) *Controller {
	t.Helper()
	srv := httptest.NewServer(api.handler())
	t.Cleanup(srv.Close)
	return NewController(NewClient(srv.URL, srv.Client()))
}

func defaultStub() *stubAPI {
	return &stubAPI{
		questions:     []string{"First pet's name?", "Street you grew up on?", "Favorite teacher?"},
		correctAnswer: "fluffy",
		token:         "tok-1",
	}
}

func answersFor(questions []string, answer string) []models.AnswerSubmission {
	out := make([]models.AnswerSubmission, 0, len(questions))
	for _, q := range questions {
		out = append(out, models.AnswerSubmission{Question: q, Answer: answer})
	}
	return out
}

func TestControllerHappyPath(t *testing.T) {
	api := defaultStub()
	c := newTestController(t, api)
	ctx := context.Background()

	if c.State() != StateEmail {
		t.Fatalf("expected initial state email, got %v", c.State())
	}

	questions, err := c.SubmitEmail(ctx, "alice@campus.edu")
	if err != nil {
		t.Fatalf("SubmitEmail failed: %v", err)
	}
	if len(questions) != 3 || c.State() != StateQuestions {
		t.Fatalf("expected 3 questions in questions state, got %v / %v", questions, c.State())
	}

	if err := c.SubmitAnswers(ctx, answersFor(questions, "fluffy")); err != nil {
		t.Fatalf("SubmitAnswers failed: %v", err)
	}
	if c.State() != StateNewPassword {
		t.Fatalf("expected new_password state, got %v", c.State())
	}

	if err := c.SubmitNewPassword(ctx, "N3w!Password123", "N3w!Password123"); err != nil {
		t.Fatalf("SubmitNewPassword failed: %v", err)
	}
	if c.State() != StateDone {
		t.Fatalf("expected done state, got %v", c.State())
	}
	if c.token != "" {
		t.Fatal("token should be discarded after success")
	}
}

func TestControllerNoQuestionsStaysOnEmail(t *testing.T) {
	api := defaultStub()
	api.questions = nil
	c := newTestController(t, api)

	_, err := c.SubmitEmail(context.Background(), "ghost@campus.edu")
	if !errors.Is(err, ErrNoQuestions) {
		t.Fatalf("expected ErrNoQuestions, got %v", err)
	}
	if c.State() != StateEmail {
		t.Fatalf("wizard should stay on email step, got %v", c.State())
	}
}

func TestControllerStepsAreOneDirectional(t *testing.T) {
	api := defaultStub()
	c := newTestController(t, api)
	ctx := context.Background()

	// Steps out of order are rejected.
	if err := c.SubmitAnswers(ctx, nil); !errors.Is(err, ErrWrongState) {
		t.Fatalf("expected ErrWrongState, got %v", err)
	}
	if err := c.SubmitNewPassword(ctx, "N3w!Password123", "N3w!Password123"); !errors.Is(err, ErrWrongState) {
		t.Fatalf("expected ErrWrongState, got %v", err)
	}

	if _, err := c.SubmitEmail(ctx, "alice@campus.edu"); err != nil {
		t.Fatalf("SubmitEmail failed: %v", err)
	}
	// Going back to the email step is not possible.
	if _, err := c.SubmitEmail(ctx, "bob@campus.edu"); !errors.Is(err, ErrWrongState) {
		t.Fatalf("expected ErrWrongState, got %v", err)
	}
}

func TestControllerWrongAnswersKeepQuestionsStep(t *testing.T) {
	api := defaultStub()
	c := newTestController(t, api)
	ctx := context.Background()

	questions, _ := c.SubmitEmail(ctx, "alice@campus.edu")

	err := c.SubmitAnswers(ctx, answersFor(questions, "wrong"))
	if err == nil {
		t.Fatal("expected verification failure")
	}
	if !IsStatus(err, http.StatusUnauthorized) {
		t.Fatalf("expected 401 api error, got %v", err)
	}
	if c.State() != StateQuestions {
		t.Fatalf("wizard should stay on questions step, got %v", c.State())
	}

	// Retry with correct answers proceeds.
	if err := c.SubmitAnswers(ctx, answersFor(questions, "fluffy")); err != nil {
		t.Fatalf("retry failed: %v", err)
	}
}

func TestControllerLocalValidation(t *testing.T) {
	api := defaultStub()
	c := newTestController(t, api)
	ctx := context.Background()

	questions, _ := c.SubmitEmail(ctx, "alice@campus.edu")
	before := api.verifyCalls

	// Incomplete or blank answers never reach the server.
	if err := c.SubmitAnswers(ctx, answersFor(questions[:2], "fluffy")); err == nil {
		t.Fatal("expected error for incomplete answers")
	}
	if err := c.SubmitAnswers(ctx, answersFor(questions, "   ")); err == nil {
		t.Fatal("expected error for blank answers")
	}
	if api.verifyCalls != before {
		t.Fatal("local validation failures should not hit the API")
	}
}

func TestControllerClientSideAttemptLimit(t *testing.T) {
	api := defaultStub()
	c := newTestController(t, api)
	ctx := context.Background()

	questions, _ := c.SubmitEmail(ctx, "alice@campus.edu")

	for i := 0; i < defaultMaxAttempts; i++ {
		c.SubmitAnswers(ctx, answersFor(questions, "wrong"))
	}

	err := c.SubmitAnswers(ctx, answersFor(questions, "fluffy"))
	if !errors.Is(err, ErrTooManyAttempts) {
		t.Fatalf("expected ErrTooManyAttempts, got %v", err)
	}
	if api.verifyCalls != defaultMaxAttempts {
		t.Fatalf("limited attempts should not hit the API, saw %d calls", api.verifyCalls)
	}
}

func TestControllerPasswordCheckedBeforeRequest(t *testing.T) {
	api := defaultStub()
	c := newTestController(t, api)
	ctx := context.Background()

	questions, _ := c.SubmitEmail(ctx, "alice@campus.edu")
	c.SubmitAnswers(ctx, answersFor(questions, "fluffy"))
	before := api.resetCalls

	// Policy violations and a wrong confirmation never leave the client.
	if err := c.SubmitNewPassword(ctx, "short1!", "short1!"); !errors.Is(err, service.ErrWeakPassword) {
		t.Fatalf("expected ErrWeakPassword, got %v", err)
	}
	if err := c.SubmitNewPassword(ctx, "N3w!Password123", "N3w!Password124"); !errors.Is(err, ErrPasswordMismatch) {
		t.Fatalf("expected ErrPasswordMismatch, got %v", err)
	}
	if api.resetCalls != before {
		t.Fatalf("local password failures should not hit the API, saw %d calls", api.resetCalls-before)
	}
	if c.State() != StateNewPassword {
		t.Fatalf("wizard should stay on password step, got %v", c.State())
	}
	if c.token == "" {
		t.Fatal("token should survive local rejections")
	}

	if err := c.SubmitNewPassword(ctx, "N3w!Password123", "N3w!Password123"); err != nil {
		t.Fatalf("retry with strong password failed: %v", err)
	}
	if c.State() != StateDone {
		t.Fatalf("expected done state, got %v", c.State())
	}
}
