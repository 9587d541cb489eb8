package app

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/vsslab/vss/internal/apiclient"
	"github.com/vsslab/vss/internal/languages"
	"github.com/vsslab/vss/internal/router"
	"github.com/vsslab/vss/internal/validate"
)

// AuthPages drives login, registration, password reset and logout.
type AuthPages struct {
	app *App

	mu            sync.Mutex
	verifiedEmail string
	resetEmail    string
	resetCode     string
}

func (p *AuthPages) Login(ctx context.Context, id, password string) Outcome {
	id = strings.TrimSpace(id)
	if id == "" || password == "" {
		return p.app.fail(languages.MsgEnterCredentials)
	}

	res, err := p.app.Backend.Login(ctx, id, password)
	if err != nil {
		return p.app.failErr(err)
	}
	if !res.Success {
		if res.Message != "" {
			return Outcome{Message: res.Message}
		}
		return p.app.fail(languages.MsgLoginFailed)
	}

	userID := res.UserID
	if userID == "" {
		userID = id
	}
	if err := p.app.Session.SignIn(userID, res.Token); err != nil {
		slog.Error("login: failed to persist session", "error", err)
		return Outcome{Message: err.Error()}
	}

	if _, err := p.app.Router.Push(router.Landing); err != nil {
		slog.Warn("login: navigation failed", "error", err)
	}
	return Outcome{OK: true}
}

// Logout forgets the identity and every piece of per-user state.
func (p *AuthPages) Logout() Outcome {
	if err := p.app.Session.SignOut(); err != nil {
		return Outcome{Message: err.Error()}
	}
	p.app.Videos.ClearVideos()
	p.app.Summarize.reset()
	p.app.Search.reset()
	p.app.Reports.reset()

	if _, err := p.app.Router.Push(router.PathLogin); err != nil {
		slog.Warn("logout: navigation failed", "error", err)
	}
	return Outcome{OK: true}
}

func (p *AuthPages) SendVerificationCode(ctx context.Context, email string) Outcome {
	if msg := validate.Email(email); msg != "" {
		return Outcome{Message: msg}
	}
	return p.ack(p.app.Backend.SendVerificationCode(ctx, email))(languages.MsgCodeSent)
}

func (p *AuthPages) VerifyEmailCode(ctx context.Context, email, code string) Outcome {
	if msg := validate.VerificationCode(code); msg != "" {
		return Outcome{Message: msg}
	}
	out := p.ack(p.app.Backend.VerifyEmailCode(ctx, email, code))(languages.MsgCodeVerified)
	if out.OK {
		p.mu.Lock()
		p.verifiedEmail = email
		p.mu.Unlock()
	}
	return out
}

type RegisterForm struct {
	ID              string
	Password        string
	PasswordConfirm string
	Email           string
	Code            string
}

func (p *AuthPages) Register(ctx context.Context, f RegisterForm) Outcome {
	if msg := validate.UserID(f.ID); msg != "" {
		return Outcome{Message: msg}
	}
	if msg := validate.Password(f.Password); msg != "" {
		return Outcome{Message: msg}
	}
	if f.Password != f.PasswordConfirm {
		return p.app.fail(languages.MsgPasswordMismatch)
	}
	if msg := validate.Email(f.Email); msg != "" {
		return Outcome{Message: msg}
	}

	p.mu.Lock()
	verified := p.verifiedEmail == f.Email
	p.mu.Unlock()
	if !verified {
		return p.app.fail(languages.MsgVerifyEmailFirst)
	}

	out := p.ack(p.app.Backend.Register(ctx, apiclient.RegisterRequest{
		ID:       f.ID,
		Password: f.Password,
		Email:    f.Email,
		Code:     f.Code,
	}))(languages.MsgRegistered)
	if out.OK {
		p.mu.Lock()
		p.verifiedEmail = ""
		p.mu.Unlock()
		_, _ = p.app.Router.Push(router.PathLogin)
	}
	return out
}

func (p *AuthPages) SendResetPasswordCode(ctx context.Context, email string) Outcome {
	if msg := validate.Email(email); msg != "" {
		return Outcome{Message: msg}
	}
	return p.ack(p.app.Backend.SendResetPasswordCode(ctx, email))(languages.MsgCodeSent)
}

func (p *AuthPages) VerifyResetPasswordCode(ctx context.Context, email, code string) Outcome {
	if msg := validate.VerificationCode(code); msg != "" {
		return Outcome{Message: msg}
	}
	out := p.ack(p.app.Backend.VerifyResetPasswordCode(ctx, email, code))(languages.MsgCodeVerified)
	if out.OK {
		p.mu.Lock()
		p.resetEmail, p.resetCode = email, code
		p.mu.Unlock()
	}
	return out
}

// ResetPassword uses the e-mail and code from the last successful
// verification.
func (p *AuthPages) ResetPassword(ctx context.Context, newPassword, confirm string) Outcome {
	p.mu.Lock()
	email, code := p.resetEmail, p.resetCode
	p.mu.Unlock()
	if email == "" {
		return p.app.fail(languages.MsgVerifyEmailFirst)
	}
	if msg := validate.Password(newPassword); msg != "" {
		return Outcome{Message: msg}
	}
	if newPassword != confirm {
		return p.app.fail(languages.MsgPasswordMismatch)
	}

	out := p.ack(p.app.Backend.ResetPassword(ctx, email, code, newPassword))(languages.MsgPasswordReset)
	if out.OK {
		p.mu.Lock()
		p.resetEmail, p.resetCode = "", ""
		p.mu.Unlock()
		_, _ = p.app.Router.Push(router.PathLogin)
	}
	return out
}

// ack turns a backend acknowledgement into an Outcome, using successKey
// when the server sent no message of its own.
func (p *AuthPages) ack(res *apiclient.Ack, err error) func(successKey string) Outcome {
	return func(successKey string) Outcome {
		if err != nil {
			return p.app.failErr(err)
		}
		if !res.Success {
			return Outcome{Message: res.Message}
		}
		if res.Message != "" {
			return Outcome{OK: true, Message: res.Message}
		}
		return p.app.ok(successKey)
	}
}
