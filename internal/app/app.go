// Package app wires the client's stores together and implements the page
// flows on top of them. An App is passed explicitly to whatever renders
// pages; nothing in here is process-global.
package app

import (
	"context"
	"sync"

	"github.com/vsslab/vss/internal/apiclient"
	"github.com/vsslab/vss/internal/languages"
	"github.com/vsslab/vss/internal/objecturl"
	"github.com/vsslab/vss/internal/prefs"
	"github.com/vsslab/vss/internal/router"
	"github.com/vsslab/vss/internal/session"
	"github.com/vsslab/vss/internal/settings"
	"github.com/vsslab/vss/internal/videostore"
)

// Backend is the subset of the API the pages call.
type Backend interface {
	Login(ctx context.Context, id, password string) (*apiclient.LoginResult, error)
	Register(ctx context.Context, req apiclient.RegisterRequest) (*apiclient.Ack, error)
	SendVerificationCode(ctx context.Context, email string) (*apiclient.Ack, error)
	VerifyEmailCode(ctx context.Context, email, code string) (*apiclient.Ack, error)
	SendResetPasswordCode(ctx context.Context, email string) (*apiclient.Ack, error)
	VerifyResetPasswordCode(ctx context.Context, email, code string) (*apiclient.Ack, error)
	ResetPassword(ctx context.Context, email, code, newPassword string) (*apiclient.Ack, error)

	UploadVideo(ctx context.Context, path string) (*apiclient.UploadResult, error)
	ListVideos(ctx context.Context, userID string) ([]apiclient.Video, error)
	DeleteVideo(ctx context.Context, id int64) (*apiclient.Ack, error)
	Summarize(ctx context.Context, req apiclient.SummarizeRequest) (*apiclient.SummarizeResult, error)
	Ask(ctx context.Context, req apiclient.AskRequest) (*apiclient.AskResult, error)
	GenerateClips(ctx context.Context, req apiclient.GenerateClipsRequest) (*apiclient.ClipsResult, error)
	DeleteClips(ctx context.Context, clipURLs []string) (*apiclient.DeleteResult, error)
	SaveSummary(ctx context.Context, videoID, content, prompt string) (*apiclient.Ack, error)
	GetSummary(ctx context.Context, videoID string) (*apiclient.Summary, error)
	RecommendedChunkSize(ctx context.Context, videoLength float64) (int, error)

	CreateReport(ctx context.Context, req apiclient.CreateReportRequest) (*apiclient.Report, error)
	ListReports(ctx context.Context, page, pageSize int) (*apiclient.ReportPage, error)
	GetReport(ctx context.Context, id int64) (*apiclient.Report, error)
	DeleteReport(ctx context.Context, id int64) (*apiclient.Ack, error)
}

// Outcome is what a page shows after an action. Stale is set when a newer
// request of the same kind finished first and this result was dropped.
type Outcome struct {
	OK      bool
	Message string
	Stale   bool
}

type Deps struct {
	Prefs   prefs.Store
	Marker  settings.Marker
	System  settings.Preference
	Backend Backend
	// Session defaults to one backed by Prefs.
	Session *session.Session
}

type App struct {
	Session  *session.Session
	Settings *settings.Store
	Videos   *videostore.Store
	URLs     *objecturl.Registry
	Router   *router.Navigator
	Backend  Backend

	Auth      *AuthPages
	Summarize *SummarizePage
	Search    *SearchPage
	Reports   *ReportsPage
	Setting   *SettingPage
}

func New(d Deps) *App {
	sess := d.Session
	if sess == nil {
		sess = session.New(d.Prefs)
	}
	urls := objecturl.NewRegistry()

	a := &App{
		Session:  sess,
		Settings: settings.New(d.Prefs, d.Marker, d.System),
		Videos:   videostore.New(urls),
		URLs:     urls,
		Router:   router.NewNavigator(sess),
		Backend:  d.Backend,
	}
	a.Auth = &AuthPages{app: a}
	a.Summarize = &SummarizePage{app: a}
	a.Search = &SearchPage{app: a, pageSize: DefaultPageSize}
	a.Reports = &ReportsPage{app: a, pageSize: DefaultPageSize}
	a.Setting = newSettingPage(a)
	return a
}

// T looks up a user-facing message in the current language.
func (a *App) T(key string) string {
	return languages.Message(string(a.Settings.Language()), key)
}

func (a *App) fail(key string) Outcome {
	return Outcome{Message: a.T(key)}
}

func (a *App) failErr(err error) Outcome {
	return Outcome{Message: apiclient.Message(err)}
}

func (a *App) ok(key string) Outcome {
	return Outcome{OK: true, Message: a.T(key)}
}

// generation hands out increasing request numbers so a response can tell
// whether a newer request of the same kind has been issued since.
type generation struct {
	mu sync.Mutex
	n  uint64
}

func (g *generation) next() uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return g.n
}

func (g *generation) latest(n uint64) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.n == n
}
