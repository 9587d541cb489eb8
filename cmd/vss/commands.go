package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/vsslab/vss/internal/app"
	"github.com/vsslab/vss/internal/appearance"
	"github.com/vsslab/vss/internal/router"
	"github.com/vsslab/vss/internal/settings"
)

const usage = `usage: vss <command> [flags] [args]

commands:
  login -id ID            sign in (password is read from stdin)
  logout                  sign out and forget local state
  register -id ID -email EMAIL
  reset-password -email EMAIL
  videos [-filter Q] [-page N]
  upload PATH
  summarize [-prompt P] [-ask Q] [-save] VIDEO_ID|PATH
  search -prompt P VIDEO_ID...
  delete VIDEO_ID
  reports [-page N]
  report ID
  report-create -title T [-description D] VIDEO_ID...
  report-delete ID
  theme light|dark|auto
  language ko|en
  prompts [-set N -value TEXT]
  open PATH               show where navigation to PATH would land
`

type cli struct {
	app    *app.App
	system *appearance.System
	styles styles
	out    io.Writer
	in     io.Reader
	lines  *bufio.Scanner
}

type command func(ctx context.Context, args []string) error

var errUsage = errors.New("invalid usage")

func (c *cli) commands() map[string]command {
	return map[string]command{
		"login":          c.login,
		"logout":         c.logout,
		"register":       c.register,
		"reset-password": c.resetPassword,
		"videos":         c.videos,
		"upload":         c.upload,
		"summarize":      c.summarize,
		"search":         c.search,
		"delete":         c.deleteVideo,
		"reports":        c.reports,
		"report":         c.report,
		"report-create":  c.reportCreate,
		"report-delete":  c.reportDelete,
		"theme":          c.theme,
		"language":       c.language,
		"prompts":        c.prompts,
		"open":           c.open,
	}
}

func (c *cli) dispatch(ctx context.Context, args []string) int {
	if len(args) == 0 {
		fmt.Fprint(c.out, usage)
		return 2
	}
	cmd, ok := c.commands()[args[0]]
	if !ok {
		fmt.Fprintf(c.out, "unknown command %q\n\n%s", args[0], usage)
		return 2
	}
	if err := cmd(ctx, args[1:]); err != nil {
		if errors.Is(err, errUsage) || errors.Is(err, flag.ErrHelp) {
			fmt.Fprint(c.out, usage)
			return 2
		}
		fmt.Fprintln(c.out, c.styles.err.Render(err.Error()))
		return 1
	}
	return 0
}

// enter navigates to a page the way the client router would and fails if
// the guard sends the user elsewhere.
func (c *cli) enter(path string) error {
	landed, err := c.app.Router.Start(path)
	if err != nil {
		return err
	}
	if landed != path {
		return fmt.Errorf("%s requires login (redirected to %s)", path, landed)
	}
	return nil
}

// result prints an Outcome and converts a failure into an error.
func (c *cli) result(out app.Outcome) error {
	if out.Stale {
		return nil
	}
	if !out.OK {
		return errors.New(out.Message)
	}
	if out.Message != "" {
		fmt.Fprintln(c.out, c.styles.ok.Render(out.Message))
	}
	return nil
}

// refreshTheme picks up a system color-scheme change that happened while a
// long VIA call was running, before its results are rendered.
func (c *cli) refreshTheme() {
	if c.system != nil {
		c.system.Refresh()
	}
}

func (c *cli) readLine(prompt string) string {
	if c.lines == nil {
		c.lines = bufio.NewScanner(c.in)
	}
	fmt.Fprint(c.out, c.styles.muted.Render(prompt))
	if !c.lines.Scan() {
		return ""
	}
	return strings.TrimSpace(c.lines.Text())
}

func newFlags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

func (c *cli) login(ctx context.Context, args []string) error {
	fs := newFlags("login")
	id := fs.String("id", "", "user id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := c.enter(router.PathLogin); err != nil {
		fmt.Fprintln(c.out, c.styles.muted.Render("already signed in as "+c.app.Session.Identity()))
		return nil
	}
	password := c.readLine("password: ")
	if err := c.result(c.app.Auth.Login(ctx, *id, password)); err != nil {
		return err
	}
	fmt.Fprintln(c.out, c.styles.ok.Render("signed in as "+c.app.Session.Identity()))
	return nil
}

func (c *cli) logout(context.Context, []string) error {
	return c.result(c.app.Auth.Logout())
}

func (c *cli) register(ctx context.Context, args []string) error {
	fs := newFlags("register")
	id := fs.String("id", "", "user id")
	email := fs.String("email", "", "email address")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := c.enter(router.PathRegister); err != nil {
		return err
	}

	if err := c.result(c.app.Auth.SendVerificationCode(ctx, *email)); err != nil {
		return err
	}
	code := c.readLine("verification code: ")
	if err := c.result(c.app.Auth.VerifyEmailCode(ctx, *email, code)); err != nil {
		return err
	}
	password := c.readLine("password: ")
	confirm := c.readLine("confirm password: ")
	return c.result(c.app.Auth.Register(ctx, app.RegisterForm{
		ID:              *id,
		Password:        password,
		PasswordConfirm: confirm,
		Email:           *email,
		Code:            code,
	}))
}

func (c *cli) resetPassword(ctx context.Context, args []string) error {
	fs := newFlags("reset-password")
	email := fs.String("email", "", "email address")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := c.enter(router.PathResetPassword); err != nil {
		return err
	}

	if err := c.result(c.app.Auth.SendResetPasswordCode(ctx, *email)); err != nil {
		return err
	}
	code := c.readLine("verification code: ")
	if err := c.result(c.app.Auth.VerifyResetPasswordCode(ctx, *email, code)); err != nil {
		return err
	}
	password := c.readLine("new password: ")
	confirm := c.readLine("confirm password: ")
	return c.result(c.app.Auth.ResetPassword(ctx, password, confirm))
}

func (c *cli) videos(ctx context.Context, args []string) error {
	fs := newFlags("videos")
	filter := fs.String("filter", "", "title filter")
	page := fs.Int("page", 1, "page number")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := c.enter(router.PathSearch); err != nil {
		return err
	}
	if err := c.result(c.app.Search.Load(ctx)); err != nil {
		return err
	}

	c.app.Search.SetFilter(*filter)
	c.app.Search.SetPage(*page)
	view := c.app.Search.View()
	fmt.Fprintln(c.out, c.styles.title.Render(fmt.Sprintf("videos (page %d/%d, %d total)", view.Page, view.Pages, view.Total)))
	for _, v := range view.Videos {
		fmt.Fprintf(c.out, "%6s  %-40s %s\n", v.ID, v.Title, c.styles.muted.Render(fmt.Sprintf("%.1fs %s", v.Duration, v.Date)))
	}
	return nil
}

func (c *cli) upload(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errUsage
	}
	if err := c.enter(router.PathSummarize); err != nil {
		return err
	}
	if err := c.result(c.app.Summarize.Upload(ctx, args[0])); err != nil {
		return err
	}
	v, _ := c.app.Summarize.Selected()
	fmt.Fprintf(c.out, "%s %s (chunk %ds)\n", c.styles.title.Render(v.ID), v.Title, c.app.Settings.Params().Chunk)
	return nil
}

func (c *cli) summarize(ctx context.Context, args []string) error {
	fs := newFlags("summarize")
	prompt := fs.String("prompt", "", "what to look for")
	ask := fs.String("ask", "", "follow-up question")
	save := fs.Bool("save", false, "save the summary on the server")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errUsage
	}
	if err := c.enter(router.PathSummarize); err != nil {
		return err
	}

	target := fs.Arg(0)
	if _, err := os.Stat(target); err == nil {
		if err := c.result(c.app.Summarize.Upload(ctx, target)); err != nil {
			return err
		}
	} else {
		if err := c.result(c.app.Search.Load(ctx)); err != nil {
			return err
		}
		if !c.app.Summarize.Select(target) {
			return fmt.Errorf("no video with id %s", target)
		}
	}

	out := c.app.Summarize.Summarize(ctx, *prompt)
	if *ask != "" && out.OK {
		out = c.app.Summarize.Ask(ctx, *ask)
	}
	c.refreshTheme()
	c.printMessages()
	if !out.OK {
		return errors.New(out.Message)
	}
	if *save {
		return c.result(c.app.Summarize.Save(ctx))
	}
	return nil
}

func (c *cli) printMessages() {
	for _, m := range c.app.Summarize.Messages() {
		switch {
		case m.Pending:
			fmt.Fprintln(c.out, c.styles.pending.Render(m.Text))
		case m.Role == app.RoleUser:
			fmt.Fprintln(c.out, c.styles.user.Render("> "+m.Text))
		default:
			fmt.Fprintln(c.out, m.Text)
		}
	}
}

func (c *cli) search(ctx context.Context, args []string) error {
	fs := newFlags("search")
	prompt := fs.String("prompt", "", "scene to search for")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := c.enter(router.PathSearch); err != nil {
		return err
	}
	if err := c.result(c.app.Search.Load(ctx)); err != nil {
		return err
	}
	for _, id := range fs.Args() {
		c.app.Search.Toggle(id)
	}
	if err := c.result(c.app.Search.GenerateClips(ctx, *prompt)); err != nil {
		return err
	}

	res := c.app.Search.Clips()
	if res == nil {
		return nil
	}
	c.refreshTheme()
	for _, group := range res.Clips {
		fmt.Fprintln(c.out, c.styles.title.Render(group.Video))
		for _, clip := range group.Clips {
			if clip.StartTime == nil || clip.EndTime == nil {
				fmt.Fprintln(c.out, c.styles.muted.Render(clip.VIAResponse))
				continue
			}
			fmt.Fprintf(c.out, "  %7.1f - %7.1f  %s\n", *clip.StartTime, *clip.EndTime, clip.URL)
		}
	}
	return nil
}

func (c *cli) deleteVideo(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errUsage
	}
	if err := c.enter(router.PathSearch); err != nil {
		return err
	}
	return c.result(c.app.Search.Delete(ctx, args[0]))
}

func (c *cli) reports(ctx context.Context, args []string) error {
	fs := newFlags("reports")
	page := fs.Int("page", 1, "page number")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := c.enter(router.PathReport); err != nil {
		return err
	}
	if err := c.result(c.app.Reports.Load(ctx, *page)); err != nil {
		return err
	}
	p := c.app.Reports.Page()
	fmt.Fprintln(c.out, c.styles.title.Render(fmt.Sprintf("reports (page %d/%d, %d total)", p.Page, p.Pages, p.Total)))
	for _, r := range p.Reports {
		fmt.Fprintf(c.out, "%6d  %-40s %s\n", r.ID, r.Title, c.styles.muted.Render(r.CreatedAt))
	}
	return nil
}

func parseID(args []string) (int64, error) {
	if len(args) != 1 {
		return 0, errUsage
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid id %q", args[0])
	}
	return id, nil
}

func (c *cli) report(ctx context.Context, args []string) error {
	id, err := parseID(args)
	if err != nil {
		return err
	}
	if err := c.enter(router.PathReport); err != nil {
		return err
	}
	if err := c.result(c.app.Reports.Open(ctx, id)); err != nil {
		return err
	}
	r := c.app.Reports.Opened()
	fmt.Fprintln(c.out, c.styles.title.Render(r.Title))
	if r.Description != "" {
		fmt.Fprintln(c.out, c.styles.muted.Render(r.Description))
	}
	fmt.Fprintln(c.out, r.Content)
	return nil
}

func (c *cli) reportCreate(ctx context.Context, args []string) error {
	fs := newFlags("report-create")
	title := fs.String("title", "", "report title")
	description := fs.String("description", "", "report description")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := c.enter(router.PathReport); err != nil {
		return err
	}
	if err := c.result(c.app.Search.Load(ctx)); err != nil {
		return err
	}
	return c.result(c.app.Reports.Create(ctx, app.ReportForm{
		Title:       *title,
		Description: *description,
		VideoIDs:    fs.Args(),
	}))
}

func (c *cli) reportDelete(ctx context.Context, args []string) error {
	id, err := parseID(args)
	if err != nil {
		return err
	}
	if err := c.enter(router.PathReport); err != nil {
		return err
	}
	return c.result(c.app.Reports.Delete(ctx, id))
}

func (c *cli) theme(_ context.Context, args []string) error {
	if len(args) != 1 {
		return errUsage
	}
	t, err := settings.ParseTheme(args[0])
	if err != nil {
		return err
	}
	if err := c.app.Settings.SetTheme(t); err != nil {
		return err
	}
	fmt.Fprintln(c.out, c.styles.title.Render("theme: "+string(t)))
	return nil
}

func (c *cli) language(_ context.Context, args []string) error {
	if len(args) != 1 {
		return errUsage
	}
	l, err := settings.ParseLanguage(args[0])
	if err != nil {
		return err
	}
	if err := c.app.Settings.SetLanguage(l); err != nil {
		return err
	}
	fmt.Fprintln(c.out, c.styles.title.Render("language: "+string(l)))
	return nil
}

// prompts shows the prompt editors. Parameters are held in memory only, so
// -set affects nothing beyond this process.
func (c *cli) prompts(_ context.Context, args []string) error {
	fs := newFlags("prompts")
	set := fs.Int("set", -1, "index of the prompt to change")
	value := fs.String("value", "", "new prompt text")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := c.enter(router.PathSetting); err != nil {
		return err
	}
	if *set >= 0 {
		if !c.app.Setting.SetPrompt(*set, *value) {
			return fmt.Errorf("no prompt at index %d", *set)
		}
		c.app.Setting.Toggle(*set)
	}
	for i, item := range c.app.Setting.Items() {
		fmt.Fprintln(c.out, c.styles.title.Render(fmt.Sprintf("[%d] %s", i, item.Label)))
		if item.Open || *set < 0 {
			fmt.Fprintln(c.out, item.Value)
		}
	}
	return nil
}

func (c *cli) open(_ context.Context, args []string) error {
	if len(args) != 1 {
		return errUsage
	}
	landed, err := c.app.Router.Start(args[0])
	if err != nil {
		return err
	}
	fmt.Fprintln(c.out, landed)
	return nil
}
