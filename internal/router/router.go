// Package router maps client paths to pages and decides, before every
// navigation, whether the current session may see the target.
package router

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
)

const (
	PathRoot          = "/"
	PathLogin         = "/login"
	PathRegister      = "/register"
	PathResetPassword = "/reset-password"
	PathSummarize     = "/summarize"
	PathSearch        = "/search"
	PathReport        = "/report"
	PathSetting       = "/setting"
	PathHelp          = "/help"

	// Landing is where signed-in users are sent instead of the login page.
	Landing = PathSearch
)

const maxRedirects = 8

var (
	ErrNotFound      = errors.New("page not found")
	ErrRedirectLoop  = errors.New("too many redirects")
	ErrInvalidTarget = errors.New("invalid navigation target")
)

type Route struct {
	Path       string
	Name       string
	Public     bool
	RedirectTo string
}

var routes = []Route{
	{Path: PathRoot, RedirectTo: PathLogin},
	{Path: PathSummarize, Name: "summarize"},
	{Path: PathSearch, Name: "search"},
	{Path: PathReport, Name: "report"},
	{Path: PathSetting, Name: "setting"},
	{Path: PathHelp, Name: "help"},
	{Path: PathLogin, Name: "login"},
	{Path: PathRegister, Name: "register", Public: true},
	{Path: PathResetPassword, Name: "reset-password", Public: true},
}

func Routes() []Route {
	return append([]Route(nil), routes...)
}

func Lookup(path string) (Route, bool) {
	for _, r := range routes {
		if r.Path == path {
			return r, true
		}
	}
	return Route{}, false
}

// Decision is the guard's verdict. Redirect is set only when Allow is false.
type Decision struct {
	Allow    bool
	Redirect string
}

// Guard decides whether a user with the given identity may open target.
// An empty identity means signed out.
func Guard(target, identity string) Decision {
	if target == PathLogin {
		if identity != "" {
			return Decision{Redirect: Landing}
		}
		return Decision{Allow: true}
	}
	if r, ok := Lookup(target); ok && r.Public {
		return Decision{Allow: true}
	}
	if identity == "" {
		return Decision{Redirect: PathLogin}
	}
	return Decision{Allow: true}
}

// Normalize strips query, fragment, and trailing slashes from a target.
func Normalize(target string) (string, error) {
	u, err := url.Parse(target)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidTarget, err)
	}
	p := u.Path
	if p == "" {
		p = PathRoot
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if len(p) > 1 {
		p = strings.TrimRight(p, "/")
		if p == "" {
			p = PathRoot
		}
	}
	return p, nil
}

// Identity reports the persisted session identity.
type Identity interface {
	Identity() string
}

type Navigator struct {
	identity Identity

	mu        sync.Mutex
	current   string
	listeners []func(path string)
}

func NewNavigator(identity Identity) *Navigator {
	return &Navigator{identity: identity}
}

// Start resolves the entry URL with the same rules as any other navigation.
func (n *Navigator) Start(entry string) (string, error) {
	return n.Push(entry)
}

// Push navigates to target, following route redirects and guard decisions.
// On error the current page is left unchanged.
func (n *Navigator) Push(target string) (string, error) {
	path, err := n.resolve(target)
	if err != nil {
		return n.Current(), err
	}

	n.mu.Lock()
	n.current = path
	listeners := append([]func(string){}, n.listeners...)
	n.mu.Unlock()

	for _, fn := range listeners {
		fn(path)
	}
	return path, nil
}

func (n *Navigator) resolve(target string) (string, error) {
	path, err := Normalize(target)
	if err != nil {
		return "", err
	}

	for i := 0; i < maxRedirects; i++ {
		if r, ok := Lookup(path); ok && r.RedirectTo != "" {
			path = r.RedirectTo
			continue
		}

		d := Guard(path, n.identity.Identity())
		if !d.Allow {
			path = d.Redirect
			continue
		}

		if _, ok := Lookup(path); !ok {
			return "", fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return path, nil
	}
	return "", ErrRedirectLoop
}

func (n *Navigator) Current() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.current
}

// OnNavigate registers fn to run after each successful navigation.
func (n *Navigator) OnNavigate(fn func(path string)) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.listeners = append(n.listeners, fn)
}
