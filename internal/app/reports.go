package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/vsslab/vss/internal/apiclient"
	"github.com/vsslab/vss/internal/languages"
	"github.com/vsslab/vss/internal/validate"
	"github.com/vsslab/vss/internal/videostore"
)

// ReportsPage lists saved reports and builds new ones from video summaries.
type ReportsPage struct {
	app      *App
	pageSize int
	loadGen  generation

	mu      sync.Mutex
	current *apiclient.ReportPage
	open    *apiclient.Report
}

func (p *ReportsPage) Load(ctx context.Context, page int) Outcome {
	if page < 1 {
		page = 1
	}
	gen := p.loadGen.next()
	res, err := p.app.Backend.ListReports(ctx, page, p.pageSize)
	if !p.loadGen.latest(gen) {
		return Outcome{Stale: true}
	}
	if err != nil {
		return p.app.failErr(err)
	}
	p.mu.Lock()
	p.current = res
	p.mu.Unlock()
	return Outcome{OK: true}
}

// Page returns the last loaded page, or nil.
func (p *ReportsPage) Page() *apiclient.ReportPage {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

type ReportForm struct {
	Title       string
	Description string
	// VideoIDs are ids of records in the video list.
	VideoIDs []string
}

// Create assembles a report from the summaries of the chosen videos.
// Summaries not held locally are fetched from the server; videos without
// any summary are left out.
func (p *ReportsPage) Create(ctx context.Context, f ReportForm) Outcome {
	f.Title = strings.TrimSpace(f.Title)
	if msg := validate.ReportTitle(f.Title); msg != "" {
		return Outcome{Message: msg}
	}
	if msg := validate.ReportDescription(f.Description); msg != "" {
		return Outcome{Message: msg}
	}
	if len(f.VideoIDs) == 0 {
		return p.app.fail(languages.MsgSelectVideos)
	}

	byID := make(map[string]videostore.Video)
	for _, v := range p.app.Videos.Videos() {
		byID[v.ID] = v
	}

	req := apiclient.CreateReportRequest{Title: f.Title, Description: f.Description}
	var sections []string
	for _, id := range f.VideoIDs {
		v, ok := byID[id]
		if !ok {
			continue
		}
		summary := v.Summary
		if summary == "" && v.VIAVideoID != "" {
			s, err := p.app.Backend.GetSummary(ctx, v.VIAVideoID)
			if err != nil {
				slog.Warn("report: summary lookup failed", "video_id", v.VIAVideoID, "error", err)
			} else {
				summary = s.SummaryText
			}
		}
		if summary == "" {
			continue
		}
		sections = append(sections, fmt.Sprintf("## %s\n\n%s", v.Title, summary))
		req.VideoIDs = append(req.VideoIDs, v.VIAVideoID)
		req.VideoTitles = append(req.VideoTitles, v.Title)
	}
	if len(sections) == 0 {
		return p.app.fail(languages.MsgSummarizeFirst)
	}
	req.Content = strings.Join(sections, "\n\n")
	if msg := validate.ReportContent(req.Content); msg != "" {
		return Outcome{Message: msg}
	}

	report, err := p.app.Backend.CreateReport(ctx, req)
	if err != nil {
		return p.app.failErr(err)
	}
	p.mu.Lock()
	p.open = report
	p.mu.Unlock()
	return p.app.ok(languages.MsgReportCreated)
}

func (p *ReportsPage) Open(ctx context.Context, id int64) Outcome {
	report, err := p.app.Backend.GetReport(ctx, id)
	if err != nil {
		return p.app.failErr(err)
	}
	p.mu.Lock()
	p.open = report
	p.mu.Unlock()
	return Outcome{OK: true}
}

// Opened returns the report being viewed, or nil.
func (p *ReportsPage) Opened() *apiclient.Report {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.open
}

// Delete removes a report and reloads the current page.
func (p *ReportsPage) Delete(ctx context.Context, id int64) Outcome {
	res, err := p.app.Backend.DeleteReport(ctx, id)
	if err != nil {
		return p.app.failErr(err)
	}
	if !res.Success {
		return Outcome{Message: res.Message}
	}

	p.mu.Lock()
	if p.open != nil && p.open.ID == id {
		p.open = nil
	}
	page := 1
	if p.current != nil {
		page = p.current.Page
		if len(p.current.Reports) == 1 && page > 1 {
			page--
		}
	}
	p.mu.Unlock()

	if out := p.Load(ctx, page); !out.OK && !out.Stale {
		return out
	}
	return p.app.ok(languages.MsgDeleted)
}

func (p *ReportsPage) reset() {
	p.loadGen.next()
	p.mu.Lock()
	defer p.mu.Unlock()
	p.current = nil
	p.open = nil
}
