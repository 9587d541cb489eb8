package app

import (
	"context"
	"strconv"
	"strings"
	"sync"

	"github.com/vsslab/vss/internal/apiclient"
	"github.com/vsslab/vss/internal/languages"
	"github.com/vsslab/vss/internal/validate"
	"github.com/vsslab/vss/internal/videostore"
)

const DefaultPageSize = 6

// PageView is one page of the filtered video list.
type PageView struct {
	Videos []videostore.Video
	Page   int
	Pages  int
	Total  int
}

// SearchPage lists the user's videos, lets them pick some and searches
// those for scenes matching a prompt.
type SearchPage struct {
	app      *App
	pageSize int
	loadGen  generation
	clipsGen generation

	mu       sync.Mutex
	filter   string
	page     int
	selected map[string]bool
	clips    *apiclient.ClipsResult
}

// Load replaces the video list with the user's videos from the server.
func (p *SearchPage) Load(ctx context.Context) Outcome {
	gen := p.loadGen.next()
	list, err := p.app.Backend.ListVideos(ctx, p.app.Session.Identity())
	if !p.loadGen.latest(gen) {
		return Outcome{Stale: true}
	}
	if err != nil {
		return p.app.failErr(err)
	}

	// Local file handles and summaries survive a reload.
	var videos []videostore.Video
	p.app.Videos.Update(func(current []videostore.Video) []videostore.Video {
		prev := make(map[string]videostore.Video, len(current))
		for _, v := range current {
			prev[v.ID] = v
		}
		videos = make([]videostore.Video, 0, len(list))
		for _, item := range list {
			v := fromAPIVideo(item)
			if old, ok := prev[v.ID]; ok {
				v.File = old.File
				v.ObjectURL = old.ObjectURL
				v.Summary = old.Summary
			}
			videos = append(videos, v)
		}
		return videos
	})

	p.mu.Lock()
	for id := range p.selected {
		if !containsID(videos, id) {
			delete(p.selected, id)
		}
	}
	p.mu.Unlock()
	return Outcome{OK: true}
}

func containsID(videos []videostore.Video, id string) bool {
	for _, v := range videos {
		if v.ID == id {
			return true
		}
	}
	return false
}

// SetFilter narrows the list to titles containing q and returns to the
// first page.
func (p *SearchPage) SetFilter(q string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.filter = strings.TrimSpace(q)
	p.page = 1
}

func (p *SearchPage) SetPage(n int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.page = n
}

// View returns the current page of the filtered list. The page number is
// clamped to the available range.
func (p *SearchPage) View() PageView {
	p.mu.Lock()
	filter := strings.ToLower(p.filter)
	page := p.page
	p.mu.Unlock()

	var matched []videostore.Video
	for _, v := range p.app.Videos.Videos() {
		if filter == "" || strings.Contains(strings.ToLower(v.Title), filter) {
			matched = append(matched, v)
		}
	}

	pages := (len(matched) + p.pageSize - 1) / p.pageSize
	if pages < 1 {
		pages = 1
	}
	page = max(1, min(page, pages))

	start := (page - 1) * p.pageSize
	end := min(start+p.pageSize, len(matched))
	return PageView{
		Videos: append([]videostore.Video(nil), matched[start:end]...),
		Page:   page,
		Pages:  pages,
		Total:  len(matched),
	}
}

func (p *SearchPage) Toggle(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.selected == nil {
		p.selected = make(map[string]bool)
	}
	if p.selected[id] {
		delete(p.selected, id)
	} else {
		p.selected[id] = true
	}
}

// Selected returns the selected videos in list order.
func (p *SearchPage) Selected() []videostore.Video {
	p.mu.Lock()
	sel := make(map[string]bool, len(p.selected))
	for id := range p.selected {
		sel[id] = true
	}
	p.mu.Unlock()

	var out []videostore.Video
	for _, v := range p.app.Videos.Videos() {
		if sel[v.ID] {
			out = append(out, v)
		}
	}
	return out
}

// Delete removes one video on the server and from the list.
func (p *SearchPage) Delete(ctx context.Context, id string) Outcome {
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return Outcome{Message: "invalid video id"}
	}
	res, err := p.app.Backend.DeleteVideo(ctx, n)
	if err != nil {
		return p.app.failErr(err)
	}
	if !res.Success {
		return Outcome{Message: res.Message}
	}

	p.app.Videos.Update(func(videos []videostore.Video) []videostore.Video {
		var kept []videostore.Video
		for _, v := range videos {
			if v.ID != id {
				kept = append(kept, v)
			}
		}
		return kept
	})

	p.mu.Lock()
	delete(p.selected, id)
	p.mu.Unlock()
	return p.app.ok(languages.MsgDeleted)
}

// GenerateClips searches the selected videos for scenes matching prompt.
func (p *SearchPage) GenerateClips(ctx context.Context, prompt string) Outcome {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return p.app.fail(languages.MsgEnterSearchPrompt)
	}
	if msg := validate.Prompt(prompt); msg != "" {
		return Outcome{Message: msg}
	}
	selected := p.Selected()
	if len(selected) == 0 {
		return p.app.fail(languages.MsgSelectVideos)
	}

	ids := make([]int64, 0, len(selected))
	for _, v := range selected {
		n, err := strconv.ParseInt(v.ID, 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, n)
	}

	gen := p.clipsGen.next()
	res, err := p.app.Backend.GenerateClips(ctx, apiclient.GenerateClipsRequest{Prompt: prompt, VideoIDs: ids})
	if !p.clipsGen.latest(gen) {
		return Outcome{Stale: true}
	}
	if err != nil {
		return p.app.failErr(err)
	}

	p.mu.Lock()
	p.clips = res
	p.mu.Unlock()

	if !res.ClipsExtracted {
		return Outcome{OK: true, Message: p.app.T(languages.MsgNoClipsFound)}
	}
	return Outcome{OK: true}
}

// Clips returns the most recent search result, or nil.
func (p *SearchPage) Clips() *apiclient.ClipsResult {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.clips
}

// DeleteClips removes every clip file in the current result from the
// server and clears the result.
func (p *SearchPage) DeleteClips(ctx context.Context) Outcome {
	p.mu.Lock()
	var urls []string
	if p.clips != nil {
		for _, g := range p.clips.Clips {
			for _, c := range g.Clips {
				if c.URL != "" {
					urls = append(urls, c.URL)
				}
			}
		}
	}
	p.mu.Unlock()

	if len(urls) > 0 {
		res, err := p.app.Backend.DeleteClips(ctx, urls)
		if err != nil {
			return p.app.failErr(err)
		}
		if !res.Success {
			return Outcome{Message: res.Message}
		}
	}

	p.clipsGen.next()
	p.mu.Lock()
	p.clips = nil
	p.mu.Unlock()
	return p.app.ok(languages.MsgDeleted)
}

func (p *SearchPage) reset() {
	p.loadGen.next()
	p.clipsGen.next()
	p.mu.Lock()
	defer p.mu.Unlock()
	p.filter = ""
	p.page = 1
	p.selected = nil
	p.clips = nil
}
