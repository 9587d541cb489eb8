package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/vsslab/vss/internal/apiclient"
	"github.com/vsslab/vss/internal/languages"
	"github.com/vsslab/vss/internal/settings"
	"github.com/vsslab/vss/internal/validate"
	"github.com/vsslab/vss/internal/videostore"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ChatMessage is one entry in the summarize page conversation. Pending
// entries are placeholders waiting for a response.
type ChatMessage struct {
	ID      int
	Role    Role
	Text    string
	Pending bool
}

// SummarizePage handles upload, summarization and follow-up questions for
// one selected video at a time.
type SummarizePage struct {
	app *App

	summarizeGen generation
	askGen       generation

	mu       sync.Mutex
	selected string
	summary  string
	prompt   string
	messages []ChatMessage
	nextID   int
}

// Upload sends a local file, adds the resulting record to the video list
// and selects it. The chunk size is set from the server's recommendation
// for the video's length.
func (p *SummarizePage) Upload(ctx context.Context, path string) Outcome {
	info, err := os.Stat(path)
	if err != nil {
		return Outcome{Message: err.Error()}
	}
	if info.IsDir() {
		return Outcome{Message: fmt.Sprintf("%s is a directory", path)}
	}

	res, err := p.app.Backend.UploadVideo(ctx, path)
	if err != nil {
		return p.app.failErr(err)
	}
	if !res.Success {
		return Outcome{Message: res.Message}
	}

	v := fromAPIVideo(res.Video)
	v.File = &videostore.File{Name: filepath.Base(path), Path: path, Size: info.Size()}

	p.app.Videos.Update(func(videos []videostore.Video) []videostore.Video {
		return append(videos, v)
	})

	p.mu.Lock()
	p.selectLocked(v.ID)
	p.mu.Unlock()

	if v.Duration > 0 {
		p.RecommendChunk(ctx, v.Duration)
	}
	return p.app.ok(languages.MsgUploaded)
}

// RecommendChunk asks the server for a chunk size and stores it in the
// settings. Failures leave the current value alone.
func (p *SummarizePage) RecommendChunk(ctx context.Context, videoLength float64) (int, bool) {
	size, err := p.app.Backend.RecommendedChunkSize(ctx, videoLength)
	if err != nil {
		slog.Warn("summarize: chunk size recommendation failed", "error", err)
		return 0, false
	}
	p.app.Settings.Update(func(params *settings.Params) { params.Chunk = size })
	return size, true
}

// Select makes a video from the store the subject of the page and resets
// the conversation.
func (p *SummarizePage) Select(id string) bool {
	if _, ok := p.find(id); !ok {
		return false
	}
	p.mu.Lock()
	p.selectLocked(id)
	p.mu.Unlock()
	return true
}

func (p *SummarizePage) selectLocked(id string) {
	if p.selected == id {
		return
	}
	p.selected = id
	p.summary = ""
	p.prompt = ""
	p.messages = nil
	p.summarizeGen.next()
	p.askGen.next()
}

func (p *SummarizePage) Selected() (videostore.Video, bool) {
	p.mu.Lock()
	id := p.selected
	p.mu.Unlock()
	return p.find(id)
}

func (p *SummarizePage) find(id string) (videostore.Video, bool) {
	if id == "" {
		return videostore.Video{}, false
	}
	for _, v := range p.app.Videos.Videos() {
		if v.ID == id {
			return v, true
		}
	}
	return videostore.Video{}, false
}

// Summarize requests a summary of the selected video using the current
// settings. A placeholder message is shown until the response arrives.
func (p *SummarizePage) Summarize(ctx context.Context, prompt string) Outcome {
	prompt = strings.TrimSpace(prompt)
	v, ok := p.Selected()
	if !ok {
		return p.app.fail(languages.MsgUploadFirst)
	}
	if msg := validate.Prompt(prompt); msg != "" {
		return Outcome{Message: msg}
	}

	gen := p.summarizeGen.next()
	if prompt != "" {
		p.post(RoleUser, prompt, false)
	}
	placeholder := p.post(RoleAssistant, p.app.T(languages.MsgSummarizing), true)

	req := apiclient.SummarizeRequest{
		VideoID: v.VIAVideoID,
		Prompt:  prompt,
		Params:  p.app.Settings.Params(),
	}
	if v.VIAVideoID == "" && v.File != nil {
		req.FilePath = v.File.Path
	}

	res, err := p.app.Backend.Summarize(ctx, req)
	if !p.summarizeGen.latest(gen) {
		p.drop(placeholder)
		return Outcome{Stale: true}
	}
	if err != nil {
		msg := apiclient.Message(err)
		p.resolve(placeholder, msg)
		return Outcome{Message: msg}
	}

	p.resolve(placeholder, res.Summary)
	p.mu.Lock()
	p.summary = res.Summary
	p.prompt = prompt
	p.mu.Unlock()

	p.recordSummary(v.ID, res)
	return Outcome{OK: true}
}

// recordSummary writes the summary and VIA id back into the video list.
func (p *SummarizePage) recordSummary(id string, res *apiclient.SummarizeResult) {
	p.app.Videos.Update(func(videos []videostore.Video) []videostore.Video {
		for i := range videos {
			if videos[i].ID != id {
				continue
			}
			videos[i].Summary = res.Summary
			if res.VideoID != "" {
				videos[i].VIAVideoID = res.VideoID
			}
		}
		return videos
	})
}

// Ask sends a follow-up question about the current summary.
func (p *SummarizePage) Ask(ctx context.Context, question string) Outcome {
	question = strings.TrimSpace(question)
	p.mu.Lock()
	summary := p.summary
	p.mu.Unlock()
	if summary == "" {
		return p.app.fail(languages.MsgSummarizeFirst)
	}
	if msg := validate.Question(question); msg != "" {
		return Outcome{Message: msg}
	}
	v, _ := p.Selected()

	gen := p.askGen.next()
	p.post(RoleUser, question, false)
	placeholder := p.post(RoleAssistant, p.app.T(languages.MsgThinking), true)

	res, err := p.app.Backend.Ask(ctx, apiclient.AskRequest{
		Question: question,
		Context:  summary,
		VideoID:  v.VIAVideoID,
	})
	if !p.askGen.latest(gen) {
		p.drop(placeholder)
		return Outcome{Stale: true}
	}
	if err != nil {
		msg := apiclient.Message(err)
		p.resolve(placeholder, msg)
		return Outcome{Message: msg}
	}
	p.resolve(placeholder, res.Answer)
	return Outcome{OK: true}
}

// Save stores the current summary on the server.
func (p *SummarizePage) Save(ctx context.Context) Outcome {
	p.mu.Lock()
	summary, prompt := p.summary, p.prompt
	p.mu.Unlock()
	v, ok := p.Selected()
	if !ok || summary == "" || v.VIAVideoID == "" {
		return p.app.fail(languages.MsgSummarizeFirst)
	}

	res, err := p.app.Backend.SaveSummary(ctx, v.VIAVideoID, summary, prompt)
	if err != nil {
		return p.app.failErr(err)
	}
	if !res.Success {
		return Outcome{Message: res.Message}
	}
	return p.app.ok(languages.MsgSummarySaved)
}

func (p *SummarizePage) Summary() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.summary
}

func (p *SummarizePage) Messages() []ChatMessage {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]ChatMessage(nil), p.messages...)
}

func (p *SummarizePage) post(role Role, text string, pending bool) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.nextID++
	p.messages = append(p.messages, ChatMessage{ID: p.nextID, Role: role, Text: text, Pending: pending})
	return p.nextID
}

func (p *SummarizePage) resolve(id int, text string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i := range p.messages {
		if p.messages[i].ID == id {
			p.messages[i].Text = text
			p.messages[i].Pending = false
			return
		}
	}
}

func (p *SummarizePage) drop(id int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i := range p.messages {
		if p.messages[i].ID == id {
			p.messages = append(p.messages[:i], p.messages[i+1:]...)
			return
		}
	}
}

func (p *SummarizePage) reset() {
	p.summarizeGen.next()
	p.askGen.next()
	p.mu.Lock()
	defer p.mu.Unlock()
	p.selected = ""
	p.summary = ""
	p.prompt = ""
	p.messages = nil
}

func fromAPIVideo(v apiclient.Video) videostore.Video {
	return videostore.Video{
		ID:         strconv.FormatInt(v.ID, 10),
		Title:      v.Title,
		OriginURL:  v.FileURL,
		Date:       v.CreatedAt,
		VIAVideoID: v.VIAVideoID,
		FileSize:   v.FileSize,
		Duration:   v.Duration,
	}
}
