// Package llm wraps an OpenAI-compatible chat endpoint (Ollama in the
// default deployment) for the prompt work around VIA requests.
package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/vsslab/vss/internal/via"
)

const requestTimeout = 60 * time.Second

// TimestampSuffix is appended to clip search questions so VIA answers with
// time ranges.
const TimestampSuffix = " 장면의 시작 타임스탬프와 종료 타임스탬프를 추출하여 반드시 '시작시간-끝시간' 형태로만 출력해주세요. 타임스탬프 형식은 초 단위(예: 10.5-120.3) 또는 분:초 형식(예: 1:30-2:45)일 수 있습니다. 타임스탬프만 출력하고 다른 설명은 포함하지 마세요."

const promptWriterSystem = `You are a prompt generator. Your task is to transform user questions into video summarization prompts.

Rules:
1. Return ONLY the prompt text itself. No examples, no samples, no timestamps.
2. Do not add any preface, explanation, quotes, or additional text.
3. Start directly with the prompt text.
4. The output must be a complete prompt usable for video summarization.`

const promptWriterUser = `User question: %q

Reference prompt:
%q

Write a new video summarization prompt that keeps the structure, tone and English style of the reference prompt, including the role definition and the instruction to start each sentence with the start and end timestamp, while working in the subject of the user question. Output only the prompt.`

const translatorSystem = "You are an expert translator. Translate the given prompt to English accurately and naturally. Output only the translated text without any additional explanations."

const extractorSystem = "You are an expert at extracting timestamps from video query responses. Extract only timestamps and output them in a clear format."

const extractorUser = `The following is the answer to a question about a video:
%s

Extract only the timestamps from the answer and output them strictly as 'start-end' ranges. Timestamps may be in seconds (for example 10.5-120.3) or minutes:seconds (for example 1:30-2:45). Output nothing but the timestamps.`

const answerSystem = "You answer questions about a video using only the summary you are given. If the summary does not contain the answer, say so briefly. Answer in the language of the question."

var ErrEmptyCompletion = errors.New("llm returned no content")

type Client struct {
	cli   *openai.Client
	model string
}

func New(baseURL, apiKey, model string) *Client {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &Client{cli: openai.NewClientWithConfig(cfg), model: model}
}

// temperature maps 0 to the smallest positive value; go-openai omits a zero
// temperature from the request and the server would apply its own default.
func temperature(t float32) float32 {
	if t == 0 {
		return math.SmallestNonzeroFloat32
	}
	return t
}

func (c *Client) complete(ctx context.Context, system, user string, temp float32, maxTokens int) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	resp, err := c.cli.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		MaxTokens:   maxTokens,
		Temperature: temperature(temp),
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyCompletion
	}
	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return "", ErrEmptyCompletion
	}
	return content, nil
}

// SummarizePrompt rewrites a user's search request into a VIA summarization
// prompt. It never fails: without the model the default prompt is combined
// with the raw request.
func (c *Client) SummarizePrompt(ctx context.Context, userPrompt string) string {
	out, err := c.complete(ctx, promptWriterSystem,
		fmt.Sprintf(promptWriterUser, userPrompt, via.DefaultSummarizePrompt), 0.4, 1000)
	if err != nil {
		slog.Warn("llm: summarize prompt fell back to default", "error", err)
		return via.DefaultSummarizePrompt + "\n\n사용자 요청: " + userPrompt
	}
	return out
}

// QueryPrompt turns a clip search request into an English VIA question that
// asks for time ranges. Without the model the untranslated question is used.
func (c *Client) QueryPrompt(ctx context.Context, userPrompt string) string {
	question := userPrompt + TimestampSuffix
	out, err := c.complete(ctx, translatorSystem,
		fmt.Sprintf("Translate the following prompt to English and output only the translation:\n%q", question), 0, 500)
	if err != nil {
		slog.Warn("llm: query translation fell back to original", "error", err)
		return question
	}
	return out
}

// ExtractTimestamps reduces a free-form VIA answer to its time ranges.
func (c *Client) ExtractTimestamps(ctx context.Context, answer string) (string, error) {
	return c.complete(ctx, extractorSystem, fmt.Sprintf(extractorUser, answer), 0, 500)
}

// Answer replies to a question from summary text alone.
func (c *Client) Answer(ctx context.Context, question, summary string) (string, error) {
	user := fmt.Sprintf("Summary:\n%s\n\nQuestion: %s", summary, question)
	return c.complete(ctx, answerSystem, user, 0.2, 1024)
}
