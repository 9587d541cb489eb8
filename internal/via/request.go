package via

// SummarizeRequest is the body of POST /summarize.
type SummarizeRequest struct {
	ID                         string  `json:"id"`
	Prompt                     string  `json:"prompt"`
	CaptionSummarizationPrompt string  `json:"caption_summarization_prompt"`
	SummaryAggregationPrompt   string  `json:"summary_aggregation_prompt"`
	Model                      string  `json:"model"`
	ChunkDuration              int     `json:"chunk_duration"`
	Temperature                float64 `json:"temperature"`
	Seed                       int     `json:"seed"`
	MaxTokens                  int     `json:"max_tokens"`
	TopP                       float64 `json:"top_p"`
	TopK                       int     `json:"top_k"`
	NumFramesPerChunk          int     `json:"num_frames_per_chunk"`
	VLMInputWidth              int     `json:"vlm_input_width"`
	VLMInputHeight             int     `json:"vlm_input_height"`
	SummarizeTopP              float64 `json:"summarize_top_p"`
	SummarizeTemperature       float64 `json:"summarize_temperature"`
	SummarizeMaxTokens         int     `json:"summarize_max_tokens"`
	ChatTopP                   float64 `json:"chat_top_p"`
	ChatTemperature            float64 `json:"chat_temperature"`
	ChatMaxTokens              int     `json:"chat_max_tokens"`
	NotificationTopP           float64 `json:"notification_top_p"`
	NotificationTemperature    float64 `json:"notification_temperature"`
	NotificationMaxTokens      int     `json:"notification_max_tokens"`
	SummarizeBatchSize         int     `json:"summarize_batch_size"`
	RAGBatchSize               int     `json:"rag_batch_size"`
	RAGTopK                    int     `json:"rag_top_k"`
	EnableChat                 bool    `json:"enable_chat"`
	EnableAudio                bool    `json:"enable_audio"`
}

// Server-side defaults for summaries the backend requests on its own.
const (
	DefaultSummarizePrompt = "You are a video monitoring system. Describe the events in this video and look for any anomalies. Start each sentence with the start and end timestamp of the event."

	DefaultCaptionSummarizationPrompt = "You will be given captions from sequential clips of a video. Aggregate captions in the format start_time:end_time:caption based on whether captions are related to one another or create a continuous scene."

	DefaultSummaryAggregationPrompt = "Based on the available information, generate a summary that captures the important events in the video. The summary should be organized chronologically and in logical sections. This should be a concise, yet descriptive summary of all the important events. The format should be intuitive and easy for a user to read and understand what happened. Format the output in Markdown so it can be displayed nicely. Timestamps are in seconds so please format them as SS.SSS"
)

// DefaultSummarizeRequest returns the parameters used when no client
// settings are involved, as for clip search.
func DefaultSummarizeRequest(fileID, model, prompt string, chunkDuration int) SummarizeRequest {
	return SummarizeRequest{
		ID:                         fileID,
		Prompt:                     prompt,
		CaptionSummarizationPrompt: DefaultCaptionSummarizationPrompt,
		SummaryAggregationPrompt:   DefaultSummaryAggregationPrompt,
		Model:                      model,
		ChunkDuration:              chunkDuration,
		Temperature:                0.4,
		Seed:                       1,
		MaxTokens:                  512,
		TopP:                       1.0,
		TopK:                       80,
		NumFramesPerChunk:          90,
		SummarizeTopP:              0.7,
		SummarizeTemperature:       0.2,
		SummarizeMaxTokens:         2048,
		ChatTopP:                   0.7,
		ChatTemperature:            0.2,
		ChatMaxTokens:              2048,
		NotificationTopP:           0.7,
		NotificationTemperature:    0.2,
		NotificationMaxTokens:      2048,
		SummarizeBatchSize:         6,
		RAGBatchSize:               1,
		RAGTopK:                    5,
		EnableAudio:                true,
	}
}

// QueryRequest is a question about one uploaded file.
type QueryRequest struct {
	FileID        string
	Model         string
	Question      string
	ChunkDuration int
	Temperature   float64
	Seed          int
	MaxTokens     int
	TopP          float64
	TopK          int
}

// NewQuery fills the query generation defaults. VIA caps max_tokens at 1024.
func NewQuery(fileID, model, question string, chunkDuration int) QueryRequest {
	return QueryRequest{
		FileID:        fileID,
		Model:         model,
		Question:      question,
		ChunkDuration: chunkDuration,
		Temperature:   0.3,
		Seed:          42,
		MaxTokens:     1024,
		TopP:          1.0,
		TopK:          80,
	}
}

type queryBody struct {
	ID            string        `json:"id"`
	Model         string        `json:"model"`
	ChunkDuration int           `json:"chunk_duration"`
	Temperature   float64       `json:"temperature"`
	Seed          int           `json:"seed"`
	MaxTokens     int           `json:"max_tokens"`
	TopP          float64       `json:"top_p"`
	TopK          int           `json:"top_k"`
	Messages      []chatMessage `json:"messages"`
}
