package settings

const (
	DefaultCaptionPrompt = "You will be given captions from sequential clips of a video. " +
		"Aggregate captions in the format start_time:end_time:caption based on whether captions " +
		"are related to one another or create a continuous scene."

	DefaultAggregationPrompt = "Based on the available information, generate a summary that captures " +
		"the important events in the video. The summary should be organized chronologically and in " +
		"logical sections. This should be a concise, yet descriptive summary of all the important " +
		"events. The format should be intuitive and easy for a user to read and understand what " +
		"happened. Format the output in Markdown so it can be displayed nicely. Timestamps are in " +
		"seconds so please format them as SS.SSS"
)

// PhaseParams are the sampling overrides for one stage of the backend's
// retrieval-augmented pipeline.
type PhaseParams struct {
	TopP        float64
	Temperature float64
	MaxTokens   int
}

// Params is every user-tunable generation parameter. Values are forwarded
// to the backend as-is; nothing here is range-checked.
type Params struct {
	CaptionPrompt     string
	AggregationPrompt string

	// Chunk is the chunk duration in seconds; 0 disables chunking.
	Chunk             int
	NumFramesPerChunk int
	FrameWidth        int
	FrameHeight       int
	TopK              int
	TopP              float64
	Temperature       float64
	MaxTokens         int
	Seed              int
	Batch             int
	RAGBatch          int
	RAGTopK           int

	Summarize    PhaseParams
	Chat         PhaseParams
	Notification PhaseParams

	EnableAudio bool
}

func defaultPhase() PhaseParams {
	return PhaseParams{TopP: 0.7, Temperature: 0.2, MaxTokens: 2048}
}

func DefaultParams() Params {
	return Params{
		CaptionPrompt:     DefaultCaptionPrompt,
		AggregationPrompt: DefaultAggregationPrompt,
		TopK:              100,
		TopP:              1.0,
		Temperature:       0.4,
		MaxTokens:         512,
		Seed:              1,
		Batch:             6,
		RAGBatch:          1,
		RAGTopK:           5,
		Summarize:         defaultPhase(),
		Chat:              defaultPhase(),
		Notification:      defaultPhase(),
	}
}
