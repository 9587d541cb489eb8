package languages

type Language struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

const fallbackCode = "ko"

var languageNames = map[string]string{
	"ko": "한국어",
	"en": "English",
}

// Message keys shown to the user.
const (
	MsgEnterCredentials     = "enter_credentials"
	MsgLoginFailed          = "login_failed"
	MsgVerifyEmailFirst     = "verify_email_first"
	MsgCodeSent             = "code_sent"
	MsgCodeVerified         = "code_verified"
	MsgPasswordMismatch     = "password_mismatch"
	MsgRegistered           = "registered"
	MsgPasswordReset        = "password_reset"
	MsgUploadFirst          = "upload_first"
	MsgSummarizeFirst       = "summarize_first"
	MsgSummarizing          = "summarizing"
	MsgThinking             = "thinking"
	MsgSummarySaved         = "summary_saved"
	MsgUploaded             = "uploaded"
	MsgDeleted              = "deleted"
	MsgEnterSearchPrompt    = "enter_search_prompt"
	MsgSelectVideos         = "select_videos"
	MsgNoClipsFound         = "no_clips_found"
	MsgReportCreated        = "report_created"
	MsgCaptionPromptLabel   = "caption_prompt_label"
	MsgAggregatePromptLabel = "aggregate_prompt_label"
)

var messages = map[string]map[string]string{
	"ko": {
		MsgEnterCredentials:     "아이디와 비밀번호를 입력해주세요.",
		MsgLoginFailed:          "아이디 또는 비밀번호가 올바르지 않습니다.",
		MsgVerifyEmailFirst:     "이메일 인증을 먼저 완료해주세요.",
		MsgCodeSent:             "인증 코드가 발송되었습니다.",
		MsgCodeVerified:         "인증이 완료되었습니다.",
		MsgPasswordMismatch:     "비밀번호가 일치하지 않습니다.",
		MsgRegistered:           "회원가입이 완료되었습니다.",
		MsgPasswordReset:        "비밀번호가 변경되었습니다.",
		MsgUploadFirst:          "먼저 동영상을 업로드해주세요.",
		MsgSummarizeFirst:       "먼저 동영상을 요약해주세요.",
		MsgSummarizing:          "요약 중입니다...",
		MsgThinking:             "답변을 생성 중입니다...",
		MsgSummarySaved:         "요약이 저장되었습니다.",
		MsgUploaded:             "업로드가 완료되었습니다.",
		MsgDeleted:              "삭제되었습니다.",
		MsgEnterSearchPrompt:    "검색어를 입력해주세요.",
		MsgSelectVideos:         "검색할 동영상을 선택해주세요.",
		MsgNoClipsFound:         "해당 장면을 찾지 못했습니다.",
		MsgReportCreated:        "리포트가 생성되었습니다.",
		MsgCaptionPromptLabel:   "캡션 요약 프롬프트",
		MsgAggregatePromptLabel: "요약 통합 프롬프트",
	},
	"en": {
		MsgEnterCredentials:     "Please enter your id and password.",
		MsgLoginFailed:          "Invalid id or password.",
		MsgVerifyEmailFirst:     "Please verify your email first.",
		MsgCodeSent:             "A verification code has been sent.",
		MsgCodeVerified:         "Verification complete.",
		MsgPasswordMismatch:     "Passwords do not match.",
		MsgRegistered:           "Your account has been created.",
		MsgPasswordReset:        "Your password has been changed.",
		MsgUploadFirst:          "Please upload a video first.",
		MsgSummarizeFirst:       "Please summarize a video first.",
		MsgSummarizing:          "Summarizing...",
		MsgThinking:             "Thinking...",
		MsgSummarySaved:         "Summary saved.",
		MsgUploaded:             "Upload complete.",
		MsgDeleted:              "Deleted.",
		MsgEnterSearchPrompt:    "Please enter a search prompt.",
		MsgSelectVideos:         "Please select videos to search.",
		MsgNoClipsFound:         "No matching scenes were found.",
		MsgReportCreated:        "Report created.",
		MsgCaptionPromptLabel:   "Caption summarization prompt",
		MsgAggregatePromptLabel: "Summary aggregation prompt",
	},
}

func LanguageName(code string) string {
	return languageNames[code]
}

func IsSupported(code string) bool {
	_, ok := languageNames[code]
	return ok
}

func Supported() []Language {
	return []Language{
		{Code: "ko", Name: languageNames["ko"]},
		{Code: "en", Name: languageNames["en"]},
	}
}

// Message returns the text for key in the given language, falling back to
// Korean and then to the key itself.
func Message(code, key string) string {
	if m, ok := messages[code][key]; ok {
		return m
	}
	if m, ok := messages[fallbackCode][key]; ok {
		return m
	}
	return key
}
