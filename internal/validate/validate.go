package validate

import (
	"fmt"
	"regexp"
	"unicode"
	"unicode/utf8"
)

// Text field length limits shared by the client forms and the API.
const (
	MaxUserIDLength            = 50
	MinPasswordLength          = 8
	MaxPasswordLength          = 72
	MaxEmailLength             = 254
	MaxTitleLength             = 500
	MaxReportTitleLength       = 200
	MaxReportDescriptionLength = 2000
	MaxReportContentLength     = 200 * 1024
	MaxPromptLength            = 10 * 1024
	MaxQuestionLength          = 4000
	VerificationCodeLength     = 6
)

var (
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	codePattern  = regexp.MustCompile(`^[0-9]{6}$`)
)

func checkLen(value string, max int, field string) string {
	if len(value) > max {
		return fmt.Sprintf("%s must be %d characters or fewer", field, max)
	}
	return ""
}

func checkRequired(value string, field string) string {
	if value == "" {
		return fmt.Sprintf("%s is required", field)
	}
	return ""
}

func UserID(s string) string {
	if msg := checkRequired(s, "user id"); msg != "" {
		return msg
	}
	return checkLen(s, MaxUserIDLength, "user id")
}

// Password requires at least eight characters including a letter, a digit
// and a symbol.
func Password(s string) string {
	if utf8.RuneCountInString(s) < MinPasswordLength {
		return fmt.Sprintf("password must be at least %d characters", MinPasswordLength)
	}
	if msg := checkLen(s, MaxPasswordLength, "password"); msg != "" {
		return msg
	}
	var letter, digit, symbol bool
	for _, r := range s {
		switch {
		case r < unicode.MaxASCII && unicode.IsLetter(r):
			letter = true
		case r < unicode.MaxASCII && unicode.IsDigit(r):
			digit = true
		default:
			symbol = true
		}
	}
	if !letter || !digit || !symbol {
		return "password must include a letter, a number, and a symbol"
	}
	return ""
}

// NewPassword is the weaker check the reset flow applies on the server.
func NewPassword(s string) string {
	if len(s) < MinPasswordLength {
		return fmt.Sprintf("password must be at least %d characters", MinPasswordLength)
	}
	return checkLen(s, MaxPasswordLength, "password")
}

func Email(s string) string {
	if msg := checkRequired(s, "email"); msg != "" {
		return msg
	}
	if msg := checkLen(s, MaxEmailLength, "email"); msg != "" {
		return msg
	}
	if !emailPattern.MatchString(s) {
		return "invalid email address"
	}
	return ""
}

func VerificationCode(s string) string {
	if !codePattern.MatchString(s) {
		return fmt.Sprintf("verification code must be %d digits", VerificationCodeLength)
	}
	return ""
}

func Title(s string) string       { return checkLen(s, MaxTitleLength, "title") }
func ReportTitle(s string) string {
	if msg := checkRequired(s, "report title"); msg != "" {
		return msg
	}
	return checkLen(s, MaxReportTitleLength, "report title")
}
func ReportDescription(s string) string {
	return checkLen(s, MaxReportDescriptionLength, "report description")
}
func ReportContent(s string) string { return checkLen(s, MaxReportContentLength, "report content") }
func Prompt(s string) string        { return checkLen(s, MaxPromptLength, "prompt") }

func Question(s string) string {
	if msg := checkRequired(s, "question"); msg != "" {
		return msg
	}
	return checkLen(s, MaxQuestionLength, "question")
}

// FieldLimits returns a map of field names to max lengths for the /api/limits endpoint.
func FieldLimits() map[string]int {
	return map[string]int{
		"userId":            MaxUserIDLength,
		"password":          MaxPasswordLength,
		"email":             MaxEmailLength,
		"title":             MaxTitleLength,
		"reportTitle":       MaxReportTitleLength,
		"reportDescription": MaxReportDescriptionLength,
		"reportContent":     MaxReportContentLength,
		"prompt":            MaxPromptLength,
		"question":          MaxQuestionLength,
	}
}
