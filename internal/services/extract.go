package services

import "regexp"

// Ordered pattern list for pulling verification codes out of SMS text.
// Phrase-marker patterns run first, bare 6-digit and 4-digit matches are the
// fallbacks. The first match wins.
var codePatterns = []*regexp.Regexp{
	regexp.MustCompile(`验证码[是为:]?\s*([0-9]{4,6})`),
	regexp.MustCompile(`code[: ]([0-9]{4,6})`),
	regexp.MustCompile(`码[是为:]?\s*([0-9]{4,6})`),
	regexp.MustCompile(`[验证认证校验].*?([0-9]{4,6})`),
	regexp.MustCompile(`([0-9]{4,6})[^0-9]*验证`),
	regexp.MustCompile(`([0-9]{6})`),
	regexp.MustCompile(`([0-9]{4})`),
}

// ExtractVerificationCode returns the verification code found in the SMS
// content, or "" when none of the patterns match. Deterministic and
// side-effect-free.
func ExtractVerificationCode(content string) string {
	for _, pattern := range codePatterns {
		if match := pattern.FindStringSubmatch(content); match != nil {
			return match[1]
		}
	}
	return ""
}
