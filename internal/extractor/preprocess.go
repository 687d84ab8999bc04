package extractor

import "regexp"

var (
	whitespaceRun = regexp.MustCompile(`\s+`)
	urlPattern    = regexp.MustCompile(`https?://\S+`)
	emailPattern  = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)
)

// applyPreprocessRules runs each rule over text in order, matching
// spec.md's listed precedence.
func applyPreprocessRules(text string, rules []PreprocessRule) string {
	for _, rule := range rules {
		switch rule {
		case RuleReplaceSpaceAndTab:
			text = whitespaceRun.ReplaceAllString(text, "")
		case RuleDeleteURLAndEmail:
			text = urlPattern.ReplaceAllString(text, "")
			text = emailPattern.ReplaceAllString(text, "")
		}
	}
	return text
}
