package retention

import "regexp"

type RegexMatcher struct {
	compiled map[string]*regexp.Regexp
}

func NewRegexMatcher() *RegexMatcher {
	return &RegexMatcher{
		make(map[string]*regexp.Regexp, 0),
	}
}

// Matches returns true when name equals one of the patterns literally or
// matches one as a regex. An empty pattern list matches nothing: with no
// protected tags configured, no tag is protected.
func (r *RegexMatcher) Matches(name string, patterns []string) bool {
	for _, pattern := range patterns {
		if name == pattern {
			return true
		}

		if tagReg, ok := r.compiled[pattern]; ok {
			if tagReg.MatchString(name) {
				return true
			}
		} else {
			// all are compilable because they are checked at startup
			if tagReg, err := regexp.Compile(pattern); err == nil {
				r.compiled[pattern] = tagReg
				if tagReg.MatchString(name) {
					return true
				}
			}
		}
	}

	return false
}
