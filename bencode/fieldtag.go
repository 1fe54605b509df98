package bencode

import "strings"

// fieldTagOptions is the comma-separated portion of a `bencode:"name,opt1,opt2"`
// struct tag that follows the name.
type fieldTagOptions string

// parseFieldTag splits a struct tag into its dict-key name and options.
func parseFieldTag(tag string) (string, fieldTagOptions) {
	if idx := strings.Index(tag, ","); idx != -1 {
		return tag[:idx], fieldTagOptions(tag[idx+1:])
	}
	return tag, fieldTagOptions("")
}

func (opts fieldTagOptions) contains(name string) bool {
	if len(opts) == 0 {
		return false
	}

	s := string(opts)
	for s != "" {
		var next string
		if i := strings.Index(s, ","); i != -1 {
			s, next = s[:i], s[i+1:]
		}
		if s == name {
			return true
		}
		s = next
	}
	return false
}
