// Package sniff classifies AddFile payloads as binary or text, by sniffing
// a leading slice of the content with h2non/filetype, with config.SniffRules
// able to force a classification by file name when sniffing is ambiguous or
// wrong (e.g. a text format filetype does not recognize).
package sniff

import "github.com/h2non/filetype"

// sniffLen is the longest magic number filetype currently matches against.
const sniffLen = 261

// IsBinary reports whether content looks like a binary payload. An empty
// or nil content is treated as text.
func IsBinary(content []byte) bool {
	if len(content) == 0 {
		return false
	}
	head := content
	if len(head) > sniffLen {
		head = head[:sniffLen]
	}
	if filetype.IsImage(head) || filetype.IsVideo(head) || filetype.IsArchive(head) || filetype.IsAudio(head) {
		return true
	}
	if filetype.IsDocument(head) {
		return true
	}
	return false
}

// Classify reports the binary/text classification for an AddFile with the
// given name and content, honoring a config-level ForcedBinary lookup
// before falling back to content sniffing.
func Classify(name string, content []byte, forced func(name string) (binary bool, matched bool)) bool {
	if forced != nil {
		if binary, matched := forced(name); matched {
			return binary
		}
	}
	return IsBinary(content)
}
