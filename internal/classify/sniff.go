package classify

import (
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/saintfish/chardet"
)

// SniffLimit is how much of a file's head Sniff looks at.
const SniffLimit = 3072

// Content describes a file from its bytes rather than its name.
type Content struct {
	Info
	MIME      string `json:"mime"`
	Extension string `json:"extension,omitempty"`
	Text      bool   `json:"text"`
	Charset   string `json:"charset,omitempty"`
}

// Sniff classifies name and inspects the head of its content. The charset
// is only guessed for text.
func Sniff(name string, head []byte) Content {
	if len(head) > SniffLimit {
		head = head[:SniffLimit]
	}
	mt := mimetype.Detect(head)
	out := Content{
		Info:      Describe(name),
		MIME:      mt.String(),
		Extension: mt.Extension(),
		Text:      isText(mt),
	}
	if out.Text {
		out.Charset = DetectCharset(head)
	}
	return out
}

// DetectCharset guesses the encoding of text, defaulting to utf-8.
func DetectCharset(data []byte) string {
	if len(data) == 0 {
		return "utf-8"
	}
	result, err := chardet.NewTextDetector().DetectBest(data)
	if err != nil || result == nil {
		return "utf-8"
	}
	return strings.ToLower(result.Charset)
}

func isText(mt *mimetype.MIME) bool {
	for m := mt; m != nil; m = m.Parent() {
		if m.Is("text/plain") {
			return true
		}
	}
	return false
}
