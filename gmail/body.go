package gmail

import (
	"encoding/base64"
	"net/mail"
	"strings"
	"time"

	"golang.org/x/net/html"
	"google.golang.org/api/gmail/v1"
)

// getSender returns the address of the From header without its display
// name. Headers that do not parse are returned as is.
func getSender(msg *gmail.Message) string {
	if msg.Payload == nil {
		return ""
	}

	for _, h := range msg.Payload.Headers {
		if h.Name == "From" {
			addr, err := mail.ParseAddress(h.Value)
			if err != nil {
				return h.Value
			}

			return addr.Address
		}
	}

	return ""
}

func getTimestamp(msg *gmail.Message) time.Time {
	return time.UnixMilli(msg.InternalDate)
}

// getBody returns the plain text of msg. HTML-only messages are reduced to
// their text content.
func getBody(msg *gmail.Message) string {
	if msg.Payload == nil {
		return ""
	}

	if body := findPart(msg.Payload, "text/plain"); body != "" {
		return body
	}

	if body := findPart(msg.Payload, "text/html"); body != "" {
		return htmlText(body)
	}

	return ""
}

// findPart searches part and its children depth first for a body of the
// given MIME type. A body on a part with no MIME type counts as plain text.
func findPart(part *gmail.MessagePart, mimeType string) string {
	if part.Body != nil && part.Body.Data != "" {
		if part.MimeType == mimeType || (part.MimeType == "" && mimeType == "text/plain") {
			if decoded, err := base64.URLEncoding.DecodeString(part.Body.Data); err == nil {
				return string(decoded)
			}
		}
	}

	for _, child := range part.Parts {
		if body := findPart(child, mimeType); body != "" {
			return body
		}
	}

	return ""
}

// htmlText returns the text nodes of doc separated by spaces, skipping script
// and style elements.
func htmlText(doc string) string {
	var b strings.Builder
	z := html.NewTokenizer(strings.NewReader(doc))
	skip := 0

	for {
		switch z.Next() {
		case html.ErrorToken:
			return strings.Join(strings.Fields(b.String()), " ")
		case html.StartTagToken:
			if name, _ := z.TagName(); isHidden(name) {
				skip++
			}
		case html.EndTagToken:
			if name, _ := z.TagName(); isHidden(name) && skip > 0 {
				skip--
			}
		case html.TextToken:
			if skip == 0 {
				b.Write(z.Text())
				b.WriteByte(' ')
			}
		}
	}
}

func isHidden(tag []byte) bool {
	s := string(tag)
	return s == "script" || s == "style"
}
