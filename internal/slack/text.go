package slack

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/edgard/teampulse/internal/domain"
)

// Message types recorded in metadata.
const (
	MessageTypeMessage     = "message"
	MessageTypeThreadReply = "thread_reply"
)

var (
	userMentionRe    = regexp.MustCompile(`<@[UW][A-Z0-9]+(\|[^>]*)?>`)
	channelMentionRe = regexp.MustCompile(`<#[CD][A-Z0-9]+\|([^>]+)>`)
	labeledLinkRe    = regexp.MustCompile(`<(https?://[^|>]+)\|([^>]+)>`)
	bareLinkRe       = regexp.MustCompile(`<(https?://[^>]+)>`)
	specialCommandRe = regexp.MustCompile(`<![^>]+>`)

	linkRe         = regexp.MustCompile(`https?://`)
	shortcodeRe    = regexp.MustCompile(`:([a-zA-Z0-9_+-]+):`)
	unicodeEmojiRe = regexp.MustCompile(`[\x{1F600}-\x{1F64F}\x{1F300}-\x{1F5FF}\x{1F680}-\x{1F6FF}\x{1F1E0}-\x{1F1FF}\x{2600}-\x{26FF}\x{2700}-\x{27BF}]`)
	entityReplacer = strings.NewReplacer("&amp;", "&", "&lt;", "<", "&gt;", ">")
)

// CleanMessage rewrites platform markup into plain text.
func CleanMessage(text string) string {
	if text == "" {
		return ""
	}
	text = userMentionRe.ReplaceAllString(text, "@user")
	text = channelMentionRe.ReplaceAllString(text, "#$1")
	text = labeledLinkRe.ReplaceAllString(text, "$2")
	text = bareLinkRe.ReplaceAllString(text, "$1")
	text = specialCommandRe.ReplaceAllString(text, "")
	text = entityReplacer.Replace(text)
	return strings.TrimSpace(text)
}

// ParseTimestamp converts a platform timestamp such as "1234567890.123456"
// to a UTC time with microsecond precision.
func ParseTimestamp(ts string) (time.Time, error) {
	secPart, fracPart, _ := strings.Cut(ts, ".")
	sec, err := strconv.ParseInt(secPart, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: invalid platform timestamp %q", domain.ErrInvalidInput, ts)
	}
	var micros int64
	if fracPart != "" {
		if len(fracPart) > 6 {
			fracPart = fracPart[:6]
		}
		fracPart += strings.Repeat("0", 6-len(fracPart))
		micros, err = strconv.ParseInt(fracPart, 10, 64)
		if err != nil {
			return time.Time{}, fmt.Errorf("%w: invalid platform timestamp %q", domain.ErrInvalidInput, ts)
		}
	}
	return time.Unix(sec, micros*int64(time.Microsecond)).UTC(), nil
}

// FormatTimestamp is the inverse of ParseTimestamp.
func FormatTimestamp(t time.Time) string {
	return fmt.Sprintf("%d.%06d", t.Unix(), t.Nanosecond()/int(time.Microsecond))
}

// ExtractEmojis returns shortcode names followed by Unicode emoji found in text.
func ExtractEmojis(text string) []string {
	out := make([]string, 0)
	for _, m := range shortcodeRe.FindAllStringSubmatch(text, -1) {
		out = append(out, m[1])
	}
	return append(out, unicodeEmojiRe.FindAllString(text, -1)...)
}

func HasLinks(text string) bool {
	return linkRe.MatchString(text)
}

func HasEmojis(text string) bool {
	return shortcodeRe.MatchString(text) || unicodeEmojiRe.MatchString(text)
}

// Metadata derives message metadata from the raw and cleaned text.
func Metadata(m Message, cleaned string) domain.MessageMetadata {
	messageType := MessageTypeMessage
	if m.ThreadTS != "" {
		messageType = MessageTypeThreadReply
	}
	return domain.MessageMetadata{
		MessageType: messageType,
		HasLinks:    HasLinks(m.Text),
		HasEmojis:   HasEmojis(m.Text),
		WordCount:   len(strings.Fields(cleaned)),
	}
}
