// Package mail parses raw RFC 5322 messages into the presentation model.
package mail

import (
	"bytes"
	"html"
	"regexp"
	"strings"
	"time"

	"github.com/jhillyerd/enmime"

	"github.com/mailpane/mailpane/internal/state"
	"github.com/mailpane/mailpane/internal/textutil"
)

// Address is an email address with optional display name.
type Address struct {
	Name  string
	Email string // lowercased
}

// Message is a parsed email, the intermediate between raw MIME and
// state.Email.
type Message struct {
	Subject   string
	Date      time.Time
	From      []Address
	To        []Address
	MessageID string
	BodyText  string
	BodyHTML  string
	Errors    []string // non-fatal parsing errors
}

// Parse parses raw MIME data into a Message. Headers and bodies are
// repaired to valid UTF-8; malformed sub-parts are reported via
// Message.Errors rather than failing the whole parse.
func Parse(raw []byte) (*Message, error) {
	env, err := enmime.ReadEnvelope(bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}

	msg := &Message{
		Subject:   textutil.EnsureUTF8(env.GetHeader("Subject")),
		MessageID: env.GetHeader("Message-ID"),
		BodyText:  textutil.EnsureUTF8(env.Text),
		BodyHTML:  env.HTML,
	}

	if dateStr := env.GetHeader("Date"); dateStr != "" {
		msg.Date = parseDate(dateStr)
	}

	msg.From = parseAddressList(env, "From")
	msg.To = parseAddressList(env, "To")

	for _, e := range env.Errors {
		msg.Errors = append(msg.Errors, e.Error())
	}

	return msg, nil
}

// ToEmail converts the parsed message into a state.Email. The composite ID,
// mailbox, server date and size come from the IMAP fetch; the server date is
// the fallback when the Date header is missing or unparseable.
func (m *Message) ToEmail(id, mailbox string, serverDate time.Time, size int64, seen bool) state.Email {
	date := m.Date
	if date.IsZero() {
		date = serverDate.UTC()
	}
	from := m.firstFrom()
	return state.Email{
		ID:       id,
		From:     from.Email,
		FromName: textutil.EnsureUTF8(from.Name),
		Subject:  m.Subject,
		Body:     m.BodyTextOrStrippedHTML(),
		Date:     date,
		Mailbox:  mailbox,
		Seen:     seen,
		Size:     size,
	}
}

// BodyTextOrStrippedHTML returns the best available body text, preferring
// the plain part and falling back to tag-stripped HTML.
func (m *Message) BodyTextOrStrippedHTML() string {
	if strings.TrimSpace(m.BodyText) != "" {
		return m.BodyText
	}
	if m.BodyHTML != "" {
		return textutil.EnsureUTF8(StripHTML(m.BodyHTML))
	}
	return ""
}

// firstFrom returns the first From address, or a zero Address if none.
func (m *Message) firstFrom() Address {
	if len(m.From) > 0 {
		return m.From[0]
	}
	return Address{}
}

// parseAddressList parses an address header using enmime's AddressList,
// which tolerates more real-world malformations than net/mail alone.
func parseAddressList(env *enmime.Envelope, header string) []Address {
	list, err := env.AddressList(header)
	if err != nil || list == nil {
		return nil
	}

	addresses := make([]Address, 0, len(list))
	for _, addr := range list {
		if addr.Address == "" {
			continue
		}
		addresses = append(addresses, Address{
			Name:  addr.Name,
			Email: strings.ToLower(addr.Address),
		})
	}
	return addresses
}

// dateFormats lists common email date formats for parseDate, most frequent
// first.
var dateFormats = []string{
	time.RFC1123Z,
	time.RFC1123,
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"Mon, 2 Jan 2006 15:04:05 MST",
	"2 Jan 2006 15:04:05 -0700",
	"2 Jan 2006 15:04:05 MST",
	time.RFC822Z,
	time.RFC822,
	"Mon, 02 Jan 2006 15:04:05 -0700 (MST)",
	time.RFC3339,
	"2006-01-02 15:04:05 -0700",
}

// parseDate attempts to parse a date header in the formats seen in the
// wild, normalized to UTC. An unrecognized format yields the zero time;
// ToEmail then falls back to the server date.
func parseDate(s string) time.Time {
	s = strings.Join(strings.Fields(s), " ")

	// Strip a trailing parenthesized zone name like "(UTC)"; the numeric
	// offset before it is what matters.
	baseStr := s
	if idx := strings.LastIndex(s, "("); idx > 0 {
		baseStr = strings.TrimSpace(s[:idx])
	}

	for _, format := range dateFormats {
		if t, err := time.Parse(format, baseStr); err == nil {
			return t.UTC()
		}
	}
	if baseStr != s {
		for _, format := range dateFormats {
			if t, err := time.Parse(format, s); err == nil {
				return t.UTC()
			}
		}
	}

	return time.Time{}
}

var (
	blockTagRe  = regexp.MustCompile(`(?i)<(/?)(p|div|br|hr|h[1-6]|li|tr|td|th|blockquote|pre|table|ul|ol|dl|dt|dd)[^>]*>`)
	scriptTagRe = regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`)
	styleTagRe  = regexp.MustCompile(`(?is)<style[^>]*>.*?</style>`)
	headTagRe   = regexp.MustCompile(`(?is)<head[^>]*>.*?</head>`)
	htmlTagRe   = regexp.MustCompile(`<[^>]*>`)
)

// StripHTML removes HTML tags, decodes entities, and normalizes whitespace.
// Block elements become line breaks so the result reads as plain text.
func StripHTML(rawHTML string) string {
	text := scriptTagRe.ReplaceAllString(rawHTML, "")
	text = styleTagRe.ReplaceAllString(text, "")
	text = headTagRe.ReplaceAllString(text, "")
	text = blockTagRe.ReplaceAllString(text, "\n")
	text = htmlTagRe.ReplaceAllString(text, "")
	text = html.UnescapeString(text)

	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	text = strings.ReplaceAll(text, "\u00A0", " ")

	// Collapse runs of spaces within lines, keep line structure.
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.Join(strings.Fields(line), " ")
	}
	text = strings.Join(lines, "\n")

	for strings.Contains(text, "\n\n\n") {
		text = strings.ReplaceAll(text, "\n\n\n", "\n\n")
	}

	return strings.TrimSpace(text)
}
