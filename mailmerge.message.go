package mailmerge

import (
	"bytes"
	"fmt"
	"html"
	"io"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/mail"
	"net/textproto"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
)

// Identity is the sender of composed messages.
type Identity struct {
	Name         string `yaml:"name,omitempty"`
	Email        string `yaml:"email"`
	Organization string `yaml:"organization,omitempty"`
}

// ComposeOptions configures Compose.
type ComposeOptions struct {
	Identity Identity
	// Priority is 1 (highest) to 5 (lowest). 0 and 3 emit no X-Priority header.
	Priority int
	// RequestMDN asks the recipient's client for a read receipt.
	RequestMDN bool
	UserAgent  string
	// Now overrides the clock for the Date header.
	Now func() time.Time
}

// Message is a composed message ready to be rendered or stored.
type Message struct {
	ID           string
	Date         time.Time
	From         string
	To           []string
	Cc           []string
	Bcc          []string
	ReplyTo      []string
	FollowupTo   []string
	Subject      string
	Organization string
	UserAgent    string
	Priority     int
	NotifyTo     string
	// Text is always set; HTML is set for html and markdown modes.
	Text string
	HTML string
}

var priorityLabels = map[int]string{
	PriorityHighest: PriorityLabelHighest,
	PriorityHigh:    PriorityLabelHigh,
	PriorityLow:     PriorityLabelLow,
	PriorityLowest:  PriorityLabelLowest,
}

// textPolicy strips every tag when deriving the text part of an HTML body.
var textPolicy = bluemonday.StrictPolicy()

// Compose builds a message from resolved fields. Every recipient entry must
// parse as an RFC 5322 address list; the first one that does not fails the
// message.
func Compose(fields Fields, opts ComposeOptions) (*Message, error) {
	if opts.Identity.Email == "" {
		return nil, NewComposeError(ErrMsgNoSender, nil)
	}
	sender, err := mail.ParseAddress(opts.Identity.Email)
	if err != nil {
		return nil, NewComposeError(ErrMsgInvalidSender, err)
	}
	if opts.Identity.Name != "" {
		sender.Name = opts.Identity.Name
	}
	if opts.Priority < 0 || opts.Priority > PriorityLowest {
		return nil, NewConfigValueError(ErrMsgInvalidPriority, MetaKeyPriority, fmt.Sprint(opts.Priority))
	}

	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}
	userAgent := opts.UserAgent
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}

	msg := &Message{
		ID:           fmt.Sprintf(MessageIDFmt, uuid.NewString(), domainOf(sender.Address)),
		Date:         now(),
		From:         sender.String(),
		Subject:      fields.Subject,
		Organization: opts.Identity.Organization,
		UserAgent:    userAgent,
		Priority:     opts.Priority,
	}
	for _, recipients := range []struct {
		header  string
		entries []string
		dst     *[]string
	}{
		{HeaderTo, fields.To, &msg.To},
		{HeaderCc, fields.Cc, &msg.Cc},
		{HeaderBcc, fields.Bcc, &msg.Bcc},
		{HeaderReplyTo, fields.ReplyTo, &msg.ReplyTo},
		{HeaderMailFollowupTo, fields.FollowupTo, &msg.FollowupTo},
	} {
		if *recipients.dst, err = normalizeAddresses(recipients.header, recipients.entries); err != nil {
			return nil, err
		}
	}
	if opts.RequestMDN {
		msg.NotifyTo = msg.From
	}

	switch fields.Mode.orDefault() {
	case ModeHTML:
		msg.HTML = fields.Body
		msg.Text = htmlToText(fields.Body)
	case ModeMarkdown:
		var buf bytes.Buffer
		if err := goldmark.Convert([]byte(fields.Body), &buf); err != nil {
			return nil, NewComposeError(ErrMsgRenderBody, err)
		}
		msg.HTML = buf.String()
		msg.Text = fields.Body
	case ModePlain:
		msg.Text = fields.Body
	default:
		return nil, NewConfigValueError(ErrMsgInvalidMode, MetaKeyMode, string(fields.Mode))
	}

	return msg, nil
}

// Bytes renders the message as RFC 5322 text with CRLF line endings. A header
// value holding a CR or LF is refused rather than written.
func (m *Message) Bytes() ([]byte, error) {
	var (
		buf       bytes.Buffer
		headerErr error
	)

	writeHeader := func(name, value string) {
		if value == "" || headerErr != nil {
			return
		}
		if strings.ContainsAny(value, "\r\n") {
			headerErr = NewHeaderValueError(name)
			return
		}
		buf.WriteString(name + ": " + value + "\r\n")
	}
	list := func(addrs []string) string { return strings.Join(addrs, ", ") }

	writeHeader(HeaderDate, m.Date.Format(time.RFC1123Z))
	writeHeader(HeaderFrom, m.From)
	writeHeader(HeaderTo, list(m.To))
	writeHeader(HeaderCc, list(m.Cc))
	writeHeader(HeaderBcc, list(m.Bcc))
	writeHeader(HeaderReplyTo, list(m.ReplyTo))
	writeHeader(HeaderMailReplyTo, list(m.ReplyTo))
	writeHeader(HeaderMailFollowupTo, list(m.FollowupTo))
	writeHeader(HeaderSubject, mime.QEncoding.Encode(Charset, m.Subject))
	writeHeader(HeaderMessageID, m.ID)
	writeHeader(HeaderUserAgent, m.UserAgent)
	writeHeader(HeaderOrganization, mime.QEncoding.Encode(Charset, m.Organization))
	if label, ok := priorityLabels[m.Priority]; ok {
		writeHeader(HeaderXPriority, fmt.Sprintf(PriorityFmt, m.Priority, label))
	}
	writeHeader(HeaderDispositionNotify, m.NotifyTo)
	writeHeader(HeaderMIMEVersion, MIMEVersion)
	if headerErr != nil {
		return nil, headerErr
	}

	if m.HTML == "" {
		writeHeader(HeaderContentType, MIMETextPlain)
		writeHeader(HeaderContentEncoding, EncodingQuotedPrint)
		buf.WriteString("\r\n")
		if err := writeQuotedPrintable(&buf, m.Text); err != nil {
			return nil, NewComposeError(ErrMsgRenderBody, err)
		}
		return buf.Bytes(), nil
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	writeHeader(HeaderContentType, fmt.Sprintf(MIMEMultipartAltFmt, mw.Boundary()))
	buf.WriteString("\r\n")

	for _, part := range []struct{ contentType, content string }{
		{MIMETextPlain, m.Text},
		{MIMETextHTML, m.HTML},
	} {
		w, err := mw.CreatePart(textproto.MIMEHeader{
			HeaderContentType:     {part.contentType},
			HeaderContentEncoding: {EncodingQuotedPrint},
		})
		if err != nil {
			return nil, NewComposeError(ErrMsgRenderBody, err)
		}
		if err := writeQuotedPrintable(w, part.content); err != nil {
			return nil, NewComposeError(ErrMsgRenderBody, err)
		}
	}
	if err := mw.Close(); err != nil {
		return nil, NewComposeError(ErrMsgRenderBody, err)
	}

	buf.Write(body.Bytes())
	return buf.Bytes(), nil
}

func writeQuotedPrintable(w io.Writer, s string) error {
	qp := quotedprintable.NewWriter(w)
	if _, err := qp.Write([]byte(s)); err != nil {
		return err
	}
	return qp.Close()
}

// normalizeAddresses formats the addresses of each entry canonically. A cell
// may hold several comma-separated addresses. An entry that does not parse,
// including one carrying a line break, is an error.
func normalizeAddresses(header string, entries []string) ([]string, error) {
	if len(entries) == 0 {
		return nil, nil
	}
	out := make([]string, 0, len(entries))
	for _, entry := range entries {
		addrs, err := mail.ParseAddressList(entry)
		if err != nil {
			return nil, NewRecipientError(header, entry, err)
		}
		for _, addr := range addrs {
			out = append(out, addr.String())
		}
	}
	return out, nil
}

func domainOf(address string) string {
	if at := strings.LastIndexByte(address, '@'); at >= 0 && at < len(address)-1 {
		return address[at+1:]
	}
	return MessageIDHostDefault
}

// htmlToText derives a plain text alternative from an HTML body.
func htmlToText(body string) string {
	r := strings.NewReplacer(
		"<br>", "\n", "<br/>", "\n", "<br />", "\n",
		"</p>", "\n\n", "</div>", "\n", "</li>", "\n", "</h1>", "\n\n", "</h2>", "\n\n", "</h3>", "\n\n",
	)
	text := html.UnescapeString(textPolicy.Sanitize(r.Replace(body)))

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	return strings.TrimSpace(collapseBlankLines(strings.Join(lines, "\n")))
}

func collapseBlankLines(s string) string {
	for strings.Contains(s, "\n\n\n") {
		s = strings.ReplaceAll(s, "\n\n\n", "\n\n")
	}
	return s
}
