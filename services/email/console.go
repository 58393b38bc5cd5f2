// Package emailsvc implements core.EmailService: on the console for development and with
// Sendgrid in production.
package emailsvc

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/mail"
	"net/textproto"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/jhkim0602/monguri-sub002/core"
)

type ConsoleService struct {
	from       mail.Address
	subjPrefix string
	out        io.Writer
	logger     core.Logger
	sync       bool

	mu   sync.Mutex
	sent []core.EmailMessage
}

var _ core.EmailService = (*ConsoleService)(nil)

func NewConsoleService(conf *core.Config, logger core.Logger) *ConsoleService {
	return &ConsoleService{
		from:       conf.DefaultFromEmail(),
		subjPrefix: "[" + conf.AppName + "] ",
		out:        os.Stdout,
		logger:     logger,
	}
}

// NewConsoleServiceMock sends synchronously and prints nothing; messages are kept for inspection.
func NewConsoleServiceMock(conf *core.Config, logger core.Logger) *ConsoleService {
	svc := NewConsoleService(conf, logger)
	svc.out = io.Discard
	svc.sync = true
	return svc
}

func (svc *ConsoleService) SendMessages(messages ...*core.EmailMessage) {
	for _, msg := range messages {
		if svc.sync {
			svc.sendMessage(msg)
			continue
		}
		go svc.sendMessage(msg)
	}
}

// SentMessages returns a copy of the messages sent so far.
func (svc *ConsoleService) SentMessages() []core.EmailMessage {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	return append([]core.EmailMessage(nil), svc.sent...)
}

func (svc *ConsoleService) sendMessage(msg *core.EmailMessage) {
	if err := msg.Render(); err != nil {
		svc.logger.Error(fmt.Sprintf("rendering email %q: %v", msg.TemplateName, err), err)
		return
	}
	if !msg.HasRecipients() || !(msg.HasContent() || msg.HasAttachments()) {
		return
	}
	if err := svc.write(*msg); err != nil {
		svc.logger.Error(fmt.Sprintf("writing email: %v", err), err)
		return
	}
	svc.mu.Lock()
	svc.sent = append(svc.sent, *msg)
	svc.mu.Unlock()
}

func (svc *ConsoleService) write(msg core.EmailMessage) error {
	body := new(strings.Builder)

	_, _ = fmt.Fprintf(body, "From: %s\r\n", svc.from.String())
	_, _ = fmt.Fprint(body, "MIME-Version: 1.0\r\n")
	_, _ = fmt.Fprintf(body, "Date: %s\r\n", time.Now().Format(time.RFC1123Z))
	_, _ = fmt.Fprintf(body, "Subject: %s\r\n", svc.subjPrefix+msg.Subject)
	_, _ = fmt.Fprintf(body, "To: %s\r\n", joinAddresses(msg.To))
	if len(msg.Cc) > 0 {
		_, _ = fmt.Fprintf(body, "CC: %s\r\n", joinAddresses(msg.Cc))
	}

	altW := multipart.NewWriter(body)
	_, _ = fmt.Fprintf(body, "Content-Type: multipart/alternative; boundary=%s\r\n\r\n", altW.Boundary())

	w, err := altW.CreatePart(textproto.MIMEHeader{"Content-Type": {"text/plain; charset=utf-8"}})
	if err != nil {
		return errors.Wrap(err, "creating text/plain part")
	}
	_, _ = fmt.Fprintf(w, "%s\r\n", msg.TextContent)

	if msg.HTMLContent != "" {
		if w, err = altW.CreatePart(textproto.MIMEHeader{"Content-Type": {"text/html; charset=utf-8"}}); err != nil {
			return errors.Wrap(err, "creating text/html part")
		}
		_, _ = fmt.Fprintf(w, "%s\r\n", msg.HTMLContent)
	}
	for _, at := range msg.Attachments {
		w, err = altW.CreatePart(textproto.MIMEHeader{
			"Content-Type":              {at.ContentType},
			"Content-Transfer-Encoding": {"base64"},
			"Content-Disposition":       {"attachment; filename=" + at.Filename},
		})
		if err != nil {
			return errors.Wrap(err, "creating "+at.ContentType+" part")
		}
		_, _ = fmt.Fprintf(w, "%s\r\n", at.Content.String())
	}
	if err = altW.Close(); err != nil {
		return errors.Wrap(err, "closing multipart writer")
	}

	_, err = fmt.Fprintln(svc.out, body.String())
	return err
}

func joinAddresses(addrs []mail.Address) string {
	toJoin := make([]string, 0, len(addrs))
	for _, a := range addrs {
		toJoin = append(toJoin, a.String())
	}
	return strings.Join(toJoin, ", ")
}
