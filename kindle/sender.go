package kindle

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/wneessen/go-mail"

	"inkdrop/catalog"
	"inkdrop/utils"
)

// preferredFormats is the delivery order Kindle devices handle best.
var preferredFormats = []string{"EPUB", "MOBI", "AZW3", "PDF"}

var ErrNotConfigured = errors.New("smtp settings incomplete")

// PickFormat chooses which of a book's formats to send. Preferred formats
// first, then whatever the book has.
func PickFormat(b catalog.Book) (string, bool) {
	for _, want := range preferredFormats {
		for _, have := range b.Formats {
			if have == want {
				return want, true
			}
		}
	}
	if len(b.Formats) > 0 {
		return b.Formats[0], true
	}
	return "", false
}

// Sender mails book files straight to a Kindle address, bypassing the
// server when it has no SMTP of its own.
type Sender struct {
	cfg utils.SMTPConfig
}

func NewSender(cfg utils.SMTPConfig) *Sender {
	return &Sender{cfg: cfg}
}

func (s *Sender) Configured() bool {
	return s.cfg.Host != "" && s.cfg.From != "" && s.cfg.KindleEmail != ""
}

// Send attaches the book file and mails it. Port 465 means implicit TLS,
// 587 (and anything else) negotiates STARTTLS.
func (s *Sender) Send(b catalog.Book, format string, content []byte) error {
	if !s.Configured() {
		return ErrNotConfigured
	}

	m := mail.NewMsg()
	if err := m.From(s.cfg.From); err != nil {
		return fmt.Errorf("bad from address %q: %w", s.cfg.From, err)
	}
	if err := m.To(s.cfg.KindleEmail); err != nil {
		return fmt.Errorf("bad kindle address %q: %w", s.cfg.KindleEmail, err)
	}
	m.Subject("")
	m.SetBodyString(mail.TypeTextPlain, "")

	fileName := fmt.Sprintf("%s.%s", sanitizeFileName(b.Title), format)
	m.AttachReader(fileName, bytes.NewReader(content))

	opts := []mail.Option{
		mail.WithPort(s.cfg.Port),
		mail.WithSMTPAuth(mail.SMTPAuthLogin),
		mail.WithUsername(s.cfg.From),
		mail.WithPassword(s.cfg.Password),
		mail.WithTimeout(120 * time.Second),
	}
	if s.cfg.Port == 465 {
		opts = append(opts, mail.WithSSL())
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSOpportunistic))
	}

	c, err := mail.NewClient(s.cfg.Host, opts...)
	if err != nil {
		return fmt.Errorf("create mail client: %w", err)
	}
	if err := c.DialAndSend(m); err != nil {
		slog.Error("send to kindle failed",
			slog.String("to", s.cfg.KindleEmail),
			slog.String("file", fileName),
			slog.String("err", err.Error()),
		)
		return fmt.Errorf("dial smtp: %w", err)
	}

	slog.Info("sent to kindle",
		slog.String("to", s.cfg.KindleEmail),
		slog.String("file", fileName),
	)
	return nil
}

func sanitizeFileName(name string) string {
	out := []rune(name)
	for i, r := range out {
		switch r {
		case '\\', '/', ':', '*', '?', '"', '<', '>', '|':
			out[i] = '_'
		}
	}
	return string(out)
}
