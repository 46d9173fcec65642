package email

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"

	"github.com/wneessen/go-mail"

	"github.com/estatease/estatease/internal/usecase"
)

// sender delivers one message. *mail.Client satisfies it.
type sender interface {
	DialAndSend(...*mail.Msg) error
}

func NewEmailProvider(
	smtpHost, smtpUser, smtpPassword, smtpPort string, logger *slog.Logger) (*EmailProvider, error) {

	if smtpHost == "" || smtpUser == "" || smtpPassword == "" || smtpPort == "" {
		return nil, errors.New("email: SMTP host, user, password and port must be provided")
	}

	smtpPortInt, err := strconv.Atoi(smtpPort)
	if err != nil {
		return nil, fmt.Errorf("email: invalid SMTP port: %w", err)
	}

	client, err := mail.NewClient(
		smtpHost,
		mail.WithPort(smtpPortInt),
		mail.WithUsername(smtpUser),
		mail.WithPassword(smtpPassword),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
	)
	if err != nil {
		return nil, fmt.Errorf("email: failed to create SMTP client: %w", err)
	}

	return newEmailProvider(client, logger), nil
}

func newEmailProvider(s sender, logger *slog.Logger) *EmailProvider {
	if logger == nil {
		logger = slog.Default()
	}
	provider := &EmailProvider{
		c:      make(chan *mail.Msg, 100),
		client: s,
		logger: logger,
	}

	provider.wg.Add(1)
	go provider.sendEmailWorker()

	return provider
}

// EmailProvider queues messages and sends them from a single goroutine.
type EmailProvider struct {
	c      chan *mail.Msg
	client sender
	logger *slog.Logger
	wg     sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

// ErrClosed is returned by SendEmail after Close.
var ErrClosed = errors.New("email: provider closed")

func (e *EmailProvider) SendEmail(ctx context.Context, email usecase.Email) error {
	msg := mail.NewMsg()
	if err := msg.From(email.From); err != nil {
		return fmt.Errorf("email: invalid sender: %w", err)
	}
	if err := msg.To(email.To...); err != nil {
		return fmt.Errorf("email: invalid recipient: %w", err)
	}
	if len(email.CC) > 0 {
		if err := msg.Cc(email.CC...); err != nil {
			return fmt.Errorf("email: invalid cc: %w", err)
		}
	}
	if len(email.BCC) > 0 {
		if err := msg.Bcc(email.BCC...); err != nil {
			return fmt.Errorf("email: invalid bcc: %w", err)
		}
	}
	msg.Subject(email.Subject)
	msg.SetBodyString(mail.TypeTextHTML, email.Body)
	for _, file := range email.Attachments {
		if err := msg.AttachReader(
			file.Name,
			bytes.NewReader(file.Content),
			mail.WithFileContentType(mail.ContentType(file.ContentType)),
		); err != nil {
			e.logger.WarnContext(ctx, "email: failed to attach file", slog.String("file", file.Name), slog.String("err", err.Error()))
		}
	}

	// the read lock keeps Close from closing the channel mid-send
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.closed {
		return ErrClosed
	}

	select {
	case e.c <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting messages and waits for queued ones to be sent.
// Later SendEmail calls return ErrClosed.
func (e *EmailProvider) Close() {
	e.mu.Lock()
	if !e.closed {
		e.closed = true
		close(e.c)
	}
	e.mu.Unlock()
	e.wg.Wait()
}

func (e *EmailProvider) sendEmailWorker() {
	defer e.wg.Done()
	for msg := range e.c {
		if err := e.client.DialAndSend(msg); err != nil {
			e.logger.Error("email: failed to send email", slog.String("err", err.Error()))
		}
	}
}
