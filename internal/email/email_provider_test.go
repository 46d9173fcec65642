package email

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wneessen/go-mail"

	"github.com/estatease/estatease/internal/usecase"
)

type fakeSender struct {
	mu   sync.Mutex
	msgs []*mail.Msg
	err  error
}

func (f *fakeSender) DialAndSend(msgs ...*mail.Msg) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgs = append(f.msgs, msgs...)
	return f.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSendEmail_DeliversQueuedMessages(t *testing.T) {
	s := &fakeSender{}
	p := newEmailProvider(s, discardLogger())

	err := p.SendEmail(context.Background(), usecase.Email{
		From:    "noreply@estatease.test",
		To:      []string{"admin@estatease.test"},
		Subject: "Orphaned villa listing: Villa Sunset",
		Body:    "<p>hello</p>",
		Attachments: []usecase.EmailAttachment{
			{Name: "qr.png", ContentType: "image/png", Content: []byte("png")},
		},
	})
	require.NoError(t, err)
	p.Close()

	require.Len(t, s.msgs, 1)
	rcpts, err := s.msgs[0].GetRecipients()
	require.NoError(t, err)
	assert.Equal(t, []string{"admin@estatease.test"}, rcpts)
	assert.Equal(t, []string{"Orphaned villa listing: Villa Sunset"}, s.msgs[0].GetGenHeader(mail.HeaderSubject))
}

func TestSendEmail_InvalidAddress(t *testing.T) {
	p := newEmailProvider(&fakeSender{}, discardLogger())
	defer p.Close()

	err := p.SendEmail(context.Background(), usecase.Email{
		From: "noreply@estatease.test",
		To:   []string{"not an address"},
	})
	assert.Error(t, err)
}

func TestSendEmail_SendFailureIsLogged(t *testing.T) {
	s := &fakeSender{err: errors.New("smtp down")}
	p := newEmailProvider(s, discardLogger())

	require.NoError(t, p.SendEmail(context.Background(), usecase.Email{
		From: "noreply@estatease.test",
		To:   []string{"admin@estatease.test"},
	}))
	p.Close()

	assert.Len(t, s.msgs, 1)
}

func TestNewEmailProvider_RequiresSettings(t *testing.T) {
	_, err := NewEmailProvider("", "", "", "", nil)
	assert.Error(t, err)

	_, err = NewEmailProvider("smtp.test", "u", "p", "abc", nil)
	assert.Error(t, err)
}

func TestSendEmail_AfterCloseIsRejected(t *testing.T) {
	s := &fakeSender{}
	p := newEmailProvider(s, discardLogger())
	p.Close()
	p.Close()

	err := p.SendEmail(context.Background(), usecase.Email{
		From: "noreply@estatease.test",
		To:   []string{"admin@estatease.test"},
	})
	assert.ErrorIs(t, err, ErrClosed)
	assert.Empty(t, s.msgs)
}

func TestSendEmail_ConcurrentWithClose(t *testing.T) {
	s := &fakeSender{}
	p := newEmailProvider(s, discardLogger())

	var (
		wg   sync.WaitGroup
		sent sync.Map
	)
	for i := range 20 {
		wg.Go(func() {
			err := p.SendEmail(context.Background(), usecase.Email{
				From: "noreply@estatease.test",
				To:   []string{"admin@estatease.test"},
			})
			if err == nil {
				sent.Store(i, true)
				return
			}
			assert.ErrorIs(t, err, ErrClosed)
		})
	}
	p.Close()
	wg.Wait()

	var n int
	sent.Range(func(any, any) bool { n++; return true })
	s.mu.Lock()
	defer s.mu.Unlock()
	assert.Len(t, s.msgs, n)
}
