package notify

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/mail.v2"

	"github.com/sakif/learnpath/internal/model"
)

type fakeSender struct {
	sent []*mail.Message
	err  error
}

func (f *fakeSender) DialAndSend(m ...*mail.Message) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, m...)
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestMailer_UserCreated(t *testing.T) {
	sender := &fakeSender{}
	m := NewMailerWithSender(sender, "hello@learnpath.dev", "https://learnpath.dev/", discardLogger())

	err := m.UserCreated(context.Background(), &model.User{ID: "u1", Email: "ada@example.com", Username: "ada"})

	require.NoError(t, err)
	require.Len(t, sender.sent, 1)

	msg := sender.sent[0]
	assert.Equal(t, []string{"ada@example.com"}, msg.GetHeader("To"))
	assert.Equal(t, []string{"hello@learnpath.dev"}, msg.GetHeader("From"))

	var raw bytes.Buffer
	_, err = msg.WriteTo(&raw)
	require.NoError(t, err)
	assert.Contains(t, raw.String(), "Hi ada,")
	assert.Contains(t, raw.String(), "https://learnpath.dev/dashboard")
}

func TestMailer_UserCreated_SendFailure(t *testing.T) {
	sender := &fakeSender{err: errors.New("connection refused")}
	m := NewMailerWithSender(sender, "hello@learnpath.dev", "https://learnpath.dev", discardLogger())

	err := m.UserCreated(context.Background(), &model.User{ID: "u1", Email: "ada@example.com"})

	assert.ErrorContains(t, err, "connection refused")
}

func TestMailer_UserCreated_CancelledContext(t *testing.T) {
	sender := &fakeSender{}
	m := NewMailerWithSender(sender, "a@b.c", "", discardLogger())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := m.UserCreated(ctx, &model.User{Email: "ada@example.com"})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, sender.sent)
}

func TestLogNotifier_NeverFails(t *testing.T) {
	var buf bytes.Buffer
	n := NewLogNotifier(slog.New(slog.NewTextHandler(&buf, nil)))

	err := n.UserCreated(context.Background(), &model.User{ID: "u1", Email: "ada@example.com"})

	assert.NoError(t, err)
	assert.Contains(t, buf.String(), "userID=u1")
}
