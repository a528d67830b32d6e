package mailer

import (
	"context"
	"errors"
	"net/smtp"
	"strings"
	"testing"
	"time"

	"booktable/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type flakyMailer struct {
	failures int
	calls    int
}

func (m *flakyMailer) Send(ctx context.Context, mail Mail) error {
	m.calls++
	if m.calls <= m.failures {
		return errors.New("421 service not available")
	}
	return nil
}

func TestSMTPMailer_Compose(t *testing.T) {
	var gotAddr, gotFrom string
	var gotTo []string
	var gotMsg []byte

	m := NewSMTPMailer("smtp.example.com", 587, "", "", "BookTable <no-reply@booktable.example>")
	m.now = func() time.Time { return time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC) }
	m.send = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotFrom, gotTo, gotMsg = addr, from, to, msg
		return nil
	}

	err := m.Send(context.Background(), Mail{
		To:      "diner@example.com",
		Subject: "Booking at Bistro\r\nBcc: victim@example.com",
		Body:    "line one\nline two",
	})
	require.NoError(t, err)

	assert.Equal(t, "smtp.example.com:587", gotAddr)
	assert.Equal(t, "BookTable <no-reply@booktable.example>", gotFrom)
	assert.Equal(t, []string{"diner@example.com"}, gotTo)

	msg := string(gotMsg)
	assert.Contains(t, msg, "To: diner@example.com\r\n")
	assert.Contains(t, msg, "Subject: Booking at Bistro Bcc: victim@example.com\r\n")
	assert.NotContains(t, msg, "\r\nBcc:")
	assert.True(t, strings.HasSuffix(msg, "\r\n\r\nline one\r\nline two"))
}

func TestSMTPMailer_SendError(t *testing.T) {
	m := NewSMTPMailer("smtp.example.com", 25, "user", "pass", "no-reply@booktable.example")
	m.send = func(string, smtp.Auth, string, []string, []byte) error {
		return errors.New("connection refused")
	}

	err := m.Send(context.Background(), Mail{To: "diner@example.com"})
	assert.ErrorContains(t, err, "diner@example.com")
}

func TestRetrying(t *testing.T) {
	tests := []struct {
		name      string
		failures  int
		wantCalls int
		wantErr   bool
	}{
		{"first attempt", 0, 1, false},
		{"succeeds on third", 2, 3, false},
		{"gives up after three", 5, 3, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next := &flakyMailer{failures: tt.failures}
			r := NewRetrying(next, 3, time.Millisecond, logger.Discard())

			err := r.Send(context.Background(), Mail{To: "diner@example.com"})
			assert.Equal(t, tt.wantCalls, next.calls)
			if tt.wantErr {
				assert.ErrorContains(t, err, "giving up after 3 attempts")
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestRetrying_StopsOnCancel(t *testing.T) {
	next := &flakyMailer{failures: 10}
	r := NewRetrying(next, 3, time.Hour, logger.Discard())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := r.Send(ctx, Mail{To: "diner@example.com"})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, next.calls)
}
