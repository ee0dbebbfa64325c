package mail

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/hrdesk/notify-service/internal/config"
	"github.com/hrdesk/notify-service/internal/model"
	"github.com/stretchr/testify/assert"
)

var testVars = model.WelcomePayload{
	EmployeeID: 7,
	Name:       "Ada Lovelace",
	Email:      "ada@hrdesk.local",
	Position:   "Engineer",
	JobLevel:   "Senior",
	Department: "R&D",
}

func TestRenderWelcome(t *testing.T) {
	s, err := NewSMTPSender(config.SMTPConfig{From: "hr@hrdesk.local"})
	assert.NoError(t, err)

	body, err := s.render(testVars)
	assert.NoError(t, err)
	assert.Contains(t, body, "Ada Lovelace")
	assert.Contains(t, body, "Engineer")
	assert.Contains(t, body, "Senior")
	assert.Contains(t, body, "R&D")
}

func TestSend_InvalidRecipientIsPermanent(t *testing.T) {
	s, err := NewSMTPSender(config.SMTPConfig{From: "hr@hrdesk.local"})
	assert.NoError(t, err)

	err = s.Send(context.Background(), "not-an-address", testVars)
	assert.Error(t, err)
	assert.True(t, IsPermanent(err))
}

func TestPermanentErrorClassification(t *testing.T) {
	base := errors.New("boom")
	assert.False(t, IsPermanent(base))
	assert.True(t, IsPermanent(Permanent(base)))
	// survives further wrapping
	assert.True(t, IsPermanent(fmt.Errorf("send: %w", Permanent(base))))
	assert.True(t, errors.Is(Permanent(base), base))
}

func TestBuildMessageHeaders(t *testing.T) {
	msg := string(buildMessage("hr@hrdesk.local", "ada@hrdesk.local", "Welcome aboard", "<p>hi</p>"))
	assert.Contains(t, msg, "From: hr@hrdesk.local\r\n")
	assert.Contains(t, msg, "To: ada@hrdesk.local\r\n")
	assert.Contains(t, msg, "Subject: Welcome aboard\r\n")
	assert.Contains(t, msg, "Content-Type: text/html")
	assert.Contains(t, msg, "\r\n\r\n<p>hi</p>")
}
