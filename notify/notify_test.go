package notify

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketbot/config"
)

func testPayload() Payload {
	return Payload{
		ConversationID:  "t1",
		ConversationURL: "https://www.facebook.com/messages/t/t1",
		Product:         "iPhone 13 Pro Max",
		SellerName:      "Sam Seller",
		Price:           290,
		LastMessage:     "ok deal, see you there",
	}
}

func TestFormatDealClosed(t *testing.T) {
	subject, body := formatMessage(KindDealClosed, testPayload())

	assert.Equal(t, "DEAL CLOSED - iPhone 13 Pro Max $290", subject)
	assert.Contains(t, body, "iPhone 13 Pro Max - $290")
	assert.Contains(t, body, "Sam Seller")
	assert.Contains(t, body, "https://www.facebook.com/messages/t/t1")
}

func TestFormatHelpNeeded(t *testing.T) {
	p := testPayload()
	p.Issue = "Seller holding at $500, above our $300 ceiling after 2 rounds"
	subject, body := formatMessage(KindHelpNeeded, p)

	assert.Equal(t, "AGENT HELP NEEDED - Sam Seller ($290)", subject)
	assert.Contains(t, body, p.Issue)
	assert.Contains(t, body, p.LastMessage)
}

func TestFormatUnknownSeller(t *testing.T) {
	p := testPayload()
	p.SellerName = ""
	subject, _ := formatMessage(KindHelpNeeded, p)
	assert.Contains(t, subject, "Unknown")
}

func TestFromSettings(t *testing.T) {
	plain := &config.Settings{}
	assert.IsType(t, &LogNotifier{}, FromSettings(plain))

	mailed := &config.Settings{
		NotificationEmail: "ops@example.com",
		SMTP: config.SMTP{
			Host: "relay.example.com",
			Port: 587,
			From: "bot@example.com",
		},
	}
	n := FromSettings(mailed)
	require.IsType(t, &EmailNotifier{}, n)
	assert.Equal(t, "ops@example.com", n.(*EmailNotifier).To)
}

func TestLogNotifierNeverFails(t *testing.T) {
	err := (&LogNotifier{}).Notify(context.Background(), KindDealClosed, testPayload())
	assert.NoError(t, err)
}
