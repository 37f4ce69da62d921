package slack

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/sns"
	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockSNS struct {
	published []*sns.PublishInput
	err       error
}

func (m *mockSNS) Publish(_ context.Context, in *sns.PublishInput, _ ...func(*sns.Options)) (*sns.PublishOutput, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.published = append(m.published, in)
	return &sns.PublishOutput{}, nil
}

func TestRequestInvitePublishesModerationMessage(t *testing.T) {
	api := &mockSNS{}
	inv := NewInviter(api, "arn:aws:sns:us-east-1:123456789012:slack", "#testing", zerolog.Nop())

	err := inv.RequestInvite(context.Background(), "Eugene Debs", "debs@example.com")
	require.NoError(t, err)
	require.Len(t, api.published, 1)

	in := api.published[0]
	assert.Equal(t, "arn:aws:sns:us-east-1:123456789012:slack", *in.TopicArn)
	assert.Equal(t, "postMessage", *in.MessageAttributes["id"].StringValue)
	assert.Equal(t, "chat", *in.MessageAttributes["type"].StringValue)

	var msg chatMessage
	require.NoError(t, json.Unmarshal([]byte(*in.Message), &msg))
	assert.Equal(t, "#testing", msg.Channel)
	require.Len(t, msg.Attachments, 2)

	fields := msg.Attachments[0].Fields
	require.Len(t, fields, 2)
	assert.Equal(t, "Eugene Debs", fields[0].Value)
	assert.Equal(t, "debs@example.com", fields[1].Value)

	actions := msg.Attachments[1].Actions
	require.Len(t, actions, 2)
	assert.Equal(t, "invite", msg.Attachments[1].CallbackID)
	assert.Equal(t, "invite", actions[0].Name)
	assert.Equal(t, "debs@example.com", actions[0].Value)
	assert.Equal(t, "dismiss", actions[1].Name)
	assert.Equal(t, "danger", actions[1].Style)
	require.NotNil(t, actions[0].Confirm)
	require.NotNil(t, actions[1].Confirm)
}

func TestRequestInvitePublishError(t *testing.T) {
	api := &mockSNS{err: errors.New("topic gone")}
	inv := NewInviter(api, "arn:topic", "#testing", zerolog.Nop())

	err := inv.RequestInvite(context.Background(), "A", "a@example.com")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "publishing invite request")
}

func TestBuildInviteMessageFallbackText(t *testing.T) {
	msg := buildInviteMessage("#mods", "A", "a@example.com")
	assert.Equal(t, inviteFallback, msg.Text)
	for _, att := range msg.Attachments {
		assert.Equal(t, inviteFallback, att.Fallback)
	}
}
