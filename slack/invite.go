// Package slack implements the invite workflow: membership lookup and the
// moderation message posted through the notification topic.
package slack

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"
	slackapi "github.com/slack-go/slack"
)

// SNSAPI is the SNS surface the inviter uses.
type SNSAPI interface {
	Publish(ctx context.Context, in *sns.PublishInput, opts ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// Inviter posts the moderation message for a Slack invite request to the
// notification topic, where the chapter bot picks it up.
type Inviter struct {
	sns      SNSAPI
	topicARN string
	channel  string
	log      zerolog.Logger
}

// NewInviter creates an Inviter publishing to topicARN for the given
// moderation channel.
func NewInviter(api SNSAPI, topicARN, channel string, log zerolog.Logger) *Inviter {
	return &Inviter{sns: api, topicARN: topicARN, channel: channel, log: log}
}

// chatMessage is the payload the bot expects on the topic.
type chatMessage struct {
	Channel     string                `json:"channel"`
	Text        string                `json:"text"`
	Attachments []slackapi.Attachment `json:"attachments"`
}

// RequestInvite publishes the moderation message asking the Slack admins to
// invite or dismiss the member.
func (i *Inviter) RequestInvite(ctx context.Context, name, email string) error {
	body, err := json.Marshal(buildInviteMessage(i.channel, name, email))
	if err != nil {
		return fmt.Errorf("slack: marshaling invite message: %w", err)
	}

	_, err = i.sns.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(i.topicARN),
		Message:  aws.String(string(body)),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"id":   {DataType: aws.String("String"), StringValue: aws.String("postMessage")},
			"type": {DataType: aws.String("String"), StringValue: aws.String("chat")},
		},
	})
	if err != nil {
		return fmt.Errorf("slack: publishing invite request: %w", err)
	}

	i.log.Info().Str("email", email).Msg("invite request published")
	return nil
}

const inviteFallback = "A new DSA member is requesting to join Slack"

func buildInviteMessage(channel, name, email string) chatMessage {
	return chatMessage{
		Channel: channel,
		Text:    inviteFallback,
		Attachments: []slackapi.Attachment{
			{
				Color:    "b71c1c",
				Fallback: inviteFallback,
				Fields: []slackapi.AttachmentField{
					{Title: "Name", Value: name, Short: true},
					{Title: "Email", Value: email, Short: true},
				},
				Footer:     "<https://github.com/BostonDSA/socialismbot|BostonDSA/socialismbot>",
				FooterIcon: "https://assets-cdn.github.com/favicon.ico",
			},
			{
				Color:      "b71c1c",
				CallbackID: "invite",
				Fallback:   inviteFallback,
				Text:       "Invite or dismiss?",
				Actions: []slackapi.AttachmentAction{
					{
						Name:  "invite",
						Text:  "Invite",
						Type:  "button",
						Value: email,
						Confirm: &slackapi.ConfirmationField{
							Title:  "Are you sure?",
							Text:   fmt.Sprintf("%s *will* be invited to Slack", name),
							OkText: "Yes",
						},
					},
					{
						Name:  "dismiss",
						Text:  "Dismiss",
						Type:  "button",
						Style: "danger",
						Confirm: &slackapi.ConfirmationField{
							Title:  "Are you sure?",
							Text:   fmt.Sprintf("%s *will not* be invited to Slack", name),
							OkText: "Yes",
						},
					},
				},
			},
		},
	}
}

// MemberLookup reports whether an email belongs to a workspace member.
type MemberLookup interface {
	LookupByEmail(ctx context.Context, email string) (bool, error)
}

// WebLookup checks workspace membership via the Slack Web API.
type WebLookup struct {
	api *slackapi.Client
}

// NewWebLookup creates a WebLookup with the given bot token.
func NewWebLookup(token string) *WebLookup {
	return &WebLookup{api: slackapi.New(token)}
}

// LookupByEmail returns true when the email belongs to a workspace member.
// A users_not_found response is not an error, just a negative answer.
func (l *WebLookup) LookupByEmail(ctx context.Context, email string) (bool, error) {
	_, err := l.api.GetUserByEmailContext(ctx, email)
	if err != nil {
		if err.Error() == "users_not_found" {
			return false, nil
		}
		return false, fmt.Errorf("slack: user lookup for %s: %w", email, err)
	}
	return true, nil
}
