// Package notify delivers push notifications through Firebase Cloud Messaging.
package notify

import (
	"context"
	"fmt"
	"strconv"

	"firebase.google.com/go/v4/messaging"
)

// Message is one notification addressed to a device token.
type Message struct {
	Token string
	Title string
	Body  string
	Data  map[string]string
}

// Sender delivers a Message and returns the provider's message id.
type Sender interface {
	Send(ctx context.Context, msg Message) (string, error)
}

// FCM sends through the Firebase Admin messaging client.
type FCM struct {
	client *messaging.Client
}

func NewFCM(client *messaging.Client) *FCM {
	return &FCM{client: client}
}

func (f *FCM) Send(ctx context.Context, msg Message) (string, error) {
	id, err := f.client.Send(ctx, toFCM(msg))
	if err != nil {
		return "", fmt.Errorf("fcm send: %w", err)
	}
	return id, nil
}

const androidChannel = "qanta_reminders"

func toFCM(msg Message) *messaging.Message {
	badge := 1
	return &messaging.Message{
		Token: msg.Token,
		Notification: &messaging.Notification{
			Title: msg.Title,
			Body:  msg.Body,
		},
		Data: msg.Data,
		Android: &messaging.AndroidConfig{
			Priority: "high",
			Notification: &messaging.AndroidNotification{
				ChannelID: androidChannel,
				Sound:     "default",
				Priority:  messaging.PriorityHigh,
			},
		},
		APNS: &messaging.APNSConfig{
			Payload: &messaging.APNSPayload{
				Aps: &messaging.Aps{Sound: "default", Badge: &badge},
			},
		},
	}
}

var providerNames = map[string]string{
	"amazon": "Amazon",
	"paribu": "Paribu Cineverse",
	"dnr":    "D&R",
	"gratis": "Gratis",
}

// ProviderName is the display name of a gift-card provider.
func ProviderName(provider string) string {
	if n, ok := providerNames[provider]; ok {
		return n
	}
	return "Hediye Kartı"
}

// GiftCardReady is the notification sent when an admin marks a card as sent.
func GiftCardReady(token, giftCardID, provider string, amount float64) Message {
	amountText := strconv.FormatFloat(amount, 'f', -1, 64)
	return Message{
		Token: token,
		Title: "🎉 Hediye Kartınız Hazır!",
		Body:  fmt.Sprintf("%s TL %s hediye kartınız hazır. Hemen kullanabilirsiniz!", amountText, ProviderName(provider)),
		Data: map[string]string{
			"type":         "amazon_gift_card",
			"gift_card_id": giftCardID,
			"amount":       amountText,
			"provider":     provider,
			"click_action": "FLUTTER_NOTIFICATION_CLICK",
		},
	}
}

// SupportReply is the notification sent when the support team answers a request.
func SupportReply(token, requestID, subject string) Message {
	return Message{
		Token: token,
		Title: "💬 Destek ekibinden yanıt",
		Body:  fmt.Sprintf("\"%s\" talebinize yeni bir yanıt var.", subject),
		Data: map[string]string{
			"type":         "support_message",
			"request_id":   requestID,
			"click_action": "FLUTTER_NOTIFICATION_CLICK",
		},
	}
}
