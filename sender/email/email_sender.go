/*
Copyright © 2024 Red Hat, Inc.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package email contains an implementation of Sender interface that delivers
// the report as multipart e-mail through SMTP relay.
package email

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/wneessen/go-mail"

	"github.com/argo-batch-tools/argo-notification-service/conf"
	"github.com/argo-batch-tools/argo-notification-service/sender"
)

// Sender is an implementation of sender.Sender for e-mail
type Sender struct {
	Host       string
	Port       int
	From       string
	Recipients []string
	Subject    string
}

// New constructs a new instance of Sender
func New(config *conf.EmailConfiguration) (*Sender, error) {
	recipients := SplitRecipients(config.To)
	if len(recipients) == 0 {
		return nil, &conf.ConfigurationError{Msg: "e-mail recipient is not set"}
	}
	return &Sender{
		Host:       config.Host,
		Port:       config.Port,
		From:       config.From,
		Recipients: recipients,
		Subject:    config.Subject,
	}, nil
}

// SplitRecipients parses comma separated list of addresses
func SplitRecipients(to string) []string {
	recipients := []string{}
	for _, address := range strings.Split(to, ",") {
		if address = strings.TrimSpace(address); address != "" {
			recipients = append(recipients, address)
		}
	}
	return recipients
}

// WrapHTML makes complete HTML document from report body
func WrapHTML(body string) string {
	return "<html><head></head><body>" + body + "</body></html>"
}

// Name returns name of the delivery channel
func (s *Sender) Name() string {
	return "email"
}

// NewMessage builds multipart/alternative message with plain text and HTML
// variants of the report
func (s *Sender) NewMessage(report sender.Report) (*mail.Msg, error) {
	msg := mail.NewMsg()
	if err := msg.From(s.From); err != nil {
		return nil, err
	}
	if err := msg.To(s.Recipients...); err != nil {
		return nil, err
	}
	msg.Subject(s.Subject)
	msg.SetBodyString(mail.TypeTextPlain, report.PlainText)
	msg.AddAlternativeString(mail.TypeTextHTML, WrapHTML(report.HTML))
	return msg, nil
}

// Send delivers the report to all recipients
func (s *Sender) Send(ctx context.Context, report sender.Report) error {
	msg, err := s.NewMessage(report)
	if err != nil {
		return &sender.DeliveryError{Channel: s.Name(), Err: err}
	}

	client, err := mail.NewClient(s.Host,
		mail.WithPort(s.Port),
		mail.WithTLSPolicy(mail.NoTLS))
	if err != nil {
		return &sender.DeliveryError{Channel: s.Name(), Err: err}
	}

	err = client.DialAndSendWithContext(ctx, msg)
	if err != nil {
		log.Error().Err(err).Str("host", s.Host).Int("port", s.Port).Msg("Unable to send e-mail")
		return &sender.DeliveryError{Channel: s.Name(), Err: err}
	}

	log.Info().Strs("to", s.Recipients).Msg("Report sent by e-mail")
	return nil
}
