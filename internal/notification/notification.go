/*
Copyright 2024 Blnk Finance Authors.

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

package notification

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/jerry-enebeli/notebox/internal/request"
	"github.com/sirupsen/logrus"
)

// Notifier reports hard failures to a human.
type Notifier interface {
	NotifyError(err error)
}

// Noop only logs.
type Noop struct{}

func (Noop) NotifyError(err error) {
	logrus.Error(err)
}

// Slack posts errors to an incoming webhook.
type Slack struct {
	WebhookURL string
	Project    string
}

// New returns a Slack notifier when a webhook is configured, Noop otherwise.
func New(webhookURL, project string) Notifier {
	if webhookURL == "" {
		return Noop{}
	}
	return &Slack{WebhookURL: webhookURL, Project: project}
}

func (s *Slack) message(err error, at time.Time) json.RawMessage {
	text, _ := json.Marshal(err.Error())
	return json.RawMessage(fmt.Sprintf(`{
		"blocks": [
			{
				"type": "header",
				"text": {
					"type": "plain_text",
					"text": "Error From %s 🐞",
					"emoji": true
				}
			},
			{
				"type": "section",
				"fields": [
					{
						"type": "mrkdwn",
						"text": %s
					},
					{
						"type": "mrkdwn",
						"text": "*Time:*\n%s"
					}
				]
			}
		]
	}`, s.Project, text, at.Format(time.RFC822)))
}

// Send posts err synchronously.
func (s *Slack) Send(err error) error {
	data := s.message(err, time.Now())
	payload, e := request.ToJsonReq(&data)
	if e != nil {
		return e
	}

	req, e := http.NewRequest(http.MethodPost, s.WebhookURL, payload)
	if e != nil {
		return e
	}
	_, e = request.Call(req, nil)
	return e
}

// NotifyError logs err and posts it in the background.
func (s *Slack) NotifyError(systemError error) {
	logrus.Error(systemError)
	go func(systemError error) {
		if err := s.Send(systemError); err != nil {
			logrus.WithError(err).Warn("failed to send slack notification")
		}
	}(systemError)
}
