// Package whatsapp sends WhatsApp messages through the Whapi.Cloud gateway.
package whatsapp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sendgrid/rest"

	"github.com/trezcool/mentorbro/core"
	"github.com/trezcool/mentorbro/core/notify"
	"github.com/trezcool/mentorbro/core/sysconfig"
)

const (
	messagesPath   = "/messages/text"
	defaultTimeout = 15 * time.Second
	defaultErrMsg  = "Failed to send WhatsApp message"
)

type credentials struct {
	token         string
	apiURL        string
	defaultNumber string
}

// Client is the Whapi implementation of notify.Transport.
type Client struct {
	env      core.WhapiConfig
	settings sysconfig.Provider
	logger   core.Logger
	http     *rest.Client
}

var _ notify.Transport = (*Client)(nil)

// NewClient returns a Whapi client. Credentials stored in the system config take precedence over conf once valid.
// settings may be nil.
func NewClient(conf *core.Config, settings sysconfig.Provider, logger core.Logger, httpClient ...*http.Client) *Client {
	hc := &http.Client{Timeout: defaultTimeout}
	if len(httpClient) > 0 && httpClient[0] != nil {
		hc = httpClient[0]
	}
	return &Client{
		env:      conf.Whapi,
		settings: settings,
		logger:   logger,
		http:     &rest.Client{HTTPClient: hc},
	}
}

func (c *Client) credentials(ctx context.Context) credentials {
	creds := credentials{
		token:         c.env.Token,
		apiURL:        c.env.APIURL,
		defaultNumber: c.env.DefaultNumber,
	}
	if c.settings == nil {
		return creds
	}

	conf, err := c.settings.Current(ctx)
	if err != nil {
		c.logger.Warn(fmt.Sprintf("loading whapi settings: %v", err), err)
		return creds
	}
	if conf.HasValidCredentials(sysconfig.SectionWhapi) {
		creds.token = conf.Whapi.Token
		creds.apiURL = conf.Whapi.APIURL
	}
	creds.defaultNumber = core.FirstNonEmpty(conf.Whapi.DefaultNumber, creds.defaultNumber)
	return creds
}

// IsConfigured reports whether an API token is available.
func (c *Client) IsConfigured(ctx context.Context) bool {
	return c.credentials(ctx).token != ""
}

func (c *Client) SendTextMessage(ctx context.Context, to, body string) notify.Result {
	creds := c.credentials(ctx)
	if creds.token == "" {
		c.logger.Warn("WhatsApp message requested but whapi is not configured")
		return notify.Failed(notify.ErrNotConfigured)
	}

	to = core.FirstNonEmpty(strings.TrimSpace(to), creds.defaultNumber)
	if to == "" {
		return notify.Failed(notify.ErrNoRecipient)
	}
	if strings.TrimSpace(body) == "" {
		return notify.Failed(notify.ErrNoContent)
	}
	recipient := notify.NormalizeRecipient(to)

	data, err := c.post(ctx, creds, recipient, body)
	if err != nil {
		c.logger.Error(fmt.Sprintf("sending WhatsApp message to %s: %v", recipient, err), err)
		return notify.Failed(err.Error())
	}
	c.logger.Info("WhatsApp message sent to " + recipient)
	return notify.Succeeded(data)
}

func (c *Client) SendNotification(ctx context.Context, to string, tmpl notify.TemplateType, data notify.Data) notify.Result {
	msg, ok := notify.RenderMessage(tmpl, data)
	if !ok {
		return notify.Failed(notify.ErrNoContent)
	}
	return c.SendTextMessage(ctx, to, msg)
}

func (c *Client) post(ctx context.Context, creds credentials, to, body string) (map[string]interface{}, error) {
	payload, err := json.Marshal(map[string]string{"to": to, "body": body})
	if err != nil {
		return nil, errors.Wrap(err, "encoding whapi request")
	}

	httpReq, err := rest.BuildRequestObject(rest.Request{
		Method:  rest.Post,
		BaseURL: strings.TrimRight(creds.apiURL, "/") + messagesPath,
		Headers: map[string]string{
			"Accept":        "application/json",
			"Content-Type":  "application/json",
			"Authorization": "Bearer " + creds.token,
		},
		Body: payload,
	})
	if err != nil {
		return nil, errors.Wrap(err, "building whapi request")
	}
	httpRes, err := c.http.MakeRequest(httpReq.WithContext(ctx))
	if err != nil {
		return nil, err
	}
	res, err := rest.BuildResponse(httpRes)
	if err != nil {
		return nil, errors.Wrap(err, "reading whapi response")
	}

	data := make(map[string]interface{})
	if res.Body != "" {
		if err := json.Unmarshal([]byte(res.Body), &data); err != nil && res.StatusCode < http.StatusBadRequest {
			return nil, errors.Wrap(err, "decoding whapi response")
		}
	}
	if res.StatusCode >= http.StatusBadRequest {
		msg, _ := data["message"].(string)
		return nil, errors.New(core.FirstNonEmpty(msg, defaultErrMsg))
	}
	return data, nil
}
