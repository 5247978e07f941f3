package emailsvc

import (
	"context"
	"fmt"
	"net/http"
	"net/mail"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/trezcool/mentorbro/core"
	"github.com/trezcool/mentorbro/core/sysconfig"
)

var (
	host     = "https://api.sendgrid.com"
	endpoint = "/v3/mail/send"
)

type sendgridService struct {
	key        string
	from       mail.Address
	appName    string
	subjPrefix string
	settings   sysconfig.Provider
	logger     core.Logger
}

var _ core.EmailService = (*sendgridService)(nil)

// NewSendgridService sends emails through Sendgrid.
// The email credentials of the system config win over the environment ones once they are all set.
func NewSendgridService(conf *core.Config, settings sysconfig.Provider, logger core.Logger) *sendgridService {
	return &sendgridService{
		key:        conf.Email.SendgridAPIKey,
		from:       conf.Email.DefaultFromEmail,
		appName:    conf.AppName,
		subjPrefix: "[" + conf.AppName + "] ",
		settings:   settings,
		logger:     logger,
	}
}

func (svc sendgridService) SendMessages(messages ...*core.EmailMessage) {
	for _, msg := range messages {
		msg := msg
		go func() {
			if err := msg.Render(svc.appName); err != nil {
				svc.logger.Error(fmt.Sprintf("rendering email: %v", err), err)
			}
			if msg.HasRecipients() && (msg.HasContent() || msg.HasAttachments()) {
				svc.send(*msg)
			}
		}()
	}
}

// credentials returns the API key & sender to use.
func (svc sendgridService) credentials() (string, mail.Address) {
	if svc.settings != nil {
		conf, err := svc.settings.Current(context.Background())
		if err != nil {
			svc.logger.Warn(fmt.Sprintf("loading email settings: %v", err), err)
		} else if conf.HasValidCredentials(sysconfig.SectionEmail) {
			return conf.Email.APIKey, mail.Address{Name: conf.Email.SenderName, Address: conf.Email.SenderEmail}
		}
	}
	return svc.key, svc.from
}

func (svc sendgridService) prepare(msg core.EmailMessage, from mail.Address) *sgmail.SGMailV3 {
	p := sgmail.NewPersonalization()
	p.Subject = svc.subjPrefix + msg.Subject

	for _, to := range msg.To {
		p.AddTos(svc.getSGEmail(to))
	}
	for _, cc := range msg.Cc {
		p.AddCCs(svc.getSGEmail(cc))
	}
	for _, bcc := range msg.Bcc {
		p.AddBCCs(svc.getSGEmail(bcc))
	}

	m := sgmail.NewV3Mail()
	m.SetFrom(svc.getSGEmail(from))
	m.AddPersonalizations(p)

	text := msg.TextContent
	if text == "" {
		text = msg.BodyStr
	}
	m.AddContent(sgmail.NewContent("text/plain", text))
	if msg.HTMLContent != "" {
		m.AddContent(sgmail.NewContent("text/html", msg.HTMLContent))
	}

	for _, a := range msg.Attachments {
		m.AddAttachment(svc.getSGAttachment(a))
	}

	return m
}

func (svc sendgridService) getSGEmail(addr mail.Address) *sgmail.Email {
	return sgmail.NewEmail(addr.Name, addr.Address)
}

func (svc sendgridService) getSGAttachment(at core.Attachment) *sgmail.Attachment {
	return &sgmail.Attachment{
		Content:     at.Content.String(),
		Type:        at.ContentType,
		Filename:    at.Filename,
		Disposition: "attachment",
	}
}

func (svc sendgridService) send(msg core.EmailMessage) {
	key, from := svc.credentials()
	if key == "" {
		svc.logger.Warn("sending email: no sendgrid API key configured", map[string]interface{}{"subject": msg.Subject})
		return
	}

	req := sendgrid.GetRequest(key, endpoint, host)
	req.Method = http.MethodPost
	req.Body = sgmail.GetRequestBody(svc.prepare(msg, from))

	res, err := sendgrid.API(req)
	if err != nil {
		svc.logger.Error(fmt.Sprintf("sending email: %v", err), err)
	} else if res.StatusCode >= http.StatusBadRequest {
		svc.logger.Error(fmt.Sprintf("sending email - status: %d - Body: %s", res.StatusCode, res.Body))
	}
}
