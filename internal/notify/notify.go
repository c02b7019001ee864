package notify

import (
	"errors"
	"fmt"
	"net/http"
	"net/smtp"
	"net/url"
	"strings"
	"time"

	"bahari-bites/internal/config"
	"bahari-bites/internal/logger"
)

// ErrNotification wraps any SMS/email delivery failure. Callers log and
// swallow it; delivery failures never roll back a reconciled payment.
var ErrNotification = errors.New("notification delivery failed")

// Notifier is the sink the payment orchestrator pushes confirmations into.
type Notifier interface {
	SendSMS(phone, message string) error
	SendEmail(to, subject, body string) error
}

// Sink sends SMS through an HTTP provider (basic-auth form POST, Twilio-style
// account id/token/sender) and email through plain SMTP.
type Sink struct {
	sms        config.SMSConfig
	mail       config.MailConfig
	httpClient *http.Client
	log        *logger.Logger
}

func NewSink(sms config.SMSConfig, mail config.MailConfig, log *logger.Logger) *Sink {
	return &Sink{
		sms:        sms,
		mail:       mail,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		log:        log,
	}
}

func (s *Sink) SendSMS(phone, message string) error {
	if s.sms.AccountID == "" || s.sms.Token == "" {
		s.log.Warn("SMS", "SMS provider not configured, skipping send to "+phone)
		return nil
	}

	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", s.sms.BaseURL, s.sms.AccountID)
	form := url.Values{}
	form.Set("To", "+"+phone)
	form.Set("From", s.sms.Sender)
	form.Set("Body", message)

	req, err := http.NewRequest(http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNotification, err)
	}
	req.SetBasicAuth(s.sms.AccountID, s.sms.Token)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		s.log.Error("SMS", fmt.Sprintf("Failed to send SMS to %s: %v", phone, err))
		return fmt.Errorf("%w: %v", ErrNotification, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		s.log.Error("SMS", fmt.Sprintf("SMS provider returned status %d for %s", resp.StatusCode, phone))
		return fmt.Errorf("%w: provider status %d", ErrNotification, resp.StatusCode)
	}

	s.log.Info("SMS", "SMS sent to "+phone)

	// Optional forwarding copy for the operations number.
	if s.sms.ForwardTo != "" && s.sms.ForwardTo != phone {
		form.Set("To", "+"+s.sms.ForwardTo)
		fwdReq, err := http.NewRequest(http.MethodPost, endpoint, strings.NewReader(form.Encode()))
		if err == nil {
			fwdReq.SetBasicAuth(s.sms.AccountID, s.sms.Token)
			fwdReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
			if fwdResp, err := s.httpClient.Do(fwdReq); err == nil {
				fwdResp.Body.Close()
			} else {
				s.log.Warn("SMS", "Failed to forward SMS copy: "+err.Error())
			}
		}
	}
	return nil
}

func (s *Sink) SendEmail(to, subject, body string) error {
	if s.mail.Username == "" || s.mail.Password == "" {
		s.log.Warn("MAIL", "Mail server not configured, skipping send to "+to)
		return nil
	}

	from := s.mail.From
	if from == "" {
		from = s.mail.Username
	}

	message := []byte(fmt.Sprintf(
		"From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-version: 1.0;\r\nContent-Type: text/plain; charset=\"UTF-8\";\r\n\r\n%s",
		from, to, subject, body))

	auth := smtp.PlainAuth("", s.mail.Username, s.mail.Password, s.mail.Host)
	if err := smtp.SendMail(s.mail.Host+":"+s.mail.Port, auth, from, []string{to}, message); err != nil {
		s.log.Error("MAIL", fmt.Sprintf("Failed to send email to %s: %v", to, err))
		return fmt.Errorf("%w: %v", ErrNotification, err)
	}

	s.log.Info("MAIL", "Email sent to "+to)
	return nil
}
