package emailer

import (
	"fmt"
	"net"
	"net/smtp"
	"time"

	"github.com/rs/zerolog"

	"github.com/zntb/automated-newsletter-service/internal/config"
)

// SMTPService delivers mail over a plain SMTP session. Each Send dials its
// own connection with a deadline covering the whole exchange, so one slow
// recipient cannot stall a broadcast indefinitely.
type SMTPService struct {
	User        string
	Host        string
	Port        string
	Password    string
	From        string
	SendTimeout time.Duration

	log zerolog.Logger
}

func NewSMTPService(cfg config.Email, logger zerolog.Logger) *SMTPService {
	svc := &SMTPService{
		User:        cfg.User,
		Host:        cfg.Host,
		Port:        cfg.Port,
		Password:    cfg.Password,
		From:        cfg.From,
		SendTimeout: time.Duration(cfg.SendTimeout) * time.Second,
		log:         logger.With().Str("component", "SMTPService").Logger(),
	}

	if svc.Host == "" || svc.Port == "" || svc.From == "" {
		svc.log.Warn().
			Str("host", svc.Host).
			Str("port", svc.Port).
			Msg("SMTP credentials are not fully set")
		return nil
	}
	return svc
}

func (e *SMTPService) Send(to, subject, additionalHeaders, body string) error {
	msg := "From: " + e.From + "\r\n" +
		"To: " + to + "\r\n" +
		"Subject: " + subject + "\r\n" +
		additionalHeaders + "\r\n\r\n" +
		body

	addr := e.Host + ":" + e.Port

	conn, err := net.DialTimeout("tcp", addr, e.SendTimeout)
	if err != nil {
		return fmt.Errorf("dial smtp server %s: %w", addr, err)
	}
	if err := conn.SetDeadline(time.Now().Add(e.SendTimeout)); err != nil {
		_ = conn.Close()
		return fmt.Errorf("set smtp deadline: %w", err)
	}

	client, err := smtp.NewClient(conn, e.Host)
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("open smtp session: %w", err)
	}
	defer func() {
		if err := client.Close(); err != nil {
			e.log.Debug().Err(err).Msg("smtp session close")
		}
	}()

	if e.User != "" {
		auth := smtp.PlainAuth("", e.User, e.Password, e.Host)
		if ok, _ := client.Extension("AUTH"); ok {
			if err := client.Auth(auth); err != nil {
				return fmt.Errorf("smtp auth: %w", err)
			}
		}
	}

	if err := client.Mail(e.From); err != nil {
		return fmt.Errorf("smtp mail from: %w", err)
	}
	if err := client.Rcpt(to); err != nil {
		return fmt.Errorf("smtp rcpt to: %w", err)
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("smtp data: %w", err)
	}
	if _, err := w.Write([]byte(msg)); err != nil {
		_ = w.Close()
		return fmt.Errorf("smtp write body: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("smtp finish message: %w", err)
	}

	return client.Quit()
}
