package mail

import (
	"crypto/tls"
	"fmt"
	"log"
	"net"
	"net/smtp"
	"time"

	"github.com/sellforge/sellforge/internal/pkg/env"
)

// SendMail delivers a single HTML mail via SMTP. The dial and the whole
// conversation share one deadline so a hung mail server cannot stall the
// caller.
func SendMail(to string, subject string, body string) error {
	host := env.GetEnv("SMTP_HOST", "")
	port := env.GetEnv("SMTP_PORT", "587")
	username := env.GetEnv("SMTP_USERNAME", "")
	password := env.GetEnv("SMTP_PASSWORD", "")
	sender := env.GetEnv("SMTP_SENDER", "")
	timeout := time.Duration(env.GetEnvInt("SMTP_TIMEOUT_SECONDS", 10)) * time.Second

	if sender == "" {
		sender = "no-reply@localhost"
		log.Printf("SMTP_SENDER not set, using default sender: %s", sender)
	}

	addr := net.JoinHostPort(host, port)

	msg := []byte(
		fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n", sender, to, subject) +
			"MIME-Version: 1.0\r\n" +
			"Content-Type: text/html; charset=UTF-8\r\n\r\n" +
			body,
	)

	if err := sendWithDeadline(addr, host, username, password, sender, to, msg, timeout); err != nil {
		log.Printf("SMTP send error: %v", err)
		return err
	}
	log.Printf("Email sent to %s via %s", to, addr)
	return nil
}

func sendWithDeadline(addr, host, username, password, sender, to string, msg []byte, timeout time.Duration) error {
	conn, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return err
	}
	if err := conn.SetDeadline(time.Now().Add(timeout)); err != nil {
		conn.Close()
		return err
	}

	client, err := smtp.NewClient(conn, host)
	if err != nil {
		conn.Close()
		return err
	}
	defer client.Close()

	if ok, _ := client.Extension("STARTTLS"); ok {
		if err := client.StartTLS(&tls.Config{ServerName: host}); err != nil {
			return err
		}
	}
	if username != "" && password != "" {
		if err := client.Auth(smtp.PlainAuth("", username, password, host)); err != nil {
			return err
		}
	}
	if err := client.Mail(sender); err != nil {
		return err
	}
	if err := client.Rcpt(to); err != nil {
		return err
	}
	w, err := client.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(msg); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return client.Quit()
}
