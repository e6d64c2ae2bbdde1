package services

import (
	"fmt"
	"log"
	"strconv"

	"gopkg.in/gomail.v2"
)

type SMTPMailer struct {
	host     string
	port     int
	username string
	password string
}

func NewSMTPMailer(host, port, username, password string) *SMTPMailer {
	p, err := strconv.Atoi(port)
	if err != nil {
		p = 587
	}
	return &SMTPMailer{
		host:     host,
		port:     p,
		username: username,
		password: password,
	}
}

func (m *SMTPMailer) SendWelcomeEmail(email, name string) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.username)
	msg.SetHeader("To", email)
	msg.SetHeader("Subject", "Welcome to the car service")
	msg.SetBody("text/plain", fmt.Sprintf(
		"Hello %s,\n\nYour account has been created. You can now create service requests and chat with our employees.",
		name,
	))

	dialer := gomail.NewDialer(m.host, m.port, m.username, m.password)
	if err := dialer.DialAndSend(msg); err != nil {
		log.Println("Failed to send welcome email:", err)
		return err
	}
	return nil
}
