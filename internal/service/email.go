package service

import (
	"context"
	"fmt"
	"time"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

type emailService struct {
	client   *sendgrid.Client
	fromName string
	fromAddr string
}

func NewEmailService(apiKey, fromName, fromAddr string) EmailService {
	return &emailService{
		client:   sendgrid.NewSendClient(apiKey),
		fromName: fromName,
		fromAddr: fromAddr,
	}
}

func (s *emailService) send(email, subject, body string) error {
	from := mail.NewEmail(s.fromName, s.fromAddr)
	to := mail.NewEmail("", email)
	message := mail.NewSingleEmail(from, subject, to, body, "")
	resp, err := s.client.Send(message)
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("email provider rejected message: status %d", resp.StatusCode)
	}
	return nil
}

func (s *emailService) SendRequestConfirmation(ctx context.Context, email, projectName, reference string, start, end time.Time) error {
	subject := fmt.Sprintf("Rental reservation confirmed - %s", projectName)
	body := fmt.Sprintf("Hello,\n\nYour rental reservation for project %q has been recorded.\n\nReference: %s\nFrom: %s\nUntil: %s\n\nPlease bring your reference when picking up equipment or keys.\n\nOpen Channel Team",
		projectName, reference, start.Format("02.01.2006 15:04"), end.Format("02.01.2006 15:04"))
	return s.send(email, subject, body)
}

func (s *emailService) SendRequestCancelled(ctx context.Context, email, projectName, reference string) error {
	subject := fmt.Sprintf("Rental reservation cancelled - %s", projectName)
	body := fmt.Sprintf("Hello,\n\nYour rental reservation %s for project %q has been cancelled. All reserved equipment and rooms have been released.\n\nOpen Channel Team",
		reference, projectName)
	return s.send(email, subject, body)
}

func (s *emailService) SendRequestClosed(ctx context.Context, email, projectName, reference string) error {
	subject := fmt.Sprintf("Rental completed - %s", projectName)
	body := fmt.Sprintf("Hello,\n\nAll equipment of rental reservation %s for project %q has been returned. Thank you.\n\nOpen Channel Team",
		reference, projectName)
	return s.send(email, subject, body)
}
