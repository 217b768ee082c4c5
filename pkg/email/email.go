// pkg/email/email.go
package email

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"log"
	"net/http"
	"time"
)

// Service sends subscription notifications through the Resend API. It
// implements the reconciliation engine's Sender interface; every call is
// bounded by the caller's context plus the client timeout.
type Service struct {
	apiKey    string
	from      string
	client    *http.Client
	templates *template.Template
}

type emailPayload struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Subject string `json:"subject"`
	Html    string `json:"html"`
}

// Template data structures
type RenewalReminderData struct {
	Name         string
	BusinessName string
	DaysLeft     int
	ExpiryDate   time.Time
}

type PaymentFailureData struct {
	Name          string
	BusinessName  string
	FailureReason string
}

type SubscriptionCancelledData struct {
	Name         string
	BusinessName string
	ExpiresAt    time.Time
}

func NewService(apiKey, from string) (*Service, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("resend API key is required")
	}

	templates, err := loadTemplates()
	if err != nil {
		return nil, fmt.Errorf("error loading email templates: %v", err)
	}

	return &Service{
		apiKey:    apiKey,
		from:      from,
		client:    &http.Client{Timeout: 15 * time.Second},
		templates: templates,
	}, nil
}

func (s *Service) sendTemplateEmail(ctx context.Context, to, subject, templateName string, data interface{}) error {
	var body bytes.Buffer
	if err := s.templates.ExecuteTemplate(&body, templateName, data); err != nil {
		return fmt.Errorf("template execution error: %v", err)
	}

	payload := emailPayload{
		From:    s.from,
		To:      to,
		Subject: subject,
		Html:    body.String(),
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("error marshaling email data: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", "https://api.resend.com/emails", bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("error creating request: %v", err)
	}

	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("error sending email: %v", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("error reading response body: %v", err)
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("resend API error: %s", string(respBody))
	}

	log.Printf("Sent %q to %s", subject, to)
	return nil
}

// Email sending methods
func (s *Service) SendRenewalReminder(ctx context.Context, email, name, businessName string, endsAt time.Time, daysLeft int) error {
	data := RenewalReminderData{
		Name:         name,
		BusinessName: businessName,
		DaysLeft:     daysLeft,
		ExpiryDate:   endsAt,
	}
	subject := fmt.Sprintf("Premium Listing Renewal Reminder - %s", businessName)
	return s.sendTemplateEmail(ctx, email, subject, "renewal_reminder.html", data)
}

func (s *Service) SendPaymentFailure(ctx context.Context, email, name, businessName, reason string) error {
	data := PaymentFailureData{
		Name:          name,
		BusinessName:  businessName,
		FailureReason: reason,
	}
	subject := fmt.Sprintf("Payment Failed - Premium Listing for %s", businessName)
	return s.sendTemplateEmail(ctx, email, subject, "payment_failure.html", data)
}

func (s *Service) SendSubscriptionCancelled(ctx context.Context, email, name, businessName string, endsAt time.Time) error {
	data := SubscriptionCancelledData{
		Name:         name,
		BusinessName: businessName,
		ExpiresAt:    endsAt,
	}
	subject := fmt.Sprintf("Subscription Cancelled - Premium Listing for %s", businessName)
	return s.sendTemplateEmail(ctx, email, subject, "subscription_cancelled.html", data)
}
