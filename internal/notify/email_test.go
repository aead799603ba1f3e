package notify

import (
	"context"
	"testing"
)

func TestNewSendGridSender_NilWithoutAPIKey(t *testing.T) {
	sender := NewSendGridSender(SendGridConfig{
		APIKey:    "",
		FromEmail: "rdv@cliniquelesoliviers.dz",
	}, nil)

	if sender != nil {
		t.Error("expected nil sender when API key is empty")
	}
}

func TestNewSendGridSender_DefaultFromName(t *testing.T) {
	sender := NewSendGridSender(SendGridConfig{
		APIKey:    "test-key",
		FromEmail: "rdv@cliniquelesoliviers.dz",
		FromName:  "",
	}, nil)

	if sender == nil {
		t.Fatal("expected non-nil sender")
	}
	if sender.fromName != "Clinique Les Oliviers" {
		t.Errorf("expected default from name 'Clinique Les Oliviers', got %q", sender.fromName)
	}
}

func TestSendGridSender_Send_NilClient(t *testing.T) {
	sender := &SendGridSender{client: nil}

	err := sender.Send(context.Background(), EmailMessage{
		To:      "patient@gmail.com",
		Subject: "Récapitulatif",
		Body:    "corps",
	})

	if err == nil {
		t.Error("expected error when client is nil")
	}
}

func TestNewSESSender_NilWithoutClient(t *testing.T) {
	if sender := NewSESSender(nil, SESConfig{FromEmail: "rdv@cliniquelesoliviers.dz"}, nil); sender != nil {
		t.Error("expected nil sender when SES client is nil")
	}
}

func TestStubEmailSender_RecordsMessages(t *testing.T) {
	stub := NewStubEmailSender(nil)

	err := stub.Send(context.Background(), EmailMessage{To: "patient@gmail.com", Subject: "test"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(stub.Sent) != 1 {
		t.Fatalf("expected 1 recorded message, got %d", len(stub.Sent))
	}
	if stub.Sent[0].To != "patient@gmail.com" {
		t.Errorf("unexpected recipient %q", stub.Sent[0].To)
	}
}
