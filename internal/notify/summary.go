package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/dzhealth/clinic-assistant/pkg/logging"
)

// AppointmentSummary carries everything needed to write a booking recap email.
type AppointmentSummary struct {
	PatientName  string
	PatientEmail string
	Service      string
	SlotStart    time.Time
	SlotEnd      time.Time
	Practitioner string

	ClinicName     string
	ClinicLocation string
	ClinicPhone    string
	Timezone       string
}

// Service sends appointment summary emails to patients.
type Service struct {
	email  EmailSender
	logger *logging.Logger
}

// NewService creates a notification service.
func NewService(email EmailSender, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{email: email, logger: logger}
}

// SendAppointmentSummary builds and sends the recap email for a booked slot.
// The patient email must already be collected and validated.
func (s *Service) SendAppointmentSummary(ctx context.Context, summary AppointmentSummary) error {
	if summary.PatientEmail == "" {
		return fmt.Errorf("notify: no patient email on file")
	}
	if s.email == nil {
		return fmt.Errorf("notify: email sender not configured")
	}

	msg := BuildSummaryEmail(summary)
	if err := s.email.Send(ctx, msg); err != nil {
		s.logger.Error("failed to send appointment summary", "error", err, "to", summary.PatientEmail)
		return fmt.Errorf("notify: send appointment summary: %w", err)
	}
	s.logger.Info("appointment summary sent", "to", summary.PatientEmail)
	return nil
}

// BuildSummaryEmail renders the French recap email, plain text plus HTML.
func BuildSummaryEmail(s AppointmentSummary) EmailMessage {
	loc := clinicLocation(s.Timezone)
	start := s.SlotStart.In(loc)

	when := frenchDateTime(start)
	if !s.SlotEnd.IsZero() {
		when = fmt.Sprintf("%s à %s", when, s.SlotEnd.In(loc).Format("15:04"))
	}

	name := s.PatientName
	if name == "" {
		name = "cher patient"
	}
	clinicName := s.ClinicName
	if clinicName == "" {
		clinicName = "Clinique Les Oliviers"
	}

	serviceLine := ""
	if s.Service != "" {
		serviceLine = fmt.Sprintf("\nMotif : %s", s.Service)
	}
	practitionerLine := ""
	if s.Practitioner != "" {
		practitionerLine = fmt.Sprintf("\nPraticien : %s", s.Practitioner)
	}
	phoneLine := ""
	if s.ClinicPhone != "" {
		phoneLine = fmt.Sprintf("\nTéléphone : %s", s.ClinicPhone)
	}

	body := fmt.Sprintf(`Bonjour %s,

Voici le récapitulatif de votre rendez-vous :

Date : %s%s%s
Adresse : %s%s

En cas d'empêchement, merci de nous prévenir au moins 24 heures à l'avance.

À très bientôt,
%s`, name, when, serviceLine, practitionerLine, s.ClinicLocation, phoneLine, clinicName)

	html := fmt.Sprintf(`<div style="font-family: sans-serif; max-width: 600px;">
<h2 style="color: #0ea5e9;">Votre rendez-vous est confirmé</h2>
<p>Bonjour <strong>%s</strong>,</p>
<table style="border-collapse: collapse; margin: 20px 0;">
  <tr><td style="padding: 8px; border-bottom: 1px solid #e5e7eb;"><strong>Date :</strong></td><td style="padding: 8px; border-bottom: 1px solid #e5e7eb;">%s</td></tr>
  %s%s<tr><td style="padding: 8px; border-bottom: 1px solid #e5e7eb;"><strong>Adresse :</strong></td><td style="padding: 8px; border-bottom: 1px solid #e5e7eb;">%s</td></tr>
  %s
</table>
<p style="background: #f0f9ff; padding: 12px; border-radius: 8px; border-left: 4px solid #0ea5e9;">
  En cas d'empêchement, merci de nous prévenir au moins 24 heures à l'avance.
</p>
<p style="color: #6b7280; font-size: 12px; margin-top: 20px;">%s</p>
</div>`,
		name, when,
		summaryRowHTML("Motif", s.Service), summaryRowHTML("Praticien", s.Practitioner),
		s.ClinicLocation, summaryRowHTML("Téléphone", s.ClinicPhone), clinicName)

	return EmailMessage{
		To:      s.PatientEmail,
		ToName:  s.PatientName,
		Subject: fmt.Sprintf("Récapitulatif de votre rendez-vous du %s", start.Format("02/01/2006")),
		Body:    body,
		HTML:    html,
	}
}

func summaryRowHTML(label, value string) string {
	if value == "" {
		return ""
	}
	return fmt.Sprintf(`<tr><td style="padding: 8px; border-bottom: 1px solid #e5e7eb;"><strong>%s :</strong></td><td style="padding: 8px; border-bottom: 1px solid #e5e7eb;">%s</td></tr>`, label, value)
}

func clinicLocation(tz string) *time.Location {
	if tz == "" {
		tz = "Africa/Algiers"
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return time.UTC
	}
	return loc
}

var frenchDays = [...]string{"dimanche", "lundi", "mardi", "mercredi", "jeudi", "vendredi", "samedi"}

var frenchMonths = [...]string{"janvier", "février", "mars", "avril", "mai", "juin",
	"juillet", "août", "septembre", "octobre", "novembre", "décembre"}

// frenchDateTime renders "lundi 2 mars 2026 à 14:30". Go's Format only knows
// English month and day names.
func frenchDateTime(t time.Time) string {
	day := frenchDays[int(t.Weekday())]
	month := frenchMonths[int(t.Month())-1]
	return fmt.Sprintf("%s %d %s %d à %s", day, t.Day(), month, t.Year(), t.Format("15:04"))
}
