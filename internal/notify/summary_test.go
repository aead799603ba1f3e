package notify

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSummary() AppointmentSummary {
	return AppointmentSummary{
		PatientName:    "Silas Benali",
		PatientEmail:   "silas@gmail.com",
		Service:        "Consultation dentaire",
		SlotStart:      time.Date(2026, time.March, 2, 13, 30, 0, 0, time.UTC),
		SlotEnd:        time.Date(2026, time.March, 2, 14, 0, 0, 0, time.UTC),
		ClinicName:     "Clinique Les Oliviers",
		ClinicLocation: "12 Rue Didouche Mourad, Alger",
		ClinicPhone:    "+213 21 23 45 67",
		Timezone:       "Africa/Algiers",
	}
}

func TestBuildSummaryEmail(t *testing.T) {
	msg := BuildSummaryEmail(testSummary())

	assert.Equal(t, "silas@gmail.com", msg.To)
	assert.Equal(t, "Silas Benali", msg.ToName)
	assert.Equal(t, "Récapitulatif de votre rendez-vous du 02/03/2026", msg.Subject)

	// Africa/Algiers is UTC+1, so 13:30 UTC renders as 14:30 local.
	assert.Contains(t, msg.Body, "lundi 2 mars 2026 à 14:30")
	assert.Contains(t, msg.Body, "Consultation dentaire")
	assert.Contains(t, msg.Body, "12 Rue Didouche Mourad, Alger")
	assert.Contains(t, msg.HTML, "14:30")
	assert.Contains(t, msg.HTML, "Silas Benali")
}

func TestBuildSummaryEmailOmitsEmptyFields(t *testing.T) {
	s := testSummary()
	s.Service = ""
	s.Practitioner = ""
	msg := BuildSummaryEmail(s)

	assert.NotContains(t, msg.Body, "Motif")
	assert.NotContains(t, msg.Body, "Praticien")
	assert.NotContains(t, msg.HTML, "Motif")
}

func TestBuildSummaryEmailUnknownTimezoneFallsBackToUTC(t *testing.T) {
	s := testSummary()
	s.Timezone = "Not/AZone"
	msg := BuildSummaryEmail(s)
	assert.Contains(t, msg.Body, "13:30")
}

func TestServiceSendAppointmentSummary(t *testing.T) {
	stub := NewStubEmailSender(nil)
	svc := NewService(stub, nil)

	err := svc.SendAppointmentSummary(context.Background(), testSummary())
	require.NoError(t, err)
	require.Len(t, stub.Sent, 1)
	assert.True(t, strings.HasPrefix(stub.Sent[0].Subject, "Récapitulatif"))
}

func TestServiceRequiresEmailOnFile(t *testing.T) {
	svc := NewService(NewStubEmailSender(nil), nil)
	s := testSummary()
	s.PatientEmail = ""

	err := svc.SendAppointmentSummary(context.Background(), s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no patient email")
}
