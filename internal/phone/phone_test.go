package phone

import "testing"

func TestNormalizeAcceptedForms(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"national trunk prefix", "0749343535", "+213749343535"},
		{"already canonical", "+213749343535", "+213749343535"},
		{"country code no plus", "213749343535", "+213749343535"},
		{"international 00 prefix", "00213749343535", "+213749343535"},
		{"bare subscriber", "749343535", "+213749343535"},
		{"spaces and dashes", "07 49-34-35 35", "+213749343535"},
		{"dotted national", "05.51.23.45.67", "+213551234567"},
		{"mobilis prefix 6", "0661020304", "+213661020304"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Normalize(tt.in)
			if err != nil {
				t.Fatalf("Normalize(%q) error: %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

// Every accepted spelling of one number must converge on a single
// canonical value.
func TestNormalizeRoundTrip(t *testing.T) {
	forms := []string{
		"0749343535",
		"+213749343535",
		"213749343535",
		"00213749343535",
		"749343535",
		"07 49 34 35 35",
	}
	const want = "+213749343535"

	for _, f := range forms {
		got, err := Normalize(f)
		if err != nil {
			t.Fatalf("Normalize(%q) error: %v", f, err)
		}
		if got != want {
			t.Errorf("Normalize(%q) = %q, want %q", f, got, want)
		}
	}
}

func TestNormalizeRejections(t *testing.T) {
	tests := []struct {
		name   string
		in     string
		reason RejectReason
	}{
		{"too short", "074934", ReasonTooShort},
		{"too long", "074934353599", ReasonTooLong},
		{"landline prefix", "0231234567", ReasonNotMobile},
		{"french number", "+33612345678", ReasonWrongCountry},
		{"empty", "   ", ReasonNotANumber},
		{"letters only", "demain matin", ReasonNotANumber},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Normalize(tt.in)
			if err == nil {
				t.Fatalf("Normalize(%q) succeeded, want rejection %s", tt.in, tt.reason)
			}
			if got := ReasonOf(err); got != tt.reason {
				t.Errorf("ReasonOf = %q, want %q (err=%v)", got, tt.reason, err)
			}
		})
	}
}

func TestIsCanonical(t *testing.T) {
	if !IsCanonical("+213749343535") {
		t.Error("+213749343535 should be canonical")
	}
	if IsCanonical("0749343535") {
		t.Error("national form is not canonical")
	}
	if IsCanonical("+33612345678") {
		t.Error("foreign number is not canonical")
	}
}
