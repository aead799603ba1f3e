package extract

import (
	"reflect"
	"testing"
)

func TestNames(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{"je suis", "Bonjour, je suis Silas", []string{"Silas"}},
		{"je m'appelle", "je m'appelle Amina Cherif", []string{"Amina Cherif"}},
		{"moi c'est", "moi c'est Karim", []string{"Karim"}},
		{"labeled", "nom: Benali Yacine, tel: 0550112233", []string{"Benali Yacine"}},
		{"quoted", `mon fils s'appelle «Rayan»`, []string{"Rayan"}},
		{"standalone capitalized", "Silas Benali", []string{"Silas Benali"}},
		{"greeting is not a name", "Bonjour docteur", nil},
		{"greeting alone", "Bonjour", nil},
		{"booking jargon", "je suis disponible demain", nil},
		{"interested phrasing", "Je suis intéressé par une consultation", nil},
		{"interested feminine phrasing", "Je suis intéressée par un rendez-vous", nil},
		{"title before name", "je suis monsieur Karim Benali", []string{"Karim Benali"}},
		{"curly apostrophe", "je m’appelle Nora", []string{"Nora"}},
		{"english salutation", "my name is John Smith", []string{"John Smith"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Names(tt.text)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Names(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}

func TestNamesDeduplicates(t *testing.T) {
	got := Names("je suis Silas. Je suis silas, oui.")
	if len(got) != 1 {
		t.Fatalf("expected one candidate, got %v", got)
	}
	if got[0] != "Silas" {
		t.Errorf("candidate = %q, want Silas", got[0])
	}
}

func TestEmails(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{"plain", "mon email est silas@gmail.com merci", []string{"silas@gmail.com"}},
		{"uppercased input", "Silas.Benali@Yahoo.FR", []string{"silas.benali@yahoo.fr"}},
		{"blocked domain", "essai test@example.com", nil},
		{"missing tld", "broken@localhost", nil},
		{"double dots", "a..b@gmail.com", nil},
		{"two addresses", "a@gmail.com ou b@yahoo.fr", []string{"a@gmail.com", "b@yahoo.fr"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Emails(tt.text)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Emails(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}

func TestPhones(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		count int
	}{
		{"national", "rappelez-moi au 0749343535", 1},
		{"international", "c'est le +213 749 34 35 35", 1},
		{"separated", "07 49 34 35 35 svp", 1},
		{"too short run", "j'ai 2 enfants de 5 et 7 ans", 0},
		{"no digits", "pas de téléphone", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Phones(tt.text)
			if len(got) != tt.count {
				t.Errorf("Phones(%q) = %v, want %d candidate(s)", tt.text, got, tt.count)
			}
		})
	}
}

// Extraction must not mutate anything: same input, same output.
func TestExtractionDeterministic(t *testing.T) {
	text := "je suis Silas, email silas@gmail.com, tel 0749343535"
	first := Names(text)
	for i := 0; i < 5; i++ {
		if !reflect.DeepEqual(Names(text), first) {
			t.Fatal("Names is not deterministic")
		}
	}
}
