package parser

import (
	"errors"
	"strings"
	"testing"

	"github.com/aluiziolira/maps-harvester/config"
	"github.com/aluiziolira/maps-harvester/models"
)

func TestValidateRecord(t *testing.T) {
	tests := []struct {
		name    string
		record  *models.BusinessRecord
		wantErr bool
	}{
		{
			name: "valid record",
			record: &models.BusinessRecord{
				Name:    "Cafe Central",
				Address: "Herrengasse 14",
				Website: models.ListedWebsite("cafecentral.wien"),
				Socials: models.AllNotFound(),
			},
			wantErr: false,
		},
		{
			name:    "nil record",
			record:  nil,
			wantErr: true,
		},
		{
			name: "missing name",
			record: &models.BusinessRecord{
				Address: "Herrengasse 14",
				Socials: models.AllNotFound(),
			},
			wantErr: true,
		},
		{
			name: "unchecked social",
			record: &models.BusinessRecord{
				Name:    "Cafe Central",
				Socials: models.Socials{Facebook: "https://facebook.com/cafe"},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRecord(tt.record)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateRecord() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestNormalizeField(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "icon glyph", input: "\ue0c8 Herrengasse 14", expected: "Herrengasse 14"},
		{name: "newlines", input: "  Herrengasse 14\n1010 Wien  ", expected: "Herrengasse 14 1010 Wien"},
		{name: "already clean", input: "+43 1 5333764", expected: "+43 1 5333764"},
		{name: "empty string", input: "", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeField(tt.input); got != tt.expected {
				t.Errorf("NormalizeField(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestNormalizeEmails(t *testing.T) {
	got := NormalizeEmails([]string{"Info@Cafe.at ", "info@cafe.at", "", "office@cafe.at"})
	want := []string{"Info@Cafe.at", "office@cafe.at"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("NormalizeEmails = %v, want %v", got, want)
	}
	if empty := NormalizeEmails(nil); empty == nil || len(empty) != 0 {
		t.Fatalf("NormalizeEmails(nil) = %#v, want empty non-nil slice", empty)
	}
}

func TestParseQuery(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		term     string
		quantity int
	}{
		{name: "tuple", input: `("coffee shops in Vienna", 10)`, term: "coffee shops in Vienna", quantity: 10},
		{name: "no quantity", input: `("dentists in Lyon")`, term: "dentists in Lyon", quantity: models.Unbounded},
		{name: "plain text", input: "hotels near Lisbon 5", term: "hotels near Lisbon", quantity: 5},
		{name: "first number wins", input: `("gyms", 3) 7`, term: "gyms 7", quantity: 3},
		{name: "digits inside words kept", input: `("restaurants in area51", 4)`, term: "restaurants in area51", quantity: 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := ParseQuery(tt.input)
			if err != nil {
				t.Fatalf("ParseQuery(%q): %v", tt.input, err)
			}
			if q.SearchTerm != tt.term || q.Quantity != tt.quantity {
				t.Fatalf("ParseQuery(%q) = %+v, want term %q quantity %d", tt.input, q, tt.term, tt.quantity)
			}
		})
	}
}

func TestParseQueryRejectsEmptyTerm(t *testing.T) {
	_, err := ParseQuery(`("", 12)`)
	if err == nil || !errors.Is(err, config.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestValidateQuery(t *testing.T) {
	if err := ValidateQuery(models.Query{SearchTerm: "bakeries", Quantity: -1}); !errors.Is(err, config.ErrConfiguration) {
		t.Fatalf("negative quantity should be a configuration error, got %v", err)
	}
	if err := ValidateQuery(models.Query{SearchTerm: "bakeries", Quantity: models.Unbounded}); err != nil {
		t.Fatalf("unbounded query should validate, got %v", err)
	}
}

func TestCleanPaneText(t *testing.T) {
	markup := `<div role="main" aria-label="Cafe Central">
		<h1>Cafe Central</h1>
		<script>var tracking = 1;</script>
		<style>.x{}</style>
		<img src="a.png">
		<div><span>Note:</span> ignore me</div>
		<section><h2>Related Searches:</h2><a>Cafe Sperl</a></section>
		<p>Open until 22:00</p>
	</div>`

	got, err := CleanPaneText(markup)
	if err != nil {
		t.Fatalf("CleanPaneText: %v", err)
	}
	if got != "Cafe Central ignore me Cafe Sperl Open until 22:00" {
		t.Fatalf("CleanPaneText = %q", got)
	}
}
