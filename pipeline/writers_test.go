package pipeline

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aluiziolira/maps-harvester/models"
)

func sampleRecord() *models.BusinessRecord {
	return &models.BusinessRecord{
		Name:        "Cafe Central",
		Address:     "Herrengasse 14, 1010 Wien",
		Website:     models.ListedWebsite("cafecentral.wien"),
		PhoneNumber: "01 5333763",
		Email:       []string{"office@cafecentral.wien", "events@cafecentral.wien"},
		Socials:     models.Socials{Instagram: "https://instagram.com/cafecentral"}.Finalize(),
		ScrapedAt:   time.Date(2025, 11, 4, 13, 9, 13, 0, time.UTC),
	}
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open csv: %v", err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	return rows
}

func TestCSVWriterWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "businesses.csv")

	writer, err := NewCSVWriter(path)
	if err != nil {
		t.Fatalf("create csv writer: %v", err)
	}
	absent := sampleRecord()
	absent.Name = "Kiosk"
	absent.Website = models.NoWebsite

	if err := writer.Write([]*models.BusinessRecord{sampleRecord(), absent}); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close csv: %v", err)
	}

	rows := readCSV(t, path)
	if len(rows) != 3 {
		t.Fatalf("rows = %d, want 3", len(rows))
	}
	if rows[0][0] != "name" || rows[0][4] != "email" {
		t.Fatalf("unexpected header: %v", rows[0])
	}
	first := rows[1]
	if first[2] != "cafecentral.wien" {
		t.Fatalf("website = %q", first[2])
	}
	if first[4] != "office@cafecentral.wien; events@cafecentral.wien" {
		t.Fatalf("email = %q", first[4])
	}
	if first[5] != "None" || first[6] != "https://instagram.com/cafecentral" {
		t.Fatalf("socials = %v", first[5:9])
	}
	if first[10] != "2025-11-04T13:09:13Z" {
		t.Fatalf("scraped_at = %q", first[10])
	}
	if rows[2][2] != "None" {
		t.Fatalf("absent website = %q, want None", rows[2][2])
	}
}

func TestJSONWriterWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "businesses.jsonl")

	writer, err := NewJSONWriter(path)
	if err != nil {
		t.Fatalf("create json writer: %v", err)
	}
	absent := sampleRecord()
	absent.Website = models.NoWebsite

	if err := writer.Write([]*models.BusinessRecord{sampleRecord(), absent}); err != nil {
		t.Fatalf("write json: %v", err)
	}
	if err := writer.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close json: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open json: %v", err)
	}
	defer f.Close()

	var decoded []models.BusinessRecord
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var r models.BusinessRecord
		if err := json.Unmarshal(scanner.Bytes(), &r); err != nil {
			t.Fatalf("decode line: %v", err)
		}
		decoded = append(decoded, r)
	}
	if len(decoded) != 2 {
		t.Fatalf("lines = %d, want 2", len(decoded))
	}
	if decoded[0].Website != models.ListedWebsite("cafecentral.wien") {
		t.Fatalf("website = %+v", decoded[0].Website)
	}
	if decoded[1].Website != models.NoWebsite {
		t.Fatalf("absent website decoded as %+v", decoded[1].Website)
	}
	if decoded[0].Instagram != "https://instagram.com/cafecentral" || decoded[0].Facebook != models.NotFound {
		t.Fatalf("socials = %+v", decoded[0].Socials)
	}
}

func TestNewWriterDual(t *testing.T) {
	dir := t.TempDir()
	writer, err := NewWriter("dual", filepath.Join(dir, "businesses.csv"))
	if err != nil {
		t.Fatalf("new writer: %v", err)
	}
	if err := writer.Write([]*models.BusinessRecord{sampleRecord()}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := writer.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	for _, name := range []string{"businesses.csv", "businesses.jsonl"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Fatalf("missing %s: %v", name, err)
		}
	}
}

func TestNewWriterRejectsUnknownFormat(t *testing.T) {
	if _, err := NewWriter("xml", filepath.Join(t.TempDir(), "out.xml")); err == nil {
		t.Fatalf("expected error for unknown format")
	}
}
