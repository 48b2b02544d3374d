package importer

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/david8015838-create/nexus-mind/internal/contactservice"
	"github.com/david8015838-create/nexus-mind/internal/models"
	"github.com/david8015838-create/nexus-mind/internal/testutil"
)

const sampleVCF = "BEGIN:VCARD\r\n" +
	"VERSION:4.0\r\n" +
	"FN:Grace Hopper\r\n" +
	"N:Hopper;Grace;;;\r\n" +
	"TEL:+1-555-0100\r\n" +
	"EMAIL:grace@example.com\r\n" +
	"ORG:Navy\r\n" +
	"TITLE:Rear Admiral\r\n" +
	"BDAY:1906-12-09\r\n" +
	"END:VCARD\r\n" +
	"BEGIN:VCARD\r\n" +
	"VERSION:4.0\r\n" +
	"FN:Ada Lovelace\r\n" +
	"N:Lovelace;Ada;;;\r\n" +
	"END:VCARD\r\n"

func testImporter(t *testing.T) (*Importer, *contactservice.Service, string) {
	t.Helper()
	svc := contactservice.NewService(testutil.TestStore(t), nil, nil)
	dir := t.TempDir()
	return New(svc, dir, testutil.SilentLogger()), svc, dir
}

func TestParseVCF(t *testing.T) {
	contacts, err := ParseVCF(strings.NewReader(sampleVCF), testutil.SilentLogger())
	if err != nil {
		t.Fatal(err)
	}
	if len(contacts) != 2 {
		t.Fatalf("got %d contacts, want 2", len(contacts))
	}

	grace := contacts[0]
	if grace.Name != "Grace Hopper" || grace.Phone != "+1-555-0100" || grace.Email != "grace@example.com" {
		t.Fatalf("unexpected contact %+v", grace)
	}
	if grace.Company != "Navy" || grace.Title != "Rear Admiral" {
		t.Fatalf("unexpected contact %+v", grace)
	}
	if grace.Birthday == nil || grace.Birthday.Format("2006-01-02") != "1906-12-09" {
		t.Fatalf("birthday not parsed: %v", grace.Birthday)
	}
	if contacts[1].Name != "Ada Lovelace" {
		t.Fatalf("unexpected second contact %+v", contacts[1])
	}
}

func TestParseVCFNameFallback(t *testing.T) {
	vcf := "BEGIN:VCARD\r\nVERSION:4.0\r\nN:Curie;Marie;;;\r\nEND:VCARD\r\n"
	contacts, err := ParseVCF(strings.NewReader(vcf), testutil.SilentLogger())
	if err != nil {
		t.Fatal(err)
	}
	if len(contacts) != 1 || contacts[0].Name != "Marie Curie" {
		t.Fatalf("unexpected contacts %+v", contacts)
	}
}

func TestParseVCFEmpty(t *testing.T) {
	if _, err := ParseVCF(strings.NewReader(""), testutil.SilentLogger()); err == nil {
		t.Fatal("expected an error for an empty stream")
	}
}

func TestSweepImportsAndRenames(t *testing.T) {
	im, svc, dir := testImporter(t)
	ctx := context.Background()

	path := filepath.Join(dir, "drop.vcf")
	if err := os.WriteFile(path, []byte(sampleVCF), 0o644); err != nil {
		t.Fatal(err)
	}

	im.Sweep(ctx)

	contacts, err := svc.ListContacts(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(contacts) != 2 {
		t.Fatalf("got %d contacts, want 2", len(contacts))
	}

	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatal("original file should have been renamed")
	}
	if _, err := os.Stat(path + ".done"); err != nil {
		t.Fatalf("expected .done file: %v", err)
	}
}

func TestSweepMarksBadFilesAsErr(t *testing.T) {
	im, _, dir := testImporter(t)

	path := filepath.Join(dir, "broken.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	im.Sweep(context.Background())

	if _, err := os.Stat(path + ".err"); err != nil {
		t.Fatalf("expected .err file: %v", err)
	}
}

func TestImportJSONCards(t *testing.T) {
	im, svc, dir := testImporter(t)
	ctx := context.Background()

	body := `[{"name":"Nikola Tesla","email":"nikola@example.com","lastUpdated":"2025-01-01T00:00:00.000Z","importance":80}]`
	path := filepath.Join(dir, "cards.json")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	n, err := im.ImportFile(ctx, path)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("imported %d, want 1", n)
	}

	contacts, err := svc.ListContacts(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(contacts) != 1 || contacts[0].Name != "Nikola Tesla" || contacts[0].Importance != 80 {
		t.Fatalf("unexpected contacts %+v", contacts)
	}
}

func TestImportJSONCardUpdatesExisting(t *testing.T) {
	im, svc, dir := testImporter(t)
	ctx := context.Background()

	existing, err := svc.CreateContact(ctx, models.Contact{Name: "Old Name"})
	if err != nil {
		t.Fatal(err)
	}

	body := `{"id":"` + existing.ID + `","name":"New Name"}`
	path := filepath.Join(dir, "card.json")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := im.ImportFile(ctx, path); err != nil {
		t.Fatal(err)
	}

	got, err := svc.GetContact(ctx, existing.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Name != "New Name" {
		t.Fatalf("contact not updated: %+v", got)
	}
}

func TestExportICS(t *testing.T) {
	bday := time.Date(1906, 12, 9, 0, 0, 0, 0, time.UTC)
	schedules := []models.Schedule{
		{ID: "s1", Title: "Planning call", Type: models.ScheduleMeeting, Date: time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)},
	}
	contacts := []models.Contact{
		{ID: "c1", Name: "Grace Hopper", Birthday: &bday},
		{ID: "c2", Name: "No Birthday"},
	}

	var b strings.Builder
	if err := ExportICS(&b, schedules, contacts, time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)); err != nil {
		t.Fatal(err)
	}
	out := b.String()

	for _, want := range []string{
		"BEGIN:VCALENDAR",
		"SUMMARY:Planning call",
		"s1@nexusmind",
		"SUMMARY:Grace Hopper's birthday",
		"c1-birthday@nexusmind",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("export missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "No Birthday") {
		t.Error("contact without birthday must not be exported")
	}
}

func TestExportICSEmpty(t *testing.T) {
	var b strings.Builder
	if err := ExportICS(&b, nil, nil, time.Now()); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(b.String(), "BEGIN:VCALENDAR") {
		t.Fatalf("stub calendar missing: %q", b.String())
	}
}
