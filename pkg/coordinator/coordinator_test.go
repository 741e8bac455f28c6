package coordinator

import (
	"context"
	"os"
	"regexp"
	"testing"
	"time"

	"github.com/vanguard-health/pulse/pkg/common/logger"
	"github.com/vanguard-health/pulse/pkg/common/models"
	"github.com/vanguard-health/pulse/pkg/documents"
	"github.com/vanguard-health/pulse/pkg/otp"
	"github.com/vanguard-health/pulse/pkg/roster"
	"github.com/vanguard-health/pulse/pkg/vault"
)

func TestMain(m *testing.M) {
	logger.Init()
	os.Exit(m.Run())
}

type stubInsighter struct {
	insight models.AIInsight
	calls   int
	block   chan struct{}
}

func (s *stubInsighter) RequestInsight(_ context.Context, _ models.Patient, _ string) models.AIInsight {
	s.calls++
	if s.block != nil {
		<-s.block
	}
	return s.insight
}

type testEnv struct {
	coord   *Coordinator
	records *roster.MemoryRecordStore
	channel *captureChannel
	stub    *stubInsighter
}

type captureChannel struct{ lastCode string }

func (c *captureChannel) DeliverCode(_ context.Context, _ string, code string) error {
	c.lastCode = code
	return nil
}

func seedRoster() []models.Patient {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	return []models.Patient{
		{ID: "P-9901", Name: "Robert Chen", Urgency: models.UrgencyCritical, Vitals: []models.VitalSign{roster.RestingVitals(now)}},
		{ID: "P-9902", Name: "Sarah Miller", Urgency: models.UrgencyUrgent, Vitals: []models.VitalSign{roster.RestingVitals(now)}},
		{ID: "P-9903", Name: "James Wilson", Urgency: models.UrgencyMonitor, Vitals: []models.VitalSign{roster.RestingVitals(now)}},
	}
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	records := roster.NewMemoryRecordStore()
	store := roster.NewStore(records)
	channel := &captureChannel{}
	gate := vault.NewGate(otp.NewService(), channel, "dr.vance", 30)
	stub := &stubInsighter{insight: models.AIInsight{
		Summary:          "Stable presentation.",
		KeyRisks:         []string{"None acute"},
		SuggestedActions: []string{"Routine observation"},
		UrgencyScore:     25,
		Reasoning:        "Vitals within range.",
	}}
	ids := roster.NewRandomIDSource()
	importer := documents.NewImporter(ids, "Dr. Vance")

	coord := New(store, gate, stub, importer, ids)
	coord.Hydrate(context.Background(), seedRoster())

	return &testEnv{coord: coord, records: records, channel: channel, stub: stub}
}

func (e *testEnv) unlockVault(t *testing.T) {
	t.Helper()
	if _, err := e.coord.RequestVaultAccess(context.Background()); err != nil {
		t.Fatalf("request vault access: %v", err)
	}
	if !e.coord.SubmitAccessCode(e.channel.lastCode) {
		t.Fatal("expected delivered code to unlock")
	}
}

func TestFilterPatientsBySearchAndUrgency(t *testing.T) {
	env := newTestEnv(t)
	env.coord.SetSearch("chen")

	got := env.coord.FilteredPatients()
	if len(got) != 1 || got[0].Name != "Robert Chen" {
		t.Fatalf("search=chen should match only the Chen record, got %+v", got)
	}

	env.coord.SetSearch("")
	if err := env.coord.SetFilter("URGENT"); err != nil {
		t.Fatalf("set filter: %v", err)
	}
	got = env.coord.FilteredPatients()
	if len(got) != 1 || got[0].ID != "P-9902" {
		t.Fatalf("filter=URGENT should match only Miller, got %+v", got)
	}

	if err := env.coord.SetFilter("SEVERE"); err == nil {
		t.Fatal("unknown urgency filter must be rejected")
	}
}

func TestFilterMatchesOnID(t *testing.T) {
	env := newTestEnv(t)
	env.coord.SetSearch("p-9903")

	got := env.coord.FilteredPatients()
	if len(got) != 1 || got[0].ID != "P-9903" {
		t.Fatalf("id search should be case-insensitive, got %+v", got)
	}
}

func TestSelectPatientRevokesUnlock(t *testing.T) {
	env := newTestEnv(t)
	if _, err := env.coord.SelectPatient("P-9901"); err != nil {
		t.Fatalf("select: %v", err)
	}
	env.unlockVault(t)

	if _, err := env.coord.SelectPatient("P-9902"); err != nil {
		t.Fatalf("select: %v", err)
	}

	session := env.coord.Snapshot()
	if session.VaultState != vault.StateLocked {
		t.Fatalf("patient switch must lock the vault, got %s", session.VaultState)
	}
	if session.CurrentView != ViewDashboard {
		t.Fatalf("patient switch must return to dashboard, got %s", session.CurrentView)
	}
}

func TestSelectUnknownPatient(t *testing.T) {
	env := newTestEnv(t)
	if _, err := env.coord.SelectPatient("P-0000"); err != ErrPatientNotFound {
		t.Fatalf("expected ErrPatientNotFound, got %v", err)
	}
}

func TestOnboardCreatesBaselinePatient(t *testing.T) {
	env := newTestEnv(t)

	patient, err := env.coord.Onboard(context.Background(), OnboardRequest{
		Name:        "Jane Doe",
		Age:         30,
		Gender:      "Female",
		Medications: "Ibuprofen, , Salbutamol",
	})
	if err != nil {
		t.Fatalf("onboard: %v", err)
	}

	if !regexp.MustCompile(`^P-\d{4}$`).MatchString(patient.ID) {
		t.Fatalf("generated id %q does not match P-####", patient.ID)
	}
	if len(patient.Vitals) != 1 {
		t.Fatalf("expected one baseline vital, got %d", len(patient.Vitals))
	}
	if patient.Urgency != models.UrgencyStable {
		t.Fatalf("urgency should default to STABLE, got %s", patient.Urgency)
	}
	if len(patient.Alerts) != 0 || len(patient.Documents) != 0 {
		t.Fatal("new patient must start with empty alerts and documents")
	}
	if len(patient.Medications) != 2 {
		t.Fatalf("expected trimmed medication list, got %v", patient.Medications)
	}
	if patient.Location != "ER Waiting" {
		t.Fatalf("expected default location, got %q", patient.Location)
	}

	// Newcomer is selected and first in the roster view.
	session := env.coord.Snapshot()
	if session.SelectedPatientID != patient.ID {
		t.Fatalf("expected newcomer selected, got %q", session.SelectedPatientID)
	}
	view := env.coord.FilteredPatients()
	if view[0].ID != patient.ID {
		t.Fatalf("expected newcomer first, got %s", view[0].ID)
	}
}

func TestOnboardValidation(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.coord.Onboard(context.Background(), OnboardRequest{Age: 30})
	if !IsValidationError(err) {
		t.Fatalf("missing name should be a validation error, got %v", err)
	}

	_, err = env.coord.Onboard(context.Background(), OnboardRequest{Name: "Jane Doe"})
	if !IsValidationError(err) {
		t.Fatalf("missing age should be a validation error, got %v", err)
	}
}

func TestUploadRequiresUnlockedVault(t *testing.T) {
	env := newTestEnv(t)
	env.coord.SelectPatient("P-9901")

	up := documents.Upload{FileName: "scan.png", MIMEType: "image/png", SizeBytes: 1024, Category: "Radiology"}
	if _, err := env.coord.UploadDocument(context.Background(), up); err != ErrVaultLocked {
		t.Fatalf("expected ErrVaultLocked, got %v", err)
	}

	env.unlockVault(t)
	doc, err := env.coord.UploadDocument(context.Background(), up)
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if doc.Type != models.DocumentImage || doc.Category != models.CategoryRadiology {
		t.Fatalf("unexpected classification %+v", doc)
	}

	docs, err := env.coord.Documents("Radiology")
	if err != nil {
		t.Fatalf("documents: %v", err)
	}
	if len(docs) != 1 || docs[0].ID != doc.ID {
		t.Fatalf("expected uploaded document listed, got %+v", docs)
	}
}

func TestDocumentsCategoryFilter(t *testing.T) {
	env := newTestEnv(t)
	env.coord.SelectPatient("P-9901")
	env.unlockVault(t)

	uploads := []documents.Upload{
		{FileName: "xray.png", MIMEType: "image/png", Category: "Radiology"},
		{FileName: "cbc.pdf", MIMEType: "application/pdf", Category: "Lab Result"},
	}
	for _, up := range uploads {
		if _, err := env.coord.UploadDocument(context.Background(), up); err != nil {
			t.Fatalf("upload %s: %v", up.FileName, err)
		}
	}

	all, _ := env.coord.Documents("")
	if len(all) != 2 {
		t.Fatalf("expected both documents, got %d", len(all))
	}
	labs, _ := env.coord.Documents("Lab Result")
	if len(labs) != 1 || labs[0].Name != "cbc.pdf" {
		t.Fatalf("expected only the lab result, got %+v", labs)
	}
}

func TestRunAnalysisMergesInsight(t *testing.T) {
	env := newTestEnv(t)
	env.coord.SelectPatient("P-9901")

	patient, err := env.coord.RunAnalysis(context.Background(), "post-op check")
	if err != nil {
		t.Fatalf("analysis: %v", err)
	}
	if patient.AIInsight == nil || patient.AIInsight.Summary != "Stable presentation." {
		t.Fatalf("expected merged insight, got %+v", patient.AIInsight)
	}

	// The insight is persisted, not just merged in memory.
	stored, _ := env.coord.Patient("P-9901")
	if stored.AIInsight == nil || stored.AIInsight.UrgencyScore != 25 {
		t.Fatalf("expected insight saved to store, got %+v", stored.AIInsight)
	}
}

func TestRunAnalysisBusyFlag(t *testing.T) {
	env := newTestEnv(t)
	env.coord.SelectPatient("P-9901")
	env.stub.block = make(chan struct{})

	done := make(chan error, 1)
	go func() {
		_, err := env.coord.RunAnalysis(context.Background(), "")
		done <- err
	}()

	// Wait for the first analysis to take the busy flag.
	deadline := time.After(2 * time.Second)
	for {
		if env.coord.Snapshot().Analyzing {
			break
		}
		select {
		case <-deadline:
			t.Fatal("first analysis never started")
		default:
			time.Sleep(time.Millisecond)
		}
	}

	if _, err := env.coord.RunAnalysis(context.Background(), ""); err != ErrAnalysisInProgress {
		t.Fatalf("expected ErrAnalysisInProgress, got %v", err)
	}

	close(env.stub.block)
	if err := <-done; err != nil {
		t.Fatalf("first analysis failed: %v", err)
	}
	if env.coord.Snapshot().Analyzing {
		t.Fatal("busy flag must clear after completion")
	}
	if env.stub.calls != 1 {
		t.Fatalf("expected exactly one insight request, got %d", env.stub.calls)
	}
}

func TestRunAnalysisRequiresSelection(t *testing.T) {
	env := newTestEnv(t)
	if _, err := env.coord.RunAnalysis(context.Background(), ""); err != ErrNoPatientSelected {
		t.Fatalf("expected ErrNoPatientSelected, got %v", err)
	}
}
