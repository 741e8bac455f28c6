package roster

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/vanguard-health/pulse/pkg/common/logger"
	"github.com/vanguard-health/pulse/pkg/common/models"
)

func TestMain(m *testing.M) {
	logger.Init()
	os.Exit(m.Run())
}

func testSeed() []models.Patient {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	return []models.Patient{
		{
			ID:      "P-0001",
			Name:    "Robert Chen",
			Urgency: models.UrgencyCritical,
			Vitals:  []models.VitalSign{RestingVitals(now)},
		},
		{
			ID:      "P-0002",
			Name:    "Sarah Miller",
			Urgency: models.UrgencyUrgent,
			Vitals:  []models.VitalSign{RestingVitals(now)},
		},
	}
}

func persistedSet(t *testing.T, records *MemoryRecordStore) []models.Patient {
	t.Helper()
	payload, found, err := records.Get(context.Background())
	if err != nil || !found {
		t.Fatalf("expected persisted record set, found=%v err=%v", found, err)
	}
	var set []models.Patient
	if err := json.Unmarshal([]byte(payload), &set); err != nil {
		t.Fatalf("persisted payload does not decode: %v", err)
	}
	return set
}

func TestLoadInitializesWithSeed(t *testing.T) {
	records := NewMemoryRecordStore()
	store := NewStore(records)

	got := store.Load(context.Background(), testSeed())
	if len(got) != 2 {
		t.Fatalf("expected 2 seed patients, got %d", len(got))
	}

	// The durable layer must now hold the seed verbatim.
	set := persistedSet(t, records)
	if len(set) != 2 || set[0].ID != "P-0001" {
		t.Fatalf("unexpected persisted seed: %+v", set)
	}
}

func TestLoadPersistedSetShadowsSeed(t *testing.T) {
	records := NewMemoryRecordStore()
	persisted := []models.Patient{{ID: "P-7777", Name: "Persisted Only"}}
	payload, _ := json.Marshal(persisted)
	records.Seed(string(payload))

	store := NewStore(records)
	got := store.Load(context.Background(), testSeed())
	if len(got) != 1 || got[0].ID != "P-7777" {
		t.Fatalf("persisted set should fully shadow seed, got %+v", got)
	}
}

func TestLoadCorruptPayloadFallsBackToSeed(t *testing.T) {
	records := NewMemoryRecordStore()
	records.Seed("{not json")

	store := NewStore(records)
	got := store.Load(context.Background(), testSeed())
	if len(got) != 2 {
		t.Fatalf("expected seed fallback on corrupt payload, got %+v", got)
	}
}

func TestSaveUpsertIsIdempotent(t *testing.T) {
	records := NewMemoryRecordStore()
	store := NewStore(records)
	store.Load(context.Background(), testSeed())

	p, _ := store.Get("P-0001")
	p.Location = "ICU 2"
	if err := store.Save(context.Background(), p); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := store.Save(context.Background(), p); err != nil {
		t.Fatalf("second save: %v", err)
	}

	set := persistedSet(t, records)
	count := 0
	for _, sp := range set {
		if sp.ID == "P-0001" {
			count++
			if sp.Location != "ICU 2" {
				t.Fatalf("expected latest fields persisted, got %q", sp.Location)
			}
		}
	}
	if count != 1 {
		t.Fatalf("expected exactly one entry for P-0001, got %d", count)
	}
}

func TestSaveNewPatientOrdering(t *testing.T) {
	records := NewMemoryRecordStore()
	store := NewStore(records)
	store.Load(context.Background(), testSeed())

	newcomer := models.Patient{ID: "P-0003", Name: "Jane Doe"}
	if err := store.Save(context.Background(), newcomer); err != nil {
		t.Fatalf("save: %v", err)
	}

	// Newest-first in the mirror.
	mirror := store.Patients()
	if mirror[0].ID != "P-0003" {
		t.Fatalf("expected newcomer first in mirror, got %s", mirror[0].ID)
	}

	// Append-to-end in durable storage.
	set := persistedSet(t, records)
	if set[len(set)-1].ID != "P-0003" {
		t.Fatalf("expected newcomer last in durable set, got %s", set[len(set)-1].ID)
	}
}

func TestSaveRoundTripAcrossRestart(t *testing.T) {
	records := NewMemoryRecordStore()
	store := NewStore(records)
	store.Load(context.Background(), testSeed())

	p, _ := store.Get("P-0002")
	p.AIInsight = &models.AIInsight{Summary: "stable", UrgencyScore: 20}
	if err := store.Save(context.Background(), p); err != nil {
		t.Fatalf("save: %v", err)
	}

	// Simulated restart: a fresh store over the same records.
	restarted := NewStore(records)
	got := restarted.Load(context.Background(), testSeed())
	if len(got) != 2 {
		t.Fatalf("expected 2 patients after restart, got %d", len(got))
	}
	reloaded, ok := restarted.Get("P-0002")
	if !ok || reloaded.AIInsight == nil || reloaded.AIInsight.Summary != "stable" {
		t.Fatalf("expected upserted insight to survive restart, got %+v", reloaded.AIInsight)
	}
}

func TestAppendDocument(t *testing.T) {
	records := NewMemoryRecordStore()
	store := NewStore(records)
	store.Load(context.Background(), testSeed())

	doc := models.ClinicalDocument{ID: "DOC-AAAAAAAAA", Name: "chest-xray.png", Type: models.DocumentImage}
	if err := store.AppendDocument(context.Background(), "P-0001", doc); err != nil {
		t.Fatalf("append: %v", err)
	}

	p, _ := store.Get("P-0001")
	if len(p.Documents) != 1 || p.Documents[0].ID != "DOC-AAAAAAAAA" {
		t.Fatalf("expected document in mirror, got %+v", p.Documents)
	}

	set := persistedSet(t, records)
	if len(set[0].Documents) != 1 {
		t.Fatalf("expected document persisted, got %+v", set[0].Documents)
	}
}

func TestAppendDocumentUnknownPatientIsNoOp(t *testing.T) {
	records := NewMemoryRecordStore()
	store := NewStore(records)
	store.Load(context.Background(), testSeed())
	before := persistedSet(t, records)

	err := store.AppendDocument(context.Background(), "P-9999", models.ClinicalDocument{ID: "DOC-BBBBBBBBB"})
	if err != nil {
		t.Fatalf("unknown patient must not error: %v", err)
	}

	after := persistedSet(t, records)
	if len(after) != len(before) {
		t.Fatal("record set changed for unknown patient")
	}
	for i := range after {
		if len(after[i].Documents) != len(before[i].Documents) {
			t.Fatal("documents changed for unknown patient")
		}
	}
}

func TestAppendDocumentWithoutDurableSetIsNoOp(t *testing.T) {
	records := NewMemoryRecordStore()
	store := NewStore(records)

	err := store.AppendDocument(context.Background(), "P-0001", models.ClinicalDocument{ID: "DOC-CCCCCCCCC"})
	if err != nil {
		t.Fatalf("absent record set must not error: %v", err)
	}
	if _, found, _ := records.Get(context.Background()); found {
		t.Fatal("no-op append must not create a record set")
	}
}

func TestPatientsReturnsCopies(t *testing.T) {
	records := NewMemoryRecordStore()
	store := NewStore(records)
	store.Load(context.Background(), testSeed())

	snapshot := store.Patients()
	snapshot[0].Name = "Mutated"
	snapshot[0].Vitals[0].HeartRate = 999

	p, _ := store.Get("P-0001")
	if p.Name == "Mutated" || p.Vitals[0].HeartRate == 999 {
		t.Fatal("snapshot mutation leaked into the store")
	}
}
