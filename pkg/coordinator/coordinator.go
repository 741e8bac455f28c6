// Package coordinator is the top-level controller of a viewing session. It
// owns the selection, view, search and filter state, and is the sole writer
// into the roster store; every user action flows top-down through it.
package coordinator

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/vanguard-health/pulse/pkg/common/models"
	"github.com/vanguard-health/pulse/pkg/documents"
	"github.com/vanguard-health/pulse/pkg/observability/metrics"
	"github.com/vanguard-health/pulse/pkg/roster"
	"github.com/vanguard-health/pulse/pkg/vault"
)

type View string

const (
	ViewDashboard  View = "DASHBOARD"
	ViewOnboarding View = "ONBOARDING"
	ViewDocuments  View = "DOCUMENTS"
)

func (v View) Valid() bool {
	switch v {
	case ViewDashboard, ViewOnboarding, ViewDocuments:
		return true
	}
	return false
}

// FilterAll disables urgency filtering.
const FilterAll = "ALL"

var (
	ErrNoPatientSelected  = errors.New("no patient selected")
	ErrPatientNotFound    = errors.New("patient not found")
	ErrVaultLocked        = errors.New("vault is locked")
	ErrAnalysisInProgress = errors.New("analysis already in progress")
)

// Insighter is the outbound boundary to the generative model. It never
// returns an error; failures arrive as the deterministic fallback insight.
type Insighter interface {
	RequestInsight(ctx context.Context, patient models.Patient, contextNote string) models.AIInsight
}

// Coordinator serializes all session mutations behind one mutex; the store
// and gate below it are never touched from anywhere else.
type Coordinator struct {
	mu       sync.Mutex
	store    *roster.Store
	gate     *vault.Gate
	insights Insighter
	importer *documents.Importer
	ids      roster.IDSource
	nowFunc  func() time.Time

	selectedID string
	view       View
	search     string
	filter     string
	analyzing  bool
}

func New(store *roster.Store, gate *vault.Gate, insights Insighter, importer *documents.Importer, ids roster.IDSource) *Coordinator {
	return &Coordinator{
		store:    store,
		gate:     gate,
		insights: insights,
		importer: importer,
		ids:      ids,
		nowFunc:  time.Now,
		view:     ViewDashboard,
		filter:   FilterAll,
	}
}

// Hydrate loads the roster from durable storage, seeding it on first run.
func (c *Coordinator) Hydrate(ctx context.Context, seed []models.Patient) []models.Patient {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.store.Load(ctx, seed)
}

// SelectPatient switches the viewing context. Switching always revokes the
// vault unlock and returns to the dashboard.
func (c *Coordinator) SelectPatient(id string) (models.Patient, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	patient, ok := c.store.Get(id)
	if !ok {
		return models.Patient{}, ErrPatientNotFound
	}

	c.selectedID = id
	c.gate.Revoke()
	c.view = ViewDashboard
	return patient, nil
}

// Patient returns a copy of one roster entry by id.
func (c *Coordinator) Patient(id string) (models.Patient, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.store.Get(id)
}

// SelectedPatient returns a copy of the current selection.
func (c *Coordinator) SelectedPatient() (models.Patient, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.selectedPatientLocked()
}

func (c *Coordinator) selectedPatientLocked() (models.Patient, bool) {
	if c.selectedID == "" {
		return models.Patient{}, false
	}
	return c.store.Get(c.selectedID)
}

func (c *Coordinator) SetView(v View) error {
	if !v.Valid() {
		return ValidationError{reason: errors.New("unknown view")}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.view = v
	return nil
}

func (c *Coordinator) SetSearch(q string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.search = q
}

func (c *Coordinator) SetFilter(f string) error {
	if f != FilterAll && !models.UrgencyLevel(f).Valid() {
		return ValidationError{reason: errors.New("unknown urgency filter")}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.filter = f
	return nil
}

// Session is a read-only snapshot of the coordinator's own state.
type Session struct {
	SelectedPatientID string      `json:"selectedPatientId,omitempty"`
	CurrentView       View        `json:"currentView"`
	Search            string      `json:"search,omitempty"`
	Filter            string      `json:"filter"`
	VaultState        vault.State `json:"vaultState"`
	Analyzing         bool        `json:"analyzing"`
}

func (c *Coordinator) Snapshot() Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Session{
		SelectedPatientID: c.selectedID,
		CurrentView:       c.view,
		Search:            c.search,
		Filter:            c.filter,
		VaultState:        c.gate.State(),
		Analyzing:         c.analyzing,
	}
}

// FilteredPatients applies the session's search and urgency filter.
func (c *Coordinator) FilteredPatients() []models.Patient {
	c.mu.Lock()
	defer c.mu.Unlock()
	return FilterPatients(c.store.Patients(), c.search, c.filter)
}

// FilterPatients is the pure roster filter: a patient matches when the
// search text is a case-insensitive substring of its name or id, and the
// urgency filter is ALL or equals the patient's urgency.
func FilterPatients(patients []models.Patient, search, filter string) []models.Patient {
	q := strings.ToLower(search)
	out := make([]models.Patient, 0, len(patients))
	for _, p := range patients {
		matchesSearch := q == "" ||
			strings.Contains(strings.ToLower(p.Name), q) ||
			strings.Contains(strings.ToLower(p.ID), q)
		matchesFilter := filter == "" || filter == FilterAll || string(p.Urgency) == filter
		if matchesSearch && matchesFilter {
			out = append(out, p)
		}
	}
	return out
}

// Onboard validates intake input, creates the patient with a generated id
// and one baseline vital reading, persists it and moves the selection to the
// newcomer.
func (c *Coordinator) Onboard(ctx context.Context, req OnboardRequest) (models.Patient, error) {
	patient, err := req.build(c.ids, c.nowFunc())
	if err != nil {
		return models.Patient{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.store.Save(ctx, patient); err != nil {
		return models.Patient{}, err
	}

	c.selectedID = patient.ID
	c.gate.Revoke()
	c.view = ViewDashboard
	metrics.IncPatientOnboarded()
	return patient, nil
}

// RequestVaultAccess opens an OTP challenge for the gated document view.
func (c *Coordinator) RequestVaultAccess(ctx context.Context) (vault.Challenge, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.selectedID == "" {
		return vault.Challenge{}, ErrNoPatientSelected
	}

	challenge, opened := c.gate.Request(ctx)
	if opened {
		metrics.IncChallengeIssued()
	}
	return challenge, nil
}

// SubmitAccessCode resolves the pending challenge. A wrong code is a
// retryable result, not an error.
func (c *Coordinator) SubmitAccessCode(code string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.gate.Submit(code) {
		metrics.IncUnlock()
		return true
	}
	metrics.IncFailedVerification()
	return false
}

func (c *Coordinator) CancelChallenge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gate.Cancel()
}

// Documents lists the selected patient's documents, optionally narrowed to
// one category. The vault must be unlocked.
func (c *Coordinator) Documents(category string) ([]models.ClinicalDocument, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	patient, ok := c.selectedPatientLocked()
	if !ok {
		return nil, ErrNoPatientSelected
	}
	if !c.gate.Unlocked() {
		return nil, ErrVaultLocked
	}

	if category == "" || category == FilterAll {
		return patient.Documents, nil
	}
	out := make([]models.ClinicalDocument, 0, len(patient.Documents))
	for _, doc := range patient.Documents {
		if string(doc.Category) == category {
			out = append(out, doc)
		}
	}
	return out, nil
}

// UploadDocument imports a confirmed file into the selected patient's
// record. The vault must be unlocked.
func (c *Coordinator) UploadDocument(ctx context.Context, up documents.Upload) (models.ClinicalDocument, error) {
	if err := validateUpload(up); err != nil {
		return models.ClinicalDocument{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.selectedID == "" {
		return models.ClinicalDocument{}, ErrNoPatientSelected
	}
	if !c.gate.Unlocked() {
		return models.ClinicalDocument{}, ErrVaultLocked
	}

	doc := c.importer.Build(up)
	if err := c.store.AppendDocument(ctx, c.selectedID, doc); err != nil {
		return models.ClinicalDocument{}, err
	}

	metrics.IncDocumentUploaded()
	return doc, nil
}

// RunAnalysis requests an AI insight for the selected patient and merges the
// result into the record. A busy flag rejects overlapping triggers; the
// in-flight request itself cannot be aborted.
func (c *Coordinator) RunAnalysis(ctx context.Context, contextNote string) (models.Patient, error) {
	c.mu.Lock()
	if c.analyzing {
		c.mu.Unlock()
		return models.Patient{}, ErrAnalysisInProgress
	}
	patient, ok := c.selectedPatientLocked()
	if !ok {
		c.mu.Unlock()
		return models.Patient{}, ErrNoPatientSelected
	}
	c.analyzing = true
	c.mu.Unlock()

	// The remote round trip runs outside the lock so the session stays
	// interactive; the busy flag above is what prevents a second trigger.
	insight := c.insights.RequestInsight(ctx, patient, contextNote)

	c.mu.Lock()
	defer func() {
		c.analyzing = false
		c.mu.Unlock()
	}()

	patient.AIInsight = &insight
	if err := c.store.Save(ctx, patient); err != nil {
		return models.Patient{}, err
	}

	metrics.IncInsightGenerated()
	return patient, nil
}
