package roster

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/vanguard-health/pulse/pkg/common/logger"
	"github.com/vanguard-health/pulse/pkg/common/models"
)

// Store mirrors the durable record set in memory. Inserts are newest-first
// in the mirror (what the roster view wants) and append-to-end in durable
// storage; durable order is not observable through any read path, so the two
// never disagree on content.
//
// The store is not safe for concurrent use. The coordinator is the sole
// writer and serializes all access.
type Store struct {
	records  RecordStore
	patients []models.Patient
}

func NewStore(records RecordStore) *Store {
	return &Store{records: records}
}

// Load hydrates the mirror. An absent durable record initializes storage
// with seed and returns it; an existing record fully shadows the seed (no
// merge, so user edits are never clobbered by seed updates); a corrupt or
// unreadable record fails closed to the seed without crashing the session.
func (s *Store) Load(ctx context.Context, seed []models.Patient) []models.Patient {
	payload, found, err := s.records.Get(ctx)
	if err != nil {
		logger.Log.WithError(err).Warn("record layer unreadable, serving seed roster")
		s.adopt(seed)
		return s.Patients()
	}

	if !found {
		if err := s.writeSet(ctx, seed); err != nil {
			logger.Log.WithError(err).Warn("failed to initialize record layer with seed roster")
		}
		s.adopt(seed)
		return s.Patients()
	}

	var persisted []models.Patient
	if err := json.Unmarshal([]byte(payload), &persisted); err != nil {
		logger.Log.WithError(err).Warn("corrupt patient record payload, serving seed roster")
		s.adopt(seed)
		return s.Patients()
	}

	s.adopt(persisted)
	return s.Patients()
}

// Save upserts one patient by id: replaced in place when the id exists,
// inserted otherwise. The mirror is updated before the durable write so the
// caller always observes its own mutation; a durable failure is returned for
// a non-fatal notice upstream.
func (s *Store) Save(ctx context.Context, patient models.Patient) error {
	replaced := false
	for i := range s.patients {
		if s.patients[i].ID == patient.ID {
			s.patients[i] = patient.Clone()
			replaced = true
			break
		}
	}
	if !replaced {
		s.patients = append([]models.Patient{patient.Clone()}, s.patients...)
	}

	persisted, found, err := s.readSet(ctx)
	if err != nil {
		return fmt.Errorf("reading record set: %w", err)
	}
	if !found {
		persisted = nil
	}

	upserted := false
	for i := range persisted {
		if persisted[i].ID == patient.ID {
			persisted[i] = patient
			upserted = true
			break
		}
	}
	if !upserted {
		persisted = append(persisted, patient)
	}

	return s.writeSet(ctx, persisted)
}

// AppendDocument appends doc to the patient's document sequence. A missing
// durable record or an unknown patient id is a silent no-op; the persisted
// set is never partially written.
func (s *Store) AppendDocument(ctx context.Context, patientID string, doc models.ClinicalDocument) error {
	persisted, found, err := s.readSet(ctx)
	if err != nil {
		return fmt.Errorf("reading record set: %w", err)
	}
	if !found {
		return nil
	}

	matched := false
	for i := range persisted {
		if persisted[i].ID == patientID {
			persisted[i].Documents = append(persisted[i].Documents, doc)
			matched = true
			break
		}
	}
	if !matched {
		return nil
	}

	for i := range s.patients {
		if s.patients[i].ID == patientID {
			s.patients[i].Documents = append(s.patients[i].Documents, doc)
			break
		}
	}

	return s.writeSet(ctx, persisted)
}

// Patients returns a deep-copied snapshot of the mirror.
func (s *Store) Patients() []models.Patient {
	out := make([]models.Patient, 0, len(s.patients))
	for i := range s.patients {
		out = append(out, s.patients[i].Clone())
	}
	return out
}

// Get returns a copy of one patient by id.
func (s *Store) Get(id string) (models.Patient, bool) {
	for i := range s.patients {
		if s.patients[i].ID == id {
			return s.patients[i].Clone(), true
		}
	}
	return models.Patient{}, false
}

func (s *Store) adopt(patients []models.Patient) {
	s.patients = make([]models.Patient, 0, len(patients))
	for i := range patients {
		s.patients = append(s.patients, patients[i].Clone())
	}
}

func (s *Store) readSet(ctx context.Context) ([]models.Patient, bool, error) {
	payload, found, err := s.records.Get(ctx)
	if err != nil {
		return nil, false, err
	}
	if !found {
		return nil, false, nil
	}
	var persisted []models.Patient
	if err := json.Unmarshal([]byte(payload), &persisted); err != nil {
		return nil, false, fmt.Errorf("decoding record set: %w", err)
	}
	return persisted, true, nil
}

func (s *Store) writeSet(ctx context.Context, patients []models.Patient) error {
	payload, err := json.Marshal(patients)
	if err != nil {
		return fmt.Errorf("encoding record set: %w", err)
	}
	return s.records.Set(ctx, string(payload))
}
