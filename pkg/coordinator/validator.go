package coordinator

import (
	"errors"
	"strings"
	"time"

	"github.com/vanguard-health/pulse/pkg/common/models"
	"github.com/vanguard-health/pulse/pkg/documents"
	"github.com/vanguard-health/pulse/pkg/roster"
)

// ValidationError marks malformed user input rejected at the boundary,
// before it reaches the store.
type ValidationError struct {
	reason error
}

func (e ValidationError) Error() string {
	return e.reason.Error()
}

func (e ValidationError) Unwrap() error {
	return e.reason
}

func IsValidationError(err error) bool {
	var ve ValidationError
	return errors.As(err, &ve)
}

// OnboardRequest is the patient-intake input. Medications and allergies
// arrive as comma-separated lists, matching the intake form.
type OnboardRequest struct {
	Name            string `json:"name"`
	Age             int    `json:"age"`
	Gender          string `json:"gender"`
	Location        string `json:"location"`
	AdmissionReason string `json:"admissionReason"`
	Urgency         string `json:"urgency"`
	History         string `json:"history"`
	Medications     string `json:"medications"`
	Allergies       string `json:"allergies"`
}

func (r OnboardRequest) build(ids roster.IDSource, now time.Time) (models.Patient, error) {
	name := strings.TrimSpace(r.Name)
	if name == "" {
		return models.Patient{}, ValidationError{reason: errors.New("name is required")}
	}
	if r.Age <= 0 {
		return models.Patient{}, ValidationError{reason: errors.New("age must be positive")}
	}

	urgency := models.UrgencyLevel(r.Urgency)
	if !urgency.Valid() {
		urgency = models.UrgencyStable
	}

	location := strings.TrimSpace(r.Location)
	if location == "" {
		location = "ER Waiting"
	}

	return models.Patient{
		ID:              ids.PatientID(),
		Name:            name,
		Age:             r.Age,
		Gender:          r.Gender,
		BloodType:       "O+",
		Location:        location,
		AdmissionReason: r.AdmissionReason,
		Urgency:         urgency,
		Vitals:          []models.VitalSign{roster.RestingVitals(now)},
		Medications:     splitList(r.Medications),
		Allergies:       splitList(r.Allergies),
		History:         r.History,
		Alerts:          []models.ClinicalAlert{},
		Documents:       []models.ClinicalDocument{},
	}, nil
}

func validateUpload(up documents.Upload) error {
	if strings.TrimSpace(up.FileName) == "" {
		return ValidationError{reason: errors.New("file name is required")}
	}
	if up.SizeBytes < 0 {
		return ValidationError{reason: errors.New("file size must not be negative")}
	}
	return nil
}

func splitList(raw string) []string {
	out := []string{}
	for _, item := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
