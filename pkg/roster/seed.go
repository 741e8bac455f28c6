package roster

import (
	"fmt"
	"math/rand"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/vanguard-health/pulse/pkg/common/models"
)

// MockRoster returns the built-in demo census: ten minute-spaced telemetry
// readings per patient, jittered around each patient's clinical baseline.
func MockRoster(now time.Time) []models.Patient {
	return []models.Patient{
		{
			ID:              "P-9901",
			Name:            "Robert Chen",
			Age:             62,
			Gender:          "Male",
			BloodType:       "O+",
			Location:        "ER Bay 4",
			AdmissionReason: "Acute Chest Pain, Shortness of Breath",
			Urgency:         models.UrgencyCritical,
			Vitals:          vitalsSeries(now, 110, 20, 155, 10, 95, 5, 88, 5, 24, 4, 98.6),
			Medications:     []string{"Lisinopril", "Metformin", "Warfarin"},
			Allergies:       []string{"Penicillin", "Latex"},
			History:         "Type 2 Diabetes, Hypertension, Previous MI in 2018.",
			Alerts: []models.ClinicalAlert{
				{
					ID:        "A1",
					Type:      models.AlertAbnormalVital,
					Severity:  models.SeverityHigh,
					Message:   "SpO2 dropped below 90% persistent",
					Timestamp: now,
				},
				{
					ID:        "A2",
					Type:      models.AlertContraindication,
					Severity:  models.SeverityHigh,
					Message:   "Potential interaction: Patient is on Warfarin. Careful with NSAIDs.",
					Timestamp: now,
				},
			},
			Documents: []models.ClinicalDocument{},
		},
		{
			ID:              "P-9902",
			Name:            "Sarah Miller",
			Age:             28,
			Gender:          "Female",
			BloodType:       "A-",
			Location:        "ER Bay 7",
			AdmissionReason: "Suspected Appendicitis",
			Urgency:         models.UrgencyUrgent,
			Vitals:          vitalsSeries(now, 85, 15, 118, 10, 76, 5, 98, 2, 16, 4, 101.2),
			Medications:     []string{},
			Allergies:       []string{"Sulfa drugs"},
			History:         "Asthma (managed with inhaler).",
			Alerts: []models.ClinicalAlert{
				{
					ID:        "A3",
					Type:      models.AlertLabCritical,
					Severity:  models.SeverityMedium,
					Message:   "WBC count elevated at 14.5k",
					Timestamp: now,
				},
			},
			Documents: []models.ClinicalDocument{},
		},
		{
			ID:              "P-9903",
			Name:            "James Wilson",
			Age:             45,
			Gender:          "Male",
			BloodType:       "B+",
			Location:        "Triage Room 2",
			AdmissionReason: "Dislocated Shoulder",
			Urgency:         models.UrgencyMonitor,
			Vitals:          vitalsSeries(now, 72, 10, 122, 10, 80, 5, 99, 1, 14, 2, 98.4),
			Medications:     []string{},
			Allergies:       []string{},
			History:         "None significant.",
			Alerts:          []models.ClinicalAlert{},
			Documents:       []models.ClinicalDocument{},
		},
	}
}

func vitalsSeries(now time.Time, hr, hrJ, sys, sysJ, dia, diaJ, spo2, spo2J, rr, rrJ int, temp float64) []models.VitalSign {
	series := make([]models.VitalSign, 0, 10)
	for i := 0; i < 10; i++ {
		series = append(series, models.VitalSign{
			Timestamp:        now.Add(-time.Duration(9-i) * time.Minute),
			HeartRate:        hr + rand.Intn(hrJ),
			SystolicBP:       sys + rand.Intn(sysJ),
			DiastolicBP:      dia + rand.Intn(diaJ),
			OxygenSaturation: spo2 + rand.Intn(spo2J+1),
			RespiratoryRate:  rr + rand.Intn(rrJ),
			Temperature:      temp,
		})
	}
	return series
}

type seedVital struct {
	HeartRate        int     `yaml:"heart_rate"`
	SystolicBP       int     `yaml:"systolic_bp"`
	DiastolicBP      int     `yaml:"diastolic_bp"`
	OxygenSaturation int     `yaml:"oxygen_saturation"`
	RespiratoryRate  int     `yaml:"respiratory_rate"`
	Temperature      float64 `yaml:"temperature"`
}

type seedPatient struct {
	ID              string    `yaml:"id"`
	Name            string    `yaml:"name"`
	Age             int       `yaml:"age"`
	Gender          string    `yaml:"gender"`
	BloodType       string    `yaml:"blood_type"`
	Location        string    `yaml:"location"`
	AdmissionReason string    `yaml:"admission_reason"`
	Urgency         string    `yaml:"urgency"`
	Medications     []string  `yaml:"medications"`
	Allergies       []string  `yaml:"allergies"`
	History         string    `yaml:"history"`
	Vitals          seedVital `yaml:"baseline_vitals"`
}

type seedFile struct {
	Patients []seedPatient `yaml:"patients"`
}

// LoadSeedFile reads a YAML roster for deployments that ship their own demo
// census. Patients without baseline vitals get the standard resting reading
// so the non-empty-vitals invariant holds from creation.
func LoadSeedFile(path string, now time.Time) ([]models.Patient, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading seed file: %w", err)
	}

	var file seedFile
	if err := yaml.Unmarshal(content, &file); err != nil {
		return nil, fmt.Errorf("parsing seed file: %w", err)
	}

	patients := make([]models.Patient, 0, len(file.Patients))
	for i, sp := range file.Patients {
		if sp.ID == "" || sp.Name == "" {
			return nil, fmt.Errorf("seed patient %d: id and name are required", i)
		}

		urgency := models.UrgencyLevel(sp.Urgency)
		if !urgency.Valid() {
			urgency = models.UrgencyStable
		}

		baseline := models.VitalSign{
			Timestamp:        now,
			HeartRate:        sp.Vitals.HeartRate,
			SystolicBP:       sp.Vitals.SystolicBP,
			DiastolicBP:      sp.Vitals.DiastolicBP,
			OxygenSaturation: sp.Vitals.OxygenSaturation,
			RespiratoryRate:  sp.Vitals.RespiratoryRate,
			Temperature:      sp.Vitals.Temperature,
		}
		if baseline.HeartRate == 0 {
			baseline = RestingVitals(now)
		}

		patients = append(patients, models.Patient{
			ID:              sp.ID,
			Name:            sp.Name,
			Age:             sp.Age,
			Gender:          sp.Gender,
			BloodType:       sp.BloodType,
			Location:        sp.Location,
			AdmissionReason: sp.AdmissionReason,
			Urgency:         urgency,
			Vitals:          []models.VitalSign{baseline},
			Medications:     append([]string{}, sp.Medications...),
			Allergies:       append([]string{}, sp.Allergies...),
			History:         sp.History,
			Alerts:          []models.ClinicalAlert{},
			Documents:       []models.ClinicalDocument{},
		})
	}

	return patients, nil
}

// RestingVitals is the baseline reading recorded for a freshly onboarded
// patient.
func RestingVitals(now time.Time) models.VitalSign {
	return models.VitalSign{
		Timestamp:        now,
		HeartRate:        72,
		SystolicBP:       120,
		DiastolicBP:      80,
		OxygenSaturation: 98,
		RespiratoryRate:  16,
		Temperature:      98.6,
	}
}
