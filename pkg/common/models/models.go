package models

import "time"

// Clinical triage categories. No numeric ordering is enforced in data;
// display layers decide how to rank them.
type UrgencyLevel string

const (
	UrgencyCritical UrgencyLevel = "CRITICAL"
	UrgencyUrgent   UrgencyLevel = "URGENT"
	UrgencyStable   UrgencyLevel = "STABLE"
	UrgencyMonitor  UrgencyLevel = "MONITOR"
)

func (u UrgencyLevel) Valid() bool {
	switch u {
	case UrgencyCritical, UrgencyUrgent, UrgencyStable, UrgencyMonitor:
		return true
	}
	return false
}

type AlertType string

const (
	AlertContraindication AlertType = "CONTRAINDICATION"
	AlertAbnormalVital    AlertType = "ABNORMAL_VITAL"
	AlertLabCritical      AlertType = "LAB_CRITICAL"
	AlertRiskTrend        AlertType = "RISK_TREND"
)

type AlertSeverity string

const (
	SeverityHigh   AlertSeverity = "HIGH"
	SeverityMedium AlertSeverity = "MEDIUM"
	SeverityLow    AlertSeverity = "LOW"
)

type DocumentType string

const (
	DocumentPDF   DocumentType = "PDF"
	DocumentImage DocumentType = "IMAGE"
	DocumentScan  DocumentType = "SCAN"
	DocumentLab   DocumentType = "LAB"
)

type DocumentCategory string

const (
	CategoryRadiology        DocumentCategory = "Radiology"
	CategoryPathology        DocumentCategory = "Pathology"
	CategoryDischargeSummary DocumentCategory = "Discharge Summary"
	CategoryLabResult        DocumentCategory = "Lab Result"
	CategoryOther            DocumentCategory = "Other"
)

// VitalSign is a timestamped telemetry snapshot. Readings are appended,
// never edited.
type VitalSign struct {
	Timestamp        time.Time `json:"timestamp"`
	HeartRate        int       `json:"heartRate"`
	SystolicBP       int       `json:"systolicBP"`
	DiastolicBP      int       `json:"diastolicBP"`
	OxygenSaturation int       `json:"oxygenSaturation"`
	RespiratoryRate  int       `json:"respiratoryRate"`
	Temperature      float64   `json:"temperature"`
}

// ClinicalAlert originates from telemetry or chart review upstream; this
// service treats alerts as read-only.
type ClinicalAlert struct {
	ID        string        `json:"id"`
	Type      AlertType     `json:"type"`
	Severity  AlertSeverity `json:"severity"`
	Message   string        `json:"message"`
	Timestamp time.Time     `json:"timestamp"`
}

// ClinicalDocument is created once on confirmed upload and never mutated.
// Content holds a data URI or an external reference.
type ClinicalDocument struct {
	ID         string           `json:"id"`
	Name       string           `json:"name"`
	Type       DocumentType     `json:"type"`
	Category   DocumentCategory `json:"category"`
	UploadDate time.Time        `json:"uploadDate"`
	Size       string           `json:"size"`
	Uploader   string           `json:"uploader"`
	Content    string           `json:"content,omitempty"`
}

// AIInsight is a structured clinical summary produced by the insight
// boundary. A new insight replaces any prior one wholesale.
type AIInsight struct {
	Summary          string   `json:"summary"`
	KeyRisks         []string `json:"keyRisks"`
	SuggestedActions []string `json:"suggestedActions"`
	UrgencyScore     int      `json:"urgencyScore"`
	Reasoning        string   `json:"reasoning"`
}

// Patient is the canonical record held by the roster store. The vitals
// sequence is chronological and non-empty once a patient exists.
type Patient struct {
	ID              string             `json:"id"`
	Name            string             `json:"name"`
	Age             int                `json:"age"`
	Gender          string             `json:"gender"`
	BloodType       string             `json:"bloodType"`
	Location        string             `json:"location"`
	AdmissionReason string             `json:"admissionReason"`
	Urgency         UrgencyLevel       `json:"urgency"`
	Vitals          []VitalSign        `json:"vitals"`
	Medications     []string           `json:"medications"`
	Allergies       []string           `json:"allergies"`
	History         string             `json:"history"`
	Alerts          []ClinicalAlert    `json:"alerts"`
	Documents       []ClinicalDocument `json:"documents"`
	AIInsight       *AIInsight         `json:"aiInsight,omitempty"`
}

// LatestVitals returns the most recent reading, or a zero value when the
// record has none (only possible for malformed external payloads).
func (p *Patient) LatestVitals() VitalSign {
	if len(p.Vitals) == 0 {
		return VitalSign{}
	}
	return p.Vitals[len(p.Vitals)-1]
}

// Clone returns a deep copy so callers outside the store never hold a
// mutable alias into the canonical roster.
func (p *Patient) Clone() Patient {
	cp := *p
	cp.Vitals = append([]VitalSign(nil), p.Vitals...)
	cp.Medications = append([]string(nil), p.Medications...)
	cp.Allergies = append([]string(nil), p.Allergies...)
	cp.Alerts = append([]ClinicalAlert(nil), p.Alerts...)
	cp.Documents = append([]ClinicalDocument(nil), p.Documents...)
	if p.AIInsight != nil {
		insight := *p.AIInsight
		insight.KeyRisks = append([]string(nil), p.AIInsight.KeyRisks...)
		insight.SuggestedActions = append([]string(nil), p.AIInsight.SuggestedActions...)
		cp.AIInsight = &insight
	}
	return cp
}
