package metrics

import (
	"fmt"
	"net/http"
	"sync/atomic"
)

var (
	vaultChallengesIssued   atomic.Int64
	vaultUnlocks            atomic.Int64
	vaultFailedVerification atomic.Int64
	documentsUploaded       atomic.Int64
	insightsGenerated       atomic.Int64
	insightFallbacks        atomic.Int64
	patientsOnboarded       atomic.Int64
)

func IncChallengeIssued()    { vaultChallengesIssued.Add(1) }
func IncUnlock()             { vaultUnlocks.Add(1) }
func IncFailedVerification() { vaultFailedVerification.Add(1) }
func IncDocumentUploaded()   { documentsUploaded.Add(1) }
func IncInsightGenerated()   { insightsGenerated.Add(1) }
func IncInsightFallback()    { insightFallbacks.Add(1) }
func IncPatientOnboarded()   { patientsOnboarded.Add(1) }

func WritePrometheus(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")

	writeCounter(w, "pulse_vault_challenges_issued_total", "Number of OTP challenges issued for vault access.", vaultChallengesIssued.Load())
	writeCounter(w, "pulse_vault_unlocks_total", "Number of successful vault unlocks.", vaultUnlocks.Load())
	writeCounter(w, "pulse_vault_failed_verifications_total", "Number of rejected OTP submissions.", vaultFailedVerification.Load())
	writeCounter(w, "pulse_documents_uploaded_total", "Number of clinical documents imported.", documentsUploaded.Load())
	writeCounter(w, "pulse_insights_generated_total", "Number of AI insights merged into patient records.", insightsGenerated.Load())
	writeCounter(w, "pulse_insight_fallbacks_total", "Number of insight requests answered with the deterministic fallback.", insightFallbacks.Load())
	writeCounter(w, "pulse_patients_onboarded_total", "Number of patients onboarded this session.", patientsOnboarded.Load())
}

func writeCounter(w http.ResponseWriter, name, help string, value int64) {
	fmt.Fprintf(w, "# HELP %s %s\n", name, help)
	fmt.Fprintf(w, "# TYPE %s counter\n", name)
	fmt.Fprintf(w, "%s %d\n", name, value)
}

func Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		WritePrometheus(w)
	})
}
