// Package insight is the integration boundary to the generative model that
// produces clinical summaries. Transport and parse failures never escape:
// the caller always receives a renderable insight, falling back to a fixed
// connectivity-error payload.
package insight

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/vanguard-health/pulse/pkg/common/logger"
	"github.com/vanguard-health/pulse/pkg/common/models"
	"github.com/vanguard-health/pulse/pkg/observability/metrics"
)

// FallbackUrgencyScore is the neutral score of the deterministic fallback.
const FallbackUrgencyScore = 50

type Client struct {
	apiKey     string
	baseURL    string
	modelName  string
	httpClient *http.Client
}

func NewClient(apiKey, baseURL, modelName string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		modelName:  modelName,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// RequestInsight serializes the patient record into a prompt, calls the
// model and validates the answer into the insight shape. The returned
// insight is always complete; errors are logged, never propagated.
func (c *Client) RequestInsight(ctx context.Context, patient models.Patient, contextNote string) models.AIInsight {
	if c.apiKey == "" {
		// Offline mode: a canned, clearly-labeled insight so development
		// environments stay fully navigable.
		return offlineInsight(patient)
	}

	raw, err := c.complete(ctx, buildPrompt(patient, contextNote))
	if err != nil {
		logger.Log.WithError(err).WithField("patient_id", patient.ID).Error("insight request failed")
		metrics.IncInsightFallback()
		return FallbackInsight()
	}

	insight, err := parseInsight(raw)
	if err != nil {
		logger.Log.WithError(err).WithField("patient_id", patient.ID).Error("insight response rejected")
		metrics.IncInsightFallback()
		return FallbackInsight()
	}

	return insight
}

func buildPrompt(patient models.Patient, contextNote string) string {
	latest := patient.LatestVitals()

	var b strings.Builder
	b.WriteString("Analyze the following clinical data for an emergency room patient and provide actionable insights.\n\n")
	b.WriteString("PATIENT DATA:\n")
	fmt.Fprintf(&b, "Name: %s\n", patient.Name)
	fmt.Fprintf(&b, "Age: %d\n", patient.Age)
	fmt.Fprintf(&b, "Admission Reason: %s\n", patient.AdmissionReason)
	fmt.Fprintf(&b, "Medical History: %s\n", patient.History)
	fmt.Fprintf(&b, "Medications: %s\n", strings.Join(patient.Medications, ", "))
	fmt.Fprintf(&b, "Allergies: %s\n", strings.Join(patient.Allergies, ", "))
	fmt.Fprintf(&b, "Current Vitals (latest): HR: %d, BP: %d/%d, SpO2: %d%%\n",
		latest.HeartRate, latest.SystolicBP, latest.DiastolicBP, latest.OxygenSaturation)

	if contextNote != "" {
		fmt.Fprintf(&b, "\nADDITIONAL NOTES: %s\n", contextNote)
	}

	b.WriteString("\nProvide a clinical summary, identify key risks (medication conflicts, deteriorating vitals, etc.), and suggest immediate next actions for the clinician.\n")
	b.WriteString(`Respond with a JSON object: {"summary": string, "keyRisks": [string], "suggestedActions": [string], "urgencyScore": integer 0-100, "reasoning": string}.`)
	return b.String()
}

func (c *Client) complete(ctx context.Context, prompt string) (string, error) {
	payload := map[string]interface{}{
		"model": c.modelName,
		"messages": []map[string]string{
			{"role": "system", "content": "You are a senior clinical decision support system. Your goal is to help ER doctors identify critical patterns and risks in fragmented data. Be concise, clinical, and high-priority."},
			{"role": "user", "content": prompt},
		},
		"temperature":     0.3,
		"response_format": map[string]string{"type": "json_object"},
	}

	payloadBytes, _ := json.Marshal(payload)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewBuffer(payloadBytes))
	if err != nil {
		return "", err
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("model endpoint returned %d", resp.StatusCode)
	}

	var result struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return "", err
	}
	if len(result.Choices) == 0 {
		return "", fmt.Errorf("no response from model")
	}

	return result.Choices[0].Message.Content, nil
}

// parseInsight validates the raw model answer against the required shape.
// Every field must be present; the urgency score must sit in [0, 100].
func parseInsight(raw string) (models.AIInsight, error) {
	var fields struct {
		Summary          *string  `json:"summary"`
		KeyRisks         []string `json:"keyRisks"`
		SuggestedActions []string `json:"suggestedActions"`
		UrgencyScore     *int     `json:"urgencyScore"`
		Reasoning        *string  `json:"reasoning"`
	}
	if err := json.Unmarshal([]byte(raw), &fields); err != nil {
		return models.AIInsight{}, fmt.Errorf("decoding insight: %w", err)
	}

	if fields.Summary == nil || *fields.Summary == "" {
		return models.AIInsight{}, fmt.Errorf("insight missing summary")
	}
	if fields.KeyRisks == nil {
		return models.AIInsight{}, fmt.Errorf("insight missing keyRisks")
	}
	if fields.SuggestedActions == nil {
		return models.AIInsight{}, fmt.Errorf("insight missing suggestedActions")
	}
	if fields.UrgencyScore == nil {
		return models.AIInsight{}, fmt.Errorf("insight missing urgencyScore")
	}
	if *fields.UrgencyScore < 0 || *fields.UrgencyScore > 100 {
		return models.AIInsight{}, fmt.Errorf("urgencyScore %d out of range", *fields.UrgencyScore)
	}
	if fields.Reasoning == nil {
		return models.AIInsight{}, fmt.Errorf("insight missing reasoning")
	}

	return models.AIInsight{
		Summary:          *fields.Summary,
		KeyRisks:         fields.KeyRisks,
		SuggestedActions: fields.SuggestedActions,
		UrgencyScore:     *fields.UrgencyScore,
		Reasoning:        *fields.Reasoning,
	}, nil
}

// FallbackInsight is the deterministic payload returned on any transport or
// parse failure.
func FallbackInsight() models.AIInsight {
	return models.AIInsight{
		Summary:          "Error generating AI insights. Please rely on raw clinical data.",
		KeyRisks:         []string{"System connectivity error"},
		SuggestedActions: []string{"Consult attending physician", "Manual chart review"},
		UrgencyScore:     FallbackUrgencyScore,
		Reasoning:        "The AI engine failed to process the request.",
	}
}

func offlineInsight(patient models.Patient) models.AIInsight {
	return models.AIInsight{
		Summary:          fmt.Sprintf("Offline analysis for %s: review admission reason (%s) against latest telemetry.", patient.Name, patient.AdmissionReason),
		KeyRisks:         []string{"AI engine not configured; summary generated offline"},
		SuggestedActions: []string{"Review latest vitals trend", "Confirm medication list"},
		UrgencyScore:     FallbackUrgencyScore,
		Reasoning:        "No model API key is configured; a static offline summary was produced instead.",
	}
}
