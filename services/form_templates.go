package services

import "strings"

// FormTemplate names the required fields of one assessment template. Submit
// validates against these; autosave does not.
type FormTemplate struct {
	Type     string
	Name     string
	Required []string
}

// defaultTemplates are the review templates in use. The recommendation field
// is required everywhere: it becomes the reviewer decision on the linked
// assignment when the form is submitted.
func defaultTemplates() map[string]FormTemplate {
	templates := []FormTemplate{
		{
			Type: "initial-review",
			Name: "Initial Review Assessment",
			Required: []string{
				"recommendation",
				"scientificSoundness",
				"riskBenefitAssessment",
				"informedConsent",
				"comments",
			},
		},
		{
			Type: "expedited-review",
			Name: "Expedited Review Assessment",
			Required: []string{
				"recommendation",
				"riskBenefitAssessment",
				"comments",
			},
		},
		{
			Type: "informed-consent",
			Name: "Informed Consent Assessment",
			Required: []string{
				"recommendation",
				"consentClarity",
				"languageAppropriate",
			},
		},
	}
	byType := make(map[string]FormTemplate, len(templates))
	for _, t := range templates {
		byType[t.Type] = t
	}
	return byType
}

// MissingFields lists the required fields absent or blank in the form data.
func (t FormTemplate) MissingFields(formData map[string]any) []string {
	var missing []string
	for _, field := range t.Required {
		v, ok := formData[field]
		if !ok || v == nil {
			missing = append(missing, field)
			continue
		}
		if s, isStr := v.(string); isStr && strings.TrimSpace(s) == "" {
			missing = append(missing, field)
		}
	}
	return missing
}
