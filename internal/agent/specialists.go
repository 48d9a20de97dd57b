package agent

import (
	"fmt"
	"strings"
)

// attorneyPromptTemplate is the shared base template for every attorney,
// with a placeholder for a specialty-specific section (§4.9).
const attorneyPromptTemplate = `You are analyzing a legal case as a %s.

Question: %s

Relevant context documents:
%s

%s

Respond with your legal opinion, then append a fenced list of every piece
of legislation you cite, in this exact format:
--- CITED LEGISLATION ---
<one citation per line>
--- END CITED LEGISLATION ---`

// expertPromptTemplate is the shared base template for technical experts.
const expertPromptTemplate = `You are a %s reviewing a legal case from a technical standpoint.

Question: %s

Relevant context documents:
%s

Focus areas: %s

Respond with your technical assessment in plain language suitable for a
legal team without specialized training in your field.`

func formatContextDocs(docs []string) string {
	if len(docs) == 0 {
		return "(no supporting documents were found)"
	}
	var b strings.Builder
	for i, d := range docs {
		fmt.Fprintf(&b, "[doc %d] %s\n", i+1, d)
	}
	return b.String()
}

// --- Experts -----------------------------------------------------------

// MedicalExpert assesses medical aspects of a case (injury, disability,
// treatment causation).
type MedicalExpert struct{ temperature float64 }

// NewMedicalExpert builds the medical technical expert.
func NewMedicalExpert(temperature float64) *MedicalExpert {
	return &MedicalExpert{temperature: temperature}
}

func (e *MedicalExpert) Identity() Identity {
	return Identity{
		ID:          "medical_expert",
		Name:        "Medical Expert",
		Description: "A physician specializing in occupational and disability medicine.",
		TypeTag:     "expert",
		Specialty:   "medical",
		Model:       "gpt-4",
		Temperature: e.temperature,
	}
}

func (e *MedicalExpert) BuildPrompt(contextDocs []string, question string, extras map[string]string) string {
	return fmt.Sprintf(expertPromptTemplate, "medical expert", question, formatContextDocs(contextDocs),
		"injury causation, degree of incapacity, treatment adequacy, prognosis")
}

// WorkplaceSafetyExpert assesses occupational safety compliance.
type WorkplaceSafetyExpert struct{ temperature float64 }

// NewWorkplaceSafetyExpert builds the workplace-safety technical expert.
func NewWorkplaceSafetyExpert(temperature float64) *WorkplaceSafetyExpert {
	return &WorkplaceSafetyExpert{temperature: temperature}
}

func (e *WorkplaceSafetyExpert) Identity() Identity {
	return Identity{
		ID:          "workplace_safety_expert",
		Name:        "Workplace Safety Expert",
		Description: "An occupational safety engineer reviewing workplace hazard compliance.",
		TypeTag:     "expert",
		Specialty:   "workplace_safety",
		Model:       "gpt-4",
		Temperature: e.temperature,
	}
}

func (e *WorkplaceSafetyExpert) BuildPrompt(contextDocs []string, question string, extras map[string]string) string {
	return fmt.Sprintf(expertPromptTemplate, "workplace safety expert", question, formatContextDocs(contextDocs),
		"hazard exposure, protective equipment adequacy, employer compliance with safety norms")
}

// --- Attorneys -----------------------------------------------------------

// attorneyBase holds the fields every attorney specialist shares.
type attorneyBase struct {
	id          string
	name        string
	description string
	specialty   string
	legislation []string
	keywords    []string
	temperature float64
}

func (a attorneyBase) identity() Identity {
	return Identity{
		ID:          a.id,
		Name:        a.name,
		Description: a.description,
		TypeTag:     "attorney",
		Specialty:   a.specialty,
		Model:       "gpt-4",
		Temperature: a.temperature,
	}
}

func (a attorneyBase) buildPrompt(contextDocs []string, question string) string {
	section := fmt.Sprintf("Specialty focus: %s.\nPrincipal legislation to consider: %s.\nKeyword triggers observed: %s.",
		a.specialty, strings.Join(a.legislation, "; "), strings.Join(a.keywords, ", "))
	return fmt.Sprintf(attorneyPromptTemplate, a.name, question, formatContextDocs(contextDocs), section)
}

// LaborAttorney specializes in labor law (CLT) matters.
type LaborAttorney struct{ attorneyBase }

// NewLaborAttorney builds the labor-law specialist attorney.
func NewLaborAttorney(temperature float64) *LaborAttorney {
	return &LaborAttorney{attorneyBase{
		id:          "labor_attorney",
		name:        "Labor Law Attorney",
		description: "A labor law attorney specializing in employment disputes.",
		specialty:   "labor_law",
		legislation: []string{"CLT (Decreto-Lei 5.452/1943)"},
		keywords:    []string{"rescisão", "horas extras", "assédio", "estabilidade"},
		temperature: temperature,
	}}
}

func (a *LaborAttorney) Identity() Identity { return a.identity() }
func (a *LaborAttorney) BuildPrompt(contextDocs []string, question string, extras map[string]string) string {
	return a.buildPrompt(contextDocs, question)
}

// SocialSecurityAttorney specializes in social-security benefit disputes.
type SocialSecurityAttorney struct{ attorneyBase }

// NewSocialSecurityAttorney builds the social-security specialist attorney.
func NewSocialSecurityAttorney(temperature float64) *SocialSecurityAttorney {
	return &SocialSecurityAttorney{attorneyBase{
		id:          "social_security_attorney",
		name:        "Social Security Attorney",
		description: "An attorney specializing in INSS benefit claims and appeals.",
		specialty:   "social_security",
		legislation: []string{"Lei 8.213/1991", "Decreto 3.048/1999"},
		keywords:    []string{"auxílio-doença", "aposentadoria por invalidez", "benefício negado"},
		temperature: temperature,
	}}
}

func (a *SocialSecurityAttorney) Identity() Identity { return a.identity() }
func (a *SocialSecurityAttorney) BuildPrompt(contextDocs []string, question string, extras map[string]string) string {
	return a.buildPrompt(contextDocs, question)
}

// CivilAttorney specializes in civil liability and damages.
type CivilAttorney struct{ attorneyBase }

// NewCivilAttorney builds the civil-law specialist attorney.
func NewCivilAttorney(temperature float64) *CivilAttorney {
	return &CivilAttorney{attorneyBase{
		id:          "civil_attorney",
		name:        "Civil Attorney",
		description: "An attorney specializing in civil liability and damages claims.",
		specialty:   "civil_law",
		legislation: []string{"Código Civil (Lei 10.406/2002)"},
		keywords:    []string{"dano moral", "dano material", "responsabilidade civil"},
		temperature: temperature,
	}}
}

func (a *CivilAttorney) Identity() Identity { return a.identity() }
func (a *CivilAttorney) BuildPrompt(contextDocs []string, question string, extras map[string]string) string {
	return a.buildPrompt(contextDocs, question)
}

// TaxAttorney specializes in tax implications of settlements and awards.
type TaxAttorney struct{ attorneyBase }

// NewTaxAttorney builds the tax-law specialist attorney.
func NewTaxAttorney(temperature float64) *TaxAttorney {
	return &TaxAttorney{attorneyBase{
		id:          "tax_attorney",
		name:        "Tax Attorney",
		description: "An attorney specializing in the tax treatment of labor and civil awards.",
		specialty:   "tax_law",
		legislation: []string{"Código Tributário Nacional (Lei 5.172/1966)"},
		keywords:    []string{"imposto de renda", "retenção na fonte", "isenção"},
		temperature: temperature,
	}}
}

func (a *TaxAttorney) Identity() Identity { return a.identity() }
func (a *TaxAttorney) BuildPrompt(contextDocs []string, question string, extras map[string]string) string {
	return a.buildPrompt(contextDocs, question)
}
