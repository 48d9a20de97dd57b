package agent

import "legal-analysis-platform/internal/llmclient"

// Registry resolves agent ids to fully-wired Agents for the coordinator and
// the HTTP surface's list-available-agents endpoints.
type Registry struct {
	gateway *llmclient.Gateway
	agents  map[string]*Agent
	order   []string
}

// NewRegistry builds a Registry with the six default C9 specialists
// (two experts, four attorneys), using expertTemp/attorneyTemp per §6.4
// ("0.2 for technical experts", "0.3 for coordinator/attorneys").
func NewRegistry(gateway *llmclient.Gateway, expertTemp, attorneyTemp float64) *Registry {
	builders := []PromptBuilder{
		NewMedicalExpert(expertTemp),
		NewWorkplaceSafetyExpert(expertTemp),
		NewLaborAttorney(attorneyTemp),
		NewSocialSecurityAttorney(attorneyTemp),
		NewCivilAttorney(attorneyTemp),
		NewTaxAttorney(attorneyTemp),
	}

	r := &Registry{gateway: gateway, agents: make(map[string]*Agent, len(builders))}
	for _, b := range builders {
		id := b.Identity().ID
		r.agents[id] = New(b, gateway)
		r.order = append(r.order, id)
	}
	return r
}

// Get resolves an agent id to its Agent, or false if unknown.
func (r *Registry) Get(id string) (*Agent, bool) {
	a, ok := r.agents[id]
	return a, ok
}

// Experts returns the identities of every registered expert, in
// registration order.
func (r *Registry) Experts() []Identity {
	return r.byType("expert")
}

// Attorneys returns the identities of every registered attorney, in
// registration order.
func (r *Registry) Attorneys() []Identity {
	return r.byType("attorney")
}

func (r *Registry) byType(typeTag string) []Identity {
	var out []Identity
	for _, id := range r.order {
		identity := r.agents[id].Identity()
		if identity.TypeTag == typeTag {
			out = append(out, identity)
		}
	}
	return out
}

// Known reports whether id names a registered agent, regardless of type.
func (r *Registry) Known(id string) bool {
	_, ok := r.agents[id]
	return ok
}
