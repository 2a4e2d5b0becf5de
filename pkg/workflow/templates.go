package workflow

// generateComponents returns the fixed {agents, stages, communication
// patterns} template for a workflow type. Comprehensive is the only
// template with a dependency DAG deeper than a linear chain: it fans the
// exploitation, remediation, and policy stages out from a shared assessment
// stage and joins them in a collaborative debate before reporting.
func generateComponents(t Type) (agents []string, stages []Stage, patterns []string) {
	switch t {
	case TypeGuidedAssessment:
		return []string{"guided_assessment"},
			[]Stage{
				{Name: "initialization", Agent: "guided_assessment", Description: "Initialize guided assessment workflow"},
				{Name: "assessment", Agent: "guided_assessment", Description: "Perform guided vulnerability assessment", Dependencies: []string{"initialization"}},
				{Name: "reporting", Agent: "guided_assessment", Description: "Generate assessment report", Dependencies: []string{"assessment"}},
			},
			[]string{"chain_of_thought"}

	case TypeExploitationVerification:
		return []string{"exploitation_verification"},
			[]Stage{
				{Name: "initialization", Agent: "exploitation_verification", Description: "Initialize exploitation verification workflow"},
				{Name: "analysis", Agent: "exploitation_verification", Description: "Analyze vulnerability exploitability", Dependencies: []string{"initialization"}},
				{Name: "reporting", Agent: "exploitation_verification", Description: "Generate exploitation report", Dependencies: []string{"analysis"}},
			},
			[]string{"chain_of_thought"}

	case TypeRemediationPlanning:
		return []string{"remediation_planning"},
			[]Stage{
				{Name: "initialization", Agent: "remediation_planning", Description: "Initialize remediation planning workflow"},
				{Name: "analysis", Agent: "remediation_planning", Description: "Develop remediation strategy", Dependencies: []string{"initialization"}},
				{Name: "planning", Agent: "remediation_planning", Description: "Create detailed remediation plan", Dependencies: []string{"analysis"}},
			},
			[]string{"chain_of_thought"}

	case TypePolicyCompliance:
		return []string{"security_policy"},
			[]Stage{
				{Name: "initialization", Agent: "security_policy", Description: "Initialize policy compliance workflow"},
				{Name: "evaluation", Agent: "security_policy", Description: "Evaluate policy compliance", Dependencies: []string{"initialization"}},
				{Name: "recommendations", Agent: "security_policy", Description: "Generate policy recommendations", Dependencies: []string{"evaluation"}},
			},
			[]string{"chain_of_thought"}

	case TypeComprehensive:
		return []string{"guided_assessment", "exploitation_verification", "remediation_planning", "security_policy"},
			[]Stage{
				{Name: "initialization", Agent: "guided_assessment", Description: "Initialize comprehensive assessment"},
				{Name: "assessment", Agent: "guided_assessment", Description: "Perform guided vulnerability assessment", Dependencies: []string{"initialization"}},
				{Name: "exploitation", Agent: "exploitation_verification", Description: "Verify exploitability of findings", Dependencies: []string{"assessment"}},
				{Name: "remediation", Agent: "remediation_planning", Description: "Develop remediation plans", Dependencies: []string{"assessment", "exploitation"}},
				{Name: "policy", Agent: "security_policy", Description: "Evaluate policy compliance", Dependencies: []string{"assessment"}},
				{
					Name:                 "collaborative_analysis",
					Agents:               []string{"exploitation_verification", "remediation_planning", "security_policy"},
					Description:          "Collaborative analysis of findings",
					CommunicationPattern: "debate",
					Dependencies:         []string{"exploitation", "remediation", "policy"},
				},
				{Name: "reporting", Agent: "guided_assessment", Description: "Generate comprehensive report", Dependencies: []string{"collaborative_analysis"}},
			},
			[]string{"chain_of_thought", "debate", "feedback_loop", "parallel_reasoning"}

	default:
		return []string{"guided_assessment"},
			[]Stage{
				{Name: "default", Agent: "guided_assessment", Description: "Default vulnerability assessment"},
			},
			[]string{"chain_of_thought"}
	}
}
