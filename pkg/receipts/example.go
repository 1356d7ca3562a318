package receipts

// ExampleClaim is the illustrative RF-1 receipt used by the smoke command.
func ExampleClaim() Claim {
	return Claim{
		ClaimText: "Climate change is accelerating due to human activities",
		ClaimLong: "Detailed analysis of climate data shows accelerating warming trends",
		Topics:    []string{"climate", "environment", "science"},
		Sources: []Source{
			{
				Type:  SourceReport,
				Title: "IPCC AR6 Report",
				URL:   "https://www.ipcc.ch/report/ar6/",
			},
		},
		Supporters: []string{"97% of climate scientists"},
		Opponents:  []string{},
		KnowledgeArtifacts: KnowledgeArtifacts{
			CategoryPeople: {
				{
					"name":              "Dr. Michael Mann",
					"bio":               "Climate scientist and author",
					"expertise":         []string{"climatology", "paleoclimatology"},
					"credibility_score": 0.95,
					"sources":           map[string]any{"papers": 200, "citations": 15000},
				},
			},
			CategoryJargon: {
				{
					"term":          "greenhouse effect",
					"definition":    "Process by which radiation from atmosphere warms planet's surface",
					"domain":        "climate science",
					"related_terms": []string{"carbon dioxide", "methane", "warming"},
					"examples":      []string{"CO2 trapping heat", "Venus greenhouse effect"},
				},
			},
			CategoryMentalModels: {
				{
					"name":         "Carbon Cycle",
					"description":  "The movement of carbon through Earth's systems",
					"domain":       "earth science",
					"key_concepts": []string{"carbon sources", "carbon sinks", "atmospheric CO2"},
					"relationships": map[string]any{
						"inputs":  []string{"fossil fuel burning", "deforestation"},
						"outputs": []string{"ocean absorption", "plant photosynthesis"},
					},
				},
			},
		},
	}
}
