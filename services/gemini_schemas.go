package services

import "google.golang.org/genai"

// domainSchema constrains classification to one or more labels from
// DomainLabels.
func domainSchema() *genai.Schema {
	return &genai.Schema{
		Type:        genai.TypeArray,
		Description: "The legal domains the query belongs to, most relevant first.",
		Items: &genai.Schema{
			Type: genai.TypeString,
			Enum: DomainLabels,
		},
	}
}
