package api

import (
	"jewelquote/core/quote"
)

// QuoteRequest is the material specification as submitted by a UI
// surface. Weights and carats arrive as form strings; strict coercion
// happens server-side so no NaN ever reaches the engine.
type QuoteRequest struct {
	Metal MetalInput `json:"metal"`
	Gems  []GemInput `json:"gems,omitempty"`
}

// MetalInput is the metal portion of a quote request
type MetalInput struct {
	MetalType   string `json:"metal_type"`
	WeightGrams string `json:"weight_grams"`
}

// GemInput is one gem role bucket of a quote request
type GemInput struct {
	Role        string   `json:"role"`
	StoneTypes  []string `json:"stone_types"`
	TotalCarats string   `json:"total_carats"`
}

// toSpec converts the request into engine inputs
func (r QuoteRequest) toSpec() (quote.MetalSpec, []quote.GemSelection) {
	metal := quote.MetalSpec{
		MetalType:   r.Metal.MetalType,
		WeightGrams: quote.ParseQuantity("weight_grams", r.Metal.WeightGrams),
	}

	gems := make([]quote.GemSelection, 0, len(r.Gems))
	for _, g := range r.Gems {
		gems = append(gems, quote.GemSelection{
			Role:        quote.StoneRole(g.Role),
			StoneTypes:  g.StoneTypes,
			TotalCarats: quote.ParseQuantity("total_carats", g.TotalCarats),
		})
	}
	return metal, gems
}

// validRoles are the accepted gem role buckets
var validRoles = map[string]bool{
	string(quote.RoleMain):      true,
	string(quote.RoleSecondary): true,
	string(quote.RoleOther):     true,
}

func (r QuoteRequest) validate() string {
	if r.Metal.MetalType == "" {
		return "metal.metal_type is required"
	}
	for _, g := range r.Gems {
		if !validRoles[g.Role] {
			return "gems[].role must be main, secondary, or other"
		}
	}
	return ""
}

// SaveProductRequest saves a product record and, when a live quote can
// be computed, persists its totals on the record.
type SaveProductRequest struct {
	Name     string     `json:"name"`
	Category string     `json:"category"`
	Metal    MetalInput `json:"metal"`
	Gems     []GemInput `json:"gems,omitempty"`
}

// RateUpdateRequest sets a single metal or stone rate
type RateUpdateRequest struct {
	Rate string `json:"rate"`
}

// ConfigUpdateRequest sets the conversion and payment constants
type ConfigUpdateRequest struct {
	USDToINR         string `json:"usd_to_inr"`
	OverheadFraction string `json:"overhead_fraction"`
	AdvanceFraction  string `json:"advance_fraction"`
}

// ErrorResponse is the uniform error envelope
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}
