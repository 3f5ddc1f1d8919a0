package catalog

import (
	"github.com/hashicorp/hcl/v2/hclsimple"
	"github.com/shopspring/decimal"

	"jewelquote/internal/errors"
)

// rateFile is the HCL schema for an admin-maintained rate file.
//
//	metal "18k_yellow_gold" {
//	  price_per_gram = 6000
//	}
//
//	stone "ruby" {
//	  price_per_carat = 8000
//	}
//
//	pricing {
//	  usd_to_inr        = 83
//	  overhead_fraction = 0.25
//	  advance_fraction  = 0.5
//	}
type rateFile struct {
	Metals  []metalBlock  `hcl:"metal,block"`
	Stones  []stoneBlock  `hcl:"stone,block"`
	Pricing *pricingBlock `hcl:"pricing,block"`
}

type metalBlock struct {
	Type         string  `hcl:"type,label"`
	PricePerGram float64 `hcl:"price_per_gram"`
}

type stoneBlock struct {
	Type          string  `hcl:"type,label"`
	PricePerCarat float64 `hcl:"price_per_carat"`
}

type pricingBlock struct {
	USDToINR         float64 `hcl:"usd_to_inr"`
	OverheadFraction float64 `hcl:"overhead_fraction"`
	AdvanceFraction  float64 `hcl:"advance_fraction"`
}

// LoadRateFile parses an HCL rate file into an immutable catalog snapshot.
func LoadRateFile(path string) (*Catalog, error) {
	var file rateFile
	if err := hclsimple.DecodeFile(path, nil, &file); err != nil {
		return nil, errors.Wrap(errors.TypeConfig, "parse rate file", err)
	}
	if file.Pricing == nil {
		return nil, errors.New(errors.TypeConfig, "rate file is missing the pricing block")
	}

	b := NewBuilder(SourceRateFile).
		Conversion(decimal.NewFromFloat(file.Pricing.USDToINR)).
		OverheadFraction(decimal.NewFromFloat(file.Pricing.OverheadFraction)).
		AdvanceFraction(decimal.NewFromFloat(file.Pricing.AdvanceFraction))

	for _, m := range file.Metals {
		b.MetalRate(m.Type, decimal.NewFromFloat(m.PricePerGram))
	}
	for _, s := range file.Stones {
		b.StoneRate(s.Type, decimal.NewFromFloat(s.PricePerCarat))
	}

	return b.Build()
}
