package routerconfig

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dshills/intentrouter-go/dag/model"
)

// modelPricing mirrors one entry of a pricing file's default_pricing
// or custom_pricing map.
type modelPricing struct {
	InputPricePer1M  float64 `json:"input_price_per_1m" validate:"gte=0"`
	OutputPricePer1M float64 `json:"output_price_per_1m" validate:"gte=0"`
}

// pricingFile is the pricing file format (spec §6).
type pricingFile struct {
	DefaultPricing map[string]modelPricing `json:"default_pricing"`
	CustomPricing  map[string]modelPricing `json:"custom_pricing"`
	UseDefaults    bool                    `json:"use_defaults"`
}

// LoadPricing reads a pricing file from path and populates a
// model.CostCalculator: custom_pricing entries take priority, and
// default_pricing entries are loaded only when use_defaults is true.
func LoadPricing(path string) (*model.CostCalculator, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("routerconfig: read %s: %w", path, err)
	}

	var pf pricingFile
	if err := json.Unmarshal(data, &pf); err != nil {
		return nil, fmt.Errorf("routerconfig: parse %s: %w", path, err)
	}
	for _, entries := range []map[string]modelPricing{pf.DefaultPricing, pf.CustomPricing} {
		for name, p := range entries {
			if err := validatorInstance().Struct(&p); err != nil {
				return nil, fmt.Errorf("routerconfig: invalid pricing for %s in %s: %w", name, path, err)
			}
		}
	}

	calc := model.NewCostCalculator()
	if pf.UseDefaults {
		for name, p := range pf.DefaultPricing {
			calc.SetPrice(name, p.InputPricePer1M, p.OutputPricePer1M)
		}
	}
	for name, p := range pf.CustomPricing {
		calc.SetPrice(name, p.InputPricePer1M, p.OutputPricePer1M)
	}
	return calc, nil
}
