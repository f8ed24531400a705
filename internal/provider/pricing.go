package provider

// Pricing resolves token counts to USD cost through a configurable
// per-provider rate table. Rates are loaded from configuration rather than
// baked into the adapters.
type Pricing struct {
	rates     map[string]float64
	imageFlat float64
}

// NewPricing builds a pricing table. rates maps a provider's ledger key to
// its per-token USD rate; imageFlat is the flat per-image charge.
func NewPricing(rates map[string]float64, imageFlat float64) *Pricing {
	table := make(map[string]float64, len(rates))
	for provider, rate := range rates {
		table[provider] = rate
	}
	return &Pricing{rates: table, imageFlat: imageFlat}
}

// TokenCost returns the cost for totalTokens from the given provider.
// Unknown providers cost nothing.
func (p *Pricing) TokenCost(provider string, totalTokens int) float64 {
	return p.rates[provider] * float64(totalTokens)
}

// ImageCost returns the flat per-image cost.
func (p *Pricing) ImageCost() float64 {
	return p.imageFlat
}
