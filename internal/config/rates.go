package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Rates is the price and rate configuration loaded at startup. Keeping the
// tables in a file rather than in code makes rate changes auditable per
// period; the engine components receive them at construction and never read
// them globally.
type Rates struct {
	// MaterialRates is the payout per unit to suppliers, in cents.
	MaterialRates map[string]int64 `yaml:"material_rates"`
	// SalePrices is the per-unit sale price per product, in cents.
	SalePrices map[string]int64 `yaml:"sale_prices"`
	// VATRates is the VAT treatment per product, in basis points.
	VATRates map[string]int64 `yaml:"vat_rates"`
}

// LoadRates reads and validates a YAML rate table.
func LoadRates(path string) (*Rates, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rates file: %w", err)
	}
	return ParseRates(data)
}

// ParseRates parses YAML rate table content.
func ParseRates(data []byte) (*Rates, error) {
	var r Rates
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("parse rates: %w", err)
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return &r, nil
}

// Validate rejects non-positive prices and negative or implausible VAT rates.
func (r *Rates) Validate() error {
	for material, cents := range r.MaterialRates {
		if cents <= 0 {
			return fmt.Errorf("material rate %q: must be positive, got %d", material, cents)
		}
	}
	for product, cents := range r.SalePrices {
		if cents <= 0 {
			return fmt.Errorf("sale price %q: must be positive, got %d", product, cents)
		}
	}
	for product, bps := range r.VATRates {
		if bps < 0 || bps > 10000 {
			return fmt.Errorf("vat rate %q: must be between 0 and 10000 bps, got %d", product, bps)
		}
	}
	return nil
}
