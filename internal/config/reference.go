package config

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed reference.yaml
var referenceYAML []byte

type ProductType struct {
	Name string `yaml:"name" json:"name"`
	Code string `yaml:"code" json:"code"`
}

// Reference holds the fixed lookup tables of the import pipeline.
type Reference struct {
	Version          int               `yaml:"version" json:"version"`
	ProductTypes     []ProductType     `yaml:"product_types" json:"productTypes"`
	InvestmentLinked string            `yaml:"investment_linked" json:"investmentLinked"`
	FundTypes        []string          `yaml:"fund_types" json:"fundTypes"`
	CanonicalFields  []string          `yaml:"canonical_fields" json:"canonicalFields"`
	Aliases          map[string]string `yaml:"aliases" json:"aliases"`
}

var (
	defaultRef     *Reference
	defaultRefErr  error
	defaultRefOnce sync.Once
)

// DefaultReference returns the embedded reference tables. It panics if the
// embedded file is malformed, which can only happen at build time.
func DefaultReference() *Reference {
	defaultRefOnce.Do(func() {
		defaultRef, defaultRefErr = ParseReference(referenceYAML)
	})
	if defaultRefErr != nil {
		panic(defaultRefErr)
	}
	return defaultRef
}

// ParseReference decodes and validates a reference document.
func ParseReference(data []byte) (*Reference, error) {
	var ref Reference
	if err := yaml.Unmarshal(data, &ref); err != nil {
		return nil, fmt.Errorf("parse reference tables: %w", err)
	}
	if len(ref.CanonicalFields) == 0 {
		return nil, fmt.Errorf("reference tables: canonical_fields is empty")
	}
	seen := make(map[string]bool, len(ref.ProductTypes))
	for _, pt := range ref.ProductTypes {
		if pt.Name == "" || pt.Code == "" {
			return nil, fmt.Errorf("reference tables: product type entry %+v is incomplete", pt)
		}
		if seen[pt.Name] {
			return nil, fmt.Errorf("reference tables: duplicate product type %q", pt.Name)
		}
		seen[pt.Name] = true
	}
	if ref.InvestmentLinked != "" && !seen[ref.InvestmentLinked] {
		return nil, fmt.Errorf("reference tables: investment_linked %q is not a product type", ref.InvestmentLinked)
	}
	return &ref, nil
}

// ProductCode returns the policy-type code for a product type, or "" when unknown.
func (r *Reference) ProductCode(productType string) string {
	name := strings.TrimSpace(productType)
	for _, pt := range r.ProductTypes {
		if pt.Name == name {
			return pt.Code
		}
	}
	return ""
}

func (r *Reference) ProductNames() []string {
	names := make([]string, len(r.ProductTypes))
	for i, pt := range r.ProductTypes {
		names[i] = pt.Name
	}
	return names
}

func (r *Reference) IsInvestmentLinked(productType string) bool {
	return r.InvestmentLinked != "" && strings.EqualFold(strings.TrimSpace(productType), r.InvestmentLinked)
}

func (r *Reference) IsFundType(fundType string) bool {
	for _, f := range r.FundTypes {
		if f == fundType {
			return true
		}
	}
	return false
}
