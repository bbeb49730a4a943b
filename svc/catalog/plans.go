package catalog

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"gopkg.in/yaml.v3"
)

//go:embed plans.yaml
var defaultPlans []byte

// PlanSource loads plan definitions.
type PlanSource interface {
	Load(ctx context.Context) ([]Plan, error)
}

// YAMLPlanSource reads plans from a YAML document with a top-level "plans" list.
type YAMLPlanSource struct {
	open func() (io.ReadCloser, error)
}

// NewYAMLPlanSource reads the file at path, or the built-in catalog when
// path is empty.
func NewYAMLPlanSource(path string) *YAMLPlanSource {
	if path == "" {
		return &YAMLPlanSource{open: func() (io.ReadCloser, error) {
			return io.NopCloser(strings.NewReader(string(defaultPlans))), nil
		}}
	}
	return &YAMLPlanSource{open: func() (io.ReadCloser, error) { return os.Open(path) }}
}

// NewYAMLPlanSourceFromReader is used by tests and embedded catalogs.
func NewYAMLPlanSourceFromReader(r io.Reader) *YAMLPlanSource {
	return &YAMLPlanSource{open: func() (io.ReadCloser, error) { return io.NopCloser(r), nil }}
}

func (s *YAMLPlanSource) Load(ctx context.Context) ([]Plan, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rc, err := s.open()
	if err != nil {
		return nil, fmt.Errorf("open plan catalog: %w", err)
	}
	defer rc.Close()

	var doc struct {
		Plans []Plan `yaml:"plans"`
	}
	dec := yaml.NewDecoder(rc)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, errors.Join(ErrInvalidPlan, err)
	}

	seen := make(map[string]bool, len(doc.Plans))
	for i := range doc.Plans {
		p := &doc.Plans[i]
		if err := normalizePlan(p); err != nil {
			return nil, err
		}
		key := strings.ToLower(p.Name)
		if seen[key] {
			return nil, fmt.Errorf("%w: duplicate plan name %q", ErrInvalidPlan, p.Name)
		}
		seen[key] = true
	}
	return doc.Plans, nil
}

func normalizePlan(p *Plan) error {
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		return fmt.Errorf("%w: plan name is required", ErrInvalidPlan)
	}
	tier, err := ParseTier(string(p.Tier))
	if err != nil {
		return fmt.Errorf("%w: plan %q: %v", ErrInvalidPlan, p.Name, err)
	}
	p.Tier = tier
	if p.Price < 0 {
		return fmt.Errorf("%w: plan %q has a negative price", ErrInvalidPlan, p.Name)
	}
	if p.DurationMonths < 0 {
		return fmt.Errorf("%w: plan %q has a negative duration", ErrInvalidPlan, p.Name)
	}
	if p.Currency == "" {
		p.Currency = "USD"
	}
	p.Currency = strings.ToUpper(p.Currency)
	if _, err := currency.ParseISO(p.Currency); err != nil {
		return fmt.Errorf("%w: plan %q: unknown currency %q", ErrInvalidPlan, p.Name, p.Currency)
	}
	return nil
}

// PriceLabel formats a plan price for display, e.g. "$ 19.99 / month".
func PriceLabel(p Plan, tag language.Tag) string {
	if p.IsFree() {
		return "Free"
	}
	printer := message.NewPrinter(tag)
	amount := fmt.Sprintf("%.2f %s", p.Price, p.Currency)
	if unit, err := currency.ParseISO(p.Currency); err == nil {
		amount = printer.Sprint(currency.Symbol(unit.Amount(p.Price)))
	}
	switch {
	case p.DurationMonths == 0:
		return amount + " lifetime"
	case p.DurationMonths == 1:
		return amount + " / month"
	case p.DurationMonths == 12:
		return amount + " / year"
	default:
		return printer.Sprintf("%s / %d months", amount, p.DurationMonths)
	}
}
