package mapping

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"shopsync/internal/logger"
	"shopsync/internal/models"
)

// ErrNoRuleMatch is returned when neither a rule nor an explicit mapping
// resolves a supplier option value.
var ErrNoRuleMatch = errors.New("no mapping rule matched")

// Store is the persistence surface the engine resolves and writes through.
// Lookups return (nil, nil) when no row matches.
type Store interface {
	ActiveRules(ctx context.Context, userID, optionType string) ([]models.VariantMappingRule, error)
	FindMapping(ctx context.Context, userID string, supplierID *string, optionName, optionValue string) (*models.VariantMapping, error)
	InsertMapping(ctx context.Context, mapping *models.VariantMapping) error
	UpdateMapping(ctx context.Context, mapping *models.VariantMapping) error
	ListMappings(ctx context.Context, userID string) ([]models.VariantMapping, error)
	ListRules(ctx context.Context, userID string) ([]models.VariantMappingRule, error)
	GetTemplate(ctx context.Context, templateID string) (*models.VariantMappingTemplate, error)
	UpdateTemplate(ctx context.Context, template *models.VariantMappingTemplate) error
}

type Engine struct {
	store  Store
	logger *logger.Logger
}

func NewEngine(store Store, log *logger.Logger) *Engine {
	return &Engine{store: store, logger: log}
}

// Match is one resolved translation of a supplier option value.
type Match struct {
	TargetValue string `json:"target_value"`
	MatchedBy   string `json:"matched_by"` // "rule" or "mapping"
	RuleID      string `json:"rule_id,omitempty"`
	MappingID   string `json:"mapping_id,omitempty"`
}

// AutoMapVariant resolves one supplier option value. Active rules for the
// option type are tried highest priority first; rules with equal priority
// keep their stored order. When no rule matches, an explicit mapping for
// the exact value is the fallback.
func (e *Engine) AutoMapVariant(ctx context.Context, userID string, supplierID *string, optionType, value string) (*Match, error) {
	rules, err := e.store.ActiveRules(ctx, userID, optionType)
	if err != nil {
		return nil, fmt.Errorf("loading rules: %w", err)
	}

	sort.SliceStable(rules, func(i, j int) bool {
		return rules[i].Priority > rules[j].Priority
	})

	for _, rule := range rules {
		if !ruleInScope(rule, supplierID) {
			continue
		}
		if matchesPattern(rule.TransformationType, rule.SourcePattern, value) {
			return &Match{TargetValue: rule.TargetValue, MatchedBy: "rule", RuleID: rule.ID}, nil
		}
	}

	existing, err := e.store.FindMapping(ctx, userID, supplierID, optionType, value)
	if err != nil {
		return nil, fmt.Errorf("mapping lookup: %w", err)
	}
	if existing != nil && existing.IsActive {
		return &Match{TargetValue: existing.TargetOptionValue, MatchedBy: "mapping", MappingID: existing.ID}, nil
	}

	return nil, ErrNoRuleMatch
}

// ruleInScope accepts global rules and rules pinned to the given supplier.
func ruleInScope(rule models.VariantMappingRule, supplierID *string) bool {
	if rule.SupplierID == nil {
		return true
	}
	return supplierID != nil && *rule.SupplierID == *supplierID
}

// matchesPattern evaluates one transformation against a value. All
// comparisons are case-insensitive. An invalid regex never matches.
func matchesPattern(transformation, pattern, value string) bool {
	switch transformation {
	case models.TransformContains:
		return strings.Contains(strings.ToLower(value), strings.ToLower(pattern))
	case models.TransformPrefix:
		return strings.HasPrefix(strings.ToLower(value), strings.ToLower(pattern))
	case models.TransformRegex:
		re, err := regexp.Compile("(?i)" + pattern)
		if err != nil {
			return false
		}
		return re.MatchString(value)
	default:
		return strings.EqualFold(value, pattern)
	}
}

// ApplyTemplate materializes every pair of a template as an explicit
// mapping for the user, scoped to the given supplier. Re-applying the same
// template updates the existing rows instead of duplicating them. The
// template's usage count is bumped once per application.
func (e *Engine) ApplyTemplate(ctx context.Context, userID string, supplierID *string, templateID string) ([]models.VariantMapping, error) {
	template, err := e.store.GetTemplate(ctx, templateID)
	if err != nil {
		return nil, fmt.Errorf("loading template: %w", err)
	}
	if template == nil {
		return nil, fmt.Errorf("template %s not found", templateID)
	}
	if template.UserID != nil && *template.UserID != userID {
		return nil, fmt.Errorf("template %s not found", templateID)
	}

	applied := make([]models.VariantMapping, 0, len(template.Pairs))
	for _, pair := range template.Pairs {
		existing, err := e.store.FindMapping(ctx, userID, supplierID, template.OptionType, pair.Source)
		if err != nil {
			return nil, fmt.Errorf("mapping lookup: %w", err)
		}

		if existing != nil {
			existing.TargetOptionName = template.OptionType
			existing.TargetOptionValue = pair.Target
			existing.IsActive = true
			if err := e.store.UpdateMapping(ctx, existing); err != nil {
				return nil, fmt.Errorf("updating mapping: %w", err)
			}
			applied = append(applied, *existing)
			continue
		}

		created := models.VariantMapping{
			UserID:            userID,
			SupplierID:        supplierID,
			SourceOptionName:  template.OptionType,
			SourceOptionValue: pair.Source,
			TargetOptionName:  template.OptionType,
			TargetOptionValue: pair.Target,
			IsActive:          true,
		}
		if err := e.store.InsertMapping(ctx, &created); err != nil {
			return nil, fmt.Errorf("inserting mapping: %w", err)
		}
		applied = append(applied, created)
	}

	template.UsageCount++
	if err := e.store.UpdateTemplate(ctx, template); err != nil {
		return nil, fmt.Errorf("updating template usage: %w", err)
	}

	e.logger.Info("applied template %s: %d mappings for user %s", template.Name, len(applied), userID)
	return applied, nil
}

// Stats is a read-only projection over a user's mappings and rules.
type Stats struct {
	TotalMappings  int            `json:"total_mappings"`
	ActiveMappings int            `json:"active_mappings"`
	AutoSynced     int            `json:"auto_synced"`
	TotalRules     int            `json:"total_rules"`
	ActiveRules    int            `json:"active_rules"`
	ByOptionName   map[string]int `json:"by_option_name"`
}

func (e *Engine) Stats(ctx context.Context, userID string) (*Stats, error) {
	mappings, err := e.store.ListMappings(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("loading mappings: %w", err)
	}
	rules, err := e.store.ListRules(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("loading rules: %w", err)
	}

	stats := &Stats{
		TotalMappings: len(mappings),
		TotalRules:    len(rules),
		ByOptionName:  make(map[string]int),
	}
	for _, m := range mappings {
		if m.IsActive {
			stats.ActiveMappings++
		}
		if m.AutoSync {
			stats.AutoSynced++
		}
		stats.ByOptionName[m.SourceOptionName]++
	}
	for _, r := range rules {
		if r.IsActive {
			stats.ActiveRules++
		}
	}
	return stats, nil
}
