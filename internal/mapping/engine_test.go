package mapping

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shopsync/internal/logger"
	"shopsync/internal/models"
)

type fakeStore struct {
	rules     []models.VariantMappingRule
	mappings  []*models.VariantMapping
	templates []*models.VariantMappingTemplate
}

func (f *fakeStore) ActiveRules(_ context.Context, userID, optionType string) ([]models.VariantMappingRule, error) {
	var out []models.VariantMappingRule
	for _, r := range f.rules {
		if r.UserID == userID && r.OptionType == optionType && r.IsActive {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeStore) FindMapping(_ context.Context, userID string, supplierID *string, optionName, optionValue string) (*models.VariantMapping, error) {
	for _, m := range f.mappings {
		if m.UserID != userID || m.SourceOptionName != optionName || m.SourceOptionValue != optionValue {
			continue
		}
		if (m.SupplierID == nil) != (supplierID == nil) {
			continue
		}
		if m.SupplierID != nil && *m.SupplierID != *supplierID {
			continue
		}
		return m, nil
	}
	return nil, nil
}

func (f *fakeStore) InsertMapping(_ context.Context, mapping *models.VariantMapping) error {
	mapping.ID = uuid.New().String()
	f.mappings = append(f.mappings, mapping)
	return nil
}

func (f *fakeStore) UpdateMapping(_ context.Context, mapping *models.VariantMapping) error {
	for i, m := range f.mappings {
		if m.ID == mapping.ID {
			f.mappings[i] = mapping
			return nil
		}
	}
	return nil
}

func (f *fakeStore) ListMappings(_ context.Context, userID string) ([]models.VariantMapping, error) {
	var out []models.VariantMapping
	for _, m := range f.mappings {
		if m.UserID == userID {
			out = append(out, *m)
		}
	}
	return out, nil
}

func (f *fakeStore) ListRules(_ context.Context, userID string) ([]models.VariantMappingRule, error) {
	var out []models.VariantMappingRule
	for _, r := range f.rules {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeStore) GetTemplate(_ context.Context, templateID string) (*models.VariantMappingTemplate, error) {
	for _, t := range f.templates {
		if t.ID == templateID {
			return t, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) UpdateTemplate(_ context.Context, template *models.VariantMappingTemplate) error {
	for i, t := range f.templates {
		if t.ID == template.ID {
			f.templates[i] = template
			return nil
		}
	}
	return nil
}

func newTestEngine(store *fakeStore) *Engine {
	return NewEngine(store, logger.New("error"))
}

func rule(userID, optionType, pattern, target, transformation string, priority int) models.VariantMappingRule {
	return models.VariantMappingRule{
		ID:                 uuid.New().String(),
		UserID:             userID,
		OptionType:         optionType,
		SourcePattern:      pattern,
		TargetValue:        target,
		TransformationType: transformation,
		Priority:           priority,
		IsActive:           true,
	}
}

func TestAutoMapVariantPrefersHigherPriority(t *testing.T) {
	store := &fakeStore{rules: []models.VariantMappingRule{
		rule("user-1", "color", "rouge", "Dark Red", models.TransformContains, 5),
		rule("user-1", "color", "rouge", "Red", models.TransformContains, 10),
	}}
	engine := newTestEngine(store)

	match, err := engine.AutoMapVariant(context.Background(), "user-1", nil, "color", "Rouge foncé")
	require.NoError(t, err)
	assert.Equal(t, "Red", match.TargetValue)
	assert.Equal(t, "rule", match.MatchedBy)
}

func TestAutoMapVariantEqualPriorityKeepsStoredOrder(t *testing.T) {
	store := &fakeStore{rules: []models.VariantMappingRule{
		rule("user-1", "size", "xl", "Extra Large", models.TransformExact, 0),
		rule("user-1", "size", "xl", "XL", models.TransformExact, 0),
	}}
	engine := newTestEngine(store)

	match, err := engine.AutoMapVariant(context.Background(), "user-1", nil, "size", "XL")
	require.NoError(t, err)
	assert.Equal(t, "Extra Large", match.TargetValue)
}

func TestMatchesPattern(t *testing.T) {
	cases := []struct {
		name           string
		transformation string
		pattern        string
		value          string
		want           bool
	}{
		{"exact match is case-insensitive", models.TransformExact, "Rouge", "rouge", true},
		{"exact rejects substring", models.TransformExact, "rouge", "rouge foncé", false},
		{"contains finds inner match", models.TransformContains, "bleu", "Bleu Marine", true},
		{"contains rejects absent", models.TransformContains, "vert", "Bleu Marine", false},
		{"prefix matches leading text", models.TransformPrefix, "tail", "Taille Unique", true},
		{"prefix rejects inner match", models.TransformPrefix, "unique", "Taille Unique", false},
		{"regex matches", models.TransformRegex, `^\d+ ?cm$`, "42 cm", true},
		{"invalid regex never matches", models.TransformRegex, `[unclosed`, "[unclosed", false},
		{"unknown transformation falls back to exact", "mystery", "noir", "Noir", true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, matchesPattern(tc.transformation, tc.pattern, tc.value))
		})
	}
}

func TestAutoMapVariantSupplierScoping(t *testing.T) {
	supplier := "supplier-a"
	other := "supplier-b"
	scoped := rule("user-1", "color", "noir", "Black", models.TransformExact, 10)
	scoped.SupplierID = &supplier
	store := &fakeStore{rules: []models.VariantMappingRule{scoped}}
	engine := newTestEngine(store)

	_, err := engine.AutoMapVariant(context.Background(), "user-1", &other, "color", "Noir")
	assert.ErrorIs(t, err, ErrNoRuleMatch)

	match, err := engine.AutoMapVariant(context.Background(), "user-1", &supplier, "color", "Noir")
	require.NoError(t, err)
	assert.Equal(t, "Black", match.TargetValue)
}

func TestAutoMapVariantFallsBackToExplicitMapping(t *testing.T) {
	store := &fakeStore{mappings: []*models.VariantMapping{{
		ID:                uuid.New().String(),
		UserID:            "user-1",
		SourceOptionName:  "color",
		SourceOptionValue: "Céleste",
		TargetOptionName:  "color",
		TargetOptionValue: "Sky Blue",
		IsActive:          true,
	}}}
	engine := newTestEngine(store)

	match, err := engine.AutoMapVariant(context.Background(), "user-1", nil, "color", "Céleste")
	require.NoError(t, err)
	assert.Equal(t, "Sky Blue", match.TargetValue)
	assert.Equal(t, "mapping", match.MatchedBy)
}

func TestAutoMapVariantNoMatch(t *testing.T) {
	engine := newTestEngine(&fakeStore{})

	_, err := engine.AutoMapVariant(context.Background(), "user-1", nil, "color", "Inconnu")
	assert.ErrorIs(t, err, ErrNoRuleMatch)
}

func TestApplyTemplateIsIdempotent(t *testing.T) {
	store := &fakeStore{templates: []*models.VariantMappingTemplate{{
		ID:         "tpl-1",
		Name:       "French colors",
		OptionType: "color",
		Pairs: []models.TemplatePair{
			{Source: "Rouge", Target: "Red"},
			{Source: "Bleu", Target: "Blue"},
		},
	}}}
	engine := newTestEngine(store)

	first, err := engine.ApplyTemplate(context.Background(), "user-1", nil, "tpl-1")
	require.NoError(t, err)
	assert.Len(t, first, 2)
	assert.Len(t, store.mappings, 2)

	second, err := engine.ApplyTemplate(context.Background(), "user-1", nil, "tpl-1")
	require.NoError(t, err)
	assert.Len(t, second, 2)
	assert.Len(t, store.mappings, 2, "re-applying must not duplicate rows")

	assert.Equal(t, 2, store.templates[0].UsageCount)
}

func TestApplyTemplateRejectsForeignTemplate(t *testing.T) {
	owner := "user-2"
	store := &fakeStore{templates: []*models.VariantMappingTemplate{{
		ID:         "tpl-private",
		UserID:     &owner,
		OptionType: "size",
		Pairs:      []models.TemplatePair{{Source: "Grand", Target: "Large"}},
	}}}
	engine := newTestEngine(store)

	_, err := engine.ApplyTemplate(context.Background(), "user-1", nil, "tpl-private")
	assert.Error(t, err)
	assert.Empty(t, store.mappings)
}

func TestStats(t *testing.T) {
	supplier := "supplier-a"
	store := &fakeStore{
		mappings: []*models.VariantMapping{
			{ID: "m1", UserID: "user-1", SourceOptionName: "color", IsActive: true, AutoSync: true},
			{ID: "m2", UserID: "user-1", SourceOptionName: "color", IsActive: false},
			{ID: "m3", UserID: "user-1", SourceOptionName: "size", IsActive: true, SupplierID: &supplier},
			{ID: "m4", UserID: "user-2", SourceOptionName: "color", IsActive: true},
		},
		rules: []models.VariantMappingRule{
			rule("user-1", "color", "r", "R", models.TransformPrefix, 0),
		},
	}
	engine := newTestEngine(store)

	stats, err := engine.Stats(context.Background(), "user-1")
	require.NoError(t, err)

	assert.Equal(t, 3, stats.TotalMappings)
	assert.Equal(t, 2, stats.ActiveMappings)
	assert.Equal(t, 1, stats.AutoSynced)
	assert.Equal(t, 1, stats.TotalRules)
	assert.Equal(t, 1, stats.ActiveRules)
	assert.Equal(t, map[string]int{"color": 2, "size": 1}, stats.ByOptionName)
}
