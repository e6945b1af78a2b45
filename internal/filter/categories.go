package filter

import "strings"

// categoryKeywords maps each selectable category to the keywords that may
// appear in a venue's category label, raw provider types, tags, or name.
// Matching is lowercase substring in either direction, so "Cafe" catches a
// raw type of "coffee_shop" and a name like "Blue Bottle Coffee".
var categoryKeywords = map[string][]string{
	"cafe":       {"cafe", "coffee", "coffee_shop", "espresso", "kahve"},
	"restaurant": {"restaurant", "dining", "bistro", "eatery", "meal_takeaway", "meal_delivery"},
	"bar":        {"bar", "pub", "night_club", "cocktail", "brewery", "wine"},
	"bakery":     {"bakery", "patisserie", "dessert", "pastane"},
	"fast food":  {"fast_food", "fast food", "burger", "pizza", "takeaway"},
}

// criterionGroups clusters AI-tag wordings that describe the same
// attribute, enabling same-category cross-matches: a user selecting
// "Smoking allowed" also accepts a venue tagged "Smoking allowed indoors".
// Ambiance styles are deliberately absent: selecting "Retro" must not
// accept a venue tagged only "Modern".
var criterionGroups = [][]string{
	{"smoking allowed", "smoking allowed indoors"},
	{"outlets few", "outlets moderate", "outlets available", "table outlet"},
	{"no seating", "seating limited", "seating moderate", "seating available"},
}

// keywordsFor returns the keyword set for a selected category option. An
// unknown option falls back to the option text itself so user-defined
// categories still match by substring.
func keywordsFor(option string) []string {
	key := strings.ToLower(strings.TrimSpace(option))
	if kws, ok := categoryKeywords[key]; ok {
		return kws
	}
	return []string{key}
}

// groupOf returns the cross-match group containing the option, or nil.
func groupOf(option string) []string {
	opt := strings.ToLower(strings.TrimSpace(option))
	for _, group := range criterionGroups {
		for _, member := range group {
			if member == opt {
				return group
			}
		}
	}
	return nil
}
