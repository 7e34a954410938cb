package ai

// EntityCategories defines the valid categories for extracted entities.
// Extractors map anything else to "other".
var EntityCategories = []string{
	"npc",
	"monster",
	"creature",
	"villain",
	"ally",
	"deity",
	"companion",
	"vehicle",
	"other",
}

// IsEntityCategory reports whether category is one of EntityCategories.
func IsEntityCategory(category string) bool {
	for _, c := range EntityCategories {
		if c == category {
			return true
		}
	}
	return false
}
