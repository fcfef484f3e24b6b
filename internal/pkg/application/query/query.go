package query

import (
	"slices"
	"strings"

	"github.com/diwise/iot-inventory-admin/pkg/types"
	"github.com/samber/lo"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// Item is anything that exposes its string valued attributes keyed by
// their json field name. Attributes that are not strings are left out.
type Item interface {
	Attributes() map[string]string
}

// ApplyFilters returns the items matching every filter field that is set.
// Search matches case insensitively against all string attributes while the
// remaining fields require an exact match.
func ApplyFilters[T Item](items []T, filters *types.FilterOptions) []T {
	if filters == nil {
		return slices.Clone(items)
	}

	exact := lo.PickBy(map[string]string{
		"status":  filters.Status,
		"role":    filters.Role,
		"groupId": filters.GroupID,
		"userId":  filters.UserID,
	}, func(_ string, value string) bool {
		return value != ""
	})

	search := strings.ToLower(filters.Search)

	return lo.Filter(items, func(item T, _ int) bool {
		attrs := item.Attributes()

		for key, want := range exact {
			if got, ok := attrs[key]; !ok || got != want {
				return false
			}
		}

		if search == "" {
			return true
		}

		return lo.SomeBy(lo.Values(attrs), func(value string) bool {
			return strings.Contains(strings.ToLower(value), search)
		})
	})
}

// ApplySorting returns a copy of items stably sorted by the named field using
// the collation rules of the given locale. Sorting by a field that is not a
// string attribute leaves the order untouched.
func ApplySorting[T Item](items []T, sort *types.SortOptions, locale language.Tag) []T {
	result := slices.Clone(items)

	if sort == nil || sort.Field == "" || len(result) == 0 {
		return result
	}

	if _, ok := result[0].Attributes()[sort.Field]; !ok {
		return result
	}

	c := collate.New(locale)
	descending := sort.Direction == types.SortDescending

	slices.SortStableFunc(result, func(a, b T) int {
		cmp := c.CompareString(a.Attributes()[sort.Field], b.Attributes()[sort.Field])
		if descending {
			return -cmp
		}
		return cmp
	})

	return result
}

// ParseLocale falls back to English for empty or malformed tags.
func ParseLocale(tag string) language.Tag {
	t, err := language.Parse(tag)
	if err != nil || tag == "" {
		return language.English
	}
	return t
}
