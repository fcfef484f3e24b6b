package query

import (
	"testing"

	"github.com/diwise/iot-inventory-admin/pkg/types"
	"github.com/matryer/is"
	"golang.org/x/text/language"
)

func TestSearchMatchesAnyStringAttributeCaseInsensitively(t *testing.T) {
	is := is.New(t)

	result := ApplyFilters(testDevices(), &types.FilterOptions{Search: "HQ-"})
	is.Equal(len(result), 2)

	result = ApplyFilters(testDevices(), &types.FilterOptions{Search: "10.0.0.3"})
	is.Equal(len(result), 1)
	is.Equal(result[0].ID, "d3")
}

func TestExactFiltersAreCombined(t *testing.T) {
	is := is.New(t)

	result := ApplyFilters(testDevices(), &types.FilterOptions{Status: "online", GroupID: "g1"})
	is.Equal(len(result), 1)
	is.Equal(result[0].ID, "d1")

	result = ApplyFilters(testDevices(), &types.FilterOptions{Status: "onl"})
	is.Equal(len(result), 0)
}

func TestFilterOnMissingAttributeExcludesItem(t *testing.T) {
	is := is.New(t)

	result := ApplyFilters(testDevices(), &types.FilterOptions{Role: "admin"})
	is.Equal(len(result), 0)
}

func TestNilFilterReturnsCopy(t *testing.T) {
	is := is.New(t)

	devices := testDevices()
	result := ApplyFilters(devices, nil)
	result[0].Name = "changed"

	is.Equal(devices[0].Name, "srv1")
}

func TestSortIsLocaleAwareAndStable(t *testing.T) {
	is := is.New(t)

	users := []types.User{
		{ID: "1", Name: "Östen"},
		{ID: "2", Name: "anna"},
		{ID: "3", Name: "Bertil"},
		{ID: "4", Name: "anna"},
	}

	asc := ApplySorting(users, &types.SortOptions{Field: "name", Direction: types.SortAscending}, language.Swedish)
	is.Equal(ids(asc), []string{"2", "4", "3", "1"})

	desc := ApplySorting(users, &types.SortOptions{Field: "name", Direction: types.SortDescending}, language.Swedish)
	is.Equal(ids(desc), []string{"1", "3", "2", "4"})
}

func TestSortByNonStringFieldIsNoop(t *testing.T) {
	is := is.New(t)

	users := []types.User{{ID: "2", Name: "b"}, {ID: "1", Name: "a"}}

	result := ApplySorting(users, &types.SortOptions{Field: "createdAt", Direction: types.SortAscending}, language.English)
	is.Equal(ids(result), []string{"2", "1"})
}

func TestParseLocale(t *testing.T) {
	is := is.New(t)

	is.Equal(ParseLocale(""), language.English)
	is.Equal(ParseLocale("not a tag!"), language.English)
	is.Equal(ParseLocale("sv"), language.Swedish)
}

func ids(users []types.User) []string {
	result := []string{}
	for _, u := range users {
		result = append(result, u.ID)
	}
	return result
}

func testDevices() []types.Device {
	return []types.Device{
		{ID: "d1", Name: "srv1", DisplayName: "HQ-srv1", GroupID: "g1", Status: types.StatusOnline, IPAddress: "10.0.0.1"},
		{ID: "d2", Name: "srv2", DisplayName: "HQ-srv2", GroupID: "g1", Status: types.StatusOffline, IPAddress: "10.0.0.2"},
		{ID: "d3", Name: "lap1", DisplayName: "lap1", Status: types.StatusOnline, IPAddress: "10.0.0.3"},
	}
}
