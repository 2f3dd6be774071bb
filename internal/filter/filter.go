package filter

import (
	"fmt"
	"slices"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Family groups signatures that the lifecycle invalidator treats together.
type Family string

const (
	FamilySearch   Family = "search"
	FamilyCategory Family = "category"
	FamilyHome     Family = "home"
	FamilyProfile  Family = "profile"
)

// Families returns every known family in a stable order.
func Families() []Family {
	return []Family{FamilySearch, FamilyCategory, FamilyHome, FamilyProfile}
}

// Valid reports whether f is a known family.
func (f Family) Valid() bool {
	return slices.Contains(Families(), f)
}

// ParseFamily accepts a family name in any case.
func ParseFamily(value string) (Family, error) {
	f := Family(strings.ToLower(strings.TrimSpace(value)))
	if !f.Valid() {
		return "", fmt.Errorf("unknown family %q", value)
	}
	return f, nil
}

// Sort is the ordering requested from the listing API.
type Sort string

const (
	SortLatest      Sort = "LATEST"
	SortPopular     Sort = "POPULAR"
	SortDeadline    Sort = "DEADLINE"
	SortFundingRate Sort = "FUNDING_RATE"
)

var sortOrder = []Sort{SortLatest, SortPopular, SortDeadline, SortFundingRate}

// Sorts returns the supported sort modes in display order.
func Sorts() []Sort {
	return slices.Clone(sortOrder)
}

// ParseSort accepts a sort name in any case. Empty input yields SortLatest.
func ParseSort(value string) (Sort, error) {
	trimmed := strings.ToUpper(strings.TrimSpace(value))
	if trimmed == "" {
		return SortLatest, nil
	}
	s := Sort(trimmed)
	if !slices.Contains(sortOrder, s) {
		return "", fmt.Errorf("unknown sort %q", value)
	}
	return s, nil
}

// Next returns the following sort mode, wrapping around.
func (s Sort) Next() Sort {
	idx := slices.Index(sortOrder, s)
	return sortOrder[(idx+1)%len(sortOrder)]
}

// Label returns a short human label.
func (s Sort) Label() string {
	switch s {
	case SortPopular:
		return "Popular"
	case SortDeadline:
		return "Closing soon"
	case SortFundingRate:
		return "Funding rate"
	default:
		return "Latest"
	}
}

// Category is either every category, one top-level category, or a set of
// leaf categories. Leaves take precedence over the top-level id.
type Category struct {
	TopLevel int64
	Leaves   []int64
}

// AllCategories selects every category.
func AllCategories() Category { return Category{} }

// TopCategory selects a single top-level category.
func TopCategory(id int64) Category { return Category{TopLevel: id} }

// LeafCategories selects a set of leaf categories.
func LeafCategories(ids ...int64) Category { return Category{Leaves: ids} }

// IsAll reports whether the selection is the default "all".
func (c Category) IsAll() bool {
	n := c.normalize()
	return n.TopLevel == 0 && len(n.Leaves) == 0
}

func (c Category) normalize() Category {
	leaves := make([]int64, 0, len(c.Leaves))
	for _, id := range c.Leaves {
		if id > 0 {
			leaves = append(leaves, id)
		}
	}
	slices.Sort(leaves)
	leaves = slices.Compact(leaves)
	if len(leaves) > 0 {
		return Category{Leaves: leaves}
	}
	top := c.TopLevel
	if top < 0 {
		top = 0
	}
	return Category{TopLevel: top}
}

func (c Category) equal(o Category) bool {
	a, b := c.normalize(), o.normalize()
	return a.TopLevel == b.TopLevel && slices.Equal(a.Leaves, b.Leaves)
}

// FilterSet is the full set of listing parameters. Treat it as a value: the
// methods never modify the receiver.
type FilterSet struct {
	Family        Family
	Section       string
	Query         string
	Sort          Sort
	Category      Category
	Regions       []string
	VenueTypes    []string
	IncludeClosed bool
	ViewerID      int64
}

// Default returns the filter set with no explicit choices.
func Default() FilterSet {
	return FilterSet{Family: FamilySearch, Sort: SortLatest}
}

// Home returns the filter set for a home section.
func Home(section string, viewerID int64) FilterSet {
	return FilterSet{Family: FamilyHome, Section: section, Sort: SortLatest, ViewerID: viewerID}
}

// Profile returns the filter set for one of the viewer's profile lists.
func Profile(section string, viewerID int64) FilterSet {
	return FilterSet{Family: FamilyProfile, Section: section, Sort: SortLatest, ViewerID: viewerID}
}

// Normalize returns the canonical form used for signatures and requests.
func (f FilterSet) Normalize() FilterSet {
	out := FilterSet{
		Family:        Family(strings.ToLower(strings.TrimSpace(string(f.Family)))),
		Section:       strings.ToLower(strings.TrimSpace(f.Section)),
		Query:         normalizeText(f.Query),
		Sort:          Sort(strings.ToUpper(strings.TrimSpace(string(f.Sort)))),
		Category:      f.Category.normalize(),
		Regions:       normalizeSet(f.Regions),
		VenueTypes:    normalizeSet(f.VenueTypes),
		IncludeClosed: f.IncludeClosed,
		ViewerID:      f.ViewerID,
	}
	if out.Family == "" {
		out.Family = FamilySearch
	}
	if out.Sort == "" {
		out.Sort = SortLatest
	}
	if out.ViewerID < 0 {
		out.ViewerID = 0
	}
	return out
}

// Equal reports whether two filter sets select the same listing.
func (f FilterSet) Equal(o FilterSet) bool {
	return f.Signature() == o.Signature()
}

// IsDefault reports whether no listing axis carries an explicit choice.
func (f FilterSet) IsDefault() bool {
	n := f.Normalize()
	return n.Query == "" && n.Sort == SortLatest && n.Category.IsAll() &&
		len(n.Regions) == 0 && len(n.VenueTypes) == 0 && !n.IncludeClosed
}

func normalizeText(value string) string {
	return strings.Join(strings.Fields(norm.NFC.String(value)), " ")
}

func normalizeSet(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	out := make([]string, 0, len(values))
	for _, v := range values {
		if n := normalizeText(v); n != "" {
			out = append(out, n)
		}
	}
	if len(out) == 0 {
		return nil
	}
	slices.Sort(out)
	return slices.Compact(out)
}
