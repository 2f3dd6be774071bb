package filter

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// ErrInvalidSignature is returned when a signature cannot be decoded.
var ErrInvalidSignature = errors.New("invalid signature")

// Signature is the canonical cache key of a FilterSet.
//
// Layout: "family[:section][?query]" where query is a url.Values encoding of
// the non-default fields. url.Values.Encode sorts keys and set values are
// sorted during normalization, so equal sets always encode identically.
type Signature string

const (
	keyQuery    = "q"
	keySort     = "sort"
	keyCategory = "category"
	keyLeaf     = "leaf"
	keyRegion   = "region"
	keyVenue    = "venue"
	keyClosed   = "closed"
	keyViewer   = "viewer"
)

// Signature returns the cache key for f.
func (f FilterSet) Signature() Signature {
	n := f.Normalize()

	values := url.Values{}
	if n.Query != "" {
		values.Set(keyQuery, n.Query)
	}
	if n.Sort != SortLatest {
		values.Set(keySort, string(n.Sort))
	}
	if n.Category.TopLevel != 0 {
		values.Set(keyCategory, strconv.FormatInt(n.Category.TopLevel, 10))
	}
	for _, id := range n.Category.Leaves {
		values.Add(keyLeaf, strconv.FormatInt(id, 10))
	}
	for _, r := range n.Regions {
		values.Add(keyRegion, r)
	}
	for _, v := range n.VenueTypes {
		values.Add(keyVenue, v)
	}
	if n.IncludeClosed {
		values.Set(keyClosed, "1")
	}
	if n.ViewerID != 0 {
		values.Set(keyViewer, strconv.FormatInt(n.ViewerID, 10))
	}

	scope := string(n.Family)
	if n.Section != "" {
		scope += ":" + url.QueryEscape(n.Section)
	}
	if encoded := values.Encode(); encoded != "" {
		return Signature(scope + "?" + encoded)
	}
	return Signature(scope)
}

// String implements fmt.Stringer.
func (s Signature) String() string { return string(s) }

// Family returns the family prefix of the signature.
func (s Signature) Family() Family {
	scope, _, _ := strings.Cut(string(s), "?")
	family, _, _ := strings.Cut(scope, ":")
	return Family(family)
}

// ParseSignature decodes a signature into its normalized FilterSet.
func ParseSignature(s Signature) (FilterSet, error) {
	scope, rawQuery, _ := strings.Cut(string(s), "?")
	family, section, hasSection := strings.Cut(scope, ":")

	out := FilterSet{Family: Family(family), Sort: SortLatest}
	if !out.Family.Valid() {
		return FilterSet{}, fmt.Errorf("%w: family %q", ErrInvalidSignature, family)
	}
	if hasSection {
		unescaped, err := url.QueryUnescape(section)
		if err != nil {
			return FilterSet{}, fmt.Errorf("%w: section: %v", ErrInvalidSignature, err)
		}
		out.Section = unescaped
	}

	values, err := url.ParseQuery(rawQuery)
	if err != nil {
		return FilterSet{}, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	for key, vals := range values {
		switch key {
		case keyQuery:
			out.Query = vals[0]
		case keySort:
			sort, err := ParseSort(vals[0])
			if err != nil {
				return FilterSet{}, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
			}
			out.Sort = sort
		case keyCategory:
			id, err := strconv.ParseInt(vals[0], 10, 64)
			if err != nil {
				return FilterSet{}, fmt.Errorf("%w: category: %v", ErrInvalidSignature, err)
			}
			out.Category.TopLevel = id
		case keyLeaf:
			for _, v := range vals {
				id, err := strconv.ParseInt(v, 10, 64)
				if err != nil {
					return FilterSet{}, fmt.Errorf("%w: leaf: %v", ErrInvalidSignature, err)
				}
				out.Category.Leaves = append(out.Category.Leaves, id)
			}
		case keyRegion:
			out.Regions = append(out.Regions, vals...)
		case keyVenue:
			out.VenueTypes = append(out.VenueTypes, vals...)
		case keyClosed:
			out.IncludeClosed = vals[0] == "1"
		case keyViewer:
			id, err := strconv.ParseInt(vals[0], 10, 64)
			if err != nil {
				return FilterSet{}, fmt.Errorf("%w: viewer: %v", ErrInvalidSignature, err)
			}
			out.ViewerID = id
		default:
			return FilterSet{}, fmt.Errorf("%w: unknown key %q", ErrInvalidSignature, key)
		}
	}
	return out.Normalize(), nil
}
