package models

import (
	"encoding/json"
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"
)

// UnavailableRaw is the upstream status string meaning "cannot be picked up".
const UnavailableRaw = "NONE"

// AvailableMarker is the normalized value recorded in a Delta.
const AvailableMarker = "available"

type (
	StoreID   string
	ProductID string
)

// Market is the pair of identifiers used to build the availability URL.
type Market struct {
	Code   string
	Locale string
}

// Countries lists every country code the upstream endpoint is known to serve.
var Countries = map[string]Market{
	"AE": {"AE", "en_AE"},
	"AU": {"AU", "en_AU"},
	"CA": {"CA", "en_CA"},
	"CH": {"CH", "de_CH"},
	"CN": {"CN", "en_CN"},
	"DE": {"DE", "de_DE"},
	"ES": {"ES", "es_ES"},
	"FR": {"FR", "fr_FR"},
	"IT": {"IT", "it_IT"},
	"JP": {"JP", "jp_JP"},
	"SE": {"SE", "se_SE"},
	"TR": {"TR", "tr_TR"},
	"UK": {"GB", "en_GB"},
	"US": {"US", "en_US"},
}

// CountryCodes returns the known country codes in sorted order.
func CountryCodes() []string {
	codes := make([]string, 0, len(Countries))
	for c := range Countries {
		codes = append(codes, c)
	}
	sort.Strings(codes)
	return codes
}

// Status is either Unavailable or Available carrying the upstream string
// (e.g. "ALL", "UNLOCKED"). The zero value is Unavailable.
type Status struct {
	available bool
	raw       string
}

var Unavailable = Status{}

// Available wraps an upstream status that is not the sentinel.
func Available(raw string) Status {
	return Status{available: true, raw: raw}
}

// ParseStatus maps an upstream string onto a Status. "NONE" is the only
// unavailable value.
func ParseStatus(raw string) Status {
	if raw == UnavailableRaw {
		return Unavailable
	}
	return Available(raw)
}

func (s Status) IsAvailable() bool { return s.available }

// String returns the wire form.
func (s Status) String() string {
	if !s.available {
		return UnavailableRaw
	}
	return s.raw
}

func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Status) UnmarshalText(b []byte) error {
	*s = ParseStatus(string(b))
	return nil
}

// Snapshot is the observed availability per store and product.
type Snapshot map[StoreID]map[ProductID]Status

// Equal reports whether both snapshots hold the same stores, products and
// wire statuses.
func (s Snapshot) Equal(o Snapshot) bool {
	if len(s) != len(o) {
		return false
	}
	for store, products := range s {
		other, ok := o[store]
		if !ok || len(products) != len(other) {
			return false
		}
		for product, status := range products {
			prev, ok := other[product]
			if !ok || prev.String() != status.String() {
				return false
			}
		}
	}
	return true
}

// MarshalJSON writes the mapping-of-mappings document
// {"R245": {"MN4P2B/A": "ALL"}}.
func (s Snapshot) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.raw())
}

func (s *Snapshot) UnmarshalJSON(b []byte) error {
	var doc map[string]map[string]string
	if err := json.Unmarshal(b, &doc); err != nil {
		return err
	}
	*s = fromRaw(doc)
	return nil
}

func (s Snapshot) MarshalYAML() (any, error) {
	return s.raw(), nil
}

func (s *Snapshot) UnmarshalYAML(n *yaml.Node) error {
	var doc map[string]map[string]string
	if err := n.Decode(&doc); err != nil {
		return err
	}
	*s = fromRaw(doc)
	return nil
}

func (s Snapshot) raw() map[string]map[string]string {
	doc := make(map[string]map[string]string, len(s))
	for store, products := range s {
		m := make(map[string]string, len(products))
		for product, status := range products {
			m[string(product)] = status.String()
		}
		doc[string(store)] = m
	}
	return doc
}

func fromRaw(doc map[string]map[string]string) Snapshot {
	snap := make(Snapshot, len(doc))
	for store, products := range doc {
		m := make(map[ProductID]Status, len(products))
		for product, raw := range products {
			m[ProductID(product)] = ParseStatus(raw)
		}
		snap[StoreID(store)] = m
	}
	return snap
}

// Delta holds only newly available items, each mapped to AvailableMarker.
type Delta map[StoreID]map[ProductID]string

// Add records product as newly available in store.
func (d Delta) Add(store StoreID, product ProductID) {
	if d[store] == nil {
		d[store] = make(map[ProductID]string)
	}
	d[store][product] = AvailableMarker
}

// Len counts (store, product) pairs.
func (d Delta) Len() int {
	n := 0
	for _, products := range d {
		n += len(products)
	}
	return n
}

// Item is one newly available (store, product) pair.
type Item struct {
	Store   StoreID
	Product ProductID
}

func (i Item) String() string {
	return fmt.Sprintf("%s in %s", i.Product, i.Store)
}

// Items returns the pairs sorted by store then product.
func (d Delta) Items() []Item {
	items := make([]Item, 0, d.Len())
	for store, products := range d {
		for product := range products {
			items = append(items, Item{Store: store, Product: product})
		}
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].Store != items[j].Store {
			return items[i].Store < items[j].Store
		}
		return items[i].Product < items[j].Product
	})
	return items
}
