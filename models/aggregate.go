package models

import (
	orderedmap "github.com/wk8/go-ordered-map/v2"
	"gopkg.in/yaml.v3"
)

// CityTimes holds one city's records keyed by date key (YYYY-MM-DD).
type CityTimes struct {
	days *orderedmap.OrderedMap[string, *Record]
}

// NewCityTimes returns an empty CityTimes.
func NewCityTimes() *CityTimes {
	return &CityTimes{days: orderedmap.New[string, *Record]()}
}

func (c *CityTimes) init() {
	if c.days == nil {
		c.days = orderedmap.New[string, *Record]()
	}
}

// Put stores rec under date, replacing any record already there.
func (c *CityTimes) Put(date string, rec *Record) {
	c.init()
	c.days.Set(date, rec)
}

// Get returns the record stored under date.
func (c *CityTimes) Get(date string) (*Record, bool) {
	if c == nil || c.days == nil {
		return nil, false
	}
	return c.days.Get(date)
}

// Len returns the number of dates.
func (c *CityTimes) Len() int {
	if c == nil || c.days == nil {
		return 0
	}
	return c.days.Len()
}

// Dates returns the date keys in insertion order.
func (c *CityTimes) Dates() []string {
	dates := make([]string, 0, c.Len())
	c.Each(func(date string, _ *Record) {
		dates = append(dates, date)
	})
	return dates
}

// Each calls fn for every date in insertion order.
func (c *CityTimes) Each(fn func(date string, rec *Record)) {
	if c.Len() == 0 {
		return
	}
	for pair := c.days.Oldest(); pair != nil; pair = pair.Next() {
		fn(pair.Key, pair.Value)
	}
}

func (c *CityTimes) MarshalJSON() ([]byte, error) {
	c.init()
	return encodeObject(c.days)
}

func (c *CityTimes) UnmarshalJSON(data []byte) error {
	c.days = orderedmap.New[string, *Record]()
	return c.days.UnmarshalJSON(data)
}

func (c *CityTimes) MarshalYAML() (interface{}, error) {
	c.init()
	return c.days.MarshalYAML()
}

func (c *CityTimes) UnmarshalYAML(value *yaml.Node) error {
	c.days = orderedmap.New[string, *Record]()
	return c.days.UnmarshalYAML(value)
}

// Aggregate is the output of one scrape run: city name → date key → record.
// Entries are never removed; a later Merge for the same (city, date)
// replaces the earlier record as a whole.
type Aggregate struct {
	cities *orderedmap.OrderedMap[string, *CityTimes]
}

// NewAggregate returns an empty Aggregate.
func NewAggregate() *Aggregate {
	return &Aggregate{cities: orderedmap.New[string, *CityTimes]()}
}

func (a *Aggregate) init() {
	if a.cities == nil {
		a.cities = orderedmap.New[string, *CityTimes]()
	}
}

// Merge folds times into the entry for city, creating it when absent.
// A nil or empty times still registers the city.
func (a *Aggregate) Merge(city string, times *CityTimes) {
	a.init()
	existing, ok := a.cities.Get(city)
	if !ok {
		existing = NewCityTimes()
		a.cities.Set(city, existing)
	}
	times.Each(func(date string, rec *Record) {
		existing.Put(date, rec)
	})
}

// City returns the entry for city.
func (a *Aggregate) City(city string) (*CityTimes, bool) {
	if a == nil || a.cities == nil {
		return nil, false
	}
	return a.cities.Get(city)
}

// Lookup returns the record for (city, date). The two flags tell a missing
// city apart from a missing date.
func (a *Aggregate) Lookup(city, date string) (rec *Record, cityFound, dateFound bool) {
	times, ok := a.City(city)
	if !ok {
		return nil, false, false
	}
	rec, ok = times.Get(date)
	return rec, true, ok
}

// Cities returns the city names in insertion order.
func (a *Aggregate) Cities() []string {
	cities := make([]string, 0, a.Len())
	a.Each(func(city string, _ *CityTimes) {
		cities = append(cities, city)
	})
	return cities
}

// Each calls fn for every city in insertion order.
func (a *Aggregate) Each(fn func(city string, times *CityTimes)) {
	if a.Len() == 0 {
		return
	}
	for pair := a.cities.Oldest(); pair != nil; pair = pair.Next() {
		fn(pair.Key, pair.Value)
	}
}

// Len returns the number of cities.
func (a *Aggregate) Len() int {
	if a == nil || a.cities == nil {
		return 0
	}
	return a.cities.Len()
}

// Records returns the total number of records across all cities.
func (a *Aggregate) Records() int {
	total := 0
	a.Each(func(_ string, times *CityTimes) {
		total += times.Len()
	})
	return total
}

func (a *Aggregate) MarshalJSON() ([]byte, error) {
	a.init()
	return encodeObject(a.cities)
}

func (a *Aggregate) UnmarshalJSON(data []byte) error {
	a.cities = orderedmap.New[string, *CityTimes]()
	return a.cities.UnmarshalJSON(data)
}

func (a *Aggregate) MarshalYAML() (interface{}, error) {
	a.init()
	return a.cities.MarshalYAML()
}

func (a *Aggregate) UnmarshalYAML(value *yaml.Node) error {
	a.cities = orderedmap.New[string, *CityTimes]()
	return a.cities.UnmarshalYAML(value)
}
