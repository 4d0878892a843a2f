// Package models defines the typed records the ingestion layer hands to
// entity resolution and CRUD, plus the value shapes shared with the
// property codec.
package models

import "time"

// Node labels
const (
	LabelFunder       = "Funder"
	LabelGrant        = "Grant"
	LabelOrganization = "Organization"
	LabelPerson       = "Person"
	LabelContribution = "Contribution"
)

// Relationship types
const (
	RelOffers      = "OFFERS"      // Funder -> Grant
	RelFunded      = "FUNDED"      // Grant -> Organization
	RelContributed = "CONTRIBUTED" // Person/Organization -> Contribution
	RelAt          = "AT"          // Contribution -> Organization
)

// MoneyRange is a bounded numeric amount with an optional currency.
// Stored flattened (<name>Min/<name>Max/<name>Currency), never nested.
type MoneyRange struct {
	Min      float64 `json:"min"`
	Max      float64 `json:"max"`
	Currency string  `json:"currency,omitempty"`
}

// ToMap renders the range in the codec's composite shape.
func (r MoneyRange) ToMap() map[string]any {
	m := map[string]any{"min": r.Min, "max": r.Max}
	if r.Currency != "" {
		m["currency"] = r.Currency
	}
	return m
}

// GeoPoint is a geographic position with an optional region name.
// Stored flattened (<name>Lat/<name>Lng/<name>Region), never nested.
type GeoPoint struct {
	Lat    float64 `json:"lat"`
	Lng    float64 `json:"lng"`
	Region string  `json:"region,omitempty"`
}

// ToMap renders the point in the codec's composite shape.
func (p GeoPoint) ToMap() map[string]any {
	m := map[string]any{"lat": p.Lat, "lng": p.Lng}
	if p.Region != "" {
		m["region"] = p.Region
	}
	return m
}

// Funder is a grant-making entity (foundation, government agency, ...).
type Funder struct {
	Name        string   `json:"name"`
	EIN         string   `json:"ein,omitempty"`
	Type        string   `json:"type,omitempty"` // "foundation", "government", ...
	FocusAreas  []string `json:"focus_areas,omitempty"`
	GeoFocus    []string `json:"geo_focus,omitempty"`
	TotalGiving int64    `json:"total_giving,omitempty"`
	Source      string   `json:"source,omitempty"`
}

// Properties renders the funder for the property codec. Zero-valued
// optionals are omitted rather than stored as nulls.
func (f Funder) Properties() map[string]any {
	props := map[string]any{"name": f.Name}
	putString(props, "ein", f.EIN)
	putString(props, "type", f.Type)
	putStrings(props, "focusAreas", f.FocusAreas)
	putStrings(props, "geoFocus", f.GeoFocus)
	if f.TotalGiving != 0 {
		props["totalGiving"] = f.TotalGiving
	}
	putString(props, "source", f.Source)
	return props
}

// Grant is a funding opportunity issued by a funder.
type Grant struct {
	OpportunityID string      `json:"opportunity_id,omitempty"`
	Title         string      `json:"title"`
	AgencyName    string      `json:"agency_name,omitempty"`
	Description   string      `json:"description,omitempty"`
	Amount        *MoneyRange `json:"amount,omitempty"`
	Deadline      time.Time   `json:"deadline,omitempty"`
	FocusAreas    []string    `json:"focus_areas,omitempty"`
	Source        string      `json:"source,omitempty"`
}

func (g Grant) Properties() map[string]any {
	props := map[string]any{"title": g.Title}
	putString(props, "opportunityId", g.OpportunityID)
	putString(props, "agencyName", g.AgencyName)
	putString(props, "description", g.Description)
	if g.Amount != nil {
		props["amount"] = g.Amount.ToMap()
	}
	if !g.Deadline.IsZero() {
		props["deadline"] = g.Deadline
	}
	putStrings(props, "focusAreas", g.FocusAreas)
	putString(props, "source", g.Source)
	return props
}

// Organization is a grant-seeking or community organization.
type Organization struct {
	Name       string    `json:"name"`
	EIN        string    `json:"ein,omitempty"`
	Mission    string    `json:"mission,omitempty"`
	FocusAreas []string  `json:"focus_areas,omitempty"`
	GeoFocus   []string  `json:"geo_focus,omitempty"`
	Location   *GeoPoint `json:"location,omitempty"`
	Source     string    `json:"source,omitempty"`
}

func (o Organization) Properties() map[string]any {
	props := map[string]any{"name": o.Name}
	putString(props, "ein", o.EIN)
	putString(props, "mission", o.Mission)
	putStrings(props, "focusAreas", o.FocusAreas)
	putStrings(props, "geoFocus", o.GeoFocus)
	if o.Location != nil {
		props["location"] = o.Location.ToMap()
	}
	putString(props, "source", o.Source)
	return props
}

// Person is an individual donor, volunteer, or contact.
type Person struct {
	Name      string    `json:"name"`
	Email     string    `json:"email,omitempty"`
	Location  *GeoPoint `json:"location,omitempty"`
	Interests []string  `json:"interests,omitempty"`
	Source    string    `json:"source,omitempty"`
}

func (p Person) Properties() map[string]any {
	props := map[string]any{"name": p.Name}
	putString(props, "email", p.Email)
	if p.Location != nil {
		props["location"] = p.Location.ToMap()
	}
	putStrings(props, "interests", p.Interests)
	putString(props, "source", p.Source)
	return props
}

// Contribution is a discrete act of giving - money, time, or goods.
type Contribution struct {
	Kind        string    `json:"kind"` // "donation", "volunteer", "in_kind"
	Description string    `json:"description,omitempty"`
	Amount      float64   `json:"amount,omitempty"`
	Hours       float64   `json:"hours,omitempty"`
	CreatedAt   time.Time `json:"created_at,omitempty"`
	Source      string    `json:"source,omitempty"`
}

func (c Contribution) Properties() map[string]any {
	props := map[string]any{"kind": c.Kind}
	putString(props, "description", c.Description)
	if c.Amount != 0 {
		props["amount"] = c.Amount
	}
	if c.Hours != 0 {
		props["hours"] = c.Hours
	}
	if !c.CreatedAt.IsZero() {
		props["createdAt"] = c.CreatedAt
	}
	putString(props, "source", c.Source)
	return props
}

func putString(props map[string]any, key, value string) {
	if value != "" {
		props[key] = value
	}
}

func putStrings(props map[string]any, key string, values []string) {
	if len(values) > 0 {
		props[key] = values
	}
}
