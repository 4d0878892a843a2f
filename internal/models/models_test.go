package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFunder_Properties(t *testing.T) {
	full := Funder{
		Name:        "Gates Foundation",
		EIN:         "56-2618866",
		Type:        "foundation",
		FocusAreas:  []string{"health", "education"},
		TotalGiving: 77000000,
	}
	props := full.Properties()

	assert.Equal(t, "Gates Foundation", props["name"])
	assert.Equal(t, "56-2618866", props["ein"])
	assert.Equal(t, []string{"health", "education"}, props["focusAreas"])
	assert.Equal(t, int64(77000000), props["totalGiving"])

	minimal := Funder{Name: "Local Fund"}.Properties()
	assert.Equal(t, map[string]any{"name": "Local Fund"}, minimal,
		"zero-valued optionals are omitted, not stored as nulls")
}

func TestGrant_Properties(t *testing.T) {
	deadline := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	g := Grant{
		OpportunityID: "X1",
		Title:         "Affordable Housing",
		AgencyName:    "HUD",
		Amount:        &MoneyRange{Min: 1000, Max: 5000, Currency: "USD"},
		Deadline:      deadline,
	}
	props := g.Properties()

	assert.Equal(t, "X1", props["opportunityId"])
	assert.Equal(t, map[string]any{"min": 1000.0, "max": 5000.0, "currency": "USD"}, props["amount"])
	assert.Equal(t, deadline, props["deadline"])

	minimal := Grant{Title: "Untitled"}.Properties()
	assert.NotContains(t, minimal, "amount")
	assert.NotContains(t, minimal, "deadline")
}

func TestOrganization_Properties(t *testing.T) {
	o := Organization{
		Name:     "Shelter Org",
		Location: &GeoPoint{Lat: 40.7128, Lng: -74.006, Region: "NYC"},
	}
	props := o.Properties()

	assert.Equal(t, map[string]any{"lat": 40.7128, "lng": -74.006, "region": "NYC"}, props["location"])
}

func TestMoneyRange_ToMap_OmitsEmptyCurrency(t *testing.T) {
	assert.Equal(t, map[string]any{"min": 1.0, "max": 2.0}, MoneyRange{Min: 1, Max: 2}.ToMap())
}

func TestGeoPoint_ToMap_OmitsEmptyRegion(t *testing.T) {
	assert.Equal(t, map[string]any{"lat": 1.0, "lng": 2.0}, GeoPoint{Lat: 1, Lng: 2}.ToMap())
}

func TestContribution_Properties(t *testing.T) {
	c := Contribution{Kind: "volunteer", Hours: 4.5}
	props := c.Properties()

	assert.Equal(t, "volunteer", props["kind"])
	assert.Equal(t, 4.5, props["hours"])
	assert.NotContains(t, props, "amount")
	assert.NotContains(t, props, "createdAt")
}
