package models

import (
	"errors"
	"fmt"
)

// Units is the temperature unit system of a user.
type Units string

const (
	Celsius    Units = "celsius"
	Fahrenheit Units = "fahrenheit"

	DefaultUnits = Celsius
)

var ErrInvalidUnits = errors.New("invalid units")

// ParseUnits accepts only "celsius" and "fahrenheit".
func ParseUnits(s string) (Units, error) {
	switch Units(s) {
	case Celsius, Fahrenheit:
		return Units(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidUnits, s)
	}
}

func (u Units) Valid() bool {
	return u == Celsius || u == Fahrenheit
}

// Preferences are the per-user dashboard settings mirrored into the session.
type Preferences struct {
	SelectedCities []City `json:"selected_cities"`
	Units          Units  `json:"units"`
}

// Clone returns a copy that shares no backing array with p.
func (p Preferences) Clone() Preferences {
	cities := make([]City, len(p.SelectedCities))
	copy(cities, p.SelectedCities)
	return Preferences{SelectedCities: cities, Units: p.Units}
}
