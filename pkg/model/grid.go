package model

import (
	"errors"
	"fmt"
)

var ErrUnknownWeather = errors.New("unknown weather")

const (
	GridSize = 20
	// grid value sent for drivers starting from the pit lane
	PitLaneGrid = GridSize + 1
)

type Collection string

const (
	CollectionGrid      Collection = "grid"
	CollectionPitLane   Collection = "pit-lane"
	CollectionNotRacing Collection = "not-racing"
)

func (c Collection) Valid() bool {
	switch c {
	case CollectionGrid, CollectionPitLane, CollectionNotRacing:
		return true
	}
	return false
}

// Entry is a driver/constructor pair. The zero value is an empty entry.
type Entry struct {
	Driver      string `json:"driver"`
	Constructor string `json:"constructor"`
}

func (e Entry) IsEmpty() bool {
	return e.Driver == ""
}

type GridSlot struct {
	Index int `json:"index"`
	Entry
}

type Weather string

const (
	WeatherDry   Weather = "Dry"
	WeatherMixed Weather = "Mixed"
	WeatherWet   Weather = "Wet"
)

func ParseWeather(s string) (Weather, error) {
	switch w := Weather(s); w {
	case WeatherDry, WeatherMixed, WeatherWet:
		return w, nil
	case "":
		return WeatherDry, nil
	}
	return "", fmt.Errorf("%w %q", ErrUnknownWeather, s)
}

// RaceEntry is a single line of the prediction request
type RaceEntry struct {
	Driver      string `json:"driver"`
	Constructor string `json:"constructor"`
	Grid        int    `json:"grid"`
}
