package models

import "math"

type Service struct {
	ID       int64   `json:"id" yaml:"id"`
	Category string  `json:"category" yaml:"category"`
	Name     string  `json:"name" yaml:"name"`
	Price    float64 `json:"price" yaml:"price"`
	Duration float64 `json:"duration" yaml:"duration"` // hours, may be fractional
}

// Minutes returns the service length in whole minutes.
func (s Service) Minutes() int {
	return HoursToMinutes(s.Duration)
}

type Staff struct {
	ID   int64  `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
}

type StaffService struct {
	StaffID   int64 `json:"staff_id" yaml:"staff_id"`
	ServiceID int64 `json:"service_id" yaml:"service_id"`
}

// Catalog is the seed document read from catalog.yaml.
type Catalog struct {
	Services      []Service      `json:"services" yaml:"services"`
	Staff         []Staff        `json:"staff" yaml:"staff"`
	StaffServices []StaffService `json:"staff_services" yaml:"staff_services"`
}

func HoursToMinutes(hours float64) int {
	return int(math.Round(hours * 60))
}
