package models

import (
	"encoding/json"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
)

// Location is a geographic point with a free-text address.
// Postgres stores it as three columns; JSON and BSON use a GeoJSON-like
// shape: {"type":"Point","coordinates":[lng,lat],"address":"..."}.
type Location struct {
	Longitude float64 `gorm:"column:longitude;index:idx_complaint_geo"`
	Latitude  float64 `gorm:"column:latitude;index:idx_complaint_geo"`
	Address   string  `gorm:"column:address;type:text"`
}

type geoPoint struct {
	Type        string    `json:"type" bson:"type"`
	Coordinates []float64 `json:"coordinates" bson:"coordinates"`
	Address     string    `json:"address,omitempty" bson:"address,omitempty"`
}

var errBadCoordinates = errors.New("location: coordinates must be [longitude, latitude]")

// Coordinates returns the point as [lng, lat].
func (l Location) Coordinates() [2]float64 {
	return [2]float64{l.Longitude, l.Latitude}
}

func (l Location) point() geoPoint {
	return geoPoint{
		Type:        "Point",
		Coordinates: []float64{l.Longitude, l.Latitude},
		Address:     l.Address,
	}
}

func (l *Location) fromPoint(p geoPoint) error {
	if len(p.Coordinates) != 2 {
		return errBadCoordinates
	}
	l.Longitude = p.Coordinates[0]
	l.Latitude = p.Coordinates[1]
	l.Address = p.Address
	return nil
}

func (l Location) MarshalJSON() ([]byte, error) {
	return json.Marshal(l.point())
}

func (l *Location) UnmarshalJSON(data []byte) error {
	var p geoPoint
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	return l.fromPoint(p)
}

func (l Location) MarshalBSON() ([]byte, error) {
	return bson.Marshal(l.point())
}

func (l *Location) UnmarshalBSON(data []byte) error {
	var p geoPoint
	if err := bson.Unmarshal(data, &p); err != nil {
		return err
	}
	return l.fromPoint(p)
}

// Valid reports whether the point lies within WGS84 bounds.
func (l Location) Valid() bool {
	return l.Longitude >= -180 && l.Longitude <= 180 && l.Latitude >= -90 && l.Latitude <= 90
}
