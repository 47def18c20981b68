package model

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func f64(v float64) *float64 { return &v }
func i64(v int64) *int64     { return &v }

func TestUpdateRequest_Position(t *testing.T) {
	tests := []struct {
		name    string
		req     UpdateRequest
		wantErr bool
	}{
		{
			name: "valid minimal",
			req:  UpdateRequest{CourierID: i64(7), Latitude: f64(10.5), Longitude: f64(20.25)},
		},
		{
			name: "valid with package and telemetry",
			req: UpdateRequest{
				CourierID: i64(7),
				Latitude:  f64(-89.9),
				Longitude: f64(179.9),
				PackageID: i64(99),
				Speed:     f64(12.5),
				Heading:   f64(270),
			},
		},
		{
			name:    "missing courier_id",
			req:     UpdateRequest{Latitude: f64(10), Longitude: f64(20)},
			wantErr: true,
		},
		{
			name:    "missing latitude",
			req:     UpdateRequest{CourierID: i64(7), Longitude: f64(20)},
			wantErr: true,
		},
		{
			name:    "missing longitude",
			req:     UpdateRequest{CourierID: i64(7), Latitude: f64(10)},
			wantErr: true,
		},
		{
			name:    "latitude out of range",
			req:     UpdateRequest{CourierID: i64(7), Latitude: f64(200), Longitude: f64(20.25)},
			wantErr: true,
		},
		{
			name:    "longitude out of range",
			req:     UpdateRequest{CourierID: i64(7), Latitude: f64(10), Longitude: f64(-180.01)},
			wantErr: true,
		},
		{
			name:    "non-positive courier_id",
			req:     UpdateRequest{CourierID: i64(0), Latitude: f64(10), Longitude: f64(20)},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pos, err := tt.req.Position()
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				if !errors.Is(err, ErrInvalidPayload) {
					t.Errorf("error = %v, want ErrInvalidPayload", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Position failed: %v", err)
			}
			if pos.CourierID != *tt.req.CourierID {
				t.Errorf("CourierID = %d, want %d", pos.CourierID, *tt.req.CourierID)
			}
		})
	}
}

func TestPosition_Validate_Boundaries(t *testing.T) {
	tests := []struct {
		name     string
		lat, lon float64
		wantErr  bool
	}{
		{"north pole", 90, 0, false},
		{"south pole", -90, 0, false},
		{"dateline east", 0, 180, false},
		{"dateline west", 0, -180, false},
		{"just over north", 90.0001, 0, true},
		{"just over west", 0, -180.0001, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Position{CourierID: 1, Latitude: tt.lat, Longitude: tt.lon}
			err := p.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestPosition_Time(t *testing.T) {
	p := Position{Timestamp: "2026-08-30T12:00:00Z"}
	want := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	if !p.Time().Equal(want) {
		t.Errorf("Time() = %v, want %v", p.Time(), want)
	}

	if !(Position{Timestamp: "garbage"}).Time().IsZero() {
		t.Error("unparsable timestamp should collapse to zero time")
	}
	if !(Position{}).Time().IsZero() {
		t.Error("empty timestamp should collapse to zero time")
	}
}

func TestPosition_JSON_NullPackage(t *testing.T) {
	p := Position{CourierID: 3, Latitude: 1, Longitude: 2, Timestamp: Now()}

	data, err := json.Marshal(p)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	v, present := m["package_id"]
	if !present {
		t.Fatal("package_id should be serialized even when absent")
	}
	if v != nil {
		t.Errorf("package_id = %v, want null", v)
	}
}

func TestEncodeEvent(t *testing.T) {
	data, err := EncodeEvent(EventError, ErrorPayload{Message: "merchant_id and package_id required"})
	if err != nil {
		t.Fatalf("EncodeEvent failed: %v", err)
	}

	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		t.Fatalf("unmarshal envelope: %v", err)
	}
	if env.Event != EventError {
		t.Errorf("Event = %q, want %q", env.Event, EventError)
	}

	var payload ErrorPayload
	if err := json.Unmarshal(env.Data, &payload); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if payload.Message == "" {
		t.Error("expected non-empty error message")
	}
}
