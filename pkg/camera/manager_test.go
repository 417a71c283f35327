package camera

import (
	"errors"
	"testing"
	"time"
)

func TestManagerDefaults(t *testing.T) {
	m := NewManager()
	if got := m.Settings(); got != DefaultManualSettings() {
		t.Errorf("Settings: got %+v, want defaults", got)
	}
}

func TestManagerSetRejectsInvalid(t *testing.T) {
	m := NewManager()
	err := m.Set(ManualSettings{ISO: 99999})
	if err == nil {
		t.Fatal("expected validation error")
	}
	if got := m.Settings(); got != DefaultManualSettings() {
		t.Errorf("invalid Set changed settings to %+v", got)
	}
}

func TestManagerUpdate(t *testing.T) {
	tests := []struct {
		name    string
		params  map[string]interface{}
		want    ManualSettings
		wantErr bool
	}{
		{
			name:   "iso only",
			params: map[string]interface{}{"iso": 400.0},
			want:   ManualSettings{ExposureDuration: 10 * time.Millisecond, ISO: 400, Temperature: 5000},
		},
		{
			name:   "exposure in seconds",
			params: map[string]interface{}{"exposure": 0.5},
			want:   ManualSettings{ExposureDuration: 500 * time.Millisecond, ISO: 800, Temperature: 5000},
		},
		{
			name:   "int values",
			params: map[string]interface{}{"temperature": 6500, "tint": -20},
			want:   ManualSettings{ExposureDuration: 10 * time.Millisecond, ISO: 800, Temperature: 6500, Tint: -20},
		},
		{
			name:   "preset with override",
			params: map[string]interface{}{"preset": PresetTungsten, "iso": 800},
			want:   ManualSettings{ExposureDuration: time.Second / 60, ISO: 800, Temperature: 3200},
		},
		{
			name:    "unknown preset",
			params:  map[string]interface{}{"preset": "moonlight"},
			wantErr: true,
		},
		{
			name:    "out of range",
			params:  map[string]interface{}{"temperature": 12000.0},
			wantErr: true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			m := NewManager()
			err := m.Update(tc.params)
			if tc.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("Update: %v", err)
			}
			if got := m.Settings(); got != tc.want {
				t.Errorf("Settings: got %+v, want %+v", got, tc.want)
			}
		})
	}
}

func TestManagerApply(t *testing.T) {
	m := NewManager()

	// No callback is a no-op
	if err := m.Apply(); err != nil {
		t.Fatalf("Apply without callback: %v", err)
	}

	var applied []ManualSettings
	m.OnApply = func(s ManualSettings) error {
		applied = append(applied, s)
		return nil
	}

	if err := m.Update(map[string]interface{}{"preset": PresetNight}); err != nil {
		t.Fatal(err)
	}
	if len(applied) != 0 {
		t.Fatal("Update should not apply")
	}

	if err := m.Apply(); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if len(applied) != 1 || applied[0] != NightSettings() {
		t.Errorf("applied: got %+v, want [%+v]", applied, NightSettings())
	}

	boom := errors.New("boom")
	m.OnApply = func(ManualSettings) error { return boom }
	if err := m.Apply(); !errors.Is(err, boom) {
		t.Errorf("Apply error: got %v, want wrapped boom", err)
	}
}

func TestManagerSettingsMap(t *testing.T) {
	m := NewManager()
	got := m.SettingsMap()
	if got["exposure"] != 0.01 {
		t.Errorf("exposure: got %v, want 0.01", got["exposure"])
	}
	if got["iso"] != 800.0 {
		t.Errorf("iso: got %v, want 800", got["iso"])
	}

	// Round trip through Update leaves settings unchanged
	if err := m.Update(got); err != nil {
		t.Fatal(err)
	}
	if m.Settings() != DefaultManualSettings() {
		t.Errorf("round trip changed settings: %+v", m.Settings())
	}
}

func TestManagerAdjust(t *testing.T) {
	tests := []struct {
		name    string
		control Control
		steps   int
		want    ManualSettings
	}{
		{"iso up", ControlISO, 1, ManualSettings{ExposureDuration: 10 * time.Millisecond, ISO: 900, Temperature: 5000}},
		{"iso down clamps", ControlISO, -20, ManualSettings{ExposureDuration: 10 * time.Millisecond, ISO: MinISO, Temperature: 5000}},
		{"exposure up", ControlExposure, 1, ManualSettings{ExposureDuration: 11 * time.Millisecond, ISO: 800, Temperature: 5000}},
		{"exposure down clamps", ControlExposure, -50, ManualSettings{ExposureDuration: MinExposure, ISO: 800, Temperature: 5000}},
		{"temperature up", ControlTemperature, 3, ManualSettings{ExposureDuration: 10 * time.Millisecond, ISO: 800, Temperature: 5300}},
		{"temperature clamps", ControlTemperature, 100, ManualSettings{ExposureDuration: 10 * time.Millisecond, ISO: 800, Temperature: MaxTemperature}},
		{"tint down", ControlTint, -1, ManualSettings{ExposureDuration: 10 * time.Millisecond, ISO: 800, Temperature: 5000, Tint: -1}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			m := NewManager()
			got, err := m.Adjust(tc.control, tc.steps)
			if err != nil {
				t.Fatalf("Adjust: %v", err)
			}
			if got != tc.want {
				t.Errorf("Adjust: got %+v, want %+v", got, tc.want)
			}
			if m.Settings() != tc.want {
				t.Errorf("Settings: got %+v, want %+v", m.Settings(), tc.want)
			}
		})
	}
}

func TestManagerAdjustDoesNotApply(t *testing.T) {
	m := NewManager()
	applied := 0
	m.OnApply = func(ManualSettings) error {
		applied++
		return nil
	}

	if _, err := m.Adjust(ControlISO, 2); err != nil {
		t.Fatal(err)
	}
	if applied != 0 {
		t.Errorf("Adjust applied %d times", applied)
	}

	if _, err := m.Adjust(Control("gain"), 1); err == nil {
		t.Error("expected error for unknown control")
	}
}
