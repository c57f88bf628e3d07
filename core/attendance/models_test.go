package attendance

import (
	"testing"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/mahadhurio/core"
	"github.com/trezcool/mahadhurio/core/geofence"
)

func newValidate(t *testing.T) *validator.Validate {
	t.Helper()
	validate := validator.New()
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	core.InitValidators(validate, translator)
	return validate
}

func TestNewCaptureValidate(t *testing.T) {
	validate := newValidate(t)

	tests := []struct {
		name    string
		capture NewCapture
		wantErr bool
	}{
		{
			name: "valid onsite",
			capture: NewCapture{
				ScheduleID:  "sch-1",
				Method:      MethodOnsite,
				Coordinates: &geofence.Point{Latitude: 5.6037, Longitude: -0.1870},
			},
		},
		{
			name: "valid virtual start",
			capture: NewCapture{
				ScheduleID:    "sch-1",
				Method:        MethodVirtual,
				VirtualAction: VirtualActionStart,
			},
		},
		{
			name:    "missing schedule",
			capture: NewCapture{Method: MethodOnsite, Coordinates: &geofence.Point{Latitude: 1, Longitude: 1}},
			wantErr: true,
		},
		{
			name:    "unknown method",
			capture: NewCapture{ScheduleID: "sch-1", Method: "telepathy"},
			wantErr: true,
		},
		{
			name:    "onsite without coordinates",
			capture: NewCapture{ScheduleID: "sch-1", Method: MethodOnsite},
			wantErr: true,
		},
		{
			name: "latitude out of range",
			capture: NewCapture{
				ScheduleID:  "sch-1",
				Method:      MethodOnsite,
				Coordinates: &geofence.Point{Latitude: 91, Longitude: 0},
			},
			wantErr: true,
		},
		{
			name: "longitude out of range",
			capture: NewCapture{
				ScheduleID:  "sch-1",
				Method:      MethodOnsite,
				Coordinates: &geofence.Point{Latitude: 0, Longitude: -181},
			},
			wantErr: true,
		},
		{
			name:    "virtual without action",
			capture: NewCapture{ScheduleID: "sch-1", Method: MethodVirtual},
			wantErr: true,
		},
		{
			name:    "virtual with bad action",
			capture: NewCapture{ScheduleID: "sch-1", Method: MethodVirtual, VirtualAction: "pause"},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.capture.Validate(validate)
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestNewDecisionValidate(t *testing.T) {
	validate := newValidate(t)

	if err := (&NewDecision{Decision: "  VERIFIED "}).Validate(validate); err != nil {
		t.Errorf("Validate() error = %v for cleanable decision", err)
	}
	if err := (&NewDecision{Decision: "maybe"}).Validate(validate); err == nil {
		t.Error("Validate() accepted an unknown decision")
	}
	if err := (&NewDecision{}).Validate(validate); err == nil {
		t.Error("Validate() accepted an empty decision")
	}
}

func TestResolveEscalationValidate(t *testing.T) {
	validate := newValidate(t)

	if err := (&ResolveEscalation{Decision: "approve"}).Validate(validate); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
	if err := (&ResolveEscalation{Decision: "shrug"}).Validate(validate); err == nil {
		t.Error("Validate() accepted an unknown decision")
	}
}
