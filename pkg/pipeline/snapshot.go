package pipeline

import (
	"time"

	"github.com/teslashibe/go-camctl/pkg/camera"
	"github.com/teslashibe/go-camctl/pkg/detection"
	"github.com/teslashibe/go-camctl/pkg/exposure"
)

// Snapshot is everything a render sink needs for one draw.
// Boxes may differ between any two snapshots and is never nil.
type Snapshot struct {
	Session          string           `json:"session"`
	Seq              uint64           `json:"seq"`
	Timestamp        time.Time        `json:"timestamp"`
	ISO              float64          `json:"iso"`
	ExposureDuration time.Duration    `json:"exposure_duration"`
	WhiteBalance     exposure.Gains   `json:"white_balance"`
	Luminance        float64          `json:"luminance"`
	Scene            SceneColor       `json:"scene"`
	Boxes            []detection.Rect `json:"boxes"`
	Ready            bool             `json:"ready"`
	Mode             Mode             `json:"mode"`
	AutoExposure     bool             `json:"auto_exposure"`
	Stats            Stats            `json:"stats"`

	// Manual holds the settings the next apply would write, when a
	// manual settings manager is attached.
	Manual *camera.ManualSettings `json:"manual,omitempty"`
}

// SceneColor is the normalized per-channel mean of the last frame seen in
// algo mode. Zero until then.
type SceneColor struct {
	Red   float64 `json:"red"`
	Green float64 `json:"green"`
	Blue  float64 `json:"blue"`
}
