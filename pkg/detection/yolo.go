package detection

import (
	"context"
	"fmt"
	"image"
	"os"
	"sync"

	"github.com/teslashibe/go-camctl/pkg/debug"
	"gocv.io/x/gocv"
)

// YOLODetector uses a YOLOv8 ONNX model for general object detection
type YOLODetector struct {
	net       gocv.Net
	config    YOLOConfig
	mu        sync.Mutex // Net is not safe for concurrent Forward calls
	inputSize image.Point
}

// YOLOConfig holds YOLO detector configuration
type YOLOConfig struct {
	ModelPath        string  `yaml:"model_path"`
	ConfidenceThresh float32 `yaml:"confidence_thresh"`
	NMSThresh        float32 `yaml:"nms_thresh"`
	InputWidth       int     `yaml:"input_width"`
	InputHeight      int     `yaml:"input_height"`
}

// DefaultYOLOConfig returns production defaults for YOLOv8n
func DefaultYOLOConfig() YOLOConfig {
	return YOLOConfig{
		ModelPath:        "models/yolov8n.onnx",
		ConfidenceThresh: 0.5,
		NMSThresh:        0.45,
		InputWidth:       640,
		InputHeight:      640,
	}
}

// Validate checks the config values.
func (c *YOLOConfig) Validate() []string {
	var errors []string
	if c.ModelPath == "" {
		errors = append(errors, "model_path is required")
	}
	if c.ConfidenceThresh <= 0 || c.ConfidenceThresh > 1 {
		errors = append(errors, "confidence_thresh must be in (0, 1]")
	}
	if c.NMSThresh <= 0 || c.NMSThresh > 1 {
		errors = append(errors, "nms_thresh must be in (0, 1]")
	}
	if c.InputWidth <= 0 || c.InputHeight <= 0 {
		errors = append(errors, "input size must be positive")
	}
	return errors
}

// NewYOLO loads the model. Loading is slow; callers typically do it in the
// background and attach the detector once it returns.
func NewYOLO(cfg YOLOConfig) (*YOLODetector, error) {
	if _, err := os.Stat(cfg.ModelPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("model file not found: %s", cfg.ModelPath)
	}

	net := gocv.ReadNetFromONNX(cfg.ModelPath)
	if net.Empty() {
		return nil, fmt.Errorf("failed to load YOLO model from %s", cfg.ModelPath)
	}

	net.SetPreferableBackend(gocv.NetBackendDefault)
	net.SetPreferableTarget(gocv.NetTargetCPU)

	return &YOLODetector{
		net:       net,
		config:    cfg,
		inputSize: image.Pt(cfg.InputWidth, cfg.InputHeight),
	}, nil
}

// Detect finds objects in the frame. The model input is stretched to the
// full frame (scale-fill), so boxes map straight back to normalized frame
// coordinates.
func (d *YOLODetector) Detect(ctx context.Context, frame image.Image) ([]Detection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	img, err := gocv.ImageToMatRGB(frame)
	if err != nil {
		return nil, fmt.Errorf("convert frame: %w", err)
	}
	defer img.Close()

	if img.Empty() {
		return nil, fmt.Errorf("empty image")
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	// Create blob from image
	blob := gocv.BlobFromImage(img, 1.0/255.0, d.inputSize, gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	d.net.SetInput(blob, "")

	output := d.net.Forward("")
	defer output.Close()

	detections := d.parseYOLOv8Output(output)

	if len(detections) > 0 {
		debug.DetectionLog("🔍 YOLO found %d object(s)\n", len(detections))
	}

	return detections, nil
}

// parseYOLOv8Output parses the YOLOv8 output tensor into normalized boxes.
func (d *YOLODetector) parseYOLOv8Output(output gocv.Mat) []Detection {
	var boxes []image.Rectangle
	var confidences []float32
	var classIDs []int

	// YOLOv8 output: [1, 84, 8400]
	// 84 = 4 (cx, cy, w, h in input pixels) + 80 class scores
	sizes := output.Size()
	if len(sizes) != 3 {
		return nil
	}
	cols := sizes[1]
	rows := sizes[2]

	data, err := output.DataPtrFloat32()
	if err != nil {
		return nil
	}

	inW := float32(d.config.InputWidth)
	inH := float32(d.config.InputHeight)

	for i := 0; i < rows; i++ {
		maxScore := float32(0)
		maxClassID := 0

		for c := 4; c < cols; c++ {
			score := data[c*rows+i]
			if score > maxScore {
				maxScore = score
				maxClassID = c - 4
			}
		}

		if maxScore < d.config.ConfidenceThresh {
			continue
		}

		cx := data[0*rows+i]
		cy := data[1*rows+i]
		w := data[2*rows+i]
		h := data[3*rows+i]

		// Keep input-pixel coordinates for NMS, normalize afterwards
		boxes = append(boxes, image.Rect(
			int(cx-w/2), int(cy-h/2),
			int(cx+w/2), int(cy+h/2),
		))
		confidences = append(confidences, maxScore)
		classIDs = append(classIDs, maxClassID)
	}

	if len(boxes) == 0 {
		return nil
	}

	indices := gocv.NMSBoxes(boxes, confidences, d.config.ConfidenceThresh, d.config.NMSThresh)

	detections := make([]Detection, 0, len(indices))
	for _, idx := range indices {
		box := boxes[idx]
		detections = append(detections, Detection{
			Rect: Rect{
				X: float64(float32(box.Min.X) / inW),
				Y: float64(float32(box.Min.Y) / inH),
				W: float64(float32(box.Dx()) / inW),
				H: float64(float32(box.Dy()) / inH),
			}.Clamp(),
			Confidence: float64(confidences[idx]),
			ClassID:    classIDs[idx],
			ClassName:  ClassName(classIDs[idx]),
		})
	}

	return detections
}

// Close releases the detector resources
func (d *YOLODetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.net.Close()
}
