package detection

import (
	"fmt"
	"image"

	"github.com/rs/zerolog/log"
	"gocv.io/x/gocv"

	"crowdmap-worker-go/internal/config"
	"crowdmap-worker-go/internal/models"
)

// YOLODetector wraps a YOLOv8 ONNX network loaded through the OpenCV DNN
// module, pinned to the CPU target.
type YOLODetector struct {
	net           gocv.Net
	inputSize     int
	confThreshold float32
	nmsThreshold  float32
}

// OpenYOLO loads the network from cfg.ModelPath. Heavy: call it once per
// process, through the Resource.
func OpenYOLO(cfg *config.Config) (Detector, error) {
	net := gocv.ReadNetFromONNX(cfg.ModelPath)
	if net.Empty() {
		return nil, fmt.Errorf("failed to read network from %s", cfg.ModelPath)
	}

	if err := net.SetPreferableBackend(gocv.NetBackendDefault); err != nil {
		net.Close()
		return nil, fmt.Errorf("failed to set DNN backend: %w", err)
	}
	if err := net.SetPreferableTarget(gocv.NetTargetCPU); err != nil {
		net.Close()
		return nil, fmt.Errorf("failed to set DNN target: %w", err)
	}

	log.Info().
		Str("model_path", cfg.ModelPath).
		Int("input_size", cfg.ModelInputSize).
		Msg("YOLO network loaded on CPU target")

	return &YOLODetector{
		net:           net,
		inputSize:     cfg.ModelInputSize,
		confThreshold: cfg.ConfThreshold,
		nmsThreshold:  cfg.NMSThreshold,
	}, nil
}

// Detect runs one forward pass. Every Mat allocated here is closed before
// returning, on success and failure alike.
func (d *YOLODetector) Detect(img image.Image) ([]models.Detection, error) {
	mat, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return nil, fmt.Errorf("failed to convert image to Mat: %w", err)
	}
	defer mat.Close()

	blob := gocv.BlobFromImage(mat, 1.0/255.0,
		image.Pt(d.inputSize, d.inputSize), gocv.NewScalar(0, 0, 0, 0), false, false)
	defer blob.Close()

	d.net.SetInput(blob, "")
	out := d.net.Forward("")
	defer out.Close()

	data, err := out.DataPtrFloat32()
	if err != nil {
		return nil, fmt.Errorf("failed to read network output: %w", err)
	}

	bounds := img.Bounds()
	return d.parseOutput(data, bounds.Dx(), bounds.Dy())
}

// parseOutput decodes the flat [1, 4+classes, cells] YOLOv8 tensor: candidate
// boxes above the confidence threshold, scaled back to source pixels, then
// de-duplicated with NMS.
func (d *YOLODetector) parseOutput(data []float32, imgWidth, imgHeight int) ([]models.Detection, error) {
	// Anchor-free heads at strides 8, 16 and 32 (8400 cells at 640).
	s := d.inputSize
	cells := (s/8)*(s/8) + (s/16)*(s/16) + (s/32)*(s/32)
	if cells == 0 || len(data)%cells != 0 {
		return nil, fmt.Errorf("unexpected output tensor size %d for input size %d", len(data), s)
	}
	numClasses := len(data)/cells - 4
	if numClasses <= 0 {
		return nil, fmt.Errorf("output tensor has no class scores (len %d, cells %d)", len(data), cells)
	}

	scaleX := float32(imgWidth) / float32(s)
	scaleY := float32(imgHeight) / float32(s)

	var rects []image.Rectangle
	var scores []float32
	var classIDs []int

	for i := 0; i < cells; i++ {
		classID, conf := 0, float32(0)
		for j := 0; j < numClasses; j++ {
			if cur := data[(4+j)*cells+i]; cur > conf {
				conf = cur
				classID = j
			}
		}
		if conf < d.confThreshold {
			continue
		}

		xc := data[i]
		yc := data[cells+i]
		w := data[2*cells+i]
		h := data[3*cells+i]

		x1 := (xc - w/2) * scaleX
		y1 := (yc - h/2) * scaleY
		x2 := (xc + w/2) * scaleX
		y2 := (yc + h/2) * scaleY

		rects = append(rects, image.Rect(int(x1), int(y1), int(x2), int(y2)))
		scores = append(scores, conf)
		classIDs = append(classIDs, classID)
	}

	if len(rects) == 0 {
		return nil, nil
	}

	keep := gocv.NMSBoxes(rects, scores, d.confThreshold, d.nmsThreshold)

	detections := make([]models.Detection, 0, len(keep))
	for _, idx := range keep {
		r := rects[idx]
		detections = append(detections, models.Detection{
			ClassID:    classIDs[idx],
			Confidence: scores[idx],
			BBox: [4]float32{
				float32(r.Min.X), float32(r.Min.Y),
				float32(r.Max.X), float32(r.Max.Y),
			},
		})
	}
	return detections, nil
}

// Close releases the network.
func (d *YOLODetector) Close() error {
	return d.net.Close()
}
