package ocr

import (
	"context"
	"fmt"
	"image"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	rektypes "github.com/aws/aws-sdk-go-v2/service/rekognition/types"
)

// Rekognition recognizes text through the AWS Rekognition DetectText API.
// The service has no page-segmentation or whitelist controls, so those
// Config fields are advisory; the first detected LINE is taken as the
// result, which matches a title crop containing a single line of text.
type Rekognition struct {
	client    *rekognition.Client
	available bool
	initErr   string
}

// NewRekognition loads the default AWS configuration chain (environment,
// shared config, instance role) and builds the client. A failed load yields
// an engine that reports unavailable rather than an error; credential
// problems past that point surface as per-call failures.
func NewRekognition(ctx context.Context, region string) *Rekognition {
	var loadOpts []func(*awsconfig.LoadOptions) error
	if region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(region))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return &Rekognition{initErr: err.Error()}
	}

	return &Rekognition{
		client:    rekognition.NewFromConfig(cfg),
		available: true,
	}
}

// Recognize submits img to DetectText and returns the first LINE detection.
// No detected line is an empty string, not an error: the selector treats it
// as "no candidate".
func (r *Rekognition) Recognize(ctx context.Context, img image.Image, cfg Config) (string, error) {
	if !r.available {
		return "", ErrUnavailable
	}

	data, err := encodePNG(img)
	if err != nil {
		return "", err
	}

	out, err := r.client.DetectText(ctx, &rekognition.DetectTextInput{
		Image: &rektypes.Image{Bytes: data},
	})
	if err != nil {
		return "", fmt.Errorf("detect text: %w", err)
	}

	return firstLine(out.TextDetections), nil
}

// firstLine picks the first LINE detection in service order. Rekognition
// reports lines top to bottom, so for a title crop this is the title.
func firstLine(detections []rektypes.TextDetection) string {
	for _, d := range detections {
		if d.Type != rektypes.TextTypesLine {
			continue
		}
		if d.DetectedText == nil {
			continue
		}
		return *d.DetectedText
	}
	return ""
}

// Available reports whether the AWS configuration chain resolved at
// construction.
func (r *Rekognition) Available() bool { return r.available }

// Name identifies the backend.
func (r *Rekognition) Name() string { return BackendRekognition }

// InitError describes why construction failed, or empty when available.
func (r *Rekognition) InitError() string { return r.initErr }
