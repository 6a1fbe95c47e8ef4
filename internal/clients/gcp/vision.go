package gcp

import (
	"context"
	"fmt"
	"strings"

	vision "cloud.google.com/go/vision/v2/apiv1"
	visionpb "cloud.google.com/go/vision/v2/apiv1/visionpb"
)

// OCRResult is the text extraction collaborator's answer for one image
type OCRResult struct {
	Text       string
	Confidence float64 // in [0,1], averaged over detected blocks
}

// VisionClient wraps the Cloud Vision document text detection API as the
// pipeline's OCR collaborator.
type VisionClient struct {
	client *vision.ImageAnnotatorClient
}

// NewVisionClient creates the OCR collaborator client
func NewVisionClient(ctx context.Context) (*VisionClient, error) {
	client, err := vision.NewImageAnnotatorClient(ctx, ClientOptionsFromEnv()...)
	if err != nil {
		return nil, fmt.Errorf("creating vision client: %w", err)
	}
	return &VisionClient{client: client}, nil
}

// Extract runs document text detection on the image bytes and returns the
// recognized text with an aggregate confidence score.
func (v *VisionClient) Extract(ctx context.Context, image []byte, languageHints []string) (*OCRResult, error) {
	if len(image) == 0 {
		return &OCRResult{}, nil
	}

	req := &visionpb.AnnotateImageRequest{
		Image: &visionpb.Image{Content: image},
		Features: []*visionpb.Feature{
			{Type: visionpb.Feature_DOCUMENT_TEXT_DETECTION},
		},
	}
	if len(languageHints) > 0 {
		req.ImageContext = &visionpb.ImageContext{LanguageHints: languageHints}
	}

	resp, err := v.client.BatchAnnotateImages(ctx, &visionpb.BatchAnnotateImagesRequest{
		Requests: []*visionpb.AnnotateImageRequest{req},
	})
	if err != nil {
		return nil, fmt.Errorf("vision BatchAnnotateImages: %w", err)
	}
	if resp == nil || len(resp.Responses) == 0 || resp.Responses[0] == nil {
		return &OCRResult{}, nil
	}

	r0 := resp.Responses[0]
	if r0.Error != nil && r0.Error.Message != "" {
		return nil, fmt.Errorf("vision annotate error: %s", r0.Error.Message)
	}

	fta := r0.FullTextAnnotation
	if fta == nil || strings.TrimSpace(fta.Text) == "" {
		return &OCRResult{}, nil
	}

	return &OCRResult{
		Text:       strings.TrimSpace(fta.Text),
		Confidence: pageConfidence(fta.Pages),
	}, nil
}

// Close releases the underlying API client
func (v *VisionClient) Close() error {
	return v.client.Close()
}

// pageConfidence averages block confidence over all pages
func pageConfidence(pages []*visionpb.Page) float64 {
	var sum float64
	var n int
	for _, pg := range pages {
		if pg == nil {
			continue
		}
		for _, b := range pg.Blocks {
			if b == nil {
				continue
			}
			sum += float64(b.Confidence)
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}
