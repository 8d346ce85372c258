// This file implements logo image processing for company profiles.
package service

import (
	"bytes"
	"fmt"
	"image"
	"io"

	"github.com/disintegration/imaging"

	"github.com/tbouquin/artisia/internal/domain"
)

// =============================================================================
// Interface Definition
// =============================================================================

// LogoProcessor normalizes uploaded logo images.
type LogoProcessor interface {
	// ProcessLogo decodes the uploaded image and downscales it to fit
	// within the stored logo bounding box, preserving aspect ratio.
	// The output is always PNG so transparency survives.
	ProcessLogo(data io.Reader) ([]byte, error)
}

// =============================================================================
// Implementation
// =============================================================================

// imagingProcessor implements LogoProcessor using the imaging library.
type imagingProcessor struct{}

// NewImagingProcessor creates a new logo processor using the imaging library.
func NewImagingProcessor() LogoProcessor {
	return &imagingProcessor{}
}

// ProcessLogo decodes, downscales and re-encodes an uploaded logo.
//
// Images already smaller than the bounding box keep their dimensions;
// imaging.Fit never upscales.
func (p *imagingProcessor) ProcessLogo(data io.Reader) ([]byte, error) {
	img, _, err := image.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	logo := imaging.Fit(img, domain.LogoMaxDimension, domain.LogoMaxDimension, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, logo, imaging.PNG); err != nil {
		return nil, fmt.Errorf("failed to encode logo: %w", err)
	}

	return buf.Bytes(), nil
}
