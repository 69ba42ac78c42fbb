package packager

import (
	"context"
	"image"

	"grayblend/internal/blend"
)

// Preview decodes and blends a single input without encoding it, for
// interactive display. Callers preview the first uploaded item only.
func Preview(ctx context.Context, input InputImage, opts Options) (image.Image, error) {
	if err := blend.ValidateIntensity(opts.Intensity); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	log := opts.logger().With("name", input.Name)
	img, err := decode(input.Data, opts, log)
	if err != nil {
		return nil, &ItemError{Op: OpDecode, Name: input.Name, Err: err}
	}
	return blend.Blend(img, opts.Intensity), nil
}
