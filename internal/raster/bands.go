package raster

import "fmt"

// PermuteBands reorders every pixel's channels in place: output band i is
// taken from input band order[i], where bands 0..3 are R, G, B, A. An
// order shorter than 4 leaves the remaining bands unchanged. The compositor
// applies this to each composed leaf tile canvas when a bandsOrder is
// configured.
func (r *ImageRaster) PermuteBands(order []int) error {
	if len(order) == 0 {
		return nil
	}
	if len(order) > 4 {
		return &InvalidArgumentError{Msg: fmt.Sprintf("raster: bandsOrder has %d entries, at most 4 allowed", len(order))}
	}
	for _, b := range order {
		if b < 0 || b > 3 {
			return &InvalidArgumentError{Msg: fmt.Sprintf("raster: bandsOrder index %d out of range [0, 3]", b)}
		}
	}

	pix := r.pix.Pix
	var in [4]uint8
	for i := 0; i+3 < len(pix); i += 4 {
		copy(in[:], pix[i:i+4])
		for band, from := range order {
			pix[i+band] = in[from]
		}
	}
	return nil
}
