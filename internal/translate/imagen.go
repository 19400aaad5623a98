package translate

import (
	"strconv"
	"strings"

	"github.com/n0madic/go-vertexproxy/internal/types"
)

// maxImagenSamples is the largest sampleCount Imagen accepts per request.
const maxImagenSamples = 4

// ImagesToImagenPredict converts an OpenAI images.generations request into
// the Imagen :predict body.
func ImagesToImagenPredict(req *types.ImageGenerationRequest) types.ImagenPredictRequest {
	n := req.N
	if n < 1 {
		n = 1
	}
	if n > maxImagenSamples {
		n = maxImagenSamples
	}
	return types.ImagenPredictRequest{
		Instances: []types.ImagenInstance{{Prompt: req.Prompt}},
		Parameters: types.ImagenParameters{
			SampleCount:   n,
			AspectRatio:   AspectRatioFromSize(req.Size),
			SafetySetting: "block_medium_and_above",
		},
	}
}

// AspectRatioFromSize maps an OpenAI "WxH" size string to an Imagen aspect
// ratio: landscape 16:9, portrait 9:16, anything else 1:1.
func AspectRatioFromSize(size string) string {
	w, h, ok := parseSize(size)
	if !ok {
		return "1:1"
	}
	switch {
	case w > h:
		return "16:9"
	case h > w:
		return "9:16"
	default:
		return "1:1"
	}
}

func parseSize(size string) (w, h int, ok bool) {
	parts := strings.SplitN(strings.ToLower(strings.TrimSpace(size)), "x", 2)
	if len(parts) != 2 {
		return 0, 0, false
	}
	w, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, false
	}
	h, err = strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, false
	}
	return w, h, true
}
