package types

// ImagenPredictRequest is the Imagen :predict body.
type ImagenPredictRequest struct {
	Instances  []ImagenInstance `json:"instances"`
	Parameters ImagenParameters `json:"parameters"`
}

// ImagenInstance carries the generation prompt.
type ImagenInstance struct {
	Prompt string `json:"prompt"`
}

// ImagenParameters is the :predict parameters block.
type ImagenParameters struct {
	SampleCount   int    `json:"sampleCount"`
	AspectRatio   string `json:"aspectRatio,omitempty"`
	SafetySetting string `json:"safetySetting,omitempty"`
}

// ImagenPredictResponse is the :predict response.
type ImagenPredictResponse struct {
	Predictions []ImagenPrediction `json:"predictions"`
}

// ImagenPrediction is one generated image.
type ImagenPrediction struct {
	BytesBase64Encoded string `json:"bytesBase64Encoded"`
	MimeType           string `json:"mimeType,omitempty"`
}
