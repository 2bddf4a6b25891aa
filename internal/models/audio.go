package models

import "encoding/json"

// Voices accepted by the speech synthesis endpoint.
var Voices = []string{"alloy", "echo", "fable", "onyx", "nova", "shimmer"}

// AudioSynthesisRequest is the body of POST /api/v1/audio/synthesize.
type AudioSynthesisRequest struct {
	Text           string   `json:"text" validate:"required,max=4096"`
	Voice          string   `json:"voice,omitempty" validate:"omitempty,oneof=alloy echo fable onyx nova shimmer"`
	Speed          *float64 `json:"speed,omitempty" validate:"omitempty,gte=0.25,lte=4"`
	ResponseFormat string   `json:"response_format,omitempty" validate:"omitempty,oneof=mp3 opus aac flac wav pcm"`
	UseCache       bool     `json:"use_cache"`
}

// UnmarshalJSON applies use_cache=true when the field is absent.
func (r *AudioSynthesisRequest) UnmarshalJSON(data []byte) error {
	type plain AudioSynthesisRequest
	aux := plain{UseCache: true}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*r = AudioSynthesisRequest(aux)
	return nil
}

// Validate checks required fields and enumerations.
func (r AudioSynthesisRequest) Validate() error {
	return ValidateStruct(r)
}

// AudioTranscriptionRequest carries an uploaded audio file. Audio is base64
// when the request arrives as JSON (pipeline tasks).
type AudioTranscriptionRequest struct {
	Audio       []byte `json:"audio" validate:"required"`
	Filename    string `json:"filename,omitempty"`
	ContentType string `json:"content_type,omitempty"`
	Language    string `json:"language,omitempty" validate:"omitempty,min=2,max=5"`
	Prompt      string `json:"prompt,omitempty"`
	UseCache    bool   `json:"use_cache"`
}

// Validate checks that audio content is present.
func (r AudioTranscriptionRequest) Validate() error {
	return ValidateStruct(r)
}

// AudioTranscriptionResult is returned by the audio processor.
type AudioTranscriptionResult struct {
	Text     string `json:"text"`
	Model    string `json:"model"`
	Language string `json:"language,omitzero"`
	Cached   bool   `json:"cached"`
}

// AudioSynthesisResult is returned by the audio processor. Audio is base64
// encoded so the result can be cached and embedded in pipeline responses.
type AudioSynthesisResult struct {
	AudioBase64 string `json:"audio_base64"`
	Format      string `json:"format"`
	ContentType string `json:"content_type"`
	SizeBytes   int    `json:"size_bytes"`
	Voice       string `json:"voice"`
	Model       string `json:"model"`
	Cached      bool   `json:"cached"`
}
