package gcp

import (
	"context"
	"fmt"

	"google.golang.org/api/option"
	gtransport "google.golang.org/api/transport/grpc"
	ttspb "google.golang.org/genproto/googleapis/cloud/texttospeech/v1beta1"
	"google.golang.org/grpc"

	"github.com/familytales/memorybook-api/pkg/wav"
)

const (
	ttsEndpoint = "texttospeech.googleapis.com:443"
	ttsScope    = "https://www.googleapis.com/auth/cloud-platform"
)

// Timepoint reports the audio time at which a named SSML mark was reached
type Timepoint struct {
	Mark    string
	Seconds float64
}

// SpeechResult is the synthesis collaborator's answer for one request.
// Audio is LINEAR16 WAV so duration is computable from the byte length.
type SpeechResult struct {
	Audio      []byte
	SampleRate int
	Duration   float64
	Timepoints []Timepoint
}

// VoiceConfig selects the synthesis voice
type VoiceConfig struct {
	Name         string
	LanguageCode string
	SpeakingRate float64
	SampleRate   int
}

// TTSClient wraps the Cloud Text-to-Speech API as the pipeline's
// narration synthesis collaborator. SSML mark timepoints, which the
// segment timeline depends on, exist only on the v1beta1 surface; that
// surface has no generated client in the Go SDK, so the service is
// dialed directly over gRPC with the v1beta1 protos.
type TTSClient struct {
	conn   *grpc.ClientConn
	client ttspb.TextToSpeechClient
}

// NewTTSClient creates the TTS collaborator client
func NewTTSClient(ctx context.Context) (*TTSClient, error) {
	opts := append(ClientOptionsFromEnv(),
		option.WithEndpoint(ttsEndpoint),
		option.WithScopes(ttsScope),
	)
	conn, err := gtransport.Dial(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("dialing text-to-speech service: %w", err)
	}
	return &TTSClient{conn: conn, client: ttspb.NewTextToSpeechClient(conn)}, nil
}

// Synthesize converts SSML into one continuous audio clip. Timepoints are
// requested for every <mark> in the input; providers may return none, in
// which case the caller falls back to a proportional timing estimate.
func (t *TTSClient) Synthesize(ctx context.Context, ssml string, voice VoiceConfig) (*SpeechResult, error) {
	req := &ttspb.SynthesizeSpeechRequest{
		Input: &ttspb.SynthesisInput{
			InputSource: &ttspb.SynthesisInput_Ssml{Ssml: ssml},
		},
		Voice: &ttspb.VoiceSelectionParams{
			LanguageCode: voice.LanguageCode,
			Name:         voice.Name,
		},
		AudioConfig: &ttspb.AudioConfig{
			AudioEncoding:   ttspb.AudioEncoding_LINEAR16,
			SpeakingRate:    voice.SpeakingRate,
			SampleRateHertz: int32(voice.SampleRate),
		},
		EnableTimePointing: []ttspb.SynthesizeSpeechRequest_TimepointType{
			ttspb.SynthesizeSpeechRequest_SSML_MARK,
		},
	}

	resp, err := t.client.SynthesizeSpeech(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("tts SynthesizeSpeech: %w", err)
	}
	if len(resp.AudioContent) == 0 {
		return nil, fmt.Errorf("tts returned empty audio content")
	}

	points := make([]Timepoint, 0, len(resp.Timepoints))
	for _, tp := range resp.Timepoints {
		if tp == nil {
			continue
		}
		points = append(points, Timepoint{Mark: tp.MarkName, Seconds: tp.TimeSeconds})
	}

	return &SpeechResult{
		Audio:      resp.AudioContent,
		SampleRate: voice.SampleRate,
		Duration:   wav.Duration(resp.AudioContent, voice.SampleRate),
		Timepoints: points,
	}, nil
}

// Close releases the underlying connection
func (t *TTSClient) Close() error {
	if t.conn == nil {
		return nil
	}
	return t.conn.Close()
}
