package tts

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"strings"
	"time"

	"CareCompanion/pkg/errors"
	"CareCompanion/pkg/storage"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

const defaultBaseURL = "https://api.elevenlabs.io"

// Synthesizer turns text into a playable audio URL.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) (string, error)
}

type Config struct {
	APIKey     string
	VoiceID    string
	Model      string
	BaseURL    string
	Timeout    time.Duration
	Stability  float64
	Similarity float64
}

// ElevenLabs calls the ElevenLabs text-to-speech API. Audio is returned as a
// data URL unless an object store is attached, in which case the clip is
// uploaded and its public URL returned.
type ElevenLabs struct {
	cfg    Config
	client *resty.Client
	store  storage.Store
	logger *zap.Logger
}

func NewElevenLabs(cfg Config, store storage.Store, logger *zap.Logger) *ElevenLabs {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Stability == 0 {
		cfg.Stability = 0.5
	}
	if cfg.Similarity == 0 {
		cfg.Similarity = 0.75
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "audio/mpeg")
	return &ElevenLabs{cfg: cfg, client: client, store: store, logger: logger}
}

func (e *ElevenLabs) Model() string { return e.cfg.Model }

func (e *ElevenLabs) Synthesize(ctx context.Context, text string) (string, error) {
	if e.cfg.APIKey == "" {
		return "", errors.NotConfigured("ELEVENLABS_API_KEY")
	}
	if strings.TrimSpace(text) == "" {
		return "", errors.WithCode(errors.CodeInvalidInput, "empty text for speech")
	}
	resp, err := e.client.R().
		SetContext(ctx).
		SetHeader("xi-api-key", e.cfg.APIKey).
		SetPathParam("voiceId", e.cfg.VoiceID).
		SetBody(map[string]any{
			"text":     text,
			"model_id": e.cfg.Model,
			"voice_settings": map[string]float64{
				"stability":        e.cfg.Stability,
				"similarity_boost": e.cfg.Similarity,
			},
		}).
		Post("/v1/text-to-speech/{voiceId}")
	if err != nil {
		return "", errors.Upstream(err, "elevenlabs")
	}
	if resp.IsError() {
		e.logger.Error("ElevenLabs API error",
			zap.Int("status_code", resp.StatusCode()),
			zap.String("body", truncate(resp.String(), 200)))
		return "", errors.WithCodef(errors.CodeUpstream, "elevenlabs returned %d", resp.StatusCode())
	}
	audio := resp.Body()

	if e.store != nil {
		url, err := e.store.Put(ctx, audioKey(e.cfg.VoiceID, text), audio, "audio/mpeg")
		if err == nil {
			return url, nil
		}
		e.logger.Warn("audio upload failed, returning inline audio", zap.Error(err))
	}
	return DataURL(audio), nil
}

// DataURL inlines mp3 bytes.
func DataURL(audio []byte) string {
	return "data:audio/mpeg;base64," + base64.StdEncoding.EncodeToString(audio)
}

// identical text and voice map to the same object
func audioKey(voice, text string) string {
	sum := sha256.Sum256([]byte(voice + "\x00" + text))
	return "tts/" + hex.EncodeToString(sum[:16]) + ".mp3"
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
