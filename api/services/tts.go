package services

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/scsonic/nexavatar/shared/circuit"
)

// Voices lists the selectable speech voices.
var Voices = map[string]string{
	"zh-TW-HsiaoChenNeural": "曉晨 (女聲)",
	"zh-TW-YunJheNeural":    "雲哲 (男聲)",
	"zh-TW-HsiaoYuNeural":   "曉雨 (女聲)",
	"zh-CN-XiaoxiaoNeural":  "曉曉 (女聲)",
	"zh-CN-YunxiNeural":     "雲希 (男聲)",
}

// TTSResult carries the synthesized speech as base64 audio.
type TTSResult struct {
	AudioData string `json:"audio_data"`
	Success   bool   `json:"success"`
}

// TTSService synthesizes speech through an external HTTP backend. The
// breaker shields the backend while it is failing.
type TTSService struct {
	client       *http.Client
	breaker      *circuit.Breaker
	url          string
	defaultVoice string
}

// NewTTSService creates a new TTS service. url may be empty, in which
// case synthesis is reported as unconfigured.
func NewTTSService(client *http.Client, breaker *circuit.Breaker, url, defaultVoice string) *TTSService {
	if defaultVoice == "" {
		defaultVoice = "zh-TW-HsiaoChenNeural"
	}
	return &TTSService{client: client, breaker: breaker, url: url, defaultVoice: defaultVoice}
}

// DefaultVoice returns the voice used when a request names none.
func (svc *TTSService) DefaultVoice() string {
	return svc.defaultVoice
}

// Configured reports whether a backend URL is set.
func (svc *TTSService) Configured() bool {
	return svc.url != ""
}

// Synthesize converts text into base64-encoded audio.
func (svc *TTSService) Synthesize(ctx context.Context, text, voice string) (*TTSResult, error) {
	if svc.url == "" {
		return nil, fmt.Errorf("tts backend not configured")
	}
	if _, ok := Voices[voice]; !ok {
		voice = svc.defaultVoice
	}

	body, err := json.Marshal(map[string]string{"text": text, "voice": voice})
	if err != nil {
		return nil, err
	}

	var audio []byte
	err = svc.breaker.Do(func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, svc.url, bytes.NewReader(body))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := svc.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("tts backend returned %d", resp.StatusCode)
		}

		audio, err = io.ReadAll(resp.Body)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("synthesize speech: %w", err)
	}

	return &TTSResult{
		AudioData: base64.StdEncoding.EncodeToString(audio),
		Success:   true,
	}, nil
}
