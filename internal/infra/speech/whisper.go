package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/Coder-MayankSaini/Iot-smarthub/internal/infra"
)

// WhisperClient transcribes WAV audio through an OpenAI-compatible
// transcription endpoint.
type WhisperClient struct {
	apiKey     string
	language   string
	baseURL    string
	httpClient *http.Client
}

func NewWhisperClient(apiKey, language string) *WhisperClient {
	return &WhisperClient{
		apiKey:     apiKey,
		language:   language,
		baseURL:    "https://api.openai.com/v1",
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

type transcriptionResponse struct {
	Text string `json:"text"`
}

func (c *WhisperClient) Transcribe(ctx context.Context, audio []byte) (string, error) {
	var result transcriptionResponse

	err := infra.Retry(ctx, 3, 200*time.Millisecond, func() error {
		body := &bytes.Buffer{}
		writer := multipart.NewWriter(body)

		part, err := writer.CreateFormFile("file", "utterance.wav")
		if err != nil {
			return fmt.Errorf("creating form file: %w", err)
		}
		if _, err = part.Write(audio); err != nil {
			return fmt.Errorf("writing audio: %w", err)
		}
		if err = writer.WriteField("model", "whisper-1"); err != nil {
			return fmt.Errorf("writing model field: %w", err)
		}
		if err = writer.WriteField("language", c.language); err != nil {
			return fmt.Errorf("writing language field: %w", err)
		}
		if err = writer.Close(); err != nil {
			return fmt.Errorf("closing writer: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/audio/transcriptions", body)
		if err != nil {
			return fmt.Errorf("creating request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
		req.Header.Set("Content-Type", writer.FormDataContentType())

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("sending request: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			respBody, _ := io.ReadAll(resp.Body)
			return fmt.Errorf("transcription API error %d: %s", resp.StatusCode, string(respBody))
		}

		return json.NewDecoder(resp.Body).Decode(&result)
	})
	if err != nil {
		return "", err
	}

	return result.Text, nil
}
