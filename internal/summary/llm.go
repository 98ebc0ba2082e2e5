package summary

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"time"
)

// generator is the raw prompt-in, text-out surface of an LLM backend.
type generator interface {
	generate(ctx context.Context, prompt string, maxTokens int) (string, error)
	configured() bool
}

// LLM summarizes via a language-model backend and falls back to Local when
// the backend declines or errors, so callers always get a summary.
type LLM struct {
	backend  generator
	fallback Local
}

// NewLLM picks a backend: Ollama when reachable, otherwise OpenAI when its
// key is set, otherwise nil backend (pure Local behavior).
func NewLLM(provider, model, ollamaURL, openaiModel, apiKeyEnv string) *LLM {
	s := &LLM{}
	if strings.ToLower(provider) == "ollama" {
		o := newOllama(model, ollamaURL)
		if o.configured() {
			log.Printf("[summary] using Ollama model %s", model)
			s.backend = o
			return s
		}
		log.Println("[summary] Ollama not available, trying OpenAI")
	}
	oa := newOpenAI(openaiModel, apiKeyEnv)
	if oa.configured() {
		log.Printf("[summary] using OpenAI model %s", openaiModel)
		s.backend = oa
		return s
	}
	log.Println("[summary] no LLM backend available, summaries are truncations")
	return s
}

func (s *LLM) Summarize(ctx context.Context, text, lang string, maxWords int) (string, error) {
	if s.backend == nil {
		return s.fallback.Summarize(ctx, text, lang, maxWords)
	}
	prompt := fmt.Sprintf(
		"Summarize the following article in at most %d words, in language %q. Reply with the summary only.\n\n%s",
		maxWords, langOrDefault(lang), text)
	out, err := s.backend.generate(ctx, prompt, maxWords*3)
	if err != nil {
		log.Printf("[summary] backend failed, using truncation: %v", err)
		return s.fallback.Summarize(ctx, text, lang, maxWords)
	}
	return LimitWords(strings.TrimSpace(out), maxWords), nil
}

func (s *LLM) Synthesize(ctx context.Context, docs []string, lang string, maxWords int) (string, error) {
	if s.backend == nil {
		return s.fallback.Synthesize(ctx, docs, lang, maxWords)
	}
	var b strings.Builder
	fmt.Fprintf(&b,
		"The following articles cover the same story. Write one combined summary of at most %d words, in language %q. Reply with the summary only.\n",
		maxWords, langOrDefault(lang))
	for i, d := range docs {
		fmt.Fprintf(&b, "\nArticle %d:\n%s\n", i+1, d)
	}
	out, err := s.backend.generate(ctx, b.String(), maxWords*3)
	if err != nil {
		log.Printf("[summary] backend failed, using truncation: %v", err)
		return s.fallback.Synthesize(ctx, docs, lang, maxWords)
	}
	return LimitWords(strings.TrimSpace(out), maxWords), nil
}

func langOrDefault(lang string) string {
	if lang == "" {
		return "en"
	}
	return lang
}

type ollama struct {
	model   string
	baseURL string
	client  *http.Client
}

func newOllama(model, baseURL string) *ollama {
	return &ollama{
		model:   model,
		baseURL: baseURL,
		client:  &http.Client{Timeout: 120 * time.Second},
	}
}

// configured checks that the daemon is up and knows the model.
func (o *ollama) configured() bool {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, "GET", o.baseURL+"/api/tags", nil)
	if err != nil {
		return false
	}
	resp, err := o.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return false
	}

	var result struct {
		Models []struct {
			Name string `json:"name"`
		} `json:"models"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return false
	}
	modelBase := strings.SplitN(o.model, ":", 2)[0]
	for _, m := range result.Models {
		if strings.Contains(m.Name, modelBase) {
			return true
		}
	}
	log.Printf("[summary] Ollama model %q not found", o.model)
	return false
}

func (o *ollama) generate(ctx context.Context, prompt string, maxTokens int) (string, error) {
	body := map[string]any{
		"model":  o.model,
		"prompt": prompt,
		"stream": false,
		"options": map[string]any{
			"num_predict": maxTokens,
			"temperature": 0.3,
		},
	}
	data, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", o.baseURL+"/api/generate", bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("ollama API error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("ollama API returned %d: %s", resp.StatusCode, string(respBody))
	}

	var result struct {
		Response string `json:"response"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decoding response: %w", err)
	}
	return result.Response, nil
}

type openAI struct {
	model  string
	apiKey string
	client *http.Client
}

func newOpenAI(model, apiKeyEnv string) *openAI {
	return &openAI{
		model:  model,
		apiKey: os.Getenv(apiKeyEnv),
		client: &http.Client{Timeout: 120 * time.Second},
	}
}

func (o *openAI) configured() bool {
	return o.apiKey != ""
}

func (o *openAI) generate(ctx context.Context, prompt string, maxTokens int) (string, error) {
	if o.apiKey == "" {
		return "", fmt.Errorf("OpenAI API key not configured")
	}

	body := map[string]any{
		"model": o.model,
		"messages": []map[string]string{
			{"role": "user", "content": prompt},
		},
		"max_tokens":  maxTokens,
		"temperature": 0.3,
	}
	data, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", "https://api.openai.com/v1/chat/completions", bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+o.apiKey)

	resp, err := o.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("OpenAI API error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("OpenAI API returned %d: %s", resp.StatusCode, string(respBody))
	}

	var result struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decoding response: %w", err)
	}
	if len(result.Choices) == 0 {
		return "", fmt.Errorf("no choices in OpenAI response")
	}
	return result.Choices[0].Message.Content, nil
}
