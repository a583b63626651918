package engines

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"

	"github.com/hollyai/holly-voice/internal/audio"
	"github.com/hollyai/holly-voice/internal/tts"
)

const (
	// GTTSURL is Google Translate's speech endpoint.
	GTTSURL = "https://translate.google.com/translate_tts"

	// gttsMaxChunk is the longest text, in characters, Google accepts per
	// request.
	gttsMaxChunk = 100

	gttsUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"
)

// GTTSEngine synthesizes with the free Google Translate speech endpoint.
// Long text is split into chunks on word boundaries; each chunk is one MP3
// request, and the decoded chunks are joined.
type GTTSEngine struct {
	cfg    GTTSConfig
	client *http.Client
	logger *log.Logger

	// Rate limiting to avoid being blocked by Google
	rateLimiter *rate.Limiter
}

// GTTSConfig holds configuration for the gTTS engine.
type GTTSConfig struct {
	// Language code (e.g., "en", "es", "fr") - defaults to "en"
	Language string

	// Slow speech - defaults to false
	Slow bool

	// Rate limit requests per minute to avoid being blocked (defaults to 50)
	RequestsPerMinute int

	// URL overrides GTTSURL.
	URL string

	// Timeout bounds one Generate call across all chunks (defaults to 30s).
	Timeout time.Duration
}

// NewGTTSEngine creates a new gTTS engine.
func NewGTTSEngine(config GTTSConfig, client *http.Client, logger *log.Logger) *GTTSEngine {
	if config.Language == "" {
		config.Language = "en"
	}
	if config.RequestsPerMinute == 0 {
		config.RequestsPerMinute = 50 // Conservative default
	}
	if config.URL == "" {
		config.URL = GTTSURL
	}
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}

	return &GTTSEngine{
		cfg:         config,
		client:      client,
		logger:      logger.WithPrefix(GTTSName),
		rateLimiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(config.RequestsPerMinute)), 1),
	}
}

// Generate implements tts.Backend.
func (e *GTTSEngine) Generate(ctx context.Context, text, _ string) (*tts.Result, error) {
	chunks := splitText(text, gttsMaxChunk)
	if len(chunks) == 0 {
		return nil, tts.NewError(tts.CodeInvalidInput, GTTSName, "nothing to synthesize", tts.ErrEmptyText)
	}

	// the timeout covers the whole text, rate limit waits included
	ctx, cancel := context.WithTimeout(ctx, e.cfg.Timeout)
	defer cancel()

	parts := make([]*audio.Buffer, 0, len(chunks))
	for i, chunk := range chunks {
		if err := e.rateLimiter.Wait(ctx); err != nil {
			// Wait fails early, without DeadlineExceeded, when the next token
			// would arrive after the deadline
			if _, ok := ctx.Deadline(); ok && ctx.Err() == nil {
				err = fmt.Errorf("%w: %v", context.DeadlineExceeded, err)
			}
			return nil, tts.SynthesisFailed(GTTSName, "rate limit wait", err)
		}
		buf, err := e.fetch(ctx, chunk, i, len(chunks))
		if err != nil {
			if errors.Is(ctx.Err(), context.DeadlineExceeded) && tts.CodeOf(err) != tts.CodeTimeout {
				return nil, tts.NewError(tts.CodeTimeout, GTTSName, "synthesis exceeded "+e.cfg.Timeout.String(), err)
			}
			return nil, err
		}
		parts = append(parts, buf)
	}

	joined, err := audio.Concat(parts...)
	if err != nil {
		return nil, tts.NewError(tts.CodeDecodeFailed, GTTSName, "inconsistent chunk audio", err)
	}
	return &tts.Result{Audio: joined}, nil
}

func (e *GTTSEngine) fetch(ctx context.Context, chunk string, idx, total int) (*audio.Buffer, error) {
	speed := "1"
	if e.cfg.Slow {
		speed = "0.24"
	}
	q := url.Values{
		"ie":       {"UTF-8"},
		"client":   {"tw-ob"},
		"tl":       {e.cfg.Language},
		"q":        {chunk},
		"total":    {strconv.Itoa(total)},
		"idx":      {strconv.Itoa(idx)},
		"textlen":  {strconv.Itoa(utf8.RuneCountInString(chunk))},
		"ttsspeed": {speed},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.cfg.URL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, tts.SynthesisFailed(GTTSName, "create request", err)
	}
	req.Header.Set("User-Agent", gttsUserAgent)
	req.Header.Set("Referer", "https://translate.google.com/")

	data, err := doRequest(e.client, req)
	if err != nil {
		return nil, tts.SynthesisFailed(GTTSName, fmt.Sprintf("chunk %d/%d request failed", idx+1, total), err)
	}

	buf, err := audio.DecodeMP3(bytes.NewReader(data))
	if err != nil {
		return nil, tts.NewError(tts.CodeDecodeFailed, GTTSName, "unreadable MP3 response", err)
	}
	return buf, nil
}

// Info implements tts.Backend.
func (e *GTTSEngine) Info() tts.EngineInfo {
	return tts.EngineInfo{
		Name:       GTTSName,
		Model:      "Google TTS (" + e.cfg.Language + ")",
		Device:     "cloud (Google's free servers)",
		SampleRate: 24000,
		Online:     true,
	}
}

// Close implements tts.Backend.
func (e *GTTSEngine) Close() error {
	return nil
}

// splitText breaks text into pieces of at most limit characters, preferring
// to cut between words. Words longer than limit are cut mid-word.
func splitText(text string, limit int) []string {
	var (
		chunks  []string
		current strings.Builder
		n       int
	)
	flush := func() {
		if current.Len() > 0 {
			chunks = append(chunks, current.String())
			current.Reset()
			n = 0
		}
	}

	for _, word := range strings.Fields(text) {
		runes := []rune(word)
		for len(runes) > limit {
			flush()
			chunks = append(chunks, string(runes[:limit]))
			runes = runes[limit:]
		}
		w := len(runes)
		if w == 0 {
			continue
		}
		if n > 0 && n+1+w > limit {
			flush()
		}
		if n > 0 {
			current.WriteByte(' ')
			n++
		}
		current.WriteString(string(runes))
		n += w
	}
	flush()
	return chunks
}
