package config

import (
	"encoding/json"
	"os"
	"time"
)

type Config struct {
	Port           int               `json:"port"`
	YtDlpPath      string            `json:"ytdlp_path"`
	FFmpegPath     string            `json:"ffmpeg_path"`
	TempDir        string            `json:"temp_dir"`
	Headers        map[string]string `json:"headers"`
	MaxConcurrent  int64             `json:"max_concurrent"`
	RatePerSecond  float64           `json:"rate_per_second"`
	RateBurst      int               `json:"rate_burst"`
	ExtractTimeout Seconds           `json:"extract_timeout_sec"`
	ConnectTimeout Seconds           `json:"connect_timeout_sec"`
	IdleTimeout    Seconds           `json:"idle_timeout_sec"`
	RequestTimeout Seconds           `json:"request_timeout_sec"`
}

// Seconds marshals a duration as a plain number of seconds in JSON.
type Seconds time.Duration

func (s Seconds) Duration() time.Duration { return time.Duration(s) }

func (s Seconds) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(s).Seconds())
}

func (s *Seconds) UnmarshalJSON(data []byte) error {
	var secs float64
	if err := json.Unmarshal(data, &secs); err != nil {
		return err
	}
	*s = Seconds(time.Duration(secs * float64(time.Second)))
	return nil
}

func Default() Config {
	return Config{
		Port:       8081,
		YtDlpPath:  "yt-dlp",
		FFmpegPath: "ffmpeg",
		TempDir:    os.TempDir(),
		Headers: map[string]string{
			"User-Agent": "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		},
		MaxConcurrent:  16,
		RatePerSecond:  20,
		RateBurst:      40,
		ExtractTimeout: Seconds(45 * time.Second),
		ConnectTimeout: Seconds(15 * time.Second),
		IdleTimeout:    Seconds(30 * time.Second),
		RequestTimeout: Seconds(10 * time.Minute),
	}
}

// Load reads cfg from path on top of the defaults. A missing file is not
// an error; the defaults are used as-is.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, err
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}
