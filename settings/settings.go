/*
Package settings controls reading configuration from environment and assigning defaults
*/
package settings

import (
	"log" // cannot use zerolog as log options not initialised
	"os"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
	"github.com/rs/zerolog"
)

// prefix for all environment variables read into settings
const envPrefix = "NL"

var Settings *NLSettings
var Listen *NLListen
var Pipeline *NLPipeline
var Sink *NLSink
var Stats *NLStats

var Logger zerolog.Logger

type NLListen struct {
	// interface to accept number submissions on
	Host string `koanf:"host"`
	// tcp port to accept number submissions on
	Port int `koanf:"port"`
	// reject any line that is not exactly 9 digits
	RequireFixedWidth bool `koanf:"require_fixed_width"`
}

type NLPipeline struct {
	// valid backends: hash, tree, bitmap
	Backend string `koanf:"backend"`
	// values must be below this bound, the bitmap backend preallocates one bit per value
	MaxValue uint32 `koanf:"max_value"`
	// capacity of the queue between connections and the dedupe engine
	IngestQueueSize int `koanf:"ingest_queue_size"`
	// capacity of the queue between the dedupe engine and the log sink
	SinkQueueSize int `koanf:"sink_queue_size"`
}

type NLSink struct {
	// file unique numbers are written to, truncated on startup
	Path string `koanf:"path"`
	// exit the process if the log file can no longer be written
	FatalOnError bool `koanf:"fatal_on_error"`
}

type NLStats struct {
	Interval time.Duration `koanf:"interval"`
}

type NLSettings struct {
	Listen   NLListen   `koanf:"listen"`
	Pipeline NLPipeline `koanf:"pipeline"`
	Sink     NLSink     `koanf:"sink"`
	Stats    NLStats    `koanf:"stats"`
	// prometheus and stats http server, empty to disable
	MetricsAddr string `koanf:"metrics_addr"`
	// for custom log files, the folder to place these file in
	LogPath string `koanf:"log_path"`
	// zerolog level name
	LogLevel string `koanf:"log_level"`
	// human readable console output instead of json
	LogPretty bool `koanf:"log_pretty"`
}

var defaults NLSettings = NLSettings{
	Listen: NLListen{
		Host:              "0.0.0.0",
		Port:              4000,
		RequireFixedWidth: false,
	},
	Pipeline: NLPipeline{
		Backend:         "hash",
		MaxValue:        1_000_000_000,
		IngestQueueSize: 5000,
		SinkQueueSize:   5000,
	},
	Sink: NLSink{
		Path:         "numbers.log",
		FatalOnError: false,
	},
	Stats: NLStats{
		Interval: 10 * time.Second,
	},
	MetricsAddr: "",
	LogPath:     "/tmp/logs/numberlog/",
	LogLevel:    "info",
	LogPretty:   false,
}

// envKey maps NL__PIPELINE__MAX_VALUE or NL.PIPELINE.MAX_VALUE to pipeline.max_value
func envKey(s string) string {
	s = strings.TrimPrefix(s, envPrefix)
	s = strings.ReplaceAll(s, "__", ".")
	return strings.Trim(strings.ToLower(s), ".")
}

// parseSettings layers environment variables over the defaults.
func parseSettings(base NLSettings) *NLSettings {
	k := koanf.New(".")
	if err := k.Load(structs.Provider(base, "koanf"), nil); err != nil {
		log.Fatalf("could not load default settings: %s", err.Error())
	}
	if err := k.Load(env.Provider(envPrefix, ".", envKey), nil); err != nil {
		log.Fatalf("could not load settings from environment: %s", err.Error())
	}
	var parsed NLSettings
	err := k.UnmarshalWithConf("", &parsed, koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
			),
			Metadata:         nil,
			Result:           &parsed,
			WeaklyTypedInput: true,
		},
	})
	if err != nil {
		log.Fatalf("could not decode settings: %s", err.Error())
	}
	return &parsed
}

func setupLoggers(settings *NLSettings) {
	level, err := zerolog.ParseLevel(settings.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		log.Printf("Warning unknown log level '%s', using info", settings.LogLevel)
		level = zerolog.InfoLevel
	}
	if settings.LogPretty {
		Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).Level(level).With().Timestamp().Logger()
	} else {
		Logger = zerolog.New(os.Stderr).Level(level).With().Timestamp().Logger()
	}

	if _, err := os.Stat(settings.LogPath); err != nil {
		if os.IsNotExist(err) {
			err = os.MkdirAll(settings.LogPath, 0770)
			if err != nil {
				log.Printf("Warning the log path '%s' could not be created: %s", settings.LogPath, err.Error())
			}
		} else {
			log.Printf("Warning the log path '%s' exists but there is an error: %s", settings.LogPath, err.Error())
		}
	}
	createFileLoggers(settings.LogPath)
}

func ResetSettings() {
	Settings = parseSettings(defaults)
	setupLoggers(Settings)
	Listen = &Settings.Listen
	Pipeline = &Settings.Pipeline
	Sink = &Settings.Sink
	Stats = &Settings.Stats
}

func init() {
	ResetSettings()
}
