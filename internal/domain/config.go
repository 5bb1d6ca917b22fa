package domain

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"reflect"
	"time"

	configKit "github.com/gookit/config/v2"
	"github.com/gookit/config/v2/yaml"
	"github.com/imdario/mergo"
	"github.com/mitchellh/mapstructure"
)

const (
	OptionName = "name"
	OptionDesc = "description"

	// BackendTokenEnvironmentVariable overrides the backend-token option when set.
	BackendTokenEnvironmentVariable = "CONSOLE_BACKEND_TOKEN"
)

// Configuration encapsulates the configuration for the operator console.
// These are all parsed and converted into flag arguments using the
// provided 'flag' package (i.e., the one that's part of the standard library).
type Configuration struct {
	YAML    string `name:"yaml" description:"Path to config file in the yml format."`
	Debug   bool   `name:"debug" yaml:"debug" json:"debug" description:"Display debug logs."`
	Verbose bool   `name:"v" yaml:"v" json:"v" description:"Display verbose logs."`

	///////////////////////
	// Platform backend  //
	///////////////////////
	BackendBaseUrl       string `name:"backend-base-url" yaml:"backend-base-url" json:"backend-base-url" description:"Base URL of the platform REST API, including the /api suffix."`
	BackendToken         string `name:"backend-token" yaml:"backend-token" json:"-" description:"Bearer token attached to every request issued to the platform backend."`
	RequestTimeoutMillis int64  `name:"request-timeout-milliseconds" yaml:"request-timeout-milliseconds" json:"request-timeout-milliseconds" description:"Timeout, in milliseconds, applied to each request issued to the platform backend."`

	////////////////////
	// Reconciliation //
	////////////////////
	AutoRefreshEnabled     bool   `name:"auto-refresh" yaml:"auto-refresh" json:"auto-refresh" description:"If true, the session registry is periodically reconciled with the backend."`
	AutoRefreshIntervalMs  int64  `name:"auto-refresh-interval-milliseconds" yaml:"auto-refresh-interval-milliseconds" json:"auto-refresh-interval-milliseconds" description:"Interval, in milliseconds, between two automatic reconciliations of the session registry."`
	SettleMaxAttempts      int    `name:"settle-max-attempts" yaml:"settle-max-attempts" json:"settle-max-attempts" description:"Maximum number of reconciliations performed while waiting for a session to reach an expected state."`
	SettleBaseBackoffMs    int64  `name:"settle-base-backoff-milliseconds" yaml:"settle-base-backoff-milliseconds" json:"settle-base-backoff-milliseconds" description:"Initial delay, in milliseconds, between two reconciliations performed while waiting for a session to settle."`
	SettleMaxBackoffMs     int64  `name:"settle-max-backoff-milliseconds" yaml:"settle-max-backoff-milliseconds" json:"settle-max-backoff-milliseconds" description:"Upper bound, in milliseconds, on the delay between two settle reconciliations."`
	TrendWindow            int64  `name:"trend-window" yaml:"trend-window" json:"trend-window" description:"Number of reconciled readings used to compute the moving fatigue trend of each session."`
	DeviceIdentifierPrefix string `name:"device-identifier-prefix" yaml:"device-identifier-prefix" json:"device-identifier-prefix" description:"Prefix of the identifier suggested for newly provisioned devices."`

	////////////////
	// Retraining //
	////////////////
	RetrainingPollIntervalSec int `name:"retraining-poll-interval-seconds" yaml:"retraining-poll-interval-seconds" json:"retraining-poll-interval-seconds" description:"Interval, in seconds, at which model info is polled while a retraining is in progress."`
	RetrainingWatchTimeoutSec int `name:"retraining-watch-timeout-seconds" yaml:"retraining-watch-timeout-seconds" json:"retraining-watch-timeout-seconds" description:"Safety timeout, in seconds, after which a retraining watch is abandoned."`
	ModelInfoRefreshSec       int `name:"model-info-refresh-seconds" yaml:"model-info-refresh-seconds" json:"model-info-refresh-seconds" description:"Interval, in seconds, at which model info is refreshed. 0 to disable."`
	StatisticsRefreshSec      int `name:"statistics-refresh-seconds" yaml:"statistics-refresh-seconds" json:"statistics-refresh-seconds" description:"Interval, in seconds, at which prediction statistics are refreshed. 0 to disable."`
	PredictionHistoryLimit    int `name:"prediction-history-limit" yaml:"prediction-history-limit" json:"prediction-history-limit" description:"Number of predictions fetched for the prediction history view."`

	/////////////
	// Journal //
	/////////////
	JournalPath     string `name:"journal-path" yaml:"journal-path" json:"journal-path" description:"Path of the SQLite database in which operator commands are recorded. Use ':memory:' for a non-persistent journal."`
	JournalCapacity int    `name:"journal-queue-capacity" yaml:"journal-queue-capacity" json:"journal-queue-capacity" description:"Capacity of the queue of journal entries waiting to be written."`

	////////////
	// Server //
	////////////
	ServerPort              int    `name:"server-port" yaml:"server-port" json:"server-port" description:"Port of the console server."`
	BaseUrl                 string `name:"base-url" yaml:"base-url" json:"base-url" description:"Base path on which the console server listens."`
	PrometheusEndpoint      string `name:"prometheus-endpoint" yaml:"prometheus-endpoint" json:"prometheus-endpoint" description:"Path on which Prometheus metrics are served."`
	StaticDirectory         string `name:"static-directory" yaml:"static-directory" json:"static-directory" description:"Directory containing the built front end. Left unserved if empty."`
	PushUpdateInterval      int    `name:"push-update-interval" yaml:"push-update-interval" json:"push-update-interval" description:"How frequently, in seconds, the server pushes session updates to connected front ends."`
	ExpectedOriginPort      int    `name:"expected-origin-port" yaml:"expected-origin-port" json:"expected-origin-port" description:"Port of the expected origin for messages from the frontend."`
	ExpectedOriginAddresses string `name:"expected_websocket_origins" json:"expected_websocket_origins" yaml:"expected_websocket_origins" description:"Comma-separated list of addresses (without ports) passed as a single string. These are acceptable/expected origins for the websocket connection upgrader to allow."`
	AdminUser               string `name:"admin_username" yaml:"admin_username" json:"admin_username"`
	AdminPassword           string `name:"admin_password" yaml:"admin_password" json:"-"`
	TokenValidDurationSec   int    `name:"token_valid_duration_sec" yaml:"token_valid_duration_sec" json:"token_valid_duration_sec"`
	TokenRefreshIntervalSec int    `name:"token_refresh_interval_sec" yaml:"token_refresh_interval_sec" json:"token_refresh_interval_sec"`
}

func GetDefaultConfig() *Configuration {
	return &Configuration{
		BackendBaseUrl:            "http://localhost:8000/api",
		RequestTimeoutMillis:      10000,
		AutoRefreshEnabled:        true,
		AutoRefreshIntervalMs:     5000,
		SettleMaxAttempts:         6,
		SettleBaseBackoffMs:       250,
		SettleMaxBackoffMs:        4000,
		TrendWindow:               12,
		DeviceIdentifierPrefix:    "ESP32-",
		RetrainingPollIntervalSec: 10,
		RetrainingWatchTimeoutSec: 300,
		ModelInfoRefreshSec:       30,
		StatisticsRefreshSec:      60,
		PredictionHistoryLimit:    50,
		JournalPath:               "./console_journal.db",
		JournalCapacity:           256,
		ServerPort:                8080,
		BaseUrl:                   "/",
		PrometheusEndpoint:        "/" + PrometheusEndpoint,
		StaticDirectory:           "./dist",
		PushUpdateInterval:        1,
		ExpectedOriginPort:        9001,
		ExpectedOriginAddresses:   "localhost,127.0.0.1",
		AdminUser:                 "admin",
		AdminPassword:             "admin",
		TokenValidDurationSec:     3600,
		TokenRefreshIntervalSec:   3600,
	}
}

func (opts *Configuration) RequestTimeout() time.Duration {
	return time.Duration(opts.RequestTimeoutMillis) * time.Millisecond
}

func (opts *Configuration) AutoRefreshInterval() time.Duration {
	return time.Duration(opts.AutoRefreshIntervalMs) * time.Millisecond
}

func (opts *Configuration) RetrainingPollInterval() time.Duration {
	return time.Duration(opts.RetrainingPollIntervalSec) * time.Second
}

func (opts *Configuration) RetrainingWatchTimeout() time.Duration {
	return time.Duration(opts.RetrainingWatchTimeoutSec) * time.Second
}

func (opts *Configuration) String() string {
	out, err := json.MarshalIndent(opts, "", "  ")
	if err != nil {
		panic(err)
	}

	return string(out)
}

// CheckUsage registers every tagged field as a command-line flag, parses the command line, and then
// overlays the YAML configuration file, if one was specified.
func (opts *Configuration) CheckUsage() {
	var printInfo bool
	flag.BoolVar(&printInfo, "h", false, "help info?")

	opts.registerFlags(flag.CommandLine)

	flag.Parse()

	if printInfo {
		_, _ = fmt.Fprintf(os.Stderr, "Usage: ./console [options]\n")
		_, _ = fmt.Fprintf(os.Stderr, "Available options:\n")
		flag.PrintDefaults()
		os.Exit(0)
	}

	if opts.YAML != "" {
		fmt.Printf("Reading configuration from file: \"%s\"\n", opts.YAML)
		if err := opts.LoadYAML(opts.YAML); err != nil {
			panic(err)
		}
	} else {
		fmt.Printf("[WARNING] No YAML configuration file specified...\n")
	}

	opts.ApplyEnvironment()

	fmt.Printf("Console configuration:\n%v\n", opts)
}

func (opts *Configuration) registerFlags(flags *flag.FlagSet) {
	oType := reflect.TypeOf(opts).Elem()
	oVal := reflect.ValueOf(opts).Elem()
	numField := oType.NumField()
	for i := 0; i < numField; i++ {
		field := oType.Field(i)
		if field.PkgPath != "" {
			continue
		}

		name := field.Tag.Get(OptionName)
		if name == "" {
			continue
		}
		desc := field.Tag.Get(OptionDesc)
		opt := oVal.Field(i)
		switch field.Type.Kind() {
		case reflect.Bool:
			flags.BoolVar(opt.Addr().Interface().(*bool), name, opt.Bool(), desc)
		case reflect.Int:
			flags.IntVar(opt.Addr().Interface().(*int), name, int(opt.Int()), desc)
		case reflect.Int64:
			flags.Int64Var(opt.Addr().Interface().(*int64), name, opt.Int(), desc)
		case reflect.Float64:
			flags.Float64Var(opt.Addr().Interface().(*float64), name, opt.Float(), desc)
		case reflect.String:
			flags.StringVar(opt.Addr().Interface().(*string), name, opt.String(), desc)
		default:
			panic(fmt.Errorf("unsupprted config type: %v", field.Type.Kind()))
		}
	}
}

// LoadYAML merges the options found in the given YAML file into the configuration.
// Options present in the file override the current values.
func (opts *Configuration) LoadYAML(path string) error {
	kit := configKit.NewWithOptions("console", func(opt *configKit.Options) {
		opt.SetTagName(OptionName)
		// DecoderConfig initialization is due a bug in configKit: no TagName will be applied if DecoderConfig is nil.
		opt.DecoderConfig = &mapstructure.DecoderConfig{}
	})
	kit.AddDriver(yaml.Driver)

	if err := kit.LoadFiles(path); err != nil {
		return err
	}

	fileOpts := &Configuration{}
	if err := kit.BindStruct("", fileOpts); err != nil {
		return err
	}

	return mergo.Merge(opts, fileOpts, mergo.WithOverride)
}

// ApplyEnvironment applies the environment-variable overrides.
func (opts *Configuration) ApplyEnvironment() {
	if token := os.Getenv(BackendTokenEnvironmentVariable); token != "" {
		opts.BackendToken = token
	}
}
