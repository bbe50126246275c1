package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"proficiency-scoring/internal/aggregator"
	"proficiency-scoring/internal/audioquality"
	"proficiency-scoring/internal/integrity"
	"proficiency-scoring/internal/matcher"
	"proficiency-scoring/internal/speaking"
)

type Config struct {
	DB            DBConfig
	Server        ServerConfig
	Redis         RedisConfig
	Logger        LoggerConfig
	Auth          AuthConfig
	Transcription TranscriptionConfig
	Scoring       ScoringConfig
	Audio         AudioConfig
	Integrity     IntegrityConfig
	Lexicon       LexiconConfig
	Cache         CacheConfig
}

type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type DBConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	DBName       string
	MaxOpenConns int
	MaxIdleConns int
}

type ServerConfig struct {
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	// BodyLimit caps request bodies, audio uploads included.
	BodyLimit int
}

type LoggerConfig struct {
	Env   string
	Level string
}

type AuthConfig struct {
	AdminJWTSecret string
}

// TranscriptionConfig configures the speech-to-text collaborator and the
// retry policy around it.
type TranscriptionConfig struct {
	APIKey            string
	BaseURL           string
	Model             string
	Language          string
	Timeout           time.Duration
	MaxAttempts       int
	InitialBackoff    time.Duration
	BackoffMultiplier float64
}

type ScoringConfig struct {
	CategoryOverlapThreshold float64

	KeywordWeight      float64
	FluencyWeight      float64
	CompletenessWeight float64
	StrongSimilarity   float64
	WeakSimilarity     float64
	StrongCredit       float64
	WeakCredit         float64
	DefaultWPM         float64
	FallbackCredit     float64
	// SpeakingCorrectPercent marks a spoken response as correct for safety counting.
	SpeakingCorrectPercent float64
	// AcceptTypedTranscript lets a speaking submission without a recording be
	// scored from a typed transcript. Such results are held for review.
	AcceptTypedTranscript bool

	TotalPassScore   float64
	SafetyPassRate   float64
	SpeakingMinScore float64
	ModuleFloor      float64
}

type AudioConfig struct {
	MinDuration        float64
	OptimalMinDuration float64
	OptimalMaxDuration float64
	MaxDuration        float64
	MinVolumeDB        float64
	TargetVolumeDB     float64
	MaxVolumeDB        float64
	MaxClippingPercent float64
	RejectUnusable     bool
}

type IntegrityConfig struct {
	IPChangeWeight        int
	UserAgentChangeWeight int
	TabSwitchWeight       int
	TabSwitchCap          int
	CopyPasteWeight       int
	CopyPasteCap          int
	EventWeight           int
	EventCap              int
	ReviewThreshold       int
}

type LexiconConfig struct {
	// Path to a lexicon YAML file. Empty uses the embedded table.
	Path string
}

type CacheConfig struct {
	ClaimTTL   time.Duration
	SignalsTTL time.Duration
	ResultTTL  time.Duration
}

func setDefaults() {
	viper.SetDefault("server.port", 8090)
	viper.SetDefault("server.read_timeout", "15s")
	viper.SetDefault("server.write_timeout", "30s")
	viper.SetDefault("server.shutdown_timeout", "10s")
	viper.SetDefault("server.body_limit", 20*1024*1024)

	viper.SetDefault("db.host", "localhost")
	viper.SetDefault("db.port", 1521)
	viper.SetDefault("db.user", "scoring")
	viper.SetDefault("db.name", "FREEPDB1")
	viper.SetDefault("db.max_open_conns", 20)
	viper.SetDefault("db.max_idle_conns", 5)

	viper.SetDefault("redis.address", "localhost:6379")
	viper.SetDefault("redis.db", 0)

	viper.SetDefault("logger.env", "development")
	viper.SetDefault("logger.level", "info")

	viper.SetDefault("transcription.model", "whisper-1")
	viper.SetDefault("transcription.language", "en")
	viper.SetDefault("transcription.timeout", "20s")
	viper.SetDefault("transcription.max_attempts", 3)
	viper.SetDefault("transcription.initial_backoff", "500ms")
	viper.SetDefault("transcription.backoff_multiplier", 2.0)

	sp := speaking.DefaultConfig()
	agg := aggregator.DefaultConfig()
	viper.SetDefault("scoring.category_overlap_threshold", matcher.DefaultCategoryOverlap)
	viper.SetDefault("scoring.keyword_weight", sp.Weights.Keyword)
	viper.SetDefault("scoring.fluency_weight", sp.Weights.Fluency)
	viper.SetDefault("scoring.completeness_weight", sp.Weights.Completeness)
	viper.SetDefault("scoring.strong_similarity", sp.StrongSimilarity)
	viper.SetDefault("scoring.weak_similarity", sp.WeakSimilarity)
	viper.SetDefault("scoring.strong_credit", sp.StrongCredit)
	viper.SetDefault("scoring.weak_credit", sp.WeakCredit)
	viper.SetDefault("scoring.default_wpm", sp.DefaultWordsPerMinute)
	viper.SetDefault("scoring.fallback_credit", sp.FallbackCreditRatio)
	viper.SetDefault("scoring.speaking_correct_percent", 50.0)
	viper.SetDefault("scoring.accept_typed_transcript", false)
	viper.SetDefault("scoring.total_pass_score", agg.TotalPassScore)
	viper.SetDefault("scoring.safety_pass_rate", agg.SafetyPassRate)
	viper.SetDefault("scoring.speaking_min_score", agg.SpeakingMinScore)
	viper.SetDefault("scoring.module_floor", agg.ModuleFloor)

	au := audioquality.DefaultConfig()
	viper.SetDefault("audio.min_duration", au.MinDuration)
	viper.SetDefault("audio.optimal_min_duration", au.OptimalMinDuration)
	viper.SetDefault("audio.optimal_max_duration", au.OptimalMaxDuration)
	viper.SetDefault("audio.max_duration", au.MaxDuration)
	viper.SetDefault("audio.min_volume_db", au.MinVolumeDB)
	viper.SetDefault("audio.target_volume_db", au.TargetVolumeDB)
	viper.SetDefault("audio.max_volume_db", au.MaxVolumeDB)
	viper.SetDefault("audio.max_clipping_percent", au.MaxClippingPercent)
	viper.SetDefault("audio.reject_unusable", true)

	in := integrity.DefaultConfig()
	viper.SetDefault("integrity.ip_change_weight", in.IPChangeWeight)
	viper.SetDefault("integrity.user_agent_change_weight", in.UserAgentChangeWeight)
	viper.SetDefault("integrity.tab_switch_weight", in.TabSwitchWeight)
	viper.SetDefault("integrity.tab_switch_cap", in.TabSwitchCap)
	viper.SetDefault("integrity.copy_paste_weight", in.CopyPasteWeight)
	viper.SetDefault("integrity.copy_paste_cap", in.CopyPasteCap)
	viper.SetDefault("integrity.event_weight", in.EventWeight)
	viper.SetDefault("integrity.event_cap", in.EventCap)
	viper.SetDefault("integrity.review_threshold", in.ReviewThreshold)

	viper.SetDefault("cache.claim_ttl", "24h")
	viper.SetDefault("cache.signals_ttl", "24h")
	viper.SetDefault("cache.result_ttl", "1h")
}

// LoadConfig reads config.yaml when present and applies environment
// overrides such as DB_HOST or TRANSCRIPTION_API_KEY.
func LoadConfig() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	// Add config paths based on environment
	if os.Getenv("ENV") == "test" {
		viper.AddConfigPath("../../config")
		viper.AddConfigPath("../../")
	} else {
		viper.AddConfigPath(".")
		viper.AddConfigPath("./config")
	}

	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if configFile := viper.ConfigFileUsed(); configFile != "" {
		absPath, _ := filepath.Abs(configFile)
		fmt.Printf("Using config file: %s\n", absPath)
	}

	cfg := &Config{
		DB: DBConfig{
			Host:         viper.GetString("db.host"),
			Port:         viper.GetInt("db.port"),
			User:         viper.GetString("db.user"),
			Password:     viper.GetString("db.password"),
			DBName:       viper.GetString("db.name"),
			MaxOpenConns: viper.GetInt("db.max_open_conns"),
			MaxIdleConns: viper.GetInt("db.max_idle_conns"),
		},
		Server: ServerConfig{
			Port:            viper.GetInt("server.port"),
			ReadTimeout:     viper.GetDuration("server.read_timeout"),
			WriteTimeout:    viper.GetDuration("server.write_timeout"),
			ShutdownTimeout: viper.GetDuration("server.shutdown_timeout"),
			BodyLimit:       viper.GetInt("server.body_limit"),
		},
		Redis: RedisConfig{
			Address:  viper.GetString("redis.address"),
			Password: viper.GetString("redis.password"),
			DB:       viper.GetInt("redis.db"),
		},
		Logger: LoggerConfig{
			Env:   viper.GetString("logger.env"),
			Level: viper.GetString("logger.level"),
		},
		Auth: AuthConfig{
			AdminJWTSecret: viper.GetString("auth.admin_jwt_secret"),
		},
		Transcription: TranscriptionConfig{
			APIKey:            viper.GetString("transcription.api_key"),
			BaseURL:           viper.GetString("transcription.base_url"),
			Model:             viper.GetString("transcription.model"),
			Language:          viper.GetString("transcription.language"),
			Timeout:           viper.GetDuration("transcription.timeout"),
			MaxAttempts:       viper.GetInt("transcription.max_attempts"),
			InitialBackoff:    viper.GetDuration("transcription.initial_backoff"),
			BackoffMultiplier: viper.GetFloat64("transcription.backoff_multiplier"),
		},
		Scoring: ScoringConfig{
			CategoryOverlapThreshold: viper.GetFloat64("scoring.category_overlap_threshold"),
			KeywordWeight:            viper.GetFloat64("scoring.keyword_weight"),
			FluencyWeight:            viper.GetFloat64("scoring.fluency_weight"),
			CompletenessWeight:       viper.GetFloat64("scoring.completeness_weight"),
			StrongSimilarity:         viper.GetFloat64("scoring.strong_similarity"),
			WeakSimilarity:           viper.GetFloat64("scoring.weak_similarity"),
			StrongCredit:             viper.GetFloat64("scoring.strong_credit"),
			WeakCredit:               viper.GetFloat64("scoring.weak_credit"),
			DefaultWPM:               viper.GetFloat64("scoring.default_wpm"),
			FallbackCredit:           viper.GetFloat64("scoring.fallback_credit"),
			SpeakingCorrectPercent:   viper.GetFloat64("scoring.speaking_correct_percent"),
			AcceptTypedTranscript:    viper.GetBool("scoring.accept_typed_transcript"),
			TotalPassScore:           viper.GetFloat64("scoring.total_pass_score"),
			SafetyPassRate:           viper.GetFloat64("scoring.safety_pass_rate"),
			SpeakingMinScore:         viper.GetFloat64("scoring.speaking_min_score"),
			ModuleFloor:              viper.GetFloat64("scoring.module_floor"),
		},
		Audio: AudioConfig{
			MinDuration:        viper.GetFloat64("audio.min_duration"),
			OptimalMinDuration: viper.GetFloat64("audio.optimal_min_duration"),
			OptimalMaxDuration: viper.GetFloat64("audio.optimal_max_duration"),
			MaxDuration:        viper.GetFloat64("audio.max_duration"),
			MinVolumeDB:        viper.GetFloat64("audio.min_volume_db"),
			TargetVolumeDB:     viper.GetFloat64("audio.target_volume_db"),
			MaxVolumeDB:        viper.GetFloat64("audio.max_volume_db"),
			MaxClippingPercent: viper.GetFloat64("audio.max_clipping_percent"),
			RejectUnusable:     viper.GetBool("audio.reject_unusable"),
		},
		Integrity: IntegrityConfig{
			IPChangeWeight:        viper.GetInt("integrity.ip_change_weight"),
			UserAgentChangeWeight: viper.GetInt("integrity.user_agent_change_weight"),
			TabSwitchWeight:       viper.GetInt("integrity.tab_switch_weight"),
			TabSwitchCap:          viper.GetInt("integrity.tab_switch_cap"),
			CopyPasteWeight:       viper.GetInt("integrity.copy_paste_weight"),
			CopyPasteCap:          viper.GetInt("integrity.copy_paste_cap"),
			EventWeight:           viper.GetInt("integrity.event_weight"),
			EventCap:              viper.GetInt("integrity.event_cap"),
			ReviewThreshold:       viper.GetInt("integrity.review_threshold"),
		},
		Lexicon: LexiconConfig{
			Path: viper.GetString("lexicon.path"),
		},
		Cache: CacheConfig{
			ClaimTTL:   viper.GetDuration("cache.claim_ttl"),
			SignalsTTL: viper.GetDuration("cache.signals_ttl"),
			ResultTTL:  viper.GetDuration("cache.result_ttl"),
		},
	}

	return cfg, nil
}

func (c *Config) GetDSN() string {
	// Oracle DSN format: user/password@host:port/service
	return fmt.Sprintf("oracle://%s:%s@%s:%d/%s",
		c.DB.User,
		c.DB.Password,
		c.DB.Host,
		c.DB.Port,
		c.DB.DBName,
	)
}

func (c *Config) MatcherConfig() matcher.Config {
	return matcher.Config{CategoryOverlapThreshold: c.Scoring.CategoryOverlapThreshold}
}

func (c *Config) SpeakingConfig() speaking.Config {
	sc := speaking.DefaultConfig()
	sc.Weights = speaking.Weights{
		Keyword:      c.Scoring.KeywordWeight,
		Fluency:      c.Scoring.FluencyWeight,
		Completeness: c.Scoring.CompletenessWeight,
	}
	sc.StrongSimilarity = c.Scoring.StrongSimilarity
	sc.WeakSimilarity = c.Scoring.WeakSimilarity
	sc.StrongCredit = c.Scoring.StrongCredit
	sc.WeakCredit = c.Scoring.WeakCredit
	sc.DefaultWordsPerMinute = c.Scoring.DefaultWPM
	sc.FallbackCreditRatio = c.Scoring.FallbackCredit
	return sc
}

func (c *Config) AudioConfig() audioquality.Config {
	ac := audioquality.DefaultConfig()
	ac.MinDuration = c.Audio.MinDuration
	ac.OptimalMinDuration = c.Audio.OptimalMinDuration
	ac.OptimalMaxDuration = c.Audio.OptimalMaxDuration
	ac.MaxDuration = c.Audio.MaxDuration
	ac.MinVolumeDB = c.Audio.MinVolumeDB
	ac.TargetVolumeDB = c.Audio.TargetVolumeDB
	ac.MaxVolumeDB = c.Audio.MaxVolumeDB
	ac.MaxClippingPercent = c.Audio.MaxClippingPercent
	return ac
}

func (c *Config) IntegrityConfig() integrity.Config {
	ic := integrity.DefaultConfig()
	ic.IPChangeWeight = c.Integrity.IPChangeWeight
	ic.UserAgentChangeWeight = c.Integrity.UserAgentChangeWeight
	ic.TabSwitchWeight = c.Integrity.TabSwitchWeight
	ic.TabSwitchCap = c.Integrity.TabSwitchCap
	ic.CopyPasteWeight = c.Integrity.CopyPasteWeight
	ic.CopyPasteCap = c.Integrity.CopyPasteCap
	ic.EventWeight = c.Integrity.EventWeight
	ic.EventCap = c.Integrity.EventCap
	ic.ReviewThreshold = c.Integrity.ReviewThreshold
	return ic
}

func (c *Config) AggregatorConfig() aggregator.Config {
	ac := aggregator.DefaultConfig()
	ac.TotalPassScore = c.Scoring.TotalPassScore
	ac.SafetyPassRate = c.Scoring.SafetyPassRate
	ac.SpeakingMinScore = c.Scoring.SpeakingMinScore
	ac.ModuleFloor = c.Scoring.ModuleFloor
	return ac
}
