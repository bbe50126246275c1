package audioquality

import (
	"fmt"
	"math"

	"proficiency-scoring/internal/domain"
	"proficiency-scoring/internal/util"
)

// Weights of the five sub-scores in the overall score.
type Weights struct {
	Duration float64
	Volume   float64
	Clipping float64
	Noise    float64
	Speech   float64
}

// Config holds the analysis thresholds. Durations are in seconds, levels in dBFS.
type Config struct {
	MinDuration        float64
	OptimalMinDuration float64
	OptimalMaxDuration float64
	MaxDuration        float64

	MinVolumeDB    float64
	TargetVolumeDB float64
	MaxVolumeDB    float64

	ClipLevel          float64
	MaxClippingPercent float64

	NoiseIssueDB float64

	SpeechDetectRatio float64
	MinSpeechRatio    float64

	FrameMillis int
	HopMillis   int

	// NoSpeechFactor scales the overall score when no speech is found.
	NoSpeechFactor float64

	Weights Weights
}

// DefaultConfig returns the production thresholds.
func DefaultConfig() Config {
	return Config{
		MinDuration:        3,
		OptimalMinDuration: 5,
		OptimalMaxDuration: 30,
		MaxDuration:        120,
		MinVolumeDB:        -40,
		TargetVolumeDB:     -20,
		MaxVolumeDB:        -3,
		ClipLevel:          0.99,
		MaxClippingPercent: 1.0,
		NoiseIssueDB:       -30,
		SpeechDetectRatio:  0.1,
		MinSpeechRatio:     0.3,
		FrameMillis:        25,
		HopMillis:          10,
		NoSpeechFactor:     0.5,
		Weights: Weights{
			Duration: 0.15,
			Volume:   0.25,
			Clipping: 0.15,
			Noise:    0.20,
			Speech:   0.25,
		},
	}
}

// silence floor used instead of log10(0)
const minAmplitude = 1e-10

// Analyzer judges whether a recording is usable for scoring. It keeps no
// state between calls.
type Analyzer struct {
	cfg Config
}

// NewAnalyzer creates an Analyzer.
func NewAnalyzer(cfg Config) *Analyzer {
	return &Analyzer{cfg: cfg}
}

// Analyze inspects mono samples normalized to [-1, 1]. Invalid input yields
// the neutral error report rather than an error.
func (a *Analyzer) Analyze(samples []float64, sampleRate int) *domain.AudioQualityReport {
	if sampleRate <= 0 {
		return ErrorReport(fmt.Errorf("invalid sample rate %d", sampleRate))
	}
	if len(samples) == 0 {
		return ErrorReport(fmt.Errorf("recording contains no samples"))
	}

	r := &domain.AudioQualityReport{
		Issues:          []string{},
		Recommendations: []string{},
	}
	cfg := a.cfg

	r.DurationSeconds = float64(len(samples)) / float64(sampleRate)
	r.DurationScore = a.durationScore(r.DurationSeconds)
	switch {
	case r.DurationSeconds < cfg.MinDuration:
		r.Issues = append(r.Issues, fmt.Sprintf("Recording too short (%.1fs)", r.DurationSeconds))
		r.Recommendations = append(r.Recommendations, fmt.Sprintf("Record for at least %.0f seconds", cfg.MinDuration))
	case r.DurationSeconds > cfg.MaxDuration:
		r.Issues = append(r.Issues, fmt.Sprintf("Recording too long (%.1fs)", r.DurationSeconds))
		r.Recommendations = append(r.Recommendations, fmt.Sprintf("Keep your response under %.0f seconds", cfg.MaxDuration))
	}

	r.AverageDB = toDB(rms(samples))
	r.PeakDB = toDB(peak(samples))
	r.VolumeScore = a.volumeScore(r.AverageDB)
	if r.AverageDB < cfg.MinVolumeDB {
		r.Issues = append(r.Issues, "Audio too quiet")
		r.Recommendations = append(r.Recommendations, "Speak louder or move closer to the microphone")
	} else if r.PeakDB > cfg.MaxVolumeDB {
		r.Issues = append(r.Issues, "Audio may be clipping (too loud)")
		r.Recommendations = append(r.Recommendations, "Move further from the microphone or speak more softly")
	}

	r.ClippingPercent = clippingPercent(samples, cfg.ClipLevel)
	r.ClippingScore = clippingScore(r.ClippingPercent, cfg.MaxClippingPercent)
	if r.ClippingPercent > cfg.MaxClippingPercent {
		r.Issues = append(r.Issues, fmt.Sprintf("Audio clipping detected (%.1f%%)", r.ClippingPercent))
		r.Recommendations = append(r.Recommendations, "Lower the microphone input volume")
	}

	frames := frameStats(samples, sampleRate, cfg.FrameMillis, cfg.HopMillis)

	r.NoiseFloorDB = toDB(noiseFloor(frames))
	r.NoiseScore = noiseScore(r.NoiseFloorDB)
	if r.NoiseFloorDB > cfg.NoiseIssueDB {
		r.Issues = append(r.Issues, "High background noise detected")
		r.Recommendations = append(r.Recommendations, "Record in a quieter environment")
	}

	r.SpeechRatio = speechRatio(frames)
	r.SpeechDetected = r.SpeechRatio > cfg.SpeechDetectRatio
	switch {
	case !r.SpeechDetected:
		r.SpeechScore = 0
		r.Issues = append(r.Issues, "No speech detected in recording")
		r.Recommendations = append(r.Recommendations, "Make sure you are speaking into the microphone")
	case r.SpeechRatio < cfg.MinSpeechRatio:
		r.SpeechScore = math.Min(1, r.SpeechRatio/cfg.MinSpeechRatio)
		r.Issues = append(r.Issues, "Very little speech detected")
		r.Recommendations = append(r.Recommendations, "Speak continuously throughout the recording")
	default:
		r.SpeechScore = math.Min(1, r.SpeechRatio/cfg.MinSpeechRatio)
	}

	w := cfg.Weights
	overall := w.Duration*r.DurationScore +
		w.Volume*r.VolumeScore +
		w.Clipping*r.ClippingScore +
		w.Noise*r.NoiseScore +
		w.Speech*r.SpeechScore
	if !r.SpeechDetected {
		overall *= cfg.NoSpeechFactor
	}
	r.OverallScore = util.Round(util.Clamp(overall, 0, 1), 3)
	r.Level = levelFor(r.OverallScore)

	if (r.Level == domain.QualityPoor || r.Level == domain.QualityUnusable) && len(r.Recommendations) == 0 {
		r.Recommendations = append(r.Recommendations,
			"Check that your microphone is connected and working",
			"Record in a quiet environment",
			"Speak clearly at a normal volume",
		)
	}

	r.DurationScore = util.Round(r.DurationScore, 3)
	r.VolumeScore = util.Round(r.VolumeScore, 3)
	r.ClippingScore = util.Round(r.ClippingScore, 3)
	r.NoiseScore = util.Round(r.NoiseScore, 3)
	r.SpeechScore = util.Round(r.SpeechScore, 3)
	r.AverageDB = util.Round(r.AverageDB, 1)
	r.PeakDB = util.Round(r.PeakDB, 1)
	r.NoiseFloorDB = util.Round(r.NoiseFloorDB, 1)
	r.ClippingPercent = util.Round(r.ClippingPercent, 2)
	r.SpeechRatio = util.Round(r.SpeechRatio, 3)
	return r
}

// ErrorReport is the neutral report returned when a recording cannot be
// analysed. It neither blocks nor rewards the examinee.
func ErrorReport(err error) *domain.AudioQualityReport {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	return &domain.AudioQualityReport{
		Level:           domain.QualityAcceptable,
		OverallScore:    0.5,
		DurationScore:   0.5,
		VolumeScore:     0.5,
		ClippingScore:   0.5,
		NoiseScore:      0.5,
		SpeechScore:     0.5,
		AverageDB:       -30,
		PeakDB:          -10,
		NoiseFloorDB:    -50,
		SpeechDetected:  true,
		SpeechRatio:     0.5,
		Issues:          []string{"Analysis error: " + msg},
		Recommendations: []string{"Try recording again if you experience issues"},
		AnalysisError:   msg,
	}
}

func (a *Analyzer) durationScore(d float64) float64 {
	cfg := a.cfg
	switch {
	case d < cfg.MinDuration:
		return d / cfg.MinDuration * 0.5
	case d > cfg.MaxDuration:
		return math.Max(0.3, 1-(d-cfg.MaxDuration)/60)
	case d >= cfg.OptimalMinDuration && d <= cfg.OptimalMaxDuration:
		return 1.0
	case d < cfg.OptimalMinDuration:
		return 0.7 + 0.3*(d-cfg.MinDuration)/(cfg.OptimalMinDuration-cfg.MinDuration)
	default:
		return 0.7 + 0.3*(cfg.MaxDuration-d)/(cfg.MaxDuration-cfg.OptimalMaxDuration)
	}
}

func (a *Analyzer) volumeScore(avgDB float64) float64 {
	cfg := a.cfg
	switch {
	case avgDB < cfg.MinVolumeDB:
		return math.Max(0, (avgDB+60)/20)
	case avgDB > cfg.MaxVolumeDB:
		return math.Max(0.3, 1-(avgDB-cfg.MaxVolumeDB)/10)
	default:
		return math.Max(0.5, 1-math.Abs(avgDB-cfg.TargetVolumeDB)/20)
	}
}

// clippingScore falls linearly to 0.7 at maxPercent and by 0.1 per extra
// percent beyond it.
func clippingScore(percent, maxPercent float64) float64 {
	if maxPercent <= 0 {
		maxPercent = 1.0
	}
	switch {
	case percent <= 0.1:
		return 1.0
	case percent <= maxPercent:
		return 1 - 0.3*percent/maxPercent
	default:
		return math.Max(0.2, 0.7-(percent-maxPercent)/10)
	}
}

func noiseScore(floorDB float64) float64 {
	switch {
	case floorDB < -50:
		return 1.0
	case floorDB < -40:
		return 0.8
	case floorDB < -30:
		return 0.6
	case floorDB < -20:
		return 0.4
	default:
		return 0.2
	}
}

func levelFor(score float64) domain.QualityLevel {
	switch {
	case score >= 0.85:
		return domain.QualityExcellent
	case score >= 0.70:
		return domain.QualityGood
	case score >= 0.50:
		return domain.QualityAcceptable
	case score >= 0.30:
		return domain.QualityPoor
	default:
		return domain.QualityUnusable
	}
}

func toDB(amplitude float64) float64 {
	return 20 * math.Log10(math.Max(amplitude, minAmplitude))
}
