package vibrio

import (
	"net/url"
	"strconv"
)

// Mod is an osu! gameplay modifier, identified by its two-letter acronym.
// The acronym is the wire value for both query parameters and JSON payloads.
type Mod string

// Known mods
const (
	ModNoFail      Mod = "NF"
	ModEasy        Mod = "EZ"
	ModTouchDevice Mod = "TD"
	ModHidden      Mod = "HD"
	ModHardRock    Mod = "HR"
	ModSuddenDeath Mod = "SD"
	ModDoubleTime  Mod = "DT"
	ModRelax       Mod = "RX"
	ModHalfTime    Mod = "HT"
	ModNightcore   Mod = "NC"
	ModFlashlight  Mod = "FL"
	ModAutoplay    Mod = "AT"
	ModSpunOut     Mod = "SO"
	ModAutopilot   Mod = "AP"
	ModPerfect     Mod = "PF"
)

// addMods appends each mod acronym as a repeated "mods" query parameter.
func addMods(q url.Values, mods []Mod) {
	for _, mod := range mods {
		q.Add("mods", string(mod))
	}
}

// HitStatistics describes the hit outcome of one play, used as input for
// performance calculation.
type HitStatistics struct {
	// Count300 is the number of 300 (great) hits
	Count300 int `json:"count300"`
	// Count100 is the number of 100 (ok) hits
	Count100 int `json:"count100"`
	// Count50 is the number of 50 (meh) hits
	Count50 int `json:"count50"`
	// CountMiss is the number of missed objects
	CountMiss int `json:"countMiss"`
	// Combo is the maximum combo reached
	Combo int `json:"combo"`
}

// query encodes the statistics with the flattened lowercase keys the server
// binds its parameters from.
func (h HitStatistics) query() url.Values {
	q := url.Values{}
	q.Set("count300", strconv.Itoa(h.Count300))
	q.Set("count100", strconv.Itoa(h.Count100))
	q.Set("count50", strconv.Itoa(h.Count50))
	q.Set("countmiss", strconv.Itoa(h.CountMiss))
	q.Set("combo", strconv.Itoa(h.Combo))
	return q
}

// DifficultyAttributes are the computed difficulty values for a beatmap
// under a mod combination.
type DifficultyAttributes struct {
	Mods                 []Mod   `json:"mods"`
	StarRating           float64 `json:"starRating"`
	MaxCombo             int     `json:"maxCombo"`
	AimDifficulty        float64 `json:"aimDifficulty"`
	SpeedDifficulty      float64 `json:"speedDifficulty"`
	SpeedNoteCount       float64 `json:"speedNoteCount"`
	FlashlightDifficulty float64 `json:"flashlightDifficulty"`
	SliderFactor         float64 `json:"sliderFactor"`
	ApproachRate         float64 `json:"approachRate"`
	OverallDifficulty    float64 `json:"overallDifficulty"`
	DrainRate            float64 `json:"drainRate"`
	HitCircleCount       int     `json:"hitCircleCount"`
	SliderCount          int     `json:"sliderCount"`
	SpinnerCount         int     `json:"spinnerCount"`
}

// query encodes the attributes for the difficulty+statistics performance
// path, which takes every field as a flattened lowercase query parameter.
func (d DifficultyAttributes) query() url.Values {
	q := url.Values{}
	addMods(q, d.Mods)
	q.Set("starrating", formatFloat(d.StarRating))
	q.Set("maxcombo", strconv.Itoa(d.MaxCombo))
	q.Set("aimdifficulty", formatFloat(d.AimDifficulty))
	q.Set("speeddifficulty", formatFloat(d.SpeedDifficulty))
	q.Set("speednotecount", formatFloat(d.SpeedNoteCount))
	q.Set("flashlightdifficulty", formatFloat(d.FlashlightDifficulty))
	q.Set("sliderfactor", formatFloat(d.SliderFactor))
	q.Set("approachrate", formatFloat(d.ApproachRate))
	q.Set("overalldifficulty", formatFloat(d.OverallDifficulty))
	q.Set("drainrate", formatFloat(d.DrainRate))
	q.Set("hitcirclecount", strconv.Itoa(d.HitCircleCount))
	q.Set("slidercount", strconv.Itoa(d.SliderCount))
	q.Set("spinnercount", strconv.Itoa(d.SpinnerCount))
	return q
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// PerformanceAttributes are the computed performance point values for one
// play.
type PerformanceAttributes struct {
	Total              float64 `json:"total"`
	Aim                float64 `json:"aim"`
	Speed              float64 `json:"speed"`
	Accuracy           float64 `json:"accuracy"`
	Flashlight         float64 `json:"flashlight"`
	EffectiveMissCount float64 `json:"effectiveMissCount"`
}
