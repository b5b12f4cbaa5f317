package repository

import (
	"fmt"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"

	"github.com/noah-isme/sma-timetable-api/internal/models"
)

// Seed is the reference data and starting timetable read from a seed file.
type Seed struct {
	Teachers   []models.TeacherLoad    `json:"teachers"`
	Batches    []models.Batch          `json:"batches"`
	ExamBlocks []models.ExamBlock      `json:"exam_blocks"`
	Entries    []models.TimetableEntry `json:"entries"`
}

// LoadSeed reads a JSON or YAML seed file. An empty path yields an empty seed.
func LoadSeed(path string) (*Seed, error) {
	seed := &Seed{}
	if path == "" {
		return seed, nil
	}

	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read seed file %s: %w", path, err)
	}

	decode := func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "json"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeHookFunc(time.RFC3339),
			mapstructure.StringToTimeDurationHookFunc(),
		)
	}
	if err := v.Unmarshal(seed, decode); err != nil {
		return nil, fmt.Errorf("decode seed file %s: %w", path, err)
	}
	return seed, nil
}
