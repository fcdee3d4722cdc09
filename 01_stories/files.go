package stories

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strconv"

	"fairytale-pipeline/types"
)

// LoadTales reads the crawler output: an object keyed by sequence number.
// Tales come back sorted by sequence.
func LoadTales(path string) ([]types.Tale, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var raw map[string]types.Tale
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	tales := make([]types.Tale, 0, len(raw))
	for seq, tale := range raw {
		tale.Seq = seq
		tales = append(tales, tale)
	}
	sort.Slice(tales, func(i, j int) bool {
		a, errA := strconv.Atoi(tales[i].Seq)
		b, errB := strconv.Atoi(tales[j].Seq)
		if errA != nil || errB != nil {
			return tales[i].Seq < tales[j].Seq
		}
		return a < b
	})
	return tales, nil
}

// LoadStories reads previously adapted stories.
func LoadStories(path string) ([]types.Story, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var stories []types.Story
	if err := json.Unmarshal(data, &stories); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return stories, nil
}

// SaveStories writes adapted stories as indented JSON.
func SaveStories(path string, stories []types.Story) error {
	data, err := json.MarshalIndent(stories, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
