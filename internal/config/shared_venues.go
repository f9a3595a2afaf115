package config

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// SharedVenue is one entry of the discovery list: a channel hosting two lineups at once.
type SharedVenue struct {
	CommunityID string `yaml:"community_id"`
	ChannelID   string `yaml:"channel_id"`
	Format      string `yaml:"format"`
	Name        string `yaml:"name"`
}

type sharedVenuesFile struct {
	SharedVenues []SharedVenue `yaml:"shared_venues"`
}

func LoadSharedVenues(path string) ([]SharedVenue, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseSharedVenues(raw)
}

// ParseSharedVenues decodes the list strictly; unknown keys and duplicate channels are errors.
func ParseSharedVenues(raw []byte) ([]SharedVenue, error) {
	decoder := yaml.NewDecoder(bytes.NewReader(raw))
	decoder.KnownFields(true)

	var doc sharedVenuesFile
	if err := decoder.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode shared venues: %w", err)
	}

	seen := make(map[string]struct{}, len(doc.SharedVenues))
	out := make([]SharedVenue, 0, len(doc.SharedVenues))
	for idx, item := range doc.SharedVenues {
		item.CommunityID = strings.TrimSpace(item.CommunityID)
		item.ChannelID = strings.TrimSpace(item.ChannelID)
		item.Format = strings.TrimSpace(item.Format)
		item.Name = strings.TrimSpace(item.Name)
		if item.CommunityID == "" || item.ChannelID == "" {
			return nil, fmt.Errorf("shared venue #%d: community_id and channel_id are required", idx+1)
		}
		if item.Format == "" {
			return nil, fmt.Errorf("shared venue #%d: format is required", idx+1)
		}
		key := item.CommunityID + "/" + item.ChannelID
		if _, ok := seen[key]; ok {
			return nil, fmt.Errorf("shared venue %s is declared twice", key)
		}
		seen[key] = struct{}{}
		out = append(out, item)
	}
	return out, nil
}
