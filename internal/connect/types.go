package connect

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
)

// pathActivityTypes lists the activity type vocabulary. No session is needed.
const pathActivityTypes = "/proxy/activity-service-1.2/json/activity_types"

// ActivityType is one entry of the remote type vocabulary.
type ActivityType struct {
	Key   string
	Label string
}

// activityTypeRecord accepts both the legacy (key/display) and the newer
// (typeKey/displayName) field names.
type activityTypeRecord struct {
	Key         string `json:"key"`
	TypeKey     string `json:"typeKey"`
	Display     string `json:"display"`
	DisplayName string `json:"displayName"`
}

func (r activityTypeRecord) toActivityType() ActivityType {
	at := ActivityType{Key: r.Key, Label: r.Display}

	if at.Key == "" {
		at.Key = r.TypeKey
	}

	if at.Label == "" {
		at.Label = r.DisplayName
	}

	return at
}

// ActivityTypes fetches the activity type vocabulary. The service has served
// both a {"dictionary": [...]} object and a bare list.
func (c *Client) ActivityTypes(ctx context.Context) ([]ActivityType, error) {
	var raw json.RawMessage
	if err := c.getJSON(ctx, c.connectEndpoint(pathActivityTypes), &raw); err != nil {
		return nil, err
	}

	types, err := parseActivityTypes(raw)
	if err != nil {
		return nil, err
	}

	c.logger.Debug("fetched activity types", slog.Int("count", len(types)))

	return types, nil
}

func parseActivityTypes(raw []byte) ([]ActivityType, error) {
	var records []activityTypeRecord

	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &records); err != nil {
			return nil, fmt.Errorf("connect: decoding activity type list: %w", err)
		}
	} else {
		var wrapped struct {
			Dictionary []activityTypeRecord `json:"dictionary"`
		}
		if err := json.Unmarshal(trimmed, &wrapped); err != nil {
			return nil, fmt.Errorf("connect: decoding activity type dictionary: %w", err)
		}

		records = wrapped.Dictionary
	}

	types := make([]ActivityType, 0, len(records))
	for _, r := range records {
		at := r.toActivityType()
		if at.Key == "" {
			continue
		}

		types = append(types, at)
	}

	if len(types) == 0 {
		return nil, fmt.Errorf("connect: activity type listing is empty")
	}

	return types, nil
}
