package logs

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"lectern/internal/api"
	"lectern/internal/logging"
)

// ParseLine decodes one JSON log record. Console-format lines report false.
func ParseLine(line string) (api.LogEvent, bool) {
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, "{") {
		return api.LogEvent{}, false
	}
	var raw map[string]any
	if err := json.Unmarshal([]byte(trimmed), &raw); err != nil {
		return api.LogEvent{}, false
	}
	evt := api.LogEvent{}
	for key, value := range raw {
		switch key {
		case "ts", "time":
			if s, ok := value.(string); ok {
				evt.Timestamp, _ = time.Parse(time.RFC3339Nano, s)
			}
		case "level":
			evt.Level = strings.ToLower(stringify(value))
		case "msg":
			evt.Message = stringify(value)
		case logging.FieldComponent:
			evt.Component = stringify(value)
		case logging.FieldStage:
			evt.Stage = stringify(value)
		case logging.FieldLane:
			evt.Lane = stringify(value)
		case logging.FieldCorrelationID:
			evt.CorrelationID = stringify(value)
		case logging.FieldItemID:
			evt.ItemID, _ = strconv.ParseInt(stringify(value), 10, 64)
		case "source":
		default:
			if evt.Fields == nil {
				evt.Fields = make(map[string]string)
			}
			evt.Fields[key] = stringify(value)
		}
	}
	if evt.Message == "" && evt.Level == "" {
		return api.LogEvent{}, false
	}
	return evt, true
}

func stringify(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}
		return string(data)
	}
}
