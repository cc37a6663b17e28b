package status

import (
	"fmt"
	"strconv"
	"strings"
)

// Accepted aliases per logical field, most canonical first. The first alias
// holding a non-empty value wins.
var (
	sourceServiceAliases = []string{"sourceservice", "source_service", "sourceService"}
	statusAliases        = []string{"status"}
	fileIDAliases        = []string{"fileId", "files_id", "file_id"}
	orderIDAliases       = []string{"orderId", "order_id"}
	distributorIDAliases = []string{"distributorId", "distributor_id", "firmId", "firm_id"}
)

func stringField(payload map[string]any, aliases ...string) string {
	for _, alias := range aliases {
		value, ok := payload[alias]
		if !ok || value == nil {
			continue
		}
		str := strings.TrimSpace(fmt.Sprint(value))
		if str == "" || strings.EqualFold(str, "null") {
			continue
		}
		return str
	}
	return ""
}

func intField(payload map[string]any, aliases ...string) (int, bool) {
	str := stringField(payload, aliases...)
	if str == "" {
		return 0, false
	}
	if f, err := strconv.ParseFloat(str, 64); err == nil {
		return int(f), true
	}
	return 0, false
}
