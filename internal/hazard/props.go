package hazard

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// stringProp returns the first non-empty string value among keys.
func stringProp(props map[string]any, keys ...string) string {
	for _, k := range keys {
		v, ok := props[k]
		if !ok || v == nil {
			continue
		}
		var s string
		switch t := v.(type) {
		case string:
			s = t
		case float64:
			s = strconv.FormatFloat(t, 'f', -1, 64)
		case json.Number:
			s = t.String()
		default:
			s = fmt.Sprint(t)
		}
		if s = strings.TrimSpace(s); s != "" {
			return s
		}
	}
	return ""
}

// numberProp returns the first value among keys that parses as a number.
func numberProp(props map[string]any, keys ...string) (float64, bool) {
	for _, k := range keys {
		switch t := props[k].(type) {
		case float64:
			return t, true
		case int:
			return float64(t), true
		case int64:
			return float64(t), true
		case json.Number:
			if f, err := t.Float64(); err == nil {
				return f, true
			}
		case string:
			if f, err := strconv.ParseFloat(strings.TrimSpace(t), 64); err == nil {
				return f, true
			}
		}
	}
	return 0, false
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func normalizeKey(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// vtecKey derives office|phenomena|significance|event from either the IEM
// storm-based warning columns or the first P-VTEC string of an NWS alert.
// Offices are reduced to their three-letter WFO id.
func vtecKey(props map[string]any) string {
	office := stringProp(props, "wfo")
	phen := stringProp(props, "phenomena")
	sig := stringProp(props, "significance")
	etn := stringProp(props, "eventid")

	if office == "" || phen == "" {
		params, _ := props["parameters"].(map[string]any)
		codes, _ := params["VTEC"].([]any)
		if len(codes) == 0 {
			return ""
		}
		s, _ := codes[0].(string)
		// /k.aaa.cccc.pp.s.####.yymmddThhnnZ-yymmddThhnnZ/
		parts := strings.Split(strings.Trim(s, "/"), ".")
		if len(parts) < 6 {
			return ""
		}
		office, phen, sig, etn = parts[2], parts[3], parts[4], parts[5]
	}

	if len(office) == 4 {
		office = office[1:]
	}
	if n, err := strconv.Atoi(etn); err == nil {
		etn = strconv.Itoa(n)
	}
	if office == "" || phen == "" || etn == "" {
		return ""
	}
	return strings.Join([]string{"vtec", strings.ToUpper(office), strings.ToUpper(phen), strings.ToUpper(sig), etn}, "|")
}
